package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tour-stitcher/internal/database"
)

type subTourRepository struct {
	store *Store
}

func (r *subTourRepository) Save(ctx context.Context, name string, tour []int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Replacing the parent row cascades to the old points
	if _, err := tx.ExecContext(ctx, `DELETE FROM subtours WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to clear sub-tour: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subtours (name, size, updated_at) VALUES (?, ?, ?)`,
		name, len(tour), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to create sub-tour: %w", err)
	}

	if err := insertPositions(ctx, tx, `INSERT INTO subtour_points (name, position, point_id) VALUES (?, ?, ?)`, name, tour); err != nil {
		return fmt.Errorf("failed to create sub-tour points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *subTourRepository) Load(ctx context.Context, name string) ([]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var size int
	err := r.store.db.QueryRowContext(ctx, `SELECT size FROM subtours WHERE name = ?`, name).Scan(&size)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sub-tour: %w", err)
	}

	tour, err := queryPositions(ctx, r.store.db,
		`SELECT point_id FROM subtour_points WHERE name = ? ORDER BY position`, name, size)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-tour points: %w", err)
	}

	return tour, nil
}

func (r *subTourRepository) List(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.QueryContext(ctx, `SELECT name FROM subtours ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-tours: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan sub-tour: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sub-tours: %w", err)
	}

	return names, nil
}

func (r *subTourRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM subtours`); err != nil {
		return fmt.Errorf("failed to clear sub-tours: %w", err)
	}
	return nil
}

// insertPositions writes ids as (key, position, id) rows through one prepared statement
func insertPositions(ctx context.Context, tx *sql.Tx, query, key string, ids []int) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, id := range ids {
		if _, err := stmt.ExecContext(ctx, key, pos, id); err != nil {
			return err
		}
	}
	return nil
}

func queryPositions(ctx context.Context, db *sql.DB, query, key string, size int) ([]int, error) {
	rows, err := db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0, size)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
