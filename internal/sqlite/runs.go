package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tour-stitcher/internal/database"
	"tour-stitcher/internal/models"
)

type runRepository struct {
	store *Store
}

// List returns runs newest first without their tours, along with the total count
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]models.Run, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	query := `SELECT id, point_count, clusters, length, optimal, created_at
	          FROM runs
	          ORDER BY created_at DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.store.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.PointCount, &run.Clusters, &run.Length, &run.Optimal, &run.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, total, nil
}

func (r *runRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT id, point_count, clusters, length, optimal, created_at FROM runs WHERE id = ?`
	var run models.Run
	err := r.store.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.PointCount, &run.Clusters, &run.Length, &run.Optimal, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Tour, err = queryPositions(ctx, r.store.db,
		`SELECT point_id FROM run_tours WHERE run_id = ? ORDER BY position`, id, run.PointCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tour: %w", err)
	}

	return &run, nil
}

func (r *runRepository) Create(ctx context.Context, run *models.Run) (*models.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := *run
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	runQuery := `INSERT INTO runs (id, point_count, clusters, length, optimal, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, runQuery,
		created.ID, created.PointCount, created.Clusters, created.Length, created.Optimal, created.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if err := insertPositions(ctx, tx, `INSERT INTO run_tours (run_id, position, point_id) VALUES (?, ?, ?)`, created.ID, created.Tour); err != nil {
		return nil, fmt.Errorf("failed to create run tour: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &created, nil
}

func (r *runRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// Foreign key cascade removes the tour rows
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrNotFound
	}

	return nil
}
