package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tour-stitcher/internal/models"
)

// JSONData represents the structure of the runs file
type JSONData struct {
	Runs []models.Run `json:"runs"`
}

// JSONStore is a file-based data store: run history in one JSON file and sub-tours as
// plain text files next to it
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex

	subTourRepository SubTourRepository
	runRepository     RunRepository
}

func (s *JSONStore) SubTours() SubTourRepository { return s.subTourRepository }
func (s *JSONStore) Runs() RunRepository         { return s.runRepository }

// NewJSONStore creates a JSON-based data store rooted at dir
func NewJSONStore(dir string) (*JSONStore, error) {
	subTours, err := NewFileSubTourStore(filepath.Join(dir, SubTourDirName))
	if err != nil {
		return nil, err
	}

	store := &JSONStore{
		filePath:          filepath.Join(dir, RunsFileName),
		data:              &JSONData{},
		subTourRepository: subTours,
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	store.runRepository = &jsonRunRepository{store: store}

	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{Runs: []models.Run{}}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}

	if s.data.Runs == nil {
		s.data.Runs = []models.Run{}
	}

	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Close is a no-op; every write is already on disk
func (s *JSONStore) Close() error {
	return nil
}

// HealthCheck verifies the data file is still readable
func (s *JSONStore) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.filePath); err != nil {
		return fmt.Errorf("data file unavailable: %w", err)
	}
	return nil
}

type jsonRunRepository struct {
	store *JSONStore
}

// List returns runs newest first along with the total count
func (r *jsonRunRepository) List(ctx context.Context, limit, offset int) ([]models.Run, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	runs := make([]models.Run, len(r.store.data.Runs))
	copy(runs, r.store.data.Runs)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	total := len(runs)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []models.Run{}, total, nil
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}

	page := make([]models.Run, 0, end-offset)
	for _, run := range runs[offset:end] {
		run.Tour = nil
		page = append(page, run)
	}

	return page, total, nil
}

func (r *jsonRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, run := range r.store.data.Runs {
		if run.ID == id {
			run.Tour = append([]int(nil), run.Tour...)
			return &run, nil
		}
	}
	return nil, ErrNotFound
}

func (r *jsonRunRepository) Create(ctx context.Context, run *models.Run) (*models.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created := *run
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()
	created.Tour = append([]int(nil), run.Tour...)

	r.store.data.Runs = append(r.store.data.Runs, created)
	if err := r.store.saveUnlocked(); err != nil {
		r.store.data.Runs = r.store.data.Runs[:len(r.store.data.Runs)-1]
		return nil, err
	}

	return &created, nil
}

func (r *jsonRunRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	runs := r.store.data.Runs
	for i, run := range runs {
		if run.ID == id {
			remaining := make([]models.Run, 0, len(runs)-1)
			remaining = append(remaining, runs[:i]...)
			remaining = append(remaining, runs[i+1:]...)

			r.store.data.Runs = remaining
			if err := r.store.saveUnlocked(); err != nil {
				r.store.data.Runs = runs
				return err
			}
			return nil
		}
	}
	return ErrNotFound
}
