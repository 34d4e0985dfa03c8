package database

import (
	"context"

	"tour-stitcher/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	SubTours() SubTourRepository
	Runs() RunRepository
}

// SubTourRepository handles per-cluster sub-tour persistence, keyed by cluster name
type SubTourRepository interface {
	Save(ctx context.Context, name string, tour []int) error
	Load(ctx context.Context, name string) ([]int, error)
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// RunRepository handles assembled tour history
type RunRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.Run, int, error)
	GetByID(ctx context.Context, id string) (*models.Run, error)
	Create(ctx context.Context, run *models.Run) (*models.Run, error)
	Delete(ctx context.Context, id string) error
}
