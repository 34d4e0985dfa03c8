package routing

import (
	"context"
	"fmt"

	"tour-stitcher/internal/database"
	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/models"
)

// StoredSolver answers with sub-tours persisted by an earlier run, keyed by cluster name.
// Missing tours surface as database.ErrNotFound.
type StoredSolver struct {
	repo database.SubTourRepository
	dist distance.Calculator
}

// NewStoredSolver creates a solver that reads tours from repo
func NewStoredSolver(repo database.SubTourRepository, dist distance.Calculator) *StoredSolver {
	return &StoredSolver{repo: repo, dist: dist}
}

// Solve loads the stored tour for cluster
func (s *StoredSolver) Solve(ctx context.Context, cluster models.Cluster) (*SubTour, error) {
	tour, err := s.repo.Load(ctx, cluster.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to load sub-tour %s: %w", cluster.Name(), err)
	}

	// stored files can go stale when the input changes
	if err := ValidateSubTour(cluster, tour); err != nil {
		return nil, err
	}

	return &SubTour{Tour: tour, Objective: distance.TourLength(s.dist, tour)}, nil
}
