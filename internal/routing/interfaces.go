package routing

import (
	"context"
	"fmt"

	"tour-stitcher/internal/models"
)

// SubTour is a closed tour over one cluster as returned by a solver
type SubTour struct {
	Tour      []int   `json:"tour"`      // point ids in visiting order
	Objective float64 `json:"objective"` // scaled length reported by the solver
}

// SubTourSolver provides tours for individual clusters
type SubTourSolver interface {
	Solve(ctx context.Context, cluster models.Cluster) (*SubTour, error)
}

// ErrContractViolation is returned when a solver's tour is not a permutation of its cluster
type ErrContractViolation struct {
	Cluster string
	Reason  string
}

func (e *ErrContractViolation) Error() string {
	return fmt.Sprintf("sub-tour for cluster %s violates solver contract: %s", e.Cluster, e.Reason)
}

// ValidateSubTour checks that tour visits every point of cluster exactly once and nothing else
func ValidateSubTour(cluster models.Cluster, tour []int) error {
	if len(tour) != len(cluster.Points) {
		return &ErrContractViolation{
			Cluster: cluster.Name(),
			Reason:  fmt.Sprintf("tour has %d points, cluster has %d", len(tour), len(cluster.Points)),
		}
	}

	members := make(map[int]bool, len(cluster.Points))
	for _, p := range cluster.Points {
		members[p.ID] = false
	}

	for _, id := range tour {
		seen, ok := members[id]
		if !ok {
			return &ErrContractViolation{Cluster: cluster.Name(), Reason: fmt.Sprintf("point %d is not in the cluster", id)}
		}
		if seen {
			return &ErrContractViolation{Cluster: cluster.Name(), Reason: fmt.Sprintf("point %d visited twice", id)}
		}
		members[id] = true
	}

	return nil
}
