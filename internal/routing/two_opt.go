package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/models"
)

// improvementEpsilon ignores moves whose gain is floating point noise
const improvementEpsilon = 1e-7

// deadlineCheckInterval is how many move evaluations pass between deadline checks
const deadlineCheckInterval = 2048

// TwoOptSolver builds a nearest neighbour tour and improves it with first-improvement 2-opt.
// When the time limit expires or ctx is cancelled it returns the best complete tour so far.
type TwoOptSolver struct {
	dist      distance.Calculator
	timeLimit time.Duration
	logger    *zap.Logger
}

// NewTwoOptSolver creates the default in-process solver. A zero timeLimit means no limit.
func NewTwoOptSolver(dist distance.Calculator, timeLimit time.Duration, logger *zap.Logger) *TwoOptSolver {
	return &TwoOptSolver{
		dist:      dist,
		timeLimit: timeLimit,
		logger:    logger.Named("solver"),
	}
}

// Solve returns a tour over every point of cluster
func (s *TwoOptSolver) Solve(ctx context.Context, cluster models.Cluster) (*SubTour, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var deadline time.Time
	if s.timeLimit > 0 {
		deadline = start.Add(s.timeLimit)
	}

	tour := s.nearestNeighbour(cluster.IDs())
	stopped := s.twoOpt(ctx, tour, deadline)

	result := &SubTour{Tour: tour, Objective: distance.TourLength(s.dist, tour)}

	s.logger.Debug("solved cluster",
		zap.String("cluster", cluster.Name()),
		zap.Int("points", len(tour)),
		zap.Float64("objective", result.Objective),
		zap.Bool("stopped_early", stopped),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// nearestNeighbour orders ids greedily starting from the first one
func (s *TwoOptSolver) nearestNeighbour(ids []int) []int {
	tour := make([]int, 0, len(ids))
	if len(ids) == 0 {
		return tour
	}

	remaining := append([]int(nil), ids[1:]...)
	current := ids[0]
	tour = append(tour, current)

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := s.dist.Distance(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if d := s.dist.Distance(current, remaining[i]); d < bestDist {
				bestIdx, bestDist = i, d
			}
		}

		current = remaining[bestIdx]
		tour = append(tour, current)
		remaining[bestIdx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}

	return tour
}

// twoOpt improves the closed tour in place, keeping tour[0] fixed. Every accepted move is a
// full reversal, so the tour is a valid cycle whenever the loop stops. Reports whether it
// stopped because of the deadline or ctx.
func (s *TwoOptSolver) twoOpt(ctx context.Context, tour []int, deadline time.Time) bool {
	n := len(tour)
	if n < 4 {
		return false
	}

	steps := 0
	expired := func() bool {
		steps++
		if steps%deadlineCheckInterval != 0 {
			return false
		}
		if ctx.Err() != nil {
			return true
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	improved := true
	for improved {
		improved = false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				if expired() {
					return true
				}

				a, b := tour[i-1], tour[i]
				c, d := tour[k], tour[(k+1)%n]
				if d == a {
					continue
				}

				delta := s.dist.Distance(a, c) + s.dist.Distance(b, d) - s.dist.Distance(a, b) - s.dist.Distance(c, d)
				if delta < -improvementEpsilon {
					reverse(tour, i, k)
					improved = true
				}
			}
		}
	}

	return false
}

func reverse(tour []int, i, j int) {
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}
