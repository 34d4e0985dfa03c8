// Package assembler drives a full run: partition the points, solve every cluster in parallel,
// then splice the sub-tours into one cycle in cluster order.
package assembler

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tour-stitcher/internal/database"
	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/merge"
	"tour-stitcher/internal/metrics"
	"tour-stitcher/internal/models"
	"tour-stitcher/internal/partition"
	"tour-stitcher/internal/routing"
)

// objectiveTolerance is the relative gap between a solver's objective and the recomputed
// length above which the solver is reported as inconsistent
const objectiveTolerance = 1e-6

// SolverFactory creates the routing engine for one run; dist covers that run's points
type SolverFactory func(dist distance.Calculator) routing.SubTourSolver

// Options configures an Assembler
type Options struct {
	Partition     partition.Config
	CacheLimit    int
	MarginX       float64
	MarginY       float64
	MaxExpansions int
	Workers       int
	// Persist receives every validated sub-tour when set
	Persist database.SubTourRepository
}

// Assembler produces a closed tour over a point set
type Assembler struct {
	opts      Options
	newSolver SolverFactory
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// New creates an assembler. collector may be nil.
func New(opts Options, newSolver SolverFactory, logger *zap.Logger, collector *metrics.Collector) *Assembler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Assembler{
		opts:      opts,
		newSolver: newSolver,
		logger:    logger.Named("assembler"),
		metrics:   collector,
	}
}

// Plan is a partitioned and solved point set, ready to merge
type Plan struct {
	Matrix   *distance.Matrix
	Clusters []models.Cluster
	SubTours []*routing.SubTour // parallel to Clusters
}

// Assemble returns a tour visiting every point exactly once and its unscaled length.
// A sub-tour that is not a permutation of its cluster aborts the run with
// *routing.ErrContractViolation.
func (a *Assembler) Assemble(ctx context.Context, points []models.Point) (*models.Result, error) {
	start := time.Now()

	plan, err := a.Solve(ctx, points)
	if err != nil {
		return nil, err
	}

	result, err := a.Merge(ctx, plan)
	if err != nil {
		return nil, err
	}

	a.metrics.ObserveAssembly(time.Since(start), len(points))
	a.logger.Info("assembled tour",
		zap.Int("points", len(result.Tour)),
		zap.Int("clusters", result.Clusters),
		zap.Int("fallbacks", result.Fallbacks),
		zap.Float64("length", result.Length),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// Solve partitions points and obtains a validated sub-tour for every cluster.
// Point ids must equal their index.
func (a *Assembler) Solve(ctx context.Context, points []models.Point) (*Plan, error) {
	for i, p := range points {
		if p.ID != i {
			return nil, fmt.Errorf("point at index %d has id %d", i, p.ID)
		}
	}

	matrix := distance.NewMatrix(points, a.opts.CacheLimit)
	clusters := partition.New(a.opts.Partition).Partition(points)

	a.logger.Info("partitioned points",
		zap.Int("points", len(points)),
		zap.Int("clusters", len(clusters)),
		zap.Bool("distance_cache", matrix.Cached()),
	)

	solver := a.newSolver(matrix)
	subTours := make([]*routing.SubTour, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for i, cluster := range clusters {
		if len(cluster.Points) == 0 {
			continue
		}

		i, cluster := i, cluster
		g.Go(func() error {
			sub, err := a.solveCluster(gctx, solver, matrix, cluster)
			if err != nil {
				return err
			}
			subTours[i] = sub
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Plan{Matrix: matrix, Clusters: clusters, SubTours: subTours}, nil
}

func (a *Assembler) solveCluster(ctx context.Context, solver routing.SubTourSolver, dist distance.Calculator, cluster models.Cluster) (*routing.SubTour, error) {
	start := time.Now()

	var (
		sub *routing.SubTour
		err error
	)
	if len(cluster.Points) == 1 {
		sub = &routing.SubTour{Tour: []int{cluster.Points[0].ID}}
	} else {
		sub, err = solver.Solve(ctx, cluster)
	}
	if err == nil {
		err = routing.ValidateSubTour(cluster, sub.Tour)
	}
	a.metrics.ObserveSubTour(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to solve cluster %s: %w", cluster.Name(), err)
	}

	a.checkObjective(cluster, sub, dist)

	if a.opts.Persist != nil {
		if err := a.opts.Persist.Save(ctx, cluster.Name(), sub.Tour); err != nil {
			return nil, fmt.Errorf("failed to persist cluster %s: %w", cluster.Name(), err)
		}
	}

	return sub, nil
}

// checkObjective compares the solver's reported objective with the recomputed tour length
func (a *Assembler) checkObjective(cluster models.Cluster, sub *routing.SubTour, dist distance.Calculator) {
	recomputed := distance.TourLength(dist, sub.Tour)
	fields := []zap.Field{
		zap.String("cluster", cluster.Name()),
		zap.Int("points", len(sub.Tour)),
		zap.Float64("objective", sub.Objective),
		zap.Float64("recomputed", recomputed),
	}

	if math.Abs(recomputed-sub.Objective) > objectiveTolerance*math.Max(1, recomputed) {
		a.logger.Warn("solver objective differs from tour length", fields...)
		return
	}
	a.logger.Debug("solved cluster", fields...)
}

// Merge splices the plan's sub-tours in cluster order
func (a *Assembler) Merge(ctx context.Context, plan *Plan) (*models.Result, error) {
	points := plan.Matrix.Points()
	search := merge.NewCandidateSearch(a.opts.MarginX, a.opts.MarginY, a.opts.MaxExpansions)
	engine := merge.NewEngine(plan.Matrix, points, search, a.logger, a.metrics)

	sol := &merge.Solution{}
	result := &models.Result{Clusters: len(plan.Clusters)}

	for i, sub := range plan.SubTours {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sub == nil || len(sub.Tour) == 0 {
			continue
		}

		splice := engine.Insert(sol, sub.Tour)
		if splice.Mode == merge.ModeFallback {
			result.Fallbacks++
		}

		a.logger.Debug("merged cluster",
			zap.String("cluster", plan.Clusters[i].Name()),
			zap.String("mode", splice.Mode),
			zap.Int("solution_len", sol.Len()),
		)
	}

	result.Tour = sol.Tour()
	result.Length = distance.Unscale(distance.TourLength(plan.Matrix, result.Tour))

	if len(result.Tour) != len(points) {
		return nil, fmt.Errorf("merged tour has %d points, expected %d", len(result.Tour), len(points))
	}

	return result, nil
}
