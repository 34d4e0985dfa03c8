// Package merge splices independently solved sub-tours into one growing cycle.
//
// A splice breaks one edge a→b of the solution and one edge c→d of the incoming sub-tour
// and reconnects the two cycles. There are two ways to reconnect:
//
//	straight: a→c, walk the sub-tour backwards to d, d→b
//	crossed:  a→d, walk the sub-tour forwards to c, c→b
//
// The added length of either move is the 2-opt style delta of the two new edges minus the
// two removed ones. Only solution edges near the incoming sub-tour are considered; see
// CandidateSearch.
package merge

import (
	"slices"

	"go.uber.org/zap"

	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/metrics"
	"tour-stitcher/internal/models"
)

// Splice modes reported by Engine.Insert
const (
	ModeNoop     = "noop"
	ModeAdopt    = "adopt"
	ModeScored   = "scored"
	ModeFallback = "fallback"
)

// Solution is the accumulating global tour. Only Engine mutates it, one Insert at a time;
// concurrent Inserts into the same Solution are not allowed.
type Solution struct {
	ids []int
}

// Len returns the number of points in the solution
func (s *Solution) Len() int {
	return len(s.ids)
}

// Tour returns a copy of the solution's point ids in visiting order
func (s *Solution) Tour() []int {
	return slices.Clone(s.ids)
}

// Splice describes what one Insert did
type Splice struct {
	Mode       string  `json:"mode"`
	Segment    int     `json:"segment"`     // id of the broken solution edge
	SubSegment int     `json:"sub_segment"` // id of the broken sub-tour edge
	Crossed    bool    `json:"crossed"`
	Cost       float64 `json:"cost"` // scaled length added to the solution
	Candidates int     `json:"candidates"`
	Expansions int     `json:"expansions"`
}

// Engine performs cost-minimizing splices
type Engine struct {
	dist    distance.Calculator
	points  []models.Point
	search  *CandidateSearch
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewEngine creates an insertion engine. points is indexed by id; collector may be nil.
func NewEngine(dist distance.Calculator, points []models.Point, search *CandidateSearch, logger *zap.Logger, collector *metrics.Collector) *Engine {
	return &Engine{
		dist:    dist,
		points:  points,
		search:  search,
		logger:  logger.Named("merge"),
		metrics: collector,
	}
}

// ConnectionCost returns the length added by breaking s and p and reconnecting them,
// straight (s.From–p.From, p.To–s.To) or crossed (s.From–p.To, p.From–s.To).
// The result does not change when s and p swap roles.
func ConnectionCost(dist distance.Calculator, s, p models.Segment, crossed bool) float64 {
	removed := edge(dist, s.From, s.To) + edge(dist, p.From, p.To)
	if crossed {
		return edge(dist, s.From, p.To) + edge(dist, p.From, s.To) - removed
	}
	return edge(dist, s.From, p.From) + edge(dist, p.To, s.To) - removed
}

// edge measures a possibly degenerate edge; one-point tours close on themselves
func edge(dist distance.Calculator, a, b models.Point) float64 {
	if a.ID == b.ID {
		return 0
	}
	return dist.Distance(a.ID, b.ID)
}

// Insert splices newTour into sol at the cheapest place found and reports what it did.
// Segments taken from sol before the call are stale afterwards.
func (e *Engine) Insert(sol *Solution, newTour []int) Splice {
	if len(newTour) == 0 {
		return e.record(Splice{Mode: ModeNoop})
	}

	if sol.Len() == 0 {
		sol.ids = slices.Clone(newTour)
		return e.record(Splice{Mode: ModeAdopt})
	}

	solSegments := Segmentize(sol.ids, e.points)
	subSegments := Segmentize(newTour, e.points)

	region := e.search.Region(e.lookup(newTour))
	candidates, expansions := e.search.Search(region, solSegments)

	if len(candidates) == 0 {
		e.logger.Warn("no candidate segments, appending sub-tour",
			zap.Int("solution_len", sol.Len()),
			zap.Int("subtour_len", len(newTour)),
			zap.Int("expansions", expansions),
		)
		sol.ids = append(sol.ids, newTour...)
		return e.record(Splice{Mode: ModeFallback, Expansions: expansions})
	}

	var (
		best     models.Segment
		bestSub  models.Segment
		crossed  bool
		bestCost float64
		found    bool
	)
	for _, s := range candidates {
		for _, p := range subSegments {
			for _, x := range [2]bool{false, true} {
				cost := ConnectionCost(e.dist, s, p, x)
				if !found || cost < bestCost {
					best, bestSub, crossed, bestCost, found = s, p, x, cost, true
				}
			}
		}
	}

	sol.ids = slices.Insert(sol.ids, fromIndex(best, sol.Len())+1, orient(newTour, bestSub, crossed)...)

	return e.record(Splice{
		Mode:       ModeScored,
		Segment:    best.ID,
		SubSegment: bestSub.ID,
		Crossed:    crossed,
		Cost:       bestCost,
		Candidates: len(candidates),
		Expansions: expansions,
	})
}

// orient returns tour rotated to run p.To … p.From, reversed to p.From … p.To unless crossed
func orient(tour []int, p models.Segment, crossed bool) []int {
	n := len(tour)
	start := (fromIndex(p, n) + 1) % n

	seq := make([]int, 0, n)
	seq = append(seq, tour[start:]...)
	seq = append(seq, tour[:start]...)
	if !crossed {
		slices.Reverse(seq)
	}
	return seq
}

func (e *Engine) lookup(ids []int) []models.Point {
	pts := make([]models.Point, len(ids))
	for i, id := range ids {
		pts[i] = e.points[id]
	}
	return pts
}

func (e *Engine) record(s Splice) Splice {
	e.metrics.ObserveSplice(s.Mode, s.Candidates, s.Expansions)
	if s.Mode == ModeScored {
		e.logger.Debug("spliced sub-tour",
			zap.Int("segment", s.Segment),
			zap.Int("sub_segment", s.SubSegment),
			zap.Bool("crossed", s.Crossed),
			zap.Float64("cost", s.Cost),
			zap.Int("candidates", s.Candidates),
			zap.Int("expansions", s.Expansions),
		)
	}
	return s
}
