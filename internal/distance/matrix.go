package distance

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"tour-stitcher/internal/models"
)

// Scale multiplies every Euclidean distance so objectives fit integral-cost engines.
// Reported lengths are divided back by the same factor.
const Scale = 100.0

// DefaultCacheLimit is the largest point count for which the lower-triangle cache is allocated
const DefaultCacheLimit = 4000

// Calculator provides the distance between two points of the problem, by id
type Calculator interface {
	Distance(i, j int) float64
}

// Matrix owns the problem's points and computes scaled Euclidean distances on demand.
// When the point count is at or below its cache limit, results are kept in a lower-triangle
// buffer that only grows; it is safe for concurrent use.
type Matrix struct {
	points []models.Point
	cache  []atomic.Uint64 // math.Float64bits of the distance, 0 = not computed yet
}

// NewMatrix creates a distance matrix over points. Point ids must equal their index.
func NewMatrix(points []models.Point, cacheLimit int) *Matrix {
	m := &Matrix{points: points}

	n := len(points)
	if n > 0 && n <= cacheLimit {
		m.cache = make([]atomic.Uint64, n*(n+1)/2)
	}

	return m
}

// Len returns the number of points owned by the matrix
func (m *Matrix) Len() int {
	return len(m.points)
}

// Points returns the points owned by the matrix, indexed by id
func (m *Matrix) Points() []models.Point {
	return m.points
}

// Cached reports whether the matrix buffers computed distances
func (m *Matrix) Cached() bool {
	return m.cache != nil
}

// Distance returns the scaled Euclidean distance between points i and j.
// Out-of-range indices panic.
func (m *Matrix) Distance(i, j int) float64 {
	if m.cache == nil {
		return m.compute(i, j)
	}

	if j > i {
		i, j = j, i
	}
	k := i*(i+1)/2 + j

	// Coincident points compute to 0 and are simply recomputed.
	if bits := m.cache[k].Load(); bits != 0 {
		return math.Float64frombits(bits)
	}

	d := m.compute(i, j)
	m.cache[k].Store(math.Float64bits(d))
	return d
}

func (m *Matrix) compute(i, j int) float64 {
	return r2.Norm(r2.Sub(m.points[i].Vec(), m.points[j].Vec())) * Scale
}

// TourLength returns the scaled length of the closed cycle through tour.
// Tours of fewer than two points have zero length.
func TourLength(calc Calculator, tour []int) float64 {
	if len(tour) < 2 {
		return 0
	}

	total := calc.Distance(tour[len(tour)-1], tour[0])
	for i := 0; i < len(tour)-1; i++ {
		total += calc.Distance(tour[i], tour[i+1])
	}
	return total
}

// Unscale converts a scaled distance back into coordinate units
func Unscale(v float64) float64 {
	return v / Scale
}
