package testutil

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"tour-stitcher/internal/models"
)

// RandomPoints returns n points with ids 0..n-1 spread uniformly over a size×size square.
// The same seed always yields the same points.
func RandomPoints(n int, size float64, seed int64) []models.Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]models.Point, n)
	for i := range points {
		points[i] = models.Point{ID: i, X: rng.Float64() * size, Y: rng.Float64() * size}
	}
	return points
}

// ClusteredPoints returns points in tight blobs around centers, ids assigned in order
func ClusteredPoints(centers []models.Point, perCenter int, spread float64, seed int64) []models.Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]models.Point, 0, len(centers)*perCenter)
	for _, c := range centers {
		for k := 0; k < perCenter; k++ {
			points = append(points, models.Point{
				ID: len(points),
				X:  c.X + (rng.Float64()-0.5)*spread,
				Y:  c.Y + (rng.Float64()-0.5)*spread,
			})
		}
	}
	return points
}

// DistanceCall records one lookup made through a MockCalculator
type DistanceCall struct {
	I, J int
}

// MockCalculator computes scaled Euclidean distance over a fixed point list and records
// every lookup. It reports self lookups, which library code must never make.
type MockCalculator struct {
	Points      []models.Point
	ScaleFactor float64
	Calls       []DistanceCall
	SelfLookups int
}

// NewMockCalculator creates a recording calculator using the production scale factor of 100
func NewMockCalculator(points []models.Point) *MockCalculator {
	return &MockCalculator{
		Points:      points,
		ScaleFactor: 100,
		Calls:       []DistanceCall{},
	}
}

// Distance returns the scaled distance between points i and j
func (m *MockCalculator) Distance(i, j int) float64 {
	m.Calls = append(m.Calls, DistanceCall{I: i, J: j})
	if i == j {
		m.SelfLookups++
	}
	dx := m.Points[i].X - m.Points[j].X
	dy := m.Points[i].Y - m.Points[j].Y
	return math.Sqrt(dx*dx+dy*dy) * m.ScaleFactor
}

// ResetCalls clears the recorded calls
func (m *MockCalculator) ResetCalls() {
	m.Calls = []DistanceCall{}
	m.SelfLookups = 0
}

// RequirePermutation fails the test unless tour holds exactly the ids in want, once each
func RequirePermutation(t *testing.T, tour []int, want []int) {
	t.Helper()

	if len(tour) != len(want) {
		t.Fatalf("tour has %d points, want %d", len(tour), len(want))
	}

	got := append([]int(nil), tour...)
	exp := append([]int(nil), want...)
	sort.Ints(got)
	sort.Ints(exp)
	for i := range got {
		if got[i] != exp[i] {
			t.Fatalf("tour is not a permutation of the expected ids: first mismatch at sorted index %d (%d != %d)", i, got[i], exp[i])
		}
	}
}

// Sequence returns the ids lo..hi-1
func Sequence(lo, hi int) []int {
	ids := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ids = append(ids, i)
	}
	return ids
}
