package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-stitcher/internal/models"
	"tour-stitcher/internal/testutil"
)

func TestSearchFindsSegmentsTouchingRect(t *testing.T) {
	points := []models.Point{
		{ID: 0, X: 0, Y: 0},
		{ID: 1, X: 10, Y: 0},
		{ID: 2, X: 10, Y: 10},
		{ID: 3, X: 0, Y: 10},
	}
	segments := Segmentize([]int{0, 1, 2, 3}, points)
	search := NewCandidateSearch(1, 1, DefaultMaxExpansions)

	found, expansions := search.Search(models.Rect{X0: 9, Y0: -1, X1: 11, Y1: 1}, segments)

	assert.Equal(t, 0, expansions)
	require.Len(t, found, 2)
	assert.Equal(t, 0, found[0].ID) // 0→1 ends inside
	assert.Equal(t, 1, found[1].ID) // 1→2 starts inside
}

func TestSearchExpandsUntilFound(t *testing.T) {
	points := []models.Point{
		{ID: 0, X: 0, Y: 0},
		{ID: 1, X: 1, Y: 0},
		{ID: 2, X: 0, Y: 1},
	}
	segments := Segmentize([]int{0, 1, 2}, points)
	search := NewCandidateSearch(2, 2, DefaultMaxExpansions)

	found, expansions := search.Search(models.Rect{X0: 10, Y0: 10, X1: 11, Y1: 11}, segments)

	assert.NotEmpty(t, found)
	// the rect needs to reach (1,1)-ish from (10,10): ceil(9/2) = 5 expansions
	assert.Equal(t, 5, expansions)
}

func TestSearchEmptySegments(t *testing.T) {
	search := NewCandidateSearch(1, 1, DefaultMaxExpansions)

	found, expansions := search.Search(models.Rect{}, nil)

	assert.Nil(t, found)
	assert.Zero(t, expansions)
}

func TestSearchZeroMarginsStopsAtBudget(t *testing.T) {
	points := []models.Point{{ID: 0, X: 0, Y: 0}, {ID: 1, X: 1, Y: 1}}
	segments := Segmentize([]int{0, 1}, points)
	search := NewCandidateSearch(0, 0, 25)

	found, expansions := search.Search(models.Rect{X0: 50, Y0: 50, X1: 60, Y1: 60}, segments)

	assert.Nil(t, found)
	assert.Equal(t, 25, expansions)
}

func TestSearchNaNCoordinatesTerminate(t *testing.T) {
	points := []models.Point{{ID: 0, X: math.NaN(), Y: 0}, {ID: 1, X: math.NaN(), Y: math.NaN()}}
	segments := Segmentize([]int{0, 1}, points)
	search := NewCandidateSearch(1, 1, 50)

	found, expansions := search.Search(models.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}, segments)

	assert.Nil(t, found)
	assert.Equal(t, 50, expansions)
}

func TestSearchAlwaysTerminatesOnRandomSets(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		n := 5 + int(seed)*13
		size := float64(10 * seed * seed)
		points := testutil.RandomPoints(n, size, seed)
		segments := Segmentize(testutil.Sequence(0, n), points)
		search := NewCandidateSearch(0.5, 0.25, math.MaxInt)

		// a rectangle well outside the point cloud
		far := models.Rect{X0: size * 3, Y0: -size * 4, X1: size*3 + 1, Y1: -size*4 + 1}
		found, _ := search.Search(far, segments)

		assert.NotEmpty(t, found, "seed %d", seed)
	}
}

func TestRegionExpandsBounds(t *testing.T) {
	search := NewCandidateSearch(3, 4, DefaultMaxExpansions)

	r := search.Region([]models.Point{{X: 1, Y: 1}, {X: 2, Y: 5}})

	assert.Equal(t, models.Rect{X0: -2, Y0: -3, X1: 5, Y1: 9}, r)
}
