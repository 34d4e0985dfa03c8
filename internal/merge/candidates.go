package merge

import (
	"tour-stitcher/internal/models"
)

// DefaultMaxExpansions bounds the candidate search when margins cannot grow the rectangle
const DefaultMaxExpansions = 100000

// CandidateSearch finds the solution segments near an incoming sub-tour, so splice costs
// are only evaluated for edges that could plausibly win.
type CandidateSearch struct {
	marginX       float64
	marginY       float64
	maxExpansions int
}

// NewCandidateSearch creates a search that grows its rectangle by marginX and marginY
// on every side per failed attempt, giving up after maxExpansions attempts
func NewCandidateSearch(marginX, marginY float64, maxExpansions int) *CandidateSearch {
	return &CandidateSearch{
		marginX:       marginX,
		marginY:       marginY,
		maxExpansions: maxExpansions,
	}
}

// Region returns the initial search rectangle for an incoming sub-tour:
// its bounding box expanded once by the margins
func (c *CandidateSearch) Region(points []models.Point) models.Rect {
	return models.Bounds(points).Expand(c.marginX, c.marginY)
}

// Search returns every segment with at least one endpoint inside rect, growing rect by the
// margins until something qualifies. It also returns the number of expansions performed.
//
// The loop ends because the point set is finite: once rect covers the extent of all
// endpoints a full scan has happened, so an empty result there is final. maxExpansions
// stops the loop when the margins cannot make progress (zero margins, NaN coordinates).
func (c *CandidateSearch) Search(rect models.Rect, segments []models.Segment) ([]models.Segment, int) {
	if len(segments) == 0 {
		return nil, 0
	}

	extent := segmentExtent(segments)

	for expansions := 0; ; expansions++ {
		var found []models.Segment
		for _, s := range segments {
			if rect.Contains(s.From) || rect.Contains(s.To) {
				found = append(found, s)
			}
		}
		if len(found) > 0 {
			return found, expansions
		}

		if rect.Covers(extent) || expansions >= c.maxExpansions {
			return nil, expansions
		}
		rect = rect.Expand(c.marginX, c.marginY)
	}
}

func segmentExtent(segments []models.Segment) models.Rect {
	points := make([]models.Point, 0, len(segments))
	for _, s := range segments {
		points = append(points, s.From)
	}
	return models.Bounds(points)
}
