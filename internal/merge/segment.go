package merge

import "tour-stitcher/internal/models"

// Segmentize returns the directed edges of the cycle through tour: one per consecutive
// pair with ids 0..len-2, plus the closing edge back to the first point with id len.
// points is indexed by id. A one-point tour yields a single self edge.
func Segmentize(tour []int, points []models.Point) []models.Segment {
	n := len(tour)
	if n == 0 {
		return nil
	}

	segments := make([]models.Segment, 0, n)
	for i := 0; i < n-1; i++ {
		segments = append(segments, models.Segment{
			From: points[tour[i]],
			To:   points[tour[i+1]],
			ID:   i,
		})
	}
	segments = append(segments, models.Segment{
		From: points[tour[n-1]],
		To:   points[tour[0]],
		ID:   n,
	})

	return segments
}

// fromIndex returns the position of s.From in the tour of length n that s was taken from
func fromIndex(s models.Segment, n int) int {
	if s.ID >= n {
		return n - 1
	}
	return s.ID
}
