package models

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a planar location with a stable id (its position in the problem input)
type Point struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Vec returns the coordinates of the point as a gonum vector
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Segment is a directed tour edge. ID is the index of From in the tour it was
// taken from; the closing edge (last point back to first) uses the tour length.
// Segments are snapshots and go stale as soon as the tour is spliced.
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
	ID   int   `json:"id"`
}

// Rect is an axis-aligned bounding box used as a spatial filter
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Bounds returns the smallest Rect containing every point.
// An empty input yields an empty (inverted) Rect that contains nothing.
func Bounds(points []Point) Rect {
	r := Rect{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for _, p := range points {
		r.X0 = math.Min(r.X0, p.X)
		r.Y0 = math.Min(r.Y0, p.Y)
		r.X1 = math.Max(r.X1, p.X)
		r.Y1 = math.Max(r.Y1, p.Y)
	}
	return r
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return r.X0 <= p.X && p.X <= r.X1 && r.Y0 <= p.Y && p.Y <= r.Y1
}

// Covers reports whether other lies entirely inside r
func (r Rect) Covers(other Rect) bool {
	return r.X0 <= other.X0 && r.Y0 <= other.Y0 && r.X1 >= other.X1 && r.Y1 >= other.Y1
}

// Expand grows the rectangle by mx on the left and right and by my on the top and bottom
func (r Rect) Expand(mx, my float64) Rect {
	return Rect{X0: r.X0 - mx, Y0: r.Y0 - my, X1: r.X1 + mx, Y1: r.Y1 + my}
}

// ClusterKind identifies which partition policy produced a cluster
type ClusterKind string

const (
	ClusterBand  ClusterKind = "band"
	ClusterLeft  ClusterKind = "left"
	ClusterRight ClusterKind = "right"
)

// Cluster is a disjoint group of points solved as one sub-tour
type Cluster struct {
	Kind   ClusterKind `json:"kind"`
	Band   int         `json:"band"`
	Points []Point     `json:"points"`
}

// Name returns the persisted artifact name of the cluster: "left", "right" or "band_<i>"
func (c Cluster) Name() string {
	if c.Kind == ClusterBand {
		return fmt.Sprintf("band_%d", c.Band)
	}
	return string(c.Kind)
}

// IDs returns the ids of the cluster's points in cluster order
func (c Cluster) IDs() []int {
	ids := make([]int, len(c.Points))
	for i, p := range c.Points {
		ids[i] = p.ID
	}
	return ids
}

// Result is the outcome of a full tour assembly
type Result struct {
	Tour      []int   `json:"tour"`
	Length    float64 `json:"length"`
	Optimal   bool    `json:"optimal"`
	Clusters  int     `json:"clusters"`
	Fallbacks int     `json:"fallbacks"`
}

// Run is a recorded assembly
type Run struct {
	ID         string    `json:"id"`
	PointCount int       `json:"point_count"`
	Clusters   int       `json:"clusters"`
	Length     float64   `json:"length"`
	Optimal    bool      `json:"optimal"`
	CreatedAt  time.Time `json:"created_at"`
	Tour       []int     `json:"tour,omitempty"`
}
