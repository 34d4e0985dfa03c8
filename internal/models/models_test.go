package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointVec(t *testing.T) {
	p := Point{ID: 3, X: 1.5, Y: -2}

	v := p.Vec()

	assert.Equal(t, 1.5, v.X)
	assert.Equal(t, -2.0, v.Y)
}

func TestBounds(t *testing.T) {
	r := Bounds([]Point{{X: 1, Y: 5}, {X: -3, Y: 2}, {X: 4, Y: -1}})

	assert.Equal(t, Rect{X0: -3, Y0: -1, X1: 4, Y1: 5}, r)
}

func TestBoundsEmptyContainsNothing(t *testing.T) {
	r := Bounds(nil)

	assert.True(t, math.IsInf(r.X0, 1))
	assert.False(t, r.Contains(Point{X: 0, Y: 0}))
}

func TestRectContainsEdges(t *testing.T) {
	r := Rect{X0: 0, Y0: 0, X1: 10, Y1: 5}

	assert.True(t, r.Contains(Point{X: 0, Y: 0}))
	assert.True(t, r.Contains(Point{X: 10, Y: 5}))
	assert.True(t, r.Contains(Point{X: 3, Y: 2}))
	assert.False(t, r.Contains(Point{X: 10.01, Y: 2}))
	assert.False(t, r.Contains(Point{X: 3, Y: -0.5}))
}

func TestRectExpandAndCovers(t *testing.T) {
	r := Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}

	grown := r.Expand(2, 3)

	assert.Equal(t, Rect{X0: -2, Y0: -3, X1: 3, Y1: 4}, grown)
	assert.True(t, grown.Covers(r))
	assert.False(t, r.Covers(grown))
}

func TestClusterName(t *testing.T) {
	assert.Equal(t, "band_4", Cluster{Kind: ClusterBand, Band: 4}.Name())
	assert.Equal(t, "left", Cluster{Kind: ClusterLeft}.Name())
	assert.Equal(t, "right", Cluster{Kind: ClusterRight}.Name())
}

func TestClusterIDs(t *testing.T) {
	c := Cluster{Points: []Point{{ID: 7}, {ID: 2}, {ID: 9}}}

	assert.Equal(t, []int{7, 2, 9}, c.IDs())
}
