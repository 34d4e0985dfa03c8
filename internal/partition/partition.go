// Package partition splits a problem's points into geographic clusters that can be
// solved independently and merged back into one tour.
//
// Points near the left and right ends of a middle horizontal band are carved out first
// as two polar regions; everything else is cut into equal-width horizontal strips.
// Small problems skip partitioning and come back as a single cluster.
package partition

import (
	"math"

	"tour-stitcher/internal/models"
)

// Config tunes the partition policy
type Config struct {
	// SingleClusterLimit is the largest point count returned as one cluster
	SingleClusterLimit int
	// Bands is the number of equal-width horizontal strips
	Bands int
	// PolarFraction is the share of the X range, from each end, treated as a polar region.
	// Zero disables polar regions.
	PolarFraction float64
	// PolarBandLow and PolarBandHigh bound, as shares of the Y range, where polar regions apply
	PolarBandLow  float64
	PolarBandHigh float64
}

// DefaultConfig returns the partition constants used by the CLI
func DefaultConfig() Config {
	return Config{
		SingleClusterLimit: 2000,
		Bands:              16,
		PolarFraction:      0.05,
		PolarBandLow:       0.25,
		PolarBandHigh:      0.75,
	}
}

// Partitioner assigns points to clusters
type Partitioner struct {
	cfg Config
}

// New creates a partitioner. Bands below one are treated as one.
func New(cfg Config) *Partitioner {
	if cfg.Bands < 1 {
		cfg.Bands = 1
	}
	return &Partitioner{cfg: cfg}
}

// Partition returns disjoint, non-empty clusters covering points, in merge order:
// bands by index, then the left polar region, then the right one.
func (p *Partitioner) Partition(points []models.Point) []models.Cluster {
	if len(points) == 0 {
		return nil
	}

	if len(points) <= p.cfg.SingleClusterLimit {
		all := make([]models.Point, len(points))
		copy(all, points)
		return []models.Cluster{{Kind: models.ClusterBand, Band: 0, Points: all}}
	}

	bounds := models.Bounds(points)
	rangeX := bounds.X1 - bounds.X0
	rangeY := bounds.Y1 - bounds.Y0

	polarLow := bounds.Y0 + p.cfg.PolarBandLow*rangeY
	polarHigh := bounds.Y0 + p.cfg.PolarBandHigh*rangeY
	leftEdge := bounds.X0 + p.cfg.PolarFraction*rangeX
	rightEdge := bounds.X1 - p.cfg.PolarFraction*rangeX
	bandWidth := rangeY / float64(p.cfg.Bands)

	bands := make([][]models.Point, p.cfg.Bands)
	var left, right []models.Point

	for _, pt := range points {
		if p.cfg.PolarFraction > 0 && pt.Y >= polarLow && pt.Y <= polarHigh {
			if pt.X <= leftEdge {
				left = append(left, pt)
				continue
			}
			if pt.X >= rightEdge {
				right = append(right, pt)
				continue
			}
		}

		idx := p.bandIndex(pt.Y, bounds.Y0, bandWidth)
		bands[idx] = append(bands[idx], pt)
	}

	clusters := make([]models.Cluster, 0, p.cfg.Bands+2)
	for i, band := range bands {
		if len(band) == 0 {
			continue
		}
		clusters = append(clusters, models.Cluster{Kind: models.ClusterBand, Band: i, Points: band})
	}
	if len(left) > 0 {
		clusters = append(clusters, models.Cluster{Kind: models.ClusterLeft, Points: left})
	}
	if len(right) > 0 {
		clusters = append(clusters, models.Cluster{Kind: models.ClusterRight, Points: right})
	}

	return clusters
}

func (p *Partitioner) bandIndex(y, minY, width float64) int {
	if width <= 0 {
		return 0
	}
	idx := int(math.Floor((y - minY) / width))
	if idx < 0 {
		return 0
	}
	if idx >= p.cfg.Bands {
		return p.cfg.Bands - 1
	}
	return idx
}
