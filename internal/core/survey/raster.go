// Package survey builds overlay data for a field polygon: a synthetic crop
// health grid and randomly placed sensor points.
package survey

import (
	"math"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
)

// DefaultGridSteps is the raster resolution per axis.
const DefaultGridSteps = 8

// Noise thresholds for the three health bands.
const (
	stressedBelow = -0.3
	warningBelow  = 0.2
)

// HealthRaster splits the polygon's bounding box into steps×steps cells and
// returns the cells whose centre lies inside the polygon. Rows run south to
// north, columns west to east.
//
// The classification is a fixed function of (row, col), so the same polygon
// always yields the same pattern.
func HealthRaster(vs []domain.GeoPoint, steps int) []domain.HealthCell {
	if len(vs) < 3 {
		return nil
	}
	if steps <= 0 {
		steps = DefaultGridSteps
	}

	b := geospatial.BoundsOf(vs)
	latStep := (b.MaxLat - b.MinLat) / float64(steps)
	lonStep := (b.MaxLon - b.MinLon) / float64(steps)

	var cells []domain.HealthCell
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			cell := domain.Bounds{
				MinLat: b.MinLat + float64(i)*latStep,
				MinLon: b.MinLon + float64(j)*lonStep,
			}
			cell.MaxLat = cell.MinLat + latStep
			cell.MaxLon = cell.MinLon + lonStep

			if !geospatial.PointInPolygon(cell.Center(), vs) {
				continue
			}
			cells = append(cells, domain.HealthCell{
				Row:            i,
				Col:            j,
				Bounds:         cell,
				Classification: Classify(i, j),
			})
		}
	}
	return cells
}

// Classify returns the synthetic health band of grid cell (i, j).
func Classify(i, j int) domain.HealthClass {
	noise := math.Sin(float64(i)*0.5) * math.Cos(float64(j)*0.5)
	switch {
	case noise < stressedBelow:
		return domain.Stressed
	case noise < warningBelow:
		return domain.Warning
	default:
		return domain.Healthy
	}
}

// Summary counts cells per band.
type Summary struct {
	Healthy  int `json:"healthy"`
	Warning  int `json:"warning"`
	Stressed int `json:"stressed"`
}

// Summarize tallies a raster.
func Summarize(cells []domain.HealthCell) Summary {
	var s Summary
	for _, c := range cells {
		switch c.Classification {
		case domain.Healthy:
			s.Healthy++
		case domain.Warning:
			s.Warning++
		case domain.Stressed:
			s.Stressed++
		}
	}
	return s
}
