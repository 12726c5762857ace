package survey

import (
	"math"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

const (
	outlineVertices = 6
	outlineRadius   = 0.001 // degrees
	lonStretch      = 1.5
)

// SuggestOutline returns a jittered hexagon of roughly field size around
// center, a starting boundary the user can then adjust.
func SuggestOutline(center domain.GeoPoint, rng Rand) []domain.GeoPoint {
	pts := make([]domain.GeoPoint, 0, outlineVertices)
	for i := 0; i < outlineVertices; i++ {
		deg := 60*float64(i) - 10 + rng.Float64()*20
		rad := deg * math.Pi / 180
		dist := outlineRadius * (0.8 + rng.Float64()*0.4)
		pts = append(pts, domain.GeoPoint{
			Lat: center.Lat + dist*math.Cos(rad),
			Lon: center.Lon + dist*math.Sin(rad)*lonStretch,
		})
	}
	return pts
}
