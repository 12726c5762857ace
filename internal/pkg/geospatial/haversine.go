package geospatial

import (
	"math"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two GeoPoints.
func Distance(a, b domain.GeoPoint) float64 {
	if a == b {
		return 0
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Perimeter sums the edge lengths of the closed ring through vs.
func Perimeter(vs []domain.GeoPoint) float64 {
	if len(vs) < 2 {
		return 0
	}
	var p float64
	for i := range vs {
		p += Distance(vs[i], vs[(i+1)%len(vs)])
	}
	return p
}

// PathLength sums the edge lengths of the open path through vs.
// Unlike Perimeter it never adds the closing edge.
func PathLength(vs []domain.GeoPoint) float64 {
	var d float64
	for i := 1; i < len(vs); i++ {
		d += Distance(vs[i-1], vs[i])
	}
	return d
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
