package geospatial

import (
	"math"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// Area uses the WGS 84 equatorial radius; Haversine uses the mean radius.
// Stored areas were computed with this value and must not change.
const equatorialRadiusM = 6378137.0

// PolygonArea returns the unsigned area in square meters of the ring through vs.
//
// It is the planar shoelace sum with a spherical correction term, accurate for
// field-sized polygons. Error grows for very large or near-polar rings.
func PolygonArea(vs []domain.GeoPoint) float64 {
	if len(vs) < 3 {
		return 0
	}
	var sum float64
	for i := range vs {
		p1, p2 := vs[i], vs[(i+1)%len(vs)]
		sum += (toRad(p2.Lon) - toRad(p1.Lon)) *
			(2 + math.Sin(toRad(p1.Lat)) + math.Sin(toRad(p2.Lat)))
	}
	return math.Abs(sum * equatorialRadiusM * equatorialRadiusM / 2)
}

// PointInPolygon runs an even-odd ray cast with latitude as x and longitude as y.
// Points exactly on an edge or vertex may land on either side, but the answer
// is stable for a given input.
func PointInPolygon(p domain.GeoPoint, vs []domain.GeoPoint) bool {
	if len(vs) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		xi, yi := vs[i].Lat, vs[i].Lon
		xj, yj := vs[j].Lat, vs[j].Lon
		if (yi > p.Lon) != (yj > p.Lon) &&
			p.Lat < (xj-xi)*(p.Lon-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// BoundsOf returns the bounding box of vs. The zero Bounds is returned for no points.
func BoundsOf(vs []domain.GeoPoint) domain.Bounds {
	if len(vs) == 0 {
		return domain.Bounds{}
	}
	b := domain.Bounds{MinLat: vs[0].Lat, MaxLat: vs[0].Lat, MinLon: vs[0].Lon, MaxLon: vs[0].Lon}
	for _, v := range vs[1:] {
		b.MinLat = math.Min(b.MinLat, v.Lat)
		b.MaxLat = math.Max(b.MaxLat, v.Lat)
		b.MinLon = math.Min(b.MinLon, v.Lon)
		b.MaxLon = math.Max(b.MaxLon, v.Lon)
	}
	return b
}

// Centroid returns the vertex average of vs.
func Centroid(vs []domain.GeoPoint) domain.GeoPoint {
	if len(vs) == 0 {
		return domain.GeoPoint{}
	}
	var c domain.GeoPoint
	for _, v := range vs {
		c.Lat += v.Lat
		c.Lon += v.Lon
	}
	n := float64(len(vs))
	return domain.GeoPoint{Lat: c.Lat / n, Lon: c.Lon / n}
}
