package geospatial

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// ErrNoPolygon is returned by PolygonsFromGeoJSON when a feature has no usable polygon.
var ErrNoPolygon = errors.New("feature has no polygon geometry")

// Ring converts vertices to a closed orb.Ring in lon/lat order.
func Ring(vs []domain.GeoPoint) orb.Ring {
	r := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		r = append(r, orb.Point{v.Lon, v.Lat})
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// FromRing converts an orb.Ring back to vertices, dropping the closing point.
func FromRing(r orb.Ring) []domain.GeoPoint {
	if r.Closed() && len(r) > 1 {
		r = r[:len(r)-1]
	}
	vs := make([]domain.GeoPoint, len(r))
	for i, p := range r {
		vs[i] = domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
	}
	return vs
}

// FieldFeature renders a saved field as a GeoJSON polygon feature.
func FieldFeature(f *domain.SavedField) *geojson.Feature {
	feat := geojson.NewFeature(orb.Polygon{Ring(f.Vertices)})
	feat.ID = f.ID
	feat.Properties["kind"] = "field"
	feat.Properties["name"] = f.Name
	feat.Properties["area_m2"] = f.AreaM2
	feat.Properties["perimeter_m"] = f.PerimeterM
	feat.Properties["created_at"] = f.CreatedAt
	return feat
}

// CellFeature renders a raster cell as a rectangle feature.
func CellFeature(c domain.HealthCell) *geojson.Feature {
	feat := geojson.NewFeature(orb.Polygon{Ring(c.Bounds.Ring())})
	feat.Properties["kind"] = "health_cell"
	feat.Properties["row"] = c.Row
	feat.Properties["col"] = c.Col
	feat.Properties["classification"] = string(c.Classification)
	return feat
}

// SensorFeature renders a sensor as a point feature.
func SensorFeature(s domain.SensorPoint) *geojson.Feature {
	feat := geojson.NewFeature(orb.Point{s.Location.Lon, s.Location.Lat})
	feat.ID = s.ID
	feat.Properties["kind"] = "sensor"
	feat.Properties["type"] = s.Type
	feat.Properties["value"] = s.Value
	feat.Properties["battery"] = s.Battery
	feat.Properties["status"] = string(s.Status)
	feat.Properties["health"] = string(s.Health)
	return feat
}

// FieldCollection bundles a field with optional overlays.
func FieldCollection(f *domain.SavedField, cells []domain.HealthCell, sensors []domain.SensorPoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(FieldFeature(f))
	for _, c := range cells {
		fc.Append(CellFeature(c))
	}
	for _, s := range sensors {
		fc.Append(SensorFeature(s))
	}
	return fc
}

// NamedPolygon is one boundary read from a GeoJSON document.
type NamedPolygon struct {
	Name     string
	Vertices []domain.GeoPoint
}

// PolygonsFromGeoJSON reads every polygon outer ring in a FeatureCollection.
// MultiPolygons yield one entry per member, suffixed "#n" after the first.
// nameProp selects the property used as the name; unnamed features get fallback-<index>.
func PolygonsFromGeoJSON(data []byte, nameProp, fallback string) ([]NamedPolygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	var out []NamedPolygon
	for i, feat := range fc.Features {
		name := feat.Properties.MustString(nameProp, "")
		if name == "" {
			name = fmt.Sprintf("%s-%d", fallback, i+1)
		}

		var polys []orb.Polygon
		switch g := feat.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			return nil, fmt.Errorf("feature %d (%s): %w", i, name, ErrNoPolygon)
		}

		for j, p := range polys {
			if len(p) == 0 {
				continue
			}
			n := name
			if j > 0 {
				n = fmt.Sprintf("%s#%d", name, j+1)
			}
			out = append(out, NamedPolygon{Name: n, Vertices: FromRing(p[0])})
		}
	}
	return out, nil
}
