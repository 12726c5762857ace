package survey

import (
	"fmt"
	"time"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
)

const (
	DefaultSensorCount = 8
	DefaultMaxAttempts = 100
)

// Rand is the random source consumed by the samplers. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// PlaceSensors draws up to maxAttempts uniform points in the polygon's bounding
// box and keeps those inside the polygon, stopping once target are kept.
//
// Thin or concave polygons can return fewer than target sensors. That is a
// normal outcome and callers must check len of the result.
func PlaceSensors(vs []domain.GeoPoint, target, maxAttempts int, rng Rand, now time.Time) []domain.SensorPoint {
	if len(vs) < 3 || target <= 0 || maxAttempts <= 0 {
		return nil
	}

	b := geospatial.BoundsOf(vs)
	sensors := make([]domain.SensorPoint, 0, target)
	for attempts := 0; len(sensors) < target && attempts < maxAttempts; attempts++ {
		p := domain.GeoPoint{
			Lat: b.MinLat + rng.Float64()*(b.MaxLat-b.MinLat),
			Lon: b.MinLon + rng.Float64()*(b.MaxLon-b.MinLon),
		}
		if !geospatial.PointInPolygon(p, vs) {
			continue
		}
		value := rng.Float64() * 100
		sensors = append(sensors, domain.SensorPoint{
			ID:         fmt.Sprintf("IOT-%d", len(sensors)+1),
			Location:   p,
			Type:       "moisture",
			Value:      value,
			Battery:    100,
			Status:     domain.SensorActive,
			Health:     SensorHealth(value),
			LastUpdate: now,
		})
	}
	return sensors
}

// SensorHealth bands a normalised sensor reading.
func SensorHealth(value float64) domain.HealthClass {
	switch {
	case value < 40:
		return domain.Stressed
	case value < 70:
		return domain.Warning
	default:
		return domain.Healthy
	}
}
