package units

import (
	"fmt"
	"strings"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

const (
	sqMetersPerHectare = 10000.0
	acresPerSqMeter    = 0.000247105
	feetPerMeter       = 3.28084
	feetPerMile        = 5280.0
)

// ParseSystem maps a user preference to a unit system. Anything unknown is metric.
func ParseSystem(s string) domain.UnitSystem {
	if strings.EqualFold(strings.TrimSpace(s), string(domain.Imperial)) {
		return domain.Imperial
	}
	return domain.Metric
}

// FormatArea renders square meters as hectares or acres.
func FormatArea(m2 float64, sys domain.UnitSystem) string {
	if sys == domain.Imperial {
		return fmt.Sprintf("%.2f Acres", m2*acresPerSqMeter)
	}
	return fmt.Sprintf("%.2f Ha", m2/sqMetersPerHectare)
}

// FormatDistance renders meters as m/km or ft/mi.
func FormatDistance(m float64, sys domain.UnitSystem) string {
	if sys == domain.Imperial {
		feet := m * feetPerMeter
		if feet < feetPerMile {
			return fmt.Sprintf("%.0f ft", feet)
		}
		return fmt.Sprintf("%.2f mi", feet/feetPerMile)
	}
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.2f km", m/1000)
}
