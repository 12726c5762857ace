package units_test

import (
	"testing"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/pkg/units"
)

func TestFormatArea(t *testing.T) {
	tests := []struct {
		m2   float64
		sys  domain.UnitSystem
		want string
	}{
		{10000, domain.Metric, "1.00 Ha"},
		{10000, domain.Imperial, "2.47 Acres"},
		{0, domain.Metric, "0.00 Ha"},
		{123456, domain.Metric, "12.35 Ha"},
	}
	for _, tt := range tests {
		if got := units.FormatArea(tt.m2, tt.sys); got != tt.want {
			t.Errorf("FormatArea(%v, %s) = %q, want %q", tt.m2, tt.sys, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		m    float64
		sys  domain.UnitSystem
		want string
	}{
		{1500, domain.Metric, "1.50 km"},
		{500, domain.Metric, "500 m"},
		{999, domain.Metric, "999 m"},
		{1000, domain.Metric, "1.00 km"},
		{100, domain.Imperial, "328 ft"},
		{1609.344, domain.Imperial, "1.00 mi"},
	}
	for _, tt := range tests {
		if got := units.FormatDistance(tt.m, tt.sys); got != tt.want {
			t.Errorf("FormatDistance(%v, %s) = %q, want %q", tt.m, tt.sys, got, tt.want)
		}
	}
}

func TestParseSystem(t *testing.T) {
	if units.ParseSystem("Imperial") != domain.Imperial {
		t.Error("expected imperial")
	}
	for _, s := range []string{"", "metric", "furlongs"} {
		if units.ParseSystem(s) != domain.Metric {
			t.Errorf("ParseSystem(%q) should default to metric", s)
		}
	}
}
