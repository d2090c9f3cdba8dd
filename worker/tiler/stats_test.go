package tiler

import (
	"math"
	"testing"
)

func TestDeriveStatistics_HeavyTailed(t *testing.T) {
	// max > 100 and mean < 1 selects the tail-aware heuristic.
	raw := &RawStatistics{Min: 0, Max: 500, Mean: 0.5, StdDev: 2}

	s := DeriveStatistics(raw)

	// p95 = min(500*0.01, 0.5+3*2) = min(5, 6.5) = 5
	if s.P95 != 5 {
		t.Errorf("Expected p95 = 5, got %v", s.P95)
	}
	// p98 = min(25, 8.5) = 8.5
	if s.P98 != 8.5 {
		t.Errorf("Expected p98 = 8.5, got %v", s.P98)
	}
	// p99 = min(50, 10.5) = 10.5
	if s.P99 != 10.5 {
		t.Errorf("Expected p99 = 10.5, got %v", s.P99)
	}
	// p99.9 = min(100, 12.5) = 12.5
	if s.P999 != 12.5 {
		t.Errorf("Expected p99.9 = 12.5, got %v", s.P999)
	}
}

func TestDeriveStatistics_Linear(t *testing.T) {
	raw := &RawStatistics{Min: 0, Max: 200, Mean: 100, StdDev: 30}

	s := DeriveStatistics(raw)

	if s.P95 != 190 {
		t.Errorf("Expected p95 = 190, got %v", s.P95)
	}
	if s.P98 != 196 {
		t.Errorf("Expected p98 = 196, got %v", s.P98)
	}
	if s.P99 != 198 {
		t.Errorf("Expected p99 = 198, got %v", s.P99)
	}
	if math.Abs(s.P999-199.8) > 1e-9 {
		t.Errorf("Expected p99.9 = 199.8, got %v", s.P999)
	}
}

func TestDeriveStatistics_LinearWithOffsetMin(t *testing.T) {
	raw := &RawStatistics{Min: 100, Max: 200, Mean: 150, StdDev: 10}

	s := DeriveStatistics(raw)

	if s.P95 != 195 {
		t.Errorf("Expected p95 = 195, got %v", s.P95)
	}
}

func TestDeriveStatistics_Monotonic(t *testing.T) {
	cases := []*RawStatistics{
		{Min: 0, Max: 500, Mean: 0.5, StdDev: 2},
		{Min: 0, Max: 200, Mean: 100, StdDev: 30},
		{Min: 0, Max: 63000, Mean: 0.1, StdDev: 15},
		{Min: -10, Max: 10, Mean: 0, StdDev: 3},
		{Min: 0, Max: 101, Mean: 0.99, StdDev: 0},
	}

	for _, raw := range cases {
		s := DeriveStatistics(raw)
		if !(s.P95 <= s.P98 && s.P98 <= s.P99 && s.P99 <= s.P999) {
			t.Errorf("Percentiles not monotonic for %+v: %v %v %v %v",
				raw, s.P95, s.P98, s.P99, s.P999)
		}
	}
}

func TestDeriveStatistics_NilUsesDefaults(t *testing.T) {
	s := DeriveStatistics(nil)

	if s.Min != 0 || s.Max != 255 || s.Mean != 128 || s.StdDev != 50 {
		t.Errorf("Expected default raw statistics, got %+v", s)
	}
	// Defaults take the linear path: p95 = 0 + 255*0.95
	if math.Abs(s.P95-242.25) > 1e-9 {
		t.Errorf("Expected p95 = 242.25, got %v", s.P95)
	}
}

func TestDeriveStatistics_Deterministic(t *testing.T) {
	raw := &RawStatistics{Min: 0, Max: 500, Mean: 0.5, StdDev: 2}

	a := DeriveStatistics(raw)
	b := DeriveStatistics(raw)

	if a != b {
		t.Errorf("Same input produced different statistics: %+v vs %+v", a, b)
	}
}

func TestDeriveStatistics_BoundaryUsesLinear(t *testing.T) {
	// max exactly 100 and mean exactly 1 both fail the heuristic guard.
	for _, raw := range []*RawStatistics{
		{Min: 0, Max: 100, Mean: 0.5, StdDev: 2},
		{Min: 0, Max: 500, Mean: 1, StdDev: 2},
	} {
		s := DeriveStatistics(raw)
		expected := raw.Min + (raw.Max-raw.Min)*0.95
		if math.Abs(s.P95-expected) > 1e-9 {
			t.Errorf("Expected linear p95 = %v for %+v, got %v", expected, raw, s.P95)
		}
	}
}
