package tiler

// Statistics holds raw band statistics plus the derived percentile
// thresholds. Computed once per job and immutable afterwards.
type Statistics struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64

	P95  float64
	P98  float64
	P99  float64
	P999 float64
}

// Fallback raw statistics for engines that cannot report them. An 8-bit
// range with a centered mean keeps the linear path well behaved.
var defaultRaw = RawStatistics{Min: 0, Max: 255, Mean: 128, StdDev: 50}

// DeriveStatistics computes percentile thresholds from raw band statistics.
//
// Sparse, heavy-tailed rasters (night lights and similar measurements: large
// max, near-zero mean) get a tail-aware heuristic so the display ceiling is
// not dominated by a handful of extreme pixels. Everything else interpolates
// linearly between min and max. Pure function, deterministic for any input.
func DeriveStatistics(raw *RawStatistics) Statistics {
	if raw == nil {
		raw = &defaultRaw
	}

	s := Statistics{
		Min:    raw.Min,
		Max:    raw.Max,
		Mean:   raw.Mean,
		StdDev: raw.StdDev,
	}

	if raw.Max > 100 && raw.Mean < 1 {
		s.P95 = minFloat(raw.Max*0.01, raw.Mean+3*raw.StdDev)
		s.P98 = minFloat(raw.Max*0.05, raw.Mean+4*raw.StdDev)
		s.P99 = minFloat(raw.Max*0.10, raw.Mean+5*raw.StdDev)
		s.P999 = minFloat(raw.Max*0.20, raw.Mean+6*raw.StdDev)
		return s
	}

	span := raw.Max - raw.Min
	s.P95 = raw.Min + span*0.95
	s.P98 = raw.Min + span*0.98
	s.P99 = raw.Min + span*0.99
	s.P999 = raw.Min + span*0.999
	return s
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
