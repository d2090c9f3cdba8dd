package tiler

import (
	"fmt"
	"os"
	"strings"
)

// Stop is one breakpoint of the value-to-color mapping applied to the
// rescaled byte raster.
type Stop struct {
	Value   uint8
	R, G, B uint8
	A       uint8
}

// ColorRamp is an ordered, non-decreasing sequence of stops from 0 to 255.
// Built once per job; never mutated after construction.
type ColorRamp struct {
	Stops []Stop
}

// NewColorRamp returns the night-light legend. The byte positions are fixed:
// the rescale stage already pins the 95th percentile at the top of the blue
// band, so the same table reads identically across jobs.
//
//	0        fully transparent black (no data / no light)
//	50-150   blue gradient, values up to the 95th percentile
//	170-200  cyan/green/yellow, the 95th-99th percentile band
//	220-255  red/pink/white, the top 1%
func NewColorRamp() *ColorRamp {
	return &ColorRamp{
		Stops: []Stop{
			{Value: 0, R: 0, G: 0, B: 0, A: 0},
			{Value: 50, R: 8, G: 16, B: 80, A: 255},
			{Value: 100, R: 16, G: 60, B: 150, A: 255},
			{Value: 150, R: 30, G: 110, B: 200, A: 255},
			{Value: 170, R: 0, G: 180, B: 170, A: 255},
			{Value: 185, R: 110, G: 220, B: 110, A: 255},
			{Value: 200, R: 255, G: 255, B: 80, A: 255},
			{Value: 220, R: 255, G: 80, B: 40, A: 255},
			{Value: 240, R: 255, G: 130, B: 190, A: 255},
			{Value: 255, R: 255, G: 255, B: 255, A: 255},
		},
	}
}

// Validate checks the ramp invariants: at least two stops, first at 0, last
// at 255, values non-decreasing.
func (r *ColorRamp) Validate() error {
	if len(r.Stops) < 2 {
		return fmt.Errorf("color ramp needs at least 2 stops, has %d", len(r.Stops))
	}
	if r.Stops[0].Value != 0 {
		return fmt.Errorf("first stop must be at 0, is at %d", r.Stops[0].Value)
	}
	if last := r.Stops[len(r.Stops)-1].Value; last != 255 {
		return fmt.Errorf("last stop must be at 255, is at %d", last)
	}
	for i := 1; i < len(r.Stops); i++ {
		if r.Stops[i].Value < r.Stops[i-1].Value {
			return fmt.Errorf("stop %d decreases: %d < %d", i, r.Stops[i].Value, r.Stops[i-1].Value)
		}
	}
	return nil
}

// Table renders the ramp in gdaldem color-relief format, one
// "value R G B A" line per stop.
func (r *ColorRamp) Table() string {
	var b strings.Builder
	for _, s := range r.Stops {
		fmt.Fprintf(&b, "%d %d %d %d %d\n", s.Value, s.R, s.G, s.B, s.A)
	}
	return b.String()
}

// WriteTable writes the ramp table to path. The file only needs to live for
// the duration of the colorize call.
func (r *ColorRamp) WriteTable(path string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(r.Table()), 0o644); err != nil {
		return &IOError{Op: "write color table", Path: path, Err: err}
	}
	return nil
}
