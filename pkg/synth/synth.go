// Package synth generates deterministic orbiting instrument data. Every orbit starts
// at Epoch plus a whole number of periods and carries four index quantities that
// cycle once per orbit.
package synth

import (
	"context"
	"math"

	"github.com/arya-analytics/orbits/pkg/telem"
)

// Column keys of the generated frames.
const (
	// MLT is a magnetic local time in [0, 24) that ramps linearly over each orbit.
	MLT = "mlt"
	// Longitude is a longitude in [0, 360) that ramps linearly over each orbit.
	Longitude = "longitude"
	// Latitude follows -80 cos(2π φ) with its minimum at each orbit start.
	Latitude = "latitude"
	// OrbitNum counts orbits from 1 at Epoch.
	OrbitNum = "orbit_num"
)

// Config configures a Generator.
type Config struct {
	// Epoch is the start of orbit 1.
	Epoch telem.TimeStamp
	// Span is the range of time holding data. Defaults to the seven days starting on
	// the day of Epoch.
	Span telem.TimeRange
	// Period is the duration of one orbit. Defaults to 97 minutes.
	Period telem.TimeSpan
	// Cadence is the spacing of samples, aligned to Epoch. Defaults to one minute.
	Cadence telem.TimeSpan
	// Gaps are ranges of time with no samples.
	Gaps []telem.TimeRange
}

const defaultSpanDays = 7

func (c Config) merge() Config {
	if c.Period == 0 {
		c.Period = 97 * telem.Minute
	}
	if c.Cadence == 0 {
		c.Cadence = telem.Minute
	}
	if c.Span.IsZero() {
		start := c.Epoch.Day()
		c.Span = telem.TimeRange{Start: start, End: start.AddDays(defaultSpanDays)}
	}
	return c
}

// Generator produces frames of synthetic orbit data. It implements the read path
// of a data source.
type Generator struct {
	cfg Config
}

// New opens a Generator, applying defaults to unset fields of cfg.
func New(cfg Config) *Generator { return &Generator{cfg: cfg.merge()} }

// OrbitStart returns the start of orbit n.
func (g *Generator) OrbitStart(n int) telem.TimeStamp {
	return g.cfg.Epoch.Add(telem.TimeSpan(n-1) * g.cfg.Period)
}

// Phase returns the orbit number at ts and the fraction in [0, 1) of that orbit
// elapsed.
func (g *Generator) Phase(ts telem.TimeStamp) (int, float64) {
	elapsed := int64(ts.Sub(g.cfg.Epoch))
	n := floorDiv(elapsed, int64(g.cfg.Period))
	rem := elapsed - n*int64(g.cfg.Period)
	return int(n) + 1, float64(rem) / float64(g.cfg.Period)
}

// Frame generates every sample within tr and the generator's span that is not
// inside a gap.
func (g *Generator) Frame(tr telem.TimeRange) telem.Frame {
	if tr.Start < g.cfg.Span.Start {
		tr.Start = g.cfg.Span.Start
	}
	if tr.End > g.cfg.Span.End {
		tr.End = g.cfg.Span.End
	}
	f := telem.Frame{Columns: map[string][]float64{
		MLT:       nil,
		Longitude: nil,
		Latitude:  nil,
		OrbitNum:  nil,
	}}
	cadence := int64(g.cfg.Cadence)
	k := -floorDiv(-int64(tr.Start.Sub(g.cfg.Epoch)), cadence)
	for ts := g.cfg.Epoch.Add(telem.TimeSpan(k * cadence)); ts < tr.End; ts = ts.Add(g.cfg.Cadence) {
		if g.inGap(ts) {
			continue
		}
		n, phase := g.Phase(ts)
		f.Index = append(f.Index, ts)
		f.Columns[MLT] = append(f.Columns[MLT], 24*phase)
		f.Columns[Longitude] = append(f.Columns[Longitude], 360*phase)
		f.Columns[Latitude] = append(f.Columns[Latitude], -80*math.Cos(2*math.Pi*phase))
		f.Columns[OrbitNum] = append(f.Columns[OrbitNum], float64(n))
	}
	return f
}

// Read generates the samples of the calendar day starting at day.
func (g *Generator) Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	if err := ctx.Err(); err != nil {
		return telem.Frame{}, err
	}
	return g.Frame(telem.TimeRange{Start: day, End: day.AddDays(1)}), nil
}

// Period returns the duration of one orbit.
func (g *Generator) Period() telem.TimeSpan { return g.cfg.Period }

// Span returns the range of time holding data.
func (g *Generator) Span() telem.TimeRange { return g.cfg.Span }

func (g *Generator) inGap(ts telem.TimeStamp) bool {
	for _, gap := range g.cfg.Gaps {
		if gap.Contains(ts) {
			return true
		}
	}
	return false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
