package orbit

import (
	"math"

	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
)

// BreakSet holds the sample offsets at which new orbits begin within a frame. The
// first sample of a frame always starts an orbit and is not included.
type BreakSet struct {
	// Breaks are the strictly increasing offsets of orbit starts.
	Breaks []int
	// TooClose is true if any candidate break was dropped for being closer than the
	// minimum orbit duration to the candidate before it.
	TooClose bool
}

// Segment is a half-open range [Lo, Hi) of sample offsets holding one orbit.
type Segment struct {
	Lo int
	Hi int
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int { return s.Hi - s.Lo }

// Count returns the number of orbits the BreakSet splits n samples into.
func (b BreakSet) Count(n int) int {
	if n == 0 {
		return 0
	}
	return len(b.Breaks) + 1
}

// Segments splits n samples into the orbit segments delimited by the BreakSet.
func (b BreakSet) Segments(n int) []Segment {
	if n == 0 {
		return nil
	}
	segments := make([]Segment, 0, len(b.Breaks)+1)
	lo := 0
	for _, br := range b.Breaks {
		segments = append(segments, Segment{Lo: lo, Hi: br})
		lo = br
	}
	return append(segments, Segment{Lo: lo, Hi: n})
}

// Detect finds the orbit breaks in the frame using the index column and strategy
// described by info. Detect is pure: the same frame and info always produce the same
// BreakSet. An empty frame has no breaks.
//
// Breaks come from the index values of the samples present. A gap in time only
// breaks an orbit when the index wrapped, passed its extremum, or advanced its
// counter across it. Candidate breaks closer than info.MinDuration to the
// candidate before them are coalesced into it.
func Detect(f telem.Frame, info Info) (BreakSet, error) {
	if err := info.Validate(); err != nil {
		return BreakSet{}, err
	}
	if f.Empty() {
		return BreakSet{}, nil
	}
	v, ok := f.Column(info.Index)
	if !ok {
		return BreakSet{}, errors.Wrapf(ErrConfiguration, "index column %q not found", info.Index)
	}
	var (
		candidates []int
		err        error
	)
	switch info.Kind {
	case LocalTime, Longitude:
		candidates = wrapCandidates(f.Index, v, info)
	case OrbitNumber:
		candidates, err = counterCandidates(f.Index, v)
	case Polar:
		candidates = polarCandidates(f.Index, v, info)
	}
	if err != nil {
		return BreakSet{}, err
	}
	return coalesce(f.Index, candidates, info.MinDuration), nil
}

// wrapCandidates finds the samples where a cyclic index wrapped around. Back to back
// samples must drop by more than half a cycle. Across a gap the index advances by
// dt/period of a cycle before wrapping, so the required drop shrinks with the gap
// until, past a full period, any drop is a wrap.
func wrapCandidates(ts []telem.TimeStamp, v []float64, info Info) []int {
	var (
		candidates []int
		half       = info.Kind.cycle() / 2
		period     = float64(info.Period)
	)
	for i := 1; i < len(v); i++ {
		advance := math.Min(float64(ts[i].Sub(ts[i-1]))/period, 1)
		if v[i]-v[i-1] < -half*(1-advance) {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

func counterCandidates(ts []telem.TimeStamp, v []float64) ([]int, error) {
	var candidates []int
	for i, x := range v {
		if x != math.Trunc(x) {
			return nil, errors.Wrapf(
				ErrConfiguration,
				"orbit counter value %v at %s is not an integer",
				x, ts[i],
			)
		}
		if i == 0 {
			continue
		}
		if x < v[i-1] {
			return nil, errors.Wrapf(
				ErrConfiguration,
				"orbit counter decreases from %v to %v at %s",
				v[i-1], x, ts[i],
			)
		}
		if x != v[i-1] {
			candidates = append(candidates, i)
		}
	}
	return candidates, nil
}

// polarCandidates finds the latitude minima: the sample closing a descending run
// that is followed by an ascending step. Flat steps extend the current run. The
// slope across a gap of at least one period says nothing about the minimum, so a
// run ends there without a candidate.
func polarCandidates(ts []telem.TimeStamp, v []float64, info Info) []int {
	var (
		candidates []int
		descending bool
		lowest     int
	)
	for i := 1; i < len(v); i++ {
		if ts[i].Sub(ts[i-1]) >= info.Period {
			descending = false
			continue
		}
		d := v[i] - v[i-1]
		switch {
		case d < 0:
			descending = true
			lowest = i
		case d > 0:
			if descending {
				candidates = append(candidates, lowest)
			}
			descending = false
		}
	}
	return candidates
}

// coalesce drops every candidate that lies closer than min to the candidate before
// it. The first sample of the frame counts as a candidate.
func coalesce(ts []telem.TimeStamp, candidates []int, min telem.TimeSpan) BreakSet {
	bs := BreakSet{Breaks: make([]int, 0, len(candidates))}
	prev := 0
	for _, c := range candidates {
		closeToPrev := ts[c].Sub(ts[prev]) < min
		prev = c
		if closeToPrev {
			bs.TooClose = true
			continue
		}
		bs.Breaks = append(bs.Breaks, c)
	}
	return bs
}
