package iterator

import (
	"context"

	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/cache"
	"github.com/arya-analytics/orbits/pkg/telem"
	"go.uber.org/zap"
)

// dayOrbits holds the orbits of a calendar day as segments of the window they were
// detected in.
type dayOrbits struct {
	day      telem.TimeStamp
	found    bool
	window   telem.Frame
	segments []orbit.Segment
}

func (d dayOrbits) start(j int) telem.TimeStamp { return d.window.Index[d.segments[j].Lo] }

func (d dayOrbits) slice(j int) telem.Frame {
	s := d.segments[j]
	return d.window.Slice(s.Lo, s.Hi)
}

// pick returns the first orbit starting after the pivot (forwards) or the last
// orbit starting before it (backwards). A nil pivot matches any orbit.
func (d dayOrbits) pick(dir cache.Direction, pivot *telem.TimeStamp) (int, bool) {
	if dir == cache.Forward {
		for j := range d.segments {
			if pivot == nil || d.start(j) > *pivot {
				return j, true
			}
		}
		return 0, false
	}
	for j := len(d.segments) - 1; j >= 0; j-- {
		if pivot == nil || d.start(j) < *pivot {
			return j, true
		}
	}
	return 0, false
}

// target is an orbit about to be selected.
type target struct {
	orbits dayOrbits
	j      int
}

// orbitsOf finds the orbits of day. Breaks only depend on the samples near them,
// so day's data is widened a day at a time: backwards until a break at least one
// minimum duration into the window comes at or before day's first sample, and
// forwards until a break comes after its last sample. Days with no data are
// skipped. Each direction stops at the edge of the span or after MaxScanDays days.
func (it *Iterator) orbitsOf(ctx context.Context, day telem.TimeStamp) (dayOrbits, error) {
	if it.orbits.found && it.orbits.day == day {
		return it.orbits, nil
	}
	o := dayOrbits{day: day, found: true}
	f, err := it.cache.Ensure(ctx, day)
	if err != nil || f.Empty() {
		return o, err
	}
	var (
		before, after []telem.Frame
		back          = extent{day: day, budget: it.cfg.MaxScanDays}
		ahead         = extent{day: day, budget: it.cfg.MaxScanDays}
		bs            orbit.BreakSet
	)
	for {
		parts := make([]telem.Frame, 0, len(before)+len(after)+1)
		for i := len(before) - 1; i >= 0; i-- {
			parts = append(parts, before[i])
		}
		parts = append(parts, f)
		o.window = telem.Concat(append(parts, after...)...)
		if bs, err = orbit.Detect(o.window, it.cfg.Info); err != nil {
			return o, err
		}
		first := o.window.Len() - f.Len()
		for _, a := range after {
			first -= a.Len()
		}
		last := first + f.Len() - 1
		if !back.done && !anchored(o.window, bs, first, it.cfg.Info.MinDuration) {
			next, err := it.widen(ctx, &back, cache.Backward)
			if err != nil {
				return o, err
			}
			if !next.Empty() {
				before = append(before, next)
			}
			continue
		}
		if !ahead.done && !closed(bs, last) {
			next, err := it.widen(ctx, &ahead, cache.Forward)
			if err != nil {
				return o, err
			}
			if !next.Empty() {
				after = append(after, next)
			}
			continue
		}
		break
	}
	if bs.TooClose {
		it.cfg.Logger.Debug("coalesced orbit breaks closer than the minimum duration",
			zap.String("day", day.DateString()),
			zap.Stringer("min_duration", it.cfg.Info.MinDuration),
		)
	}
	for _, s := range bs.Segments(o.window.Len()) {
		if o.window.Index[s.Hi-1].Day() == day {
			o.segments = append(o.segments, s)
		}
	}
	return o, nil
}

// extent tracks how far a window has been widened in one direction.
type extent struct {
	day    telem.TimeStamp
	budget int
	done   bool
}

// widen returns the next day holding data past e in dir. It returns an empty frame
// and marks e done once the span or the budget runs out.
func (it *Iterator) widen(ctx context.Context, e *extent, dir cache.Direction) (telem.Frame, error) {
	span := it.span()
	for e.budget > 0 {
		e.day = e.day.AddDays(int(dir))
		e.budget--
		if !span.IsZero() && !span.ContainsDay(e.day) {
			break
		}
		f, err := it.cache.Peek(ctx, e.day)
		if err != nil || !f.Empty() {
			return f, err
		}
	}
	e.done = true
	return telem.Frame{}, nil
}

// anchored returns true if a break at least min into the window comes at or before
// offset i. Data before the window can't move such a break or any after it.
func anchored(window telem.Frame, bs orbit.BreakSet, i int, min telem.TimeSpan) bool {
	for _, b := range bs.Breaks {
		if b > i {
			return false
		}
		if window.Index[b].Sub(window.First()) >= min {
			return true
		}
	}
	return false
}

// closed returns true if a break comes after offset i.
func closed(bs orbit.BreakSet, i int) bool {
	return len(bs.Breaks) > 0 && bs.Breaks[len(bs.Breaks)-1] > i
}
