// Package cache implements the day cache used to materialize orbits that cross
// midnight. It holds at most three calendar days around a focus day and reads days
// through a private read path that never changes the owner's loaded day.
package cache

import (
	"context"
	"sort"

	"github.com/arya-analytics/orbits/pkg/metrics"
	"github.com/arya-analytics/orbits/pkg/telem"
	"go.uber.org/zap"
)

// Reader reads the samples of a single calendar day. An empty frame signals a day
// with no data.
type Reader interface {
	Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error)
}

// Spanner is implemented by readers that know the range of time holding data.
// Days outside the span are known to be empty and are never read.
type Spanner interface {
	Span() telem.TimeRange
}

// Direction selects the neighbour of a day.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// Config configures a DayCache.
type Config struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (c Config) merge() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Stats counts the work done by a DayCache.
type Stats struct {
	// Reads is the number of days read through the Reader.
	Reads int
	// Skipped is the number of days marked empty without a read because they lie
	// outside the reader's span.
	Skipped int
	Hits    int
	Misses  int
}

// DayCache holds the previous, focus, and next calendar days.
type DayCache struct {
	reader   Reader
	cfg      Config
	focus    telem.TimeStamp
	focused  bool
	resident map[telem.TimeStamp]telem.Frame
	stats    Stats
}

// New creates an empty DayCache reading through r.
func New(r Reader, cfg Config) *DayCache {
	return &DayCache{reader: r, cfg: cfg.merge(), resident: make(map[telem.TimeStamp]telem.Frame, 3)}
}

// Ensure returns the samples of day and makes it the focus, evicting resident days
// that are no longer adjacent to it. Days with no data are cached as empty frames.
// Errors from the Reader are returned unmodified and leave the cache untouched.
func (c *DayCache) Ensure(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	day = day.Day()
	f, err := c.get(ctx, day)
	if err != nil {
		return f, err
	}
	c.refocus(day)
	c.resident[day] = f
	return f, nil
}

// Adjacent returns the samples of the neighbour of day in the given direction
// without moving the focus. The returned bool is false if the neighbour holds no
// data. A neighbour outside the resident window is read but not cached.
func (c *DayCache) Adjacent(
	ctx context.Context,
	day telem.TimeStamp,
	dir Direction,
) (telem.Frame, bool, error) {
	f, err := c.Peek(ctx, day.Day().AddDays(int(dir)))
	return f, !f.Empty(), err
}

// Peek returns the samples of any day without moving the focus. Only days within
// the resident window are cached.
func (c *DayCache) Peek(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	day = day.Day()
	f, err := c.get(ctx, day)
	if err != nil {
		return telem.Frame{}, err
	}
	if c.inWindow(day) {
		c.resident[day] = f
	}
	return f, nil
}

// Focus returns the focus day, if any.
func (c *DayCache) Focus() (telem.TimeStamp, bool) { return c.focus, c.focused }

// Resident returns the resident days in ascending order.
func (c *DayCache) Resident() []telem.TimeStamp {
	days := make([]telem.TimeStamp, 0, len(c.resident))
	for d := range c.resident {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Reset evicts every resident day and clears the focus.
func (c *DayCache) Reset() {
	c.resident = make(map[telem.TimeStamp]telem.Frame, 3)
	c.focused = false
	c.focus = 0
}

// Stats returns the work done by the cache since it was created.
func (c *DayCache) Stats() Stats { return c.stats }

func (c *DayCache) get(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	if f, ok := c.resident[day]; ok {
		c.stats.Hits++
		c.cfg.Metrics.ObserveLookup(true)
		return f, nil
	}
	c.stats.Misses++
	c.cfg.Metrics.ObserveLookup(false)
	if s, ok := c.reader.(Spanner); ok {
		if span := s.Span(); !span.IsZero() && !span.ContainsDay(day) {
			c.stats.Skipped++
			c.cfg.Metrics.ObserveDayRead(metrics.ReadSkipped)
			return telem.Frame{}, nil
		}
	}
	f, err := c.reader.Read(ctx, day)
	if err != nil {
		c.cfg.Metrics.ObserveDayRead(metrics.ReadError)
		return telem.Frame{}, err
	}
	c.stats.Reads++
	f = f.Between(telem.TimeRange{Start: day, End: day.AddDays(1)})
	if f.Empty() {
		c.cfg.Metrics.ObserveDayRead(metrics.ReadEmpty)
	} else {
		c.cfg.Metrics.ObserveDayRead(metrics.ReadData)
	}
	c.cfg.Logger.Debug("read day",
		zap.String("day", day.DateString()),
		zap.Int("samples", f.Len()),
	)
	return f, nil
}

func (c *DayCache) refocus(day telem.TimeStamp) {
	if c.focused && c.focus == day {
		return
	}
	c.focus, c.focused = day, true
	for d := range c.resident {
		if !c.inWindow(d) {
			delete(c.resident, d)
		}
	}
}

func (c *DayCache) inWindow(day telem.TimeStamp) bool {
	if !c.focused {
		return false
	}
	return day >= c.focus.AddDays(-1) && day <= c.focus.AddDays(1)
}
