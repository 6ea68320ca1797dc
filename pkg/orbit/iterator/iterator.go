// Package iterator navigates the orbits of a data owner's calendar days. An
// Iterator selects one orbit at a time, installs it into the owner's buffer, and
// moves forwards or backwards across midnight, gaps, and empty days.
//
// The orbits of a day D are found in the window formed by D and, when D's data
// comes within one period of midnight, its neighbouring days. Every window segment
// whose last sample falls on D is an orbit of D, so an orbit crossing midnight
// belongs to the later day. Orbits are identified by their first sample.
package iterator

import (
	"context"

	"github.com/arya-analytics/orbits/pkg/metrics"
	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/cache"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Owner is the data owner an Iterator navigates. The Iterator never takes
// ownership of it.
type Owner interface {
	// Read returns the samples of a calendar day without changing the loaded day or
	// the buffer. An empty frame signals a day without data.
	Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error)
	// Load loads a calendar day into the buffer.
	Load(ctx context.Context, day telem.TimeStamp) error
	// Date returns the loaded day, and false if nothing is loaded.
	Date() (telem.TimeStamp, bool)
	// Buffer returns the samples held by the owner.
	Buffer() telem.Frame
	// SetBuffer replaces the samples held by the owner.
	SetBuffer(f telem.Frame)
}

// Spanner is implemented by owners that know the range of time holding data.
// Navigation never moves past it.
type Spanner interface {
	Span() telem.TimeRange
}

// Bounder is implemented by owners with an outer iteration window.
type Bounder interface {
	Bounds() telem.Bounds
}

// DefaultMaxScanDays is the default number of days examined when rolling over to
// another day.
const DefaultMaxScanDays = 90

// Config configures an Iterator.
type Config struct {
	// Info describes how orbits are found. Unset fields take their defaults.
	Info orbit.Info
	// MaxScanDays is the maximum number of days examined past the current day when
	// looking for the next or previous orbit.
	MaxScanDays int
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

func (c Config) merge() Config {
	c.Info = c.Info.WithDefaults()
	if c.MaxScanDays == 0 {
		c.MaxScanDays = DefaultMaxScanDays
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate returns an orbit.ErrConfiguration if the Config can't be used.
func (c Config) Validate() error {
	if err := c.Info.Validate(); err != nil {
		return err
	}
	if c.MaxScanDays < 0 {
		return errors.Wrapf(orbit.ErrConfiguration, "max scan days %d must be positive", c.MaxScanDays)
	}
	return nil
}

// Orbit describes the orbit selected by an Iterator.
type Orbit struct {
	// Day is the calendar day the orbit belongs to.
	Day telem.TimeStamp
	// Number is the 1-based position of the orbit within its day.
	Number int
	// Total is the number of orbits of Day.
	Total int
	// Data holds the samples of the orbit.
	Data telem.Frame
}

// Range returns the time range occupied by the orbit.
func (o Orbit) Range() telem.TimeRange { return o.Data.Range() }

type state struct {
	// current is the 1-based number of the selected orbit, or 0 if none is.
	current int
	total   int
	day     telem.TimeStamp
}

// Iterator is the orbit navigator. It is not safe for concurrent use, and assumes
// exclusive use of its owner's buffer for the duration of every call.
type Iterator struct {
	owner    Owner
	cfg      Config
	cache    *cache.DayCache
	state    state
	orbits   dayOrbits
	selected telem.Frame
}

// New opens an unpositioned Iterator over the owner.
func New(owner Owner, cfg Config) (*Iterator, error) {
	cfg = cfg.merge()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	it := &Iterator{owner: owner, cfg: cfg}
	it.cache = cache.New(owner, cache.Config{
		Logger:  cfg.Logger.Named("cache"),
		Metrics: cfg.Metrics,
	})
	return it, nil
}

// Info returns the orbit configuration of the iterator.
func (it *Iterator) Info() orbit.Info { return it.cfg.Info }

// Current returns the number of the selected orbit within its day, or 0 if no orbit
// is selected.
func (it *Iterator) Current() int {
	it.sync()
	return it.state.current
}

// Total returns the number of orbits of the selected orbit's day, or 0 if no orbit
// is selected.
func (it *Iterator) Total() int {
	it.sync()
	return it.state.total
}

// Day returns the day of the selected orbit. The returned bool is false if no orbit
// is selected.
func (it *Iterator) Day() (telem.TimeStamp, bool) {
	it.sync()
	return it.state.day, it.state.current != 0
}

// Selected returns the selected orbit. The returned bool is false if no orbit is
// selected.
func (it *Iterator) Selected() (Orbit, bool) {
	it.sync()
	if it.state.current == 0 {
		return Orbit{}, false
	}
	return Orbit{
		Day:    it.state.day,
		Number: it.state.current,
		Total:  it.state.total,
		Data:   it.selected,
	}, true
}

// Next selects the orbit after the selected one, rolling over to later days as
// needed. If no orbit is selected, Next selects the first orbit of the owner's
// loaded day, or of the first day of the owner's span if nothing is loaded. Empty
// days are skipped up to the scan budget, after which Next returns
// orbit.ErrNoData. A failed Next leaves the iterator and the owner untouched.
func (it *Iterator) Next(ctx context.Context) error {
	err := it.next(ctx)
	it.cfg.Metrics.ObserveNavigation("next", outcome(err))
	return err
}

// Prev selects the orbit before the selected one. It mirrors Next.
func (it *Iterator) Prev(ctx context.Context) error {
	err := it.prev(ctx)
	it.cfg.Metrics.ObserveNavigation("prev", outcome(err))
	return err
}

// Seek selects the orbit at index i of the owner's loaded day. A negative index
// counts back from the last orbit. An index equal to the number of orbits selects
// the orbit after the last one, exactly as Next would. Any other index outside the
// day's orbits returns orbit.ErrIndexRange. Seeking the first orbit of a loaded day
// holding no samples selects nothing and leaves the iterator unpositioned.
func (it *Iterator) Seek(ctx context.Context, i int) error {
	err := it.seek(ctx, i)
	it.cfg.Metrics.ObserveNavigation("seek", outcome(err))
	return err
}

// Walk selects, in order, every orbit of the owner's iteration bounds, calling f
// after each one is installed. Walk starts from the first day of the bounds and
// stops at the first orbit starting after them, at the end of the data, or at the
// first error returned by f.
func (it *Iterator) Walk(ctx context.Context, f func(o Orbit) error) error {
	err := it.walk(ctx, f)
	it.cfg.Metrics.ObserveNavigation("walk", outcome(err))
	return err
}

func (it *Iterator) next(ctx context.Context) error {
	if err := it.checkBounds(); err != nil {
		return err
	}
	it.sync()
	t, err := it.following(ctx)
	if err != nil {
		return err
	}
	return it.install(ctx, t, cache.Forward)
}

func (it *Iterator) prev(ctx context.Context) error {
	if err := it.checkBounds(); err != nil {
		return err
	}
	it.sync()
	t, err := it.preceding(ctx)
	if err != nil {
		return err
	}
	return it.install(ctx, t, cache.Backward)
}

func (it *Iterator) seek(ctx context.Context, i int) error {
	it.sync()
	day, ok := it.owner.Date()
	if !ok {
		return errors.Wrap(orbit.ErrNoData, "[iterator] - no day loaded")
	}
	o, err := it.orbitsOf(ctx, day.Day())
	if err != nil {
		return err
	}
	total := len(o.segments)
	if i == 0 && o.window.Empty() {
		return nil
	}
	if i == total {
		var pivot *telem.TimeStamp
		if total > 0 {
			start := o.start(total - 1)
			pivot = &start
		}
		t, err := it.scan(ctx, o.day.AddDays(1), cache.Forward, pivot, it.cfg.MaxScanDays)
		if err != nil {
			return err
		}
		return it.install(ctx, t, cache.Forward)
	}
	j := i
	if j < 0 {
		j += total
	}
	if j < 0 || j >= total {
		return errors.Wrapf(
			orbit.ErrIndexRange,
			"orbit index %d on %s with %d orbits",
			i, o.day.DateString(), total,
		)
	}
	return it.install(ctx, target{orbits: o, j: j}, 0)
}

func (it *Iterator) walk(ctx context.Context, f func(o Orbit) error) error {
	b, ok := it.owner.(Bounder)
	if !ok || b.Bounds().Range.IsZero() {
		return errors.Wrap(orbit.ErrConfiguration, "[iterator] - owner has no iteration bounds")
	}
	if err := it.checkBounds(); err != nil {
		return err
	}
	bounds := b.Bounds().Range
	it.reset()
	t, err := it.scan(ctx, bounds.FirstDay(), cache.Forward, nil, it.cfg.MaxScanDays+1)
	for {
		if errors.Is(err, orbit.ErrNoData) {
			return nil
		}
		if err != nil {
			return err
		}
		if t.orbits.start(t.j) >= bounds.End {
			return nil
		}
		if err = it.install(ctx, t, cache.Forward); err != nil {
			return err
		}
		o, _ := it.Selected()
		if err = f(o); err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		t, err = it.following(ctx)
	}
}

// following finds the orbit after the selected one.
func (it *Iterator) following(ctx context.Context) (target, error) {
	if it.state.current == 0 {
		day, err := it.startDay(cache.Forward)
		if err != nil {
			return target{}, err
		}
		return it.scan(ctx, day, cache.Forward, nil, it.cfg.MaxScanDays+1)
	}
	if it.state.current < it.state.total {
		return target{orbits: it.orbits, j: it.state.current}, nil
	}
	start := it.orbits.start(it.state.current - 1)
	return it.scan(ctx, it.state.day.AddDays(1), cache.Forward, &start, it.cfg.MaxScanDays)
}

// preceding finds the orbit before the selected one.
func (it *Iterator) preceding(ctx context.Context) (target, error) {
	if it.state.current == 0 {
		day, err := it.startDay(cache.Backward)
		if err != nil {
			return target{}, err
		}
		return it.scan(ctx, day, cache.Backward, nil, it.cfg.MaxScanDays+1)
	}
	if it.state.current > 1 {
		return target{orbits: it.orbits, j: it.state.current - 2}, nil
	}
	start := it.orbits.start(0)
	return it.scan(ctx, it.state.day.AddDays(-1), cache.Backward, &start, it.cfg.MaxScanDays)
}

// scan examines up to limit days starting at from, moving in dir, for the first
// orbit starting after (forwards) or before (backwards) the pivot.
func (it *Iterator) scan(
	ctx context.Context,
	from telem.TimeStamp,
	dir cache.Direction,
	pivot *telem.TimeStamp,
	limit int,
) (target, error) {
	span := it.span()
	for n := 0; n < limit; n++ {
		day := from.AddDays(n * int(dir))
		if !span.IsZero() && !span.ContainsDay(day) {
			return target{}, errors.Wrapf(
				orbit.ErrNoData,
				"[iterator] - %s lies outside of the data span %s",
				day.DateString(), span,
			)
		}
		o, err := it.orbitsOf(ctx, day)
		if err != nil {
			return target{}, err
		}
		if j, ok := o.pick(dir, pivot); ok {
			it.cfg.Metrics.ObserveScan(n + 1)
			if n > 0 {
				it.cfg.Logger.Debug("skipped days without orbits",
					zap.String("from", from.DateString()),
					zap.String("to", day.DateString()),
					zap.Int("days", n),
				)
			}
			return target{orbits: o, j: j}, nil
		}
		if err := ctx.Err(); err != nil {
			return target{}, err
		}
	}
	return target{}, errors.Wrapf(
		orbit.ErrNoData,
		"[iterator] - no orbits within %d days of %s",
		limit, from.DateString(),
	)
}

// install selects the target orbit, loading its day into the owner if necessary.
// The owner is only touched once every check has passed.
func (it *Iterator) install(ctx context.Context, t target, dir cache.Direction) error {
	slice := t.orbits.slice(t.j)
	if it.state.current != 0 {
		if dir == cache.Forward && slice.First() <= it.selected.Last() {
			return errors.Wrapf(
				orbit.ErrOverlap,
				"[iterator] - orbit starting at %s does not follow the orbit ending at %s",
				slice.First(), it.selected.Last(),
			)
		}
		if dir == cache.Backward && slice.Last() >= it.selected.First() {
			return errors.Wrapf(
				orbit.ErrOverlap,
				"[iterator] - orbit ending at %s does not precede the orbit starting at %s",
				slice.Last(), it.selected.First(),
			)
		}
	}
	if day, ok := it.owner.Date(); !ok || day != t.orbits.day {
		if err := it.owner.Load(ctx, t.orbits.day); err != nil {
			return err
		}
		it.cfg.Logger.Debug("rolled over",
			zap.String("day", t.orbits.day.DateString()),
			zap.Int("orbits", len(t.orbits.segments)),
		)
	}
	sel := slice.Copy()
	it.owner.SetBuffer(sel)
	it.selected = sel
	it.orbits = t.orbits
	it.state = state{current: t.j + 1, total: len(t.orbits.segments), day: t.orbits.day}
	return nil
}

// sync resets the iterator if the owner's loaded day or buffer changed outside of
// the iterator.
func (it *Iterator) sync() {
	if it.state.current == 0 {
		return
	}
	day, ok := it.owner.Date()
	if ok && day == it.state.day && sameSamples(it.owner.Buffer(), it.selected) {
		return
	}
	it.cfg.Logger.Debug("owner changed outside of iteration, resetting")
	it.reset()
}

func (it *Iterator) reset() {
	it.state = state{}
	it.orbits = dayOrbits{}
	it.selected = telem.Frame{}
}

func (it *Iterator) checkBounds() error {
	b, ok := it.owner.(Bounder)
	if !ok {
		return nil
	}
	if bounds := b.Bounds(); bounds.Overlaps() {
		return errors.Wrapf(
			orbit.ErrOverlap,
			"[iterator] - iteration width %s exceeds its step %s",
			bounds.Width, bounds.Step,
		)
	}
	return nil
}

func (it *Iterator) startDay(dir cache.Direction) (telem.TimeStamp, error) {
	if day, ok := it.owner.Date(); ok {
		return day.Day(), nil
	}
	span := it.span()
	if span.IsZero() {
		return 0, errors.Wrap(orbit.ErrNoData, "[iterator] - no day loaded and no data span")
	}
	if dir == cache.Forward {
		return span.FirstDay(), nil
	}
	return span.LastDay(), nil
}

func (it *Iterator) span() telem.TimeRange {
	if s, ok := it.owner.(Spanner); ok {
		return s.Span()
	}
	return telem.TimeRange{}
}

func sameSamples(a, b telem.Frame) bool {
	if a.Len() != b.Len() {
		return false
	}
	return a.Empty() || (a.First() == b.First() && a.Last() == b.Last())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, orbit.ErrNoData):
		return "no_data"
	case errors.Is(err, orbit.ErrOverlap):
		return "overlap"
	case errors.Is(err, orbit.ErrIndexRange):
		return "index_range"
	case errors.Is(err, orbit.ErrConfiguration):
		return "configuration"
	}
	return "error"
}
