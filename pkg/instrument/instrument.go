// Package instrument implements the owner of a loaded day of samples. An Instrument
// reads calendar days from a Source, applies its filters, and holds the result in a
// buffer that orbit iteration replaces with the selected orbit.
package instrument

import (
	"context"

	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrEndOfBounds is returned when day stepping moves past the iteration bounds.
var ErrEndOfBounds = errors.New("[instrument] - end of iteration bounds")

// Source reads the samples of a calendar day. A Source may also implement
// Span() telem.TimeRange to report the range of time holding data.
type Source interface {
	Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error)
}

type spanner interface {
	Span() telem.TimeRange
}

// Config configures an Instrument.
type Config struct {
	// Source is the data source read by the instrument. Required.
	Source Source
	// Filters are applied in order to every day read from Source.
	Filters []Filter
	// Bounds is the outer iteration window. Its range defaults to the span of the
	// Source, and its step and width default to one day.
	Bounds telem.Bounds
	// Logger is the logger used by the instrument.
	Logger *zap.Logger
}

func (c Config) merge() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Bounds.Range.IsZero() {
		if s, ok := c.Source.(spanner); ok {
			c.Bounds.Range = s.Span()
		}
	}
	if c.Bounds.Step == 0 {
		c.Bounds.Step = telem.Day
	}
	if c.Bounds.Width == 0 {
		c.Bounds.Width = telem.Day
	}
	return c
}

func (c Config) validate() error {
	if c.Source == nil {
		return errors.New("[instrument] - source must be set")
	}
	return validateBounds(c.Bounds)
}

func validateBounds(b telem.Bounds) error {
	if b.Step <= 0 || b.Step%telem.Day != 0 {
		return errors.Newf("[instrument] - step %s must be a positive number of days", b.Step)
	}
	if b.Width <= 0 || b.Width%telem.Day != 0 {
		return errors.Newf("[instrument] - width %s must be a positive number of days", b.Width)
	}
	return nil
}

// Instrument owns a buffer holding the samples of its loaded day.
type Instrument struct {
	cfg    Config
	date   telem.TimeStamp
	loaded bool
	buffer telem.Frame
}

// New opens an Instrument with nothing loaded.
func New(cfg Config) (*Instrument, error) {
	cfg = cfg.merge()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Instrument{cfg: cfg}, nil
}

// Read reads and filters the samples of a calendar day without changing the loaded
// day or the buffer.
func (i *Instrument) Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	day = day.Day()
	f, err := i.cfg.Source.Read(ctx, day)
	if err != nil {
		return telem.Frame{}, err
	}
	for _, filter := range i.cfg.Filters {
		f = filter(day, f)
	}
	return f, nil
}

// Load reads Bounds().Width worth of days starting at day into the buffer. A failed
// load leaves the instrument untouched.
func (i *Instrument) Load(ctx context.Context, day telem.TimeStamp) error {
	day = day.Day()
	n := int(i.cfg.Bounds.Width / telem.Day)
	frames := make([]telem.Frame, 0, n)
	for d := 0; d < n; d++ {
		f, err := i.Read(ctx, day.AddDays(d))
		if err != nil {
			return errors.Wrapf(err, "[instrument] - failed to load %s", day.AddDays(d).DateString())
		}
		frames = append(frames, f)
	}
	buf := frames[0]
	if n > 1 {
		buf = telem.Concat(frames...)
	}
	i.date, i.loaded, i.buffer = day, true, buf
	i.cfg.Logger.Debug("loaded day",
		zap.String("day", day.DateString()),
		zap.Int("samples", buf.Len()),
	)
	return nil
}

// Date returns the loaded day. The returned bool is false if nothing is loaded.
func (i *Instrument) Date() (telem.TimeStamp, bool) { return i.date, i.loaded }

// Buffer returns the samples currently held by the instrument.
func (i *Instrument) Buffer() telem.Frame { return i.buffer }

// SetBuffer replaces the samples held by the instrument without changing its
// loaded day.
func (i *Instrument) SetBuffer(f telem.Frame) { i.buffer = f }

// Span returns the range of time holding data, or the zero range if the source
// doesn't report one.
func (i *Instrument) Span() telem.TimeRange {
	if s, ok := i.cfg.Source.(spanner); ok {
		return s.Span()
	}
	return telem.TimeRange{}
}

// Bounds returns the outer iteration window.
func (i *Instrument) Bounds() telem.Bounds { return i.cfg.Bounds }

// SetBounds replaces the outer iteration window.
func (i *Instrument) SetBounds(b telem.Bounds) error {
	if err := validateBounds(b); err != nil {
		return err
	}
	i.cfg.Bounds = b
	return nil
}

// Next loads the next step of the iteration bounds, or the first day of the bounds
// if nothing is loaded.
func (i *Instrument) Next(ctx context.Context) error {
	day := i.cfg.Bounds.Range.FirstDay()
	if i.loaded {
		day = i.date.Add(i.cfg.Bounds.Step)
	}
	return i.step(ctx, day)
}

// Prev loads the previous step of the iteration bounds, or the last step of the
// bounds if nothing is loaded.
func (i *Instrument) Prev(ctx context.Context) error {
	var day telem.TimeStamp
	if i.loaded {
		day = i.date.Add(-i.cfg.Bounds.Step)
	} else {
		r := i.cfg.Bounds.Range
		steps := r.LastDay().Sub(r.FirstDay()) / i.cfg.Bounds.Step
		day = r.FirstDay().Add(steps * i.cfg.Bounds.Step)
	}
	return i.step(ctx, day)
}

func (i *Instrument) step(ctx context.Context, day telem.TimeStamp) error {
	r := i.cfg.Bounds.Range
	if r.IsZero() || day < r.FirstDay() || day > r.LastDay() {
		return ErrEndOfBounds
	}
	return i.Load(ctx, day)
}
