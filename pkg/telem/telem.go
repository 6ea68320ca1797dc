package telem

import (
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// TimeStamp is a UTC timestamp with nanosecond precision, stored as the number of
// nanoseconds since the unix epoch.
type TimeStamp int64

// TimeSpan is the difference between two TimeStamps in nanoseconds.
type TimeSpan int64

const (
	Nanosecond  TimeSpan = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
	Day                  = 24 * Hour
)

// NewTimeStamp converts a time.Time into a TimeStamp.
func NewTimeStamp(t time.Time) TimeStamp { return TimeStamp(t.UnixNano()) }

// Now returns the current time as a TimeStamp.
func Now() TimeStamp { return NewTimeStamp(time.Now()) }

// Date returns the TimeStamp at midnight UTC of the given calendar date.
func Date(year int, month time.Month, day int) TimeStamp {
	return NewTimeStamp(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Time converts the TimeStamp into a UTC time.Time.
func (ts TimeStamp) Time() time.Time { return time.Unix(0, int64(ts)).UTC() }

// Add returns the TimeStamp shifted by the given span.
func (ts TimeStamp) Add(span TimeSpan) TimeStamp { return ts + TimeStamp(span) }

// Sub returns the span between ts and other.
func (ts TimeStamp) Sub(other TimeStamp) TimeSpan { return TimeSpan(ts - other) }

// Before returns true if ts is strictly before other.
func (ts TimeStamp) Before(other TimeStamp) bool { return ts < other }

// After returns true if ts is strictly after other.
func (ts TimeStamp) After(other TimeStamp) bool { return ts > other }

// Day truncates the TimeStamp to midnight UTC of its calendar day.
func (ts TimeStamp) Day() TimeStamp {
	d := TimeStamp(Day)
	r := ts % d
	if r < 0 {
		r += d
	}
	return ts - r
}

// AddDays shifts the TimeStamp by n calendar days.
func (ts TimeStamp) AddDays(n int) TimeStamp { return ts.Add(TimeSpan(n) * Day) }

// DateString formats the calendar day of the TimeStamp as YYYY-MM-DD.
func (ts TimeStamp) DateString() string { return ts.Time().Format(dateLayout) }

func (ts TimeStamp) String() string { return ts.Time().Format(time.RFC3339Nano) }

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date into the TimeStamp at its midnight UTC.
func ParseDate(s string) (TimeStamp, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return 0, errors.Wrapf(err, "[telem] - invalid date %q", s)
	}
	return NewTimeStamp(t), nil
}

// Duration converts the TimeSpan into a time.Duration.
func (ts TimeSpan) Duration() time.Duration { return time.Duration(ts) }

func (ts TimeSpan) String() string { return ts.Duration().String() }

// NewTimeSpan converts a time.Duration into a TimeSpan.
func NewTimeSpan(d time.Duration) TimeSpan { return TimeSpan(d) }

// TimeRange is a half-open range of time [Start, End).
type TimeRange struct {
	Start TimeStamp
	End   TimeStamp
}

// Span returns the span of time the range occupies.
func (tr TimeRange) Span() TimeSpan { return tr.End.Sub(tr.Start) }

// IsZero returns true if the range is the zero value.
func (tr TimeRange) IsZero() bool { return tr.Start == 0 && tr.End == 0 }

// Contains returns true if the TimeStamp lies within the range.
func (tr TimeRange) Contains(ts TimeStamp) bool { return ts >= tr.Start && ts < tr.End }

// ContainsDay returns true if any part of the calendar day starting at day lies within
// the range.
func (tr TimeRange) ContainsDay(day TimeStamp) bool {
	return day.AddDays(1) > tr.Start && day < tr.End
}

// FirstDay returns the calendar day holding the start of the range.
func (tr TimeRange) FirstDay() TimeStamp { return tr.Start.Day() }

// LastDay returns the calendar day holding the last instant of the range.
func (tr TimeRange) LastDay() TimeStamp { return (tr.End - 1).Day() }

func (tr TimeRange) String() string { return tr.Start.String() + " - " + tr.End.String() }

// Bounds is an outer iteration window: a range of days walked in fixed steps, where
// each step loads Width worth of data.
type Bounds struct {
	Range TimeRange
	Step  TimeSpan
	Width TimeSpan
}

// Overlaps returns true if consecutive steps load overlapping data.
func (b Bounds) Overlaps() bool { return b.Width > b.Step }

// MarshalYAML implements yaml.Marshaler, encoding the span as a duration string.
func (ts TimeSpan) MarshalYAML() (interface{}, error) { return ts.String(), nil }

// UnmarshalYAML implements yaml.Unmarshaler, decoding a duration string such as
// "1h37m0s".
func (ts *TimeSpan) UnmarshalYAML(node *yaml.Node) error {
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return errors.Wrapf(err, "[telem] - invalid time span %q", node.Value)
	}
	*ts = NewTimeSpan(d)
	return nil
}
