package orbit

import (
	"strings"

	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
)

// Kind selects the strategy used to detect orbit breaks in an index column.
type Kind string

const (
	// LocalTime breaks orbits where a local time index in [0, 24) wraps around.
	LocalTime Kind = "local_time"
	// Longitude breaks orbits where a longitude index wraps around its 360 degree
	// range, either [0, 360) or [-180, 180).
	Longitude Kind = "longitude"
	// OrbitNumber breaks orbits wherever an explicit integer orbit counter changes.
	OrbitNumber Kind = "orbit_number"
	// Polar breaks orbits at the latitude minimum, where the rate of change of a
	// latitude index turns from negative to positive.
	Polar Kind = "polar"
)

var kindAliases = map[string]Kind{
	"local_time":   LocalTime,
	"local time":   LocalTime,
	"lt":           LocalTime,
	"longitude":    Longitude,
	"long":         Longitude,
	"lon":          Longitude,
	"orbit_number": OrbitNumber,
	"orbit number": OrbitNumber,
	"orbit":        OrbitNumber,
	"polar":        Polar,
}

// ParseKind parses a Kind from its name or one of its aliases. An empty string
// parses as LocalTime.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return LocalTime, nil
	}
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errors.Wrapf(ErrConfiguration, "unknown orbit kind %q", s)
	}
	return k, nil
}

// Valid returns true if the kind is one of the four supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case LocalTime, Longitude, OrbitNumber, Polar:
		return true
	}
	return false
}

// cycle returns the extent of the index range for wrapping kinds.
func (k Kind) cycle() float64 {
	switch k {
	case LocalTime:
		return 24
	case Longitude:
		return 360
	}
	return 0
}

const (
	// DefaultPeriod is the orbit period assumed when Info leaves it unset.
	DefaultPeriod = 97 * telem.Minute
	// MaxPeriod is the longest supported orbit period. Orbits are materialized from
	// at most three consecutive days, so a period must fit well within one.
	MaxPeriod = 12 * telem.Hour
	// defaultMinFraction is the fraction of the period under which consecutive
	// breaks are coalesced when Info leaves MinDuration unset.
	defaultMinFraction = 4
)

// Info is the immutable configuration describing how orbits are found in a data
// stream.
type Info struct {
	// Index is the key of the column holding the cycling quantity.
	Index string `yaml:"index"`
	// Kind is the break detection strategy.
	Kind Kind `yaml:"kind"`
	// Period is the expected, approximate duration of one orbit.
	Period telem.TimeSpan `yaml:"period"`
	// MinDuration is the shortest separation allowed between two breaks. A break
	// closer than MinDuration to the previous candidate break is dropped.
	MinDuration telem.TimeSpan `yaml:"min_duration"`
}

// NewInfo builds a validated Info, applying defaults for an unset kind, period, or
// minimum duration.
func NewInfo(index string, kind Kind, period telem.TimeSpan) (Info, error) {
	i := Info{Index: index, Kind: kind, Period: period}.WithDefaults()
	return i, i.Validate()
}

// WithDefaults returns a copy of the Info with an unset kind, period, or minimum
// duration replaced by its default.
func (i Info) WithDefaults() Info {
	if i.Kind == "" {
		i.Kind = LocalTime
	}
	if i.Period == 0 {
		i.Period = DefaultPeriod
	}
	if i.MinDuration == 0 {
		i.MinDuration = i.Period / defaultMinFraction
	}
	return i
}

// Validate returns an ErrConfiguration if the Info can't be used for break detection.
func (i Info) Validate() error {
	if i.Index == "" {
		return errors.Wrap(ErrConfiguration, "orbit index key must be set")
	}
	if !i.Kind.Valid() {
		return errors.Wrapf(ErrConfiguration, "unknown orbit kind %q", i.Kind)
	}
	if i.Period <= 0 || i.Period > MaxPeriod {
		return errors.Wrapf(
			ErrConfiguration,
			"orbit period %s must be positive and at most %s",
			i.Period, MaxPeriod,
		)
	}
	if i.MinDuration < 0 || i.MinDuration >= i.Period {
		return errors.Wrapf(
			ErrConfiguration,
			"minimum orbit duration %s must be non-negative and shorter than the period %s",
			i.MinDuration, i.Period,
		)
	}
	return nil
}
