package orbit

import "github.com/cockroachdb/errors"

var (
	// ErrConfiguration is returned when the orbit Info is invalid or does not match
	// the data it is applied to: an unknown kind, a missing index column, or a
	// non-monotonic orbit counter.
	ErrConfiguration = errors.New("[orbit] - invalid configuration")
	// ErrNoData is returned when navigation runs out of data, either because the
	// day scan budget was exhausted or because it moved past the owner's data span.
	ErrNoData = errors.New("[orbit] - no further data")
	// ErrOverlap is returned when the owner's outer iteration window loads
	// overlapping data, or when navigation would emit samples a second time.
	ErrOverlap = errors.New("[orbit] - overlapping orbit data")
	// ErrIndexRange is returned when an orbit index lies outside the orbits of the
	// loaded day.
	ErrIndexRange = errors.New("[orbit] - orbit index out of range")
)
