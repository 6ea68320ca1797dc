package telem

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

// Frame is a column-oriented, time-indexed buffer of samples. Index holds one
// strictly increasing TimeStamp per sample, and every column in Columns holds one
// value per sample.
type Frame struct {
	Index   []TimeStamp
	Columns map[string][]float64
}

// NewFrame builds a frame from an index and a set of columns and validates it.
func NewFrame(index []TimeStamp, columns map[string][]float64) (Frame, error) {
	f := Frame{Index: index, Columns: columns}
	return f, f.Validate()
}

// Len returns the number of samples in the frame.
func (f Frame) Len() int { return len(f.Index) }

// Empty returns true if the frame holds no samples.
func (f Frame) Empty() bool { return len(f.Index) == 0 }

// Keys returns the column keys of the frame in sorted order.
func (f Frame) Keys() []string {
	keys := make([]string, 0, len(f.Columns))
	for k := range f.Columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Column returns the values of the column with the given key.
func (f Frame) Column(key string) ([]float64, bool) {
	c, ok := f.Columns[key]
	return c, ok
}

// First returns the first TimeStamp in the frame. Panics if the frame is empty.
func (f Frame) First() TimeStamp { return f.Index[0] }

// Last returns the last TimeStamp in the frame. Panics if the frame is empty.
func (f Frame) Last() TimeStamp { return f.Index[len(f.Index)-1] }

// Range returns the time range occupied by the frame. The range of an empty frame
// is the zero range.
func (f Frame) Range() TimeRange {
	if f.Empty() {
		return TimeRange{}
	}
	return TimeRange{Start: f.First(), End: f.Last() + 1}
}

// Slice returns a view of the samples in [lo, hi). The returned frame shares its
// backing arrays with f.
func (f Frame) Slice(lo, hi int) Frame {
	out := Frame{Index: f.Index[lo:hi], Columns: make(map[string][]float64, len(f.Columns))}
	for k, c := range f.Columns {
		out.Columns[k] = c[lo:hi]
	}
	return out
}

// Copy returns a deep copy of the frame.
func (f Frame) Copy() Frame {
	out := Frame{Index: make([]TimeStamp, len(f.Index)), Columns: make(map[string][]float64, len(f.Columns))}
	copy(out.Index, f.Index)
	for k, c := range f.Columns {
		cc := make([]float64, len(c))
		copy(cc, c)
		out.Columns[k] = cc
	}
	return out
}

// Between returns a view of the samples whose timestamps lie within the range.
func (f Frame) Between(tr TimeRange) Frame {
	lo := sort.Search(len(f.Index), func(i int) bool { return f.Index[i] >= tr.Start })
	hi := sort.Search(len(f.Index), func(i int) bool { return f.Index[i] >= tr.End })
	if hi < lo {
		hi = lo
	}
	return f.Slice(lo, hi)
}

// Filter returns a new frame holding the samples for which keep returns true.
func (f Frame) Filter(keep func(i int) bool) Frame {
	out := Frame{Columns: make(map[string][]float64, len(f.Columns))}
	for k := range f.Columns {
		out.Columns[k] = nil
	}
	for i, ts := range f.Index {
		if !keep(i) {
			continue
		}
		out.Index = append(out.Index, ts)
		for k, c := range f.Columns {
			out.Columns[k] = append(out.Columns[k], c[i])
		}
	}
	return out
}

// SplitDays splits the frame into one view per calendar day, ordered by day.
func (f Frame) SplitDays() []Frame {
	var (
		out []Frame
		lo  int
	)
	for i := 1; i <= len(f.Index); i++ {
		if i == len(f.Index) || f.Index[i].Day() != f.Index[lo].Day() {
			out = append(out, f.Slice(lo, i))
			lo = i
		}
	}
	return out
}

// Equal returns true if both frames hold bit-identical samples under the same keys.
func (f Frame) Equal(other Frame) bool {
	if len(f.Index) != len(other.Index) || len(f.Columns) != len(other.Columns) {
		return false
	}
	for i, ts := range f.Index {
		if other.Index[i] != ts {
			return false
		}
	}
	for k, c := range f.Columns {
		oc, ok := other.Columns[k]
		if !ok || len(oc) != len(c) {
			return false
		}
		for i, v := range c {
			if math.Float64bits(v) != math.Float64bits(oc[i]) {
				return false
			}
		}
	}
	return true
}

// Validate checks that every column has one value per sample and that the index is
// strictly increasing.
func (f Frame) Validate() error {
	for k, c := range f.Columns {
		if len(c) != len(f.Index) {
			return errors.Newf(
				"[telem] - column %q has %d values for %d samples",
				k, len(c), len(f.Index),
			)
		}
	}
	for i := 1; i < len(f.Index); i++ {
		if f.Index[i] <= f.Index[i-1] {
			return errors.Newf("[telem] - index is not strictly increasing at sample %d", i)
		}
	}
	return nil
}

// Concat joins frames end to end into a newly allocated frame. Columns missing from
// one of the frames are filled with NaN for that frame's samples. Frames must be
// supplied in time order.
func Concat(frames ...Frame) Frame {
	var (
		n    int
		keys = make(map[string]struct{})
	)
	for _, f := range frames {
		n += f.Len()
		for k := range f.Columns {
			keys[k] = struct{}{}
		}
	}
	out := Frame{Index: make([]TimeStamp, 0, n), Columns: make(map[string][]float64, len(keys))}
	for k := range keys {
		out.Columns[k] = make([]float64, 0, n)
	}
	for _, f := range frames {
		out.Index = append(out.Index, f.Index...)
		for k := range keys {
			c, ok := f.Columns[k]
			if !ok {
				c = nans(f.Len())
			}
			out.Columns[k] = append(out.Columns[k], c...)
		}
	}
	return out
}

func nans(n int) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = math.NaN()
	}
	return c
}
