package instrument

import "github.com/arya-analytics/orbits/pkg/telem"

// Filter transforms the samples read for a calendar day.
type Filter func(day telem.TimeStamp, f telem.Frame) telem.Frame

// RemoveRanges drops every sample inside any of the given ranges.
func RemoveRanges(ranges ...telem.TimeRange) Filter {
	return func(_ telem.TimeStamp, f telem.Frame) telem.Frame {
		return f.Filter(func(i int) bool {
			for _, r := range ranges {
				if r.Contains(f.Index[i]) {
					return false
				}
			}
			return true
		})
	}
}

// Head keeps the samples within the first span of each day.
func Head(span telem.TimeSpan) Filter {
	return func(day telem.TimeStamp, f telem.Frame) telem.Frame {
		return f.Between(telem.TimeRange{Start: day, End: day.Add(span)})
	}
}

// Tail keeps the samples within the last span of each day.
func Tail(span telem.TimeSpan) Filter {
	return func(day telem.TimeStamp, f telem.Frame) telem.Frame {
		end := day.AddDays(1)
		return f.Between(telem.TimeRange{Start: end.Add(-span), End: end})
	}
}

// Days restricts a filter to the given calendar days. Other days pass through
// unchanged.
func Days(filter Filter, days ...telem.TimeStamp) Filter {
	set := make(map[telem.TimeStamp]struct{}, len(days))
	for _, d := range days {
		set[d.Day()] = struct{}{}
	}
	return func(day telem.TimeStamp, f telem.Frame) telem.Frame {
		if _, ok := set[day]; !ok {
			return f
		}
		return filter(day, f)
	}
}
