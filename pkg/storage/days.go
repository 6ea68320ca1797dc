package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"

	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

var (
	dayPrefix    = []byte("day/")
	dayPrefixEnd = []byte("day0")
)

// dayKey encodes a day so that keys sort in time order, including days before the
// unix epoch.
func dayKey(day telem.TimeStamp) []byte {
	k := make([]byte, len(dayPrefix)+8)
	copy(k, dayPrefix)
	binary.BigEndian.PutUint64(k[len(dayPrefix):], uint64(day)^(1<<63))
	return k
}

func parseDayKey(k []byte) telem.TimeStamp {
	return telem.TimeStamp(binary.BigEndian.Uint64(k[len(dayPrefix):]) ^ (1 << 63))
}

// Write stores the samples of the frame, replacing the stored samples of every
// calendar day the frame touches.
func (s *Storage) Write(f telem.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b := s.DB.NewBatch()
	for _, day := range f.SplitDays() {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(day); err != nil {
			return errors.CombineErrors(errors.Wrap(err, "[storage] - failed to encode day"), b.Close())
		}
		if err := b.Set(dayKey(day.First().Day()), buf.Bytes(), nil); err != nil {
			return errors.CombineErrors(err, b.Close())
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return errors.CombineErrors(err, b.Close())
	}
	return b.Close()
}

// Read returns the stored samples of a calendar day. A day with nothing stored is
// an empty frame.
func (s *Storage) Read(ctx context.Context, day telem.TimeStamp) (telem.Frame, error) {
	if err := ctx.Err(); err != nil {
		return telem.Frame{}, err
	}
	day = day.Day()
	v, closer, err := s.DB.Get(dayKey(day))
	if errors.Is(err, pebble.ErrNotFound) {
		return telem.Frame{}, nil
	}
	if err != nil {
		return telem.Frame{}, err
	}
	var f telem.Frame
	decodeErr := gob.NewDecoder(bytes.NewReader(v)).Decode(&f)
	if err := closer.Close(); err != nil {
		return telem.Frame{}, err
	}
	if decodeErr != nil {
		return telem.Frame{}, errors.Wrapf(decodeErr, "[storage] - corrupt day %s", day.DateString())
	}
	return f, nil
}

// Delete removes the stored samples of a calendar day.
func (s *Storage) Delete(day telem.TimeStamp) error {
	return s.DB.Delete(dayKey(day.Day()), pebble.Sync)
}

// Days returns the stored calendar days in ascending order.
func (s *Storage) Days() ([]telem.TimeStamp, error) {
	iter := s.newDayIter()
	var days []telem.TimeStamp
	for valid := iter.First(); valid; valid = iter.Next() {
		days = append(days, parseDayKey(iter.Key()))
	}
	return days, iter.Close()
}

// Span returns the range of days holding data, or the zero range if nothing is
// stored.
func (s *Storage) Span() telem.TimeRange {
	iter := s.newDayIter()
	var tr telem.TimeRange
	if iter.First() {
		tr.Start = parseDayKey(iter.Key())
		iter.Last()
		tr.End = parseDayKey(iter.Key()).AddDays(1)
	}
	if err := iter.Close(); err != nil {
		s.Cfg.Logger.Error("failed to read the stored span", zap.Error(err))
		return telem.TimeRange{}
	}
	return tr
}

func (s *Storage) newDayIter() *pebble.Iterator {
	return s.DB.NewIter(&pebble.IterOptions{LowerBound: dayPrefix, UpperBound: dayPrefixEnd})
}
