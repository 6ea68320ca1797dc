package iterator_test

import (
	"github.com/arya-analytics/orbits/pkg/instrument"
	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/iterator"
	"github.com/arya-analytics/orbits/pkg/synth"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Iterator", func() {
	var (
		gen   *synth.Generator
		owner *instrument.Instrument
		it    *iterator.Iterator
	)
	BeforeEach(func() {
		gen = synth.New(synth.Config{Epoch: jan(1)})
		owner = openInstrument(gen)
		it = openIterator(owner, mlt())
	})

	Describe("Next", func() {
		It("Should select consecutive 97 minute orbits of the loaded day", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Current()).To(Equal(0))
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(1))
			buf := owner.Buffer()
			Expect(buf.Len()).To(Equal(97))
			Expect(buf.First()).To(Equal(jan(1)))
			Expect(buf.Last()).To(Equal(minute(96)))
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(2))
			buf = owner.Buffer()
			Expect(buf.First()).To(Equal(minute(97)))
			Expect(buf.Last()).To(Equal(minute(193)))
			Expect(it.Total()).To(Equal(14))
			date, _ := owner.Date()
			Expect(date).To(Equal(jan(1)))
		})
		It("Should roll over into the orbit crossing midnight", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Seek(ctx, -1)).To(Succeed())
			Expect(it.Current()).To(Equal(14))
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(1))
			Expect(it.Total()).To(Equal(15))
			day, ok := it.Day()
			Expect(ok).To(BeTrue())
			Expect(day).To(Equal(jan(2)))
			date, _ := owner.Date()
			Expect(date).To(Equal(jan(2)))
			buf := owner.Buffer()
			Expect(buf.First()).To(Equal(minute(1358)))
			Expect(buf.Last()).To(Equal(minute(1454)))
			Expect(buf.Len()).To(Equal(97))
		})
		It("Should select the first orbit of the data span when nothing is loaded", func() {
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(1))
			Expect(owner.Buffer().First()).To(Equal(jan(1)))
			date, ok := owner.Date()
			Expect(ok).To(BeTrue())
			Expect(date).To(Equal(jan(1)))
		})
		It("Should return ErrNoData past the last orbit of the data", func() {
			Expect(owner.Load(ctx, jan(7))).To(Succeed())
			var (
				err       error
				successes int
			)
			for i := 0; i < 20; i++ {
				if err = it.Next(ctx); err != nil {
					break
				}
				successes++
			}
			Expect(errors.Is(err, orbit.ErrNoData)).To(BeTrue())
			Expect(successes).To(Equal(15))
			Expect(it.Current()).To(Equal(15))
			Expect(owner.Buffer().Last()).To(Equal(minute(10079)))
		})
		It("Should keep every orbit strictly after the one before it", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			last := owner.Buffer().Last()
			for i := 0; i < 40; i++ {
				Expect(it.Next(ctx)).To(Succeed())
				buf := owner.Buffer()
				Expect(buf.Validate()).To(Succeed())
				Expect(buf.First()).To(Equal(last.Add(telem.Minute)))
				last = buf.Last()
			}
		})
	})

	Describe("Prev", func() {
		It("Should select the last orbit of the loaded day", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(14))
			Expect(owner.Buffer().First()).To(Equal(minute(13 * 97)))
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(13))
		})
		It("Should select the last orbit of the data span when nothing is loaded", func() {
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(15))
			Expect(it.Total()).To(Equal(15))
			buf := owner.Buffer()
			Expect(buf.First()).To(Equal(minute(9991)))
			Expect(buf.Last()).To(Equal(minute(10079)))
		})
		It("Should roll back across midnight", func() {
			Expect(owner.Load(ctx, jan(2))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(14))
			day, _ := it.Day()
			Expect(day).To(Equal(jan(1)))
			Expect(owner.Buffer().Last()).To(Equal(minute(1357)))
		})
		It("Should return ErrNoData before the first orbit of the data", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			err := it.Prev(ctx)
			Expect(errors.Is(err, orbit.ErrNoData)).To(BeTrue())
			Expect(it.Current()).To(Equal(1))
		})
	})

	DescribeTable("Should find the orbits of a day with every kind",
		func(key string, kind orbit.Kind) {
			info, err := orbit.NewInfo(key, kind, 0)
			Expect(err).ToNot(HaveOccurred())
			it = openIterator(owner, info)
			Expect(owner.Load(ctx, jan(2))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Total()).To(Equal(15))
			Expect(owner.Buffer().First()).To(Equal(minute(1358)))
		},
		Entry("local time", synth.MLT, orbit.LocalTime),
		Entry("longitude", synth.Longitude, orbit.Longitude),
		Entry("polar", synth.Latitude, orbit.Polar),
		Entry("orbit number", synth.OrbitNum, orbit.OrbitNumber),
	)

	Describe("Seek", func() {
		BeforeEach(func() { Expect(owner.Load(ctx, jan(1))).To(Succeed()) })
		DescribeTable("Should select orbits by index",
			func(i int, current int, first int) {
				Expect(it.Seek(ctx, i)).To(Succeed())
				Expect(it.Current()).To(Equal(current))
				Expect(owner.Buffer().First()).To(Equal(minute(first)))
			},
			Entry("first", 0, 1, 0),
			Entry("second", 1, 2, 97),
			Entry("last", -1, 14, 13*97),
			Entry("second to last", -2, 13, 12*97),
			Entry("last by positive index", 13, 14, 13*97),
		)
		It("Should roll over when seeking one past the last orbit", func() {
			Expect(it.Seek(ctx, 14)).To(Succeed())
			Expect(it.Current()).To(Equal(1))
			day, _ := it.Day()
			Expect(day).To(Equal(jan(2)))
			Expect(owner.Buffer().First()).To(Equal(minute(14 * 97)))
		})
		It("Should return ErrIndexRange for indices outside of the day", func() {
			Expect(it.Seek(ctx, 3)).To(Succeed())
			for _, i := range []int{15, 17, -15} {
				err := it.Seek(ctx, i)
				Expect(errors.Is(err, orbit.ErrIndexRange)).To(BeTrue())
			}
			Expect(it.Current()).To(Equal(4))
		})
		It("Should return ErrNoData when nothing is loaded", func() {
			it = openIterator(openInstrument(gen), mlt())
			Expect(errors.Is(it.Seek(ctx, 0), orbit.ErrNoData)).To(BeTrue())
		})
		It("Should select nothing on a loaded day without data", func() {
			Expect(owner.Load(ctx, jan(20))).To(Succeed())
			Expect(it.Seek(ctx, 0)).To(Succeed())
			Expect(it.Current()).To(Equal(0))
			_, ok := it.Selected()
			Expect(ok).To(BeFalse())
			Expect(errors.Is(it.Next(ctx), orbit.ErrNoData)).To(BeTrue())
			Expect(errors.Is(it.Seek(ctx, 1), orbit.ErrIndexRange)).To(BeTrue())
		})
	})

	Describe("Partial days", func() {
		It("Should join an orbit split across two partial days", func() {
			owner = openInstrument(gen,
				instrument.Days(instrument.Tail(30*telem.Minute), jan(1)),
				instrument.Days(instrument.Head(30*telem.Minute), jan(2)),
			)
			it = openIterator(owner, mlt())
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			day, _ := it.Day()
			Expect(day).To(Equal(jan(2)))
			buf := owner.Buffer()
			Expect(buf.First()).To(Equal(minute(1410)))
			Expect(buf.Last()).To(Equal(minute(1454)))
			Expect(it.Total()).To(Equal(1))
		})
		It("Should navigate a day holding less than one orbit", func() {
			owner = openInstrument(gen, instrument.Days(instrument.Head(30*telem.Minute), jan(2)))
			it = openIterator(owner, mlt())
			Expect(owner.Load(ctx, jan(2))).To(Succeed())
			Expect(it.Next(ctx)).To(Succeed())
			Expect(it.Total()).To(Equal(1))
			Expect(owner.Buffer().First()).To(Equal(minute(1358)))
			Expect(owner.Buffer().Len()).To(Equal(97))
			Expect(it.Next(ctx)).To(Succeed())
			day, _ := it.Day()
			Expect(day).To(Equal(jan(3)))
			Expect(owner.Buffer().First()).To(Equal(minute(1455)))
			Expect(owner.Buffer().Last()).To(Equal(minute(2909)))
			Expect(owner.Buffer().Len()).To(Equal(45))
			Expect(it.Next(ctx)).To(Succeed())
			Expect(owner.Buffer().First()).To(Equal(minute(2910)))
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Prev(ctx)).To(Succeed())
			Expect(it.Current()).To(Equal(1))
			Expect(owner.Buffer().First()).To(Equal(minute(1358)))
		})
	})

	Describe("Gaps", func() {
		BeforeEach(func() {
			gen = synth.New(synth.Config{
				Epoch: jan(1),
				Gaps:  []telem.TimeRange{{Start: jan(2), End: jan(6)}},
			})
			owner = openInstrument(gen)
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
		})
		It("Should skip days without data", func() {
			it = openIterator(owner, mlt())
			Expect(it.Seek(ctx, -1)).To(Succeed())
			Expect(it.Current()).To(Equal(15))
			Expect(owner.Buffer().Last()).To(Equal(minute(1439)))
			Expect(it.Next(ctx)).To(Succeed())
			day, _ := it.Day()
			Expect(day).To(Equal(jan(6)))
			Expect(owner.Buffer().First()).To(Equal(jan(6)))
			Expect(owner.Buffer().Last()).To(Equal(minute(7274)))
		})
		It("Should return ErrNoData once the scan budget is exhausted", func() {
			it, err := iterator.New(owner, iterator.Config{Info: mlt(), MaxScanDays: 2})
			Expect(err).ToNot(HaveOccurred())
			Expect(it.Seek(ctx, -1)).To(Succeed())
			Expect(errors.Is(it.Next(ctx), orbit.ErrNoData)).To(BeTrue())
			Expect(it.Current()).To(Equal(15))
			date, _ := owner.Date()
			Expect(date).To(Equal(jan(1)))
		})
	})

	Describe("Reset", func() {
		It("Should reset when the owner loads another day", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Seek(ctx, 4)).To(Succeed())
			Expect(owner.Load(ctx, jan(3))).To(Succeed())
			Expect(it.Current()).To(Equal(0))
			Expect(it.Total()).To(Equal(0))
			Expect(it.Next(ctx)).To(Succeed())
			day, _ := it.Day()
			Expect(day).To(Equal(jan(3)))
			Expect(it.Current()).To(Equal(1))
		})
		It("Should reset when the owner reloads the same day", func() {
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(it.Seek(ctx, 4)).To(Succeed())
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			_, ok := it.Selected()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Errors", func() {
		It("Should reject a decreasing orbit counter and leave the owner untouched", func() {
			reverse := func(_ telem.TimeStamp, f telem.Frame) telem.Frame {
				f = f.Copy()
				c := f.Columns[synth.OrbitNum]
				for i := range c {
					c[i] = float64(len(c) - i)
				}
				return f
			}
			owner = openInstrument(gen, reverse)
			info, err := orbit.NewInfo(synth.OrbitNum, orbit.OrbitNumber, 0)
			Expect(err).ToNot(HaveOccurred())
			it = openIterator(owner, info)
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			err = it.Next(ctx)
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
			Expect(it.Current()).To(Equal(0))
			Expect(owner.Buffer().Len()).To(Equal(1440))
		})
		It("Should return ErrConfiguration for a missing index column", func() {
			info, err := orbit.NewInfo("slt", orbit.LocalTime, 0)
			Expect(err).ToNot(HaveOccurred())
			it = openIterator(owner, info)
			Expect(owner.Load(ctx, jan(1))).To(Succeed())
			Expect(errors.Is(it.Next(ctx), orbit.ErrConfiguration)).To(BeTrue())
		})
		It("Should refuse an invalid configuration", func() {
			_, err := iterator.New(owner, iterator.Config{Info: orbit.Info{Index: "mlt", Kind: "bogus"}})
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("Overlap", func() {
		It("Should reject an owner loading overlapping windows", func() {
			Expect(owner.SetBounds(telem.Bounds{
				Range: gen.Span(),
				Step:  telem.Day,
				Width: 2 * telem.Day,
			})).To(Succeed())
			Expect(errors.Is(it.Next(ctx), orbit.ErrOverlap)).To(BeTrue())
			Expect(errors.Is(it.Prev(ctx), orbit.ErrOverlap)).To(BeTrue())
			err := it.Walk(ctx, func(iterator.Orbit) error { return nil })
			Expect(errors.Is(err, orbit.ErrOverlap)).To(BeTrue())
			_, ok := owner.Date()
			Expect(ok).To(BeFalse())
		})
	})
})
