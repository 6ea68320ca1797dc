package orbit_test

import (
	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/synth"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Detect", func() {
	var gen *synth.Generator
	BeforeEach(func() { gen = synth.New(synth.Config{Epoch: t0}) })

	DescribeTable("Should split N synthetic orbits with N-1 breaks",
		func(key string, kind orbit.Kind) {
			f := gen.Frame(telem.TimeRange{Start: t0, End: gen.OrbitStart(11)})
			info, err := orbit.NewInfo(key, kind, 0)
			Expect(err).ToNot(HaveOccurred())
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(HaveLen(9))
			Expect(bs.TooClose).To(BeFalse())
			Expect(bs.Count(f.Len())).To(Equal(10))
			for i, b := range bs.Breaks {
				Expect(f.Index[b]).To(Equal(gen.OrbitStart(i + 2)))
			}
		},
		Entry("local time", synth.MLT, orbit.LocalTime),
		Entry("longitude", synth.Longitude, orbit.Longitude),
		Entry("polar", synth.Latitude, orbit.Polar),
		Entry("orbit number", synth.OrbitNum, orbit.OrbitNumber),
	)

	Describe("Gaps", func() {
		var info orbit.Info
		BeforeEach(func() {
			var err error
			info, err = orbit.NewInfo(synth.MLT, orbit.LocalTime, 0)
			Expect(err).ToNot(HaveOccurred())
		})
		It("Should not break across a long gap the index increased across", func() {
			gen = synth.New(synth.Config{
				Epoch: t0,
				Gaps:  []telem.TimeRange{{Start: t0.Add(204 * telem.Minute), End: t0.Add(324 * telem.Minute)}},
			})
			f := gen.Frame(telem.TimeRange{Start: t0, End: gen.OrbitStart(7)})
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(HaveLen(4))
			Expect(f.Index[bs.Breaks[1]]).To(Equal(gen.OrbitStart(3)))
			Expect(f.Index[bs.Breaks[2]]).To(Equal(gen.OrbitStart(5)))
		})
		It("Should break after a long gap the index decreased across", func() {
			gen = synth.New(synth.Config{
				Epoch: t0,
				Gaps:  []telem.TimeRange{{Start: t0.Add(280 * telem.Minute), End: t0.Add(390 * telem.Minute)}},
			})
			f := gen.Frame(telem.TimeRange{Start: t0, End: gen.OrbitStart(7)})
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(HaveLen(4))
			Expect(f.Index[bs.Breaks[2]]).To(Equal(t0.Add(390 * telem.Minute)))
			Expect(f.Index[bs.Breaks[3]]).To(Equal(gen.OrbitStart(6)))
		})
		It("Should not break a local time that keeps rising across a long gap", func() {
			f := frameAt("mlt", []int{0, 1, 99, 100}, 0.5, 1, 23, 23.2)
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(BeEmpty())
		})
		It("Should not break an unchanged orbit counter across a long gap", func() {
			counter, err := orbit.NewInfo("orbit", orbit.OrbitNumber, 0)
			Expect(err).ToNot(HaveOccurred())
			f := frameAt("orbit", []int{0, 1, 101, 102}, 7, 7, 7, 7)
			bs, err := orbit.Detect(f, counter)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(BeEmpty())
		})
		It("Should not take the slope across a long gap as a latitude minimum", func() {
			polar := orbit.Info{Index: "lat", Kind: orbit.Polar, Period: telem.Hour, MinDuration: telem.Minute}
			f := frameAt("lat", []int{0, 1, 2, 200, 201}, 5, 3, 1, 2, 4)
			bs, err := orbit.Detect(f, polar)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(BeEmpty())
		})
		It("Should break after a short gap the index wrapped across", func() {
			gen = synth.New(synth.Config{
				Epoch: t0,
				Gaps:  []telem.TimeRange{{Start: t0.Add(180 * telem.Minute), End: t0.Add(200 * telem.Minute)}},
			})
			f := gen.Frame(telem.TimeRange{Start: t0, End: gen.OrbitStart(5)})
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(HaveLen(3))
			Expect(f.Index[bs.Breaks[1]]).To(Equal(t0.Add(200 * telem.Minute)))
		})
		It("Should not break across a short gap within an orbit", func() {
			gen = synth.New(synth.Config{
				Epoch: t0,
				Gaps:  []telem.TimeRange{{Start: t0.Add(120 * telem.Minute), End: t0.Add(150 * telem.Minute)}},
			})
			f := gen.Frame(telem.TimeRange{Start: t0, End: gen.OrbitStart(4)})
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(HaveLen(2))
		})
	})

	Describe("Coalescing", func() {
		It("Should drop a break closer than the minimum duration to the one before it", func() {
			values := make([]float64, 0, 40)
			for i := 0; i < 30; i++ {
				values = append(values, float64(i)*0.8)
			}
			values = append(values, 0, 1, 2, 3, 20, 0, 1, 2, 3, 4)
			info, err := orbit.NewInfo("mlt", orbit.LocalTime, 0)
			Expect(err).ToNot(HaveOccurred())
			bs, err := orbit.Detect(minuteFrame("mlt", values...), info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(Equal([]int{30}))
			Expect(bs.TooClose).To(BeTrue())
		})
		It("Should compare each candidate against the candidate before it", func() {
			info := orbit.Info{
				Index:       "orbit",
				Kind:        orbit.OrbitNumber,
				Period:      telem.Hour,
				MinDuration: 3 * telem.Minute,
			}
			f := minuteFrame("orbit", 1, 1, 1, 1, 1, 2, 2, 3, 3, 4, 4)
			bs, err := orbit.Detect(f, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(Equal([]int{5}))
			Expect(bs.TooClose).To(BeTrue())
		})
	})

	Describe("Polar", func() {
		It("Should break at the first sample of a flat minimum", func() {
			info := orbit.Info{Index: "lat", Kind: orbit.Polar, Period: telem.Hour, MinDuration: telem.Minute}
			bs, err := orbit.Detect(minuteFrame("lat", 5, 3, 1, 1, 1, 2, 4, 2, 0, 3), info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(Equal([]int{2, 8}))
		})
	})

	Describe("Orbit number", func() {
		info := orbit.Info{Index: "orbit", Kind: orbit.OrbitNumber, Period: telem.Hour, MinDuration: telem.Minute}
		It("Should break wherever the counter changes", func() {
			bs, err := orbit.Detect(minuteFrame("orbit", 1, 1, 2, 2, 3), info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(Equal([]int{2, 4}))
		})
		It("Should return a configuration error for a decreasing counter", func() {
			_, err := orbit.Detect(minuteFrame("orbit", 1, 2, 1), info)
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
		})
		It("Should return a configuration error for a fractional counter", func() {
			_, err := orbit.Detect(minuteFrame("orbit", 1, 1.5, 2), info)
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("Errors", func() {
		It("Should return a configuration error when the index column is missing", func() {
			info, err := orbit.NewInfo("slt", orbit.LocalTime, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = orbit.Detect(minuteFrame("mlt", 1, 2, 3), info)
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
		})
		It("Should return a configuration error for an invalid info", func() {
			_, err := orbit.Detect(minuteFrame("mlt", 1, 2, 3), orbit.Info{Index: "mlt", Kind: "bogus"})
			Expect(errors.Is(err, orbit.ErrConfiguration)).To(BeTrue())
		})
		It("Should return no breaks for an empty frame", func() {
			info, err := orbit.NewInfo("mlt", orbit.LocalTime, 0)
			Expect(err).ToNot(HaveOccurred())
			bs, err := orbit.Detect(telem.Frame{}, info)
			Expect(err).ToNot(HaveOccurred())
			Expect(bs.Breaks).To(BeEmpty())
			Expect(bs.Count(0)).To(Equal(0))
			Expect(bs.Segments(0)).To(BeEmpty())
		})
	})
})

var _ = Describe("BreakSet", func() {
	It("Should split samples into half-open segments", func() {
		bs := orbit.BreakSet{Breaks: []int{3, 7}}
		Expect(bs.Segments(10)).To(Equal([]orbit.Segment{{Lo: 0, Hi: 3}, {Lo: 3, Hi: 7}, {Lo: 7, Hi: 10}}))
		Expect(bs.Segments(10)[1].Len()).To(Equal(4))
	})
})
