package iterator

import (
	"fmt"
	"strings"

	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/cache"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const reprPrefix = "Iterator"

type repr struct {
	Index       string         `yaml:"index"`
	Kind        string         `yaml:"kind"`
	Period      telem.TimeSpan `yaml:"period"`
	MinDuration telem.TimeSpan `yaml:"min_duration"`
	MaxScanDays int            `yaml:"max_scan_days"`
}

// String returns a representation of the iterator's configuration that Parse
// accepts, e.g.
//
//	Iterator{index: mlt, kind: local_time, period: 1h37m0s, min_duration: 24m15s, max_scan_days: 90}
func (it *Iterator) String() string {
	info := it.cfg.Info
	return fmt.Sprintf(
		"%s{index: %s, kind: %s, period: %s, min_duration: %s, max_scan_days: %d}",
		reprPrefix,
		yamlScalar(info.Index),
		info.Kind,
		info.Period,
		info.MinDuration,
		it.cfg.MaxScanDays,
	)
}

func yamlScalar(s string) string {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimSpace(string(b))
}

// Parse parses the representation returned by Iterator.String into a Config. The
// returned Config builds an unpositioned Iterator equal in configuration to the one
// represented.
func Parse(s string) (Config, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, reprPrefix+"{") {
		return Config{}, errors.Wrapf(orbit.ErrConfiguration, "[iterator] - %q is not an iterator", s)
	}
	var r repr
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(s, reprPrefix)), &r); err != nil {
		return Config{}, errors.Mark(errors.Wrap(err, "[iterator] - invalid representation"), orbit.ErrConfiguration)
	}
	kind, err := orbit.ParseKind(r.Kind)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Info: orbit.Info{
			Index:       r.Index,
			Kind:        kind,
			Period:      r.Period,
			MinDuration: r.MinDuration,
		},
		MaxScanDays: r.MaxScanDays,
	}.merge()
	return cfg, cfg.Validate()
}

// Equal returns true if other is an *Iterator with the same configuration that has
// selected the same orbit number holding bit-identical samples.
func (it *Iterator) Equal(other interface{}) bool {
	o, ok := other.(*Iterator)
	if !ok || o == nil {
		return false
	}
	if it.cfg.Info != o.cfg.Info || it.cfg.MaxScanDays != o.cfg.MaxScanDays {
		return false
	}
	it.sync()
	o.sync()
	if it.state.current != o.state.current {
		return false
	}
	return it.state.current == 0 || it.selected.Equal(o.selected)
}

// Copy returns an independent iterator over the same owner, positioned on the same
// orbit.
func (it *Iterator) Copy() *Iterator {
	c := &Iterator{
		owner:    it.owner,
		cfg:      it.cfg,
		state:    it.state,
		orbits:   it.orbits,
		selected: it.selected.Copy(),
	}
	c.cache = cache.New(it.owner, cache.Config{
		Logger:  it.cfg.Logger.Named("cache"),
		Metrics: it.cfg.Metrics,
	})
	return c
}
