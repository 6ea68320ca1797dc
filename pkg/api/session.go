package api

import (
	"context"
	"sync"
	"time"

	"github.com/arya-analytics/orbits/pkg/instrument"
	"github.com/arya-analytics/orbits/pkg/orbit"
	"github.com/arya-analytics/orbits/pkg/orbit/iterator"
	"github.com/arya-analytics/orbits/pkg/telem"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type session struct {
	mu   sync.Mutex
	inst *instrument.Instrument
	it   *iterator.Iterator
	// expires is zero for a session that never expires.
	expires time.Time
}

func (ses *session) expired(now time.Time) bool {
	return !ses.expires.IsZero() && !now.Before(ses.expires)
}

type createRequest struct {
	// Iterator is a representation returned by a previous session. It takes
	// precedence over the individual fields below.
	Iterator    string `json:"iterator"`
	Index       string `json:"index"`
	Kind        string `json:"kind"`
	Period      string `json:"period"`
	MinDuration string `json:"minDuration"`
	MaxScanDays int    `json:"maxScanDays"`
	// Date optionally loads a calendar day, formatted YYYY-MM-DD.
	Date string `json:"date"`
}

func (r createRequest) config() (iterator.Config, error) {
	if r.Iterator != "" {
		return iterator.Parse(r.Iterator)
	}
	kind, err := orbit.ParseKind(r.Kind)
	if err != nil {
		return iterator.Config{}, err
	}
	period, err := parseSpan(r.Period)
	if err != nil {
		return iterator.Config{}, err
	}
	minDuration, err := parseSpan(r.MinDuration)
	if err != nil {
		return iterator.Config{}, err
	}
	return iterator.Config{
		Info: orbit.Info{
			Index:       r.Index,
			Kind:        kind,
			Period:      period,
			MinDuration: minDuration,
		},
		MaxScanDays: r.MaxScanDays,
	}, nil
}

func parseSpan(s string) (telem.TimeSpan, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "[api] - invalid duration %q", s), orbit.ErrConfiguration)
	}
	return telem.NewTimeSpan(d), nil
}

type orbitResponse struct {
	Day     string   `json:"day"`
	Number  int      `json:"number"`
	Total   int      `json:"total"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Samples int      `json:"samples"`
	Columns []string `json:"columns"`
}

type sessionResponse struct {
	ID       string         `json:"id"`
	Token    string         `json:"token,omitempty"`
	Iterator string         `json:"iterator"`
	Loaded   string         `json:"loaded,omitempty"`
	Orbit    *orbitResponse `json:"orbit,omitempty"`
}

func newOrbitResponse(o iterator.Orbit) *orbitResponse {
	return &orbitResponse{
		Day:     o.Day.DateString(),
		Number:  o.Number,
		Total:   o.Total,
		Start:   o.Data.First().String(),
		End:     o.Data.Last().String(),
		Samples: o.Data.Len(),
		Columns: o.Data.Keys(),
	}
}

func (ses *session) response(key uuid.UUID) sessionResponse {
	res := sessionResponse{ID: key.String(), Iterator: ses.it.String()}
	if day, ok := ses.inst.Date(); ok {
		res.Loaded = day.DateString()
	}
	if o, ok := ses.it.Selected(); ok {
		res.Orbit = newOrbitResponse(o)
	}
	return res
}

func (s *Service) create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	cfg, err := req.config()
	if err != nil {
		return errorResponse(c, err)
	}
	key := uuid.New()
	logger := s.cfg.Logger.With(zap.String("session", key.String()))
	cfg.Logger = logger.Named("iterator")
	cfg.Metrics = s.cfg.Metrics
	inst, err := instrument.New(instrument.Config{
		Source:  s.cfg.Source,
		Filters: s.cfg.Filters,
		Logger:  logger.Named("instrument"),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	it, err := iterator.New(inst, cfg)
	if err != nil {
		return errorResponse(c, err)
	}
	if req.Date != "" {
		day, err := telem.ParseDate(req.Date)
		if err != nil {
			c.Status(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		if err := inst.Load(c.UserContext(), day); err != nil {
			return errorResponse(c, err)
		}
	}
	tk, err := s.cfg.Token.New(key)
	if err != nil {
		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	ses := &session{inst: inst, it: it}
	s.put(key, ses)
	logger.Info("opened session", zap.Stringer("iterator", it))
	res := ses.response(key)
	res.Token = tk
	c.Status(fiber.StatusCreated)
	return c.JSON(res)
}

// withSession runs f holding the lock of the session addressed by the request.
func (s *Service) withSession(c *fiber.Ctx, f func(ctx context.Context, ses *session) error) error {
	key := subject(c)
	ses, ok := s.get(key)
	if !ok {
		c.Status(fiber.StatusNotFound)
		return c.JSON(fiber.Map{"error": "session not found"})
	}
	ses.mu.Lock()
	defer ses.mu.Unlock()
	if err := f(c.UserContext(), ses); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ses.response(key))
}

func (s *Service) retrieve(c *fiber.Ctx) error {
	return s.withSession(c, func(context.Context, *session) error { return nil })
}

func (s *Service) next(c *fiber.Ctx) error {
	return s.withSession(c, func(ctx context.Context, ses *session) error { return ses.it.Next(ctx) })
}

func (s *Service) prev(c *fiber.Ctx) error {
	return s.withSession(c, func(ctx context.Context, ses *session) error { return ses.it.Prev(ctx) })
}

func (s *Service) seek(c *fiber.Ctx) error {
	i, err := c.ParamsInt("i")
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"error": "orbit index must be an integer"})
	}
	return s.withSession(c, func(ctx context.Context, ses *session) error { return ses.it.Seek(ctx, i) })
}

func (s *Service) delete(c *fiber.Ctx) error {
	key := subject(c)
	if !s.remove(key) {
		c.Status(fiber.StatusNotFound)
		return c.JSON(fiber.Map{"error": "session not found"})
	}
	s.cfg.Logger.Info("closed session", zap.String("session", key.String()))
	c.Status(fiber.StatusNoContent)
	return nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, orbit.ErrConfiguration):
		return fiber.StatusBadRequest
	case errors.Is(err, orbit.ErrIndexRange), errors.Is(err, orbit.ErrNoData):
		return fiber.StatusNotFound
	case errors.Is(err, orbit.ErrOverlap):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	c.Status(errorStatus(err))
	return c.JSON(fiber.Map{"error": err.Error()})
}
