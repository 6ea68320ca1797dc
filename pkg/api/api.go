// Package api exposes orbit navigation sessions over HTTP. Every session owns an
// instrument and an iterator over a shared data source, and is addressed with a
// bearer token scoped to it.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/arya-analytics/orbits/pkg/api/token"
	"github.com/arya-analytics/orbits/pkg/instrument"
	"github.com/arya-analytics/orbits/pkg/metrics"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	// Source is the data source shared by every session. Required.
	Source instrument.Source
	// Filters are applied to every day a session reads.
	Filters []instrument.Filter
	// Token signs and validates session tokens. Required.
	Token *token.Service
	// SessionTTL is how long a session stays open after it is created. Defaults to
	// the token expiration, after which the session can't be addressed anyway.
	SessionTTL time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

func (c Config) merge() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.SessionTTL == 0 && c.Token != nil {
		c.SessionTTL = c.Token.Expiration
	}
	return c
}

func (c Config) validate() error {
	if c.Source == nil {
		return errors.New("[api] - source must be set")
	}
	if c.Token == nil {
		return errors.New("[api] - token service must be set")
	}
	return nil
}

type Service struct {
	cfg      Config
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func New(cfg Config) (*Service, error) {
	cfg = cfg.merge()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, sessions: make(map[uuid.UUID]*session)}, nil
}

// BindTo registers the session routes on the parent router.
func (s *Service) BindTo(parent fiber.Router) {
	router := parent.Group("/sessions")
	router.Post("/", s.create)
	protected := router.Group("/:id")
	protected.Use(TokenMiddleware(s.cfg.Token))
	protected.Get("/", s.retrieve)
	protected.Delete("/", s.delete)
	protected.Post("/next", s.next)
	protected.Post("/prev", s.prev)
	protected.Get("/orbits/:i", s.seek)
}

// App builds a fiber app serving the session routes under /api/v1.
func (s *Service) App() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(MetricsMiddleware(s.cfg.Metrics))
	s.BindTo(app.Group("/api/v1"))
	return app
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes every expired session and returns the number closed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(time.Now())
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Service) sweep(now time.Time) int {
	n := 0
	for key, ses := range s.sessions {
		if ses.expired(now) {
			delete(s.sessions, key)
			n++
		}
	}
	if n > 0 {
		s.cfg.Logger.Debug("closed expired sessions", zap.Int("count", n))
	}
	return n
}

func (s *Service) get(key uuid.UUID) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sessions[key]
	if ok && ses.expired(time.Now()) {
		delete(s.sessions, key)
		return nil, false
	}
	return ses, ok
}

func (s *Service) put(key uuid.UUID, ses *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.sweep(now)
	if s.cfg.SessionTTL > 0 {
		ses.expires = now.Add(s.cfg.SessionTTL)
	}
	s.sessions[key] = ses
}

func (s *Service) remove(key uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[key]
	delete(s.sessions, key)
	return ok
}
