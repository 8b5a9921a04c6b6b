package dashboard

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NavarchProject/perfdash/pkg/chart"
	"github.com/NavarchProject/perfdash/pkg/clock"
)

// DefaultMaxSessions bounds the session cache when no limit is given.
const DefaultMaxSessions = 1024

// Controller creates sessions and keeps the most recently used ones.
type Controller struct {
	cfg      Config
	src      Source
	rec      Recorder
	clock    clock.Clock
	logger   *slog.Logger
	sessions *lru.Cache[string, *Session]
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder sets the fetch observer.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the clock used to time fetches.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// NewController creates a controller holding at most maxSessions sessions.
func NewController(cfg Config, src Source, maxSessions int, opts ...Option) (*Controller, error) {
	if src == nil {
		return nil, fmt.Errorf("source is required")
	}
	for _, id := range cfg.Charts {
		if !slices.Contains(chart.IDs, id) {
			return nil, fmt.Errorf("unknown chart %q", id)
		}
	}
	switch cfg.FilterMode {
	case FilterServer, FilterClient:
	default:
		return nil, fmt.Errorf("unknown filter mode %q", cfg.FilterMode)
	}
	switch cfg.Table {
	case TableWidget, TableManual:
	default:
		return nil, fmt.Errorf("unknown table strategy %q", cfg.Table)
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	cache, err := lru.New[string, *Session](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	c := &Controller{
		cfg:      cfg,
		src:      src,
		rec:      nopRecorder{},
		clock:    clock.Real(),
		logger:   slog.Default(),
		sessions: cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "dashboard")
	return c, nil
}

// Session returns the session with the given ID.
func (c *Controller) Session(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return c.sessions.Get(id)
}

// NewSession creates and registers a new session with a fresh ID.
func (c *Controller) NewSession() *Session {
	s := newSession(uuid.NewString(), c.cfg, c.src, c.rec, c.clock, c.logger)
	c.sessions.Add(s.ID, s)
	return s
}

// Acquire returns the session for id, creating one when it is unknown or
// evicted. created reports whether a new session was made.
func (c *Controller) Acquire(id string) (s *Session, created bool) {
	if s, ok := c.Session(id); ok {
		return s, false
	}
	return c.NewSession(), true
}

// Len returns the number of cached sessions.
func (c *Controller) Len() int {
	return c.sessions.Len()
}

// Config returns the dashboard configuration.
func (c *Controller) Config() Config {
	return c.cfg
}
