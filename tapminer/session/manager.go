package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/storges/tapminer/tapminer/economy/actions"
	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/persistence"
)

const (
	defaultIdleTimeout        = 15 * time.Minute
	defaultCheckpointInterval = time.Minute
	defaultCleanupInterval    = 30 * time.Second
)

type Config struct {
	IdleTimeout        time.Duration
	CheckpointInterval time.Duration
	CleanupInterval    time.Duration
}

func (c *Config) withDefaults() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = defaultCheckpointInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaultCleanupInterval
	}
}

// Manager keeps at most one live session per player.
type Manager struct {
	cfg      Config
	bridge   *persistence.Bridge
	deps     deps
	sessions *xsync.MapOf[string, *Session]
	opening  singleflight.Group
}

type Option func(*Manager)

func WithAnnouncer(a Announcer) Option {
	return func(m *Manager) { m.deps.announcer = a }
}

func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.deps.archiver = a }
}

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.deps.clock = c }
}

func WithRand(r actions.Rand) Option {
	return func(m *Manager) { m.deps.rng = r }
}

func NewManager(cfg Config, rules state.Rules, bridge *persistence.Bridge, opts ...Option) *Manager {
	cfg.withDefaults()
	m := &Manager{
		cfg:      cfg,
		bridge:   bridge,
		sessions: xsync.NewMapOf[string, *Session](),
		deps: deps{
			rules:  rules,
			clock:  clock.Real(),
			bridge: bridge,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the live session of playerID, hydrating a new one when none
// exists. Concurrent opens of the same player share one hydration.
func (m *Manager) Open(ctx context.Context, playerID string) (*Session, error) {
	if s, ok := m.Get(playerID); ok {
		return s, nil
	}

	v, err, _ := m.opening.Do(playerID, func() (any, error) {
		if s, ok := m.Get(playerID); ok {
			return s, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		pe, source := m.bridge.Hydrate(ctx, playerID)
		s := newSession(playerID, pe, source, m.deps)
		m.sessions.Store(playerID, s)

		slog.Info("Session opened",
			slog.String("type", "sys"),
			slog.String("player_id", playerID),
			slog.String("source", string(source)),
			slog.Duration("took", time.Since(start)))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) Get(playerID string) (*Session, bool) {
	s, ok := m.sessions.Load(playerID)
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Close ends the session of playerID. It reports whether one was live.
func (m *Manager) Close(playerID string) bool {
	s, ok := m.sessions.LoadAndDelete(playerID)
	if !ok {
		return false
	}
	s.Close()
	return true
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// RecordReferral persists a referral and reflects it in the referrer's live
// session, if any.
func (m *Manager) RecordReferral(referrerID string, referral state.ReferralSummary) bool {
	if referral.JoinedAt.IsZero() {
		referral.JoinedAt = m.deps.clock.Now()
	}
	if !m.bridge.RecordReferral(referrerID, referral) {
		return false
	}
	if s, ok := m.Get(referrerID); ok {
		s.AddReferral(referral)
	}
	return true
}

// Sweep closes idle sessions and checkpoints the ones due.
func (m *Manager) Sweep() {
	now := m.deps.clock.Now()
	var idle, saved int

	m.sessions.Range(func(playerID string, s *Session) bool {
		switch {
		case now.Sub(s.LastActive()) >= m.cfg.IdleTimeout:
			m.sessions.Delete(playerID)
			s.Close()
			idle++
		case now.Sub(s.LastCheckpoint()) >= m.cfg.CheckpointInterval:
			if s.Checkpoint() {
				saved++
			}
		}
		return true
	})

	if idle > 0 || saved > 0 {
		slog.Debug("Session sweep",
			slog.String("type", "sys"),
			slog.Int("closed", idle),
			slog.Int("checkpointed", saved),
			slog.Int("live", m.sessions.Size()))
	}
}

func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Shutdown closes every live session. Their final checkpoints are queued
// on the outbox, which the caller drains afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(16)

	m.sessions.Range(func(playerID string, s *Session) bool {
		if ctx.Err() != nil {
			return false
		}
		m.sessions.Delete(playerID)
		g.Go(func() error {
			s.Close()
			return nil
		})
		return true
	})
	_ = g.Wait()

	slog.Info("Sessions shut down",
		slog.String("type", "sys"),
		slog.Int("remaining", m.sessions.Size()))
	return ctx.Err()
}
