package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/storges/tapminer/tapminer/economy/actions"
	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/scheduler"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/economy/tasks"
	"github.com/storges/tapminer/tapminer/persistence"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrUnknownTask   = tasks.ErrUnknownTask
)

const archiveTimeout = 30 * time.Second

// Announcer publishes notable progress. Implementations must not block.
type Announcer interface {
	Promoted(playerID string, from, to state.Tier)
	Maxed(playerID string, track state.Track)
}

// Archiver stores the final snapshot of a closed session.
type Archiver interface {
	Archive(ctx context.Context, playerID string, snap state.Snapshot) error
}

// Session owns the live economy of one player: its state, timers, action
// processor and the link to persistence. Everything is torn down by Close.
type Session struct {
	playerID string
	econ     *state.Economy
	sched    *scheduler.Scheduler
	proc     *actions.Processor
	link     *persistence.Link
	clock    clock.Clock
	archiver Archiver

	lastActive     atomic.Int64
	lastCheckpoint atomic.Int64
	closed         atomic.Bool
	closeOnce      sync.Once
	done           chan struct{}
	unsubscribe    func()
}

type deps struct {
	rules     state.Rules
	clock     clock.Clock
	bridge    *persistence.Bridge
	announcer Announcer
	archiver  Archiver
	rng       actions.Rand
}

func newSession(playerID string, pe state.PlayerEconomy, source persistence.Source, d deps) *Session {
	econ := state.NewEconomy(d.rules, pe)
	sched := scheduler.New(econ, d.clock)

	opts := []actions.Option{actions.WithTapBooster(sched)}
	if d.rng != nil {
		opts = append(opts, actions.WithRand(d.rng))
	}

	s := &Session{
		playerID: playerID,
		econ:     econ,
		sched:    sched,
		proc:     actions.NewProcessor(econ, d.clock, opts...),
		link:     d.bridge.Attach(playerID, source, econ),
		clock:    d.clock,
		archiver: d.archiver,
		done:     make(chan struct{}),
	}

	now := d.clock.Now().UnixNano()
	s.lastActive.Store(now)
	s.lastCheckpoint.Store(now)

	if d.announcer != nil {
		announcer := d.announcer
		s.unsubscribe = econ.Subscribe(func(c state.Change) {
			if c.State.TierIndex > c.Before.TierIndex {
				announcer.Promoted(playerID, c.Before.Tier, c.State.Tier)
			}
			if c.Maxed != nil {
				announcer.Maxed(playerID, *c.Maxed)
			}
		})
	}

	sched.Start()
	return s
}

func (s *Session) PlayerID() string {
	return s.playerID
}

func (s *Session) Snapshot() state.Snapshot {
	return s.econ.Snapshot()
}

// Subscribe delivers every committed change to fn. fn runs while the
// economy is locked and must hand the change off without blocking.
func (s *Session) Subscribe(fn state.Observer) (unsubscribe func()) {
	return s.econ.Subscribe(fn)
}

func (s *Session) Tap(x, y float64) bool {
	if !s.touch() {
		return false
	}
	return s.proc.Tap(x, y)
}

func (s *Session) Claim() bool {
	if !s.touch() {
		return false
	}
	return s.proc.Claim()
}

func (s *Session) BuyUpgrade(t state.Track) bool {
	if !s.touch() {
		return false
	}
	return s.proc.BuyUpgrade(t)
}

func (s *Session) GrantTaskReward(amount float64) bool {
	if !s.touch() {
		return false
	}
	return s.proc.GrantTaskReward(amount)
}

func (s *Session) ActivateTapBoost() bool {
	if !s.touch() {
		return false
	}
	return s.sched.ActivateTapBoost()
}

func (s *Session) Tasks() []tasks.View {
	return tasks.Evaluate(s.econ.State())
}

// ClaimTask resolves a task by name and claims it.
func (s *Session) ClaimTask(name string) (bool, error) {
	task, err := tasks.Find(name)
	if err != nil {
		return false, err
	}
	if !s.touch() {
		return false, ErrSessionClosed
	}
	return s.proc.ClaimTask(task), nil
}

// AddReferral records a referral the store already knows about.
func (s *Session) AddReferral(r state.ReferralSummary) bool {
	if s.closed.Load() {
		return false
	}
	return s.econ.Update(state.CauseReferral, func(pe *state.PlayerEconomy, _ *state.Change) bool {
		pe.ReferralCount++
		pe.Referrals = append(pe.Referrals, r)
		return true
	})
}

// Checkpoint enqueues a full write of the current state.
func (s *Session) Checkpoint() bool {
	s.lastCheckpoint.Store(s.clock.Now().UnixNano())
	return s.link.Checkpoint(s.econ.State())
}

func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) LastCheckpoint() time.Time {
	return time.Unix(0, s.lastCheckpoint.Load())
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close cancels every timer, enqueues a final checkpoint and archives the
// last snapshot. Pending remote writes are neither awaited nor rolled back.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.sched.Stop()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		final := s.econ.State()
		s.link.Checkpoint(final)
		s.link.Detach()

		if s.archiver != nil {
			snap := s.econ.Snapshot()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
				defer cancel()
				if err := s.archiver.Archive(ctx, s.playerID, snap); err != nil {
					slog.Error("Failed to archive session snapshot",
						slog.String("type", "error"),
						slog.String("player_id", s.playerID),
						slog.Any("error", err))
				}
			}()
		}

		slog.Info("Session closed",
			slog.String("type", "sys"),
			slog.String("player_id", s.playerID))
	})
}

func (s *Session) touch() bool {
	if s.closed.Load() {
		return false
	}
	s.lastActive.Store(s.clock.Now().UnixNano())
	return true
}
