package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
)

var ErrUnsupported = errors.New("operation not supported by store")

const defaultHydrateTimeout = 3 * time.Second

var newPlayerStats = []string{StatTotalPlayers, StatActivePlayers}

// Source tells where a hydrated record came from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceNew     Source = "new"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Authoritative reports whether the record reflects the remote store, which
// makes it safe to write it back over the stored profile.
func (s Source) Authoritative() bool {
	return s == SourceRemote || s == SourceNew
}

// Bridge connects player economies to the remote store and the local cache.
// Remote writes go through the outbox and never block a state transition.
type Bridge struct {
	store          ProfileStore
	cache          LocalCache
	outbox         *Outbox
	rules          state.Rules
	clock          clock.Clock
	hydrateTimeout time.Duration
}

type BridgeOption func(*Bridge)

func WithHydrateTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.hydrateTimeout = d
		}
	}
}

func NewBridge(store ProfileStore, cache LocalCache, outbox *Outbox, rules state.Rules, c clock.Clock, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		store:          store,
		cache:          cache,
		outbox:         outbox,
		rules:          rules,
		clock:          c,
		hydrateTimeout: defaultHydrateTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Hydrate loads the record of playerID. The remote profile wins. A player
// unknown to the store gets defaults, which are written back and counted in
// the global stats. An unreachable store falls back to the local cache and
// then to defaults. Hydrate never fails.
func (b *Bridge) Hydrate(ctx context.Context, playerID string) (state.PlayerEconomy, Source) {
	var (
		profile    *Profile
		remoteErr  error
		local      state.PlayerEconomy
		localFound bool
	)

	var g errgroup.Group
	g.Go(func() error {
		rctx, cancel := context.WithTimeout(ctx, b.hydrateTimeout)
		defer cancel()
		// Reads follow the writes already queued for the player. When they
		// do not drain in time the expired context sends us to the cache.
		if err := b.outbox.Flush(rctx, playerID); err != nil {
			slog.Debug("Pending writes not flushed before hydration",
				slog.String("type", "db"),
				slog.String("player_id", playerID),
				slog.Any("error", err))
		}
		profile, remoteErr = b.store.Get(rctx, playerID)
		return nil
	})
	g.Go(func() error {
		local, localFound = decodeLocal(b.cache, playerID, b.rules)
		return nil
	})
	_ = g.Wait()

	var (
		pe     state.PlayerEconomy
		source Source
	)
	switch {
	case remoteErr == nil && profile != nil:
		pe, source = profile.Economy, SourceRemote
	case errors.Is(remoteErr, ErrProfileNotFound):
		pe, source = state.New(b.rules), SourceNew
		b.createProfile(playerID, pe)
	case localFound:
		pe, source = local, SourceLocal
		slog.Warn("Profile store unreachable, hydrating from local cache",
			slog.String("type", "db"),
			slog.String("player_id", playerID),
			slog.Any("error", remoteErr))
	default:
		pe, source = state.New(b.rules), SourceDefault
		slog.Warn("Profile store unreachable and nothing cached, using defaults",
			slog.String("type", "db"),
			slog.String("player_id", playerID),
			slog.Any("error", remoteErr))
	}

	pe.Normalize(b.rules, b.clock.Now())
	b.mirrorAll(playerID, pe)

	slog.Info("Player hydrated",
		slog.String("type", "db"),
		slog.String("player_id", playerID),
		slog.String("status", string(source)))
	return pe, source
}

func (b *Bridge) createProfile(playerID string, pe state.PlayerEconomy) {
	fields := NewProfileFields(pe)
	b.outbox.Enqueue(playerID, "create", func(ctx context.Context) error {
		return b.store.Set(ctx, playerID, fields, true)
	})

	stats, ok := b.store.(StatsStore)
	if !ok {
		return
	}
	for _, stat := range newPlayerStats {
		b.outbox.Enqueue(playerID, "stat", func(ctx context.Context) error {
			return stats.IncrementStat(ctx, stat, 1)
		})
	}
}

// linkMode tells how a link may write its record to the store.
type linkMode int32

const (
	// modeSynced links write their full record.
	modeSynced linkMode = iota
	// modeUnverified links were hydrated without reading the store. Their
	// first remote write checks whether the store holds a profile.
	modeUnverified
	// modeDiverged links were built beside a stored profile they never read.
	// Only increments are written so the stored record is never set back.
	modeDiverged
)

// Link is the attachment of one live economy to the bridge.
type Link struct {
	bridge      *Bridge
	playerID    string
	source      Source
	mode        atomic.Int32
	unsubscribe func()
}

// Attach starts mirroring every change of econ into the local cache and
// writing claim and task results through to the remote store.
func (b *Bridge) Attach(playerID string, source Source, econ *state.Economy) *Link {
	l := &Link{bridge: b, playerID: playerID, source: source}
	if !source.Authoritative() {
		l.mode.Store(int32(modeUnverified))
	}
	l.unsubscribe = econ.Subscribe(func(c state.Change) {
		b.mirror(playerID, c.Before.PlayerEconomy, c.State.PlayerEconomy)

		switch c.Cause {
		case state.CauseClaim, state.CauseTask:
			l.writeThrough(c)
		}
	})
	return l
}

func (l *Link) Source() Source {
	return l.source
}

// Checkpoint enqueues a full write of pe. Nothing is written while the link
// has diverged from the stored profile.
func (l *Link) Checkpoint(pe state.PlayerEconomy) bool {
	pe = pe.Clone()
	store := l.bridge.store
	playerID := l.playerID
	return l.bridge.outbox.Enqueue(playerID, "checkpoint", func(ctx context.Context) error {
		mode, created, err := l.reconcile(ctx)
		switch {
		case err != nil:
			return err
		case mode == modeDiverged:
			return nil
		case created:
			return store.Set(ctx, playerID, NewProfileFields(pe), true)
		}
		return store.Set(ctx, playerID, SnapshotFields(pe, true), true)
	})
}

func (l *Link) Detach() {
	l.unsubscribe()
}

// writeThrough persists a claim or task result: a field merge without the
// balance, then an atomic balance increment. Both jobs run on the player's
// worker one after the other, so created needs no lock.
func (l *Link) writeThrough(c state.Change) {
	pe := c.State.PlayerEconomy.Clone()
	reward := c.Reward
	store := l.bridge.store
	playerID := l.playerID
	created := false

	l.bridge.outbox.Enqueue(playerID, "set", func(ctx context.Context) error {
		mode, fresh, err := l.reconcile(ctx)
		if err != nil {
			return err
		}
		created = created || fresh
		switch {
		case mode == modeDiverged:
			if reward == 0 {
				return nil
			}
			return store.Increment(ctx, playerID, FieldScore, reward)
		case created:
			return store.Set(ctx, playerID, NewProfileFields(pe), true)
		}
		return store.Set(ctx, playerID, SnapshotFields(pe, false), true)
	})

	if reward == 0 {
		return
	}
	l.bridge.outbox.Enqueue(playerID, "increment", func(ctx context.Context) error {
		_, fresh, err := l.reconcile(ctx)
		switch {
		case err != nil:
			return err
		case fresh:
			created = true
			return store.Set(ctx, playerID, NewProfileFields(pe), true)
		case created:
			// the created profile already holds the reward
			return nil
		}
		return store.Increment(ctx, playerID, FieldBalance, reward)
	})
	if stats, ok := store.(StatsStore); ok {
		l.bridge.outbox.Enqueue(playerID, "stat", func(ctx context.Context) error {
			return stats.IncrementStat(ctx, StatOverallRewardPoints, reward)
		})
	}
}

// reconcile runs on the player's outbox worker ahead of every write of the
// link. A record that was not hydrated from the store is only written when
// the store turns out to hold no profile, in which case created is set once.
func (l *Link) reconcile(ctx context.Context) (mode linkMode, created bool, err error) {
	if m := linkMode(l.mode.Load()); m != modeUnverified {
		return m, false, nil
	}

	_, err = l.bridge.store.Get(ctx, l.playerID)
	switch {
	case err == nil:
		l.mode.Store(int32(modeDiverged))
		slog.Warn("Stored profile found after offline hydration, persisting increments only",
			slog.String("type", "db"),
			slog.String("player_id", l.playerID),
			slog.String("source", string(l.source)))
		return modeDiverged, false, nil
	case errors.Is(err, ErrProfileNotFound):
		l.mode.Store(int32(modeSynced))
		if stats, ok := l.bridge.store.(StatsStore); ok {
			for _, stat := range newPlayerStats {
				if err := stats.IncrementStat(ctx, stat, 1); err != nil {
					slog.Error("Failed to count new player",
						slog.String("type", "db"),
						slog.String("player_id", l.playerID),
						slog.String("stat", stat),
						slog.Any("error", err))
				}
			}
		}
		return modeSynced, true, nil
	default:
		return modeUnverified, false, err
	}
}

// RecordReferral persists a referral on the referrer's profile.
func (b *Bridge) RecordReferral(referrerID string, referral state.ReferralSummary) bool {
	if rs, ok := b.store.(ReferralStore); ok {
		return b.outbox.Enqueue(referrerID, "referral", func(ctx context.Context) error {
			return rs.AppendReferral(ctx, referrerID, referral)
		})
	}
	return b.outbox.Enqueue(referrerID, "referral", func(ctx context.Context) error {
		return b.store.Increment(ctx, referrerID, FieldReferralCount, 1)
	})
}

func (b *Bridge) Stats(ctx context.Context) (*GameStats, error) {
	stats, ok := b.store.(StatsStore)
	if !ok {
		return nil, ErrUnsupported
	}
	return stats.Stats(ctx)
}

func (b *Bridge) TopPlayers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	lb, ok := b.store.(LeaderboardStore)
	if !ok {
		return nil, ErrUnsupported
	}
	return lb.TopPlayers(ctx, limit)
}

func (b *Bridge) mirrorAll(playerID string, pe state.PlayerEconomy) {
	for field, value := range encodeLocal(pe) {
		b.cache.Set(LocalKey(playerID, field), value)
	}
}

// mirror writes only the cached fields that differ between two states.
func (b *Bridge) mirror(playerID string, before, after state.PlayerEconomy) {
	old := encodeLocal(before)
	for field, value := range encodeLocal(after) {
		if old[field] != value {
			b.cache.Set(LocalKey(playerID, field), value)
		}
	}
}
