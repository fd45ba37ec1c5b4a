package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/storges/tapminer/tapminer/economy/clock"
	"github.com/storges/tapminer/tapminer/economy/state"
	"github.com/storges/tapminer/tapminer/persistence"
	"github.com/storges/tapminer/tapminer/persistence/mock"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.9 }
func (fixedRand) IntN(int) int     { return 0 }

type recordingAnnouncer struct {
	mu       sync.Mutex
	promoted []state.Tier
	maxed    []state.Track
}

func (a *recordingAnnouncer) Promoted(_ string, _, to state.Tier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promoted = append(a.promoted, to)
}

func (a *recordingAnnouncer) Maxed(_ string, t state.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxed = append(a.maxed, t)
}

type chanArchiver chan state.Snapshot

func (c chanArchiver) Archive(_ context.Context, _ string, snap state.Snapshot) error {
	c <- snap
	return nil
}

type fixture struct {
	store   *mock.MockStore
	clock   *clock.Manual
	manager *Manager
}

// newFixture builds a manager over a mock store that accepts every write.
// Get expectations are left to the caller.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := mock.NewMockStore(gomock.NewController(t))
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return buildFixture(t, store, opts...)
}

// newStoredFixture builds a manager over a mock store that keeps profiles
// in memory and applies every write slowly.
func newStoredFixture(t *testing.T, opts ...Option) (*fixture, *memoryProfiles) {
	t.Helper()
	profiles := &memoryProfiles{profiles: map[string]state.PlayerEconomy{}}
	store := mock.NewMockStore(gomock.NewController(t))
	store.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(profiles.get).AnyTimes()
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(profiles.set).AnyTimes()
	store.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(profiles.increment).AnyTimes()
	return buildFixture(t, store, opts...), profiles
}

func buildFixture(t *testing.T, store *mock.MockStore, opts ...Option) *fixture {
	t.Helper()
	store.EXPECT().IncrementStat(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().AppendReferral(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	c := clock.NewManual(epoch)
	outbox := persistence.NewOutbox(persistence.OutboxConfig{Workers: 1, MaxAttempts: 1})
	t.Cleanup(func() { _ = outbox.Close(context.Background()) })

	rules := state.DefaultRules()
	bridge := persistence.NewBridge(store, persistence.NewLRUCache(256), outbox, rules, c)

	opts = append([]Option{WithClock(c), WithRand(fixedRand{})}, opts...)
	m := NewManager(Config{IdleTimeout: 10 * time.Minute, CheckpointInterval: time.Minute}, rules, bridge, opts...)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	return &fixture{store: store, clock: c, manager: m}
}

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]state.PlayerEconomy
}

func (m *memoryProfiles) put(playerID string, pe state.PlayerEconomy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[playerID] = pe
}

func (m *memoryProfiles) get(_ context.Context, playerID string) (*persistence.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, ok := m.profiles[playerID]
	if !ok {
		return nil, persistence.ErrProfileNotFound
	}
	return &persistence.Profile{PlayerID: playerID, Economy: pe.Clone()}, nil
}

func (m *memoryProfiles) set(_ context.Context, playerID string, fields persistence.Fields, _ bool) error {
	time.Sleep(20 * time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, ok := m.profiles[playerID]
	if !ok {
		pe = state.New(state.DefaultRules())
	}
	if err := persistence.ApplyFields(&pe, fields); err != nil {
		return err
	}
	m.profiles[playerID] = pe
	return nil
}

func (m *memoryProfiles) increment(_ context.Context, playerID, field string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pe, ok := m.profiles[playerID]
	if !ok {
		return persistence.ErrProfileNotFound
	}
	switch field {
	case persistence.FieldScore:
		pe.Score += delta
	case persistence.FieldBalance:
		pe.Balance += delta
	case persistence.FieldReferralCount:
		pe.ReferralCount += int(delta)
	}
	m.profiles[playerID] = pe
	return nil
}

func (f *fixture) expectProfile(playerID string, pe state.PlayerEconomy) {
	f.store.EXPECT().Get(gomock.Any(), playerID).
		Return(&persistence.Profile{PlayerID: playerID, Economy: pe}, nil).Times(1)
}

func TestOpenReusesLiveSession(t *testing.T) {
	f := newFixture(t)
	f.expectProfile("p1", state.New(state.DefaultRules()))

	first, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	second, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if first != second {
		t.Error("Open() returned a second session for the same player")
	}
	if f.manager.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.manager.Len())
	}
}

func TestConcurrentOpenHydratesOnce(t *testing.T) {
	f := newFixture(t)
	f.expectProfile("p1", state.New(state.DefaultRules()))

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.manager.Open(context.Background(), "p1")
			if err != nil {
				t.Errorf("Open() error = %v", err)
				return
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range sessions[1:] {
		if s != sessions[0] {
			t.Fatal("concurrent Open() produced distinct sessions")
		}
	}
}

func TestSessionActions(t *testing.T) {
	f := newFixture(t)
	pe := state.New(state.DefaultRules())
	pe.Score = 500
	f.expectProfile("p1", pe)

	s, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if !s.Tap(10, 20) {
		t.Fatal("Tap() rejected")
	}
	if got := s.Snapshot().Score; got != 501 {
		t.Errorf("Score after tap = %v, want 501", got)
	}

	if !s.BuyUpgrade(state.TrackMultiplier) {
		t.Fatal("BuyUpgrade() rejected")
	}
	if snap := s.Snapshot(); snap.Upgrades[state.TrackMultiplier].Level != 2 || snap.Score != 401 {
		t.Errorf("after upgrade level/score = %d/%v, want 2/401", snap.Upgrades[state.TrackMultiplier].Level, snap.Score)
	}

	if _, err := s.ClaimTask("no_such_task_at_all"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("ClaimTask() error = %v, want ErrUnknownTask", err)
	}
	ok, err := s.ClaimTask("subscribe_telegram")
	if err != nil || !ok {
		t.Fatalf("ClaimTask() = %v, %v", ok, err)
	}
	if ok, _ := s.ClaimTask("subscribe_telegram"); ok {
		t.Error("ClaimTask() paid twice")
	}
}

func TestClosedSessionRejectsActions(t *testing.T) {
	archived := make(chanArchiver, 1)
	f := newFixture(t, WithArchiver(archived))
	f.expectProfile("p1", state.New(state.DefaultRules()))

	s, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Tap(0, 0)

	if !f.manager.Close("p1") {
		t.Fatal("Close() found no session")
	}
	if f.manager.Close("p1") {
		t.Error("second Close() reported a live session")
	}

	if s.Tap(0, 0) || s.Claim() || s.ActivateTapBoost() {
		t.Error("closed session accepted an action")
	}
	if _, err := s.ClaimTask("subscribe_telegram"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("ClaimTask() error = %v, want ErrSessionClosed", err)
	}

	select {
	case snap := <-archived:
		if snap.Score != 1 {
			t.Errorf("archived score = %v, want 1", snap.Score)
		}
	case <-time.After(time.Second):
		t.Fatal("snapshot was not archived")
	}

	f.clock.Advance(time.Minute)
	if got := s.Snapshot().Energy; got != state.DefaultInitialEnergy-state.TapEnergyCost {
		t.Errorf("energy changed after close: %d", got)
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	f.expectProfile("idle", state.New(state.DefaultRules()))
	f.expectProfile("busy", state.New(state.DefaultRules()))

	idle, _ := f.manager.Open(context.Background(), "idle")
	busy, _ := f.manager.Open(context.Background(), "busy")

	f.clock.Advance(9 * time.Minute)
	busy.Tap(1, 1)
	f.manager.Sweep()

	if !busy.LastCheckpoint().Equal(f.clock.Now()) {
		t.Errorf("busy LastCheckpoint = %v, want %v", busy.LastCheckpoint(), f.clock.Now())
	}

	f.clock.Advance(2 * time.Minute)
	f.manager.Sweep()

	if !idle.Closed() {
		t.Error("idle session survived the sweep")
	}
	if busy.Closed() {
		t.Error("active session was closed")
	}
	if _, ok := f.manager.Get("idle"); ok {
		t.Error("Get() returned an evicted session")
	}
}

func TestRecordReferralUpdatesLiveSession(t *testing.T) {
	f := newFixture(t)
	f.expectProfile("p1", state.New(state.DefaultRules()))

	s, _ := f.manager.Open(context.Background(), "p1")
	if !f.manager.RecordReferral("p1", state.ReferralSummary{PlayerID: "p2", Name: "fren"}) {
		t.Fatal("RecordReferral() dropped")
	}

	snap := s.Snapshot()
	if snap.ReferralCount != 1 || len(snap.Referrals) != 1 {
		t.Fatalf("referrals = %d/%d, want 1/1", snap.ReferralCount, len(snap.Referrals))
	}
	if !snap.Referrals[0].JoinedAt.Equal(epoch) {
		t.Errorf("JoinedAt = %v, want %v", snap.Referrals[0].JoinedAt, epoch)
	}
}

func TestAnnouncements(t *testing.T) {
	a := &recordingAnnouncer{}
	f := newFixture(t, WithAnnouncer(a))

	pe := state.New(state.DefaultRules())
	pe.Score = 1_000_000
	pe.Balance = 900
	pe.Upgrades[state.TrackCharger].Level = state.MaxTrackLevel - 1
	f.expectProfile("p1", pe)

	s, _ := f.manager.Open(context.Background(), "p1")
	s.GrantTaskReward(200)
	s.BuyUpgrade(state.TrackCharger)

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.promoted) != 1 || a.promoted[0].Name != "Working Class" {
		t.Errorf("promotions = %v, want [Working Class]", a.promoted)
	}
	if len(a.maxed) != 1 || a.maxed[0] != state.TrackCharger {
		t.Errorf("maxed = %v, want [charger]", a.maxed)
	}
}

func TestReopenAfterCloseSeesFinalCheckpoint(t *testing.T) {
	f, profiles := newStoredFixture(t)
	stored := state.New(state.DefaultRules())
	stored.Score = 1000
	profiles.put("p1", stored)

	s, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for range 3 {
		s.Tap(0, 0)
	}
	if !s.BuyUpgrade(state.TrackCharger) {
		t.Fatal("BuyUpgrade() rejected")
	}
	want := s.Snapshot()

	f.manager.Close("p1")
	reopened, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	if reopened == s {
		t.Fatal("Open() after Close returned the closed session")
	}

	got := reopened.Snapshot()
	if got.Score != want.Score || got.Energy != want.Energy {
		t.Errorf("reopened score/energy = %v/%d, want %v/%d", got.Score, got.Energy, want.Score, want.Energy)
	}
	if got.Upgrades[state.TrackCharger].Level != want.Upgrades[state.TrackCharger].Level {
		t.Errorf("reopened charger level = %d, want %d",
			got.Upgrades[state.TrackCharger].Level, want.Upgrades[state.TrackCharger].Level)
	}
}

func TestTimedTapBoostEndsWithItsSession(t *testing.T) {
	f, profiles := newStoredFixture(t)
	profiles.put("p1", state.New(state.DefaultRules()))

	s, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !s.ActivateTapBoost() {
		t.Fatal("ActivateTapBoost() rejected")
	}
	f.manager.Close("p1")

	reopened, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	if reopened.Snapshot().TapBoostActive {
		t.Error("timed tap boost was restored without an expiry")
	}

	f.clock.Advance(5 * time.Minute)
	if snap := reopened.Snapshot(); snap.TapBoostActive || snap.TapBoostPermanent {
		t.Errorf("tap boost active/permanent = %v/%v after reload, want false/false", snap.TapBoostActive, snap.TapBoostPermanent)
	}
}

func TestTapAccrueClaim(t *testing.T) {
	f := newFixture(t)
	pe := state.New(state.DefaultRules())
	pe.Score = 0
	pe.Energy = 5000
	pe.MaxEnergy = 6500
	f.expectProfile("p1", pe)

	s, err := f.manager.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if !s.Tap(0, 0) {
		t.Fatal("Tap() rejected")
	}
	if snap := s.Snapshot(); snap.Score != 1 || snap.Energy != 4990 {
		t.Fatalf("after tap score/energy = %v/%d, want 1/4990", snap.Score, snap.Energy)
	}

	f.clock.Advance(state.AccrualInterval)
	if got := s.Snapshot().ClaimableAmount; got != 50 {
		t.Fatalf("claimable after one accrual interval = %v, want 50", got)
	}

	claimedAt := f.clock.Now()
	if !s.Claim() {
		t.Fatal("Claim() rejected")
	}
	snap := s.Snapshot()
	if snap.Score != 51 || snap.ClaimableAmount != 0 {
		t.Errorf("after claim score/claimable = %v/%v, want 51/0", snap.Score, snap.ClaimableAmount)
	}
	if !snap.CooldownUntil.Equal(claimedAt.Add(state.ClaimCooldown)) {
		t.Errorf("cooldown until = %v, want %v", snap.CooldownUntil, claimedAt.Add(state.ClaimCooldown))
	}
}
