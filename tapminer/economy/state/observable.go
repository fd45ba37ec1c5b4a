package state

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Cause names what triggered a committed mutation.
type Cause string

const (
	CauseHydrate  Cause = "hydrate"
	CauseTap      Cause = "tap"
	CauseClaim    Cause = "claim"
	CauseUpgrade  Cause = "upgrade"
	CauseTask     Cause = "task"
	CauseRegen    Cause = "regen"
	CauseAccrual  Cause = "accrual"
	CauseMining   Cause = "mining"
	CauseTapBoost Cause = "tapboost"
	CauseCooldown Cause = "cooldown"
	CauseReferral Cause = "referral"
)

// TapEvent is the transient visual feedback of a tap. It is never persisted.
type TapEvent struct {
	ID     snowflake.ID `json:"id"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Points float64      `json:"points"`
	At     time.Time    `json:"at"`
}

// Change describes one committed mutation. Mutators fill Tap, Maxed, Reward
// and Task; the Economy fills Before and State.
type Change struct {
	Cause  Cause    `json:"cause"`
	Before Snapshot `json:"-"`
	State  Snapshot `json:"state"`

	Tap    *TapEvent `json:"tap,omitempty"`
	Maxed  *Track    `json:"maxed,omitempty"`
	Reward float64   `json:"reward,omitempty"`
	Task   string    `json:"task,omitempty"`
}

// Observer receives every committed change in commit order. Observers run
// while the Economy is locked: they must not block or call back into it.
type Observer func(Change)

type subscription struct {
	id int
	fn Observer
}

// Economy serializes every read-modify-write on one PlayerEconomy and
// notifies observers of each committed change.
type Economy struct {
	mu        sync.Mutex
	rules     Rules
	pe        PlayerEconomy
	observers []subscription
	nextID    int
}

func NewEconomy(rules Rules, pe PlayerEconomy) *Economy {
	return &Economy{rules: rules, pe: pe.Clone()}
}

func (e *Economy) Rules() Rules {
	return e.rules
}

// Update runs fn on the live state. When fn reports a change the mutation
// is committed and observers are notified before Update returns. When fn
// returns false any partial edits are discarded.
func (e *Economy) Update(cause Cause, fn func(pe *PlayerEconomy, c *Change) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.pe.Clone()
	c := Change{Cause: cause}
	if !fn(&e.pe, &c) {
		e.pe = before
		return false
	}

	c.Before = NewSnapshot(before, e.rules)
	c.State = NewSnapshot(e.pe, e.rules)
	for _, s := range e.observers {
		s.fn(c)
	}
	return true
}

// View runs fn with a copy of the current state while holding the lock, so
// fn observes a state no concurrent mutation can interleave with.
func (e *Economy) View(fn func(pe PlayerEconomy)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.pe.Clone())
}

func (e *Economy) State() PlayerEconomy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pe.Clone()
}

func (e *Economy) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return NewSnapshot(e.pe, e.rules)
}

// Subscribe registers fn and returns a function removing it again.
func (e *Economy) Subscribe(fn Observer) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.observers = append(e.observers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.observers {
				if s.id == id {
					e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
					break
				}
			}
		})
	}
}
