package clock

import (
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("after 2s fired %v, want [a b]", order)
	}
	if got := m.Now(); !got.Equal(start.Add(2 * time.Second)) {
		t.Errorf("Now() = %v, want start+2s", got)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop() on pending timer = false")
	}
	if timer.Stop() {
		t.Error("second Stop() = true")
	}
	m.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestManualRearmedTimersFireDuringAdvance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(100*time.Millisecond, tick)
	}
	m.AfterFunc(100*time.Millisecond, tick)

	m.Advance(time.Second)
	if ticks != 10 {
		t.Errorf("ticks = %d, want 10", ticks)
	}
}
