package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTimerManager_OneShot(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	m.AddTimer("once", 10*time.Millisecond, 0, func(time.Time) { calls.Add(1) })

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("one-shot ran %d times", got)
	}
	if m.Pending() != 0 {
		t.Errorf("pending = %d, want 0", m.Pending())
	}
}

func TestTimerManager_Repeats(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	id := m.Every("tick", 10*time.Millisecond, func(time.Time) { calls.Add(1) })

	waitFor(t, func() bool { return calls.Load() >= 3 })
	m.RemoveTimer(id)
	if m.Pending() != 0 {
		t.Errorf("pending = %d after remove", m.Pending())
	}
}

func TestTimerManager_RecoversFromPanic(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var after atomic.Bool
	m.AddTimer("boom", 0, 0, func(time.Time) { panic("boom") })
	m.AddTimer("next", 20*time.Millisecond, 0, func(time.Time) { after.Store(true) })

	waitFor(t, after.Load)
}

func TestTimerManager_StopIsIdempotent(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}
