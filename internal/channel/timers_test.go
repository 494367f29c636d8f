package channel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerSetAfterReplacesExisting(t *testing.T) {
	timers := newTimerSet()
	defer timers.StopAll()

	var fired int32
	timers.After("a", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	timers.After("a", 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("replaced timer fired %d times, want 1", got)
	}
	if timers.Active() != 0 {
		t.Fatalf("expired timer still counted as active")
	}
}

func TestTimerSetStopAll(t *testing.T) {
	timers := newTimerSet()

	var fired int32
	timers.After("a", 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	timers.Every("b", 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	timers.StopAll()

	if timers.Active() != 0 {
		t.Fatalf("active timers after StopAll: %d", timers.Active())
	}
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("stopped timers fired %d times", got)
	}
}

func TestTimerSetEveryRepeats(t *testing.T) {
	timers := newTimerSet()
	defer timers.StopAll()

	var fired int32
	timers.Every("tick", 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got < 2 {
		t.Fatalf("repeating timer fired %d times, want >= 2", got)
	}
}
