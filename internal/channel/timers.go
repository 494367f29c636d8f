package channel

import (
	"sync"
	"time"
)

// Names of the timers the channel arms.
const (
	timerConnectGuard    = "connect_guard"
	timerHeartbeat       = "heartbeat"
	timerReconnect       = "reconnect"
	timerCountdown       = "countdown"
	timerManualReconnect = "manual_reconnect"
)

// timerSet owns every timer the channel arms so a disconnect can clear all
// pending work as a unit. Arming a name that is already armed replaces it.
type timerSet struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	tickers map[string]chan struct{}
}

func newTimerSet() *timerSet {
	return &timerSet{
		timers:  make(map[string]*time.Timer),
		tickers: make(map[string]chan struct{}),
	}
}

// After arms a one-shot timer under name.
func (t *timerSet) After(name string, d time.Duration, fn func()) {
	t.mu.Lock()
	t.stopLocked(name)
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.timers[name] == timer {
			delete(t.timers, name)
		}
		t.mu.Unlock()
		fn()
	})
	t.timers[name] = timer
	t.mu.Unlock()
}

// Every arms a repeating timer under name.
func (t *timerSet) Every(name string, d time.Duration, fn func()) {
	t.mu.Lock()
	t.stopLocked(name)
	done := make(chan struct{})
	t.tickers[name] = done
	t.mu.Unlock()

	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop cancels the timer armed under name, if any.
func (t *timerSet) Stop(name string) {
	t.mu.Lock()
	t.stopLocked(name)
	t.mu.Unlock()
}

// StopAll cancels every armed timer.
func (t *timerSet) StopAll() {
	t.mu.Lock()
	for name := range t.timers {
		t.timers[name].Stop()
		delete(t.timers, name)
	}
	for name := range t.tickers {
		close(t.tickers[name])
		delete(t.tickers, name)
	}
	t.mu.Unlock()
}

// Active returns the number of currently armed timers.
func (t *timerSet) Active() int {
	t.mu.Lock()
	n := len(t.timers) + len(t.tickers)
	t.mu.Unlock()
	return n
}

func (t *timerSet) stopLocked(name string) {
	if timer, ok := t.timers[name]; ok {
		timer.Stop()
		delete(t.timers, name)
	}
	if done, ok := t.tickers[name]; ok {
		close(done)
		delete(t.tickers, name)
	}
}
