package scheduler

import (
	"sync"
	"time"
)

// Scheduler provides cancellable keyed timers. Every timer in the system
// (bot backfill, room hard timeout, ready-check expiry, abandon grace,
// cleanup sweeps) is registered here under a context key so that state
// transitions can cancel it deterministically.
type Scheduler interface {
	// After schedules fn to run once after delay, replacing any timer
	// already registered under key
	After(key string, delay time.Duration, fn func())

	// Every schedules fn to run repeatedly at the given interval,
	// replacing any timer already registered under key
	Every(key string, interval time.Duration, fn func())

	// Cancel stops the timer registered under key. It reports whether a
	// timer was pending; a false return means the timer already fired or
	// was never armed, so the caller must not assume its transition won.
	Cancel(key string) bool

	// Stop cancels every registered timer
	Stop()
}

// TimerScheduler implements Scheduler on top of the runtime timer heap
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	tickers map[string]chan struct{}
	stopped bool
}

// New creates a new TimerScheduler
func New() *TimerScheduler {
	return &TimerScheduler{
		timers:  make(map[string]*time.Timer),
		tickers: make(map[string]chan struct{}),
	}
}

// Ensure TimerScheduler implements Scheduler
var _ Scheduler = (*TimerScheduler)(nil)

// After schedules fn to run once after delay
func (s *TimerScheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Every schedules fn on a repeating interval
func (s *TimerScheduler) Every(key string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if done, ok := s.tickers[key]; ok {
		close(done)
	}
	done := make(chan struct{})
	s.tickers[key] = done

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
}

// Cancel stops the timer registered under key
func (s *TimerScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		delete(s.timers, key)
		return t.Stop()
	}
	if done, ok := s.tickers[key]; ok {
		delete(s.tickers, key)
		close(done)
		return true
	}
	return false
}

// Stop cancels every registered timer
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	for key, done := range s.tickers {
		close(done)
		delete(s.tickers, key)
	}
}
