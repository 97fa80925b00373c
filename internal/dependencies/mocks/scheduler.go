package mocks

import (
	"sync"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/scheduler"
)

// ScheduledTask records a timer registered with the MockScheduler
type ScheduledTask struct {
	Key       string
	Delay     time.Duration
	Repeating bool
	fn        func()
}

// MockScheduler is a deterministic Scheduler for testing. Timers never fire
// on their own; tests trigger them explicitly with Fire.
type MockScheduler struct {
	mu    sync.Mutex
	tasks map[string]*ScheduledTask
}

// Ensure MockScheduler implements Scheduler
var _ scheduler.Scheduler = (*MockScheduler)(nil)

// NewMockScheduler creates a new MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{tasks: make(map[string]*ScheduledTask)}
}

// After registers a one-shot task under key
func (s *MockScheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[key] = &ScheduledTask{Key: key, Delay: delay, fn: fn}
}

// Every registers a repeating task under key
func (s *MockScheduler) Every(key string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[key] = &ScheduledTask{Key: key, Delay: interval, Repeating: true, fn: fn}
}

// Cancel removes the task under key, reporting whether one was pending
func (s *MockScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	delete(s.tasks, key)
	return ok
}

// Stop removes every task
func (s *MockScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*ScheduledTask)
}

// Fire runs the task registered under key, if any. One-shot tasks are
// removed before running, matching real timer semantics.
func (s *MockScheduler) Fire(key string) bool {
	s.mu.Lock()
	task, ok := s.tasks[key]
	if ok && !task.Repeating {
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	task.fn()
	return true
}

// Pending reports whether a task is registered under key
func (s *MockScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Task returns the task registered under key, or nil
func (s *MockScheduler) Task(key string) *ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[key]
}

// Keys returns the keys with registered tasks
func (s *MockScheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		keys = append(keys, k)
	}
	return keys
}
