// Package schedule holds the single feeding time shared by the scheduler loop
// and the configuration handlers.
package schedule

import (
	"fmt"
	"sync"
)

// Default is the schedule installed at process start.
var Default = Schedule{Hour: 8, Minute: 0}

// Schedule is a target time of day in 24-hour form.
type Schedule struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Validate checks the hour and minute ranges.
func (s Schedule) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return &ValidationError{Field: "hour", Value: s.Hour}
	}
	if s.Minute < 0 || s.Minute > 59 {
		return &ValidationError{Field: "minute", Value: s.Minute}
	}
	return nil
}

// Matches reports whether the given local hour and minute equal the schedule.
func (s Schedule) Matches(hour, minute int) bool {
	return s.Hour == hour && s.Minute == minute
}

func (s Schedule) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// ValidationError reports an out-of-range schedule field.
type ValidationError struct {
	Field string
	Value int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: %s %d out of range", e.Field, e.Value)
}

// Store is a concurrency-safe holder for one Schedule. The hour and minute
// are always read and written together under one lock.
type Store struct {
	mu  sync.RWMutex
	cur Schedule
}

// NewStore creates a Store holding initial. initial must be valid.
func NewStore(initial Schedule) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{cur: initial}, nil
}

// Get returns a consistent copy of the stored schedule.
func (s *Store) Get() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set replaces the schedule. Out-of-range values return a *ValidationError
// and leave the stored value unchanged.
func (s *Store) Set(hour, minute int) error {
	_, err := s.swap(Schedule{Hour: hour, Minute: minute})
	return err
}

// swap validates next, stores it, and returns the value it replaced.
func (s *Store) swap(next Schedule) (Schedule, error) {
	if err := next.Validate(); err != nil {
		return Schedule{}, err
	}
	s.mu.Lock()
	prev := s.cur
	s.cur = next
	s.mu.Unlock()
	return prev, nil
}
