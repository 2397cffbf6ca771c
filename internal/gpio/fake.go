package gpio

import "sync"

// FakeLine is a test double that records every level written to it.
type FakeLine struct {
	mu sync.Mutex

	// Levels contains every value passed to SetLevel, in order.
	Levels []bool

	// SetError, if set, will be returned by SetLevel.
	SetError error

	// FailAfter, if > 0, makes SetLevel return SetError only after that
	// many successful writes.
	FailAfter int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// SetLevel records the level.
func (f *FakeLine) SetLevel(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil && len(f.Levels) >= f.FailAfter {
		return f.SetError
	}
	f.Levels = append(f.Levels, high)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Writes returns a copy of the recorded levels.
func (f *FakeLine) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.Levels...)
}

// Level returns the last written level, false if never written.
func (f *FakeLine) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Reset clears recorded levels and the closed flag.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.Levels = nil
	f.Closed = false
	f.mu.Unlock()
}
