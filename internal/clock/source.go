package clock

import (
	"sync"
	"time"

	kclock "k8s.io/utils/clock"
)

// SystemSource reads the host clock. On the device the host clock is kept in
// UTC by the OS time sync service.
type SystemSource struct {
	clk kclock.PassiveClock
}

// NewSystemSource creates a SystemSource. A nil clk uses the real clock.
func NewSystemSource(clk kclock.PassiveClock) *SystemSource {
	if clk == nil {
		clk = kclock.RealClock{}
	}
	return &SystemSource{clk: clk}
}

// ReadRawUTC returns the current host time as a RawTime.
func (s *SystemSource) ReadRawUTC() RawTime {
	return FromTime(s.clk.Now())
}

// FromTime converts t (in any zone) to a UTC RawTime.
func FromTime(t time.Time) RawTime {
	t = t.UTC()
	return RawTime{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Weekday:   int(t.Weekday()),
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Second:    t.Second(),
		Subsecond: t.Nanosecond(),
	}
}

// FakeSource is a test double returning a settable RawTime.
type FakeSource struct {
	mu  sync.Mutex
	raw RawTime
}

// NewFakeSource creates a FakeSource holding raw.
func NewFakeSource(raw RawTime) *FakeSource {
	return &FakeSource{raw: raw}
}

// ReadRawUTC returns the current scripted time.
func (f *FakeSource) ReadRawUTC() RawTime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw
}

// Set replaces the scripted time.
func (f *FakeSource) Set(raw RawTime) {
	f.mu.Lock()
	f.raw = raw
	f.mu.Unlock()
}
