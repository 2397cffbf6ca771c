// Package logic contains the pure feeding decision logic.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the fire guard state.
type State string

const (
	StateIdle  State = "IDLE"
	StateFired State = "FIRED"
)

// EventType identifies a feeder event.
type EventType string

const (
	EventFeed EventType = "FEED"
)

// Event represents a feed to be performed and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Hour      int // schedule hour that matched (24h)
	Minute    int // schedule minute that matched
	LocalTime string
}

// Input is a single sample: the local wall clock and the schedule read on the
// same tick.
type Input struct {
	LocalHour    int
	LocalMinute  int
	TargetHour   int
	TargetMinute int
	LocalTime    string // formatted local time, carried into the event
	Time         time.Time
}

// Matches reports whether the local time equals the target.
func (in Input) Matches() bool {
	return in.LocalHour == in.TargetHour && in.LocalMinute == in.TargetMinute
}

// FeedCounts tracks feeds since startup.
type FeedCounts struct {
	Feeds    int
	Failures int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    FeedCounts
}
