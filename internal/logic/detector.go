package logic

import "time"

// Detector decides when a schedule match should fire.
//
// After a fire it stays FIRED for the cooldown window and ignores matches, so
// a match that persists for the rest of the minute fires once. When the
// window has passed it returns to IDLE and a still-matching sample fires
// again.
type Detector struct {
	cooldown      time.Duration
	state         State
	firedAt       time.Time
	startTime     time.Time
	counts        FeedCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector with the given cooldown window.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(cooldown time.Duration, startTime time.Time) *Detector {
	return &Detector{
		cooldown:      cooldown,
		state:         StateIdle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes one sample and returns the feed event to perform, or nil.
func (d *Detector) Process(input Input) *Event {
	if d.state == StateFired {
		if input.Time.Sub(d.firedAt) < d.cooldown {
			return nil
		}
		d.state = StateIdle
	}

	if !input.Matches() {
		return nil
	}

	d.state = StateFired
	d.firedAt = input.Time
	return &Event{
		Timestamp: input.Time,
		Type:      EventFeed,
		Hour:      input.TargetHour,
		Minute:    input.TargetMinute,
		LocalTime: input.LocalTime,
	}
}

// RecordResult counts a completed feed attempt.
func (d *Detector) RecordResult(err error) {
	if err != nil {
		d.counts.Failures++
		return
	}
	d.counts.Feeds++
}

// State returns the current guard state.
func (d *Detector) State() State {
	return d.state
}

// CooldownRemaining returns how long the guard stays FIRED, 0 when IDLE.
func (d *Detector) CooldownRemaining(now time.Time) time.Duration {
	if d.state != StateFired {
		return 0
	}
	left := d.cooldown - now.Sub(d.firedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Counts returns a copy of the feed counters.
func (d *Detector) Counts() FeedCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
