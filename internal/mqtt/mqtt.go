// Package mqtt provides MQTT publishing and remote schedule commands with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/feeder/internal/logic"
	"github.com/sweeney/feeder/internal/schedule"
)

// Topic is the MQTT topic for feed and schedule events.
const Topic = "home/feeder/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/feeder/system"

// TopicScheduleSet receives remote schedule updates as
// {"hour":H,"minute":M} in 24-hour form.
const TopicScheduleSet = "home/feeder/schedule/set"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a feed report to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(report FeedReport) error

	// PublishSchedule sends a schedule change to the broker.
	PublishSchedule(change ScheduleChange) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// FeedReport is the outcome of one scheduled feed.
type FeedReport struct {
	Event   logic.Event
	Steps   int
	Elapsed time.Duration
	Err     error
}

// ScheduleChange is an accepted schedule update.
type ScheduleChange struct {
	Timestamp time.Time
	Prev      schedule.Schedule
	Next      schedule.Schedule
	Source    string // "http", "mqtt"
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Feeder FeederPayload `json:"feeder"`
}

// FeederPayload contains the event details.
type FeederPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Schedule  string `json:"schedule"`
	LocalTime string `json:"local_time,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Steps     int    `json:"steps,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
	Previous  string `json:"previous,omitempty"`
	Source    string `json:"source,omitempty"`
}

// EventScheduleSet is the payload event name for schedule changes.
const EventScheduleSet = "SCHEDULE_SET"

// FormatPayload creates the JSON payload for a feed report.
func FormatPayload(report FeedReport) ([]byte, error) {
	ev := report.Event
	p := FeederPayload{
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(ev.Type),
		Schedule:  schedule.Schedule{Hour: ev.Hour, Minute: ev.Minute}.String(),
		LocalTime: ev.LocalTime,
		Outcome:   "ok",
		Steps:     report.Steps,
		ElapsedMs: report.Elapsed.Milliseconds(),
	}
	if report.Err != nil {
		p.Outcome = "failed"
		p.Error = report.Err.Error()
	}
	return json.Marshal(Payload{Feeder: p})
}

// FormatSchedulePayload creates the JSON payload for a schedule change.
func FormatSchedulePayload(change ScheduleChange) ([]byte, error) {
	return json.Marshal(Payload{Feeder: FeederPayload{
		Timestamp: change.Timestamp.UTC().Format(time.RFC3339),
		Event:     EventScheduleSet,
		Schedule:  change.Next.String(),
		Previous:  change.Prev.String(),
		Source:    change.Source,
	}})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// scheduleCommand is the body accepted on TopicScheduleSet.
type scheduleCommand struct {
	Hour   *int `json:"hour"`
	Minute *int `json:"minute"`
}

// ParseScheduleCommand decodes a remote schedule update. Range checks are
// left to the schedule port.
func ParseScheduleCommand(payload []byte) (hour, minute int, err error) {
	var cmd scheduleCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return 0, 0, fmt.Errorf("decode schedule command: %w", err)
	}
	if cmd.Hour == nil || cmd.Minute == nil {
		return 0, 0, fmt.Errorf("schedule command requires hour and minute")
	}
	return *cmd.Hour, *cmd.Minute, nil
}
