// Package status provides a thread-safe status tracker for the feeder daemon.
// It is read by HTTP handlers and MQTT heartbeats while the scheduler
// goroutine writes feed results into it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/feeder/internal/clock"
	"github.com/sweeney/feeder/internal/logic"
	"github.com/sweeney/feeder/internal/schedule"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs         int64
	CooldownMs     int64
	HeartbeatMs    int64
	FeedDurationMs int64
	StepDelayUs    int64
	PinStep        int
	PinDir         int
	Broker         string
	HTTPAddr       string
}

// ScheduleSource supplies the current schedule.
type ScheduleSource interface {
	Get() schedule.Schedule
}

// LocalClock supplies the corrected local time.
type LocalClock interface {
	LocalNow() clock.LocalTime
}

// GuardSource supplies the fire guard state and the feed counters. The
// scheduler owns both; the tracker only reads them.
type GuardSource interface {
	Guard() (logic.State, time.Duration)
	Counts() logic.FeedCounts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Schedule      schedule.Schedule
	LocalTime     clock.LocalTime
	Feeding       bool
	LastFeed      time.Time // zero if never fed
	LastError     string
	Counts        logic.FeedCounts
	Guard         logic.State
	CooldownLeft  time.Duration
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
// The schedule itself is not copied in; it is read from the store on every
// Snapshot so the tracker never shows a stale value.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	sched ScheduleSource
	wall  LocalClock
	guard GuardSource
	now   func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// sched and wall may be nil.
func NewTracker(startTime time.Time, cfg Config, sched ScheduleSource, wall LocalClock) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		sched: sched,
		wall:  wall,
		now:   time.Now,
	}
}

// FeedStarted marks an actuation in progress.
func (t *Tracker) FeedStarted() {
	t.mu.Lock()
	t.snap.Feeding = true
	t.mu.Unlock()
}

// FeedFinished records the outcome of an actuation. Counters are not kept
// here; they come from the guard source.
func (t *Tracker) FeedFinished(at time.Time, err error) {
	t.mu.Lock()
	t.snap.Feeding = false
	if err != nil {
		t.snap.LastError = err.Error()
	} else {
		t.snap.LastFeed = at
		t.snap.LastError = ""
	}
	t.mu.Unlock()
}

// SetGuard attaches the source of guard state and feed counters.
func (t *Tracker) SetGuard(g GuardSource) {
	t.mu.Lock()
	t.guard = g
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	guard := t.guard
	t.mu.RUnlock()

	s.Now = t.now()
	if t.sched != nil {
		s.Schedule = t.sched.Get()
	}
	if t.wall != nil {
		s.LocalTime = t.wall.LocalNow()
	}
	if guard != nil {
		s.Guard, s.CooldownLeft = guard.Guard()
		s.Counts = guard.Counts()
	}
	return s
}
