package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/feeder/internal/schedule"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Schedule      ScheduleJSON `json:"schedule"`
	LocalTime     string       `json:"local_time"`
	Feeding       bool         `json:"feeding"`
	LastFeed      string       `json:"last_feed,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"feed_counts"`
	Guard         GuardJSON    `json:"guard"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ScheduleJSON is the stored schedule with its 12-hour rendering.
type ScheduleJSON struct {
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Display string `json:"display"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of feed counts.
type CountsJSON struct {
	Feeds    int `json:"feeds"`
	Failures int `json:"failures"`
}

// GuardJSON reports the fire guard. State is empty when no scheduler is
// attached.
type GuardJSON struct {
	State               string `json:"state,omitempty"`
	CooldownRemainingMs int64  `json:"cooldown_remaining_ms"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs         int64  `json:"tick_ms"`
	CooldownMs     int64  `json:"cooldown_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	FeedDurationMs int64  `json:"feed_duration_ms"`
	StepDelayUs    int64  `json:"step_delay_us"`
	PinStep        int    `json:"pin_step"`
	PinDir         int    `json:"pin_dir"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
}

// DisplayTime renders a schedule as "h:MM AM|PM".
func DisplayTime(s schedule.Schedule) string {
	h, mer := schedule.To12Hour(s.Hour)
	return fmt.Sprintf("%d:%02d %s", h, s.Minute, mer)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Schedule: ScheduleJSON{
			Hour:    snap.Schedule.Hour,
			Minute:  snap.Schedule.Minute,
			Display: DisplayTime(snap.Schedule),
		},
		LocalTime:     snap.LocalTime.String(),
		Feeding:       snap.Feeding,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Feeds:    snap.Counts.Feeds,
			Failures: snap.Counts.Failures,
		},
		Guard: GuardJSON{
			State:               string(snap.Guard),
			CooldownRemainingMs: snap.CooldownLeft.Milliseconds(),
		},
		Config: ConfigJSON{
			TickMs:         snap.Config.TickMs,
			CooldownMs:     snap.Config.CooldownMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			FeedDurationMs: snap.Config.FeedDurationMs,
			StepDelayUs:    snap.Config.StepDelayUs,
			PinStep:        snap.Config.PinStep,
			PinDir:         snap.Config.PinDir,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
	if !snap.LastFeed.IsZero() {
		inner.LastFeed = snap.LastFeed.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
