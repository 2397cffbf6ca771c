package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/feeder/internal/schedule"
)

func TestSetSchedule(t *testing.T) {
	m := New()
	m.SetSchedule(schedule.Schedule{Hour: 18, Minute: 45})

	assert.Equal(t, 18.0, testutil.ToFloat64(m.ScheduleHour))
	assert.Equal(t, 45.0, testutil.ToFloat64(m.ScheduleMinute))
}

func TestObserveFeed(t *testing.T) {
	m := New()
	at := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)

	m.ObserveFeed(at, 2*time.Second, nil)
	m.ObserveFeed(at.Add(time.Hour), time.Second, errors.New("jam"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Feeds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Feeds.WithLabelValues("failed")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastFeed), "failed feed must not move last feed time")
}

func TestObserveUpdate(t *testing.T) {
	m := New()
	m.ObserveUpdate("http", nil)
	m.ObserveUpdate("http", errors.New("bad"))
	m.ObserveUpdate("mqtt", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScheduleUpdates.WithLabelValues("http", ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScheduleUpdates.WithLabelValues("http", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScheduleUpdates.WithLabelValues("mqtt", ResultAccepted)))
}

func TestSetMQTTConnected(t *testing.T) {
	m := New()
	m.SetMQTTConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTConnected))
	m.SetMQTTConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MQTTConnected))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.SetSchedule(schedule.Default)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "feeder_schedule_hour 8")
}
