package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/feeder/internal/clock"
	"github.com/sweeney/feeder/internal/logic"
	"github.com/sweeney/feeder/internal/metrics"
	"github.com/sweeney/feeder/internal/schedule"
	"github.com/sweeney/feeder/internal/status"
)

type testEnv struct {
	ts      *httptest.Server
	store   *schedule.Store
	tracker *status.Tracker
	guard   *fakeGuard
	metrics *metrics.Metrics
}

type fakeGuard struct {
	mu     sync.Mutex
	state  logic.State
	left   time.Duration
	counts logic.FeedCounts
}

func (g *fakeGuard) Guard() (logic.State, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.left
}

func (g *fakeGuard) Counts() logic.FeedCounts {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts
}

func (g *fakeGuard) set(state logic.State, left time.Duration, counts logic.FeedCounts) {
	g.mu.Lock()
	g.state, g.left, g.counts = state, left, counts
	g.mu.Unlock()
}

func newTestServer(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	start := time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)

	store, err := schedule.NewStore(schedule.Default)
	require.NoError(t, err)

	// 14:00 UTC in January is 08:00 CST.
	src := clock.NewFakeSource(clock.RawTime{Year: 2026, Month: 1, Day: 15, Weekday: 4, Hour: 14})
	cfg := status.Config{
		TickMs:         1000,
		CooldownMs:     60000,
		HeartbeatMs:    900000,
		FeedDurationMs: 2000,
		StepDelayUs:    1000,
		PinStep:        17,
		PinDir:         16,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPAddr:       ":80",
	}
	tr := status.NewTracker(start, cfg, store, clock.NewWallClock(src))
	g := &fakeGuard{state: logic.StateIdle}
	tr.SetGuard(g)

	m := metrics.New()
	opts = append([]Option{WithMetrics(m)}, opts...)
	srv := New(":0", tr, schedule.NewPort(store), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: store, tracker: tr, guard: g, metrics: m}
}

func (e *testEnv) postForm(t *testing.T, hour, minute, ampm string) (int, string) {
	t.Helper()
	resp, err := http.PostForm(e.ts.URL+"/", url.Values{
		"hour":   {hour},
		"minute": {minute},
		"ampm":   {ampm},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (e *testEnv) getStatus(t *testing.T) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(e.ts.URL + "/index.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var sj status.StatusJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sj))
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tracker.FeedFinished(time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC), nil)
	env.guard.set(logic.StateFired, 45*time.Second, logic.FeedCounts{Feeds: 1})
	env.tracker.SetMQTTConnected(true)

	resp, err := http.Get(env.ts.URL + "/index.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sj))

	assert.Equal(t, 8, sj.Status.Schedule.Hour)
	assert.Equal(t, 0, sj.Status.Schedule.Minute)
	assert.Equal(t, "8:00 AM", sj.Status.Schedule.Display)
	assert.Equal(t, "2026-01-15 08:00:00 (UTC-6)", sj.Status.LocalTime)
	assert.Equal(t, "2026-01-15T14:00:00Z", sj.Status.LastFeed)
	assert.Equal(t, 1, sj.Status.Counts.Feeds)
	assert.Equal(t, "FIRED", sj.Status.Guard.State)
	assert.Equal(t, int64(45000), sj.Status.Guard.CooldownRemainingMs)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, int64(60000), sj.Status.Config.CooldownMs)
	assert.Equal(t, 17, sj.Status.Config.PinStep)
}

func TestJSONNetworkInfo(t *testing.T) {
	env := newTestServer(t)
	env.tracker.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := env.getStatus(t)
	require.NotNil(t, sj.Status.Network)
	assert.Equal(t, "192.168.1.42", sj.Status.Network.IP)
}

func TestHTMLEndpoints(t *testing.T) {
	env := newTestServer(t)

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(env.ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"), path)
		assert.Contains(t, string(body), "8:00 AM", path)
		assert.Contains(t, string(body), `<option value="AM" selected>`, path)
		assert.Contains(t, string(body), "<td>IDLE</td>", path)
	}
}

func TestHTMLShowsCooldown(t *testing.T) {
	env := newTestServer(t)
	env.guard.set(logic.StateFired, 59*time.Second, logic.FeedCounts{Feeds: 1})

	resp, err := http.Get(env.ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Contains(t, string(body), "<td>FIRED (59s left)</td>")
}

func TestFormSetsSchedule(t *testing.T) {
	env := newTestServer(t)

	code, body := env.postForm(t, "6", "30", "PM")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "6:30 PM")
	assert.Equal(t, schedule.Schedule{Hour: 18, Minute: 30}, env.store.Get())

	sj := env.getStatus(t)
	assert.Equal(t, "6:30 PM", sj.Status.Schedule.Display)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ScheduleUpdates.WithLabelValues("http", metrics.ResultAccepted)))
}

func TestFormTwelveOClock(t *testing.T) {
	env := newTestServer(t)

	code, _ := env.postForm(t, "12", "00", "am")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, schedule.Schedule{Hour: 0, Minute: 0}, env.store.Get())

	code, _ = env.postForm(t, "12", "15", "PM")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, schedule.Schedule{Hour: 12, Minute: 15}, env.store.Get())
}

func TestFormRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name               string
		hour, minute, ampm string
	}{
		{"hour zero", "0", "0", "AM"},
		{"hour 13", "13", "0", "PM"},
		{"minute 60", "7", "60", "AM"},
		{"negative minute", "7", "-1", "AM"},
		{"bad meridiem", "7", "0", "XM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestServer(t)
			code, body := env.postForm(t, tc.hour, tc.minute, tc.ampm)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body, "Invalid time entered")
			assert.Equal(t, schedule.Default, env.store.Get())
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ScheduleUpdates.WithLabelValues("http", metrics.ResultRejected)))
		})
	}
}

func TestFormRejectsUnparsable(t *testing.T) {
	env := newTestServer(t)

	code, body := env.postForm(t, "seven", "0", "AM")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "Invalid input")

	code, body = env.postForm(t, "7", "", "AM")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "Invalid input")

	assert.Equal(t, schedule.Default, env.store.Get())
}

func TestAPIGetSchedule(t *testing.T) {
	env := newTestServer(t)
	require.NoError(t, env.store.Set(21, 5))

	resp, err := http.Get(env.ts.URL + "/api/schedule")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got schedule.Schedule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, schedule.Schedule{Hour: 21, Minute: 5}, got)
}

func putSchedule(t *testing.T, env *testEnv, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, env.ts.URL+"/api/schedule", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestAPIPutSchedule(t *testing.T) {
	env := newTestServer(t)

	resp, out := putSchedule(t, env, `{"hour":23,"minute":59}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 23.0, out["hour"])
	assert.Equal(t, 59.0, out["minute"])
	assert.Equal(t, schedule.Schedule{Hour: 23, Minute: 59}, env.store.Get())
}

func TestAPIPutScheduleRejects(t *testing.T) {
	env := newTestServer(t)

	resp, out := putSchedule(t, env, `{"hour":24,"minute":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "schedule: hour 24 out of range", out["error"])

	resp, _ = putSchedule(t, env, `{"hour":7}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = putSchedule(t, env, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, schedule.Default, env.store.Get())
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.ScheduleUpdates.WithLabelValues("http", metrics.ResultRejected)))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.postForm(t, "9", "15", "AM")

	resp, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `feeder_schedule_updates_total{result="accepted",source="http"} 1`)
}

func TestNoMetricsWithoutOption(t *testing.T) {
	store, err := schedule.NewStore(schedule.Default)
	require.NoError(t, err)
	tr := status.NewTracker(time.Now(), status.Config{}, store, nil)
	srv := New(":0", tr, schedule.NewPort(store))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	code, _ := (&testEnv{ts: ts}).postForm(t, "9", "15", "AM")
	assert.Equal(t, http.StatusOK, code)
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/nonexistent")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/schedule", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestFeedStateReflectedInResponse(t *testing.T) {
	env := newTestServer(t)

	assert.False(t, env.getStatus(t).Status.Feeding)

	env.tracker.FeedStarted()
	assert.True(t, env.getStatus(t).Status.Feeding)

	env.tracker.FeedFinished(time.Now(), assert.AnError)
	env.guard.set(logic.StateIdle, 0, logic.FeedCounts{Failures: 1})
	sj := env.getStatus(t)
	assert.False(t, sj.Status.Feeding)
	assert.Equal(t, 1, sj.Status.Counts.Failures)
	assert.Equal(t, assert.AnError.Error(), sj.Status.LastError)
}
