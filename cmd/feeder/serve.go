package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/feeder/internal/actuator"
	"github.com/sweeney/feeder/internal/clock"
	"github.com/sweeney/feeder/internal/config"
	"github.com/sweeney/feeder/internal/logic"
	"github.com/sweeney/feeder/internal/metrics"
	"github.com/sweeney/feeder/internal/mqtt"
	"github.com/sweeney/feeder/internal/schedule"
	"github.com/sweeney/feeder/internal/scheduler"
	"github.com/sweeney/feeder/internal/status"
	"github.com/sweeney/feeder/internal/web"
)

// errStopped ends the errgroup when a shutdown signal arrives.
var errStopped = errors.New("stopped by signal")

func runServe(ctx context.Context, cfg config.Config, log *zap.Logger, sig <-chan os.Signal) error {
	store, err := schedule.NewStore(cfg.DefaultSchedule())
	if err != nil {
		return fmt.Errorf("init schedule: %w", err)
	}
	wall := clock.NewWallClock(clock.NewSystemSource(nil))

	m := metrics.New()
	m.SetSchedule(store.Get())

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg), store, wall)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	changes := make(chan mqtt.ScheduleChange, 16)
	httpPort := newPort(store, "http", log, m, changes)
	mqttPort := newPort(store, "mqtt", log, m, changes)

	publisher, err := newPublisher(cfg, log, tracker, m, mqttPort)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	step, dir, closeLines, err := openLines(cfg)
	if err != nil {
		return err
	}
	defer closeLines()

	act, err := actuator.New(step, dir, cfg.Actuator(), nil)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}

	obs := &feedObserver{tracker: tracker, metrics: m, publisher: publisher, log: log}
	sched, err := scheduler.New(cfg.Scheduler(), wall, store, act, obs, nil, log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	tracker.SetGuard(sched)

	publishSystem(publisher, tracker, log, "STARTUP", "")

	g, gctx := errgroup.WithContext(ctx)
	reason := "CANCELLED"

	g.Go(func() error {
		select {
		case s := <-sig:
			reason = signalName(s)
			log.Info("shutting down", zap.String("signal", reason))
			return errStopped
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case change := <-changes:
				if err := publisher.PublishSchedule(change); err != nil {
					log.Warn("publish schedule failed", zap.Error(err))
				}
			}
		}
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, httpPort,
			web.WithLogger(log.Named("http")),
			web.WithMetrics(m))
		g.Go(func() error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("started",
		zap.String("schedule", store.Get().String()),
		zap.String("local_time", wall.LocalNow().String()),
		zap.String("broker", cfg.Broker),
		zap.Duration("heartbeat", cfg.Heartbeat))

	err = g.Wait()
	if errors.Is(err, errStopped) {
		err = nil
	}
	if err != nil {
		reason = "FAULT"
	}

	publishSystem(publisher, tracker, log, "SHUTDOWN", reason)
	return err
}

// newPort returns a Port for one update source. Accepted changes are logged,
// recorded in metrics and queued for MQTT.
func newPort(store *schedule.Store, source string, log *zap.Logger, m *metrics.Metrics, changes chan<- mqtt.ScheduleChange) *schedule.Port {
	return schedule.NewPort(store, func(prev, next schedule.Schedule) {
		log.Info("schedule updated",
			zap.String("source", source),
			zap.String("previous", prev.String()),
			zap.String("schedule", next.String()))
		m.SetSchedule(next)

		select {
		case changes <- mqtt.ScheduleChange{Timestamp: time.Now(), Prev: prev, Next: next, Source: source}:
		default:
			log.Warn("schedule event queue full, dropping", zap.String("source", source))
		}
	})
}

func newPublisher(cfg config.Config, log *zap.Logger, tracker *status.Tracker, m *metrics.Metrics, port *schedule.Port) (mqtt.Publisher, error) {
	if cfg.Broker == "" {
		log.Info("mqtt disabled")
		return nopPublisher{}, nil
	}
	p, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		OnCommand: func(hour, minute int) error {
			err := port.ApplySchedule(hour, minute)
			m.ObserveUpdate("mqtt", err)
			return err
		},
		OnConnectionChange: func(connected bool) {
			tracker.SetMQTTConnected(connected)
			m.SetMQTTConnected(connected)
		},
		Log: log.Named("mqtt"),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// feedObserver fans scheduler events out to the tracker, metrics and MQTT.
type feedObserver struct {
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	publisher mqtt.Publisher
	log       *zap.Logger
}

func (o *feedObserver) FeedStarted(logic.Event) {
	o.tracker.FeedStarted()
}

func (o *feedObserver) FeedFinished(ev logic.Event, res actuator.Result, err error) {
	o.tracker.FeedFinished(ev.Timestamp, err)
	o.metrics.ObserveFeed(ev.Timestamp, res.Elapsed, err)

	report := mqtt.FeedReport{Event: ev, Steps: res.Steps, Elapsed: res.Elapsed, Err: err}
	if perr := o.publisher.Publish(report); perr != nil {
		// Don't crash on publish failure
		o.log.Warn("publish feed failed", zap.Error(perr))
	}
}

func (o *feedObserver) Heartbeat(hb logic.HeartbeatData) {
	o.log.Info("heartbeat",
		zap.Duration("uptime", hb.Uptime),
		zap.Int("feeds", hb.Counts.Feeds),
		zap.Int("failures", hb.Counts.Failures))

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		o.tracker.SetNetwork(net)
	}
	snap := o.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := o.publisher.PublishSystem(event); err != nil {
		o.log.Warn("heartbeat publish failed", zap.Error(err))
	}
}

func publishSystem(p mqtt.Publisher, tracker *status.Tracker, log *zap.Logger, event, reason string) {
	snap := tracker.Snapshot()
	err := p.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warn("publish system event failed", zap.String("event", event), zap.Error(err))
		return
	}
	log.Info("published system event", zap.String("event", event))
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		TickMs:         cfg.Tick.Milliseconds(),
		CooldownMs:     cfg.Cooldown.Milliseconds(),
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
		FeedDurationMs: cfg.FeedDuration.Milliseconds(),
		StepDelayUs:    cfg.StepDelay.Microseconds(),
		PinStep:        cfg.PinStep,
		PinDir:         cfg.PinDir,
		Broker:         cfg.Broker,
		HTTPAddr:       cfg.HTTPAddr,
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// nopPublisher is used when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) Publish(mqtt.FeedReport) error             { return nil }
func (nopPublisher) PublishSchedule(mqtt.ScheduleChange) error { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error      { return nil }
func (nopPublisher) Close() error                              { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
