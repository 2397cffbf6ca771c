// Package scheduler runs the feeding control loop: it samples the local wall
// clock once per tick, compares it with the shared schedule and runs the
// actuator on a match.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	kclock "k8s.io/utils/clock"

	"github.com/sweeney/feeder/internal/actuator"
	"github.com/sweeney/feeder/internal/clock"
	"github.com/sweeney/feeder/internal/logic"
	"github.com/sweeney/feeder/internal/schedule"
)

// Defaults for the sampling loop.
const (
	DefaultTick     = time.Second
	DefaultCooldown = 60 * time.Second
)

// WallClock supplies corrected local time.
type WallClock interface {
	LocalNow() clock.LocalTime
}

// ScheduleReader supplies the current target time.
type ScheduleReader interface {
	Get() schedule.Schedule
}

// Actuator performs one feed.
type Actuator interface {
	Run() (actuator.Result, error)
}

// Observer receives loop events. Methods are called on the scheduler
// goroutine and must not block for long.
type Observer interface {
	FeedStarted(ev logic.Event)
	FeedFinished(ev logic.Event, res actuator.Result, err error)
	Heartbeat(hb logic.HeartbeatData)
}

// Config controls loop timing.
type Config struct {
	Tick      time.Duration // idle interval between samples
	Cooldown  time.Duration // pause after a feed
	Heartbeat time.Duration // 0 disables heartbeats
}

// MinCooldown is the shortest cooldown that keeps a held match from being
// observed again within the same minute.
const MinCooldown = time.Minute

// Validate checks that the cooldown can suppress a repeated match.
func (c Config) Validate() error {
	if c.Tick <= 0 {
		return errors.New("scheduler: tick must be positive")
	}
	if c.Cooldown < MinCooldown {
		return fmt.Errorf("scheduler: cooldown %v is shorter than %v", c.Cooldown, MinCooldown)
	}
	if c.Cooldown <= c.Tick {
		return fmt.Errorf("scheduler: cooldown %v must exceed tick %v", c.Cooldown, c.Tick)
	}
	return nil
}

// Scheduler is the feeding loop. Tick and Run must be called from a single
// goroutine; Guard and Counts may be called from any.
type Scheduler struct {
	cfg   Config
	wall  WallClock
	store ScheduleReader
	act   Actuator
	obs   Observer
	clk   kclock.Clock
	log   *zap.Logger

	mu       sync.Mutex // guards detector; never held across an actuation
	detector *logic.Detector
}

// New creates a Scheduler. A nil obs discards events; a nil clk uses the
// real clock.
func New(cfg Config, wall WallClock, store ScheduleReader, act Actuator, obs Observer, clk kclock.Clock, log *zap.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = kclock.RealClock{}
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cfg:      cfg,
		wall:     wall,
		store:    store,
		act:      act,
		obs:      obs,
		clk:      clk,
		log:      log,
		detector: logic.NewDetector(cfg.Cooldown, clk.Now()),
	}, nil
}

// Tick samples once and feeds on a match. It returns how long to wait before
// the next sample. An actuation fault is returned as an error and must be
// treated as fatal.
func (s *Scheduler) Tick() (time.Duration, error) {
	now := s.clk.Now()
	local := s.wall.LocalNow()
	target := s.store.Get()

	s.mu.Lock()
	hb := s.detector.CheckHeartbeat(now, s.cfg.Heartbeat)
	ev := s.detector.Process(logic.Input{
		LocalHour:    local.Hour,
		LocalMinute:  local.Minute,
		TargetHour:   target.Hour,
		TargetMinute: target.Minute,
		LocalTime:    local.String(),
		Time:         now,
	})
	s.mu.Unlock()

	if hb != nil {
		s.obs.Heartbeat(*hb)
	}
	if ev == nil {
		return s.cfg.Tick, nil
	}

	s.log.Info("feeding time",
		zap.String("schedule", target.String()),
		zap.String("local_time", ev.LocalTime))
	s.obs.FeedStarted(*ev)

	res, err := s.act.Run()
	s.mu.Lock()
	s.detector.RecordResult(err)
	s.mu.Unlock()
	s.obs.FeedFinished(*ev, res, err)
	if err != nil {
		return 0, fmt.Errorf("actuation: %w", err)
	}

	s.log.Info("feed complete",
		zap.Int("steps", res.Steps),
		zap.Duration("elapsed", res.Elapsed))

	return s.cfg.Cooldown + s.cfg.Tick, nil
}

// Run loops until ctx is cancelled or an actuation fails. Cancellation is
// observed between samples only; a running feed always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		zap.Duration("tick", s.cfg.Tick),
		zap.Duration("cooldown", s.cfg.Cooldown))

	for {
		wait, err := s.Tick()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return nil
		case <-s.clk.After(wait):
		}
	}
}

// Guard returns the fire guard state and how long the cooldown has left.
func (s *Scheduler) Guard() (logic.State, time.Duration) {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.State(), s.detector.CooldownRemaining(now)
}

// Counts returns the feeds and failures since startup.
func (s *Scheduler) Counts() logic.FeedCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Counts()
}

type nopObserver struct{}

func (nopObserver) FeedStarted(logic.Event)                          {}
func (nopObserver) FeedFinished(logic.Event, actuator.Result, error) {}
func (nopObserver) Heartbeat(logic.HeartbeatData)                    {}
