// Package actuator drives the stepper motor that dispenses food.
package actuator

import (
	"errors"
	"fmt"
	"time"

	kclock "k8s.io/utils/clock"

	"github.com/sweeney/feeder/internal/gpio"
)

// Defaults match the stock feeder hopper.
const (
	DefaultDuration   = 2 * time.Second
	DefaultPulseDelay = time.Millisecond
	DefaultDirection  = true
)

// Config is fixed for the lifetime of an Actuator.
type Config struct {
	Duration   time.Duration // total run time
	PulseDelay time.Duration // half-period of the STEP pulse
	Direction  bool          // DIR level held for the whole run
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Duration:   DefaultDuration,
		PulseDelay: DefaultPulseDelay,
		Direction:  DefaultDirection,
	}
}

// Validate rejects non-positive timings.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return errors.New("actuator: duration must be positive")
	}
	if c.PulseDelay <= 0 {
		return errors.New("actuator: pulse delay must be positive")
	}
	return nil
}

// Result describes one completed run.
type Result struct {
	Steps   int
	Elapsed time.Duration
}

// Actuator produces a bounded pulse train on STEP with DIR held constant.
// Run is blocking and must only be called from one goroutine.
type Actuator struct {
	step gpio.Line
	dir  gpio.Line
	cfg  Config
	clk  kclock.Clock
}

// New creates an Actuator. A nil clk uses the real clock.
func New(step, dir gpio.Line, cfg Config, clk kclock.Clock) (*Actuator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = kclock.RealClock{}
	}
	return &Actuator{step: step, dir: dir, cfg: cfg, clk: clk}, nil
}

// Config returns the actuator configuration.
func (a *Actuator) Config() Config {
	return a.cfg
}

// Run sets DIR once and then pulses STEP until Duration has elapsed.
// A line write failure aborts the run and is returned; the mechanism may be
// left part-way through a feed.
func (a *Actuator) Run() (Result, error) {
	if err := a.dir.SetLevel(a.cfg.Direction); err != nil {
		return Result{}, fmt.Errorf("set direction: %w", err)
	}

	start := a.clk.Now()
	steps := 0
	for a.clk.Since(start) < a.cfg.Duration {
		if err := a.step.SetLevel(true); err != nil {
			return Result{Steps: steps, Elapsed: a.clk.Since(start)}, fmt.Errorf("step high: %w", err)
		}
		a.clk.Sleep(a.cfg.PulseDelay)
		if err := a.step.SetLevel(false); err != nil {
			return Result{Steps: steps, Elapsed: a.clk.Since(start)}, fmt.Errorf("step low: %w", err)
		}
		a.clk.Sleep(a.cfg.PulseDelay)
		steps++
	}

	return Result{Steps: steps, Elapsed: a.clk.Since(start)}, nil
}
