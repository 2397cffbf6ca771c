// Package config loads daemon settings from flags, FEEDER_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/feeder/internal/actuator"
	"github.com/sweeney/feeder/internal/gpio"
	"github.com/sweeney/feeder/internal/schedule"
	"github.com/sweeney/feeder/internal/scheduler"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "FEEDER"

// Config is the resolved daemon configuration.
type Config struct {
	HTTPAddr      string        `mapstructure:"http"`
	Broker        string        `mapstructure:"broker"`
	ClientID      string        `mapstructure:"client-id"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
	GPIOChip      string        `mapstructure:"gpio-chip"`
	PinStep       int           `mapstructure:"pin-step"`
	PinDir        int           `mapstructure:"pin-dir"`
	MotorDir      bool          `mapstructure:"motor-dir"`
	FeedDuration  time.Duration `mapstructure:"feed-duration"`
	StepDelay     time.Duration `mapstructure:"step-delay"`
	Tick          time.Duration `mapstructure:"tick"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	DefaultHour   int           `mapstructure:"default-hour"`
	DefaultMinute int           `mapstructure:"default-minute"`
	FakeGPIO      bool          `mapstructure:"fake-gpio"`
	LogLevel      string        `mapstructure:"log-level"`
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http", ":80", "HTTP listen address (empty to disable)")
	fs.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	fs.String("client-id", "feeder", "MQTT client ID")
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.String("gpio-chip", gpio.DefaultChip, "GPIO character device")
	fs.Int("pin-step", gpio.DefaultPinStep, "BCM pin number for the stepper STEP line")
	fs.Int("pin-dir", gpio.DefaultPinDir, "BCM pin number for the stepper DIR line")
	fs.Bool("motor-dir", actuator.DefaultDirection, "DIR level during a feed")
	fs.Duration("feed-duration", actuator.DefaultDuration, "Motor run time per feed")
	fs.Duration("step-delay", actuator.DefaultPulseDelay, "STEP pulse half-period")
	fs.Duration("tick", scheduler.DefaultTick, "Clock sampling interval")
	fs.Duration("cooldown", scheduler.DefaultCooldown, "Pause after a feed")
	fs.Int("default-hour", schedule.Default.Hour, "Feeding hour at startup (0-23, local)")
	fs.Int("default-minute", schedule.Default.Minute, "Feeding minute at startup (0-59)")
	fs.Bool("fake-gpio", false, "Drive in-memory lines instead of hardware")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
}

// Load binds fs into a fresh viper instance, reads file if non-empty, and
// decodes the result.
func Load(fs *pflag.FlagSet, file string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if err := c.Actuator().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Scheduler().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.DefaultSchedule().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("default schedule: %w", err))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}
	if c.PinStep == c.PinDir {
		errs = append(errs, fmt.Errorf("pin-step and pin-dir both set to %d", c.PinStep))
	}
	return errors.Join(errs...)
}

// Actuator returns the actuator settings.
func (c Config) Actuator() actuator.Config {
	return actuator.Config{
		Duration:   c.FeedDuration,
		PulseDelay: c.StepDelay,
		Direction:  c.MotorDir,
	}
}

// Scheduler returns the loop settings.
func (c Config) Scheduler() scheduler.Config {
	return scheduler.Config{
		Tick:      c.Tick,
		Cooldown:  c.Cooldown,
		Heartbeat: c.Heartbeat,
	}
}

// DefaultSchedule returns the schedule installed at startup.
func (c Config) DefaultSchedule() schedule.Schedule {
	return schedule.Schedule{Hour: c.DefaultHour, Minute: c.DefaultMinute}
}
