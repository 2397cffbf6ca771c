package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/feeder/internal/schedule"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, ":80", cfg.HTTPAddr)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.Broker)
	assert.Equal(t, 17, cfg.PinStep)
	assert.Equal(t, 16, cfg.PinDir)
	assert.True(t, cfg.MotorDir)
	assert.Equal(t, 2*time.Second, cfg.FeedDuration)
	assert.Equal(t, time.Millisecond, cfg.StepDelay)
	assert.Equal(t, time.Second, cfg.Tick)
	assert.Equal(t, 60*time.Second, cfg.Cooldown)
	assert.Equal(t, schedule.Default, cfg.DefaultSchedule())
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t, "--pin-step=5", "--pin-dir=6", "--feed-duration=3s", "--default-hour=18"), "")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PinStep)
	assert.Equal(t, 6, cfg.PinDir)
	assert.Equal(t, 3*time.Second, cfg.FeedDuration)
	assert.Equal(t, 18, cfg.DefaultHour)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FEEDER_BROKER", "tcp://10.0.0.2:1883")
	t.Setenv("FEEDER_DEFAULT_MINUTE", "45")

	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.Broker)
	assert.Equal(t, 45, cfg.DefaultMinute)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cooldown: 90s\nlog-level: debug\n"), 0o600))

	cfg, err := Load(newFlags(t), path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cooldown)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(newFlags(t), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string][]string{
		"bad default hour":          {"--default-hour=24"},
		"bad default minute":        {"--default-minute=-1"},
		"zero duration":             {"--feed-duration=0s"},
		"zero step delay":           {"--step-delay=0s"},
		"cooldown below tick":       {"--tick=2s", "--cooldown=1s"},
		"cooldown below one minute": {"--cooldown=59s"},
		"cooldown not above tick":   {"--tick=90s", "--cooldown=90s"},
		"negative heartbeat":        {"--heartbeat=-1m"},
		"pins share a line":         {"--pin-step=4", "--pin-dir=4"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(newFlags(t, args...), "")
			assert.Error(t, err)
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg, err := Load(newFlags(t, "--motor-dir=false"), "")
	require.NoError(t, err)

	assert.False(t, cfg.Actuator().Direction)
	assert.Equal(t, cfg.FeedDuration, cfg.Actuator().Duration)
	assert.Equal(t, cfg.Cooldown, cfg.Scheduler().Cooldown)
	assert.Equal(t, cfg.Heartbeat, cfg.Scheduler().Heartbeat)
}
