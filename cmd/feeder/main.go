// Command feeder runs a stepper-motor pet feeder once a day at a configured
// local time, with a web form and MQTT topic for changing that time.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/feeder/internal/actuator"
	"github.com/sweeney/feeder/internal/clock"
	"github.com/sweeney/feeder/internal/config"
	"github.com/sweeney/feeder/internal/gpio"
	"github.com/sweeney/feeder/internal/logger"
	"github.com/sweeney/feeder/internal/status"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	load := func(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
		cfg, err := config.Load(cmd.Flags(), cfgFile)
		if err != nil {
			return config.Config{}, nil, err
		}
		log, err := logger.New(cfg.LogLevel)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, log, nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := load(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		if err := runServe(cmd.Context(), cfg, log, sigCh); err != nil {
			log.Error("fatal", zap.Error(err))
			return err
		}
		return nil
	}

	root := &cobra.Command{
		Use:          "feeder",
		Short:        "Scheduled feeder controller",
		SilenceUsage: true,
		RunE:         serve,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the feeding daemon (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Print the corrected local time and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load(cmd)
			if err != nil {
				return err
			}
			wall := clock.NewWallClock(clock.NewSystemSource(nil))
			local := wall.LocalNow()
			fmt.Fprintf(cmd.OutOrStdout(), "local: %s\nschedule: %s\ndst: %v\n",
				local, status.DisplayTime(cfg.DefaultSchedule()), local.Offset == clock.OffsetCDT)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "feed",
		Short: "Run the motor once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			step, dir, closeLines, err := openLines(cfg)
			if err != nil {
				return err
			}
			defer closeLines()

			act, err := actuator.New(step, dir, cfg.Actuator(), nil)
			if err != nil {
				return err
			}
			res, err := act.Run()
			if err != nil {
				return fmt.Errorf("feed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "feed complete: steps=%d elapsed=%v\n", res.Steps, res.Elapsed)
			return nil
		},
	})

	return root
}

// openLines returns the STEP and DIR lines and a func that releases them.
func openLines(cfg config.Config) (step, dir gpio.Line, closeFn func(), err error) {
	if cfg.FakeGPIO {
		return gpio.NewFakeLine(), gpio.NewFakeLine(), func() {}, nil
	}

	chip, err := gpio.OpenChip(cfg.GPIOChip)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	s, err := chip.Output(cfg.PinStep)
	if err != nil {
		chip.Close()
		return nil, nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	d, err := chip.Output(cfg.PinDir)
	if err != nil {
		s.Close()
		chip.Close()
		return nil, nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	return s, d, func() {
		s.Close()
		d.Close()
		chip.Close()
	}, nil
}
