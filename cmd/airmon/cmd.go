// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GermanBionicSystems/airmon/board"
	"github.com/GermanBionicSystems/airmon/config"
	"github.com/GermanBionicSystems/airmon/monitor"
	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCommand returns the root command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "airmon",
		Short:         "airmon shows CO2, temperature, humidity and pressure on an e-paper display",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVarP(&configPath, "config", "c", configPath, "path to the JSON config file")
	globalFlags.StringVar(&envFile, "env-file", envFile, "optional file with AIRMON_* variables")

	cmd.AddCommand(
		NewRunCommand(),
		NewSnapshotCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.Load(configPath)
}

func monitorOpts(cfg *config.Config) *monitor.Opts {
	opts := monitor.DefaultOpts
	opts.Verbose = cfg.VerboseLogging
	opts.ForcedRecalibrationCycle = cfg.ForcedRecalibrationCycle
	opts.ForcedRecalibrationPPM = scd30.PPM(cfg.ForcedRecalibrationPPM)
	return &opts
}

// NewRunCommand .
func NewRunCommand() *cobra.Command {
	var simulate bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor in the foreground",
		Long: `Run the monitor in the foreground.

The display and the sensors are set up in order. If one of them does not
answer, airmon exits with status 2 without reading or drawing anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if simulate {
				cfg.Simulate = true
			}
			log := logrus.StandardLogger()
			log.WithFields(cfg.LogrusFields()).Debug("config loaded")

			hw, err := board.Open(cfg, nil, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := hw.Close(); err != nil {
					log.WithError(err).Warn("shutdown")
				}
			}()

			m, err := monitor.New(hw.Devices, monitorOpts(cfg), log)
			if err != nil {
				return err
			}
			if err := m.Boot(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Infof("stopped after %d cycles", m.Cycle())
			return nil
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use simulated sensors and a terminal display")
	return cmd
}

// NewSnapshotCommand .
func NewSnapshotCommand() *cobra.Command {
	var out string
	var cycles int
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render simulated readings to a PNG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshot(out, cycles, logrus.StandardLogger())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "frame.png", "output file")
	cmd.Flags().IntVar(&cycles, "cycles", 1, "number of simulated cycles before the snapshot")
	return cmd
}

// snapshot runs the monitor on the simulated room for cycles and saves the
// last frame to path.
func snapshot(path string, cycles int, log logrus.FieldLogger) error {
	if cycles < 1 {
		return errors.New("cycles must be at least 1")
	}
	cfg := config.Default()
	cfg.Simulate = true
	cfg.Battery = config.BatteryADS1015

	hw, err := board.Open(cfg, io.Discard, log)
	if err != nil {
		return err
	}
	defer hw.Close()

	m, err := monitor.New(hw.Devices, monitorOpts(cfg), log)
	if err != nil {
		return err
	}
	if err := m.Boot(); err != nil {
		return err
	}
	var f monitor.Frame
	for range cycles {
		if f, err = m.Step(); err != nil {
			return err
		}
	}
	if err := gg.SavePNG(path, m.Renderer().Image(&f)); err != nil {
		return err
	}
	log.Infof("saved %s", path)
	return nil
}
