// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// airmon runs the CO2 monitor.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GermanBionicSystems/airmon/monitor"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// version is set at link time.
var version = "dev"

var (
	logLevel   = "info"
	configPath = "/etc/airmon.json"
	envFile    = ".env"
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.TimeOnly,
		})
	}
	return nil
}

// exitCode returns 2 for boot failures and 1 for anything else.
func exitCode(err error) int {
	if errors.Is(err, monitor.ErrSensorNotDetected) || errors.Is(err, monitor.ErrDisplay) {
		return 2
	}
	return 1
}

// handleCmdError prints err once. Cobra's own printing is silenced.
func handleCmdError(w io.Writer, err error) {
	fmt.Fprintf(w, "\n%s %v\n", color.RedString("Error:"), err)
	if exitCode(err) == 2 {
		fmt.Fprintln(w, "  - Check the wiring of the display and the sensors")
		fmt.Fprintln(w, "  - Or try 'airmon run --simulate' to run without hardware")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
