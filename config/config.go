// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the monitor settings.
//
// Settings come from a JSON file merged over the defaults, then from
// AIRMON_* environment variables, optionally read from a .env file first.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Display backends.
const (
	DisplayEPaper   = "epaper"
	DisplayTerminal = "terminal"
)

// Battery sources.
const (
	BatteryNone    = "none"
	BatteryADS1015 = "ads1015"
	BatteryINA260  = "ina260"
)

// ErrInvalid is wrapped by the errors returned for out of range settings.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	VerboseLogging           bool
	ForcedRecalibrationCycle int
	ForcedRecalibrationPPM   int
	Simulate                 bool
	Display                  string
	I2CBus                   string
	SPIPort                  string
	Rotation                 int
	PressureAddress          uint16
	BuzzerPin                string
	Battery                  string
	BatteryChannel           int
}

// RawFile is the on-disk format. Unset fields take their default.
type RawFile struct {
	VerboseLogging           *bool   `json:"verboseLogging,omitempty"`
	ForcedRecalibrationCycle *int    `json:"forcedRecalibrationCycle,omitempty"`
	ForcedRecalibrationPPM   *int    `json:"forcedRecalibrationPPM,omitempty"`
	Simulate                 *bool   `json:"simulate,omitempty"`
	Display                  *string `json:"display,omitempty"`
	I2CBus                   *string `json:"i2cBus,omitempty"`
	SPIPort                  *string `json:"spiPort,omitempty"`
	Rotation                 *int    `json:"rotation,omitempty"`
	PressureAddress          *uint16 `json:"pressureAddress,omitempty"`
	BuzzerPin                *string `json:"buzzerPin,omitempty"`
	Battery                  *string `json:"battery,omitempty"`
	BatteryChannel           *int    `json:"batteryChannel,omitempty"`
}

// Default returns the default settings.
func Default() *Config {
	return &Config{
		ForcedRecalibrationPPM: 400,
		Display:                DisplayEPaper,
		Rotation:               1,
		PressureAddress:        0x76,
		BuzzerPin:              "GPIO13",
		Battery:                BatteryNone,
	}
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return pkgerrors.Wrapf(err, "failed to load %s", p)
		}
	}
	return nil
}

// Load reads the JSON file at path, applies the environment and validates the
// result. An empty path, a missing file or an empty file yield the defaults.
func Load(path string) (*Config, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	raw.apply(c)
	if err := applyEnv(c, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readFile(path string) (*RawFile, error) {
	raw := &RawFile{}
	if path == "" {
		return raw, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return raw, nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to read file %s", path)
	}
	if strings.TrimSpace(string(b)) == "" {
		return raw, nil
	}
	if err := json.Unmarshal(b, raw); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", path)
	}
	return raw, nil
}

func (r *RawFile) apply(c *Config) {
	set(&c.VerboseLogging, r.VerboseLogging)
	set(&c.ForcedRecalibrationCycle, r.ForcedRecalibrationCycle)
	set(&c.ForcedRecalibrationPPM, r.ForcedRecalibrationPPM)
	set(&c.Simulate, r.Simulate)
	set(&c.Display, r.Display)
	set(&c.I2CBus, r.I2CBus)
	set(&c.SPIPort, r.SPIPort)
	set(&c.Rotation, r.Rotation)
	set(&c.PressureAddress, r.PressureAddress)
	set(&c.BuzzerPin, r.BuzzerPin)
	set(&c.Battery, r.Battery)
	set(&c.BatteryChannel, r.BatteryChannel)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "AIRMON_"

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	bools := map[string]*bool{
		"VERBOSE_LOGGING": &c.VerboseLogging,
		"SIMULATE":        &c.Simulate,
	}
	ints := map[string]*int{
		"FORCED_RECALIBRATION_CYCLE": &c.ForcedRecalibrationCycle,
		"FORCED_RECALIBRATION_PPM":   &c.ForcedRecalibrationPPM,
		"ROTATION":                   &c.Rotation,
		"BATTERY_CHANNEL":            &c.BatteryChannel,
	}
	strs := map[string]*string{
		"DISPLAY":    &c.Display,
		"I2C_BUS":    &c.I2CBus,
		"SPI_PORT":   &c.SPIPort,
		"BUZZER_PIN": &c.BuzzerPin,
		"BATTERY":    &c.Battery,
	}
	for k, dst := range bools {
		if s, ok := lookup(EnvPrefix + k); ok {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return pkgerrors.Wrapf(err, "%s%s", EnvPrefix, k)
			}
			*dst = v
		}
	}
	for k, dst := range ints {
		if s, ok := lookup(EnvPrefix + k); ok {
			v, err := strconv.Atoi(s)
			if err != nil {
				return pkgerrors.Wrapf(err, "%s%s", EnvPrefix, k)
			}
			*dst = v
		}
	}
	for k, dst := range strs {
		if s, ok := lookup(EnvPrefix + k); ok {
			*dst = s
		}
	}
	if s, ok := lookup(EnvPrefix + "PRESSURE_ADDRESS"); ok {
		v, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return pkgerrors.Wrapf(err, "%sPRESSURE_ADDRESS", EnvPrefix)
		}
		c.PressureAddress = uint16(v)
	}
	return nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	switch {
	case c.ForcedRecalibrationCycle < 0:
		return pkgerrors.Wrapf(ErrInvalid, "forcedRecalibrationCycle %d is negative", c.ForcedRecalibrationCycle)
	case c.ForcedRecalibrationPPM < 400 || c.ForcedRecalibrationPPM > 2000:
		return pkgerrors.Wrapf(ErrInvalid, "forcedRecalibrationPPM %d outside [400, 2000]", c.ForcedRecalibrationPPM)
	case c.Display != DisplayEPaper && c.Display != DisplayTerminal:
		return pkgerrors.Wrapf(ErrInvalid, "unknown display %q", c.Display)
	case c.Battery != BatteryNone && c.Battery != BatteryADS1015 && c.Battery != BatteryINA260:
		return pkgerrors.Wrapf(ErrInvalid, "unknown battery source %q", c.Battery)
	case c.BatteryChannel < 0 || c.BatteryChannel > 3:
		return pkgerrors.Wrapf(ErrInvalid, "batteryChannel %d outside [0, 3]", c.BatteryChannel)
	case c.PressureAddress != 0x76 && c.PressureAddress != 0x77:
		return pkgerrors.Wrapf(ErrInvalid, "pressureAddress %#x is not 0x76 or 0x77", c.PressureAddress)
	}
	return nil
}

// LogrusFields returns the settings as log fields.
func (c *Config) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"verboseLogging":           c.VerboseLogging,
		"forcedRecalibrationCycle": c.ForcedRecalibrationCycle,
		"forcedRecalibrationPPM":   c.ForcedRecalibrationPPM,
		"simulate":                 c.Simulate,
		"display":                  c.Display,
		"i2cBus":                   c.I2CBus,
		"spiPort":                  c.SPIPort,
		"rotation":                 c.Rotation,
		"pressureAddress":          c.PressureAddress,
		"buzzerPin":                c.BuzzerPin,
		"battery":                  c.Battery,
		"batteryChannel":           c.BatteryChannel,
	}
}
