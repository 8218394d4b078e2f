// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"math"
	"time"

	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrSensorNotDetected is returned by Boot when a sensor does not answer.
	ErrSensorNotDetected = errors.New("sensor not detected")
	// ErrDisplay is returned by Boot when the panel cannot be initialized.
	ErrDisplay = errors.New("display not detected")
	// ErrNotBooted is returned by Step and Run before a successful Boot.
	ErrNotBooted = errors.New("monitor not booted")
)

// PressureEvery is the number of cycles between two ambient pressure updates
// of the primary sensor.
const PressureEvery = 60

// Opts configures a Monitor.
type Opts struct {
	// Interval between two cycles of Run.
	Interval time.Duration
	// Verbose logs every measurement and the calibration state on each cycle.
	Verbose bool
	// ForcedRecalibrationCycle triggers a single forced recalibration of the
	// primary sensor once that many cycles ran. 0 disables it.
	ForcedRecalibrationCycle int
	// ForcedRecalibrationPPM is the concentration of the reference air.
	ForcedRecalibrationPPM scd30.PPM
}

// DefaultOpts is used when New is called with nil.
var DefaultOpts = Opts{
	Interval:               time.Second,
	ForcedRecalibrationPPM: 400,
}

// Monitor runs the measurement loop.
//
// A Monitor is not safe for concurrent use; Run owns it.
type Monitor struct {
	dev      Devices
	opts     Opts
	log      logrus.FieldLogger
	renderer *Renderer

	calib  Calibration
	agg    *aggregator
	last   readings
	cycle  int
	booted bool
}

// New returns a Monitor driving dev. Battery is the only optional device.
func New(dev Devices, opts *Opts, log logrus.FieldLogger) (*Monitor, error) {
	if dev.Primary == nil || dev.Pressure == nil || dev.Reference == nil || dev.Panel == nil || dev.Toner == nil {
		return nil, errors.New("monitor: missing device")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Interval <= 0 {
		o.Interval = DefaultOpts.Interval
	}
	if o.ForcedRecalibrationPPM == 0 {
		o.ForcedRecalibrationPPM = DefaultOpts.ForcedRecalibrationPPM
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	r, err := NewRenderer(dev.Panel)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		dev:      dev,
		opts:     o,
		log:      log,
		renderer: r,
		agg:      newAggregator(dev.Battery, log),
	}, nil
}

// Boot clears the display and checks every sensor in order. It stops at the
// first failure; the Monitor then refuses to run.
func (m *Monitor) Boot() error {
	m.log.Info("setup...")
	if err := m.renderer.Init(); err != nil {
		m.log.WithError(err).Error("display not detected. Please check wiring.")
		return errors.Wrapf(ErrDisplay, "clear: %v", err)
	}

	m.log.Info("SCD30 setup...")
	if err := m.dev.Primary.SetAutoSelfCalibration(false); err != nil {
		m.log.WithError(err).Error("SCD30 not detected. Please check wiring.")
		return errors.Wrapf(ErrSensorNotDetected, "SCD30: %v", err)
	}

	m.log.Info("BMP280 setup...")
	if err := m.dev.Pressure.Sense(&m.last.pressure); err != nil {
		m.log.WithError(err).Error("BMP280 not detected. Please check wiring.")
		return errors.Wrapf(ErrSensorNotDetected, "BMP280: %v", err)
	}

	m.log.Info("DHT12 setup...")
	if err := m.dev.Reference.Sense(&m.last.reference); err != nil {
		m.log.WithError(err).Error("DHT12 not detected. Please check wiring.")
		return errors.Wrapf(ErrSensorNotDetected, "DHT12: %v", err)
	}

	m.log.Info("...done")
	m.booted = true
	return nil
}

// Run calls Step every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.booted {
		return ErrNotBooted
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.Interval):
		}
		if _, err := m.Step(); err != nil {
			return err
		}
	}
}

// Step runs one cycle: read, calibrate, render and alert. Device errors are
// logged and the cycle continues with the last good values.
func (m *Monitor) Step() (Frame, error) {
	if !m.booted {
		return Frame{}, ErrNotBooted
	}
	m.read()
	r := m.last

	old, updated := m.calib.Update(r.primary.Temperature.Celsius(), r.reference.Temperature.Celsius())
	if err := m.dev.Primary.SetTemperatureOffset(offsetTemperature(updated)); err != nil {
		m.log.WithError(err).Warn("set temperature offset failed")
	}
	if m.cycle%PressureEvery == 0 {
		if err := m.dev.Primary.SetAmbientPressure(r.pressure.Pressure); err != nil {
			m.log.WithError(err).Warn("set ambient pressure failed")
		}
	}

	f := m.agg.build(&r)
	if err := m.renderer.Paint(&f); err != nil {
		m.log.WithError(err).Warn("display update failed")
	}
	if ShouldAlert(f.CO2) {
		if err := m.dev.Toner.Tone(AlertFrequency, AlertDuration); err != nil {
			m.log.WithError(err).Warn("tone failed")
		}
	}
	if m.opts.Verbose {
		m.logCycle(&r, old, updated)
	}

	m.cycle++
	if m.opts.ForcedRecalibrationCycle > 0 && m.cycle == m.opts.ForcedRecalibrationCycle {
		m.log.Infof("forced recalibration to %s", m.opts.ForcedRecalibrationPPM)
		if err := m.dev.Primary.ForceRecalibration(m.opts.ForcedRecalibrationPPM); err != nil {
			m.log.WithError(err).Warn("forced recalibration failed")
		}
	}
	return f, nil
}

// Cycle returns the number of completed cycles.
func (m *Monitor) Cycle() int {
	return m.cycle
}

// Offset returns the current temperature offset in °C.
func (m *Monitor) Offset() float64 {
	return m.calib.Offset
}

// Renderer returns the renderer painting the panel.
func (m *Monitor) Renderer() *Renderer {
	return m.renderer
}

// read refreshes m.last, keeping the previous value of a failing sensor.
func (m *Monitor) read() {
	var p scd30.Env
	if err := m.dev.Primary.Sense(&p); err != nil {
		m.log.WithError(err).Warn("SCD30 read failed")
	} else {
		m.last.primary = p
	}
	if err := senseInto(m.dev.Pressure, &m.last.pressure); err != nil {
		m.log.WithError(err).Warn("BMP280 read failed")
	}
	if err := senseInto(m.dev.Reference, &m.last.reference); err != nil {
		m.log.WithError(err).Warn("DHT12 read failed")
	}
}

func senseInto(s EnvSensor, dst *physic.Env) error {
	var e physic.Env
	if err := s.Sense(&e); err != nil {
		return err
	}
	*dst = e
	return nil
}

func (m *Monitor) logCycle(r *readings, old, updated float64) {
	device := math.NaN()
	if t, err := m.dev.Primary.TemperatureOffset(); err != nil {
		m.log.WithError(err).Warn("read temperature offset failed")
	} else {
		device = offsetCelsius(t)
	}
	m.log.Infof("co2: %d ppm, temp_scd30: %.2f C, hum_scd30: %.2f %%, pressure: %.2f hPa, temp_bmp280: %.2f C, temp_dht12: %.2f C, hum_dht12: %.2f %%, offset: %.2f / %.2f / %.2f",
		int(r.primary.CO2),
		r.primary.Temperature.Celsius(),
		humidityPercent(r.primary.Humidity),
		pressureHPa(r.pressure.Pressure),
		r.pressure.Temperature.Celsius(),
		r.reference.Temperature.Celsius(),
		humidityPercent(r.reference.Humidity),
		old, updated, device)
}
