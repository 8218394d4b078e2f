// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// BatteryPlaceholder is shown instead of the battery voltage on the
// iterations where it is not sampled.
const BatteryPlaceholder = "----"

// Frame is the set of values shown on one screen refresh.
type Frame struct {
	// CO2 concentration in ppm.
	CO2 int
	// Primary sensor temperature in °C, offset corrected by the sensor.
	Temperature float64
	// Reference sensor temperature in °C.
	ReferenceTemperature float64
	// Primary sensor humidity in %RH.
	Humidity float64
	// Barometric pressure in hPa.
	Pressure float64
	// Battery voltage; only meaningful when HasBattery is set.
	Battery    float64
	HasBattery bool
}

// BatteryText returns the battery field as displayed.
func (f *Frame) BatteryText() string {
	if !f.HasBattery {
		return BatteryPlaceholder
	}
	return fmt.Sprintf("%.2f", f.Battery)
}

// aggregator builds frames and owns the battery alternation flag.
type aggregator struct {
	battery BatterySource
	log     logrus.FieldLogger
	// showBattery starts true and flips on every frame.
	showBattery bool
}

func newAggregator(b BatterySource, log logrus.FieldLogger) *aggregator {
	return &aggregator{battery: b, log: log, showBattery: true}
}

// build returns the frame for r and toggles the alternation flag.
func (a *aggregator) build(r *readings) Frame {
	f := Frame{
		CO2:                  int(r.primary.CO2),
		Temperature:          r.primary.Temperature.Celsius(),
		ReferenceTemperature: r.reference.Temperature.Celsius(),
		Humidity:             humidityPercent(r.primary.Humidity),
		Pressure:             pressureHPa(r.pressure.Pressure),
	}
	if a.showBattery && a.battery != nil {
		v, err := a.battery.Voltage()
		if err != nil {
			a.log.WithError(err).Warn("battery read failed")
		} else {
			f.Battery, f.HasBattery = v, true
		}
	}
	a.showBattery = !a.showBattery
	return f
}
