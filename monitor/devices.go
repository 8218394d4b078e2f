// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/GermanBionicSystems/airmon/scd30"
	"periph.io/x/conn/v3/physic"
)

// Primary is the CO2 sensor. It also measures temperature and humidity and
// accepts temperature and pressure compensation values.
//
// *scd30.Dev implements it.
type Primary interface {
	Sense(e *scd30.Env) error
	SetTemperatureOffset(t physic.Temperature) error
	TemperatureOffset() (physic.Temperature, error)
	SetAmbientPressure(p physic.Pressure) error
	SetAutoSelfCalibration(enabled bool) error
	ForceRecalibration(ppm scd30.PPM) error
}

// EnvSensor is implemented by the pressure and reference sensors.
type EnvSensor interface {
	Sense(e *physic.Env) error
}

// BatterySource returns the supply voltage in volts.
type BatterySource interface {
	Voltage() (float64, error)
}

// Panel is a display supporting windowed updates.
type Panel interface {
	Bounds() image.Rectangle
	// Clear fills the panel with c and commits it with a full refresh.
	Clear(c color.Color) error
	// UpdateWindow copies r from src and commits it. fast selects the
	// partial refresh waveform.
	UpdateWindow(r image.Rectangle, src image.Image, fast bool) error
}

// Toner plays a tone without blocking for its duration.
type Toner interface {
	Tone(f physic.Frequency, d time.Duration) error
}

// Devices groups the hardware used by a Monitor. Battery may be nil.
type Devices struct {
	Primary   Primary
	Pressure  EnvSensor
	Reference EnvSensor
	Battery   BatterySource
	Panel     Panel
	Toner     Toner
}

// readings are the last successful measurement of each sensor.
type readings struct {
	primary   scd30.Env
	pressure  physic.Env
	reference physic.Env
}

func humidityPercent(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}

func pressureHPa(p physic.Pressure) float64 {
	return float64(p) / float64(100*physic.Pascal)
}

// offsetTemperature converts an offset in °C to a temperature delta.
func offsetTemperature(c float64) physic.Temperature {
	return physic.Temperature(math.Round(c * float64(physic.Kelvin)))
}

func offsetCelsius(t physic.Temperature) float64 {
	return float64(t) / float64(physic.Kelvin)
}
