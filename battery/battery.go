// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package battery estimates the supply voltage of a battery powered monitor.
//
// The battery is sampled through a 1:2 resistor divider by a 12 bit ADC with a
// 3.3V reference. FromCount turns a raw count into volts, including the
// empirical 1.1 correction of the divider.
package battery

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// MaxCount is the full scale count of the 12 bit converter.
const MaxCount = 4095

const (
	reference = 3.3
	divider   = 2
	trim      = 1.1
)

// FromCount converts a 12 bit ADC count into the battery voltage.
func FromCount(count int) float64 {
	return float64(count) / MaxCount * divider * reference * trim
}

// ADC reads the battery through an analog pin.
type ADC struct {
	pin analog.PinADC
	// Full scale voltage of the pin. When set, the count is derived from the
	// measured voltage instead of the raw sample, for converters whose raw
	// resolution differs from 12 bits.
	fullScale physic.ElectricPotential
}

// NewADC returns a source using the raw 12 bit samples of p.
func NewADC(p analog.PinADC) *ADC {
	return &ADC{pin: p}
}

// NewScaledADC returns a source that maps the voltage read on p onto a 12 bit
// count with fullScale as reference.
func NewScaledADC(p analog.PinADC, fullScale physic.ElectricPotential) *ADC {
	return &ADC{pin: p, fullScale: fullScale}
}

// Count returns the current 12 bit count, clamped to [0, MaxCount].
func (a *ADC) Count() (int, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("battery: %w", err)
	}
	count := int(s.Raw)
	if a.fullScale > 0 {
		count = int(int64(s.V) * MaxCount / int64(a.fullScale))
	}
	return min(max(count, 0), MaxCount), nil
}

// Voltage returns the battery voltage.
func (a *ADC) Voltage() (float64, error) {
	count, err := a.Count()
	if err != nil {
		return 0, err
	}
	return FromCount(count), nil
}

func (a *ADC) String() string {
	return fmt.Sprintf("battery{%s}", a.pin)
}

// BusMonitor measures a supply voltage directly, like the INA260.
type BusMonitor interface {
	BusVoltage() (physic.ElectricPotential, error)
}

// Monitor reads the battery through a power monitor on its output.
type Monitor struct {
	m BusMonitor
}

// NewMonitor returns a source reading the bus voltage of m.
func NewMonitor(m BusMonitor) *Monitor {
	return &Monitor{m: m}
}

// Voltage returns the battery voltage.
func (m *Monitor) Voltage() (float64, error) {
	v, err := m.m.BusVoltage()
	if err != nil {
		return 0, fmt.Errorf("battery: %w", err)
	}
	return float64(v) / float64(physic.Volt), nil
}
