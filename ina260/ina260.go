// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina260

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the address with A0 and A1 tied to ground.
const DefaultAddress uint16 = 0x40

const (
	regConfig     byte = 0x00 // CONFIGURATION REGISTER (R/W)
	regCurrent    byte = 0x01 // CURRENT REGISTER (R)
	regBusVoltage byte = 0x02 // BUS VOLTAGE REGISTER (R)
	regPower      byte = 0x03 // POWER REGISTER (R)
	regMfgID      byte = 0xFE // MANUFACTURER UNIQUE ID REGISTER (R)
	regDieID      byte = 0xFF // DIE UNIQUE ID REGISTER (R)
)

// Register resolutions.
const (
	currentLSB = 1250 * physic.MicroAmpere
	voltageLSB = 1250 * physic.MicroVolt
	powerLSB   = 10 * physic.MilliWatt
)

// PowerMonitor is a reading of the monitored supply.
type PowerMonitor struct {
	Current physic.ElectricCurrent
	Voltage physic.ElectricPotential
	Power   physic.Power
}

func (p PowerMonitor) String() string {
	return fmt.Sprintf("%s %s %s", p.Voltage, p.Current, p.Power)
}

// Dev is an INA260 on an I²C bus.
type Dev struct {
	c *i2c.Dev
}

// NewI2C returns a Dev at addr. DefaultAddress is the usual value.
func NewI2C(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{c: &i2c.Dev{Bus: bus, Addr: addr}}
}

func (d *Dev) readRegister(reg byte) (uint16, error) {
	b := make([]byte, 2)
	if err := d.c.Tx([]byte{reg}, b); err != nil {
		return 0, fmt.Errorf("ina260 register 0x%02x: %w", reg, err)
	}
	return binary.BigEndian.Uint16(b), nil
}

// Read returns the current, bus voltage and power.
func (d *Dev) Read() (PowerMonitor, error) {
	var p PowerMonitor

	amps, err := d.readRegister(regCurrent)
	if err != nil {
		return p, err
	}
	volts, err := d.readRegister(regBusVoltage)
	if err != nil {
		return p, err
	}
	watts, err := d.readRegister(regPower)
	if err != nil {
		return p, err
	}

	// Current is two's complement; the bus voltage and power are not.
	p.Current = physic.ElectricCurrent(int16(amps)) * currentLSB
	p.Voltage = physic.ElectricPotential(volts) * voltageLSB
	p.Power = physic.Power(watts) * powerLSB
	return p, nil
}

// BusVoltage reads only the bus voltage.
func (d *Dev) BusVoltage() (physic.ElectricPotential, error) {
	v, err := d.readRegister(regBusVoltage)
	if err != nil {
		return 0, err
	}
	return physic.ElectricPotential(v) * voltageLSB, nil
}

// ManufacturerID returns the manufacturer ID, 0x5449 ("TI").
func (d *Dev) ManufacturerID() (uint16, error) {
	return d.readRegister(regMfgID)
}

// DieID returns the die ID register.
func (d *Dev) DieID() (uint16, error) {
	return d.readRegister(regDieID)
}

// Halt implements conn.Resource. The INA260 keeps converting.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ina260{%s}", d.c)
}

var _ conn.Resource = &Dev{}
