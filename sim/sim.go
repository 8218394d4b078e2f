// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sim simulates the sensors of a CO2 monitor in a room.
//
// The room is deterministic for a given seed. Every reading of the CO2 sensor
// advances it by one step. The CO2 sensor heats itself and reads the air
// temperature plus its self-heating minus the offset it was given, so a
// working calibration loop drives its temperature towards the reference.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/GermanBionicSystems/airmon/monitor"
	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Room parameters.
const (
	// SelfHeating of the simulated CO2 sensor in °C.
	SelfHeating = 2.5
	outdoorCO2  = 420
	maxCO2      = 2500
)

// Room is the simulated environment shared by all simulated devices.
type Room struct {
	mu  sync.Mutex
	rng *rand.Rand

	step     int
	co2      float64
	temp     float64
	hum      float64
	pressure float64
	battery  float64

	offset   physic.Temperature
	ambient  physic.Pressure
	asc      bool
	recalib  []scd30.PPM
	occupied bool
}

// NewRoom returns a room seeded with seed.
func NewRoom(seed int64) *Room {
	return &Room{
		rng:      rand.New(rand.NewSource(seed)),
		co2:      650,
		temp:     21.5,
		hum:      45,
		pressure: 1013.2,
		battery:  4.1,
		asc:      true,
		occupied: true,
	}
}

// advance moves the room one step forward. r.mu must be held.
func (r *Room) advance() {
	r.step++
	// People come and go every ten minutes.
	if r.step%600 == 0 {
		r.occupied = !r.occupied
	}
	if r.occupied {
		r.co2 += 1.5 + r.rng.NormFloat64()*3
	} else {
		r.co2 -= (r.co2 - outdoorCO2) * 0.01
	}
	r.co2 = min(max(r.co2, outdoorCO2), maxCO2)
	r.temp += r.rng.NormFloat64() * 0.01
	r.hum = min(max(r.hum+r.rng.NormFloat64()*0.05, 20), 80)
	r.pressure += r.rng.NormFloat64() * 0.02
	r.battery = max(r.battery-0.00002, 3.3)
}

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(math.Round(c*float64(physic.Kelvin)))
}

func humidity(h float64) physic.RelativeHumidity {
	return physic.RelativeHumidity(math.Round(h * float64(physic.PercentRH)))
}

// Primary returns the simulated CO2 sensor.
func (r *Room) Primary() *Primary {
	return &Primary{room: r}
}

// Reference returns the simulated reference thermometer.
func (r *Room) Reference() *Reference {
	return &Reference{room: r}
}

// Barometer returns the simulated pressure sensor.
func (r *Room) Barometer() *Barometer {
	return &Barometer{room: r}
}

// BatteryADC returns the 12 bit converter sampling the battery divider.
func (r *Room) BatteryADC() *ADC {
	return &ADC{BasicPin: pin.BasicPin{N: "SIM_VBAT"}, room: r}
}

// Primary simulates an SCD30.
type Primary struct {
	room *Room
}

// Sense advances the room and returns the sensor view of it.
func (p *Primary) Sense(e *scd30.Env) error {
	r := p.room
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance()
	e.CO2 = scd30.PPM(r.co2)
	e.Temperature = celsius(r.temp+SelfHeating) - r.offset
	e.Humidity = humidity(r.hum * 0.9)
	e.Pressure = 0
	return nil
}

// SetTemperatureOffset sets the compensation subtracted from the temperature.
func (p *Primary) SetTemperatureOffset(t physic.Temperature) error {
	if t < 0 {
		return fmt.Errorf("sim: negative temperature offset")
	}
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	p.room.offset = t
	return nil
}

// TemperatureOffset returns the offset last set.
func (p *Primary) TemperatureOffset() (physic.Temperature, error) {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return p.room.offset, nil
}

// SetAmbientPressure records the pressure compensation.
func (p *Primary) SetAmbientPressure(pr physic.Pressure) error {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	p.room.ambient = pr
	return nil
}

// AmbientPressure returns the pressure compensation last set.
func (p *Primary) AmbientPressure() physic.Pressure {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return p.room.ambient
}

// SetAutoSelfCalibration records the calibration mode.
func (p *Primary) SetAutoSelfCalibration(enabled bool) error {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	p.room.asc = enabled
	return nil
}

// ForceRecalibration records the reference and snaps the room to it.
func (p *Primary) ForceRecalibration(ppm scd30.PPM) error {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	p.room.recalib = append(p.room.recalib, ppm)
	p.room.co2 = float64(ppm)
	return nil
}

// AutoSelfCalibration reports the calibration mode last set.
func (p *Primary) AutoSelfCalibration() bool {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return p.room.asc
}

// Recalibrations returns the forced recalibrations received so far.
func (p *Primary) Recalibrations() []scd30.PPM {
	p.room.mu.Lock()
	defer p.room.mu.Unlock()
	return append([]scd30.PPM(nil), p.room.recalib...)
}

func (p *Primary) String() string {
	return "sim.Primary"
}

// Reference simulates a DHT12 reading the true air temperature.
type Reference struct {
	room *Room
}

// Sense returns the air temperature and humidity.
func (s *Reference) Sense(e *physic.Env) error {
	s.room.mu.Lock()
	defer s.room.mu.Unlock()
	e.Temperature = celsius(s.room.temp)
	e.Humidity = humidity(s.room.hum)
	e.Pressure = 0
	return nil
}

func (s *Reference) String() string {
	return "sim.Reference"
}

// Barometer simulates a BMP280.
type Barometer struct {
	room *Room
}

// Sense returns the pressure and the temperature of the chip.
func (b *Barometer) Sense(e *physic.Env) error {
	b.room.mu.Lock()
	defer b.room.mu.Unlock()
	e.Temperature = celsius(b.room.temp + 0.8)
	e.Pressure = physic.Pressure(math.Round(b.room.pressure * 100 * float64(physic.Pascal)))
	e.Humidity = 0
	return nil
}

func (b *Barometer) String() string {
	return "sim.Barometer"
}

// ADC samples half the battery voltage, as seen behind the divider.
type ADC struct {
	pin.BasicPin
	room *Room
}

// Range implements analog.PinADC.
func (a *ADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{V: 3300 * physic.MilliVolt, Raw: 4095}
}

// Read implements analog.PinADC.
func (a *ADC) Read() (analog.Sample, error) {
	a.room.mu.Lock()
	v := a.room.battery
	a.room.mu.Unlock()
	// Inverse of battery.FromCount.
	raw := int32(math.Round(v / (2 * 3.3 * 1.1) * 4095))
	return analog.Sample{V: physic.ElectricPotential(v / 2 * float64(physic.Volt)), Raw: raw}, nil
}

// Buzzer logs tones instead of playing them.
type Buzzer struct {
	Log logrus.FieldLogger

	mu    sync.Mutex
	tones int
}

// Tone implements monitor.Toner.
func (b *Buzzer) Tone(f physic.Frequency, d time.Duration) error {
	b.mu.Lock()
	b.tones++
	b.mu.Unlock()
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"frequency": f.String(), "duration": d}).Info("beep")
	}
	return nil
}

// Tones returns the number of tones played.
func (b *Buzzer) Tones() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tones
}

var (
	_ analog.PinADC     = &ADC{}
	_ monitor.Primary   = &Primary{}
	_ monitor.EnvSensor = &Reference{}
	_ monitor.EnvSensor = &Barometer{}
	_ monitor.Toner     = &Buzzer{}
)
