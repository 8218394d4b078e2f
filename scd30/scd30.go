// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/airmon/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM int

func (ppm PPM) String() string {
	return fmt.Sprintf("%d PPM", int(ppm))
}

const (
	// The SCD30 only supports this i2c address.
	SensorAddress uint16 = 0x61
)

// Structure to simplify sending commands to the device.
type command struct {
	// The 16-bit command word.
	word uint16
	// Number of CRC protected words returned by the device.
	readWords int
}

var (
	cmdStartContinuous        = command{word: 0x0010}
	cmdStopContinuous         = command{word: 0x0104}
	cmdSetInterval            = command{word: 0x4600}
	cmdGetInterval            = command{word: 0x4600, readWords: 1}
	cmdDataReady              = command{word: 0x0202, readWords: 1}
	cmdReadMeasurement        = command{word: 0x0300, readWords: 6}
	cmdSetASC                 = command{word: 0x5306}
	cmdGetASC                 = command{word: 0x5306, readWords: 1}
	cmdSetForcedRecalibration = command{word: 0x5204}
	cmdSetTemperatureOffset   = command{word: 0x5403}
	cmdGetTemperatureOffset   = command{word: 0x5403, readWords: 1}
	cmdSetAltitude            = command{word: 0x5102}
	cmdGetAltitude            = command{word: 0x5102, readWords: 1}
	cmdFirmwareVersion        = command{word: 0xd100, readWords: 1}
	cmdSoftReset              = command{word: 0xd304}
)

// Delay between the command write and the response read.
const readDelay = 3 * time.Millisecond

// Limits from the interface description.
const (
	minInterval    = 2 * time.Second
	maxInterval    = 1800 * time.Second
	minPressure    = 700
	maxPressure    = 1400
	minCalibration = PPM(400)
	maxCalibration = PPM(2000)
)

// Opts holds the configuration applied when the device is opened.
type Opts struct {
	// Measurement interval. Between 2s and 1800s.
	Interval time.Duration
	// Ambient pressure used for compensation. 0 disables it.
	AmbientPressure physic.Pressure
}

// DefaultOpts is the recommended default configuration.
var DefaultOpts = Opts{Interval: minInterval}

// Env is a sensor reading: Temperature, Humidity and CO2 concentration.
type Env struct {
	physic.Env
	CO2 PPM
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature.String(), e.Humidity.String(), e.CO2.String())
}

// Dev represents an SCD30 device.
type Dev struct {
	d    *i2c.Dev
	opts Opts

	mu       sync.Mutex
	sensing  bool
	firmware uint16
	// Last measurement; returned again while no new data is available.
	last     Env
	haveLast bool
}

// NewI2C opens an SCD30 on the supplied bus. The constant SensorAddress
// should be supplied as the value for addr. opts may be nil, in which case
// DefaultOpts is used.
//
// The firmware version is read to verify the sensor answers, then continuous
// measurement is started.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Interval < minInterval || opts.Interval > maxInterval {
		return nil, fmt.Errorf("scd30: invalid measurement interval %s", opts.Interval)
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: *opts}

	d.mu.Lock()
	defer d.mu.Unlock()

	words, err := d.sendCommand(cmdFirmwareVersion)
	if err != nil {
		return nil, err
	}
	d.firmware = words[0]

	if _, err := d.sendCommand(cmdSetInterval, uint16(opts.Interval/time.Second)); err != nil {
		return nil, err
	}
	if err := d.start(opts.AmbientPressure); err != nil {
		return nil, err
	}
	return d, nil
}

// FirmwareVersion returns the major and minor firmware version read when the
// device was opened.
func (d *Dev) FirmwareVersion() (major, minor byte) {
	return byte(d.firmware >> 8), byte(d.firmware)
}

// Sense returns the latest measurement. If the sensor has no new data since
// the previous call, the previous measurement is returned again. The very
// first call blocks until a measurement is available.
func (d *Dev) Sense(e *Env) error {
	e.Temperature = 0
	e.Humidity = 0
	e.Pressure = 0
	e.CO2 = 0

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.sensing {
		if err := d.start(d.opts.AmbientPressure); err != nil {
			return err
		}
	}

	ready, err := d.dataReady()
	if err != nil {
		return err
	}
	if !ready && d.haveLast {
		*e = d.last
		return nil
	}

	deadline := time.Now().Add(d.opts.Interval + time.Second)
	for !ready {
		if time.Now().After(deadline) {
			return errors.New("scd30: timeout waiting for data ready status")
		}
		time.Sleep(100 * time.Millisecond)
		if ready, err = d.dataReady(); err != nil {
			return err
		}
	}

	words, err := d.sendCommand(cmdReadMeasurement)
	if err != nil {
		return err
	}
	co2 := wordsToFloat(words[0], words[1])
	t := wordsToFloat(words[2], words[3])
	rh := wordsToFloat(words[4], words[5])

	e.CO2 = PPM(co2)
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t*float64(physic.Celsius))
	e.Humidity = physic.RelativeHumidity(rh * float64(physic.PercentRH))

	d.last = *e
	d.haveLast = true
	return nil
}

// Precision returns the resolution of the readings returned by Sense.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// SetTemperatureOffset sets the offset subtracted by the sensor from its
// temperature reading. The resolution is 0.01°C and the offset cannot be
// negative.
func (d *Dev) SetTemperatureOffset(offset physic.Temperature) error {
	if offset < 0 {
		return fmt.Errorf("scd30: negative temperature offset %.2fK", float64(offset)/float64(physic.Kelvin))
	}
	count := math.Round(float64(offset) / float64(10*physic.MilliKelvin))
	if count > math.MaxUint16 {
		return fmt.Errorf("scd30: temperature offset %.2fK out of range", float64(offset)/float64(physic.Kelvin))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetTemperatureOffset, uint16(count))
	return err
}

// TemperatureOffset returns the offset currently applied by the sensor.
func (d *Dev) TemperatureOffset() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetTemperatureOffset)
	if err != nil {
		return 0, err
	}
	return physic.Temperature(words[0]) * 10 * physic.MilliKelvin, nil
}

// SetAmbientPressure restarts continuous measurement with the given pressure
// compensation. Pressures outside 700-1400 mbar disable the compensation.
func (d *Dev) SetAmbientPressure(p physic.Pressure) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.AmbientPressure = p
	return d.start(p)
}

// SetAltitude sets the altitude compensation. It is only used while no
// ambient pressure is set.
func (d *Dev) SetAltitude(a physic.Distance) error {
	if a < 0 {
		return fmt.Errorf("scd30: negative altitude %s", a)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetAltitude, uint16(a/physic.Metre))
	return err
}

// Altitude returns the altitude compensation currently set.
func (d *Dev) Altitude() (physic.Distance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetAltitude)
	if err != nil {
		return 0, err
	}
	return physic.Distance(words[0]) * physic.Metre, nil
}

// SetMeasurementInterval changes the measurement interval. Between 2s and
// 1800s.
func (d *Dev) SetMeasurementInterval(interval time.Duration) error {
	if interval < minInterval || interval > maxInterval {
		return fmt.Errorf("scd30: invalid measurement interval %s", interval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.sendCommand(cmdSetInterval, uint16(interval/time.Second)); err != nil {
		return err
	}
	d.opts.Interval = interval
	return nil
}

// MeasurementInterval reads the measurement interval from the sensor.
func (d *Dev) MeasurementInterval() (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetInterval)
	if err != nil {
		return 0, err
	}
	return time.Duration(words[0]) * time.Second, nil
}

// SetAutoSelfCalibration enables or disables automatic self calibration.
// The setting is stored in the sensor and survives a power cycle.
func (d *Dev) SetAutoSelfCalibration(enabled bool) error {
	var w uint16
	if enabled {
		w = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetASC, w)
	return err
}

// AutoSelfCalibration reports whether automatic self calibration is enabled.
func (d *Dev) AutoSelfCalibration() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.sendCommand(cmdGetASC)
	if err != nil {
		return false, err
	}
	return words[0] == 1, nil
}

// ForceRecalibration tells the sensor that the current CO2 concentration is
// ref. The sensor must have been operated for at least two minutes in a
// stable environment for the result to be meaningful.
func (d *Dev) ForceRecalibration(ref PPM) error {
	if ref < minCalibration || ref > maxCalibration {
		return fmt.Errorf("scd30: invalid recalibration reference %s", ref)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.sendCommand(cmdSetForcedRecalibration, uint16(ref))
	return err
}

// Reset performs a soft reset. Continuous measurement must be restarted,
// which Sense does automatically.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sensing = false
	d.haveLast = false
	_, err := d.sendCommand(cmdSoftReset)
	return err
}

// Halt stops continuous measurement.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sensing {
		return nil
	}
	d.sensing = false
	_, err := d.sendCommand(cmdStopContinuous)
	return err
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30{%s}", d.d)
}

// start (re)starts continuous measurement. Must be called with mu held.
func (d *Dev) start(p physic.Pressure) error {
	if _, err := d.sendCommand(cmdStartContinuous, pressureArgument(p)); err != nil {
		return err
	}
	d.sensing = true
	return nil
}

func (d *Dev) dataReady() (bool, error) {
	words, err := d.sendCommand(cmdDataReady)
	if err != nil {
		return false, err
	}
	return words[0] == 1, nil
}

// All commands to read or write to the sensor go through this function.
func (d *Dev) sendCommand(cmd command, args ...uint16) ([]uint16, error) {
	w := append([]byte{byte(cmd.word >> 8), byte(cmd.word)}, common.PackWords(args...)...)
	if err := d.d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: %w", cmd.word, err)
	}
	if cmd.readWords == 0 {
		return nil, nil
	}

	time.Sleep(readDelay)
	r := make([]byte, cmd.readWords*3)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: %w", cmd.word, err)
	}
	words, err := common.UnpackWords(r)
	if err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: %w", cmd.word, err)
	}
	return words, nil
}

// pressureArgument converts p to the mbar argument of the start command.
func pressureArgument(p physic.Pressure) uint16 {
	mbar := int64(math.Round(float64(p) / float64(100*physic.Pascal)))
	if mbar < minPressure || mbar > maxPressure {
		return 0
	}
	return uint16(mbar)
}

// wordsToFloat rebuilds a big endian IEEE754 value from two words.
func wordsToFloat(hi, lo uint16) float64 {
	return float64(math.Float32frombits(uint32(hi)<<16 | uint32(lo)))
}

var _ conn.Resource = &Dev{}
