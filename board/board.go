// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board opens the devices of the monitor as configured.
package board

import (
	"image"
	"io"

	"github.com/GermanBionicSystems/airmon/battery"
	"github.com/GermanBionicSystems/airmon/buzzer"
	"github.com/GermanBionicSystems/airmon/config"
	"github.com/GermanBionicSystems/airmon/dht12"
	"github.com/GermanBionicSystems/airmon/ina260"
	"github.com/GermanBionicSystems/airmon/monitor"
	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/GermanBionicSystems/airmon/screen2d"
	"github.com/GermanBionicSystems/airmon/sim"
	"github.com/GermanBionicSystems/airmon/waveshare2in13v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Size of the landscape canvas of the terminal display.
const (
	TerminalWidth  = 250
	TerminalHeight = 122
)

// Hardware holds the opened devices.
type Hardware struct {
	Devices monitor.Devices

	log     logrus.FieldLogger
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

func (h *Hardware) onClose(name string, fn func() error) {
	h.closers = append(h.closers, closer{name, fn})
}

// Close releases the devices in reverse opening order. All devices are
// released even when one fails; the first error is returned.
func (h *Hardware) Close() error {
	var first error
	for i := len(h.closers) - 1; i >= 0; i-- {
		c := h.closers[i]
		if err := c.fn(); err != nil {
			h.log.WithError(err).Warnf("closing %s failed", c.name)
			if first == nil {
				first = errors.Wrapf(err, "close %s", c.name)
			}
		}
	}
	h.closers = nil
	return first
}

// Open initializes the host and opens every device in boot order: display,
// CO2 sensor, pressure sensor, reference sensor, battery and buzzer. On
// failure the devices opened so far are closed. The terminal display writes
// to out.
func Open(cfg *config.Config, out io.Writer, log logrus.FieldLogger) (*Hardware, error) {
	h := &Hardware{log: log}
	if cfg.Simulate {
		h.openSim(cfg, out)
		return h, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host init")
	}
	if err := h.open(cfg, out); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Hardware) open(cfg *config.Config, out io.Writer) error {
	if err := h.openDisplay(cfg, out); err != nil {
		return err
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return errors.Wrapf(monitor.ErrSensorNotDetected, "I2C bus %q: %v", cfg.I2CBus, err)
	}
	h.onClose("I2C bus", bus.Close)

	if err := h.openSensors(bus, cfg); err != nil {
		return err
	}
	if h.Devices.Battery, err = h.openBattery(bus, cfg); err != nil {
		return err
	}

	p := gpioreg.ByName(cfg.BuzzerPin)
	if p == nil {
		return errors.Errorf("buzzer pin %q not found", cfg.BuzzerPin)
	}
	b, err := buzzer.New(p)
	if err != nil {
		return errors.Wrap(err, "buzzer")
	}
	h.onClose("buzzer", b.Halt)
	h.Devices.Toner = b
	return nil
}

func (h *Hardware) openDisplay(cfg *config.Config, out io.Writer) error {
	if cfg.Display == config.DisplayTerminal {
		h.Devices.Panel = screen2d.New(&screen2d.Opts{Width: TerminalWidth, Height: TerminalHeight, W: out})
		return nil
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return errors.Wrapf(monitor.ErrDisplay, "SPI port %q: %v", cfg.SPIPort, err)
	}
	h.onClose("SPI port", port.Close)

	opts := waveshare2in13v2.EPD2in13v2
	opts.Origin = waveshare2in13v2.CornerForRotation(cfg.Rotation)
	dev, err := waveshare2in13v2.NewHat(port, &opts)
	if err != nil {
		return errors.Wrapf(monitor.ErrDisplay, "%v", err)
	}
	if err := dev.Init(); err != nil {
		return errors.Wrapf(monitor.ErrDisplay, "%v", err)
	}
	// The panel keeps the last frame while sleeping.
	h.onClose("display", dev.Sleep)
	h.Devices.Panel = EPaper{dev}
	return nil
}

func (h *Hardware) openSensors(bus i2c.Bus, cfg *config.Config) error {
	primary, err := scd30.NewI2C(bus, scd30.SensorAddress, &scd30.DefaultOpts)
	if err != nil {
		h.log.WithError(err).Error("SCD30 not detected. Please check wiring.")
		return errors.Wrapf(monitor.ErrSensorNotDetected, "SCD30: %v", err)
	}
	h.onClose("SCD30", primary.Halt)
	h.Devices.Primary = primary

	pressure, err := bmxx80.NewI2C(bus, cfg.PressureAddress, &bmxx80.DefaultOpts)
	if err != nil {
		h.log.WithError(err).Error("BMP280 not detected. Please check wiring.")
		return errors.Wrapf(monitor.ErrSensorNotDetected, "BMP280: %v", err)
	}
	h.onClose("BMP280", pressure.Halt)
	h.Devices.Pressure = pressure

	reference, err := dht12.NewI2C(bus, dht12.SensorAddress)
	if err != nil {
		h.log.WithError(err).Error("DHT12 not detected. Please check wiring.")
		return errors.Wrapf(monitor.ErrSensorNotDetected, "DHT12: %v", err)
	}
	h.onClose("DHT12", reference.Halt)
	h.Devices.Reference = reference
	return nil
}

// adcFullScale is the ADC reference of the battery divider.
const adcFullScale = 3300 * physic.MilliVolt

// Single ended inputs, indexed by config.Config.BatteryChannel.
var adcChannels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

func (h *Hardware) openBattery(bus i2c.Bus, cfg *config.Config) (monitor.BatterySource, error) {
	switch cfg.Battery {
	case config.BatteryADS1015:
		adc, err := ads1x15.NewADS1015(bus, &ads1x15.DefaultOpts)
		if err != nil {
			return nil, errors.Wrap(err, "ADS1015")
		}
		h.onClose("ADS1015", adc.Halt)
		pin, err := adc.PinForChannel(adcChannels[cfg.BatteryChannel], adcFullScale, 1*physic.Hertz, ads1x15.SaveEnergy)
		if err != nil {
			return nil, errors.Wrap(err, "ADS1015 channel")
		}
		h.onClose("ADS1015 channel", pin.Halt)
		return battery.NewScaledADC(pin, adcFullScale), nil
	case config.BatteryINA260:
		m := ina260.NewI2C(bus, ina260.DefaultAddress)
		h.onClose("INA260", m.Halt)
		return battery.NewMonitor(m), nil
	}
	return nil, nil
}

// simSeed keeps simulated runs reproducible.
const simSeed = 1

func (h *Hardware) openSim(cfg *config.Config, out io.Writer) {
	room := sim.NewRoom(simSeed)
	h.Devices = monitor.Devices{
		Primary:   room.Primary(),
		Pressure:  room.Barometer(),
		Reference: room.Reference(),
		Panel:     screen2d.New(&screen2d.Opts{Width: TerminalWidth, Height: TerminalHeight, W: out}),
		Toner:     &sim.Buzzer{Log: h.log},
	}
	if cfg.Battery != config.BatteryNone {
		h.Devices.Battery = battery.NewADC(room.BatteryADC())
	}
}

// EPaper adapts the e-paper driver to monitor.Panel.
type EPaper struct {
	*waveshare2in13v2.Dev
}

// UpdateWindow refreshes r from src, with the partial waveform when fast is
// set.
func (e EPaper) UpdateWindow(r image.Rectangle, src image.Image, fast bool) error {
	mode := waveshare2in13v2.Full
	if fast {
		mode = waveshare2in13v2.Partial
	}
	return e.Dev.UpdateWindow(r, src, mode)
}

var _ monitor.Panel = EPaper{}

