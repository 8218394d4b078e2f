// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the AOSONG DHT12 Temperature/Humidity
// Sensor in I²C mode. The DHT12 is the I²C successor of the DHT11 and shares
// its address with the AM2320, but it uses a plain register read and an
// additive checksum.
//
// # Datasheet
//
// http://www.robototehnika.ru/file/DHT12.pdf
package dht12

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Dev represents a dht12 temperature/humidity sensor.
type Dev struct {
	d        *i2c.Dev
	mu       sync.Mutex
	shutdown chan struct{}
}

const (
	// The address of this device is fixed.
	SensorAddress uint16 = 0x5c

	humidityRegister byte = 0x00
	readLength            = 5
	retries               = 3
)

// minInterval bounds SenseContinuous to the sensor refresh rate.
var minInterval = 2 * time.Second

// ErrChecksum is returned when the data read from the sensor does not match
// its checksum.
var ErrChecksum = errors.New("dht12: checksum mismatch")

// NewI2C returns a dht12 on the bus. No I/O is done until Sense is called.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	return d, nil
}

// Halt interrupts a running SenseContinuous() operation.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	return nil
}

// decode converts the register block into env. The layout is humidity
// integer, humidity tenths, temperature integer, temperature tenths with the
// sign in bit 7, and the low byte of the sum of the first four bytes.
func decode(r []byte, env *physic.Env) error {
	if r[0]+r[1]+r[2]+r[3] != r[4] {
		return ErrChecksum
	}
	env.Humidity = physic.RelativeHumidity(int(r[0])*10+int(r[1])) * (physic.PercentRH / 10)
	t := physic.Temperature(int(r[2])*10 + int(r[3]&0x7f))
	if r[3]&0x80 != 0 {
		t = -t
	}
	env.Temperature = physic.ZeroCelsius + t*(physic.Celsius/10)
	return nil
}

// Sense reads the current temperature and humidity. The sensor refreshes its
// registers every two seconds; faster polls return the same values.
func (dev *Dev) Sense(env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0

	dev.mu.Lock()
	defer dev.mu.Unlock()

	r := make([]byte, readLength)
	var err error
	for range retries {
		if err = dev.d.Tx([]byte{humidityRegister}, r); err == nil {
			if err = decode(r, env); err == nil {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("dht12 error reading sensor: %w", err)
}

// SenseContinuous returns a channel that can be read to return values from
// the sensor. The minimum value for interval is 2 seconds. To end the read,
// call Halt()
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minInterval {
		return nil, errors.New("dht12: invalid duration. minimum 2 seconds")
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New("dht12: sense continuous already running")
	}

	dev.shutdown = make(chan struct{})
	shutdown := dev.shutdown
	ch := make(chan physic.Env, 16)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := dev.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-shutdown:
					return
				}
			}
		}
	}()
	return ch, nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("dht12: %s", dev.d)
}

// Precision returns the resolution of the device for it's measured parameters.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = physic.Celsius / 10
	env.Pressure = 0
	env.Humidity = physic.PercentRH / 10
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
