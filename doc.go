// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package airmon is a desk CO2 monitor built on periph.io.
//
// The monitor polls an SCD30 CO2 sensor, a BMP280 barometer and a DHT12
// reference thermometer over I²C, feeds the temperature difference back into
// the SCD30 as a self-heating offset, and shows the readings on a 2.13"
// e-paper panel. A buzzer sounds while CO2 is above 1100 ppm.
//
// The drivers live in their own packages (scd30, dht12, ina260,
// waveshare2in13v2, screen2d, buzzer, battery); the control loop is in
// package monitor and the command line tool in cmd/airmon.
package airmon
