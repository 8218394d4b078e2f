// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 CO2 sensor module.
//
// The SCD30 measures CO2 concentration with an NDIR cell and carries an SHT31
// for temperature and humidity. Because the module heats itself, the
// temperature reading is usually corrected with a temperature offset; the
// offset also improves the humidity compensation of the CO2 value. Ambient
// pressure (or altitude) compensation is passed when starting continuous
// measurement.
//
// The sensor needs a pause between the write of a command and the read of its
// response, so every transaction is split in two I²C transfers.
//
// Refer to the interface description for more information.
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
