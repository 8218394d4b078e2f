// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor implements the measurement loop of a CO2 monitor.
//
// Each cycle reads a CO2 sensor, a pressure sensor and a reference
// thermometer, feeds the temperature difference back into the CO2 sensor as
// a self-heating offset, paints the readings on an e-paper panel with a
// partial refresh and sounds a buzzer while the CO2 concentration is above
// AlertThreshold.
//
// The offset integrates the residual difference between the compensated
// temperature of the CO2 sensor and the reference:
//
//	offset = max(0, offset + primary - reference)
//
// The ambient pressure is pushed to the CO2 sensor every PressureEvery
// cycles, starting with the first one.
package monitor
