// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

// Calibration tracks the self-heating offset of the primary sensor.
//
// The primary sensor reports its temperature with the current offset already
// subtracted, so every update adds the remaining difference to the reference
// thermometer. The offset never goes below zero and has no upper bound.
type Calibration struct {
	// Offset in °C.
	Offset float64
}

// Update folds one pair of readings into the offset and returns the value
// before and after the update.
func (c *Calibration) Update(primary, reference float64) (old, updated float64) {
	old = c.Offset
	c.Offset = max(0, primary-reference+old)
	return old, c.Offset
}
