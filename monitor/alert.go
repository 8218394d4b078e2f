// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Alert settings. The tone repeats on every cycle above the threshold.
const (
	AlertThreshold = 1100
	AlertFrequency = 4 * physic.KiloHertz
	AlertDuration  = 500 * time.Millisecond
)

// ShouldAlert reports whether co2 ppm is above AlertThreshold.
func ShouldAlert(co2 int) bool {
	return co2 > AlertThreshold
}
