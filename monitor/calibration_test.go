// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"math"
	"testing"
)

func TestCalibrationUpdate(t *testing.T) {
	for _, tc := range []struct {
		name               string
		offset             float64
		primary, reference float64
		want               float64
	}{
		{"warmer primary", 0.5, 22.0, 21.0, 1.5},
		{"clamped", 0.2, 20.0, 21.0, 0},
		{"equal", 1.25, 21.0, 21.0, 1.25},
		{"from zero", 0, 25.0, 21.0, 4},
		{"exactly zero", 1, 20.0, 21.0, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Calibration{Offset: tc.offset}
			old, got := c.Update(tc.primary, tc.reference)
			if old != tc.offset {
				t.Errorf("Update() old = %g, want %g", old, tc.offset)
			}
			if math.Abs(got-tc.want) > 1e-9 || c.Offset != got {
				t.Errorf("Update() = %g (Offset %g), want %g", got, c.Offset, tc.want)
			}
		})
	}
}

func TestCalibrationSequence(t *testing.T) {
	pairs := [][2]float64{
		{24, 21}, {22.5, 21}, {19, 21}, {15, 21}, {21.5, 21}, {30, 21.5}, {21, 21},
	}
	var c Calibration
	want := 0.0
	for i, p := range pairs {
		want = max(0, want+p[0]-p[1])
		if _, got := c.Update(p[0], p[1]); math.Abs(got-want) > 1e-9 {
			t.Errorf("#%d: Update(%g, %g) = %g, want %g", i, p[0], p[1], got, want)
		}
		if c.Offset < 0 {
			t.Errorf("#%d: negative offset %g", i, c.Offset)
		}
	}
}
