// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ina260 controls a Texas Instruments INA260 current, voltage and
// power monitor IC over an i2c bus. The shunt resistor is integrated, so no
// calibration is needed.
//
// # Datasheet
//
// http://www.ti.com/lit/ds/symlink/ina260.pdf
package ina260
