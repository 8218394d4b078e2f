// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in13v2 controls the Waveshare 2in13v2 e-paper display
// (GoodDisplay GDEH0213B72 glass driven by a Solomon SSD1675).
//
// The driver keeps a copy of the frame and supports windowed partial
// refreshes, which is what an always-on monitor needs: the panel is cleared
// once with a full refresh and then only the changed area is redrawn.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/d/d5/2.13inch_e-Paper_Specification.pdf
//
// Product page:
//
// 2.13 Inch version 2: https://www.waveshare.com/wiki/2.13inch_e-Paper_HAT
package waveshare2in13v2
