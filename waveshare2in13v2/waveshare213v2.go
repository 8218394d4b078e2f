// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"
)

// Commands
const (
	driverOutputControl            byte = 0x01
	gateDrivingVoltageControl      byte = 0x03
	sourceDrivingVoltageControl    byte = 0x04
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	masterActivation               byte = 0x20
	displayUpdateControl1          byte = 0x21
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeRAMRed                    byte = 0x26
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	setDummyLinePeriod             byte = 0x3A
	setGateTime                    byte = 0x3B
	borderWaveformControl          byte = 0x3C
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
	setAnalogBlockControl          byte = 0x74
	setDigitalBlockControl         byte = 0x7E
)

// Register values
const (
	gateDrivingVoltage19V          byte = 0x15
	sourceDrivingVoltageVSH1_15V   byte = 0x41
	sourceDrivingVoltageVSH2_5V    byte = 0xA8
	sourceDrivingVoltageVSL_neg15V byte = 0x32
)

var busyTimeout = 10 * time.Second

var errBusyTimeout = errors.New("waveshare2in13v2: timeout waiting for busy line")

// LUT contains the waveform that is used to program the display.
type LUT []byte

// Opts defines the structure of the display configuration.
type Opts struct {
	// Native panel size in portrait orientation.
	Width  int
	Height int
	// Origin selects the logical orientation of Bounds and of the images
	// passed to Draw and UpdateWindow.
	Origin        Corner
	FullUpdate    LUT
	PartialUpdate LUT
}

// PartialUpdate defines if the display should do a full update or just a partial update.
type PartialUpdate bool

const (
	// Full should update the complete display.
	Full PartialUpdate = false
	// Partial should update only partial parts of the display.
	Partial PartialUpdate = true
)

// EPD2in13v2 contains display configuration for the Waveshare 2in13v2
// (GDEH0213B72 glass, SSD1675 controller).
var EPD2in13v2 = Opts{
	Width:  122,
	Height: 250,
	FullUpdate: LUT{
		0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
		0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

		0x03, 0x03, 0x00, 0x00, 0x02,
		0x09, 0x09, 0x00, 0x00, 0x02,
		0x03, 0x03, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,

		0x15, 0x41, 0xA8, 0x32, 0x30, 0x0A,
	},
	PartialUpdate: LUT{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

		0x0A, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00,

		0x15, 0x41, 0xA8, 0x32, 0x30, 0x0A,
	},
}

// Dev defines the handler which is used to access the display.
//
// The frame is kept in a 1 bit buffer in logical orientation; updates copy
// the affected window into it and stream only that window to the panel.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIO

	opts   *Opts
	geom   geometry
	buffer *image1bit.VerticalLSB

	// Waveform currently loaded in the controller.
	mode       PartialUpdate
	configured bool
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIO, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("waveshare2in13v2: %w", err)
	}

	g := geometry{origin: opts.Origin, phys: image.Pt(opts.Width, opts.Height)}

	d := &Dev{
		c:      c,
		dc:     dc,
		cs:     cs,
		rst:    rst,
		busy:   busy,
		opts:   opts,
		geom:   g,
		buffer: image1bit.NewVerticalLSB(image.Rectangle{Max: g.logicalSize()}),
	}

	return d, nil
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// Init resets the controller and loads the full refresh waveform.
func (d *Dev) Init() error {
	lk := d.link()

	lk.reset()
	initDisplay(lk, d.opts)
	configDisplayMode(lk, Full, d.opts.FullUpdate)

	if lk.err != nil {
		d.configured = false
		return fmt.Errorf("waveshare2in13v2: init: %w", lk.err)
	}
	d.mode = Full
	d.configured = true
	return nil
}

// SetUpdateMode loads the waveform for mode unless it is loaded already.
func (d *Dev) SetUpdateMode(mode PartialUpdate) error {
	if d.configured && d.mode == mode {
		return nil
	}
	lut := d.opts.FullUpdate
	if mode == Partial {
		lut = d.opts.PartialUpdate
	}

	lk := d.link()
	configDisplayMode(lk, mode, lut)
	if lk.err != nil {
		d.configured = false
		return fmt.Errorf("waveshare2in13v2: set update mode: %w", lk.err)
	}
	d.mode = mode
	d.configured = true
	return nil
}

// Clear fills the whole display with c using a full refresh.
func (d *Dev) Clear(c color.Color) error {
	draw.Draw(d.buffer, d.buffer.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return d.flush(d.Bounds(), Full)
}

// UpdateWindow copies the part of src inside r into the frame and refreshes
// that window of the panel. Pixels of src are addressed with the same
// coordinates as the display.
func (d *Dev) UpdateWindow(r image.Rectangle, src image.Image, mode PartialUpdate) error {
	r = r.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	draw.Draw(d.buffer, r, src, r.Min, draw.Src)
	return d.flush(r, mode)
}

// flush sends the window of the buffer covering r and latches it.
func (d *Dev) flush(r image.Rectangle, mode PartialUpdate) error {
	if err := d.SetUpdateMode(mode); err != nil {
		return err
	}

	win := d.geom.window(r)
	lk := d.link()

	writeWindow(lk, writeRAMBW, d.geom, d.buffer, win)
	if mode == Full {
		writeWindow(lk, writeRAMRed, d.geom, d.buffer, win)
	}
	updateDisplay(lk, mode)
	if mode == Partial {
		// The red RAM holds the previous frame for the next partial update.
		writeWindow(lk, writeRAMRed, d.geom, d.buffer, win)
	}

	if lk.err != nil {
		return fmt.Errorf("waveshare2in13v2: update: %w", lk.err)
	}
	return nil
}

// ColorModel returns a 1Bit color model.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the logical bounds, taking Opts.Origin into account.
func (d *Dev) Bounds() image.Rectangle {
	return d.buffer.Bounds()
}

// Draw implements display.Drawer using the currently loaded waveform.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	dstRect = dstRect.Intersect(d.Bounds())
	if dstRect.Empty() {
		return nil
	}
	draw.Draw(d.buffer, dstRect, src, srcPts, draw.Src)
	return d.flush(dstRect, d.mode)
}

// Sleep puts the controller into deep sleep. Call Init to wake it up.
func (d *Dev) Sleep() error {
	lk := d.link()
	enterDeepSleep(lk)
	d.configured = false
	return lk.err
}

// Halt clears the display and puts it to sleep.
func (d *Dev) Halt() error {
	if err := d.Clear(image1bit.On); err != nil {
		return err
	}
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	size := d.Bounds().Size()
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, size.X, size.Y)
}

var _ display.Drawer = &Dev{}
