// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a 2D display.Drawer that outputs to a terminal
// using ANSI color codes.
//
// Useful to run the monitor on a workstation, or while the e-paper panel is
// still in the mail.
package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// Size of the emulated panel in pixels.
	Width  int
	Height int
	// Scale is the number of pixels per terminal column. Each terminal row
	// covers 2*Scale pixel rows since cells are about twice as high as wide.
	// Defaults to 2.
	Scale int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is an e-paper emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	scale   int
	palette ansi256.Palette

	frame  *image.Gray
	buf    bytes.Buffer
	frames int
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 2
	}
	return &Dev{
		w:       w,
		scale:   scale,
		palette: *p,
		frame:   image.NewGray(image.Rect(0, 0, opts.Width, opts.Height)),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen2D{%dx%d}", d.frame.Rect.Dx(), d.frame.Rect.Dy())
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.frame.Rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	draw.Draw(d.frame, r, src, sp, draw.Src)
	return d.refresh()
}

// Clear fills the screen with c.
func (d *Dev) Clear(c color.Color) error {
	draw.Draw(d.frame, d.frame.Rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	return d.refresh()
}

// UpdateWindow copies the part of src inside r and redraws. A terminal has
// no refresh waveforms so fast is ignored.
func (d *Dev) UpdateWindow(r image.Rectangle, src image.Image, fast bool) error {
	return d.Draw(r, src, r.Min)
}

// Frame returns the current content.
func (d *Dev) Frame() image.Image {
	return d.frame
}

// Frames returns the number of times the screen was redrawn.
func (d *Dev) Frames() int {
	return d.frames
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	if d.frames == 0 {
		_, _ = d.buf.WriteString("\033[2J")
	}
	_, _ = d.buf.WriteString("\033[H")
	b := d.frame.Rect
	for y := b.Min.Y; y < b.Max.Y; y += 2 * d.scale {
		for x := b.Min.X; x < b.Max.X; x += d.scale {
			_, _ = io.WriteString(&d.buf, d.palette.Block(nrgba(d.frame.GrayAt(x, y))))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.frames++
	_, err := d.buf.WriteTo(d.w)
	return err
}

// nrgba widens an opaque gray level for the palette lookup.
func nrgba(c color.Gray) color.NRGBA {
	return color.NRGBA{R: c.Y, G: c.Y, B: c.Y, A: 0xff}
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
