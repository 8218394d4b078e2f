// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"encoding/binary"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Corner is the physical corner of the panel that becomes the logical (0,0).
type Corner uint8

const (
	// TopLeft keeps the native portrait orientation.
	TopLeft Corner = iota
	// TopRight turns the picture a quarter clockwise (landscape).
	TopRight
	// BottomRight turns the picture upside down.
	BottomRight
	// BottomLeft turns the picture a quarter counter-clockwise (landscape).
	BottomLeft
)

// CornerForRotation returns the origin for the given number of clockwise
// quarter turns.
func CornerForRotation(quarterTurns int) Corner {
	return Corner(((quarterTurns % 4) + 4) % 4)
}

// geometry translates between the logical buffer and the controller RAM.
//
// Physical coordinates follow the RAM layout: X runs along a gate line
// (Width pixels, 8 per byte) and Y selects the gate line (Height lines).
type geometry struct {
	origin Corner
	phys   image.Point
}

func (g geometry) logicalSize() image.Point {
	if g.origin == TopRight || g.origin == BottomLeft {
		return image.Pt(g.phys.Y, g.phys.X)
	}
	return g.phys
}

func (g geometry) toPhysical(l image.Point) image.Point {
	switch g.origin {
	case TopRight:
		return image.Pt(g.phys.X-1-l.Y, l.X)
	case BottomRight:
		return image.Pt(g.phys.X-1-l.X, g.phys.Y-1-l.Y)
	case BottomLeft:
		return image.Pt(l.Y, g.phys.Y-1-l.X)
	}
	return l
}

func (g geometry) toLogical(p image.Point) image.Point {
	switch g.origin {
	case TopRight:
		return image.Pt(p.Y, g.phys.X-1-p.X)
	case BottomRight:
		return image.Pt(g.phys.X-1-p.X, g.phys.Y-1-p.Y)
	case BottomLeft:
		return image.Pt(g.phys.Y-1-p.Y, p.X)
	}
	return p
}

// window converts a logical rectangle into the RAM area covering it:
// horizontally in bytes, vertically in gate lines. The result is empty when r
// lies outside the panel.
func (g geometry) window(r image.Rectangle) image.Rectangle {
	r = r.Intersect(image.Rectangle{Max: g.logicalSize()})
	if r.Empty() {
		return image.Rectangle{}
	}
	p := image.Rectangle{
		Min: g.toPhysical(r.Min),
		Max: g.toPhysical(r.Max.Sub(image.Pt(1, 1))),
	}.Canon()
	return image.Rect(p.Min.X/8, p.Min.Y, p.Max.X/8+1, p.Max.Y+1)
}

// setMemoryArea restricts RAM access to win and moves the address counters
// to its first byte.
func setMemoryArea(ctrl controller, win image.Rectangle) {
	var y [4]byte
	binary.LittleEndian.PutUint16(y[0:], uint16(win.Min.Y))
	binary.LittleEndian.PutUint16(y[2:], uint16(win.Max.Y-1))

	ctrl.sendCommand(dataEntryModeSetting)
	// X and Y increment, counter advances along X first.
	ctrl.sendData([]byte{0x03})

	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{byte(win.Min.X), byte(win.Max.X - 1)})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData(y[:])

	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{byte(win.Min.X)})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData(y[:2])
}

// writeWindow streams the part of buf covered by win into the RAM selected
// by cmd. Bits past the panel width are sent as zero.
func writeWindow(ctrl controller, cmd byte, g geometry, buf *image1bit.VerticalLSB, win image.Rectangle) {
	if win.Empty() {
		return
	}
	setMemoryArea(ctrl, win)
	ctrl.sendCommand(cmd)

	row := make([]byte, win.Dx())
	for py := win.Min.Y; py < win.Max.Y; py++ {
		for i := range row {
			var b byte
			for bit := range 8 {
				px := (win.Min.X+i)*8 + bit
				if px >= g.phys.X {
					break
				}
				l := g.toLogical(image.Pt(px, py))
				if buf.BitAt(l.X, l.Y) {
					b |= 0x80 >> bit
				}
			}
			row[i] = b
		}
		ctrl.sendData(row)
	}
}
