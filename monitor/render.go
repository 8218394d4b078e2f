// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
)

// Align selects how a field is placed horizontally.
type Align int

const (
	// AlignRight anchors the text at RightX. The text width is not taken
	// into account.
	AlignRight Align = iota
	// AlignLeft anchors the text at LeftX.
	AlignLeft
	// AlignCenter centers the measured text on the screen.
	AlignCenter
)

// FontSize is one of the three font tiers.
type FontSize int

const (
	FontSmall FontSize = iota
	FontMedium
	FontLarge
)

// Field identifies a value of a Frame.
type Field int

const (
	FieldCO2 Field = iota
	FieldPressure
	FieldTemperature
	FieldHumidity
	FieldBattery
)

// Text formats the field of f.
func (fl Field) Text(f *Frame) string {
	switch fl {
	case FieldCO2:
		return fmt.Sprintf("%d", f.CO2)
	case FieldPressure:
		return fmt.Sprintf("%.1f", f.Pressure)
	case FieldTemperature:
		return fmt.Sprintf("%.1f", f.ReferenceTemperature)
	case FieldHumidity:
		return fmt.Sprintf("%.1f", f.Humidity)
	case FieldBattery:
		return f.BatteryText()
	}
	return ""
}

// Region places one field on the screen. Y is the text baseline.
type Region struct {
	Field Field
	Font  FontSize
	Y     int
	Align Align
}

// Layout is the fixed screen layout.
var Layout = []Region{
	{FieldCO2, FontLarge, 40, AlignLeft},
	{FieldPressure, FontMedium, 70, AlignLeft},
	{FieldTemperature, FontMedium, 90, AlignLeft},
	{FieldHumidity, FontMedium, 110, AlignLeft},
	{FieldBattery, FontSmall, 110, AlignRight},
}

const (
	// LeftX is the anchor of left aligned text.
	LeftX = 30
	// RightX is the anchor of right aligned text.
	RightX = 180
)

// Window is the area refreshed on every frame, clipped to the panel.
var Window = image.Rect(0, 0, 222, 125)

// fontDPI matches the pixel density of the 2.13" panel.
const fontDPI = 141

var fontTiers = [...]struct {
	ttf  []byte
	size float64
}{
	FontSmall:  {gomono.TTF, 9},
	FontMedium: {gomonobold.TTF, 12},
	FontLarge:  {gomonobold.TTF, 24},
}

// anchorX returns the x position of text with the given measured bounds.
// x1 is the left edge of the glyph bounds relative to the origin and w the
// bounds width.
func anchorX(a Align, screenWidth, x1, w int) int {
	switch a {
	case AlignLeft:
		return LeftX
	case AlignCenter:
		return screenWidth/2 - (w+x1)/2
	}
	return RightX
}

// measure returns the left offset and width of the glyph bounds of s.
func measure(face font.Face, s string) (x1, w int) {
	b, _ := font.BoundString(face, s)
	return b.Min.X.Floor(), (b.Max.X - b.Min.X).Ceil()
}

// Renderer paints frames on an off-screen canvas and pushes them to a Panel.
type Renderer struct {
	panel Panel
	dc    *gg.Context
	faces [len(fontTiers)]font.Face
}

// NewRenderer returns a renderer with a canvas the size of p.
func NewRenderer(p Panel) (*Renderer, error) {
	size := p.Bounds().Size()
	r := &Renderer{panel: p, dc: gg.NewContext(size.X, size.Y)}
	for i, t := range fontTiers {
		f, err := truetype.Parse(t.ttf)
		if err != nil {
			return nil, fmt.Errorf("monitor: font: %w", err)
		}
		r.faces[i] = truetype.NewFace(f, &truetype.Options{Size: t.size, DPI: fontDPI, Hinting: font.HintingFull})
	}
	r.clearCanvas()
	return r, nil
}

// Init blanks the panel with a full refresh.
func (r *Renderer) Init() error {
	r.clearCanvas()
	return r.panel.Clear(color.White)
}

// Paint draws f and refreshes Window in fast mode. The canvas is white again
// when Paint returns.
func (r *Renderer) Paint(f *Frame) error {
	r.draw(f)
	err := r.panel.UpdateWindow(Window.Intersect(r.panel.Bounds()), r.dc.Image(), true)
	r.clearCanvas()
	return err
}

// Image draws f and returns a copy of the canvas without touching the panel.
func (r *Renderer) Image(f *Frame) image.Image {
	r.draw(f)
	src := r.dc.Image()
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.(*image.RGBA).Pix)
	r.clearCanvas()
	return out
}

func (r *Renderer) draw(f *Frame) {
	r.dc.SetColor(color.Black)
	for _, reg := range Layout {
		face := r.faces[reg.Font]
		s := reg.Field.Text(f)
		x1, w := measure(face, s)
		r.dc.SetFontFace(face)
		r.dc.DrawString(s, float64(anchorX(reg.Align, r.dc.Width(), x1, w)), float64(reg.Y))
	}
}

func (r *Renderer) clearCanvas() {
	r.dc.SetColor(color.White)
	r.dc.Clear()
}
