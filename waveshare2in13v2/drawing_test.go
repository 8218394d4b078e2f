// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"image"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestCornerForRotation(t *testing.T) {
	for _, tc := range []struct {
		turns int
		want  Corner
	}{
		{0, TopLeft},
		{1, TopRight},
		{2, BottomRight},
		{3, BottomLeft},
		{4, TopLeft},
		{-1, BottomLeft},
	} {
		if got := CornerForRotation(tc.turns); got != tc.want {
			t.Errorf("CornerForRotation(%d) = %d, want %d", tc.turns, got, tc.want)
		}
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	for _, origin := range []Corner{TopLeft, TopRight, BottomRight, BottomLeft} {
		g := geometry{origin: origin, phys: image.Pt(122, 250)}
		size := g.logicalSize()
		for _, l := range []image.Point{{0, 0}, {size.X - 1, 0}, {0, size.Y - 1}, {size.X - 1, size.Y - 1}, {17, 33}} {
			p := g.toPhysical(l)
			if !p.In(image.Rectangle{Max: g.phys}) {
				t.Errorf("origin %d: toPhysical(%v) = %v outside panel", origin, l, p)
			}
			if back := g.toLogical(p); back != l {
				t.Errorf("origin %d: toLogical(toPhysical(%v)) = %v", origin, l, back)
			}
		}
	}
}

func TestGeometryWindow(t *testing.T) {
	for _, tc := range []struct {
		name   string
		origin Corner
		r      image.Rectangle
		want   image.Rectangle
	}{
		{
			name:   "full portrait",
			origin: TopLeft,
			r:      image.Rect(0, 0, 122, 250),
			want:   image.Rect(0, 0, 16, 250),
		},
		{
			name:   "landscape clipped",
			origin: TopRight,
			r:      image.Rect(0, 0, 222, 125),
			want:   image.Rect(0, 0, 16, 222),
		},
		{
			name:   "landscape small",
			origin: TopRight,
			r:      image.Rect(8, 0, 16, 10),
			want:   image.Rect(14, 8, 16, 16),
		},
		{
			name:   "upside down",
			origin: BottomRight,
			r:      image.Rect(0, 0, 8, 1),
			want:   image.Rect(14, 249, 16, 250),
		},
		{
			name:   "outside",
			origin: TopRight,
			r:      image.Rect(300, 0, 310, 5),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := geometry{origin: tc.origin, phys: image.Pt(122, 250)}

			if diff := cmp.Diff(g.window(tc.r), tc.want); diff != "" {
				t.Errorf("window() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestWriteWindow(t *testing.T) {
	area := func(x0, x1 byte, y0, y1 byte) []record {
		return []record{
			{cmd: dataEntryModeSetting, data: []byte{0x03}},
			{cmd: setRAMXAddressStartEndPosition, data: []byte{x0, x1}},
			{cmd: setRAMYAddressStartEndPosition, data: []byte{y0, 0, y1, 0}},
			{cmd: setRAMXAddressCounter, data: []byte{x0}},
			{cmd: setRAMYAddressCounter, data: []byte{y0, 0}},
		}
	}

	for _, tc := range []struct {
		name   string
		origin Corner
		phys   image.Point
		fill   bool
		on     []image.Point
		want   []record
	}{
		{
			name:   "portrait",
			origin: TopLeft,
			phys:   image.Pt(16, 2),
			on:     []image.Point{{0, 0}, {9, 1}},
			want: append(area(0, 1, 0, 1),
				record{cmd: writeRAMBW, data: []byte{0x80, 0x00, 0x00, 0x40}}),
		},
		{
			name:   "landscape",
			origin: TopRight,
			phys:   image.Pt(16, 2),
			on:     []image.Point{{0, 0}, {1, 15}},
			want: append(area(0, 1, 0, 1),
				record{cmd: writeRAMBW, data: []byte{0x00, 0x01, 0x80, 0x00}}),
		},
		{
			name:   "padding",
			origin: TopLeft,
			phys:   image.Pt(12, 1),
			fill:   true,
			want: append(area(0, 1, 0, 0),
				record{cmd: writeRAMBW, data: []byte{0xff, 0xf0}}),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := geometry{origin: tc.origin, phys: tc.phys}
			buf := image1bit.NewVerticalLSB(image.Rectangle{Max: g.logicalSize()})
			if tc.fill {
				draw.Draw(buf, buf.Bounds(), &image.Uniform{C: image1bit.On}, image.Point{}, draw.Src)
			}
			for _, p := range tc.on {
				buf.SetBit(p.X, p.Y, image1bit.On)
			}

			var got commandLog
			writeWindow(&got, writeRAMBW, g, buf, g.window(buf.Bounds()))

			if diff := diffRecords(&got, tc.want); diff != "" {
				t.Errorf("writeWindow() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestWriteWindowEmpty(t *testing.T) {
	g := geometry{phys: image.Pt(16, 2)}
	buf := image1bit.NewVerticalLSB(image.Rect(0, 0, 16, 2))

	var got commandLog
	writeWindow(&got, writeRAMBW, g, buf, image.Rectangle{})

	if len(got.records) != 0 {
		t.Errorf("writeWindow() sent %d records for an empty window", len(got.records))
	}
}
