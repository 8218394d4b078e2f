// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/conn/v3/physic"
)

var errFake = errors.New("fake failure")

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Kelvin))
}

// primaryEnv returns a primary reading.
func primaryEnv(co2 int, temp, hum float64) scd30.Env {
	e := scd30.Env{CO2: scd30.PPM(co2)}
	e.Temperature = celsius(temp)
	e.Humidity = physic.RelativeHumidity(hum * float64(physic.PercentRH))
	return e
}

type fakePrimary struct {
	// envs are returned in order, the last one repeats.
	envs      []scd30.Env
	senseErrs map[int]error
	ascErr    error

	senses     int
	offsets    []physic.Temperature
	pressures  []physic.Pressure
	pressureAt []int
	asc        []bool
	frc        []scd30.PPM
}

func (p *fakePrimary) Sense(e *scd30.Env) error {
	i := p.senses
	p.senses++
	if err := p.senseErrs[i]; err != nil {
		return err
	}
	*e = p.envs[min(i, len(p.envs)-1)]
	return nil
}

func (p *fakePrimary) SetTemperatureOffset(t physic.Temperature) error {
	p.offsets = append(p.offsets, t)
	return nil
}

func (p *fakePrimary) TemperatureOffset() (physic.Temperature, error) {
	if len(p.offsets) == 0 {
		return 0, nil
	}
	return p.offsets[len(p.offsets)-1], nil
}

func (p *fakePrimary) SetAmbientPressure(pr physic.Pressure) error {
	p.pressures = append(p.pressures, pr)
	p.pressureAt = append(p.pressureAt, p.senses-1)
	return nil
}

func (p *fakePrimary) SetAutoSelfCalibration(enabled bool) error {
	if p.ascErr != nil {
		return p.ascErr
	}
	p.asc = append(p.asc, enabled)
	return nil
}

func (p *fakePrimary) ForceRecalibration(ppm scd30.PPM) error {
	p.frc = append(p.frc, ppm)
	return nil
}

type fakeEnv struct {
	env   physic.Env
	err   error
	calls int
}

func (f *fakeEnv) Sense(e *physic.Env) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	*e = f.env
	return nil
}

type fakeBattery struct {
	v     float64
	calls int
}

func (b *fakeBattery) Voltage() (float64, error) {
	b.calls++
	return b.v, nil
}

type update struct {
	r    image.Rectangle
	img  *image.RGBA
	fast bool
}

type fakePanel struct {
	bounds   image.Rectangle
	clearErr error
	clears   []color.Color
	updates  []update
}

func (p *fakePanel) Bounds() image.Rectangle {
	return p.bounds
}

func (p *fakePanel) Clear(c color.Color) error {
	if p.clearErr != nil {
		return p.clearErr
	}
	p.clears = append(p.clears, c)
	return nil
}

func (p *fakePanel) UpdateWindow(r image.Rectangle, src image.Image, fast bool) error {
	// The renderer reuses its canvas, keep a copy.
	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	p.updates = append(p.updates, update{r: r, img: img, fast: fast})
	return nil
}

type tone struct {
	f physic.Frequency
	d time.Duration
}

type fakeToner struct {
	tones []tone
}

func (t *fakeToner) Tone(f physic.Frequency, d time.Duration) error {
	t.tones = append(t.tones, tone{f, d})
	return nil
}

type fakes struct {
	primary   *fakePrimary
	pressure  *fakeEnv
	reference *fakeEnv
	battery   *fakeBattery
	panel     *fakePanel
	toner     *fakeToner
}

func newFakes() *fakes {
	f := &fakes{
		primary:   &fakePrimary{envs: []scd30.Env{primaryEnv(612, 27.25, 45.5)}},
		pressure:  &fakeEnv{},
		reference: &fakeEnv{},
		battery:   &fakeBattery{v: 3.7},
		panel:     &fakePanel{bounds: image.Rect(0, 0, 250, 122)},
		toner:     &fakeToner{},
	}
	f.pressure.env.Pressure = 101325 * physic.Pascal
	f.pressure.env.Temperature = celsius(28)
	f.reference.env.Temperature = celsius(21)
	f.reference.env.Humidity = 50 * physic.PercentRH
	return f
}

func (f *fakes) devices() Devices {
	return Devices{
		Primary:   f.primary,
		Pressure:  f.pressure,
		Reference: f.reference,
		Battery:   f.battery,
		Panel:     f.panel,
		Toner:     f.toner,
	}
}

// newMonitor returns a Monitor on f. It is booted when boot is set.
func newMonitor(t *testing.T, f *fakes, opts *Opts, boot bool) (*Monitor, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	m, err := New(f.devices(), opts, log)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if boot {
		if err := m.Boot(); err != nil {
			t.Fatalf("Boot() failed: %v", err)
		}
	}
	return m, hook
}

func step(t *testing.T, m *Monitor) Frame {
	t.Helper()
	f, err := m.Step()
	if err != nil {
		t.Fatalf("Step() failed: %v", err)
	}
	return f
}

func newNullLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}
