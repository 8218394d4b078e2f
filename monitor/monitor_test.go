// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/airmon/scd30"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

func TestNewMissingDevice(t *testing.T) {
	f := newFakes()
	dev := f.devices()
	dev.Toner = nil
	if _, err := New(dev, nil, nil); err == nil {
		t.Error("New() accepted a missing toner")
	}
	dev = f.devices()
	dev.Battery = nil
	if _, err := New(dev, nil, nil); err != nil {
		t.Errorf("New() without battery failed: %v", err)
	}
}

func TestBoot(t *testing.T) {
	f := newFakes()
	m, hook := newMonitor(t, f, nil, true)

	if len(f.panel.clears) != 1 {
		t.Errorf("Boot() cleared the panel %d times, want 1", len(f.panel.clears))
	}
	if diff := cmp.Diff(f.primary.asc, []bool{false}); diff != "" {
		t.Errorf("auto self calibration difference (-got +want):\n%s", diff)
	}
	if f.pressure.calls != 1 || f.reference.calls != 1 {
		t.Errorf("Boot() probed pressure %d and reference %d times, want 1 and 1", f.pressure.calls, f.reference.calls)
	}
	if f.primary.senses != 0 || len(f.panel.updates) != 0 {
		t.Errorf("Boot() read the primary sensor or painted")
	}
	var msgs []string
	for _, e := range hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	want := []string{"setup...", "SCD30 setup...", "BMP280 setup...", "DHT12 setup...", "...done"}
	if diff := cmp.Diff(msgs, want); diff != "" {
		t.Errorf("boot log difference (-got +want):\n%s", diff)
	}
	if m.Cycle() != 0 {
		t.Errorf("Cycle() = %d after Boot()", m.Cycle())
	}
}

func TestBootPrimaryFailure(t *testing.T) {
	f := newFakes()
	f.primary.ascErr = errFake
	m, hook := newMonitor(t, f, &Opts{Interval: time.Millisecond}, false)

	err := m.Boot()
	if !errors.Is(err, ErrSensorNotDetected) {
		t.Fatalf("Boot() = %v, want ErrSensorNotDetected", err)
	}
	if e := hook.LastEntry(); e.Level != logrus.ErrorLevel || e.Message != "SCD30 not detected. Please check wiring." {
		t.Errorf("last log entry = %s %q", e.Level, e.Message)
	}

	if _, err := m.Step(); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Step() = %v, want ErrNotBooted", err)
	}
	if err := m.Run(context.Background()); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Run() = %v, want ErrNotBooted", err)
	}
	if f.primary.senses != 0 || f.pressure.calls != 0 || f.reference.calls != 0 {
		t.Errorf("sensors read after a failed boot: primary %d, pressure %d, reference %d",
			f.primary.senses, f.pressure.calls, f.reference.calls)
	}
	if len(f.panel.updates) != 0 || len(f.toner.tones) != 0 {
		t.Errorf("rendered or sounded after a failed boot")
	}
}

func TestBootFailures(t *testing.T) {
	for _, tc := range []struct {
		name    string
		breakIt func(f *fakes)
		want    error
		msg     string
	}{
		{"display", func(f *fakes) { f.panel.clearErr = errFake }, ErrDisplay, "display not detected. Please check wiring."},
		{"pressure", func(f *fakes) { f.pressure.err = errFake }, ErrSensorNotDetected, "BMP280 not detected. Please check wiring."},
		{"reference", func(f *fakes) { f.reference.err = errFake }, ErrSensorNotDetected, "DHT12 not detected. Please check wiring."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakes()
			tc.breakIt(f)
			m, hook := newMonitor(t, f, nil, false)
			if err := m.Boot(); !errors.Is(err, tc.want) {
				t.Fatalf("Boot() = %v, want %v", err, tc.want)
			}
			if msg := hook.LastEntry().Message; msg != tc.msg {
				t.Errorf("last log = %q, want %q", msg, tc.msg)
			}
			if _, err := m.Step(); !errors.Is(err, ErrNotBooted) {
				t.Errorf("Step() = %v, want ErrNotBooted", err)
			}
		})
	}
}

func TestBootDisplayFailureStopsEarly(t *testing.T) {
	f := newFakes()
	f.panel.clearErr = errFake
	m, _ := newMonitor(t, f, nil, false)
	if err := m.Boot(); err == nil {
		t.Fatal("Boot() succeeded")
	}
	if len(f.primary.asc) != 0 || f.pressure.calls != 0 {
		t.Error("sensors set up after the display failed")
	}
}

func TestStepPushesOffsetOfSameCycle(t *testing.T) {
	f := newFakes()
	f.primary.envs = []scd30.Env{
		primaryEnv(500, 22, 40),
		primaryEnv(500, 21.5, 40),
		primaryEnv(500, 20, 40),
		primaryEnv(500, 19, 40),
	}
	m, _ := newMonitor(t, f, nil, true)

	for range f.primary.envs {
		step(t, m)
	}
	want := []physic.Temperature{
		1000 * physic.MilliKelvin,
		1500 * physic.MilliKelvin,
		500 * physic.MilliKelvin,
		0,
	}
	if diff := cmp.Diff(f.primary.offsets, want); diff != "" {
		t.Errorf("offsets difference (-got +want):\n%s", diff)
	}
	if m.Offset() != 0 {
		t.Errorf("Offset() = %g, want 0", m.Offset())
	}
}

func TestPressureEvery60Cycles(t *testing.T) {
	f := newFakes()
	m, _ := newMonitor(t, f, nil, true)

	for range 130 {
		step(t, m)
	}
	if diff := cmp.Diff(f.primary.pressureAt, []int{0, 60, 120}); diff != "" {
		t.Errorf("pressure pushed on cycles difference (-got +want):\n%s", diff)
	}
	for i, p := range f.primary.pressures {
		if p != 101325*physic.Pascal {
			t.Errorf("#%d: pressure = %s", i, p)
		}
	}
}

func TestPressureOnCounter(t *testing.T) {
	for _, tc := range []struct {
		cycle int
		want  int
	}{
		{120, 1},
		{121, 0},
		{59, 0},
		{60, 1},
	} {
		f := newFakes()
		m, _ := newMonitor(t, f, nil, true)
		m.cycle = tc.cycle
		step(t, m)
		if got := len(f.primary.pressures); got != tc.want {
			t.Errorf("cycle %d: %d pressure updates, want %d", tc.cycle, got, tc.want)
		}
	}
}

func TestBatteryAlternates(t *testing.T) {
	f := newFakes()
	m, _ := newMonitor(t, f, nil, true)

	if !m.agg.showBattery {
		t.Fatal("flag false before the first cycle")
	}
	var got []string
	for n := 1; n <= 6; n++ {
		fr := step(t, m)
		got = append(got, fr.BatteryText())
		// After N cycles the flag is true exactly when N is even.
		if want := n%2 == 0; m.agg.showBattery != want {
			t.Errorf("after %d cycles flag = %t, want %t", n, m.agg.showBattery, want)
		}
	}
	want := []string{"3.70", "----", "3.70", "----", "3.70", "----"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("battery text difference (-got +want):\n%s", diff)
	}
	if f.battery.calls != 3 {
		t.Errorf("battery sampled %d times, want 3", f.battery.calls)
	}
}

func TestNoBatterySource(t *testing.T) {
	f := newFakes()
	dev := f.devices()
	dev.Battery = nil
	log, _ := newNullLogger()
	m, err := New(dev, nil, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Boot(); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if fr := step(t, m); fr.HasBattery || fr.BatteryText() != BatteryPlaceholder {
			t.Errorf("frame battery = %q", fr.BatteryText())
		}
	}
}

func TestAlert(t *testing.T) {
	for _, tc := range []struct {
		co2  int
		want bool
	}{
		{400, false},
		{1100, false},
		{1101, true},
		{5000, true},
	} {
		if got := ShouldAlert(tc.co2); got != tc.want {
			t.Errorf("ShouldAlert(%d) = %v", tc.co2, got)
		}

		f := newFakes()
		f.primary.envs = []scd30.Env{primaryEnv(tc.co2, 21, 40)}
		m, _ := newMonitor(t, f, nil, true)
		step(t, m)
		step(t, m)
		var want []tone
		if tc.want {
			// No repeat suppression.
			want = []tone{{AlertFrequency, AlertDuration}, {AlertFrequency, AlertDuration}}
		}
		if diff := cmp.Diff(f.toner.tones, want, cmp.AllowUnexported(tone{})); diff != "" {
			t.Errorf("co2 %d: tones difference (-got +want):\n%s", tc.co2, diff)
		}
	}
	if AlertFrequency != 4000*physic.Hertz || AlertDuration != 500*time.Millisecond {
		t.Errorf("alert tone = %s for %s", AlertFrequency, AlertDuration)
	}
}

func TestStepFrame(t *testing.T) {
	f := newFakes()
	m, _ := newMonitor(t, f, nil, true)

	got := step(t, m)
	want := Frame{
		CO2:                  612,
		Temperature:          27.25,
		ReferenceTemperature: 21,
		Humidity:             45.5,
		Pressure:             1013.25,
		Battery:              3.7,
		HasBattery:           true,
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Step() difference (-got +want):\n%s", diff)
	}
	if len(f.panel.updates) != 1 || !f.panel.updates[0].fast {
		t.Errorf("Step() panel updates = %d, want one fast update", len(f.panel.updates))
	}
	if m.Cycle() != 1 {
		t.Errorf("Cycle() = %d, want 1", m.Cycle())
	}
}

func TestStepKeepsLastReading(t *testing.T) {
	f := newFakes()
	f.primary.envs = []scd30.Env{primaryEnv(612, 21, 40), primaryEnv(900, 21, 40)}
	f.primary.senseErrs = map[int]error{1: errFake}
	m, hook := newMonitor(t, f, nil, true)

	step(t, m)
	f.reference.err = errFake
	fr := step(t, m)
	if fr.CO2 != 612 || fr.ReferenceTemperature != 21 {
		t.Errorf("Step() after failures = %+v, want the previous readings", fr)
	}
	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("%d warnings, want 2", warnings)
	}
	if fr = step(t, m); fr.CO2 != 900 {
		t.Errorf("CO2 = %d after recovery, want 900", fr.CO2)
	}
}

func TestVerbose(t *testing.T) {
	f := newFakes()
	m, hook := newMonitor(t, f, &Opts{Verbose: true}, true)
	hook.Reset()

	step(t, m)
	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("%d log entries, want 1", len(entries))
	}
	msg := entries[0].Message
	keys := []string{"co2: 612 ppm", "temp_scd30: 27.25", "hum_scd30: 45.50", "pressure: 1013.25", "temp_bmp280: 28.00", "temp_dht12: 21.00", "hum_dht12: 50.00", "offset: 0.00 / 6.25 / 6.25"}
	last := -1
	for _, k := range keys {
		i := strings.Index(msg, k)
		if i <= last {
			t.Errorf("%q missing or out of order in %q", k, msg)
		}
		last = i
	}
}

func TestQuietByDefault(t *testing.T) {
	f := newFakes()
	m, hook := newMonitor(t, f, nil, true)
	hook.Reset()
	step(t, m)
	if n := len(hook.AllEntries()); n != 0 {
		t.Errorf("%d log entries without verbose", n)
	}
}

func TestForcedRecalibration(t *testing.T) {
	f := newFakes()
	m, _ := newMonitor(t, f, &Opts{ForcedRecalibrationCycle: 3}, true)

	for i := range 10 {
		step(t, m)
		want := 0
		if i >= 2 {
			want = 1
		}
		if len(f.primary.frc) != want {
			t.Errorf("after %d cycles: %d recalibrations, want %d", i+1, len(f.primary.frc), want)
		}
	}
	if diff := cmp.Diff(f.primary.frc, []scd30.PPM{400}); diff != "" {
		t.Errorf("recalibration difference (-got +want):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	f := newFakes()
	m, _ := newMonitor(t, f, &Opts{Interval: time.Millisecond}, true)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
	if m.Cycle() == 0 || m.Cycle() != f.primary.senses || m.Cycle() != len(f.panel.updates) {
		t.Errorf("Cycle() = %d, senses %d, updates %d", m.Cycle(), f.primary.senses, len(f.panel.updates))
	}
}
