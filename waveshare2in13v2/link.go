// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

import (
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// link drives the SSD1675 over SPI plus its control lines.
//
// The first failure sticks in err; every later operation is skipped so a
// sequence of commands can be checked once at the end.
type link struct {
	c    conn.Conn
	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn
	err  error
}

func (d *Dev) link() *link {
	return &link{c: d.c, dc: d.dc, cs: d.cs, rst: d.rst, busy: d.busy}
}

func (l *link) do(f func() error) {
	if l.err == nil {
		l.err = f()
	}
}

func (l *link) out(p gpio.PinOut, v gpio.Level) {
	l.do(func() error { return p.Out(v) })
}

// frame sends b with the data/command line at dc.
func (l *link) frame(dc gpio.Level, b []byte) {
	l.out(l.dc, dc)
	l.out(l.cs, gpio.Low)
	l.do(func() error { return l.c.Tx(b, nil) })
	l.out(l.cs, gpio.High)
}

func (l *link) sendCommand(cmd byte) {
	l.frame(gpio.Low, []byte{cmd})
}

func (l *link) sendData(data []byte) {
	l.frame(gpio.High, data)
}

// waitUntilIdle polls the busy line until the controller releases it or
// busyTimeout expires.
func (l *link) waitUntilIdle() {
	deadline := time.Now().Add(busyTimeout)
	l.do(func() error {
		for l.busy.Read() == gpio.High {
			if time.Now().After(deadline) {
				return errBusyTimeout
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	})
}

// reset pulses the hardware reset line.
func (l *link) reset() {
	for _, s := range []struct {
		v gpio.Level
		d time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		l.out(l.rst, s.v)
		if l.err != nil {
			return
		}
		time.Sleep(s.d)
	}
}
