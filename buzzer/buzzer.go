// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buzzer drives a passive piezo buzzer with a square wave on a PWM
// capable GPIO pin.
//
// Tones are non-blocking: Tone starts the wave and returns, a timer stops it
// once the duration elapsed. Starting a new tone replaces the running one.
package buzzer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Dev is a buzzer connected to a single pin.
type Dev struct {
	p gpio.PinOut

	mu    sync.Mutex
	timer *time.Timer
	// Incremented on every Tone and Halt so a stale timer does not silence
	// a newer tone.
	gen uint64
}

// New returns a Dev on p. The pin is driven low.
func New(p gpio.PinOut) (*Dev, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer: %w", err)
	}
	return &Dev{p: p}, nil
}

// Tone plays a tone of frequency f for d. It returns immediately.
func (b *Dev) Tone(f physic.Frequency, d time.Duration) error {
	if f <= 0 {
		return errors.New("buzzer: frequency must be positive")
	}
	if d <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopTimer()
	if err := b.p.PWM(gpio.DutyHalf, f); err != nil {
		return fmt.Errorf("buzzer: %w", err)
	}
	gen := b.gen
	b.timer = time.AfterFunc(d, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen == gen {
			_ = b.p.Out(gpio.Low)
			b.timer = nil
		}
	})
	return nil
}

// Halt silences the buzzer immediately.
func (b *Dev) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimer()
	return b.p.Out(gpio.Low)
}

func (b *Dev) String() string {
	return fmt.Sprintf("buzzer{%s}", b.p)
}

// stopTimer cancels the pending stop. Must be called with mu held.
func (b *Dev) stopTimer() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

var _ conn.Resource = &Dev{}
