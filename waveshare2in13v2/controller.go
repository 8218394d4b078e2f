// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v2

// controller is the command channel of the SSD1675. The production
// implementation is link; tests record the traffic instead.
type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

// lutSize is the number of waveform bytes written to the LUT register. The
// remaining bytes of a LUT carry the driving voltages.
const lutSize = 70

// initDisplay performs the power-on register setup that is shared by both
// update modes.
func initDisplay(ctrl controller, opts *Opts) {
	ctrl.waitUntilIdle()
	ctrl.sendCommand(swReset)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(setAnalogBlockControl)
	ctrl.sendData([]byte{0x54})

	ctrl.sendCommand(setDigitalBlockControl)
	ctrl.sendData([]byte{0x3b})

	gates := opts.Height - 1
	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{byte(gates & 0xff), byte(gates >> 8), 0x00})

	ctrl.sendCommand(gateDrivingVoltageControl)
	ctrl.sendData([]byte{gateDrivingVoltage19V})

	ctrl.sendCommand(sourceDrivingVoltageControl)
	ctrl.sendData([]byte{
		sourceDrivingVoltageVSH1_15V,
		sourceDrivingVoltageVSH2_5V,
		sourceDrivingVoltageVSL_neg15V,
	})

	ctrl.sendCommand(setDummyLinePeriod)
	ctrl.sendData([]byte{0x30})

	ctrl.sendCommand(setGateTime)
	ctrl.sendData([]byte{0x0a})
}

// configDisplayMode loads the waveform for mode.
func configDisplayMode(ctrl controller, mode PartialUpdate, lut LUT) {
	var vcom, border byte
	switch mode {
	case Full:
		vcom, border = 0x55, 0x03
	case Partial:
		vcom, border = 0x24, 0x01
	}

	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{vcom})

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{border})

	ctrl.sendCommand(writeLutRegister)
	ctrl.sendData(lut[:lutSize])

	if mode == Partial {
		// Undocumented register; the vendor code enables the ping-pong
		// buffer this way.
		ctrl.sendCommand(0x37)
		ctrl.sendData([]byte{0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00})

		ctrl.sendCommand(displayUpdateControl2)
		ctrl.sendData([]byte{0xc0})

		ctrl.sendCommand(masterActivation)
		ctrl.waitUntilIdle()
	}
}

// updateDisplay latches the RAM content onto the panel.
func updateDisplay(ctrl controller, mode PartialUpdate) {
	var ramOpts byte
	if mode == Partial {
		// Bypass the red RAM as zero so only changed pixels are driven.
		ramOpts = 0x80
	}

	ctrl.sendCommand(displayUpdateControl1)
	ctrl.sendData([]byte{ramOpts})

	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{0xc7})

	ctrl.sendCommand(masterActivation)
	ctrl.waitUntilIdle()
}

// enterDeepSleep puts the controller into deep sleep mode 1. A hardware
// reset is needed to wake it up again.
func enterDeepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{0x01})
}
