// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, a CRC8 calculation and the Sensirion word framing built on it.
package common

import "errors"

// ErrCRC is returned by UnpackWords when a word fails its checksum.
var ErrCRC = errors.New("invalid crc")

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// PackWords converts 16 bit words into the big endian byte stream used by
// Sensirion sensors, each word followed by its CRC.
func PackWords(words ...uint16) []byte {
	b := make([]byte, 0, len(words)*3)
	for _, w := range words {
		hi, lo := byte(w>>8), byte(w)
		b = append(b, hi, lo, CRC8([]byte{hi, lo}))
	}
	return b
}

// UnpackWords is the inverse of PackWords. Trailing bytes that do not form a
// complete word are ignored.
func UnpackWords(b []byte) ([]uint16, error) {
	words := make([]uint16, len(b)/3)
	for i := range words {
		chunk := b[i*3 : i*3+3]
		if CRC8(chunk[:2]) != chunk[2] {
			return nil, ErrCRC
		}
		words[i] = uint16(chunk[0])<<8 | uint16(chunk[1])
	}
	return words, nil
}
