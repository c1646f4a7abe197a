// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frontend contains the collaborators that connect a CHIP-8 machine
// to the host: keyboard mapping, a paced run loop, a text-mode terminal
// frontend and ROM loading.
package frontend

import (
	"errors"
	"unicode"

	"github.com/beevik/chip8/cpu"
)

// ErrQuit is returned by a run loop when the user asks to quit.
var ErrQuit = errors.New("quit requested")

// hostKeys lists the host keyboard character for keypad keys 0 through F.
// The left-hand 4x4 block of a QWERTY keyboard mirrors the COSMAC VIP
// keypad layout:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
const hostKeys = "x123qweasdzc4rfv"

// MapKey returns the keypad key assigned to a host keyboard character.
func MapKey(r rune) (key byte, ok bool) {
	r = unicode.ToLower(r)
	for i, c := range hostKeys {
		if c == r {
			return byte(i), true
		}
	}
	return 0, false
}

// HostKey returns the host keyboard character assigned to a keypad key.
func HostKey(key byte) rune {
	if int(key) >= cpu.KeyCount {
		return 0
	}
	return rune(hostKeys[key])
}
