// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// KeyCount is the number of keys on the hexadecimal keypad.
const KeyCount = 16

// Keypad holds the pressed state of the sixteen keys 0x0-0xF. It is
// written by the input collaborator between cycles and only read by the
// CPU.
type Keypad [KeyCount]bool

// Press marks the key as held down. Out-of-range keys are ignored.
func (k *Keypad) Press(key byte) {
	if int(key) < KeyCount {
		k[key] = true
	}
}

// Release marks the key as no longer held down.
func (k *Keypad) Release(key byte) {
	if int(key) < KeyCount {
		k[key] = false
	}
}

// ReleaseAll releases every key.
func (k *Keypad) ReleaseAll() {
	*k = Keypad{}
}

// IsPressed reports whether the key is held down.
func (k *Keypad) IsPressed(key byte) bool {
	return int(key) < KeyCount && k[key]
}

// FirstPressed returns the lowest-numbered key currently held down.
func (k *Keypad) FirstPressed() (key byte, ok bool) {
	for i, down := range k {
		if down {
			return byte(i), true
		}
	}
	return 0, false
}
