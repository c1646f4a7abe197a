// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// StackSize is the number of return addresses the call stack can hold.
const StackSize = 16

// Registers contains the state of all CHIP-8 registers, including the call
// stack and the two countdown timers.
type Registers struct {
	V     [16]byte          // general purpose registers V0..VF (VF is the flag register)
	I     uint16            // index register
	PC    uint16            // program counter
	SP    byte              // stack pointer (number of occupied stack slots)
	DT    byte              // delay timer
	ST    byte              // sound timer
	Stack [StackSize]uint16 // return addresses
}

// Init initializes all registers to zero and points the program counter at
// the start of program memory.
func (r *Registers) Init() {
	*r = Registers{PC: ProgramStart}
}

// push stores a return address on the stack.
func (r *Registers) push(addr uint16) error {
	if int(r.SP) >= StackSize {
		return ErrStackOverflow
	}
	r.Stack[r.SP] = addr
	r.SP++
	return nil
}

// pop removes the most recently pushed return address from the stack.
func (r *Registers) pop() (uint16, error) {
	if r.SP == 0 {
		return 0, ErrStackUnderflow
	}
	r.SP--
	return r.Stack[r.SP], nil
}

// TickTimers decrements the delay and sound timers toward zero.
func (r *Registers) TickTimers() {
	if r.DT > 0 {
		r.DT--
	}
	if r.ST > 0 {
		r.ST--
	}
}

// String returns a one-line summary of the registers.
func (r *Registers) String() string {
	return fmt.Sprintf("PC=%03X I=%03X SP=%X DT=%02X ST=%02X V=% X",
		r.PC, r.I, r.SP, r.DT, r.ST, r.V[:])
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
