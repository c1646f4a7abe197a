// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrOutOfBounds    = errors.New("memory access out of bounds")
	ErrInvalidKey     = errors.New("key index out of range")
	ErrROMTooLarge    = errors.New("ROM does not fit in program memory")
)

// An ExecError reports an instruction that could not be fetched, decoded or
// executed. The CPU halts when one occurs.
type ExecError struct {
	PC     uint16 // address of the faulting instruction
	Opcode uint16 // opcode at PC, zero if it could not be fetched
	Err    error  // one of the package's sentinel errors
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%v: opcode $%04X at $%03X", e.Err, e.Opcode, e.PC)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
