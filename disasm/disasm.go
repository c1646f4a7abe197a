// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a CHIP-8 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/chip8/cpu"
)

// Disassembler formatting for operand forms. Each format receives the
// mnemonic followed by the form's operand values.
var formFormat = map[cpu.Form]string{
	cpu.FormNone:   "%s",
	cpu.FormAddr:   "%s $%03X",
	cpu.FormVxByte: "%s V%X, $%02X",
	cpu.FormVxVy:   "%s V%X, V%X",
	cpu.FormIAddr:  "%s I, $%03X",
	cpu.FormV0Addr: "%s V0, $%03X",
	cpu.FormDraw:   "%s V%X, V%X, %d",
	cpu.FormVx:     "%s V%X",
	cpu.FormVxDT:   "%s V%X, DT",
	cpu.FormVxK:    "%s V%X, K",
	cpu.FormDTVx:   "%s DT, V%X",
	cpu.FormSTVx:   "%s ST, V%X",
	cpu.FormIVx:    "%s I, V%X",
	cpu.FormFVx:    "%s F, V%X",
	cpu.FormBVx:    "%s B, V%X",
	cpu.FormMemVx:  "%s [I], V%X",
	cpu.FormVxMem:  "%s V%X, [I]",
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Words that do
// not decode are shown as data.
func Disassemble(m *cpu.Memory, addr uint16) (line string, next uint16) {
	next = addr + 2

	opcode, err := m.LoadOpcode(addr)
	if err != nil {
		return fmt.Sprintf("DB $%02X", m.LoadByte(addr)), addr + 1
	}

	inst, err := cpu.Decode(opcode)
	if err != nil {
		return fmt.Sprintf("DW $%04X", opcode), next
	}
	return Format(&inst), next
}

// Format returns the assembly language text of a decoded instruction.
func Format(inst *cpu.Instruction) string {
	name := inst.Name()
	switch form := inst.Form(); form {
	case cpu.FormNone:
		return name
	case cpu.FormAddr, cpu.FormIAddr, cpu.FormV0Addr:
		return fmt.Sprintf(formFormat[form], name, inst.NNN)
	case cpu.FormVxByte:
		return fmt.Sprintf(formFormat[form], name, inst.X, inst.KK)
	case cpu.FormVxVy:
		return fmt.Sprintf(formFormat[form], name, inst.X, inst.Y)
	case cpu.FormShift:
		// Vy is ignored by the CPU but kept so the text reassembles to the
		// same opcode.
		if inst.Y != 0 {
			return fmt.Sprintf("%s V%X, V%X", name, inst.X, inst.Y)
		}
		return fmt.Sprintf("%s V%X", name, inst.X)
	case cpu.FormDraw:
		return fmt.Sprintf(formFormat[form], name, inst.X, inst.Y, inst.N)
	default:
		return fmt.Sprintf(formFormat[form], name, inst.X)
	}
}

// GetRegisterString returns a string describing the contents of the
// registers other than the program counter.
func GetRegisterString(r *cpu.Registers) string {
	return fmt.Sprintf("I=%03X SP=%X DT=%02X ST=%02X V=[% X]",
		r.I, r.SP, r.DT, r.ST, r.V[:])
}

// GetStackString returns the occupied stack entries, oldest first.
func GetStackString(r *cpu.Registers) string {
	var b strings.Builder
	b.WriteString("S=[")
	for i := 0; i < int(r.SP); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%03X", r.Stack[i])
	}
	b.WriteByte(']')
	return b.String()
}

// GetKeyString returns the keys currently held down.
func GetKeyString(k *cpu.Keypad) string {
	var b strings.Builder
	b.WriteString("K=[")
	first := true
	for key := byte(0); key < cpu.KeyCount; key++ {
		if !k.IsPressed(key) {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%X", key)
		first = false
	}
	b.WriteByte(']')
	return b.String()
}
