// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "strings"

// An Op identifies one of the CHIP-8 instructions.
type Op byte

// All CHIP-8 instructions, named after their Cowgod mnemonic and operand
// form.
const (
	OpSYS      Op = iota // 0nn0 (low byte zero): ignored
	OpCLS                // 00E0
	OpRET                // 00EE
	OpJP                 // 1nnn
	OpCALL               // 2nnn
	OpSEByte             // 3xkk
	OpSNEByte            // 4xkk
	OpSEReg              // 5xy0
	OpLDByte             // 6xkk
	OpADDByte            // 7xkk
	OpLDReg              // 8xy0
	OpOR                 // 8xy1
	OpAND                // 8xy2
	OpXOR                // 8xy3
	OpADDReg             // 8xy4
	OpSUB                // 8xy5
	OpSHR                // 8xy6
	OpSUBN               // 8xy7
	OpSHL                // 8xyE
	OpSNEReg             // 9xy0
	OpLDI                // Annn
	OpJPV0               // Bnnn
	OpRND                // Cxkk
	OpDRW                // Dxyn
	OpSKP                // Ex9E
	OpSKNP               // ExA1
	OpLDVxDT             // Fx07
	OpLDVxK              // Fx0A
	OpLDDTVx             // Fx15
	OpLDSTVx             // Fx18
	OpADDI               // Fx1E
	OpLDF                // Fx29
	OpLDB                // Fx33
	OpLDMemVx            // Fx55
	OpLDVxMem            // Fx65

	opCount
)

// Form describes the operand syntax of an instruction.
type Form byte

// Operand forms.
const (
	FormNone   Form = iota // CLS
	FormAddr               // JP addr
	FormVxByte             // SE Vx, byte
	FormVxVy               // SE Vx, Vy
	FormShift              // SHR Vx {, Vy}
	FormIAddr              // LD I, addr
	FormV0Addr             // JP V0, addr
	FormDraw               // DRW Vx, Vy, nibble
	FormVx                 // SKP Vx
	FormVxDT               // LD Vx, DT
	FormVxK                // LD Vx, K
	FormDTVx               // LD DT, Vx
	FormSTVx               // LD ST, Vx
	FormIVx                // ADD I, Vx
	FormFVx                // LD F, Vx
	FormBVx                // LD B, Vx
	FormMemVx              // LD [I], Vx
	FormVxMem              // LD Vx, [I]
)

// An Instruction is a decoded opcode: the operation it selects and every
// field extracted from it.
type Instruction struct {
	Op     Op     // selected operation
	Opcode uint16 // raw 16-bit opcode
	X      byte   // register index from bits 8-11
	Y      byte   // register index from bits 4-7
	N      byte   // 4-bit immediate from bits 0-3
	KK     byte   // 8-bit immediate from bits 0-7
	NNN    uint16 // 12-bit address from bits 0-11
}

// Name returns the instruction's mnemonic.
func (i Instruction) Name() string {
	return opInfo[i.Op].name
}

// Form returns the instruction's operand form.
func (i Instruction) Form() Form {
	return opInfo[i.Op].form
}

// IsCall reports whether the instruction pushes a return address.
func (i Instruction) IsCall() bool {
	return i.Op == OpCALL
}

// IsReturn reports whether the instruction pops a return address.
func (i Instruction) IsReturn() bool {
	return i.Op == OpRET
}

type instfunc func(c *CPU, inst *Instruction) error

// Static data describing each instruction: its mnemonic, operand form, the
// opcode bits it always sets and its emulator implementation.
type opData struct {
	name    string
	form    Form
	pattern uint16
	fn      instfunc
}

var opInfo [opCount]opData

func init() {
	// Assigned in init to break the initialization cycle between the
	// instruction implementations and CPU.Step.
	opInfo = [opCount]opData{
		OpSYS:     {"SYS", FormAddr, 0x0000, (*CPU).sys},
		OpCLS:     {"CLS", FormNone, 0x00E0, (*CPU).cls},
		OpRET:     {"RET", FormNone, 0x00EE, (*CPU).ret},
		OpJP:      {"JP", FormAddr, 0x1000, (*CPU).jp},
		OpCALL:    {"CALL", FormAddr, 0x2000, (*CPU).call},
		OpSEByte:  {"SE", FormVxByte, 0x3000, (*CPU).seByte},
		OpSNEByte: {"SNE", FormVxByte, 0x4000, (*CPU).sneByte},
		OpSEReg:   {"SE", FormVxVy, 0x5000, (*CPU).seReg},
		OpLDByte:  {"LD", FormVxByte, 0x6000, (*CPU).ldByte},
		OpADDByte: {"ADD", FormVxByte, 0x7000, (*CPU).addByte},
		OpLDReg:   {"LD", FormVxVy, 0x8000, (*CPU).ldReg},
		OpOR:      {"OR", FormVxVy, 0x8001, (*CPU).or},
		OpAND:     {"AND", FormVxVy, 0x8002, (*CPU).and},
		OpXOR:     {"XOR", FormVxVy, 0x8003, (*CPU).xor},
		OpADDReg:  {"ADD", FormVxVy, 0x8004, (*CPU).addReg},
		OpSUB:     {"SUB", FormVxVy, 0x8005, (*CPU).sub},
		OpSHR:     {"SHR", FormShift, 0x8006, (*CPU).shr},
		OpSUBN:    {"SUBN", FormVxVy, 0x8007, (*CPU).subn},
		OpSHL:     {"SHL", FormShift, 0x800E, (*CPU).shl},
		OpSNEReg:  {"SNE", FormVxVy, 0x9000, (*CPU).sneReg},
		OpLDI:     {"LD", FormIAddr, 0xA000, (*CPU).ldI},
		OpJPV0:    {"JP", FormV0Addr, 0xB000, (*CPU).jpV0},
		OpRND:     {"RND", FormVxByte, 0xC000, (*CPU).rnd},
		OpDRW:     {"DRW", FormDraw, 0xD000, (*CPU).drw},
		OpSKP:     {"SKP", FormVx, 0xE09E, (*CPU).skp},
		OpSKNP:    {"SKNP", FormVx, 0xE0A1, (*CPU).sknp},
		OpLDVxDT:  {"LD", FormVxDT, 0xF007, (*CPU).ldVxDT},
		OpLDVxK:   {"LD", FormVxK, 0xF00A, (*CPU).ldVxK},
		OpLDDTVx:  {"LD", FormDTVx, 0xF015, (*CPU).ldDTVx},
		OpLDSTVx:  {"LD", FormSTVx, 0xF018, (*CPU).ldSTVx},
		OpADDI:    {"ADD", FormIVx, 0xF01E, (*CPU).addI},
		OpLDF:     {"LD", FormFVx, 0xF029, (*CPU).ldF},
		OpLDB:     {"LD", FormBVx, 0xF033, (*CPU).ldB},
		OpLDMemVx: {"LD", FormMemVx, 0xF055, (*CPU).ldMemVx},
		OpLDVxMem: {"LD", FormVxMem, 0xF065, (*CPU).ldVxMem},
	}

	for op := Op(0); op < opCount; op++ {
		name := opInfo[op].name
		byName[name] = append(byName[name], op)
	}
}

var byName = make(map[string][]Op)

// Lookup returns every operation sharing the mnemonic name. Mnemonics are
// case-insensitive.
func Lookup(name string) []Op {
	return byName[strings.ToUpper(name)]
}

// Name returns the mnemonic of the operation.
func (op Op) Name() string {
	return opInfo[op].name
}

// Form returns the operand form of the operation.
func (op Op) Form() Form {
	return opInfo[op].form
}

// Decode maps a 16-bit opcode to the instruction it encodes. It returns
// ErrUnknownOpcode if the opcode matches no instruction.
func Decode(opcode uint16) (Instruction, error) {
	inst := Instruction{
		Opcode: opcode,
		X:      byte(opcode>>8) & 0x0f,
		Y:      byte(opcode>>4) & 0x0f,
		N:      byte(opcode) & 0x0f,
		KK:     byte(opcode),
		NNN:    opcode & 0x0fff,
	}

	op, ok := decodeOp(opcode)
	if !ok {
		return Instruction{Opcode: opcode}, ErrUnknownOpcode
	}
	inst.Op = op
	return inst, nil
}

func decodeOp(opcode uint16) (Op, bool) {
	switch opcode >> 12 {
	case 0x0:
		switch opcode & 0x00ff {
		case 0x00:
			return OpSYS, true
		case 0xe0:
			return OpCLS, true
		case 0xee:
			return OpRET, true
		}
	case 0x1:
		return OpJP, true
	case 0x2:
		return OpCALL, true
	case 0x3:
		return OpSEByte, true
	case 0x4:
		return OpSNEByte, true
	case 0x5:
		return OpSEReg, true
	case 0x6:
		return OpLDByte, true
	case 0x7:
		return OpADDByte, true
	case 0x8:
		switch opcode & 0x000f {
		case 0x0:
			return OpLDReg, true
		case 0x1:
			return OpOR, true
		case 0x2:
			return OpAND, true
		case 0x3:
			return OpXOR, true
		case 0x4:
			return OpADDReg, true
		case 0x5:
			return OpSUB, true
		case 0x6:
			return OpSHR, true
		case 0x7:
			return OpSUBN, true
		case 0xe:
			return OpSHL, true
		}
	case 0x9:
		return OpSNEReg, true
	case 0xa:
		return OpLDI, true
	case 0xb:
		return OpJPV0, true
	case 0xc:
		return OpRND, true
	case 0xd:
		return OpDRW, true
	case 0xe:
		switch opcode & 0x00ff {
		case 0x9e:
			return OpSKP, true
		case 0xa1:
			return OpSKNP, true
		}
	case 0xf:
		switch opcode & 0x00ff {
		case 0x07:
			return OpLDVxDT, true
		case 0x0a:
			return OpLDVxK, true
		case 0x15:
			return OpLDDTVx, true
		case 0x18:
			return OpLDSTVx, true
		case 0x1e:
			return OpADDI, true
		case 0x29:
			return OpLDF, true
		case 0x33:
			return OpLDB, true
		case 0x55:
			return OpLDMemVx, true
		case 0x65:
			return OpLDVxMem, true
		}
	}
	return 0, false
}

// Encode builds the opcode for op from its operand fields. Fields the
// operand form does not use are ignored. SYS keeps only the bits of addr
// that leave the low byte zero.
func Encode(op Op, x, y, n, kk byte, addr uint16) uint16 {
	d := opInfo[op]
	vx := uint16(x&0x0f) << 8
	vy := uint16(y&0x0f) << 4
	switch d.form {
	case FormNone:
		return d.pattern
	case FormAddr:
		if op == OpSYS {
			return addr & 0x0f00
		}
		return d.pattern | addr&0x0fff
	case FormIAddr, FormV0Addr:
		return d.pattern | addr&0x0fff
	case FormVxByte:
		return d.pattern | vx | uint16(kk)
	case FormVxVy, FormShift:
		return d.pattern | vx | vy
	case FormDraw:
		return d.pattern | vx | vy | uint16(n&0x0f)
	default:
		return d.pattern | vx
	}
}
