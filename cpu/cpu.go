// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the CHIP-8 virtual machine: its memory, registers,
// framebuffer and keypad, the instruction decoder, and an interpreter for
// the 35-instruction CHIP-8 instruction set.
package cpu

import "math/rand/v2"

// CPU represents a single CHIP-8 machine. It owns all machine state and is
// not safe for concurrent use; input and rendering collaborators access it
// between calls to Step.
type CPU struct {
	Reg     Registers   // CPU registers, stack and timers
	Mem     *Memory     // assigned memory
	Display Display     // 64x32 framebuffer
	Keys    Keypad      // current key state
	Cycles  uint64      // total executed instructions
	LastPC  uint16      // previous program counter
	Rand    func() byte // random byte source used by RND

	waiting   bool
	fault     error
	debugger  *Debugger
	storeByte func(cpu *CPU, addr uint16, v byte)
}

// NewCPU creates a CHIP-8 CPU bound to the specified memory. If m is nil a
// new memory with the font preloaded is allocated.
func NewCPU(m *Memory) *CPU {
	if m == nil {
		m = NewMemory()
	}
	cpu := &CPU{
		Mem:       m,
		Rand:      defaultRand(),
		storeByte: (*CPU).storeByteNormal,
	}
	cpu.Reg.Init()
	return cpu
}

func defaultRand() func() byte {
	return NewRand(rand.Uint64())
}

// NewRand returns a deterministic random byte source for CPU.Rand. The
// same seed always produces the same sequence.
func NewRand(seed uint64) func() byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() byte { return byte(r.UintN(256)) }
}

// Reset returns the CPU to its power-on state without touching memory.
// A halted CPU resumes after a reset.
func (cpu *CPU) Reset() {
	cpu.Reg.Init()
	cpu.Display.Clear()
	cpu.Keys.ReleaseAll()
	cpu.Cycles = 0
	cpu.LastPC = 0
	cpu.waiting = false
	cpu.fault = nil
}

// LoadROM resets the CPU and memory, copies the program image to
// ProgramStart and points the program counter at it.
func (cpu *CPU) LoadROM(rom []byte) error {
	if len(rom) > MaxROMSize {
		return ErrROMTooLarge
	}
	cpu.Mem.Reset()
	if err := cpu.Mem.LoadROM(rom); err != nil {
		return err
	}
	cpu.Reset()
	return nil
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
}

// Fault returns the error that halted the CPU, or nil if it is running.
func (cpu *CPU) Fault() error {
	return cpu.fault
}

// Waiting reports whether the last executed instruction was a key wait that
// found no key pressed. The same instruction is executed again by the next
// Step.
func (cpu *CPU) Waiting() bool {
	return cpu.waiting
}

// GetInstruction decodes the instruction stored at the requested address.
func (cpu *CPU) GetInstruction(addr uint16) (Instruction, error) {
	opcode, err := cpu.Mem.LoadOpcode(addr)
	if err != nil {
		return Instruction{}, err
	}
	return Decode(opcode)
}

// Step the cpu by one instruction: fetch the opcode at PC, advance PC past
// it, decode it and execute it. Any failure halts the CPU and is returned as
// an *ExecError; once halted, Step keeps returning that error until Reset.
func (cpu *CPU) Step() error {
	if cpu.fault != nil {
		return cpu.fault
	}

	pc := cpu.Reg.PC
	opcode, err := cpu.Mem.LoadOpcode(pc)
	if err != nil {
		return cpu.halt(pc, 0, err)
	}

	inst, err := Decode(opcode)
	if err != nil {
		return cpu.halt(pc, opcode, err)
	}

	cpu.LastPC = pc
	cpu.Reg.PC += 2
	cpu.waiting = false

	if err := opInfo[inst.Op].fn(cpu, &inst); err != nil {
		cpu.Reg.PC = pc
		return cpu.halt(pc, opcode, err)
	}
	cpu.Cycles++

	// Update the debugger so it handle breakpoints.
	if cpu.debugger != nil {
		cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
	}
	return nil
}

func (cpu *CPU) halt(pc, opcode uint16, err error) error {
	cpu.fault = &ExecError{PC: pc, Opcode: opcode, Err: err}
	return cpu.fault
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
	cpu.storeByte = (*CPU).storeByteDebugger
}

// DetachDebugger detaches the current debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
	cpu.storeByte = (*CPU).storeByteNormal
}

// Store the byte value 'v' at the address 'addr'. Callers check bounds.
func (cpu *CPU) storeByteNormal(addr uint16, v byte) {
	cpu.Mem.b[addr] = v
}

// Store the byte value 'v' at the address 'addr' and notify the debugger.
func (cpu *CPU) storeByteDebugger(addr uint16, v byte) {
	cpu.debugger.onDataStore(cpu, addr, v)
	cpu.Mem.b[addr] = v
}

// checkRange fails unless the n bytes starting at I lie inside memory.
func (cpu *CPU) checkRange(n int) error {
	if !inBounds(cpu.Reg.I, n) {
		return ErrOutOfBounds
	}
	return nil
}

func (cpu *CPU) skipIf(cond bool) {
	if cond {
		cpu.Reg.PC += 2
	}
}

// SYS addr: machine code routines are not supported; ignored.
func (cpu *CPU) sys(inst *Instruction) error {
	return nil
}

// CLS: clear the display.
func (cpu *CPU) cls(inst *Instruction) error {
	cpu.Display.Clear()
	return nil
}

// RET: return from a subroutine.
func (cpu *CPU) ret(inst *Instruction) error {
	addr, err := cpu.Reg.pop()
	if err != nil {
		return err
	}
	cpu.Reg.PC = addr
	return nil
}

// JP addr
func (cpu *CPU) jp(inst *Instruction) error {
	cpu.Reg.PC = inst.NNN
	return nil
}

// CALL addr
func (cpu *CPU) call(inst *Instruction) error {
	if err := cpu.Reg.push(cpu.Reg.PC); err != nil {
		return err
	}
	cpu.Reg.PC = inst.NNN
	return nil
}

// SE Vx, byte
func (cpu *CPU) seByte(inst *Instruction) error {
	cpu.skipIf(cpu.Reg.V[inst.X] == inst.KK)
	return nil
}

// SNE Vx, byte
func (cpu *CPU) sneByte(inst *Instruction) error {
	cpu.skipIf(cpu.Reg.V[inst.X] != inst.KK)
	return nil
}

// SE Vx, Vy
func (cpu *CPU) seReg(inst *Instruction) error {
	cpu.skipIf(cpu.Reg.V[inst.X] == cpu.Reg.V[inst.Y])
	return nil
}

// LD Vx, byte
func (cpu *CPU) ldByte(inst *Instruction) error {
	cpu.Reg.V[inst.X] = inst.KK
	return nil
}

// ADD Vx, byte: VF is not affected.
func (cpu *CPU) addByte(inst *Instruction) error {
	cpu.Reg.V[inst.X] += inst.KK
	return nil
}

// LD Vx, Vy
func (cpu *CPU) ldReg(inst *Instruction) error {
	cpu.Reg.V[inst.X] = cpu.Reg.V[inst.Y]
	return nil
}

// OR Vx, Vy
func (cpu *CPU) or(inst *Instruction) error {
	cpu.Reg.V[inst.X] |= cpu.Reg.V[inst.Y]
	return nil
}

// AND Vx, Vy
func (cpu *CPU) and(inst *Instruction) error {
	cpu.Reg.V[inst.X] &= cpu.Reg.V[inst.Y]
	return nil
}

// XOR Vx, Vy
func (cpu *CPU) xor(inst *Instruction) error {
	cpu.Reg.V[inst.X] ^= cpu.Reg.V[inst.Y]
	return nil
}

// ADD Vx, Vy: VF = carry. The flag is written after the sum so that it
// wins when x is F.
func (cpu *CPU) addReg(inst *Instruction) error {
	sum := uint16(cpu.Reg.V[inst.X]) + uint16(cpu.Reg.V[inst.Y])
	cpu.Reg.V[inst.X] = byte(sum)
	cpu.Reg.V[0xf] = boolToByte(sum > 0xff)
	return nil
}

// SUB Vx, Vy: VF = NOT borrow, i.e. Vx > Vy before the subtraction.
func (cpu *CPU) sub(inst *Instruction) error {
	vx, vy := cpu.Reg.V[inst.X], cpu.Reg.V[inst.Y]
	cpu.Reg.V[0xf] = boolToByte(vx > vy)
	cpu.Reg.V[inst.X] = vx - vy
	return nil
}

// SHR Vx: VF = low bit of Vx before the shift. Vy is ignored.
func (cpu *CPU) shr(inst *Instruction) error {
	vx := cpu.Reg.V[inst.X]
	cpu.Reg.V[0xf] = vx & 0x01
	cpu.Reg.V[inst.X] = vx >> 1
	return nil
}

// SUBN Vx, Vy: Vx = Vy - Vx, VF = Vy > Vx before the subtraction.
func (cpu *CPU) subn(inst *Instruction) error {
	vx, vy := cpu.Reg.V[inst.X], cpu.Reg.V[inst.Y]
	cpu.Reg.V[0xf] = boolToByte(vy > vx)
	cpu.Reg.V[inst.X] = vy - vx
	return nil
}

// SHL Vx: VF = high bit of Vx before the shift. Vy is ignored.
func (cpu *CPU) shl(inst *Instruction) error {
	vx := cpu.Reg.V[inst.X]
	cpu.Reg.V[0xf] = vx >> 7
	cpu.Reg.V[inst.X] = vx << 1
	return nil
}

// SNE Vx, Vy
func (cpu *CPU) sneReg(inst *Instruction) error {
	cpu.skipIf(cpu.Reg.V[inst.X] != cpu.Reg.V[inst.Y])
	return nil
}

// LD I, addr
func (cpu *CPU) ldI(inst *Instruction) error {
	cpu.Reg.I = inst.NNN
	return nil
}

// JP V0, addr
func (cpu *CPU) jpV0(inst *Instruction) error {
	cpu.Reg.PC = inst.NNN + uint16(cpu.Reg.V[0])
	return nil
}

// RND Vx, byte
func (cpu *CPU) rnd(inst *Instruction) error {
	cpu.Reg.V[inst.X] = cpu.Rand() & inst.KK
	return nil
}

// DRW Vx, Vy, nibble: XOR an n-row sprite read from I onto the display.
// VF = 1 if any set pixel was erased, otherwise 0.
func (cpu *CPU) drw(inst *Instruction) error {
	n := int(inst.N)
	if err := cpu.checkRange(n); err != nil {
		return err
	}
	sprite := cpu.Mem.b[cpu.Reg.I : int(cpu.Reg.I)+n]
	collision := cpu.Display.DrawSprite(cpu.Reg.V[inst.X], cpu.Reg.V[inst.Y], sprite)
	cpu.Reg.V[0xf] = boolToByte(collision)
	return nil
}

func (cpu *CPU) keyFor(x byte) (byte, error) {
	key := cpu.Reg.V[x]
	if int(key) >= KeyCount {
		return 0, ErrInvalidKey
	}
	return key, nil
}

// SKP Vx
func (cpu *CPU) skp(inst *Instruction) error {
	key, err := cpu.keyFor(inst.X)
	if err != nil {
		return err
	}
	cpu.skipIf(cpu.Keys.IsPressed(key))
	return nil
}

// SKNP Vx
func (cpu *CPU) sknp(inst *Instruction) error {
	key, err := cpu.keyFor(inst.X)
	if err != nil {
		return err
	}
	cpu.skipIf(!cpu.Keys.IsPressed(key))
	return nil
}

// LD Vx, DT
func (cpu *CPU) ldVxDT(inst *Instruction) error {
	cpu.Reg.V[inst.X] = cpu.Reg.DT
	return nil
}

// LD Vx, K: store the lowest pressed key in Vx. With no key pressed the
// program counter is rewound so this instruction is fetched again.
func (cpu *CPU) ldVxK(inst *Instruction) error {
	key, ok := cpu.Keys.FirstPressed()
	if !ok {
		cpu.Reg.PC -= 2
		cpu.waiting = true
		return nil
	}
	cpu.Reg.V[inst.X] = key
	return nil
}

// LD DT, Vx
func (cpu *CPU) ldDTVx(inst *Instruction) error {
	cpu.Reg.DT = cpu.Reg.V[inst.X]
	return nil
}

// LD ST, Vx
func (cpu *CPU) ldSTVx(inst *Instruction) error {
	cpu.Reg.ST = cpu.Reg.V[inst.X]
	return nil
}

// ADD I, Vx: VF is not affected.
func (cpu *CPU) addI(inst *Instruction) error {
	cpu.Reg.I += uint16(cpu.Reg.V[inst.X])
	return nil
}

// LD F, Vx: point I at the font glyph for the value in Vx.
func (cpu *CPU) ldF(inst *Instruction) error {
	cpu.Reg.I = FontBase + uint16(cpu.Reg.V[inst.X])*GlyphSize
	return nil
}

// LD B, Vx: store the decimal digits of Vx at I, I+1 and I+2.
func (cpu *CPU) ldB(inst *Instruction) error {
	if err := cpu.checkRange(3); err != nil {
		return err
	}
	v, i := cpu.Reg.V[inst.X], cpu.Reg.I
	cpu.storeByte(cpu, i, v/100)
	cpu.storeByte(cpu, i+1, (v/10)%10)
	cpu.storeByte(cpu, i+2, v%10)
	return nil
}

// LD [I], Vx: store V0 through Vx inclusive starting at I.
func (cpu *CPU) ldMemVx(inst *Instruction) error {
	n := int(inst.X) + 1
	if err := cpu.checkRange(n); err != nil {
		return err
	}
	for r := 0; r < n; r++ {
		cpu.storeByte(cpu, cpu.Reg.I+uint16(r), cpu.Reg.V[r])
	}
	return nil
}

// LD Vx, [I]: load V0 through Vx inclusive from memory starting at I.
func (cpu *CPU) ldVxMem(inst *Instruction) error {
	n := int(inst.X) + 1
	if err := cpu.checkRange(n); err != nil {
		return err
	}
	copy(cpu.Reg.V[:n], cpu.Mem.b[cpu.Reg.I:])
	return nil
}
