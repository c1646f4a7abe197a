// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Memory layout constants.
const (
	MemorySize   = 4096  // total addressable bytes
	FontBase     = 0x050 // address of the built-in hexadecimal font
	GlyphSize    = 5     // bytes per font glyph
	ProgramStart = 0x200 // address where ROMs are loaded and execution starts
	MaxROMSize   = MemorySize - ProgramStart
)

// Font contains the sixteen 4x5 glyphs for the hexadecimal digits 0-F.
var Font = [16 * GlyphSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory represents the 4K address space of the CHIP-8 machine.
type Memory struct {
	b [MemorySize]byte
}

// NewMemory creates a zeroed memory with the font preloaded at FontBase.
func NewMemory() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset zeroes the memory and reloads the font.
func (m *Memory) Reset() {
	m.b = [MemorySize]byte{}
	copy(m.b[FontBase:], Font[:])
}

// LoadByte loads a single byte from the address and returns it. Addresses
// beyond the end of memory read as zero.
func (m *Memory) LoadByte(addr uint16) byte {
	if int(addr) >= MemorySize {
		return 0
	}
	return m.b[addr]
}

// LoadBytes loads len(b) bytes starting at addr into b.
func (m *Memory) LoadBytes(addr uint16, b []byte) error {
	if !inBounds(addr, len(b)) {
		return ErrOutOfBounds
	}
	copy(b, m.b[addr:])
	return nil
}

// LoadOpcode loads the big-endian 16-bit opcode stored at addr.
func (m *Memory) LoadOpcode(addr uint16) (uint16, error) {
	if !inBounds(addr, 2) {
		return 0, ErrOutOfBounds
	}
	return uint16(m.b[addr])<<8 | uint16(m.b[addr+1]), nil
}

// StoreByte stores a byte at the requested address.
func (m *Memory) StoreByte(addr uint16, v byte) error {
	if int(addr) >= MemorySize {
		return ErrOutOfBounds
	}
	m.b[addr] = v
	return nil
}

// StoreBytes stores multiple bytes starting at the requested address.
func (m *Memory) StoreBytes(addr uint16, b []byte) error {
	if !inBounds(addr, len(b)) {
		return ErrOutOfBounds
	}
	copy(m.b[addr:], b)
	return nil
}

// LoadROM copies a program image into memory at ProgramStart. Images that
// do not fit are rejected before any byte is copied.
func (m *Memory) LoadROM(rom []byte) error {
	if len(rom) > MaxROMSize {
		return ErrROMTooLarge
	}
	copy(m.b[ProgramStart:], rom)
	return nil
}

// inBounds reports whether the n bytes starting at addr lie inside memory.
func inBounds(addr uint16, n int) bool {
	return int(addr)+n <= MemorySize
}
