// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"io"
	"strings"
	"testing"

	"github.com/beevik/chip8/asm"
	"github.com/beevik/chip8/cpu"
	"github.com/beevik/chip8/disasm"
	"github.com/retroenv/retrogolib/assert"
)

func loadMemory(t *testing.T, code ...byte) *cpu.Memory {
	t.Helper()
	mem := cpu.NewMemory()
	assert.NoError(t, mem.LoadROM(code))
	return mem
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		opcode uint16
		want   string
	}{
		{0x00E0, "CLS"},
		{0x00EE, "RET"},
		{0x0300, "SYS $300"},
		{0x1234, "JP $234"},
		{0x2456, "CALL $456"},
		{0x3122, "SE V1, $22"},
		{0x5340, "SE V3, V4"},
		{0x8406, "SHR V4"},
		{0x845E, "SHL V4, V5"},
		{0xAABC, "LD I, $ABC"},
		{0xB300, "JP V0, $300"},
		{0xD12F, "DRW V1, V2, 15"},
		{0xE39E, "SKP V3"},
		{0xF60A, "LD V6, K"},
		{0xF715, "LD DT, V7"},
		{0xFA29, "LD F, VA"},
		{0xFC55, "LD [I], VC"},
		{0xFD65, "LD VD, [I]"},
		{0x0123, "DW $0123"},
		{0xE000, "DW $E000"},
	}

	for _, tt := range tests {
		mem := loadMemory(t, byte(tt.opcode>>8), byte(tt.opcode))
		line, next := disasm.Disassemble(mem, cpu.ProgramStart)
		assert.Equal(t, tt.want, line)
		assert.Equal(t, uint16(cpu.ProgramStart+2), next)
	}
}

func TestDisassembleEndOfMemory(t *testing.T) {
	mem := cpu.NewMemory()
	assert.NoError(t, mem.StoreByte(0xfff, 0x12))
	line, next := disasm.Disassemble(mem, 0xfff)
	assert.Equal(t, "DB $12", line)
	assert.Equal(t, uint16(0x1000), next)
}

// Every decodable opcode must reassemble to itself from its disassembly.
// Skip opcodes whose ignored nibbles are not zero.
func TestDisassembleReassembles(t *testing.T) {
	var src strings.Builder
	var want []uint16
	for op := 0; op <= 0xffff; op++ {
		opcode := uint16(op)
		inst, err := cpu.Decode(opcode)
		if err != nil {
			continue
		}
		if (inst.Op == cpu.OpSEReg || inst.Op == cpu.OpSNEReg) && inst.N != 0 {
			continue
		}
		if inst.Form() == cpu.FormNone && opcode&0x0f00 != 0 {
			continue
		}
		src.WriteString("\t" + disasm.Format(&inst) + "\n")
		want = append(want, opcode)
		if len(want) == 1024 {
			checkReassembly(t, src.String(), want)
			src.Reset()
			want = want[:0]
		}
	}
	checkReassembly(t, src.String(), want)
}

func TestDisassembleIgnoredNibble(t *testing.T) {
	mem := cpu.NewMemory()
	assert.NoError(t, mem.StoreByte(0x200, 0x0a))
	assert.NoError(t, mem.StoreByte(0x201, 0xe0))
	assert.NoError(t, mem.StoreByte(0x202, 0x03))
	assert.NoError(t, mem.StoreByte(0x203, 0xee))

	line, next := disasm.Disassemble(mem, 0x200)
	assert.Equal(t, "CLS", line)
	line, _ = disasm.Disassemble(mem, next)
	assert.Equal(t, "RET", line)
}

func checkReassembly(t *testing.T, src string, want []uint16) {
	t.Helper()
	assembly, _, err := asm.Assemble(strings.NewReader(src), "roundtrip", 0, io.Discard, 0)
	if err != nil {
		for _, e := range assembly.Errors {
			t.Error(e)
		}
		t.Fatal(err)
	}
	assert.Len(t, assembly.Code, len(want)*2)
	for i, w := range want {
		got := uint16(assembly.Code[i*2])<<8 | uint16(assembly.Code[i*2+1])
		if got != w {
			t.Errorf("opcode $%04X reassembled as $%04X", w, got)
		}
	}
}

func TestRegisterStrings(t *testing.T) {
	var r cpu.Registers
	r.Init()
	r.I, r.DT, r.V[0xf] = 0x123, 0x3c, 1
	assert.Equal(t,
		"I=123 SP=0 DT=3C ST=00 V=[00 00 00 00 00 00 00 00 00 00 00 00 00 00 00 01]",
		disasm.GetRegisterString(&r))

	r.Stack[0], r.Stack[1], r.SP = 0x202, 0x30a, 2
	assert.Equal(t, "S=[202 30A]", disasm.GetStackString(&r))

	var k cpu.Keypad
	assert.Equal(t, "K=[]", disasm.GetKeyString(&k))
	k.Press(0x1)
	k.Press(0xa)
	assert.Equal(t, "K=[1 A]", disasm.GetKeyString(&k))
}
