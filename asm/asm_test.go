// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func assemble(code string) (*Assembly, *SourceMap, error) {
	r := strings.NewReader(code)
	return Assemble(r, "test", 0x200, io.Discard, 0)
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	assembly, _, err := assemble(asm)
	if err != nil {
		t.Error(err)
		for _, e := range assembly.Errors {
			t.Log(e)
		}
		return
	}

	b := make([]byte, len(assembly.Code)*2)
	for i, j := 0, 0; i < len(assembly.Code); i, j = i+1, j+2 {
		v := assembly.Code[i]
		b[j+0] = hex[v>>4]
		b[j+1] = hex[v&0x0f]
	}
	s := string(b)

	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	assembly, _, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if errString != err.Error() {
		t.Errorf("Expected '%s', got '%v'\n", errString, err)
	}
	if len(assembly.Errors) == 0 && err == errParse {
		t.Errorf("Expected error messages on %s\n", asm)
	}
}

func TestAllInstructions(t *testing.T) {
	asm := `
	CLS
	RET
	SYS $300
	JP $234
	CALL $456
	SE V1, $22
	SNE V2, 33
	SE V3, V4
	LD V5, $FF
	ADD V6, 1
	LD V7, V8
	OR V9, VA
	AND VB, VC
	XOR VD, VE
	ADD V0, V1
	SUB V2, V3
	SHR V4
	SUBN V5, V6
	SHL V7
	SNE V8, V9
	LD I, $ABC
	JP V0, $300
	RND VA, $0F
	DRW V1, V2, 5
	SKP V3
	SKNP V4
	LD V5, DT
	LD V6, K
	LD DT, V7
	LD ST, V8
	ADD I, V9
	LD F, VA
	LD B, VB
	LD [I], VC
	LD VD, [I]`

	checkASM(t, asm, "00E000EE03001234245631224221534065FF7601"+
		"878089A18BC28DE38014823584068567870E9890AABCB300CA0FD125"+
		"E39EE4A1F507F60AF715F818F91EFA29FB33FC55FD65")
}

func TestCaseInsensitive(t *testing.T) {
	asm := `
	ld v1, $2a
	drw va, vb, 0xf
	ld [i], v3`

	checkASM(t, asm, "612ADABFF355")
}

func TestShiftWithSecondRegister(t *testing.T) {
	checkASM(t, "\tSHR V4, V5\n\tSHL V1, V2", "8456812E")
}

func TestMnemonicInFirstColumn(t *testing.T) {
	checkASM(t, "CLS\nJP $200", "00E01200")
}

func TestLabels(t *testing.T) {
	asm := `
start:
	LD V0, 0
loop:
	ADD V0, 1
	SE V0, 10
	JP loop
	JP start`

	checkASM(t, asm, "60007001300A12021200")
}

func TestForwardLabelsAndEquates(t *testing.T) {
	asm := `
COUNT EQU 3
	LD I, sprite
	LD V1, COUNT
	JP done
sprite:
	DB $F0, %10010000, 'A'
done:
	CLS`

	checkASM(t, asm, "A20661031209F0904100E0")
}

func TestEquateReferencingLabel(t *testing.T) {
	asm := `
TARGET = sprite+1
	LD I, TARGET
sprite:
	DB 1, 2`

	checkASM(t, asm, "A2030102")
}

func TestLocalLabels(t *testing.T) {
	asm := `
main:
	LD V0, 0
.loop:
	ADD V0, 1
	JP .loop
sub:
.loop:
	JP .loop`

	checkASM(t, asm, "6000700112021206")
}

func TestHereExpression(t *testing.T) {
	asm := `
	JP *
	JP *+4
	JP *-2`

	checkASM(t, asm, "120012061202")
}

func TestDataBytes(t *testing.T) {
	asm := `
	DB $12, 0x34, 86, %01111000, 0b1, -1
	.BYTE "HI", 0`

	checkASM(t, asm, "1234567801FF484900")
}

func TestDataWords(t *testing.T) {
	asm := `
	DW $1234, 5
	.WORD label
label:`

	checkASM(t, asm, "123400050206")
}

func TestAlign(t *testing.T) {
	asm := `
	CLS
	ALIGN 8
data:
	DB 1
	JP data`

	checkASM(t, asm, "00E0000000000000011208")
}

func TestAlignLabel(t *testing.T) {
	asm := `
	DB 1
here .ALIGN 4
	JP here`

	checkASM(t, asm, "010000001204")
}

func TestOrigin(t *testing.T) {
	asm := `
	ORG $300
start:
	JP start`

	assembly, sm, err := assemble(asm)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x300), assembly.Origin)
	assert.Equal(t, uint16(0x300), sm.Origin)
	assert.Equal(t, []byte{0x13, 0x00}, assembly.Code)
}

func TestComments(t *testing.T) {
	asm := `
; full line comment
* old style comment
	CLS        ; clear
	DB ";", 1  ; semicolon in a string`

	checkASM(t, asm, "00E03B01")
}

func TestErrors(t *testing.T) {
	tests := []string{
		"\tFOO V1",
		"\tLD V1, $100",
		"\tDRW V1, V2, 16",
		"\tJP V1, $200",
		"\tJP $1000",
		"\tJP nowhere",
		"\tSYS $234",
		"\tLD V1",
		"\tCLS V1",
		"\tLD V1, ,",
		"dup:\n\tCLS\ndup:\n\tCLS",
		"\tCLS\n\tORG $300",
		"\tALIGN 3",
		"\tEQU 5",
		"\tDW $10000",
		"\tEXPORT 5",
	}
	for _, asm := range tests {
		checkASMError(t, asm, "parse error")
	}
}

func TestProgramTooLarge(t *testing.T) {
	asm := "\tORG $FFE\n\tCLS\n\tCLS"
	_, _, err := assemble(asm)
	assert.Error(t, err)
}

func TestErrorMessageFormat(t *testing.T) {
	assembly, _, err := assemble("\tCLS\n\tFOO V1")
	assert.Error(t, err)
	assert.Len(t, assembly.Errors, 1)
	assert.Equal(t, "Syntax error in 'test' line 2, col 9: invalid opcode 'FOO'", assembly.Errors[0])
}

func TestSourceMap(t *testing.T) {
	asm := `
	.EXPORT draw
	.EXPORT start
start:
	CALL draw
	JP start
draw:
	CLS
	RET`

	assembly, sm, err := assemble(asm)
	assert.NoError(t, err)
	assert.Equal(t, uint32(len(assembly.Code)), sm.Size)
	assert.Len(t, sm.Lines, 4)

	file, line, err := sm.Find(0x204)
	assert.NoError(t, err)
	assert.Equal(t, "test", file)
	assert.Equal(t, 8, line)

	_, _, err = sm.Find(0x203)
	assert.Error(t, err)

	assert.Len(t, sm.Exports, 2)
	assert.Equal(t, "start", sm.Exports[0].Label)
	addr, ok := sm.Export("draw")
	assert.True(t, ok)
	assert.Equal(t, uint16(0x204), addr)

	var buf bytes.Buffer
	_, err = sm.WriteTo(&buf)
	assert.NoError(t, err)

	var sm2 SourceMap
	_, err = sm2.ReadFrom(&buf)
	assert.NoError(t, err)
	assert.Equal(t, sm.CRC, sm2.CRC)
	assert.Len(t, sm2.Lines, 4)
}

func TestAssemblyReadFrom(t *testing.T) {
	var a Assembly
	_, err := a.ReadFrom(bytes.NewReader([]byte{0x00, 0xe0}))
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x200), a.Origin)

	_, err = a.ReadFrom(bytes.NewReader(make([]byte, 4000)))
	assert.Error(t, err)
}
