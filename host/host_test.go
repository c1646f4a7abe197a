// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/chip8/asm"
	"github.com/beevik/chip8/cpu"
	"github.com/retroenv/retrogolib/assert"
)

// newTestHost creates a host running the assembled program.
func newTestHost(t *testing.T, src string) *Host {
	t.Helper()
	assembly, _, err := asm.Assemble(strings.NewReader(src), "test", cpu.ProgramStart, io.Discard, 0)
	if err != nil {
		for _, e := range assembly.Errors {
			t.Log(e)
		}
		t.Fatal(err)
	}

	h := New()
	assert.NoError(t, h.cpu.LoadROM(assembly.Code))
	return h
}

func runScript(h *Host, script string) string {
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(script), &out, false)
	return out.String()
}

func TestRegisterCommand(t *testing.T) {
	h := newTestHost(t, "\tCLS")

	out := runScript(h, `
register V3 $2A
register i $345
register dt 5
evaluate v3 + 1
register`)

	assert.Contains(t, out, "Register V3 set to $2A.")
	assert.Contains(t, out, "Register I set to $345.")
	assert.Contains(t, out, "$002B (43)")
	assert.Contains(t, out, "200-   00 E0    CLS")
	assert.Contains(t, out, "I=345 SP=0 DT=05 ST=00")
	assert.Equal(t, byte(0x2a), h.cpu.Reg.V[3])
	assert.Equal(t, byte(5), h.cpu.Reg.DT)
}

func TestUnknownCommand(t *testing.T) {
	h := New()
	out := runScript(h, "frobnicate\n")
	assert.Contains(t, out, "Command not found.")
}

func TestHelp(t *testing.T) {
	h := New()
	out := runScript(h, "help\nhelp step over\n")
	assert.Contains(t, out, "chip8 commands:")
	assert.Contains(t, out, "breakpoint")
	assert.Contains(t, out, "Syntax: step over [<count>]")
}

func TestRunToBreakpoint(t *testing.T) {
	h := newTestHost(t, `
start:
	LD V0, 1
	LD V1, 2
	ADD V0, V1
	JP start`)

	out := runScript(h, `
set cyclespersecond 0
breakpoint add $204
run
breakpoint list`)

	assert.Contains(t, out, "Setting updated.")
	assert.Contains(t, out, "Breakpoint hit at $204.")
	assert.Contains(t, out, "$204 true    1")
	assert.Equal(t, uint16(0x204), h.cpu.Reg.PC)
	assert.Equal(t, byte(1), h.cpu.Reg.V[0])
	assert.Equal(t, byte(2), h.cpu.Reg.V[1])
}

func TestDisabledBreakpoint(t *testing.T) {
	h := newTestHost(t, `
	LD V0, 1
	LD V1, 2
	CALL sub
	LD V2, 3
sub:
	LD V3, 4
	RET`)

	out := runScript(h, `
set cycles 0
breakpoint add $202
breakpoint disable $202
breakpoint add $208
run`)

	assert.Contains(t, out, "Breakpoint at $202 disabled.")
	assert.Contains(t, out, "Breakpoint hit at $208.")
	assert.Equal(t, byte(1), h.cpu.Reg.SP)
}

func TestStepOver(t *testing.T) {
	h := newTestHost(t, `
	CALL sub
	LD V2, 7
	CLS
sub:
	LD V1, 5
	CALL inner
	RET
inner:
	RET`)

	runScript(h, "step over\n")

	assert.Equal(t, uint16(0x202), h.cpu.Reg.PC)
	assert.Equal(t, byte(5), h.cpu.Reg.V[1])
	assert.Equal(t, byte(0), h.cpu.Reg.SP)
	assert.True(t, h.debugger.GetBreakpoint(0x202) == nil)
}

func TestStepInAndOut(t *testing.T) {
	h := newTestHost(t, `
	CALL sub
	LD V2, 7
sub:
	LD V1, 5
	RET`)

	runScript(h, "step in\n")
	assert.Equal(t, uint16(0x204), h.cpu.Reg.PC)
	assert.Equal(t, byte(1), h.cpu.Reg.SP)

	runScript(h, "step out\n")
	assert.Equal(t, uint16(0x202), h.cpu.Reg.PC)
	assert.Equal(t, byte(0), h.cpu.Reg.SP)
	assert.Equal(t, byte(5), h.cpu.Reg.V[1])

	out := runScript(h, "step out\n")
	assert.Contains(t, out, "Not inside a subroutine.")
}

func TestRepeatLastCommand(t *testing.T) {
	h := newTestHost(t, `
	LD V0, 1
	LD V1, 2
	LD V2, 3`)

	runScript(h, "step in\n\n\n")
	assert.Equal(t, uint16(0x206), h.cpu.Reg.PC)
}

func TestFault(t *testing.T) {
	h := New()

	out := runScript(h, `
memory set $200 $FF $FF
step in
register`)

	assert.Contains(t, out, "CPU halted: unknown opcode: opcode $FFFF at $200.")
	assert.Contains(t, out, "Halted:")
	assert.True(t, errors.Is(h.cpu.Fault(), cpu.ErrUnknownOpcode))
	assert.Equal(t, uint16(0x200), h.cpu.Reg.PC)

	out = runScript(h, "memory set $200 $00 $E0\nreset\nstep in\n")
	assert.Contains(t, out, "CPU reset.")
	assert.NoError(t, h.cpu.Fault())
	assert.Equal(t, uint16(0x202), h.cpu.Reg.PC)
}

func TestWaitForKey(t *testing.T) {
	h := newTestHost(t, `
	LD V5, K
	CLS`)

	out := runScript(h, "run\n")
	assert.Contains(t, out, "Waiting for a key press at $200.")
	assert.Equal(t, uint16(0x200), h.cpu.Reg.PC)

	out = runScript(h, "key press a\nstep in\nkey release\n")
	assert.Contains(t, out, "K=[A]")
	assert.Contains(t, out, "K=[]")
	assert.Equal(t, byte(0xa), h.cpu.Reg.V[5])
	assert.Equal(t, uint16(0x202), h.cpu.Reg.PC)

	out = runScript(h, "key press G\n")
	assert.Contains(t, out, "invalid key 'G'")
}

func TestDataBreakpoint(t *testing.T) {
	h := newTestHost(t, `
	LD I, $300
	LD V0, 9
	LD [I], V0
	CLS`)

	out := runScript(h, `
set cycles 0
databreakpoint add $300 9
run
databreakpoint list`)

	assert.Contains(t, out, "Conditional data breakpoint added at $300 for value $09.")
	assert.Contains(t, out, "Data breakpoint hit on address $300.")
	assert.Contains(t, out, "$300 true    $09    1")
	assert.Equal(t, uint16(0x206), h.cpu.Reg.PC)
	assert.Equal(t, byte(9), h.mem.LoadByte(0x300))
}

func TestMemoryCommands(t *testing.T) {
	h := New()

	out := runScript(h, `
memory set $300 $41 $42
memory dump $300 2
memory copy $310 $300 $301
memory dump $308 16`)

	assert.Contains(t, out, "300- 41 42")
	assert.Contains(t, out, "AB")
	assert.Contains(t, out, "Copied $300..$301 to $310.")
	assert.Contains(t, out, "310- 41 42")
	assert.Equal(t, byte(0x42), h.mem.LoadByte(0x311))

	out = runScript(h, "memory set $FFF 1 2\n")
	assert.Contains(t, out, cpu.ErrOutOfBounds.Error())
}

func TestDisassembleCommand(t *testing.T) {
	h := newTestHost(t, `
	LD V1, $22
	DRW V1, V2, 5
	RET`)

	out := runScript(h, "annotate $202 draw it\ndisassemble $200 3\n")
	assert.Contains(t, out, "200-   61 22    LD V1, $22")
	assert.Contains(t, out, "202-   D1 25    DRW V1, V2, 5")
	assert.Contains(t, out, "; draw it")
	assert.Contains(t, out, "204-   00 EE    RET")
	assert.Equal(t, uint16(0x206), h.settings.NextDisasmAddr)
}

func TestDisplayCommand(t *testing.T) {
	h := newTestHost(t, `
	LD V0, 0
	LD F, V0
	DRW V0, V0, 5`)

	out := runScript(h, "step in 3\ndisplay\n")
	lines := strings.Split(out, "\n")

	var fb []string
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			fb = append(fb, l)
		}
	}
	assert.Len(t, fb, cpu.DisplayHeight)
	assert.True(t, strings.HasPrefix(fb[0], "|####  "))
	assert.True(t, strings.HasPrefix(fb[1], "|#  #  "))
}

func TestSettings(t *testing.T) {
	h := New()

	out := runScript(h, `
set hexmode true
set memdump 10
set nosuchthing 1
evaluate 10
set`)

	assert.True(t, h.settings.HexMode)
	assert.Equal(t, 16, h.settings.MemDumpBytes)
	assert.Contains(t, out, "setting 'nosuchthing' not found")
	assert.Contains(t, out, "$0010 (16)")
	assert.Contains(t, out, "Variables:")
	assert.Contains(t, out, "HexMode")
}

func TestLoadWithSourceMap(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.asm")
	err := os.WriteFile(src, []byte(`
	.EXPORT draw
start:
	CALL draw
	JP start
draw:
	CLS
	RET
`), 0600)
	assert.NoError(t, err)

	h := New()
	out := runScript(h, "assemble "+src+"\nload "+filepath.Join(dir, "prog")+"\nexports\nevaluate draw\nlist draw 2\n")

	assert.Contains(t, out, "Assembled 'prog.asm'")
	assert.Contains(t, out, "Loaded 'prog.ch8' to $200..$207.")
	assert.Contains(t, out, "Loaded 'prog.map' source map.")
	assert.Contains(t, out, "draw             $204")
	assert.Contains(t, out, "$0204 (516)")
	assert.Contains(t, out, "CLS")
	assert.Equal(t, uint16(0x200), h.cpu.Reg.PC)
	assert.Equal(t, byte(0x22), h.mem.LoadByte(0x200))
}

func TestExecuteScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.txt")
	err := os.WriteFile(script, []byte("register V1 7\nquit\nregister V2 8\n"), 0600)
	assert.NoError(t, err)

	h := New()
	runScript(h, "execute "+script+"\nregister V3 9\n")

	assert.Equal(t, byte(7), h.cpu.Reg.V[1])
	assert.Equal(t, byte(0), h.cpu.Reg.V[2])
	assert.Equal(t, byte(0), h.cpu.Reg.V[3])
}

func TestBreak(t *testing.T) {
	h := New()
	h.setState(stateRunning)
	h.Break()
	assert.Equal(t, stateProcessingCommands, h.getState())

	h.setState(stateBreakpoint)
	h.Break()
	assert.Equal(t, stateBreakpoint, h.getState())
}
