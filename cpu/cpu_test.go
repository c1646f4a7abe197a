package cpu_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/beevik/chip8/asm"
	"github.com/beevik/chip8/cpu"
)

func loadCPU(t *testing.T, asmString string) *cpu.CPU {
	t.Helper()
	b := strings.NewReader(asmString)
	r, _, err := asm.Assemble(b, "test.asm", cpu.ProgramStart, io.Discard, 0)
	if err != nil {
		for _, e := range r.Errors {
			t.Log(e)
		}
		t.Fatal(err)
	}

	c := cpu.NewCPU(nil)
	if err := c.LoadROM(r.Code); err != nil {
		t.Fatal(err)
	}
	return c
}

func stepCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func runCPU(t *testing.T, asmString string, steps int) *cpu.CPU {
	t.Helper()
	c := loadCPU(t, asmString)
	stepCPU(t, c, steps)
	return c
}

func loadOpcodes(t *testing.T, opcodes ...uint16) *cpu.CPU {
	t.Helper()
	rom := make([]byte, 0, len(opcodes)*2)
	for _, op := range opcodes {
		rom = append(rom, byte(op>>8), byte(op))
	}
	c := cpu.NewCPU(nil)
	if err := c.LoadROM(rom); err != nil {
		t.Fatal(err)
	}
	return c
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	if c.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%03X, got: $%03X", pc, c.Reg.PC)
	}
}

func expectCycles(t *testing.T, c *cpu.CPU, cycles uint64) {
	t.Helper()
	if c.Cycles != cycles {
		t.Errorf("Cycles incorrect. exp: %d, got: %d", cycles, c.Cycles)
	}
}

func expectV(t *testing.T, c *cpu.CPU, x int, v byte) {
	t.Helper()
	if c.Reg.V[x] != v {
		t.Errorf("V%X incorrect. exp: $%02X, got: $%02X", x, v, c.Reg.V[x])
	}
}

func expectI(t *testing.T, c *cpu.CPU, i uint16) {
	t.Helper()
	if c.Reg.I != i {
		t.Errorf("I incorrect. exp: $%03X, got: $%03X", i, c.Reg.I)
	}
}

func expectSP(t *testing.T, c *cpu.CPU, sp byte) {
	t.Helper()
	if c.Reg.SP != sp {
		t.Errorf("SP incorrect. exp: %d, got: %d", sp, c.Reg.SP)
	}
}

func expectMem(t *testing.T, c *cpu.CPU, addr uint16, v byte) {
	t.Helper()
	got := c.Mem.LoadByte(addr)
	if got != v {
		t.Errorf("Memory at $%03X incorrect. exp: $%02X, got: $%02X", addr, v, got)
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Error incorrect. exp: %v, got: %v", target, err)
	}
}

func TestLoad(t *testing.T) {
	c := runCPU(t, `
	LD V0, $2A
	LD VA, 5
	LD I, $ABC`, 3)

	expectV(t, c, 0x0, 0x2a)
	expectV(t, c, 0xa, 0x05)
	expectI(t, c, 0xabc)
	expectPC(t, c, 0x206)
	expectCycles(t, c, 3)
}

func TestLoadOpcode6A05(t *testing.T) {
	c := loadOpcodes(t, 0x6a05)
	stepCPU(t, c, 1)
	expectV(t, c, 0xa, 5)
}

func TestAddByte(t *testing.T) {
	c := runCPU(t, `
	LD VF, 7
	LD V1, $FF
	ADD V1, 2`, 3)

	expectV(t, c, 0x1, 0x01)
	expectV(t, c, 0xf, 7) // VF is not affected
}

func TestAddRegisters(t *testing.T) {
	for _, vx := range []int{0, 1, 0x7f, 0x80, 0xfe, 0xff} {
		for _, vy := range []int{0, 1, 0x7f, 0x80, 0xff} {
			c := loadOpcodes(t, 0x8124)
			c.Reg.V[1], c.Reg.V[2] = byte(vx), byte(vy)
			stepCPU(t, c, 1)

			expectV(t, c, 0x1, byte(vx+vy))
			var carry byte
			if vx+vy > 0xff {
				carry = 1
			}
			expectV(t, c, 0xf, carry)
		}
	}
}

func TestSubtract(t *testing.T) {
	for _, vx := range []int{0, 1, 5, 0x80, 0xff} {
		for _, vy := range []int{0, 1, 5, 0x80, 0xff} {
			c := loadOpcodes(t, 0x8125, 0x8347)
			c.Reg.V[1], c.Reg.V[2] = byte(vx), byte(vy)
			c.Reg.V[3], c.Reg.V[4] = byte(vx), byte(vy)

			stepCPU(t, c, 1)
			expectV(t, c, 0x1, byte(vx-vy))
			expectV(t, c, 0xf, boolByte(vx > vy))

			stepCPU(t, c, 1)
			expectV(t, c, 0x3, byte(vy-vx))
			expectV(t, c, 0xf, boolByte(vy > vx))
		}
	}
}

func TestShift(t *testing.T) {
	for _, v := range []byte{0x00, 0x01, 0x80, 0x81, 0xff, 0x5a} {
		c := loadOpcodes(t, 0x8126, 0x834e)
		c.Reg.V[1], c.Reg.V[2] = v, 0x33
		c.Reg.V[3], c.Reg.V[4] = v, 0x33

		stepCPU(t, c, 1)
		expectV(t, c, 0x1, v>>1)
		expectV(t, c, 0xf, v&1)

		stepCPU(t, c, 1)
		expectV(t, c, 0x3, v<<1)
		expectV(t, c, 0xf, v>>7)
		expectV(t, c, 0x2, 0x33)
		expectV(t, c, 0x4, 0x33)
	}
}

func TestFlagOrderForVF(t *testing.T) {
	// ADD writes the carry after the sum; SUB and the shifts write the
	// flag first and the result last.
	c := loadOpcodes(t, 0x8f14, 0x8f06, 0x8f15)
	c.Reg.V[0xf], c.Reg.V[1] = 0xff, 0x02

	stepCPU(t, c, 1)
	expectV(t, c, 0xf, 1)

	stepCPU(t, c, 1)
	expectV(t, c, 0xf, 0)

	c.Reg.V[0xf] = 0x05
	stepCPU(t, c, 1)
	expectV(t, c, 0xf, 0x03)
}

func TestLogic(t *testing.T) {
	c := runCPU(t, `
	LD V0, $F0
	LD V1, $3C
	LD V2, V0
	OR V2, V1
	LD V3, V0
	AND V3, V1
	LD V4, V0
	XOR V4, V1`, 8)

	expectV(t, c, 0x2, 0xfc)
	expectV(t, c, 0x3, 0x30)
	expectV(t, c, 0x4, 0xcc)
}

func TestSkips(t *testing.T) {
	c := runCPU(t, `
	LD V0, 5
	LD V1, 5
	SE V0, 5      ; skip
	LD V2, 1
	SNE V0, 5     ; no skip
	LD V3, 1
	SE V0, V1     ; skip
	LD V4, 1
	SNE V0, V1    ; no skip
	LD V5, 1`, 8)

	expectV(t, c, 0x2, 0)
	expectV(t, c, 0x3, 1)
	expectV(t, c, 0x4, 0)
	expectV(t, c, 0x5, 1)
	expectPC(t, c, 0x214)
}

func TestJumps(t *testing.T) {
	c := runCPU(t, `
	JP there
	LD V0, 1
there:
	LD V0, 2
	LD V1, 2
	JP V0, table
	LD V2, 1
table:
	LD V2, 3
	LD V2, 4`, 5)

	expectV(t, c, 0x0, 2)
	expectV(t, c, 0x2, 4)
	expectPC(t, c, 0x210)
}

func TestCallAndReturn(t *testing.T) {
	c := loadCPU(t, `
	CALL sub
	LD V1, 1
sub:
	LD V0, 9
	RET`)

	stepCPU(t, c, 1)
	expectPC(t, c, 0x204)
	expectSP(t, c, 1)

	stepCPU(t, c, 2)
	expectPC(t, c, 0x202)
	expectSP(t, c, 0)
	expectV(t, c, 0x0, 9)
}

func TestStackOverflow(t *testing.T) {
	// Each CALL calls the next instruction.
	c := loadCPU(t, strings.Repeat("\tCALL *+2\n", cpu.StackSize+1))

	stepCPU(t, c, cpu.StackSize)
	expectSP(t, c, cpu.StackSize)

	err := c.Step()
	expectErr(t, err, cpu.ErrStackOverflow)
	expectSP(t, c, cpu.StackSize)
	expectPC(t, c, 0x200+2*cpu.StackSize)
}

func TestStackUnderflow(t *testing.T) {
	c := loadOpcodes(t, 0x00ee)
	err := c.Step()
	expectErr(t, err, cpu.ErrStackUnderflow)
	expectPC(t, c, 0x200)

	var e *cpu.ExecError
	if !errors.As(err, &e) {
		t.Fatalf("expected *ExecError, got %T", err)
	}
	if e.PC != 0x200 || e.Opcode != 0x00ee {
		t.Errorf("ExecError incorrect: %v", e)
	}
}

func TestUnknownOpcode(t *testing.T) {
	for _, op := range []uint16{0x0123, 0x800f, 0xe000, 0xf0ff, 0xffff} {
		c := loadOpcodes(t, op)
		err := c.Step()
		expectErr(t, err, cpu.ErrUnknownOpcode)
		expectPC(t, c, 0x200)
		expectCycles(t, c, 0)
	}
}

func TestSysIgnored(t *testing.T) {
	c := loadOpcodes(t, 0x0300, 0x6105)
	stepCPU(t, c, 2)
	expectV(t, c, 0x1, 5)
}

func TestFaultLatches(t *testing.T) {
	c := loadOpcodes(t, 0x00ee, 0x6105)

	err1 := c.Step()
	err2 := c.Step()
	if err1 == nil || err1 != err2 {
		t.Errorf("expected the same fault twice, got %v and %v", err1, err2)
	}
	if c.Fault() == nil {
		t.Error("expected CPU to be halted")
	}

	c.Reset()
	c.Mem.StoreBytes(0x200, []byte{0x61, 0x05})
	stepCPU(t, c, 1)
	expectV(t, c, 0x1, 5)
}

func TestClearScreen(t *testing.T) {
	c := loadOpcodes(t, 0x00e0)
	for i := 0; i < 50; i++ {
		c.Display.SetPixel(i, i*7, true)
	}
	stepCPU(t, c, 1)

	for x := 0; x < cpu.DisplayWidth; x++ {
		for y := 0; y < cpu.DisplayHeight; y++ {
			if c.Display.Pixel(x, y) {
				t.Fatalf("pixel (%d, %d) still set", x, y)
			}
		}
	}
}

func TestDrawTwiceRestores(t *testing.T) {
	c := loadCPU(t, `
	LD V0, 60
	LD V1, 30
	LD I, sprite
	DRW V0, V1, 3
	DRW V0, V1, 3
sprite:
	DB $FF, $81, $C3`)

	c.Display.SetPixel(61, 30, true)
	c.Display.SetPixel(10, 10, true)
	before := c.Display

	stepCPU(t, c, 4)
	expectV(t, c, 0xf, 1) // (61, 30) was already set

	// Wraparound on both axes.
	if !c.Display.Pixel(0, 30) || !c.Display.Pixel(3, 31) || !c.Display.Pixel(2, 0) {
		t.Error("sprite did not wrap around the display edges")
	}

	stepCPU(t, c, 1)
	expectV(t, c, 0xf, 1)
	for x := 0; x < cpu.DisplayWidth; x++ {
		for y := 0; y < cpu.DisplayHeight; y++ {
			if c.Display.Pixel(x, y) != before.Pixel(x, y) {
				t.Fatalf("pixel (%d, %d) not restored", x, y)
			}
		}
	}
}

func TestDrawNoCollision(t *testing.T) {
	c := runCPU(t, `
	LD VF, 1
	LD V0, 0
	LD F, V0
	DRW V0, V0, 5`, 4)

	expectV(t, c, 0xf, 0)
	if !c.Display.Pixel(0, 0) || c.Display.Pixel(1, 1) {
		t.Error("glyph 0 drawn incorrectly")
	}
}

func TestFontAddress(t *testing.T) {
	c := loadOpcodes(t, 0xa234, 0xf029)
	stepCPU(t, c, 2)
	expectI(t, c, cpu.FontBase)

	c = runCPU(t, `
	LD V3, $F
	LD F, V3`, 2)
	expectI(t, c, cpu.FontBase+15*cpu.GlyphSize)
	expectMem(t, c, c.Reg.I, 0xf0)
}

func TestBCD(t *testing.T) {
	c := runCPU(t, `
	LD V7, 234
	LD I, $300
	LD B, V7`, 3)

	expectMem(t, c, 0x300, 2)
	expectMem(t, c, 0x301, 3)
	expectMem(t, c, 0x302, 4)
	expectI(t, c, 0x300)
}

func TestRegisterBlock(t *testing.T) {
	c := runCPU(t, `
	LD V0, 1
	LD V1, 2
	LD V2, 3
	LD V3, 4
	LD I, $300
	LD [I], V2
	LD V0, 0
	LD V1, 0
	LD V2, 0
	LD V3, 0
	LD V3, [I]`, 11)

	expectMem(t, c, 0x300, 1)
	expectMem(t, c, 0x301, 2)
	expectMem(t, c, 0x302, 3)
	expectMem(t, c, 0x303, 0)
	expectV(t, c, 0x0, 1)
	expectV(t, c, 0x1, 2)
	expectV(t, c, 0x2, 3)
	expectV(t, c, 0x3, 0)
	expectI(t, c, 0x300)
}

func TestOutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		i      uint16
	}{
		{"draw", 0xd015, 0xffd},
		{"bcd", 0xf033, 0xffe},
		{"store", 0xf355, 0xffd},
		{"load", 0xf365, 0xffd},
	}

	for _, tt := range tests {
		c := loadOpcodes(t, tt.opcode)
		c.Reg.I = tt.i
		err := c.Step()
		expectErr(t, err, cpu.ErrOutOfBounds)
		expectPC(t, c, 0x200)
		expectMem(t, c, 0xfff, 0)
	}

	c := loadOpcodes(t, 0xf255)
	c.Reg.I = 0xffd
	c.Reg.V[0], c.Reg.V[1], c.Reg.V[2] = 1, 2, 3
	stepCPU(t, c, 1)
	expectMem(t, c, 0xfff, 3)
}

func TestProgramCounterOutOfBounds(t *testing.T) {
	c := loadOpcodes(t, 0x1fff)
	stepCPU(t, c, 1)
	expectPC(t, c, 0xfff)

	err := c.Step()
	expectErr(t, err, cpu.ErrOutOfBounds)
}

func TestTimers(t *testing.T) {
	c := runCPU(t, `
	LD V0, 5
	LD DT, V0
	LD ST, V0
	LD V1, DT`, 4)

	if c.Reg.DT != 5 || c.Reg.ST != 5 {
		t.Errorf("timers incorrect: %s", c.Reg.String())
	}
	expectV(t, c, 0x1, 5)

	c.Reg.TickTimers()
	if c.Reg.DT != 4 || c.Reg.ST != 4 {
		t.Errorf("timers incorrect: %s", c.Reg.String())
	}
}

func TestAddI(t *testing.T) {
	c := runCPU(t, `
	LD VF, 9
	LD V0, $10
	LD I, $2F8
	ADD I, V0`, 4)

	expectI(t, c, 0x308)
	expectV(t, c, 0xf, 9)
}

func TestRandom(t *testing.T) {
	c := loadOpcodes(t, 0xc00f, 0xc1f0)
	c.Rand = func() byte { return 0xa5 }
	stepCPU(t, c, 2)

	expectV(t, c, 0x0, 0x05)
	expectV(t, c, 0x1, 0xa0)
}

func TestKeySkips(t *testing.T) {
	c := loadCPU(t, `
	LD V0, $A
	SKP V0
	LD V1, 1
	SKNP V0
	LD V2, 1`)

	c.Keys.Press(0xa)
	stepCPU(t, c, 4)
	expectV(t, c, 0x1, 0)
	expectV(t, c, 0x2, 1)
}

func TestInvalidKey(t *testing.T) {
	c := loadOpcodes(t, 0x6010, 0xe09e)
	stepCPU(t, c, 1)

	err := c.Step()
	expectErr(t, err, cpu.ErrInvalidKey)
	expectPC(t, c, 0x202)
}

func TestWaitForKey(t *testing.T) {
	c := loadCPU(t, `
	LD V3, K
	LD V4, 1`)

	for i := 0; i < 3; i++ {
		stepCPU(t, c, 1)
		expectPC(t, c, 0x200)
		if !c.Waiting() {
			t.Error("expected CPU to be waiting for a key")
		}
	}

	c.Keys.Press(0x7)
	c.Keys.Press(0xc)
	stepCPU(t, c, 1)
	expectPC(t, c, 0x202)
	expectV(t, c, 0x3, 7)
	if c.Waiting() {
		t.Error("expected CPU to stop waiting")
	}
}

func TestLoadROMTooLarge(t *testing.T) {
	c := cpu.NewCPU(nil)
	c.Mem.StoreByte(0x200, 0x12)

	err := c.LoadROM(make([]byte, cpu.MaxROMSize+1))
	expectErr(t, err, cpu.ErrROMTooLarge)
	expectMem(t, c, 0x200, 0x12)

	err = c.LoadROM(make([]byte, cpu.MaxROMSize))
	if err != nil {
		t.Error(err)
	}
	expectMem(t, c, 0x200, 0)
	expectMem(t, c, cpu.FontBase, 0xf0)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func TestSeededRandom(t *testing.T) {
	a, b := cpu.NewRand(42), cpu.NewRand(42)
	for i := 0; i < 100; i++ {
		if a() != b() {
			t.Fatal("seeded sources diverged")
		}
	}
}
