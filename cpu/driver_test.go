package cpu_test

import (
	"errors"
	"testing"
	"time"

	"github.com/beevik/chip8/cpu"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeKeys struct {
	pressed []byte
	calls   int
}

func (k *fakeKeys) SampleKeys(keys *cpu.Keypad) {
	k.calls++
	keys.ReleaseAll()
	for _, key := range k.pressed {
		keys.Press(key)
	}
}

type fakeRenderer struct {
	frames int
}

func (r *fakeRenderer) Render(d *cpu.Display) {
	r.frames++
}

func TestTimerCountdown(t *testing.T) {
	// LD V0, 5; LD DT, V0; JP $204
	c := loadOpcodes(t, 0x6005, 0xf015, 0x1204)
	clock := &manualClock{now: time.Unix(0, 0)}
	d := cpu.NewDriver(c, clock)

	// Less than one interval passes while the timer is loaded.
	for i := 0; i < 2; i++ {
		if err := d.Cycle(); err != nil {
			t.Fatal(err)
		}
	}
	if c.Reg.DT != 5 {
		t.Fatalf("DT incorrect. exp: 5, got: %d", c.Reg.DT)
	}

	for i := 4; i >= 0; i-- {
		clock.Advance(cpu.TimerInterval)
		if err := d.Cycle(); err != nil {
			t.Fatal(err)
		}
		if c.Reg.DT != byte(i) {
			t.Errorf("DT incorrect. exp: %d, got: %d", i, c.Reg.DT)
		}
	}

	clock.Advance(cpu.TimerInterval)
	if err := d.Cycle(); err != nil {
		t.Fatal(err)
	}
	if c.Reg.DT != 0 {
		t.Errorf("DT went below zero: %d", c.Reg.DT)
	}
}

func TestTimerCadence(t *testing.T) {
	c := loadOpcodes(t, 0x1200)
	c.Reg.DT, c.Reg.ST = 200, 100
	clock := &manualClock{now: time.Unix(0, 0)}
	d := cpu.NewDriver(c, clock)

	// 700 cycles per second spread over one second.
	step := time.Second / 700
	for i := 0; i < 700; i++ {
		clock.Advance(step)
		if err := d.Cycle(); err != nil {
			t.Fatal(err)
		}
	}

	ticks := 200 - int(c.Reg.DT)
	if ticks < 55 || ticks > 60 {
		t.Errorf("expected at most 60 timer ticks in one second, got %d", ticks)
	}
	if int(c.Reg.DT)-int(c.Reg.ST) != 100 {
		t.Errorf("timers ticked unevenly: DT=%d ST=%d", c.Reg.DT, c.Reg.ST)
	}
}

func TestDriverHooks(t *testing.T) {
	c := loadCPU(t, `
	LD V0, K
	LD F, V0
	DRW V1, V1, 5
	JP *`)

	keys := &fakeKeys{}
	renderer := &fakeRenderer{}
	d := cpu.NewDriver(c, &manualClock{})
	d.Input, d.Output = keys, renderer
	c.Display.MarkClean()

	for i := 0; i < 3; i++ {
		if err := d.Cycle(); err != nil {
			t.Fatal(err)
		}
	}
	expectPC(t, c, 0x200)
	if renderer.frames != 0 {
		t.Errorf("unexpected render while waiting: %d", renderer.frames)
	}

	keys.pressed = []byte{0x9}
	for i := 0; i < 4; i++ {
		if err := d.Cycle(); err != nil {
			t.Fatal(err)
		}
	}
	expectV(t, c, 0x0, 0x9)
	expectPC(t, c, 0x206)
	if keys.calls != 7 {
		t.Errorf("expected 7 key samples, got %d", keys.calls)
	}
	if renderer.frames != 1 {
		t.Errorf("expected 1 render, got %d", renderer.frames)
	}
	if c.Display.Dirty() {
		t.Error("display still dirty after render")
	}
}

func TestDriverFault(t *testing.T) {
	c := loadOpcodes(t, 0x00ee)
	c.Reg.DT = 3
	clock := &manualClock{}
	d := cpu.NewDriver(c, clock)

	clock.Advance(cpu.TimerInterval)
	err := d.Cycle()
	if !errors.Is(err, cpu.ErrStackUnderflow) {
		t.Errorf("expected stack underflow, got %v", err)
	}
	if c.Reg.DT != 3 {
		t.Errorf("timers ticked on a faulted cycle: DT=%d", c.Reg.DT)
	}
}
