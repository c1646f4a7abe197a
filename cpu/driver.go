// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "time"

// Timer cadence. Delay and sound timers count down at 60 Hz regardless of
// how fast instructions are executed.
const (
	TimerFrequency = 60
	TimerInterval  = time.Second / TimerFrequency
)

// A Clock reports the current time. Drivers use it to gate the 60 Hz timer
// tick, so tests can substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// A KeySampler updates the keypad from host input. It is called once per
// cycle, before the instruction executes.
type KeySampler interface {
	SampleKeys(keys *Keypad)
}

// A Renderer presents the framebuffer. It is called after a cycle that
// changed the display.
type Renderer interface {
	Render(d *Display)
}

// A Driver runs a CPU one cycle at a time, interleaving instruction
// execution with the 60 Hz timer tick and the input and render hooks.
type Driver struct {
	CPU    *CPU
	Input  KeySampler // optional
	Output Renderer   // optional

	clock    Clock
	lastTick time.Time
}

// NewDriver creates a driver for the CPU. A nil clock selects SystemClock.
func NewDriver(cpu *CPU, clock Clock) *Driver {
	if clock == nil {
		clock = SystemClock
	}
	return &Driver{
		CPU:      cpu,
		clock:    clock,
		lastTick: clock.Now(),
	}
}

// Reset restarts the timer cadence from the current time.
func (d *Driver) Reset() {
	d.lastTick = d.clock.Now()
}

// Cycle samples input, executes one instruction, ticks the timers if a
// timer interval has elapsed and renders the display if it changed. An
// execution fault is returned and leaves the timers untouched.
func (d *Driver) Cycle() error {
	if d.Input != nil {
		d.Input.SampleKeys(&d.CPU.Keys)
	}

	if err := d.CPU.Step(); err != nil {
		return err
	}

	d.TickTimers()

	if d.Output != nil && d.CPU.Display.Dirty() {
		d.Output.Render(&d.CPU.Display)
		d.CPU.Display.MarkClean()
	}
	return nil
}

// TickTimers decrements the delay and sound timers once if at least one
// timer interval has passed since the previous decrement. It reports
// whether a decrement happened.
func (d *Driver) TickTimers() bool {
	now := d.clock.Now()
	if now.Sub(d.lastTick) < TimerInterval {
		return false
	}
	d.CPU.Reg.TickTimers()
	d.lastTick = now
	return true
}
