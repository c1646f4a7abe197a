// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"context"
	"time"

	"github.com/beevik/chip8/cpu"
	"github.com/beevik/chip8/disasm"
	"github.com/retroenv/retrogolib/log"
)

// DefaultHz is the customary CHIP-8 instruction rate.
const DefaultHz = 700

// A Runner paces a driver at a fixed number of cycles per second.
type Runner struct {
	Driver *cpu.Driver
	Hz     int         // cycles per second; zero or less runs unpaced
	Logger *log.Logger // optional
	Trace  bool        // log every executed instruction at debug level
	Quit   func() bool // optional; polled once per cycle
}

// Run executes cycles until the context is cancelled, Quit reports true or
// the CPU faults. It returns the context error, ErrQuit or the fault.
func (r *Runner) Run(ctx context.Context) error {
	c := r.Driver.CPU
	r.Driver.Reset()

	if r.Logger != nil {
		r.Logger.Info("Starting execution",
			log.Hex("pc", c.Reg.PC),
			log.Int("hz", r.Hz))
	}

	var tick <-chan time.Time
	if r.Hz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(r.Hz))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return r.stop(ctx.Err())
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return r.stop(err)
		}

		if r.Quit != nil && r.Quit() {
			return r.stop(ErrQuit)
		}

		if err := r.Driver.Cycle(); err != nil {
			if r.Logger != nil {
				r.Logger.Error("CPU halted", log.Err(err), log.Uint16("pc", c.Reg.PC))
			}
			return err
		}

		if r.Trace && r.Logger != nil {
			r.trace(c)
		}
	}
}

func (r *Runner) stop(err error) error {
	if r.Logger != nil {
		r.Logger.Info("Stopped execution",
			log.String("reason", err.Error()),
			log.Int("cycles", int(r.Driver.CPU.Cycles)))
	}
	return err
}

// trace logs the instruction just executed and the resulting machine state.
func (r *Runner) trace(c *cpu.CPU) {
	line, _ := disasm.Disassemble(c.Mem, c.LastPC)
	r.Logger.Debug(line,
		log.Hex("pc", c.Reg.PC),
		log.String("regs", disasm.GetRegisterString(&c.Reg)),
		log.String("stack", disasm.GetStackString(&c.Reg)),
		log.String("keys", disasm.GetKeyString(&c.Keys)))
}
