// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/chip8/cpu"

// The debugHandler receives notifications from the cpu debugger and
// forwards them to the host, which stops the run or step loop and prints the
// instruction that triggered the break.
type debugHandler struct {
	host *Host
}

func newDebugHandler(h *Host) *debugHandler {
	return &debugHandler{host: h}
}

// OnBreakpoint is called before the opcode at b.Address executes. The host
// uses it both for user breakpoints and for the temporary step-over
// breakpoint placed after a CALL.
func (h *debugHandler) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	h.host.onBreakpoint(c, b)
}

// OnDataBreakpoint is called from inside an Fx33 or Fx55 store.
func (h *debugHandler) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.host.onDataBreakpoint(c, b)
}
