// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"cmp"
	"maps"
	"slices"
)

// A Debugger watches a CPU for execution and data breakpoints. Attach it
// with CPU.AttachDebugger. Execution breakpoints are checked each time the
// CPU fetches an opcode; data breakpoints are checked on the two memory
// write paths, LD B, Vx (Fx33) and LD [I], Vx (Fx55). Reads by DRW and
// LD Vx, [I] never trigger a data breakpoint.
type Debugger struct {
	handler         BreakpointHandler
	breakpoints     map[uint16]*Breakpoint
	dataBreakpoints map[uint16]*DataBreakpoint
}

// The BreakpointHandler interface should be implemented by any object that
// wishes to receive debugger breakpoint notifications. OnBreakpoint is called
// before the opcode at the breakpoint address executes. OnDataBreakpoint is
// called while Fx33 or Fx55 is executing, before the byte reaches memory; the
// CPU's PC already points past the storing instruction.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

// A Breakpoint stops execution when the program counter reaches Address.
// CHIP-8 opcodes are two bytes, so only even offsets from the program start
// line up with instructions.
type Breakpoint struct {
	Address  uint16 // address of execution breakpoint
	Disabled bool   // this breakpoint is currently disabled
	Hits     int    // number of times the breakpoint has triggered
}

// A DataBreakpoint stops execution when Fx33 or Fx55 stores a byte to
// Address. A three-digit BCD store or a register block store covering the
// address triggers it once per pass.
type DataBreakpoint struct {
	Address     uint16 // breakpoint triggered by stores to this address
	Disabled    bool   // this breakpoint is currently disabled
	Conditional bool   // this breakpoint is conditional on a certain Value being stored
	Value       byte   // the value that must be stored if the breakpoint is conditional
	Hits        int    // number of times the breakpoint has triggered
}

// NewDebugger creates a new CPU debugger.
func NewDebugger(handler BreakpointHandler) *Debugger {
	return &Debugger{
		handler:         handler,
		breakpoints:     make(map[uint16]*Breakpoint),
		dataBreakpoints: make(map[uint16]*DataBreakpoint),
	}
}

// GetBreakpoint looks up a breakpoint by address and returns it if found.
// Otherwise it returns nil.
func (d *Debugger) GetBreakpoint(addr uint16) *Breakpoint {
	return d.breakpoints[addr]
}

// GetBreakpoints returns all breakpoints ordered by address.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	return slices.SortedFunc(maps.Values(d.breakpoints), func(a, b *Breakpoint) int {
		return cmp.Compare(a.Address, b.Address)
	})
}

// AddBreakpoint adds a breakpoint at addr, replacing any breakpoint
// already set there.
func (d *Debugger) AddBreakpoint(addr uint16) *Breakpoint {
	b := &Breakpoint{Address: addr}
	d.breakpoints[addr] = b
	return b
}

// RemoveBreakpoint removes a breakpoint from the debugger.
func (d *Debugger) RemoveBreakpoint(addr uint16) {
	delete(d.breakpoints, addr)
}

// GetDataBreakpoint looks up a data breakpoint on the provided address
// and returns it if found. Otherwise it returns nil.
func (d *Debugger) GetDataBreakpoint(addr uint16) *DataBreakpoint {
	return d.dataBreakpoints[addr]
}

// GetDataBreakpoints returns all data breakpoints ordered by address.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	return slices.SortedFunc(maps.Values(d.dataBreakpoints), func(a, b *DataBreakpoint) int {
		return cmp.Compare(a.Address, b.Address)
	})
}

// AddDataBreakpoint adds an unconditional data breakpoint on the requested
// address.
func (d *Debugger) AddDataBreakpoint(addr uint16) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr}
	d.dataBreakpoints[addr] = b
	return b
}

// AddConditionalDataBreakpoint adds a data breakpoint that only triggers
// when value is stored to addr.
func (d *Debugger) AddConditionalDataBreakpoint(addr uint16, value byte) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr, Conditional: true, Value: value}
	d.dataBreakpoints[addr] = b
	return b
}

// RemoveDataBreakpoint removes a (conditional or unconditional) data
// breakpoint at the requested address.
func (d *Debugger) RemoveDataBreakpoint(addr uint16) {
	delete(d.dataBreakpoints, addr)
}

// onUpdatePC runs before the opcode at addr is fetched.
func (d *Debugger) onUpdatePC(cpu *CPU, addr uint16) {
	b, ok := d.breakpoints[addr]
	if !ok || b.Disabled {
		return
	}
	b.Hits++
	if d.handler != nil {
		d.handler.OnBreakpoint(cpu, b)
	}
}

// onDataStore runs for each byte of an Fx33 or Fx55 store, ahead of the write.
func (d *Debugger) onDataStore(cpu *CPU, addr uint16, v byte) {
	b, ok := d.dataBreakpoints[addr]
	if !ok || b.Disabled || (b.Conditional && b.Value != v) {
		return
	}
	b.Hits++
	if d.handler != nil {
		d.handler.OnDataBreakpoint(cpu, b)
	}
}
