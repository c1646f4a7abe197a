// Copyright 2018 Brett Vickers.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a CHIP-8 system
// with 4K of memory, a 64x32 framebuffer, a 16-key keypad, a built-in
// assembler, a built-in debugger, and other useful tools.
//
// Within the host it is possible to assemble and load ROMs into memory,
// debug and step through machine code, set address and data breakpoints,
// press and release keypad keys, dump the contents of memory and the
// framebuffer, disassemble the contents of memory, manipulate CPU registers
// and memory, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/beevik/chip8/asm"
	"github.com/beevik/chip8/cpu"
	"github.com/beevik/chip8/disasm"
	"github.com/beevik/cmd"
)

type state int32

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
	stateFault
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles
	displayAnnotations

	displayAll = displayRegisters | displayCycles | displayAnnotations
)

var errQuit = errors.New("exiting program")

// A Host represents a fully emulated CHIP-8 system along with a built-in
// assembler, a built-in debugger, and other useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.Memory
	cpu         *cpu.CPU
	driver      *cpu.Driver
	debugger    *cpu.Debugger
	lastCmd     *selection
	state       atomic.Int32
	exprParser  *exprParser
	sourceMap   *asm.SourceMap
	sourceFiles map[string][]string
	settings    *settings
	annotations map[uint16]string

	stepOverAddr  int  // address of the step-over breakpoint, or -1
	stepOverDepth byte // stack depth of the CALL being stepped over
}

// New creates a new CHIP-8 host environment.
func New() *Host {
	h := &Host{
		output:       bufio.NewWriter(os.Stdout),
		exprParser:   newExprParser(),
		sourceFiles:  make(map[string][]string),
		settings:     newSettings(),
		annotations:  make(map[uint16]string),
		stepOverAddr: -1,
	}

	// Create the emulated CPU and memory.
	h.mem = cpu.NewMemory()
	h.cpu = cpu.NewCPU(h.mem)
	h.driver = cpu.NewDriver(h.cpu, cpu.SystemClock)

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.output = bufio.NewWriter(w)

	if interactive {
		h.println()
		h.interactive = true
		h.displayPC()
	}

	h.processCommands(r, interactive)
	h.flush()
}

func (h *Host) processCommands(r io.Reader, interactive bool) error {
	prevInput, prevInteractive := h.input, h.interactive
	h.input = bufio.NewScanner(r)
	h.interactive = interactive
	defer func() {
		h.input, h.interactive = prevInput, prevInteractive
	}()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return nil
		}

		var c selection
		if strings.TrimSpace(line) != "" {
			n, args, err := cmds.Lookup(line)
			switch {
			case errors.Is(err, cmd.ErrNotFound):
				h.println("Command not found.")
				continue
			case errors.Is(err, cmd.ErrAmbiguous):
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}

			switch n := n.(type) {
			case *cmd.Command:
				c = selection{Command: n.Data.(*command), Args: args}
			case *cmd.Tree:
				h.displayCommands(groups[n])
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		if err := c.Command.handler(h, c); err != nil {
			return err
		}
	}
}

// Break interrupts a running CPU. It may be called from another goroutine.
func (h *Host) Break() {
	h.state.CompareAndSwap(int32(stateRunning), int32(stateProcessingCommands))
}

// AssembleFile assembles a CHIP-8 source file, writing a ROM image and a
// source map beside it.
func (h *Host) AssembleFile(filename string) error {
	defer h.flush()
	return asm.AssembleFile(filename, 0, h.output)
}

// Load loads a ROM image and its source map, if one exists, and resets the
// CPU so it is ready to run the ROM.
func (h *Host) Load(filename string) error {
	defer h.flush()
	return h.load(filename)
}

// Seed makes the RND instruction deterministic.
func (h *Host) Seed(seed uint64) {
	h.cpu.Rand = cpu.NewRand(seed)
}

func (h *Host) getState() state {
	return state(h.state.Load())
}

func (h *Host) setState(s state) {
	h.state.Store(int32(s))
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	}
}

func (h *Host) cmdAnnotate(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	annotation := strings.Join(c.Args[1:], " ")
	if annotation == "" {
		delete(h.annotations, addr)
		h.printf("Annotation removed at $%03X.\n", addr)
	} else {
		h.annotations[addr] = annotation
		h.printf("Annotation added at $%03X.\n", addr)
	}
	return nil
}

func (h *Host) cmdAssemble(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	var options asm.Option
	if len(c.Args) > 1 {
		verbose, err := stringToBool(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if verbose {
			options |= asm.Verbose
		}
	}

	err := asm.AssembleFile(filename, options, h.output)
	if err != nil {
		h.printf("Failed to assemble '%s': %v\n", filepath.Base(filename), err)
	}
	h.flush()
	return nil
}

func (h *Host) cmdBreakpointList(c selection) error {
	h.println("Addr Enabled Hits")
	h.println("---- ------- ----")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%03X %-7v %d\n", b.Address, !b.Disabled, b.Hits)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%03X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c selection) error {
	b, ok := h.findBreakpoint(c)
	if !ok {
		return nil
	}

	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at $%03X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c selection) error {
	b, ok := h.findBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = false
	h.printf("Breakpoint at $%03X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointDisable(c selection) error {
	b, ok := h.findBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = true
	h.printf("Breakpoint at $%03X disabled.\n", b.Address)
	return nil
}

func (h *Host) findBreakpoint(c selection) (*cpu.Breakpoint, bool) {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil, false
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil, false
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%03X.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) cmdDataBreakpointList(c selection) error {
	h.println("Addr Enabled Value  Hits")
	h.println("---- ------- ------ ----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		value := "<none>"
		if b.Conditional {
			value = fmt.Sprintf("$%02X", b.Value)
		}
		h.printf("$%03X %-7v %-6s %d\n", b.Address, !b.Disabled, value, b.Hits)
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at $%03X for value $%02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%03X.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c selection) error {
	b, ok := h.findDataBreakpoint(c)
	if !ok {
		return nil
	}

	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at $%03X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c selection) error {
	b, ok := h.findDataBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = false
	h.printf("Data breakpoint at $%03X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c selection) error {
	b, ok := h.findDataBreakpoint(c)
	if !ok {
		return nil
	}

	b.Disabled = true
	h.printf("Data breakpoint at $%03X disabled.\n", b.Address)
	return nil
}

func (h *Host) findDataBreakpoint(c selection) (*cpu.DataBreakpoint, bool) {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil, false
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil, false
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%03X.\n", addr)
		return nil, false
	}
	return b, true
}

func (h *Host) cmdDisassemble(c selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines && int(addr) < cpu.MemorySize; i++ {
		d, next := h.disassemble(addr, displayAnnotations)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdDisplay(c selection) error {
	for _, l := range framebufferLines(&h.cpu.Display) {
		h.print(l, "\n")
	}
	h.flush()
	return nil
}

func (h *Host) cmdEvaluate(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (h *Host) cmdExecute(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(c.Args[0]), err)
		return nil
	}
	defer file.Close()

	lastCmd := h.lastCmd
	err = h.processCommands(file, false)
	h.lastCmd = lastCmd
	return err
}

func (h *Host) cmdExports(c selection) error {
	if h.sourceMap == nil || len(h.sourceMap.Exports) == 0 {
		h.println("No active exports.")
		return nil
	}
	for _, e := range h.sourceMap.Exports {
		h.printf("%-16s $%03X\n", e.Label, e.Address)
	}
	return nil
}

func (h *Host) cmdHelp(c selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(groups[cmds])
		return nil
	}

	n, _, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	switch n := n.(type) {
	case *cmd.Tree:
		h.displayCommands(groups[n])
	case *cmd.Command:
		cc := n.Data.(*command)
		if cc.usage != "" {
			h.printf("Syntax: %s\n\n", cc.usage)
		}
		switch {
		case cc.description != "":
			h.printf("Description:\n%s\n\n", indentWrap(3, cc.description))
		case cc.brief != "":
			h.printf("Description:\n%s.\n\n", indentWrap(3, cc.brief))
		}
	}
	return nil
}

func (h *Host) cmdKeyPress(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	keys, err := parseKeys(c.Args)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	for _, k := range keys {
		h.cpu.Keys.Press(k)
	}
	h.println(disasm.GetKeyString(&h.cpu.Keys))
	return nil
}

func (h *Host) cmdKeyRelease(c selection) error {
	if len(c.Args) == 0 {
		h.cpu.Keys.ReleaseAll()
		h.println(disasm.GetKeyString(&h.cpu.Keys))
		return nil
	}

	keys, err := parseKeys(c.Args)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	for _, k := range keys {
		h.cpu.Keys.Release(k)
	}
	h.println(disasm.GetKeyString(&h.cpu.Keys))
	return nil
}

func (h *Host) cmdKeyList(c selection) error {
	h.println(disasm.GetKeyString(&h.cpu.Keys))
	return nil
}

func parseKeys(args []string) ([]byte, error) {
	keys := make([]byte, 0, len(args))
	for _, a := range args {
		k, err := parseKey(a)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (h *Host) cmdList(c selection) error {
	if h.sourceMap == nil {
		h.println("No source map loaded.")
		return nil
	}

	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextSourceAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}
	case ".":
		addr = h.cpu.Reg.PC
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.SourceLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	filename, line, err := h.sourceMap.Find(int(addr))
	if err != nil {
		h.printf("No source line at $%03X.\n", addr)
		return nil
	}

	src, err := h.sourceLines(filename)
	if err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	for i := line - 1; i < len(src) && i < line-1+lines; i++ {
		h.printf("%-5d %s\n", i+1, src[i])
	}

	h.settings.NextSourceAddr = h.nextSourceAddr(addr, line+lines)
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

// nextSourceAddr returns the address of the first mapped source line at or
// after the requested line, searching forward from addr.
func (h *Host) nextSourceAddr(addr uint16, line int) uint16 {
	for _, l := range h.sourceMap.Lines {
		if l.Address > int(addr) && l.Line >= line {
			return uint16(l.Address)
		}
	}
	return addr
}

func (h *Host) sourceLines(filename string) ([]string, error) {
	if lines, ok := h.sourceFiles[filename]; ok {
		return lines, nil
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	h.sourceFiles[filename] = lines
	return lines, nil
}

func (h *Host) cmdLoad(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".ch8"
	}

	if err := h.load(filename); err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
	}
	return nil
}

func (h *Host) cmdMemoryDump(c selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
		if addr == 0 {
			addr = h.cpu.Reg.I
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := uint16(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		var err error
		bytes, err = h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	if int(addr) >= cpu.MemorySize {
		h.printf("Address $%04X is out of range.\n", addr)
		return nil
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = min(addr+bytes, cpu.MemorySize-1)
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(c.Args)-1)
	for _, a := range c.Args[1:] {
		v, err := h.parseExpr(a)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b = append(b, byte(v))
	}

	if err := h.mem.StoreBytes(addr, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.dumpMemory(addr, uint16(len(b)))
	return nil
}

func (h *Host) cmdMemoryCopy(c selection) error {
	if len(c.Args) < 3 {
		h.displayHelpText(c.Command)
		return nil
	}

	var addr [3]uint16
	for i := range addr {
		a, err := h.parseExpr(c.Args[i])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr[i] = a
	}

	dst, start, end := addr[0], addr[1], addr[2]
	if end < start {
		h.println("Source range is empty.")
		return nil
	}

	b := make([]byte, end-start+1)
	if err := h.mem.LoadBytes(start, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	if err := h.mem.StoreBytes(dst, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Copied $%03X..$%03X to $%03X.\n", start, end, dst)
	return nil
}

func (h *Host) cmdQuit(c selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c selection) error {
	switch len(c.Args) {
	case 0:
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
		h.printf("%s %s\n", disasm.GetStackString(&h.cpu.Reg), disasm.GetKeyString(&h.cpu.Keys))
		if err := h.cpu.Fault(); err != nil {
			h.printf("Halted: %v\n", err)
		}
		return nil
	case 1:
		h.displayHelpText(c.Command)
		return nil
	}

	key := strings.ToUpper(c.Args[0])
	v, err := h.exprParser.Parse(strings.Join(c.Args[1:], " "), h)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	r := &h.cpu.Reg
	switch {
	case len(key) == 2 && key[0] == 'V' && strings.IndexByte(hexString, key[1]) >= 0:
		r.V[strings.IndexByte(hexString, key[1])] = byte(v)
		h.printf("Register %s set to $%02X.\n", key, byte(v))
	case key == "I":
		r.I = uint16(v) & 0xfff
		h.printf("Register I set to $%03X.\n", r.I)
	case key == "PC" || key == ".":
		r.PC = uint16(v) & 0xfff
		h.printf("Register PC set to $%03X.\n", r.PC)
		h.settings.NextDisasmAddr = r.PC
	case key == "SP":
		if v < 0 || v > cpu.StackSize {
			h.printf("Stack pointer must be between 0 and %d.\n", cpu.StackSize)
			return nil
		}
		r.SP = byte(v)
		h.printf("Register SP set to %d.\n", r.SP)
	case key == "DT":
		r.DT = byte(v)
		h.printf("Register DT set to $%02X.\n", r.DT)
	case key == "ST":
		r.ST = byte(v)
		h.printf("Register ST set to $%02X.\n", r.ST)
	default:
		h.printf("Unknown register '%s'.\n", c.Args[0])
	}
	return nil
}

func (h *Host) cmdReset(c selection) error {
	h.cpu.Reset()
	h.driver.Reset()
	h.settings.NextDisasmAddr = 0
	h.println("CPU reset.")
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from $%03X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	var interval time.Duration
	if h.settings.CyclesPerSecond > 0 {
		interval = time.Second / time.Duration(h.settings.CyclesPerSecond)
	}

	h.setState(stateRunning)
	next := time.Now()
	for h.getState() == stateRunning {
		h.step()
		if h.checkWaiting() {
			break
		}
		if interval > 0 {
			next = next.Add(interval)
			if d := time.Until(next); d > 0 {
				time.Sleep(d)
			}
		}
	}

	// Interrupted by Break.
	if h.getState() == stateProcessingCommands {
		h.displayPC()
	}
	h.setState(stateProcessingCommands)

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSet(c selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c.Command)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int64
			v, err = h.exprParser.Parse(value, h)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStepIn(c selection) error {
	h.stepLoop(c, h.step)
	return nil
}

func (h *Host) cmdStepOver(c selection) error {
	h.stepLoop(c, h.stepOver)
	return nil
}

// stepLoop calls stepFn the number of times given by the first argument,
// displaying the last MaxStepLines instructions.
func (h *Host) stepLoop(c selection, stepFn func()) {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.setState(stateRunning)
	for i := count - 1; i >= 0 && h.getState() == stateRunning; i-- {
		stepFn()
		if h.getState() != stateRunning {
			break
		}
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.setState(stateProcessingCommands)

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
}

func (h *Host) cmdStepOut(c selection) error {
	depth := h.cpu.Reg.SP
	if depth == 0 {
		h.println("Not inside a subroutine.")
		return nil
	}

	h.setState(stateRunning)
	for h.getState() == stateRunning {
		h.step()
		if h.cpu.Reg.SP < depth && h.getState() == stateRunning {
			h.displayPC()
			break
		}
		if h.checkWaiting() {
			break
		}
	}
	h.setState(stateProcessingCommands)

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	a := &asm.Assembly{}
	if _, err := a.ReadFrom(file); err != nil {
		return err
	}

	if err := h.cpu.LoadROM(a.Code); err != nil {
		return err
	}
	h.driver.Reset()
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
	h.settings.NextSourceAddr = 0
	h.printf("Loaded '%s' to $%03X..$%03X.\n", filepath.Base(filename),
		a.Origin, int(a.Origin)+len(a.Code)-1)

	h.sourceMap = nil
	ext := filepath.Ext(filename)
	mapFilename := filename[:len(filename)-len(ext)] + ".map"

	mapFile, err := os.Open(mapFilename)
	if err != nil {
		return nil
	}
	defer mapFile.Close()

	sm := &asm.SourceMap{}
	if _, err := sm.ReadFrom(mapFile); err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(mapFilename), err)
		return nil
	}
	if sm.Origin != a.Origin || sm.Size != uint32(len(a.Code)) || sm.CRC != crc32.ChecksumIEEE(a.Code) {
		h.printf("Source map '%s' does not match the ROM.\n", filepath.Base(mapFilename))
		return nil
	}

	h.sourceMap = sm
	h.sourceFiles = make(map[string][]string)
	h.printf("Loaded '%s' source map.\n", filepath.Base(mapFilename))
	return nil
}

// step executes one cycle. A fault stops execution.
func (h *Host) step() {
	if err := h.driver.Cycle(); err != nil {
		h.setState(stateFault)
		h.printf("CPU halted: %v.\n", err)
		h.displayPC()
	}
}

// checkWaiting stops a running CPU that is waiting for a key press that
// can never arrive while commands are not being processed.
func (h *Host) checkWaiting() bool {
	if !h.cpu.Waiting() || h.getState() != stateRunning {
		return false
	}
	h.setState(stateBreakpoint)
	h.printf("Waiting for a key press at $%03X.\n", h.cpu.Reg.PC)
	h.displayPC()
	return true
}

func (h *Host) stepOver() {
	c := h.cpu

	// CALL instructions need to be handled specially.
	inst, err := c.GetInstruction(c.Reg.PC)
	if err != nil || !inst.IsCall() {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the CALL.
	// Either borrow an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := c.Reg.PC + 2
	b := h.debugger.GetBreakpoint(next)
	tmpBreakpointCreated := b == nil
	if tmpBreakpointCreated {
		b = h.debugger.AddBreakpoint(next)
	}
	disabled := b.Disabled
	b.Disabled = false
	h.stepOverAddr, h.stepOverDepth = int(next), c.Reg.SP

	// Run until interrupted.
	for h.getState() == stateRunning {
		h.step()
		if h.checkWaiting() {
			break
		}
	}
	h.stepOverAddr = -1
	b.Disabled = disabled

	// If we were interrupted by the step-over breakpoint, then continue as
	// normal.
	if h.getState() == stateStepOverBreakpoint {
		h.setState(stateRunning)
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	var line string
	line, next = disasm.Disassemble(h.mem, addr)

	b := make([]byte, next-addr)
	h.mem.LoadBytes(addr, b)

	str = fmt.Sprintf("%03X-   %-5s    %-16s", addr, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.GetRegisterString(&h.cpu.Reg)
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%d", h.cpu.Cycles)
	}

	if (flags & displayAnnotations) != 0 {
		if anno, ok := h.annotations[addr]; ok {
			str += " ; " + anno
		}
	}

	return str, next
}

func (h *Host) dumpMemory(addr0, bytes uint16) {
	if bytes == 0 {
		return
	}

	addr1 := int(addr0) + int(bytes) - 1
	if addr1 >= cpu.MemorySize {
		addr1 = cpu.MemorySize - 1
	}

	buf := []byte("   -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-int(addr0) < 8 {
		addrToBuf(addr0, buf[0:3])
		for a, c1, c2 := int(addr0), 5, 31; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(strings.TrimRight(string(buf), " "))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := int(addr0) &^ 7
	stop := (addr1 + 8) &^ 7

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(a), buf[0:3])
		for c1, c2 := 5, 31; c1 < 28; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= int(addr0) && a <= addr1 {
				m := h.mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(strings.TrimRight(string(buf), " "))
	}
}

func (h *Host) displayHelpText(c *command) {
	if c.usage != "" {
		h.printf("Syntax: %s\n", c.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(g *commandGroup) {
	if g == nil {
		return
	}
	h.printf("%s commands:\n", g.title)
	for _, c := range g.commands {
		if c.brief != "" {
			h.printf("    %-15s  %s\n", c.name, c.brief)
		}
	}
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	s = strings.ToLower(s)

	r := &h.cpu.Reg
	switch s {
	case "i":
		return int64(r.I), nil
	case "sp":
		return int64(r.SP), nil
	case "dt":
		return int64(r.DT), nil
	case "st":
		return int64(r.ST), nil
	case ".", "pc":
		return int64(r.PC), nil
	}
	if len(s) == 2 && s[0] == 'v' {
		if i := strings.IndexByte(hexString, toUpper(s[1])); i >= 0 {
			return int64(r.V[i]), nil
		}
	}

	if h.sourceMap != nil {
		for _, e := range h.sourceMap.Exports {
			if strings.ToLower(e.Label) == s {
				return int64(e.Address), nil
			}
		}
	}

	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if int(b.Address) == h.stepOverAddr {
		// A recursive call may reach the same address with a deeper stack.
		if c.Reg.SP <= h.stepOverDepth {
			h.setState(stateStepOverBreakpoint)
		}
		return
	}

	h.setState(stateBreakpoint)
	h.printf("Breakpoint hit at $%03X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%03X.\n", b.Address)

	h.setState(stateBreakpoint)

	if c.LastPC != c.Reg.PC {
		d, _ := h.disassemble(c.LastPC, displayAll)
		h.println(d)
	}

	h.displayPC()
}
