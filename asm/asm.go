// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an assembler for CHIP-8 programs written with the
// Cowgod mnemonics ("LD V0, $12", "DRW V1, V2, 5").
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/chip8/cpu"
)

var (
	errParse        = errors.New("parse error")
	errNoSourceLine = errors.New("no source line at address")
)

type directiveData struct {
	fn    func(a *assembler, line, label span, param int) error
	param int
}

var directives = map[string]directiveData{
	".or":     {fn: (*assembler).parseOrigin},
	".org":    {fn: (*assembler).parseOrigin},
	"org":     {fn: (*assembler).parseOrigin},
	".eq":     {fn: (*assembler).parseEquate},
	".equ":    {fn: (*assembler).parseEquate},
	"equ":     {fn: (*assembler).parseEquate},
	"=":       {fn: (*assembler).parseEquate},
	".db":     {fn: (*assembler).parseData, param: 1},
	"db":      {fn: (*assembler).parseData, param: 1},
	".byte":   {fn: (*assembler).parseData, param: 1},
	".dw":     {fn: (*assembler).parseData, param: 2},
	"dw":      {fn: (*assembler).parseData, param: 2},
	".word":   {fn: (*assembler).parseData, param: 2},
	".al":     {fn: (*assembler).parseAlign},
	".align":  {fn: (*assembler).parseAlign},
	"align":   {fn: (*assembler).parseAlign},
	".ex":     {fn: (*assembler).parseExport},
	".export": {fn: (*assembler).parseExport},
	"export":  {fn: (*assembler).parseExport},
}

// A segment is a small chunk of machine code that may represent a single
// instruction or a group of byte data.
type segment interface {
	address() int
}

// An instruction segment contains a single 2-byte instruction.
type instruction struct {
	addr     int       // address assigned to the segment
	file     int       // index of file containing the instruction
	line     int       // the source code line number
	mnemonic span      // mnemonic as written
	op       cpu.Op    // selected operation
	operands []operand // parsed operands
}

func (i *instruction) address() int {
	return i.addr
}

// A data segment holds DB or DW values.
type data struct {
	addr   int      // address assigned to the segment
	unit   int      // unit size (1 or 2 bytes)
	values []*value // all values in the data segment
}

func (d *data) address() int {
	return d.addr
}

func (d *data) bytes() int {
	n := 0
	for _, v := range d.values {
		if v.isString {
			n += len(v.str)
		} else {
			n += d.unit
		}
	}
	return n
}

// An alignment segment pads the program to a power-of-two boundary.
type alignment struct {
	addr  int
	align int
	pad   int
}

func (a *alignment) address() int {
	return a.addr
}

// An export segment publishes an address in the source map.
type export struct {
	addr  int
	value *value
}

func (e *export) address() int {
	return e.addr
}

// An operandKind classifies an instruction operand.
type operandKind byte

const (
	kindValue    operandKind = iota // number, symbol or sum of them
	kindReg                         // V0..VF
	kindI                           // I
	kindIndirect                    // [I]
	kindDT                          // DT
	kindST                          // ST
	kindK                           // K
	kindF                           // F
	kindB                           // B
)

// An operand is one comma-separated parameter of an instruction.
type operand struct {
	kind  operandKind
	reg   byte
	value *value
	src   span
}

var keywords = map[string]operandKind{
	"I":   kindI,
	"[I]": kindIndirect,
	"DT":  kindDT,
	"ST":  kindST,
	"K":   kindK,
	"F":   kindF,
	"B":   kindB,
}

// Operand kinds accepted by each instruction form.
var formOperands = map[cpu.Form][]operandKind{
	cpu.FormNone:   {},
	cpu.FormAddr:   {kindValue},
	cpu.FormVxByte: {kindReg, kindValue},
	cpu.FormVxVy:   {kindReg, kindReg},
	cpu.FormShift:  {kindReg, kindReg},
	cpu.FormIAddr:  {kindI, kindValue},
	cpu.FormV0Addr: {kindReg, kindValue},
	cpu.FormDraw:   {kindReg, kindReg, kindValue},
	cpu.FormVx:     {kindReg},
	cpu.FormVxDT:   {kindReg, kindDT},
	cpu.FormVxK:    {kindReg, kindK},
	cpu.FormDTVx:   {kindDT, kindReg},
	cpu.FormSTVx:   {kindST, kindReg},
	cpu.FormIVx:    {kindI, kindReg},
	cpu.FormFVx:    {kindF, kindReg},
	cpu.FormBVx:    {kindB, kindReg},
	cpu.FormMemVx:  {kindIndirect, kindReg},
	cpu.FormVxMem:  {kindReg, kindIndirect},
}

// An asmerror is used to keep track of errors encountered
// during assembly.
type asmerror struct {
	line span   // line causing the error
	msg  string // error message
}

// A pending value is one that could not be evaluated when parsed.
type pending struct {
	value *value
	segno int // index of the segment the value belongs to
}

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	origin      int               // requested origin
	pc          int               // the program counter
	code        []byte            // generated machine code
	r           io.Reader         // the reader passed to Assemble
	scopeLabel  string            // label currently in scope
	constants   map[string]*value // constant -> value
	labels      map[string]int    // label -> segment index
	exports     []Export          // exported addresses
	sourceLines []SourceLine      // source code line mappings
	files       []string          // processed files
	segments    []segment         // segment of machine code
	pending     []pending         // values requiring evaluation
	out         io.Writer         // output used for verbose output
	verbose     bool              // verbose output
	errors      []asmerror        // errors encountered during assembly
}

// An Export describes an exported address.
type Export struct {
	Label   string
	Address uint16
}

// Assembly contains the assembled machine code and other data associated with
// the machine code.
type Assembly struct {
	Code   []byte   // Assembled machine code
	Origin uint16   // Address of the first byte of Code
	Errors []string // Errors encountered during assembly
}

// ReadFrom reads a raw ROM image. The image is assumed to start at
// cpu.ProgramStart.
func (a *Assembly) ReadFrom(r io.Reader) (n int64, err error) {
	a.Errors = []string{}
	a.Origin = cpu.ProgramStart
	a.Code, err = io.ReadAll(r)
	n = int64(len(a.Code))
	if err != nil {
		return n, err
	}
	if n > cpu.MaxROMSize {
		return n, cpu.ErrROMTooLarge
	}
	return n, nil
}

// WriteTo saves machine code as binary data into an output writer.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// Option type used by the Assembly function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

// AssembleFile reads a file containing CHIP-8 assembly code, assembles it,
// and writes a ROM image (.ch8) and a source map file (.map) beside it.
func AssembleFile(path string, options Option, out io.Writer) error {
	inFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer inFile.Close()

	assembly, sourceMap, err := Assemble(inFile, path, cpu.ProgramStart, out, options)
	if err != nil {
		for _, e := range assembly.Errors {
			fmt.Fprintln(out, e)
		}
		return err
	}

	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]
	romPath := prefix + ".ch8"
	if err := writeFile(romPath, assembly); err != nil {
		return err
	}

	mapPath := prefix + ".map"
	if err := writeFile(mapPath, sourceMap); err != nil {
		return err
	}

	fmt.Fprintf(out, "Assembled '%s' to produce '%s' and '%s'.\n",
		filepath.Base(path),
		filepath.Base(romPath),
		filepath.Base(mapPath))
	return nil
}

func writeFile(path string, w io.WriterTo) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = w.WriteTo(file)
	return err
}

// Assemble reads CHIP-8 assembly code from the provided stream and
// assembles it into machine code starting at origin (unless the source
// contains an ORG directive).
func Assemble(r io.Reader, filename string, origin uint16, out io.Writer, options Option) (*Assembly, *SourceMap, error) {
	if out == nil {
		out = os.Stdout
	}

	a := &assembler{
		origin:    int(origin),
		pc:        -1,
		r:         r,
		constants: make(map[string]*value),
		labels:    make(map[string]int),
		files:     []string{filename},
		exports:   make([]Export, 0),
		segments:  make([]segment, 0, 32),
		out:       out,
		verbose:   (options & Verbose) != 0,
	}

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,              // Parse the assembly code
		(*assembler).assignAddresses,    // Assign addresses to segments
		(*assembler).evaluateValues,     // Evaluate operands and constants
		(*assembler).checkUnevaluated,   // Cause error if any value is unresolved
		(*assembler).generateCode,       // Generate the machine code
		(*assembler).checkProgramBounds, // Make sure the program fits in memory
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	var err error
	for _, step := range steps {
		err = step(a)
		if err != nil {
			break
		}
		if len(a.errors) > 0 {
			err = errParse
			break
		}
	}

	errors := make([]string, 0, len(a.errors))
	for _, e := range a.errors {
		filename := a.files[e.line.file]
		s := fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s", filename, e.line.row, e.line.col+1, e.msg)
		errors = append(errors, s)
	}

	assembly := &Assembly{
		Code:   a.code,
		Origin: uint16(a.origin),
		Errors: errors,
	}

	sourceMap := &SourceMap{
		Origin:  uint16(a.origin),
		Size:    uint32(len(a.code)),
		CRC:     crc32.ChecksumIEEE(a.code),
		Files:   a.files,
		Lines:   a.sourceLines,
		Exports: sortExports(a.exports),
	}

	return assembly, sourceMap, err
}

// Read the assembly code and build up segments, the constants table, the
// label table, and a list of values that could not yet be evaluated.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	scanner := bufio.NewScanner(a.r)
	row := 1
	for scanner.Scan() {
		line := newSpan(0, row, scanner.Text())
		if err := a.parseLine(line.stripComment()); err != nil {
			return err
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// An empty data segment marks the end of the program, so labels at the
	// end of the file receive an address.
	a.segments = append(a.segments, &data{addr: -1})
	return nil
}

// Parse a single line of assembly code.
func (a *assembler) parseLine(line span) error {
	// Skip empty (or comment-only) lines
	if line.isEmpty() || line.startsWithChar('*') {
		return nil
	}

	a.log("---")

	if line.startsWith(whitespace) {
		return a.parseUnlabeledLine(line.trimLeft())
	}

	// A mnemonic in the first column is an instruction, not a label.
	word, _ := line.takeUntil(whitespace)
	if len(cpu.Lookup(word.text)) > 0 {
		return a.parseUnlabeledLine(line)
	}
	return a.parseLabeledLine(line)
}

// Parse a line of assembly code that contains no label.
func (a *assembler) parseUnlabeledLine(line span) error {
	a.logLine(line, "unlabeled_line")

	word, rest := line.takeUntil(whitespace)
	if d, ok := directives[strings.ToLower(word.text)]; ok {
		return d.fn(a, rest.trimLeft(), span{}, d.param)
	}
	return a.parseInstruction(word, rest)
}

// Parse a line of assembly code that starts with a label.
func (a *assembler) parseLabeledLine(line span) error {
	a.logLine(line, "labeled_line")

	label, rest, err := a.parseLabel(line)
	if err != nil {
		return err
	}

	// Is the next word a directive, rather than a mnemonic?
	word, rest := rest.takeUntil(whitespace)
	if d, ok := directives[strings.ToLower(word.text)]; ok {
		return d.fn(a, rest.trimLeft(), label, d.param)
	}

	if err := a.storeLabel(label); err != nil {
		return err
	}

	// Parse any instruction following the label
	if !word.isEmpty() {
		return a.parseInstruction(word, rest)
	}
	return nil
}

// Store a label into the assembler's label list.
func (a *assembler) storeLabel(label span) error {
	name := qualify(label.text, a.scopeLabel)
	if name == label.text {
		a.scopeLabel = label.text
	}

	if _, found := a.labels[name]; found {
		a.addError(label, "label '%s' used more than once", label.text)
		return errParse
	}

	// Associate the label with its segment number.
	segno := len(a.segments)
	a.labels[name] = segno
	a.logLine(label, "label=%s seg=%d", name, segno)
	return nil
}

// Parse a label at the beginning of a line of assembly code.
func (a *assembler) parseLabel(line span) (label, rest span, err error) {
	if !line.startsWith(labelStartChar) {
		s, _ := line.takeUntil(whitespace)
		a.addError(line, "invalid label '%s'", s.text)
		return span{}, line, errParse
	}

	label, rest = line.takeWhile(labelChar)

	// Skip colon after label.
	if rest.startsWithChar(':') {
		rest = rest.skip(1)
	}

	if !rest.isEmpty() && !rest.startsWith(whitespace) {
		s, _ := rest.takeUntil(whitespace)
		a.addError(rest, "invalid label '%s%s'", label.text, s.text)
		return span{}, rest, errParse
	}

	return label, rest.trimLeft(), nil
}

// Parse a value and queue it for evaluation if it references symbols that
// are not yet known.
func (a *assembler) parseValue(s span, allowString bool) (*value, error) {
	v, e := parseValue(s, a.scopeLabel, allowString)
	if e != nil {
		a.addError(e.line, "%s", e.msg)
		return nil, errParse
	}
	if !v.eval(-1, a) {
		a.pending = append(a.pending, pending{value: v, segno: len(a.segments)})
	}
	return v, nil
}

// Parse an "EQU" constant definition.
func (a *assembler) parseEquate(line, label span, param int) error {
	if label.isEmpty() {
		a.addError(line, "equate declaration must begin with a label")
		return errParse
	}

	v, err := a.parseValue(line, false)
	if err != nil {
		return err
	}

	a.logLine(line, "equate=%s expr=%s", label.text, v)
	a.constants[qualify(label.text, a.scopeLabel)] = v
	return nil
}

// Parse an "ORG" origin definition
func (a *assembler) parseOrigin(line, label span, param int) error {
	if len(a.segments) > 0 {
		a.addError(line, "origin directive must appear before first instruction")
		return errParse
	}

	v, e := parseValue(line, a.scopeLabel, false)
	if e != nil {
		a.addError(e.line, "%s", e.msg)
		return errParse
	}
	if !v.eval(-1, a) {
		a.addError(line, "unable to evaluate origin")
		return errParse
	}
	if v.result < 0 || v.result >= cpu.MemorySize {
		a.addError(line, "origin $%X is outside memory", v.result)
		return errParse
	}

	a.logLine(line, "origin=$%03X", v.result)
	a.origin = v.result
	return nil
}

// Parse a "DB" or "DW" data directive.
func (a *assembler) parseData(line, label span, param int) error {
	a.logLine(line, "data unit=%d", param)

	if !label.isEmpty() {
		if err := a.storeLabel(label); err != nil {
			return err
		}
	}

	seg := &data{addr: -1, unit: param}
	for _, field := range line.split() {
		v, err := a.parseValue(field, param == 1)
		if err != nil {
			return err
		}
		seg.values = append(seg.values, v)
	}

	a.segments = append(a.segments, seg)
	return nil
}

// Parse an "ALIGN" directive.
func (a *assembler) parseAlign(line, label span, param int) error {
	a.logLine(line, "align=")

	s, rest := line.takeWhile(decimal)
	if s.isEmpty() || !rest.isEmpty() {
		a.addError(rest, "invalid alignment")
		return errParse
	}

	v, _ := strconv.ParseInt(s.text, 10, 32)
	if v == 0 || (v&(v-1)) != 0 || v > 0x100 {
		a.addError(s, "alignment must be a power of 2")
		return errParse
	}

	// A label on the directive addresses the first byte after the padding.
	a.segments = append(a.segments, &alignment{addr: -1, align: int(v)})
	if !label.isEmpty() {
		return a.storeLabel(label)
	}
	return nil
}

// Parse an "EXPORT" directive.
func (a *assembler) parseExport(line, label span, param int) error {
	a.logLine(line, "export=")

	v, err := a.parseValue(line, false)
	if err != nil {
		return err
	}

	a.segments = append(a.segments, &export{addr: -1, value: v})
	return nil
}

// Parse a CHIP-8 mnemonic and its operands.
func (a *assembler) parseInstruction(mnemonic, rest span) error {
	ops := cpu.Lookup(mnemonic.text)
	if ops == nil {
		a.addError(mnemonic, "invalid opcode '%s'", mnemonic.text)
		return errParse
	}

	rest = rest.trim()
	a.logLine(rest, "op=%s", mnemonic.text)

	var operands []operand
	if !rest.isEmpty() {
		for _, field := range rest.split() {
			o, err := a.parseOperand(field)
			if err != nil {
				return err
			}
			operands = append(operands, o)
		}
	}

	op, ok := matchOperation(ops, operands)
	if !ok {
		a.addError(rest, "invalid operands for '%s'", strings.ToUpper(mnemonic.text))
		return errParse
	}

	seg := &instruction{
		addr:     -1,
		file:     mnemonic.file,
		line:     mnemonic.row,
		mnemonic: mnemonic,
		op:       op,
		operands: operands,
	}
	a.segments = append(a.segments, seg)
	return nil
}

// Parse a single operand: a register, one of the special operand keywords
// or a value.
func (a *assembler) parseOperand(s span) (operand, error) {
	if s.isEmpty() {
		a.addError(s, "missing operand")
		return operand{}, errParse
	}

	upper := strings.ToUpper(s.text)
	if len(upper) == 2 && upper[0] == 'V' && hexadecimal(upper[1]) {
		return operand{kind: kindReg, reg: hexchar(upper[1]), src: s}, nil
	}
	if kind, ok := keywords[upper]; ok {
		return operand{kind: kind, src: s}, nil
	}

	v, err := a.parseValue(s, false)
	if err != nil {
		return operand{}, err
	}
	return operand{kind: kindValue, value: v, src: s}, nil
}

// Select the operation whose operand form matches the parsed operands.
func matchOperation(ops []cpu.Op, operands []operand) (cpu.Op, bool) {
	for _, op := range ops {
		kinds := formOperands[op.Form()]
		if op.Form() == cpu.FormShift && len(operands) == 1 {
			kinds = kinds[:1]
		}
		if len(kinds) != len(operands) {
			continue
		}
		match := true
		for i, k := range kinds {
			if operands[i].kind != k {
				match = false
				break
			}
		}
		if match && op.Form() == cpu.FormV0Addr && operands[0].reg != 0 {
			match = false
		}
		if match {
			return op, true
		}
	}
	return 0, false
}

// Return the address assigned to the requested segment.
func (a *assembler) segaddr(segno int) int {
	if segno < len(a.segments) {
		return a.segments[segno].address()
	}
	return -1
}

// lookup resolves a constant or label for value evaluation.
func (a *assembler) lookup(name string) (v int, address, ok bool) {
	if c, found := a.constants[name]; found {
		if c.evaluated {
			return c.result, c.address, true
		}
		return 0, false, false
	}
	if segno, found := a.labels[name]; found {
		if addr := a.segaddr(segno); addr >= 0 {
			return addr, true, true
		}
	}
	return 0, false, false
}

// Determine addresses of all code segments.
func (a *assembler) assignAddresses() error {
	a.logSection("Assigning addresses")
	a.pc = a.origin
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			ss.addr = a.pc
			a.sourceLines = append(a.sourceLines, SourceLine{
				Address:   ss.addr,
				FileIndex: ss.file,
				Line:      ss.line,
			})
			a.log("%03X  %s Form:%d", ss.addr, ss.op.Name(), ss.op.Form())
			a.pc += 2

		case *data:
			ss.addr = a.pc
			n := ss.bytes()
			a.log("%03X  DATA Len:%d", ss.addr, n)
			a.pc += n

		case *alignment:
			ss.addr = a.pc
			ss.pad = ss.align*((a.pc+ss.align-1)/ss.align) - a.pc
			a.log("%03X  ALIGN Len:%d", ss.addr, ss.pad)
			a.pc += ss.pad

		case *export:
			ss.addr = a.pc
		}
	}
	return nil
}

// Evaluate pending values until no more progress can be made.
func (a *assembler) evaluateValues() error {
	a.logSection("Evaluating values")
	for {
		var remaining []pending
		for _, p := range a.pending {
			if p.value.eval(a.segaddr(p.segno), a) {
				a.log("%-25s Val:$%X", p.value, p.value.result)
			} else {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) == len(a.pending) {
			break
		}
		a.pending = remaining
	}
	return nil
}

// Cause an error if there are any unevaluated values.
func (a *assembler) checkUnevaluated() error {
	for _, p := range a.pending {
		a.addError(p.value.src, "unresolved expression '%s'", p.value)
	}
	if len(a.pending) > 0 {
		return errParse
	}
	return nil
}

// Generate machine code.
func (a *assembler) generateCode() error {
	a.logSection("Generating code")
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			opcode, ok := a.encode(ss)
			if !ok {
				continue
			}
			b := []byte{byte(opcode >> 8), byte(opcode)}
			a.code = append(a.code, b...)
			a.log("%03X-   %-8s    %s", ss.addr, byteString(b), ss.mnemonic.text)

		case *data:
			start := len(a.code)
			for _, v := range ss.values {
				switch {
				case v.isString:
					a.code = append(a.code, v.str...)
				case !inRange(v.result, ss.unit*8):
					a.addError(v.src, "value $%X does not fit in %d byte(s)", v.result, ss.unit)
				default:
					a.code = append(a.code, toBytes(ss.unit, v.result)...)
				}
			}
			a.logBytes(ss.addr, a.code[start:])

		case *alignment:
			pad := make([]byte, ss.pad)
			a.code = append(a.code, pad...)
			a.logBytes(ss.addr, pad)

		case *export:
			if !ss.value.address {
				a.addError(ss.value.src, "export is not an address label")
				continue
			}
			a.exports = append(a.exports, Export{
				Label:   ss.value.src.text,
				Address: uint16(ss.value.result),
			})
		}
	}
	return nil
}

// Encode an instruction segment, reporting operand range errors.
func (a *assembler) encode(inst *instruction) (uint16, bool) {
	var regs []byte
	var val *operand
	for i := range inst.operands {
		switch inst.operands[i].kind {
		case kindReg:
			regs = append(regs, inst.operands[i].reg)
		case kindValue:
			val = &inst.operands[i]
		}
	}

	var x, y, n, kk byte
	var addr uint16
	if len(regs) > 0 {
		x = regs[0]
	}
	if len(regs) > 1 {
		y = regs[1]
	}

	if val != nil {
		v := val.value.result
		switch inst.op.Form() {
		case cpu.FormAddr, cpu.FormIAddr, cpu.FormV0Addr:
			if v < 0 || v > 0xfff {
				a.addError(val.src, "address $%X out of range", v)
				return 0, false
			}
			if inst.op == cpu.OpSYS && v&0xff != 0 {
				a.addError(val.src, "SYS address must have a zero low byte")
				return 0, false
			}
			addr = uint16(v)
		case cpu.FormVxByte:
			if !inRange(v, 8) {
				a.addError(val.src, "byte value $%X out of range", v)
				return 0, false
			}
			kk = byte(v)
		case cpu.FormDraw:
			if v < 0 || v > 0xf {
				a.addError(val.src, "sprite height %d out of range", v)
				return 0, false
			}
			n = byte(v)
		}
	}

	return cpu.Encode(inst.op, x, y, n, kk, addr), true
}

// Make sure the program fits between its origin and the end of memory.
func (a *assembler) checkProgramBounds() error {
	if a.origin+len(a.code) > cpu.MemorySize {
		return fmt.Errorf("program of %d bytes at $%03X exceeds memory", len(a.code), a.origin)
	}
	return nil
}

// Append an error message to the assembler's error state.
func (a *assembler) addError(l span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.errors = append(a.errors, asmerror{l, msg})
	if a.verbose {
		filename := a.files[l.file]
		fmt.Fprintf(a.out, "Syntax error in '%s' line %d, col %d: %s\n", filename, l.row, l.col+1, msg)
		fmt.Fprintln(a.out, l.full)
		fmt.Fprintln(a.out, strings.Repeat("-", l.col)+"^")
	}
}

// In verbose mode, log a string to the output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(line span, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d %-3d | %-20s | %s\n", line.row, line.col+1, detail, line.text)
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *assembler) logBytes(addr int, b []byte) {
	if a.verbose {
		for i := 0; i < len(b); i += 4 {
			j := min(i+4, len(b))
			a.log("%03X-*  %s", addr+i, byteString(b[i:j]))
		}
	}
}

// In verbose mode, log a section header to the output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
