// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"strconv"
)

var errExprParse = errors.New("expression syntax error")

// A resolver maps identifiers such as register names and exported labels
// to values.
type resolver interface {
	resolveIdentifier(s string) (int64, error)
}

// An exprParser evaluates arithmetic expressions typed at the debugger
// prompt. Operators, from lowest to highest precedence:
//
//	|  ^
//	&
//	<<  >>
//	+  -
//	*  /  %
//	unary - + ~
//
// Numbers may be written as $1F, 0x1F, %0101, 0b0101 or 'c'. Bare numbers
// are decimal unless hex mode is on, in which case 0d prefixes a decimal.
type exprParser struct {
	hexMode bool
	s       string
	pos     int
	r       resolver
}

func newExprParser() *exprParser {
	return &exprParser{}
}

// Parse evaluates the expression, resolving identifiers through r.
func (p *exprParser) Parse(expr string, r resolver) (int64, error) {
	p.s, p.pos, p.r = expr, 0, r

	v, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	p.skipWhitespace()
	if p.pos < len(p.s) {
		return 0, fmt.Errorf("%w: unexpected '%s'", errExprParse, p.s[p.pos:])
	}
	return v, nil
}

func (p *exprParser) parseOr() (int64, error) {
	a, err := p.parseAnd()
	for err == nil {
		switch {
		case p.accept("|"):
			var b int64
			b, err = p.parseAnd()
			a |= b
		case p.accept("^"):
			var b int64
			b, err = p.parseAnd()
			a ^= b
		default:
			return a, nil
		}
	}
	return 0, err
}

func (p *exprParser) parseAnd() (int64, error) {
	a, err := p.parseShift()
	for err == nil && p.accept("&") {
		var b int64
		b, err = p.parseShift()
		a &= b
	}
	return a, err
}

func (p *exprParser) parseShift() (int64, error) {
	a, err := p.parseSum()
	for err == nil {
		switch {
		case p.accept("<<"):
			var b int64
			b, err = p.parseSum()
			a <<= uint64(b)
		case p.accept(">>"):
			var b int64
			b, err = p.parseSum()
			a >>= uint64(b)
		default:
			return a, nil
		}
	}
	return 0, err
}

func (p *exprParser) parseSum() (int64, error) {
	a, err := p.parseProduct()
	for err == nil {
		switch {
		case p.accept("+"):
			var b int64
			b, err = p.parseProduct()
			a += b
		case p.accept("-"):
			var b int64
			b, err = p.parseProduct()
			a -= b
		default:
			return a, nil
		}
	}
	return 0, err
}

func (p *exprParser) parseProduct() (int64, error) {
	a, err := p.parseUnary()
	for err == nil {
		var op byte
		switch {
		case p.accept("*"):
			op = '*'
		case p.accept("/"):
			op = '/'
		case p.accept("%"):
			op = '%'
		default:
			return a, nil
		}
		var b int64
		if b, err = p.parseUnary(); err != nil {
			break
		}
		switch {
		case op == '*':
			a *= b
		case b == 0:
			return 0, errors.New("division by zero")
		case op == '/':
			a /= b
		default:
			a %= b
		}
	}
	return 0, err
}

func (p *exprParser) parseUnary() (int64, error) {
	switch {
	case p.accept("-"):
		v, err := p.parseUnary()
		return -v, err
	case p.accept("+"):
		return p.parseUnary()
	case p.accept("~"):
		v, err := p.parseUnary()
		return ^v, err
	default:
		return p.parsePrimary()
	}
}

func (p *exprParser) parsePrimary() (int64, error) {
	p.skipWhitespace()
	if p.pos >= len(p.s) {
		return 0, fmt.Errorf("%w: missing value", errExprParse)
	}

	c := p.s[p.pos]
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if !p.accept(")") {
			return 0, fmt.Errorf("%w: missing ')'", errExprParse)
		}
		return v, nil

	case c == '\'':
		if p.pos+2 >= len(p.s) || p.s[p.pos+2] != '\'' {
			return 0, fmt.Errorf("%w: invalid character literal", errExprParse)
		}
		v := int64(p.s[p.pos+1])
		p.pos += 3
		return v, nil

	case c == '$':
		p.pos++
		return p.parseNumber(16, hexadecimal)

	case c == '%':
		p.pos++
		return p.parseNumber(2, binary)

	case decimal(c):
		switch {
		case p.hasPrefix("0x") || p.hasPrefix("0X"):
			p.pos += 2
			return p.parseNumber(16, hexadecimal)
		case p.hasPrefix("0b") || p.hasPrefix("0B"):
			p.pos += 2
			return p.parseNumber(2, binary)
		case p.hasPrefix("0d") || p.hasPrefix("0D"):
			p.pos += 2
			return p.parseNumber(10, decimal)
		case p.hexMode:
			return p.parseNumber(16, hexadecimal)
		default:
			return p.parseNumber(10, decimal)
		}

	case identifier(c):
		start := p.pos
		for p.pos < len(p.s) && identifier(p.s[p.pos]) {
			p.pos++
		}
		if p.r == nil {
			return 0, fmt.Errorf("identifier '%s' not found", p.s[start:p.pos])
		}
		return p.r.resolveIdentifier(p.s[start:p.pos])

	default:
		return 0, fmt.Errorf("%w: unexpected '%c'", errExprParse, c)
	}
}

func (p *exprParser) parseNumber(base int, digit func(c byte) bool) (int64, error) {
	start := p.pos
	for p.pos < len(p.s) && digit(p.s[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("%w: invalid number", errExprParse)
	}
	v, err := strconv.ParseInt(p.s[start:p.pos], base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number '%s'", errExprParse, p.s[start:p.pos])
	}
	return v, nil
}

// accept consumes the operator if it is next in the input. A single '<' or
// '>' never matches a shift.
func (p *exprParser) accept(op string) bool {
	p.skipWhitespace()
	if !p.hasPrefix(op) {
		return false
	}
	p.pos += len(op)
	return true
}

func (p *exprParser) hasPrefix(s string) bool {
	return len(p.s)-p.pos >= len(s) && p.s[p.pos:p.pos+len(s)] == s
}

func (p *exprParser) skipWhitespace() {
	for p.pos < len(p.s) && whitespace(p.s[p.pos]) {
		p.pos++
	}
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func binary(c byte) bool {
	return c == '0' || c == '1'
}

func identifier(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.' ||
		(c >= '0' && c <= '9')
}
