// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// A term is one signed operand of a value expression: a number, a symbol
// or the current address ('*').
type term struct {
	neg    bool
	number int
	symbol string
	here   bool
}

// A value is a sum of terms such as "sprites+5" or "END-START". It is
// evaluated once every symbol it references is known.
type value struct {
	src       span
	terms     []term
	result    int
	evaluated bool
	address   bool // references a label
	str       string
	isString  bool // quoted string literal, only valid in DB
}

func (v *value) String() string {
	return v.src.text
}

// A symbolTable resolves symbol names for value evaluation.
type symbolTable interface {
	lookup(name string) (v int, address, ok bool)
}

// eval attempts to compute the value. 'here' is the address of the
// segment containing the value, or -1 if not yet assigned.
func (v *value) eval(here int, syms symbolTable) bool {
	if v.evaluated {
		return true
	}
	sum, address := 0, false
	for _, t := range v.terms {
		var n int
		switch {
		case t.here:
			if here < 0 {
				return false
			}
			n, address = here, true
		case t.symbol != "":
			sv, isAddr, ok := syms.lookup(t.symbol)
			if !ok {
				return false
			}
			n, address = sv, address || isAddr
		default:
			n = t.number
		}
		if t.neg {
			n = -n
		}
		sum += n
	}
	v.result, v.address, v.evaluated = sum, address, true
	return true
}

// parseValue parses a value expression. Local symbols starting with '.'
// or '@' are qualified with the scope label.
func parseValue(s span, scope string, allowString bool) (*value, *asmerror) {
	v := &value{src: s}
	if s.isEmpty() {
		return nil, &asmerror{s, "missing value"}
	}

	if allowString && s.startsWithChar('"') {
		if len(s.text) < 2 || s.text[len(s.text)-1] != '"' {
			return nil, &asmerror{s, "unterminated string"}
		}
		v.str, v.isString, v.evaluated = s.text[1:len(s.text)-1], true, true
		return v, nil
	}

	rest := s
	neg := false
	if rest.startsWithChar('-') {
		neg, rest = true, rest.skip(1).trimLeft()
	} else if rest.startsWithChar('+') {
		rest = rest.skip(1).trimLeft()
	}

	for {
		t, remain, err := parseTerm(rest, scope)
		if err != nil {
			return nil, err
		}
		t.neg = neg
		v.terms = append(v.terms, t)

		remain = remain.trimLeft()
		switch {
		case remain.isEmpty():
			return v, nil
		case remain.startsWithChar('+'):
			neg = false
		case remain.startsWithChar('-'):
			neg = true
		default:
			return nil, &asmerror{remain, fmt.Sprintf("unexpected '%s'", remain.text)}
		}
		rest = remain.skip(1).trimLeft()
	}
}

func parseTerm(s span, scope string) (term, span, *asmerror) {
	switch {
	case s.isEmpty():
		return term{}, s, &asmerror{s, "missing operand"}

	case s.startsWithChar('*'):
		return term{here: true}, s.skip(1), nil

	case s.startsWithChar('\''):
		if len(s.text) < 3 || s.text[2] != '\'' {
			return term{}, s, &asmerror{s, "invalid character literal"}
		}
		return term{number: int(s.text[1])}, s.skip(3), nil

	case s.startsWithChar('$'):
		return parseNumber(s.skip(1), 16, hexadecimal)

	case s.startsWithChar('%'):
		return parseNumber(s.skip(1), 2, binarynum)

	case len(s.text) > 1 && s.text[0] == '0' && (s.text[1] == 'x' || s.text[1] == 'X'):
		return parseNumber(s.skip(2), 16, hexadecimal)

	case len(s.text) > 1 && s.text[0] == '0' && (s.text[1] == 'b' || s.text[1] == 'B'):
		return parseNumber(s.skip(2), 2, binarynum)

	case s.startsWith(decimal):
		return parseNumber(s, 10, decimal)

	case s.startsWith(labelStartChar):
		id, rest := s.takeWhile(labelChar)
		return term{symbol: qualify(id.text, scope)}, rest, nil

	default:
		return term{}, s, &asmerror{s, fmt.Sprintf("invalid value '%s'", s.text)}
	}
}

func parseNumber(s span, base int, digit func(c byte) bool) (term, span, *asmerror) {
	num, rest := s.takeWhile(digit)
	if num.isEmpty() {
		return term{}, s, &asmerror{s, "invalid number"}
	}
	n, err := strconv.ParseInt(num.text, base, 32)
	if err != nil {
		return term{}, s, &asmerror{num, "number out of range"}
	}
	return term{number: int(n)}, rest, nil
}

// qualify turns a local label into its fully scoped name.
func qualify(label, scope string) string {
	if strings.HasPrefix(label, ".") || strings.HasPrefix(label, "@") {
		return "~" + scope + label
	}
	return label
}
