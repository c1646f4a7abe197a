// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A span is a substring of a source line that remembers where it came
// from, so errors can point at the offending column.
type span struct {
	file int    // index of the file in the assembly
	row  int    // 1-based line number
	col  int    // 0-based column of the first character
	text string // the substring of interest
	full string // the whole source line
}

func newSpan(file, row int, text string) span {
	return span{file: file, row: row, text: text, full: text}
}

func (s span) String() string {
	return s.text
}

func (s span) isEmpty() bool {
	return len(s.text) == 0
}

func (s span) startsWith(fn func(c byte) bool) bool {
	return len(s.text) > 0 && fn(s.text[0])
}

func (s span) startsWithChar(c byte) bool {
	return len(s.text) > 0 && s.text[0] == c
}

// skip drops the first n bytes, advancing the column. Tabs advance to the
// next multiple of 8.
func (s span) skip(n int) span {
	col := s.col
	for i := 0; i < n; i++ {
		if s.text[i] == '\t' {
			col += 8 - col%8
		} else {
			col++
		}
	}
	return span{s.file, s.row, col, s.text[n:], s.full}
}

func (s span) head(n int) span {
	return span{s.file, s.row, s.col, s.text[:n], s.full}
}

func (s span) trimLeft() span {
	return s.skip(s.count(whitespace))
}

func (s span) trim() span {
	s = s.trimLeft()
	return s.head(len(strings.TrimRight(s.text, " \t")))
}

// count returns the length of the prefix whose characters satisfy fn.
func (s span) count(fn func(c byte) bool) int {
	i := 0
	for i < len(s.text) && fn(s.text[i]) {
		i++
	}
	return i
}

func (s span) takeWhile(fn func(c byte) bool) (taken, rest span) {
	n := s.count(fn)
	return s.head(n), s.skip(n)
}

func (s span) takeUntil(fn func(c byte) bool) (taken, rest span) {
	n := s.count(func(c byte) bool { return !fn(c) })
	return s.head(n), s.skip(n)
}

// split breaks the span on commas that are not inside quotes. Each field
// is trimmed of surrounding whitespace.
func (s span) split() []span {
	var fields []span
	var quote byte
	start := 0
	for i := 0; i < len(s.text); i++ {
		c := s.text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case stringQuote(c):
			quote = c
		case c == ',':
			fields = append(fields, s.skip(start).head(i-start).trim())
			start = i + 1
		}
	}
	return append(fields, s.skip(start).trim())
}

// stripComment removes a trailing ';' comment and trailing whitespace,
// ignoring semicolons inside quotes.
func (s span) stripComment() span {
	var quote byte
	end := len(s.text)
	for i := 0; i < len(s.text); i++ {
		c := s.text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if stringQuote(c) {
			quote = c
		} else if c == ';' {
			end = i
			break
		}
	}
	return s.head(len(strings.TrimRight(s.text[:end], " \t")))
}

//
// character classes
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binarynum(c byte) bool {
	return c == '0' || c == '1'
}

func labelStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '.' || c == '@'
}

func labelChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_' || c == '.' || c == '@'
}

func stringQuote(c byte) bool {
	return c == '"' || c == '\''
}
