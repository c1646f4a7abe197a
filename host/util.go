// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"

	"github.com/beevik/chip8/cpu"
)

func codeString(b []byte) string {
	switch len(b) {
	case 1:
		return fmt.Sprintf("%02X", b[0])
	case 2:
		return fmt.Sprintf("%02X %02X", b[0], b[1])
	default:
		return ""
	}
}

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

var hexString = "0123456789ABCDEF"

// addrToBuf writes a 12-bit address as three hex digits.
func addrToBuf(addr uint16, b []byte) {
	b[0] = hexString[(addr>>8)&0xf]
	b[1] = hexString[(addr>>4)&0xf]
	b[2] = hexString[addr&0xf]
}

func byteToBuf(v byte, b []byte) {
	b[0] = hexString[(v>>4)&0xf]
	b[1] = hexString[v&0xf]
}

func toPrintableChar(v byte) byte {
	if v >= 32 && v < 127 {
		return v
	}
	return '.'
}

// parseKey parses a single hexadecimal keypad digit.
func parseKey(s string) (byte, error) {
	if len(s) == 1 {
		if i := strings.IndexByte(hexString, toUpper(s[0])); i >= 0 {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("invalid key '%s'", s)
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// indentWrap word-wraps s to 80 columns, indenting every line.
func indentWrap(indent int, s string) string {
	const width = 80
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(s) {
		switch {
		case col == 0:
			b.WriteString(pad)
			col = indent
		case col+1+len(word) > width:
			b.WriteString("\n" + pad)
			col = indent
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += len(word)
	}
	return b.String()
}

// framebufferLines renders the display as text, one character per pixel.
func framebufferLines(d *cpu.Display) []string {
	lines := make([]string, 0, cpu.DisplayHeight+2)
	border := "+" + strings.Repeat("-", cpu.DisplayWidth) + "+"
	lines = append(lines, border)
	row := make([]byte, cpu.DisplayWidth+2)
	for y := 0; y < cpu.DisplayHeight; y++ {
		row[0], row[len(row)-1] = '|', '|'
		for x := 0; x < cpu.DisplayWidth; x++ {
			if d.Pixel(x, y) {
				row[x+1] = '#'
			} else {
				row[x+1] = ' '
			}
		}
		lines = append(lines, string(row))
	}
	return append(lines, border)
}
