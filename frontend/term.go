// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beevik/chip8/cpu"
	"github.com/beevik/term"
)

// DefaultHoldTime is how long a terminal key stays pressed after the last
// character the terminal delivered for it.
const DefaultHoldTime = 150 * time.Millisecond

// Bytes that ask the terminal frontend to quit.
const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// A Terminal drives a CHIP-8 machine from a text terminal. It reads raw
// keystrokes from In and draws the display to Out using half-block
// characters, two pixel rows per text line.
//
// Terminals report key presses but not releases, so a key is treated as
// held until HoldTime has passed since its last repeat.
type Terminal struct {
	In       *os.File
	Out      io.Writer
	HoldTime time.Duration

	now   func() time.Time
	mu    sync.Mutex
	held  [cpu.KeyCount]time.Time
	quit  atomic.Bool
	fd    int
	state *term.State
	buf   strings.Builder
}

// NewTerminal creates a terminal frontend reading from in and drawing to
// out.
func NewTerminal(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		In:       in,
		Out:      out,
		HoldTime: DefaultHoldTime,
		now:      time.Now,
	}
}

// Start puts the input terminal in raw mode and begins reading keys.
func (t *Terminal) Start() error {
	t.fd = int(t.In.Fd())
	if !term.IsTerminal(t.fd) {
		return fmt.Errorf("input is not a terminal")
	}

	w, h, err := term.GetSize(t.fd)
	if err == nil && (w < cpu.DisplayWidth+2 || h < cpu.DisplayHeight/2+2) {
		return fmt.Errorf("terminal is %dx%d, need at least %dx%d",
			w, h, cpu.DisplayWidth+2, cpu.DisplayHeight/2+2)
	}

	t.state, err = term.MakeRawInput(t.fd)
	if err != nil {
		return err
	}

	// Clear the screen and hide the cursor.
	io.WriteString(t.Out, "\x1b[2J\x1b[?25l")

	go t.readKeys()
	return nil
}

// Stop restores the terminal to its state before Start.
func (t *Terminal) Stop() error {
	io.WriteString(t.Out, "\x1b[?25h\r\n")
	if t.state == nil {
		return nil
	}
	err := term.Restore(t.fd, t.state)
	t.state = nil
	return err
}

func (t *Terminal) readKeys() {
	b := make([]byte, 16)
	for {
		n, err := t.In.Read(b)
		t.feed(b[:n])
		if err != nil {
			t.quit.Store(true)
			return
		}
	}
}

// feed processes one read of terminal input. A lone Escape quits; Escape
// followed by more bytes in the same read starts an escape sequence, such as
// an arrow or function key, which is skipped.
func (t *Terminal) feed(in []byte) {
	for i := 0; i < len(in); i++ {
		switch c := in[i]; {
		case c == keyCtrlC:
			t.quit.Store(true)
			return
		case c == keyEscape:
			if i == len(in)-1 {
				t.quit.Store(true)
				return
			}
			i = skipEscape(in, i+1)
			continue
		}

		key, ok := MapKey(rune(in[i]))
		if !ok {
			continue
		}
		t.mu.Lock()
		t.held[key] = t.now()
		t.mu.Unlock()
	}
}

// skipEscape returns the index of the last byte of the escape sequence whose
// first byte after Escape is at in[i].
func skipEscape(in []byte, i int) int {
	switch in[i] {
	case '[':
		// CSI: parameter and intermediate bytes end at a final byte.
		for i++; i < len(in); i++ {
			if in[i] >= 0x40 && in[i] <= 0x7e {
				break
			}
		}
		return i
	case 'O':
		return i + 1
	default:
		return i
	}
}

// Quit reports whether the user asked to quit.
func (t *Terminal) Quit() bool {
	return t.quit.Load()
}

// SampleKeys presses every key seen within the hold time and releases the
// rest.
func (t *Terminal) SampleKeys(keys *cpu.Keypad) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, last := range t.held {
		if !last.IsZero() && now.Sub(last) < t.HoldTime {
			keys.Press(byte(i))
		} else {
			keys.Release(byte(i))
		}
	}
}

// Render redraws the display from the top-left corner of the terminal.
func (t *Terminal) Render(d *cpu.Display) {
	t.buf.Reset()
	t.buf.WriteString("\x1b[H")
	for y := 0; y < cpu.DisplayHeight; y += 2 {
		for x := 0; x < cpu.DisplayWidth; x++ {
			t.buf.WriteRune(halfBlock(d.Pixel(x, y), d.Pixel(x, y+1)))
		}
		t.buf.WriteString("\r\n")
	}
	io.WriteString(t.Out, t.buf.String())
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}
