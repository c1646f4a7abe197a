// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import "fmt"

// CheckOptions validates the command-line options of the window and term
// modes. The window runs a fixed share of hz every frame, so it needs a
// positive rate; the terminal runner treats zero as unpaced.
func CheckOptions(mode string, hz, scale int) error {
	switch mode {
	case "window":
		if hz <= 0 {
			return fmt.Errorf("window mode needs -hz > 0, got %d", hz)
		}
		if scale <= 0 {
			return fmt.Errorf("window mode needs -scale > 0, got %d", scale)
		}
	case "term":
		if hz < 0 {
			return fmt.Errorf("-hz must not be negative, got %d", hz)
		}
	default:
		return fmt.Errorf("unknown mode '%s'", mode)
	}
	return nil
}
