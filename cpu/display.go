// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Framebuffer dimensions.
const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// Display is the monochrome framebuffer. Pixels are addressed by (x, y)
// with the origin in the top-left corner.
type Display struct {
	pixels [DisplayWidth][DisplayHeight]bool
	dirty  bool
}

// Pixel returns whether the pixel at (x, y) is set. Coordinates wrap
// around the edges of the display.
func (d *Display) Pixel(x, y int) bool {
	return d.pixels[wrap(x, DisplayWidth)][wrap(y, DisplayHeight)]
}

// SetPixel sets or clears the pixel at (x, y).
func (d *Display) SetPixel(x, y int, on bool) {
	d.pixels[wrap(x, DisplayWidth)][wrap(y, DisplayHeight)] = on
	d.dirty = true
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	d.pixels = [DisplayWidth][DisplayHeight]bool{}
	d.dirty = true
}

// Dirty reports whether the display changed since the last call to
// MarkClean.
func (d *Display) Dirty() bool {
	return d.dirty
}

// MarkClean resets the dirty flag, typically after the display has been
// presented.
func (d *Display) MarkClean() {
	d.dirty = false
}

// DrawSprite XORs an 8-pixel-wide sprite onto the display with its top-left
// corner at (x mod 64, y mod 32). Each row wraps around both edges. It
// returns true if any set pixel was turned off.
func (d *Display) DrawSprite(x, y byte, sprite []byte) (collision bool) {
	px := int(x) % DisplayWidth
	py := int(y) % DisplayHeight
	for row, bits := range sprite {
		yy := (py + row) % DisplayHeight
		for bit := 0; bit < 8; bit++ {
			if bits&(0x80>>bit) == 0 {
				continue
			}
			xx := (px + bit) % DisplayWidth
			if d.pixels[xx][yy] {
				collision = true
			}
			d.pixels[xx][yy] = !d.pixels[xx][yy]
		}
	}
	d.dirty = true
	return collision
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
