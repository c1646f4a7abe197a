// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !headless

// Package window displays a CHIP-8 machine in a desktop window.
package window

import (
	"context"

	"github.com/beevik/chip8/cpu"
	"github.com/beevik/chip8/frontend"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/retroenv/retrogolib/log"
)

const framesPerSecond = 60

// Pixel colors, RGBA.
var (
	colorOn  = [4]byte{0xe0, 0xe0, 0xe0, 0xff}
	colorOff = [4]byte{0x10, 0x10, 0x10, 0xff}
)

// keys holds the ebiten key for each keypad key 0 through F.
var keys = [cpu.KeyCount]ebiten.Key{
	ebiten.KeyX, ebiten.Key1, ebiten.Key2, ebiten.Key3,
	ebiten.KeyQ, ebiten.KeyW, ebiten.KeyE, ebiten.KeyA,
	ebiten.KeyS, ebiten.KeyD, ebiten.KeyZ, ebiten.KeyC,
	ebiten.Key4, ebiten.KeyR, ebiten.KeyF, ebiten.KeyV,
}

// A Window is an ebiten game that runs the driver at Hz cycles per second,
// spread across 60 frames.
type Window struct {
	Driver *cpu.Driver
	Hz     int
	Scale  int
	Logger *log.Logger

	ctx    context.Context
	err    error
	frame  *ebiten.Image
	pixels []byte
	carry  int
}

// New creates a window for the driver. It installs itself as the driver's
// key sampler and renderer.
func New(d *cpu.Driver, hz, scale int, logger *log.Logger) *Window {
	w := &Window{
		Driver: d,
		Hz:     hz,
		Scale:  scale,
		Logger: logger,
		pixels: make([]byte, cpu.DisplayWidth*cpu.DisplayHeight*4),
	}
	d.Input, d.Output = w, w
	w.Render(&d.CPU.Display)
	return w
}

// Run opens the window and runs the machine until the window is closed,
// Escape is pressed, the context is cancelled or the CPU faults.
func (w *Window) Run(ctx context.Context) error {
	if err := frontend.CheckOptions("window", w.Hz, w.Scale); err != nil {
		return err
	}
	w.ctx = ctx
	w.Driver.Reset()

	ebiten.SetWindowSize(cpu.DisplayWidth*w.Scale, cpu.DisplayHeight*w.Scale)
	ebiten.SetWindowTitle("CHIP-8")
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetTPS(framesPerSecond)

	w.Logger.Info("Opening window",
		log.Int("scale", w.Scale),
		log.Int("hz", w.Hz))

	if err := ebiten.RunGame(w); err != nil {
		return err
	}
	return w.err
}

// Update runs one frame's worth of cycles.
func (w *Window) Update() error {
	switch {
	case ebiten.IsWindowBeingClosed(), inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		w.err = frontend.ErrQuit
		return ebiten.Termination
	case w.ctx.Err() != nil:
		w.err = w.ctx.Err()
		return ebiten.Termination
	}

	// Spread the remainder of Hz/60 across frames.
	w.carry += w.Hz
	n := w.carry / framesPerSecond
	w.carry %= framesPerSecond

	for i := 0; i < n; i++ {
		if err := w.Driver.Cycle(); err != nil {
			w.Logger.Error("CPU halted", log.Err(err))
			w.err = err
			return ebiten.Termination
		}
	}
	return nil
}

// Draw uploads the framebuffer.
func (w *Window) Draw(screen *ebiten.Image) {
	if w.frame == nil {
		w.frame = ebiten.NewImage(cpu.DisplayWidth, cpu.DisplayHeight)
	}
	w.frame.WritePixels(w.pixels)
	screen.DrawImage(w.frame, nil)
}

// Layout keeps the logical screen at the CHIP-8 resolution; ebiten scales
// it to the window.
func (w *Window) Layout(_, _ int) (int, int) {
	return cpu.DisplayWidth, cpu.DisplayHeight
}

// SampleKeys copies the host keyboard state to the keypad.
func (w *Window) SampleKeys(k *cpu.Keypad) {
	for i, key := range keys {
		if ebiten.IsKeyPressed(key) {
			k.Press(byte(i))
		} else {
			k.Release(byte(i))
		}
	}
}

// Render converts the display to RGBA pixels for the next Draw.
func (w *Window) Render(d *cpu.Display) {
	for y := 0; y < cpu.DisplayHeight; y++ {
		for x := 0; x < cpu.DisplayWidth; x++ {
			c := colorOff
			if d.Pixel(x, y) {
				c = colorOn
			}
			copy(w.pixels[(y*cpu.DisplayWidth+x)*4:], c[:])
		}
	}
}
