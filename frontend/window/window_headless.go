// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build headless

// Package window displays a CHIP-8 machine in a desktop window. Headless
// builds have no window support.
package window

import (
	"context"
	"errors"

	"github.com/beevik/chip8/cpu"
	"github.com/retroenv/retrogolib/log"
)

// ErrUnavailable is returned by Run in headless builds.
var ErrUnavailable = errors.New("window support not compiled in (headless build)")

// A Window is a stand-in that cannot be opened.
type Window struct {
	Driver *cpu.Driver
	Hz     int
	Scale  int
	Logger *log.Logger
}

// New creates a window for the driver.
func New(d *cpu.Driver, hz, scale int, logger *log.Logger) *Window {
	return &Window{Driver: d, Hz: hz, Scale: scale, Logger: logger}
}

// Run always fails with ErrUnavailable.
func (w *Window) Run(ctx context.Context) error {
	return ErrUnavailable
}
