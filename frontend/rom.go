// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/chip8/asm"
	"github.com/beevik/chip8/cpu"
	"github.com/retroenv/retrogolib/log"
)

// LoadROM reads a program image from path and loads it into the CPU. Files
// with an .asm extension are assembled first; anything else is treated as
// a raw ROM image.
func LoadROM(c *cpu.CPU, path string, logger *log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	a := &asm.Assembly{}
	if strings.EqualFold(filepath.Ext(path), ".asm") {
		a, _, err = asm.Assemble(f, path, cpu.ProgramStart, io.Discard, 0)
		if err != nil {
			for _, e := range a.Errors {
				logger.Error(e)
			}
			return fmt.Errorf("assembling '%s': %w", path, err)
		}
	} else if _, err := a.ReadFrom(f); err != nil {
		return fmt.Errorf("reading '%s': %w", path, err)
	}

	if err := c.LoadROM(a.Code); err != nil {
		return fmt.Errorf("loading '%s': %w", path, err)
	}

	logger.Info("Loaded ROM",
		log.String("file", filepath.Base(path)),
		log.Int("size", len(a.Code)),
		log.Hex("start", a.Origin))
	return nil
}
