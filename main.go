// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/chip8/cpu"
	"github.com/beevik/chip8/frontend"
	"github.com/beevik/chip8/frontend/window"
	"github.com/beevik/chip8/host"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var (
	assemble string
	mode     string
	hz       int
	scale    int
	debug    bool
	quiet    bool
	seed     uint64
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file")
	flag.StringVar(&mode, "mode", "window", "frontend: window, term or debug")
	flag.IntVar(&hz, "hz", frontend.DefaultHz, "CPU cycles per second (term mode: 0 = unpaced)")
	flag.IntVar(&scale, "scale", 10, "window pixels per CHIP-8 pixel")
	flag.BoolVar(&debug, "debug", false, "log every executed instruction")
	flag.BoolVar(&quiet, "quiet", false, "log errors only")
	flag.Uint64Var(&seed, "seed", 0, "seed for the RND instruction (0 = random)")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: chip8 [options] <rom> [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	logger := createLogger(debug, quiet)

	// Do command-line assemble if requested.
	if assemble != "" {
		h := host.New()
		if err := h.AssembleFile(assemble); err != nil {
			logger.Fatal("Failed to assemble file", log.String("file", assemble), log.Err(err))
		}
		os.Exit(0)
	}

	args := flag.Args()
	if mode == "debug" {
		runDebugger(args)
		return
	}

	if len(args) != 1 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}
	if err := frontend.CheckOptions(mode, hz, scale); err != nil {
		logger.Fatal("Invalid options", log.Err(err))
	}

	c := cpu.NewCPU(nil)
	if seed != 0 {
		c.Rand = cpu.NewRand(seed)
	}
	if err := frontend.LoadROM(c, args[0], logger); err != nil {
		logger.Fatal("Failed to load ROM", log.Err(err))
	}

	ctx := app.Context()
	d := cpu.NewDriver(c, cpu.SystemClock)

	var err error
	if mode == "window" {
		err = window.New(d, hz, scale, logger).Run(ctx)
	} else {
		err = runTerminal(ctx, d, logger)
	}

	switch {
	case err == nil, errors.Is(err, frontend.ErrQuit), errors.Is(err, context.Canceled):
	default:
		logger.Error("Emulation stopped", log.Err(err))
		os.Exit(1)
	}
}

func createLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func runTerminal(ctx context.Context, d *cpu.Driver, logger *log.Logger) error {
	t := frontend.NewTerminal(os.Stdin, os.Stdout)
	if err := t.Start(); err != nil {
		return err
	}
	defer t.Stop()

	d.Input, d.Output = t, t
	r := &frontend.Runner{
		Driver: d,
		Hz:     hz,
		Logger: logger,
		Trace:  debug,
		Quit:   t.Quit,
	}
	return r.Run(ctx)
}

func runDebugger(args []string) {
	h := host.New()
	if seed != 0 {
		h.Seed(seed)
	}

	// The first argument may be a ROM; the rest are command scripts.
	if len(args) > 0 {
		if err := h.Load(args[0]); err != nil {
			exitOnError(err)
		}
		args = args[1:]
	}

	// Run commands contained in command-line files.
	for _, filename := range args {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands interactively.
	h.RunCommands(os.Stdin, os.Stdout, true)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
