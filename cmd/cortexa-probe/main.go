// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command cortexa-probe drives a cortexa.Session through a fixed
// attach/halt/step/memory/detach sequence and prints what it observes,
// the way periph's cmd/periph-smoketest tools exercise a device driver
// without requiring a human at the other end of a debugger.
//
// It always runs against an in-process cortexatest.Fake, so the
// sequence can be exercised without a probe attached; it has no option
// to connect to real hardware.
package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/urfave/cli.v2"

	"armprobe.dev/x/cortexa"
	"armprobe.dev/x/cortexa/cortexatest"
	"armprobe.dev/x/cortexa/jtag"
	"armprobe.dev/x/cortexa/platform"
)

// transportPins reports the physical signal names in play for the
// selected wire encoding, so a log line can say what the operator
// should expect to see wiggle on a scope.
func transportPins(swd bool) []jtag.Func {
	if swd {
		return []jtag.Func{jtag.SWCLK, jtag.SWDIO, jtag.SWO}
	}
	return []jtag.Func{jtag.TCK, jtag.TDI, jtag.TDO, jtag.TMS, jtag.TRST}
}

func main() {
	app := &cli.App{
		Name:    "cortexa-probe",
		Usage:   "exercise the Cortex-A debug core driver against a simulated target",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "entry",
				Usage: "architectural PC the simulated core reports on halt",
				Value: "0x8000",
			},
			&cli.BoolFlag{
				Name:  "thumb",
				Usage: "start the simulated core in Thumb state",
			},
			&cli.BoolFlag{
				Name:  "fast",
				Usage: "wire a companion AHB-AP, exercising the fast memory path",
			},
			&cli.BoolFlag{
				Name:  "swd",
				Usage: "report the Serial Wire Debug pin set instead of JTAG",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cortexa-probe:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	entry, err := strconv.ParseUint(c.String("entry"), 0, 32)
	if err != nil {
		return cli.Exit(fmt.Sprintf("bad --entry: %v", err), 1)
	}

	var pins []string
	for _, p := range transportPins(c.Bool("swd")) {
		pins = append(pins, p.String())
	}
	fmt.Println("transport pins:", pins)

	fake := cortexatest.NewFake(64 * 1024)
	fake.DebugBase = 0x80090000
	fake.SetHalted(uint32(entry), c.Bool("thumb"), 0)

	cfg := cortexa.Config{
		DebugBase: fake.DebugBase,
		APB:       fake,
		Platform:  platform.New(nil),
		Name:      "cortexa-probe-sim",
	}
	if c.Bool("fast") {
		fake.IDRValue = 0x04770001
		cfg.AHBCandidate = fake
	}

	s, err := cortexa.Probe(cfg)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	if err := s.Attach(); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	fmt.Printf("%s: attached, %d hw breakpoints available\n", s, ((fake.DIDR>>24)&0xF)+1)

	regs := make([]byte, s.RegsSize())
	if err := s.RegsRead(regs); err != nil {
		return fmt.Errorf("regs_read: %w", err)
	}
	fmt.Printf("pc=%#08x cpsr=%#08x\n", fake.Regs[15], fake.CPSR)

	const scratch = 0x1000
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := s.MemWrite(scratch, payload); err != nil {
		return fmt.Errorf("mem_write: %w", err)
	}
	readBack := make([]byte, len(payload))
	if err := s.MemRead(readBack, scratch); err != nil {
		return fmt.Errorf("mem_read: %w", err)
	}
	fmt.Printf("mem[%#x] = % x\n", scratch, readBack)

	if slot := s.SetHWBP(uint32(entry)+0x100, 4); slot < 0 {
		fmt.Println("set_hw_bp: no comparator free")
	} else {
		fmt.Printf("breakpoint armed in comparator %d\n", slot)
	}

	if err := s.HaltResume(true); err != nil {
		return fmt.Errorf("halt_resume(step): %w", err)
	}
	sig, err := s.HaltWait()
	if err != nil {
		return fmt.Errorf("halt_wait: %w", err)
	}
	fmt.Printf("single-step halted with signal %d, pc now %#08x\n", sig, fake.Regs[15])

	if err := s.Detach(); err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	fmt.Println("detached")
	return nil
}
