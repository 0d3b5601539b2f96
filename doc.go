// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cortexa is the target-specific backend for a JTAG/SWD debug
// probe talking to an ARMv7-A application processor (Cortex-A class).
//
// It speaks to the processor's external debug interface through an ARM
// Debug Interface v5 (ADIv5) access port and exposes the abstract
// "halted target" view defined by package target: register file,
// memory, hardware breakpoints, halt/resume/step, reset.
//
// The package is organized leaf-first around the debug register block,
// following the register map and debug event model in the ARMv7-A
// Architecture Reference Manual (ARM DDI 0406) and the CoreSight
// Debug Architecture specification (ARM IHI 0031):
//
//	apb.go        word read/write over the debug-APB access port
//	regmap.go     register and opcode constants
//	inject.go     the instruction-injection primitive
//	dcc.go        the DCC channel and GP-register shuttle
//	regcache.go   the in-memory register snapshot and its GDB byte layout
//	mem.go        fast (AHB) and slow (DCC-injected) memory access
//	mmu.go        virtual-to-physical address translation
//	halt.go       halt/wait/resume/step
//	breakpoint.go hardware breakpoint comparator allocation
//	session.go    probe and session state
//	lifecycle.go  attach/detach/reset lifecycle
//	errors.go     the sticky fault-accounting and error taxonomy
//
// Every debug operation is synchronous and blocking; the package has no
// goroutines of its own. Callers must not interleave operations on the
// same Session from multiple goroutines, and must serialize access to
// an AccessPort shared across sessions externally.
package cortexa
