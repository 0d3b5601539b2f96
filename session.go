// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import (
	"fmt"
	"log"

	"armprobe.dev/x/cortexa/ap"
	"armprobe.dev/x/cortexa/platform"
	"armprobe.dev/x/cortexa/target"
)

// driverName is the human-readable identifier exposed on every
// session.
const driverName = "ARM Cortex-A"

// Config configures a single Probe call.
type Config struct {
	// DebugBase is the physical word address of the debug register
	// block on the APB.
	DebugBase uint32

	// APB is the debug access port; always required.
	APB ap.AccessPort

	// AHBCandidate, if non-nil, is probed for the AHB signature, and
	// wired in as the fast memory-access path if found. Callers that
	// always want a particular AP index pass it here explicitly.
	AHBCandidate ap.AccessPort

	// Platform drives the system reset line and timing.
	Platform platform.Platform

	// Resetter runs the platform-specific reset sequence. If nil,
	// Reset only pulses SRST and re-attaches.
	Resetter platform.Resetter

	// Name identifies this session in a Registry; defaults to a
	// debugBase-derived name if empty.
	Name string

	// Registry, if non-nil, is told to tear this session down when
	// HaltWait observes a permanent transport loss (SIGLOST).
	Registry *target.Registry
}

// Session is one probed core. It exclusively owns privateState and
// shares the APB/AHB access ports with the ADIv5 layer.
//
// Session holds its state behind an unexported pointer: callers only
// ever see the exported methods, never the fields.
type Session struct {
	name string
	priv *privateState
	reg  *target.Registry
}

// privateState is the core's private register and transport state.
type privateState struct {
	debugBase uint32
	apb       ap.AccessPort
	ahb       ap.AccessPort // nil if no companion system-bus AP was found

	regs regCache

	hwBreakpointMax int
	// hwBreakpoint[i]&1 == 1 iff comparator i is allocated; the
	// remaining bits are the armed address (always even, since half-
	// word alignment leaves bit 0 free).
	hwBreakpoint [16]uint32
	bpc0         uint32 // saved BCR(0), because BP0 is repurposed for step

	mmuFault bool

	pf       platform.Platform
	resetter platform.Resetter
}

var _ target.Target = (*Session)(nil)

// String implements target.Target / fmt.Stringer, returning the
// driver identifier.
func (s *Session) String() string { return driverName }

// Probe checks the configured companion system bus AP, reads the
// breakpoint count from DIDR at cfg.DebugBase, and constructs a
// Session. It does not attach; call Attach next.
func Probe(cfg Config) (*Session, error) {
	if cfg.APB == nil {
		return nil, fmt.Errorf("cortexa: probe: APB access port required")
	}
	if cfg.Platform == nil {
		return nil, fmt.Errorf("cortexa: probe: platform required")
	}

	priv := &privateState{
		debugBase: cfg.DebugBase,
		apb:       cfg.APB,
		pf:        cfg.Platform,
		resetter:  cfg.Resetter,
	}

	if cfg.AHBCandidate != nil {
		if ap.IsAHB(cfg.AHBCandidate.IDR()) {
			priv.ahb = cfg.AHBCandidate
		}
		// else: not an AHB-AP, so simply not retained; the caller still
		// owns its lifetime.
	}

	didr, err := priv.apbRead(regDIDR)
	if err != nil {
		return nil, fmt.Errorf("cortexa: probe: reading DIDR: %w", err)
	}
	priv.hwBreakpointMax = int((didr>>24)&0xF) + 1

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("cortexa@%#x", cfg.DebugBase)
	}

	if priv.ahb != nil {
		log.Printf("cortexa: %s: fast memory path via AHB (idr=%#x), %d hw breakpoints", name, priv.ahb.IDR(), priv.hwBreakpointMax)
	} else {
		log.Printf("cortexa: %s: no AHB found, using slow injected-load/store memory path, %d hw breakpoints", name, priv.hwBreakpointMax)
	}

	return &Session{name: name, priv: priv, reg: cfg.Registry}, nil
}
