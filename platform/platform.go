// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package platform defines the probe-host collaborator contract: the
// system reset line and the wall-clock timing primitives the debug
// core polls against. It is deliberately tiny so a new board can be
// supported by implementing four methods.
package platform

import (
	"time"

	"armprobe.dev/x/cortexa/ap"
)

// Platform abstracts the bits of the probe hardware that are not part
// of the ADIv5 transport: the external system reset (SRST) line and a
// monotonic clock for delays and deadlines.
type Platform interface {
	// SetSRST drives (true) or releases (false) the external system
	// reset line.
	SetSRST(assert bool)

	// GetSRST reads back the current level of the system reset line.
	GetSRST() bool

	// Delay blocks the calling goroutine for d. Used for fixed
	// settling delays (e.g. the 100ms pause after a Zynq reset pulse).
	Delay(d time.Duration)

	// NewDeadline returns a Deadline that expires d from now.
	NewDeadline(d time.Duration) Deadline
}

// Deadline is a single-shot wall-clock deadline, matching the
// timeout_set/timeout_is_expired collaborator pair: a poll loop creates
// one, then repeatedly checks Expired until it either succeeds or gives
// up.
type Deadline interface {
	// Expired reports whether the deadline has passed.
	Expired() bool
}

// Resetter performs a platform-specific hard reset sequence through an
// access port before the core re-attaches, the way the Zynq-7000 SLCR
// unlock/soft-reset dance must run before the debug port is usable
// again. A SoC with no special sequence can use NopResetter.
type Resetter interface {
	// Reset pulses whatever platform-specific register writes are
	// needed, then reacquires the debug port by repeatedly probing it
	// through p before deadline expires.
	Reset(p ap.AccessPort, pf Platform) error
}

// NopResetter only pulses the external reset line and waits for the
// debug port to come back, with no platform register writes. It is the
// right Resetter for SoCs with no documented reset-controller dance.
type NopResetter struct {
	// SettleDelay is how long to wait after releasing SRST before
	// probing the debug port again.
	SettleDelay time.Duration
	// ProbeTimeout bounds how long Reset waits for the debug port to
	// respond again after the reset pulse.
	ProbeTimeout time.Duration
	// Probe is called in a loop until it succeeds or ProbeTimeout
	// expires; typically a read of the debug ID register.
	Probe func(p ap.AccessPort) error
}

// Reset implements Resetter.
func (r NopResetter) Reset(p ap.AccessPort, pf Platform) error {
	pf.SetSRST(true)
	pf.Delay(10 * time.Millisecond)
	pf.SetSRST(false)
	pf.Delay(r.SettleDelay)
	if r.Probe == nil {
		return nil
	}
	d := pf.NewDeadline(r.ProbeTimeout)
	var err error
	for {
		if err = r.Probe(p); err == nil {
			return nil
		}
		if d.Expired() {
			return err
		}
	}
}

// real holds an in-memory SRST level. It has no methods and does not
// implement Platform; New returns a *wallClock.
type real struct {
	srst bool
}

// New returns a Platform backed by the wall clock. srstLine, if
// non-nil, is called to physically drive the reset pin; when nil the
// reset state is only tracked in memory, which is sufficient for
// targets whose reset is wired elsewhere (e.g. through the JTAG TRST
// pin instead of SRST).
func New(srstLine func(assert bool)) Platform {
	return &wallClock{drive: srstLine}
}

// wallClock is the Platform returned by New: SRST is tracked in memory
// (and driven through drive when set) and timing uses the wall clock.
type wallClock struct {
	drive func(assert bool)
	state bool
}

func (w *wallClock) SetSRST(assert bool) {
	w.state = assert
	if w.drive != nil {
		w.drive(assert)
	}
}

func (w *wallClock) GetSRST() bool { return w.state }

func (w *wallClock) Delay(d time.Duration) { time.Sleep(d) }

func (w *wallClock) NewDeadline(d time.Duration) Deadline {
	return &wallDeadline{at: time.Now().Add(d)}
}

type wallDeadline struct{ at time.Time }

func (d *wallDeadline) Expired() bool { return time.Now().After(d.at) }
