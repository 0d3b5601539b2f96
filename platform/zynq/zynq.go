// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package zynq implements the Xilinx Zynq-7000 SLCR reset dance used as
// the probe lifecycle's platform-specific reset: unlock the System
// Level Control Registers, assert the PS software reset, pulse the
// external system reset line, then reacquire the debug port within a
// 1s timeout while it is transiently removed from the scan chain. See
// the Zynq-7000 Technical Reference Manual (UG585), chapter 27 (SLCR).
package zynq

import (
	"fmt"
	"time"

	"armprobe.dev/x/cortexa/ap"
	"armprobe.dev/x/cortexa/platform"
)

// Physical addresses on the Zynq-7000 system bus, word-addressed
// through whichever AccessPort exposes the system bus (on this core,
// the same AHB-AP used for the fast memory path when present).
const (
	slcrUnlockAddr = 0xF8000008
	slcrUnlockKey  = 0xDF0D

	pssRstCtrlAddr = 0xF8000200
)

// reacquireTimeout bounds how long Reset waits for the debug port to
// respond again after the reset pulse.
const reacquireTimeout = 1 * time.Second

// settleDelay is the pause after the reset pulse before re-attaching.
const settleDelay = 100 * time.Millisecond

// Resetter implements platform.Resetter for the Zynq-7000. ReadDIDR
// reads the debug ID register through whatever transport the core
// uses; it is the probe used to detect that the debug port is back on
// the scan chain.
type Resetter struct {
	ReadDIDR func() error
}

// Reset implements platform.Resetter.
//
// If a is nil (no system-bus access port is wired, i.e. the session
// uses the slow injection memory path) the SLCR register writes are
// skipped and only the external reset line and debug-port reacquire
// are performed: without a system-bus window there is no way to reach
// the SLCR registers at all, so this is the best the reset sequence
// can do.
func (r Resetter) Reset(a ap.AccessPort, pf platform.Platform) error {
	if a != nil {
		if err := a.MemWrite(slcrUnlockAddr, le32(slcrUnlockKey)); err != nil {
			return fmt.Errorf("zynq: slcr unlock: %w", err)
		}
		if err := a.MemWrite(pssRstCtrlAddr, le32(1)); err != nil {
			return fmt.Errorf("zynq: pss soft reset: %w", err)
		}
	}

	pf.SetSRST(true)
	pf.Delay(10 * time.Millisecond)
	pf.SetSRST(false)

	if r.ReadDIDR != nil {
		d := pf.NewDeadline(reacquireTimeout)
		var err error
		for {
			// The debug port is transiently removed from the scan chain
			// during reset; each attempt runs as its own protected probe.
			if err = r.ReadDIDR(); err == nil {
				break
			}
			if d.Expired() {
				return fmt.Errorf("zynq: debug port did not reappear within %s: %w", reacquireTimeout, err)
			}
		}
	}

	pf.Delay(settleDelay)
	return nil
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
