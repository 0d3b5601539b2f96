// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import (
	"fmt"
	"time"
)

// attachRetries and attachRetryDelay bound the halt-wait poll inside
// Attach.
const (
	attachRetries    = 10
	attachRetryDelay = 200 * time.Millisecond
)

// Attach implements target.Target. It leaves the core halted and arms
// debug mode.
func (s *Session) Attach() error {
	p := s.priv
	p.mmuFault = false

	dscr, err := p.dscr()
	if err != nil {
		return fmt.Errorf("cortexa: attach: %w", err)
	}
	dscr |= dscrHDbgEn | dscrITREn
	dscr = (dscr &^ dscrExtDCCMask) | (dccModeStall << dscrExtDCCShift)
	if err := p.setDSCR(dscr); err != nil {
		return fmt.Errorf("cortexa: attach: %w", err)
	}

	if err := s.HaltRequest(); err != nil {
		return fmt.Errorf("cortexa: attach: %w", err)
	}

	halted := false
	for i := 0; i < attachRetries; i++ {
		if p.pf.GetSRST() {
			// The reset line is still asserted, so the core cannot
			// have halted yet: wait without reading DSCR. This still
			// counts as one of the attachRetries attempts.
			p.pf.Delay(attachRetryDelay)
			continue
		}
		d, err := p.dscr()
		if err != nil {
			return fmt.Errorf("cortexa: attach: %w", err)
		}
		if d&dscrHalted != 0 {
			halted = true
			break
		}
		p.pf.Delay(attachRetryDelay)
	}

	if err := p.clearAllHWBP(); err != nil {
		return fmt.Errorf("cortexa: attach: %w", err)
	}
	p.pf.SetSRST(false)

	if !halted {
		return fmt.Errorf("cortexa: attach: core did not halt after %d retries", attachRetries)
	}
	return p.regsReadInternal()
}

// Detach implements target.Target. It resumes the core and disables
// debug mode.
func (s *Session) Detach() error {
	p := s.priv
	if err := p.clearAllHWBP(); err != nil {
		return fmt.Errorf("cortexa: detach: %w", err)
	}
	if err := p.regsWriteInternal(); err != nil {
		return fmt.Errorf("cortexa: detach: %w", err)
	}
	if err := p.exec(mcrBase | icialluReg); err != nil {
		return fmt.Errorf("cortexa: detach: %w", err)
	}
	d, err := p.dscr()
	if err != nil {
		return fmt.Errorf("cortexa: detach: %w", err)
	}
	d &^= dscrHDbgEn | dscrITREn
	if err := p.setDSCR(d); err != nil {
		return fmt.Errorf("cortexa: detach: %w", err)
	}
	return p.apbWrite(regDRCR, drcrCSE|drcrRRQ)
}

// Reset implements target.Target. It runs the platform-specific reset
// sequence, if one is configured, then re-attaches.
func (s *Session) Reset() error {
	p := s.priv
	if p.resetter != nil {
		if err := p.resetter.Reset(p.ahb, p.pf); err != nil {
			return fmt.Errorf("cortexa: reset: %w", err)
		}
	} else {
		p.pf.SetSRST(true)
		p.pf.Delay(10 * time.Millisecond)
		p.pf.SetSRST(false)
	}
	return s.Attach()
}
