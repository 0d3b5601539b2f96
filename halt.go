// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import (
	"errors"
	"fmt"
	"log"
	"time"

	"armprobe.dev/x/cortexa/ap"
	"armprobe.dev/x/cortexa/target"
)

// resumePollTimeout bounds the RESTARTED poll in HaltResume: a bounded
// wait keeps a dead link from hanging the caller forever while still
// giving the core ample time to restart.
const resumePollTimeout = 1 * time.Second

// HaltRequest implements target.Target. A timeout is tolerated (the
// core may be in WFI and not currently clocking the debug logic);
// only a transport error is surfaced.
func (s *Session) HaltRequest() error {
	err := s.priv.apbWrite(regDRCR, drcrHRQ)
	if err == nil {
		return nil
	}
	if errors.Is(err, ap.ErrTimeout) {
		log.Printf("cortexa: %s: halt request timed out, core may be in WFI", s.name)
		return nil
	}
	return err
}

// HaltWait implements target.Target.
func (s *Session) HaltWait() (int, error) {
	d, err := s.priv.dscr()
	if err != nil {
		if errors.Is(err, ap.ErrTimeout) {
			return target.SigNone, nil
		}
		// The transport is permanently gone: tear down and report SIGLOST.
		if s.reg != nil {
			s.reg.Lost(s.name)
		}
		return target.SigLost, err
	}

	if d&dscrHalted == 0 {
		return target.SigNone, nil
	}

	d |= dscrITREn
	if err := s.priv.setDSCR(d); err != nil {
		return 0, err
	}

	moe := (d & dscrMOEMask) >> dscrMOEShift
	sig := target.SigTrap
	if moe == moeHaltRequest {
		sig = target.SigInt
	}

	if err := s.priv.regsReadInternal(); err != nil {
		return 0, fmt.Errorf("cortexa: halt_wait: %w", err)
	}
	return sig, nil
}

// HaltResume implements target.Target.
func (s *Session) HaltResume(step bool) error {
	p := s.priv
	if step {
		pc := p.regs.r[15]
		length := 4
		if p.regs.thumb() {
			length = 2
		}
		if err := p.apbWrite(bvrIdx(0), pc&^3); err != nil {
			return fmt.Errorf("cortexa: halt_resume: arming step: %w", err)
		}
		bcr := bcrInstrMismatch | bpBAS(pc, length) | bcrEnable
		if err := p.apbWrite(bcrIdx(0), bcr); err != nil {
			return fmt.Errorf("cortexa: halt_resume: arming step: %w", err)
		}
	} else {
		if err := p.apbWrite(bcrIdx(0), p.bpc0); err != nil {
			return fmt.Errorf("cortexa: halt_resume: restoring bp0: %w", err)
		}
	}

	if err := p.regsWriteInternal(); err != nil {
		return fmt.Errorf("cortexa: halt_resume: %w", err)
	}

	if err := p.exec(mcrBase | icialluReg); err != nil {
		return fmt.Errorf("cortexa: halt_resume: invalidating icache: %w", err)
	}

	d, err := p.dscr()
	if err != nil {
		return fmt.Errorf("cortexa: halt_resume: %w", err)
	}
	if step {
		d |= dscrIntDis
	} else {
		d &^= dscrIntDis
	}
	d &^= dscrITREn
	if err := p.setDSCR(d); err != nil {
		return fmt.Errorf("cortexa: halt_resume: %w", err)
	}

	deadline := p.pf.NewDeadline(resumePollTimeout)
	for {
		if err := p.apbWrite(regDRCR, drcrCSE|drcrRRQ); err != nil {
			return fmt.Errorf("cortexa: halt_resume: %w", err)
		}
		d, err := p.dscr()
		if err != nil {
			return fmt.Errorf("cortexa: halt_resume: %w", err)
		}
		if d&dscrRestarted != 0 {
			return nil
		}
		if deadline.Expired() {
			return fmt.Errorf("cortexa: halt_resume: core did not report RESTARTED within %s", resumePollTimeout)
		}
	}
}
