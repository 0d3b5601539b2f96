// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "log"

// bpBAS computes the Byte Address Select field for a breakpoint at
// addr spanning length bytes: the whole word for a 4-byte ARM
// breakpoint, or the half-word addr falls in for a 2-byte Thumb
// breakpoint.
func bpBAS(addr uint32, length int) uint32 {
	if length == 4 {
		return 0xF << 5
	}
	if addr&2 != 0 {
		return 0xC << 5
	}
	return 0x3 << 5
}

// SetHWBP implements target.Target. It allocates the smallest free
// comparator, or returns -1 if all hwBreakpointMax comparators are in
// use.
func (s *Session) SetHWBP(addr uint32, length int) int {
	p := s.priv
	for i := 0; i < p.hwBreakpointMax; i++ {
		if p.hwBreakpoint[i]&1 != 0 {
			continue
		}
		p.hwBreakpoint[i] = (addr &^ 1) | 1
		bcr := bpBAS(addr, length) | bcrEnable
		if err := p.apbWrite(bvrIdx(i), addr&^3); err != nil {
			log.Printf("cortexa: %s: set_hw_bp: %v", s.name, err)
			return -1
		}
		if err := p.apbWrite(bcrIdx(i), bcr); err != nil {
			log.Printf("cortexa: %s: set_hw_bp: %v", s.name, err)
			return -1
		}
		if i == 0 {
			p.bpc0 = bcr
		}
		return 0
	}
	log.Printf("cortexa: %s: set_hw_bp: %v", s.name, ErrBreakpointsExhausted)
	return -1
}

// ClearHWBP implements target.Target.
func (s *Session) ClearHWBP(addr uint32, _ int) int {
	p := s.priv
	for i := 0; i < p.hwBreakpointMax; i++ {
		if p.hwBreakpoint[i]&1 == 0 || (p.hwBreakpoint[i]&^1) != (addr&^1) {
			continue
		}
		p.hwBreakpoint[i] = 0
		if err := p.apbWrite(bcrIdx(i), 0); err != nil {
			log.Printf("cortexa: %s: clear_hw_bp: %v", s.name, err)
			return -1
		}
		if i == 0 {
			p.bpc0 = 0
		}
		return 0
	}
	log.Printf("cortexa: %s: clear_hw_bp: %v", s.name, ErrBreakpointNotFound)
	return -1
}

// clearAllHWBP releases every comparator and its soft allocation
// record. Used by Attach (clearing stale state from a previous
// session) and Detach.
func (p *privateState) clearAllHWBP() error {
	for i := 0; i < p.hwBreakpointMax; i++ {
		if err := p.apbWrite(bcrIdx(i), 0); err != nil {
			return err
		}
		p.hwBreakpoint[i] = 0
	}
	p.bpc0 = 0
	return nil
}
