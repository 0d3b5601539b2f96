// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import (
	"encoding/binary"
	"fmt"
)

// MemRead implements target.Target. It dispatches to the fast AHB path
// when a companion system-bus AP was found at probe time, and to the
// slow injected load/store path otherwise.
func (s *Session) MemRead(dest []byte, src uint32) error {
	if len(dest) == 0 {
		return nil
	}
	if s.priv.ahb != nil {
		return s.priv.memReadFast(dest, src)
	}
	return s.priv.slowMemRead(dest, src)
}

// MemWrite implements target.Target.
func (s *Session) MemWrite(dest uint32, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if s.priv.ahb != nil {
		return s.priv.memWriteFast(dest, src)
	}
	return s.priv.slowMemWrite(dest, src)
}

// cleanLines walks the cache lines covering [addr, addr+n) and injects
// a CP15 cache-maintenance-by-MVA operation (clean, or clean+invalidate
// for writes) on each.
func (p *privateState) cleanLines(addr uint32, n int, op uint32) error {
	start := addr &^ uint32(cacheLineSize-1)
	end := addr + uint32(n)
	for cl := start; cl < end; cl += cacheLineSize {
		if err := p.writeGP(0, cl); err != nil {
			return fmt.Errorf("cortexa: cache maintenance: %w", err)
		}
		if err := p.exec(mcrBase | op); err != nil {
			return fmt.Errorf("cortexa: cache maintenance: %w", err)
		}
	}
	return nil
}

// memReadFast is the AHB-backed fast path of MemRead.
func (p *privateState) memReadFast(dest []byte, srcVA uint32) error {
	if err := p.cleanLines(srcVA, len(dest), dccmvacReg); err != nil {
		return err
	}
	pa, err := p.vaToPA(srcVA)
	if err != nil {
		return err
	}
	if err := p.ahb.MemRead(dest, pa); err != nil {
		return fmt.Errorf("cortexa: mem_read: %w", err)
	}
	return nil
}

// memWriteFast is the AHB-backed fast path of MemWrite. It uses clean
// and invalidate, rather than plain clean, so subsequent instruction
// fetches observe the write.
func (p *privateState) memWriteFast(destVA uint32, src []byte) error {
	if err := p.cleanLines(destVA, len(src), dccimvacReg); err != nil {
		return err
	}
	pa, err := p.vaToPA(destVA)
	if err != nil {
		return err
	}
	if err := p.ahb.MemWrite(pa, src); err != nil {
		return fmt.Errorf("cortexa: mem_write: %w", err)
	}
	return nil
}

// slowMemRead streams memory words through the DCC in fast mode via an
// injected "ldc 14, cr5, [r0], #4".
func (p *privateState) slowMemRead(dest []byte, src uint32) error {
	align := src &^ 3
	end := src + uint32(len(dest))
	wordCount := int((end-align)+3) / 4

	if err := p.writeGP(0, align); err != nil {
		return fmt.Errorf("cortexa: slow_mem_read: %w", err)
	}
	if err := p.setExtDCCMode(dccModeFast); err != nil {
		return fmt.Errorf("cortexa: slow_mem_read: %w", err)
	}
	if err := p.exec(opLDCDCC); err != nil {
		return fmt.Errorf("cortexa: slow_mem_read: %w", err)
	}

	// The first DTRTX read after the stream starts is architecturally
	// a don't-care but must still be issued.
	if _, err := p.apbRead(regDTRTX); err != nil {
		return fmt.Errorf("cortexa: slow_mem_read: priming read: %w", err)
	}

	buf := make([]byte, wordCount*4)
	for i := 0; i < wordCount; i++ {
		v, err := p.apbRead(regDTRTX)
		if err != nil {
			return fmt.Errorf("cortexa: slow_mem_read: %w", err)
		}
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}

	if err := p.setExtDCCMode(dccModeStall); err != nil {
		return fmt.Errorf("cortexa: slow_mem_read: %w", err)
	}
	aborted, err := p.checkAbort()
	if err != nil {
		return err
	}
	if !aborted {
		// Quiesce the pipeline: one more word is in flight.
		if _, err := p.apbRead(regDTRTX); err != nil {
			return fmt.Errorf("cortexa: slow_mem_read: draining: %w", err)
		}
	}

	off := src & 3
	copy(dest, buf[off:int(off)+len(dest)])
	return nil
}

// slowMemWrite picks a byte loop for misaligned writes and a word loop
// otherwise.
func (p *privateState) slowMemWrite(dest uint32, src []byte) error {
	if (dest|uint32(len(src)))&3 != 0 {
		return p.slowMemWriteBytes(dest, src)
	}
	return p.slowMemWriteWords(dest, src)
}

func (p *privateState) slowMemWriteBytes(dest uint32, src []byte) error {
	const spIdx = 13
	if err := p.writeGP(spIdx, dest); err != nil {
		return fmt.Errorf("cortexa: slow_mem_write: %w", err)
	}
	for _, b := range src {
		if err := p.writeGP(0, uint32(b)); err != nil {
			return fmt.Errorf("cortexa: slow_mem_write: %w", err)
		}
		if err := p.exec(opSTRBSPPostInc); err != nil {
			return fmt.Errorf("cortexa: slow_mem_write: %w", err)
		}
		aborted, err := p.checkAbort()
		if err != nil {
			return err
		}
		if aborted {
			// Stop precisely at the faulting byte.
			return nil
		}
	}
	return nil
}

func (p *privateState) slowMemWriteWords(dest uint32, src []byte) error {
	if err := p.writeGP(0, dest); err != nil {
		return fmt.Errorf("cortexa: slow_mem_write: %w", err)
	}
	if err := p.setExtDCCMode(dccModeFast); err != nil {
		return fmt.Errorf("cortexa: slow_mem_write: %w", err)
	}
	if err := p.exec(opSTCDCC); err != nil {
		return fmt.Errorf("cortexa: slow_mem_write: %w", err)
	}
	for i := 0; i+4 <= len(src); i += 4 {
		v := binary.LittleEndian.Uint32(src[i:])
		if err := p.apbWrite(regDTRRX, v); err != nil {
			return fmt.Errorf("cortexa: slow_mem_write: %w", err)
		}
	}
	if err := p.setExtDCCMode(dccModeStall); err != nil {
		return fmt.Errorf("cortexa: slow_mem_write: %w", err)
	}
	_, err := p.checkAbort()
	return err
}

// setExtDCCMode reads DSCR, replaces the EXTDCCMODE field with mode,
// and writes it back.
func (p *privateState) setExtDCCMode(mode uint32) error {
	d, err := p.dscr()
	if err != nil {
		return err
	}
	d = (d &^ dscrExtDCCMask) | (mode << dscrExtDCCShift)
	return p.setDSCR(d)
}
