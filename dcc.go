// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "fmt"

// readGP injects an MCR copying r<n> into DTRTX, then reads DTRTX.
func (p *privateState) readGP(n uint32) (uint32, error) {
	opcode := mcrBase | dbgDTRint | ((n & 0xF) << 12)
	if err := p.exec(opcode); err != nil {
		return 0, err
	}
	return p.apbRead(regDTRTX)
}

// writeGP writes v to DTRRX, then injects an MRC copying it into r<n>.
func (p *privateState) writeGP(n, v uint32) error {
	if err := p.apbWrite(regDTRRX, v); err != nil {
		return err
	}
	opcode := mrcBase | dbgDTRint | ((n & 0xF) << 12)
	return p.exec(opcode)
}

// regsReadInternal shuttles the full architectural register file from
// the halted core into the register cache. PC is converted from the
// pipelined value sampled in debug state to the address of the
// faulting/next instruction.
func (p *privateState) regsReadInternal() error {
	for i := uint32(0); i < 15; i++ {
		v, err := p.readGP(i)
		if err != nil {
			return fmt.Errorf("cortexa: reading r%d: %w", i, err)
		}
		p.regs.r[i] = v
	}

	// PC: MCR with Rt=r15 is UNPREDICTABLE.
	if err := p.exec(opMovR0PC); err != nil {
		return fmt.Errorf("cortexa: reading pc: %w", err)
	}
	pc, err := p.readGP(0)
	if err != nil {
		return fmt.Errorf("cortexa: reading pc: %w", err)
	}
	p.regs.r[15] = pc

	if err := p.exec(opMRSR0CPS); err != nil {
		return fmt.Errorf("cortexa: reading cpsr: %w", err)
	}
	cpsr, err := p.readGP(0)
	if err != nil {
		return fmt.Errorf("cortexa: reading cpsr: %w", err)
	}
	p.regs.cpsr = cpsr

	if err := p.exec(opVMRSFPSC); err != nil {
		return fmt.Errorf("cortexa: reading fpscr: %w", err)
	}
	fpscr, err := p.readGP(0)
	if err != nil {
		return fmt.Errorf("cortexa: reading fpscr: %w", err)
	}
	p.regs.fpscr = fpscr

	for i := uint32(0); i < 16; i++ {
		if err := p.exec(opVMovRRDBase | i); err != nil {
			return fmt.Errorf("cortexa: reading d%d: %w", i, err)
		}
		lo, err := p.readGP(0)
		if err != nil {
			return fmt.Errorf("cortexa: reading d%d: %w", i, err)
		}
		hi, err := p.readGP(1)
		if err != nil {
			return fmt.Errorf("cortexa: reading d%d: %w", i, err)
		}
		p.regs.d[i] = uint64(hi)<<32 | uint64(lo)
	}

	if p.regs.thumb() {
		p.regs.r[15] -= 4
	} else {
		p.regs.r[15] -= 8
	}
	return nil
}

// regsWriteInternal flushes the register cache back to the core, in
// the order d -> FPSCR -> CPSR -> PC -> r0..r14. d-registers and
// FPSCR must go first while r0/r1 are still free to stage values
// through; PC is restored via "mov pc, r0" before r0 itself is
// reloaded, since writing CPSR clobbers CPSR (including the Thumb bit
// the PC write depends on) but not r0.
func (p *privateState) regsWriteInternal() error {
	for i := uint32(0); i < 16; i++ {
		v := p.regs.d[i]
		if err := p.writeGP(0, uint32(v)); err != nil {
			return fmt.Errorf("cortexa: writing d%d: %w", i, err)
		}
		if err := p.writeGP(1, uint32(v>>32)); err != nil {
			return fmt.Errorf("cortexa: writing d%d: %w", i, err)
		}
		if err := p.exec(opVMovDRRBase | i); err != nil {
			return fmt.Errorf("cortexa: writing d%d: %w", i, err)
		}
	}

	if err := p.writeGP(0, p.regs.fpscr); err != nil {
		return fmt.Errorf("cortexa: writing fpscr: %w", err)
	}
	if err := p.exec(opVMSRFPSC); err != nil {
		return fmt.Errorf("cortexa: writing fpscr: %w", err)
	}

	if err := p.writeGP(0, p.regs.cpsr); err != nil {
		return fmt.Errorf("cortexa: writing cpsr: %w", err)
	}
	if err := p.exec(opMSRCPSR); err != nil {
		return fmt.Errorf("cortexa: writing cpsr: %w", err)
	}

	pipelinedPC := p.regs.r[15]
	if p.regs.thumb() {
		pipelinedPC += 4
	} else {
		pipelinedPC += 8
	}
	if err := p.writeGP(0, pipelinedPC); err != nil {
		return fmt.Errorf("cortexa: writing pc: %w", err)
	}
	if err := p.exec(opMovPCR0); err != nil {
		return fmt.Errorf("cortexa: writing pc: %w", err)
	}

	for i := uint32(0); i < 15; i++ {
		if err := p.writeGP(i, p.regs.r[i]); err != nil {
			return fmt.Errorf("cortexa: writing r%d: %w", i, err)
		}
	}
	return nil
}
