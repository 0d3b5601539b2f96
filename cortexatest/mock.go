// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cortexatest implements a fake ADIv5 access port that emulates
// enough of the ARMv7-A debug register block (DSCR, DRCR, ITR,
// DTRRX/DTRTX, BVR/BCR, DIDR) and a backing register file and memory
// array to drive the debug core driver end to end without real
// hardware.
//
// It is grounded on the same idiom as i2ctest.Record/Playback: a
// stateful fake that implements the production interface (here,
// ap.AccessPort) directly, rather than a mock framework.
package cortexatest

import (
	"encoding/binary"
	"fmt"

	"armprobe.dev/x/cortexa/ap"
)

// Debug register word indices, mirroring the ARMv7-A debug architecture
// (kept independent of package cortexa's private constants; this fake
// emulates the hardware, not the driver).
const (
	regDIDR  = 0
	regDTRRX = 32
	regITR   = 33
	regDSCR  = 34
	regDTRTX = 35
	regDRCR  = 36
	regBVR0  = 64
	regBCR0  = 80
)

const (
	dscrHalted      = 1 << 0
	dscrRestarted   = 1 << 1
	dscrMOEShift    = 2
	dscrMOEMask     = 0xF << dscrMOEShift
	dscrSDAbortL    = 1 << 6
	dscrIntDis      = 1 << 11
	dscrITREn       = 1 << 13
	dscrHDbgEn      = 1 << 14
	dscrExtDCCShift = 20
	dscrExtDCCMask  = 0x3 << dscrExtDCCShift
	dscrWritable    = dscrHDbgEn | dscrITREn | dscrExtDCCMask | dscrIntDis

	dccModeStall = 1

	drcrHRQ = 1 << 0
	drcrRRQ = 1 << 1
	drcrCSE = 1 << 2

	bcrEnable        = 1 << 0
	bcrInstrMismatch = 4 << 20

	thumbBit = 1 << 5

	moeHaltRequest  = 0
	moeBreakpoint   = 1
	mcrBase  uint32 = 0xEE000010
	mrcBase  uint32 = 0xEE100010

	opMovR0PC       = 0xE1A0000F
	opMRSR0CPS      = 0xE10F0000
	opMSRCPSR       = 0xE12FF000
	opMovPCR0       = 0xE1A0F000
	opVMRSFPSC      = 0xEEF10A10
	opVMSRFPSC      = 0xEEE10A10
	opVMovRRDBase   = 0xEC510B10
	opVMovDRRBase   = 0xEC410B10
	opLDCDCC        = 0xECB05E01
	opSTCDCC        = 0xECA05E01
	opSTRBSPPostInc = 0xE4CD0001
)

func cpreg(coproc, opc1, rt, crn, crm, opc2 uint32) uint32 {
	return (opc1 << 21) | (crn << 16) | (rt << 12) | (coproc << 8) | (opc2 << 5) | crm
}

var (
	dbgDTRint   = cpreg(14, 0, 0, 0, 5, 0)
	dccmvacReg  = cpreg(15, 0, 0, 7, 10, 1)
	dccimvacReg = cpreg(15, 0, 0, 7, 14, 1)
	icialluReg  = cpreg(15, 0, 0, 7, 5, 0)
	ats1cprReg  = cpreg(15, 0, 0, 7, 8, 0)
	parReg      = cpreg(15, 0, 0, 7, 4, 0)
)

// Fake implements ap.AccessPort against an in-memory register file and
// byte-addressable memory array.
type Fake struct {
	DebugBase uint32
	IDRValue  uint32 // set to 0x04770001 (masked) to act as the AHB-AP
	DIDR      uint32 // breakpoint-count field lives in bits 24..27

	Mem []byte // backing memory, addressed starting at 0

	Regs  [16]uint32 // raw register file; Regs[15] is the pipelined PC
	CPSR  uint32
	FPSCR uint32
	D     [16]uint64

	dscr uint32
	bvr  [16]uint32
	bcr  [16]uint32

	dtrrxLatch uint32
	dtrtxLatch uint32
	parLatch   uint32

	ldcArmed        bool
	ldcSkippedFirst bool
	ldcAddr         uint32
	stcArmed        bool
	stcAddr         uint32

	// TransportErr, if set, is returned by every WriteAP/ReadAP/MemRead/
	// MemWrite call, modelling a permanently lost link (SIGLOST).
	TransportErr error

	// TimeoutCountdown, while positive, makes DSCR reads and DRCR writes
	// return ap.ErrTimeout and decrements, modelling a core in WFI.
	TimeoutCountdown int

	// AbortOnSTRBAtByte, if >= 0, makes the byte-loop strb at that
	// 0-based byte index set DSCR.SDABORT_L instead of writing memory.
	AbortOnSTRBAtByte int
	strbIndex         int

	// ForcePARFault makes every address-translation request report a
	// translation fault (PAR.F=1).
	ForcePARFault bool

	// StickyErr, when non-nil, is what Error() reports (the AHB DP's
	// transport-error accumulator).
	StickyErr error
}

// NewFake returns a Fake with memSize bytes of backing memory, not
// halted, no breakpoints armed, ARM state, zero registers.
func NewFake(memSize int) *Fake {
	return &Fake{
		Mem:               make([]byte, memSize),
		DIDR:              0x0F000000, // 16 breakpoint comparators
		AbortOnSTRBAtByte: -1,
	}
}

var _ ap.AccessPort = (*Fake)(nil)

func (f *Fake) String() string { return fmt.Sprintf("cortexatest.Fake@%#x", f.DebugBase) }

// IDR implements ap.AccessPort.
func (f *Fake) IDR() uint32 { return f.IDRValue }

// Error implements ap.AccessPort.
func (f *Fake) Error() error {
	if f.StickyErr != nil {
		return f.StickyErr
	}
	return nil
}

// MemRead implements ap.AccessPort's system-bus window.
func (f *Fake) MemRead(dest []byte, addr uint32) error {
	if f.TransportErr != nil {
		return f.TransportErr
	}
	if int(addr)+len(dest) > len(f.Mem) {
		return fmt.Errorf("cortexatest: mem_read out of range: %#x+%d", addr, len(dest))
	}
	copy(dest, f.Mem[addr:])
	return nil
}

// MemWrite implements ap.AccessPort's system-bus window.
func (f *Fake) MemWrite(addr uint32, src []byte) error {
	if f.TransportErr != nil {
		return f.TransportErr
	}
	if int(addr)+len(src) > len(f.Mem) {
		return fmt.Errorf("cortexatest: mem_write out of range: %#x+%d", addr, len(src))
	}
	copy(f.Mem[addr:], src)
	return nil
}

func (f *Fake) idx(reg uint32) uint32 { return (reg - f.DebugBase) / 4 }

// WriteAP implements ap.AccessPort.
func (f *Fake) WriteAP(reg, value uint32) error {
	if f.TransportErr != nil {
		return f.TransportErr
	}
	if f.idx(reg) == regDRCR && f.TimeoutCountdown > 0 {
		f.TimeoutCountdown--
		return ap.ErrTimeout
	}
	switch i := f.idx(reg); {
	case i == regDTRRX:
		if f.stcArmed {
			binary.LittleEndian.PutUint32(f.Mem[f.stcAddr:], value)
			f.stcAddr += 4
		} else {
			f.dtrrxLatch = value
		}
	case i == regITR:
		f.exec(value)
	case i == regDSCR:
		f.dscr = (f.dscr &^ dscrWritable) | (value & dscrWritable)
		if (value&dscrExtDCCMask)>>dscrExtDCCShift == dccModeStall {
			// The DCC stream is only live while EXTDCCMODE selects fast
			// mode; switching back to stall tears down whichever
			// streaming load/store was armed.
			f.ldcArmed = false
			f.stcArmed = false
		}
	case i == regDRCR:
		f.execDRCR(value)
	case i >= regBVR0 && i < regBVR0+16:
		f.bvr[i-regBVR0] = value
	case i >= regBCR0 && i < regBCR0+16:
		f.bcr[i-regBCR0] = value
	default:
		return fmt.Errorf("cortexatest: write to unknown register index %d", i)
	}
	return nil
}

// ReadAP implements ap.AccessPort.
func (f *Fake) ReadAP(reg uint32) (uint32, error) {
	if f.TransportErr != nil {
		return 0, f.TransportErr
	}
	i := f.idx(reg)
	if i == regDSCR && f.TimeoutCountdown > 0 {
		f.TimeoutCountdown--
		return 0, ap.ErrTimeout
	}
	switch {
	case i == regDIDR:
		return f.DIDR, nil
	case i == regDSCR:
		return f.dscr, nil
	case i == regDTRTX:
		if f.ldcArmed {
			if !f.ldcSkippedFirst {
				f.ldcSkippedFirst = true
				return 0, nil
			}
			v := binary.LittleEndian.Uint32(f.Mem[f.ldcAddr:])
			f.ldcAddr += 4
			return v, nil
		}
		return f.dtrtxLatch, nil
	case i >= regBVR0 && i < regBVR0+16:
		return f.bvr[i-regBVR0], nil
	case i >= regBCR0 && i < regBCR0+16:
		return f.bcr[i-regBCR0], nil
	default:
		return 0, fmt.Errorf("cortexatest: read from unknown register index %d", i)
	}
}

// exec interprets one injected opcode's effect on the register file.
func (f *Fake) exec(op uint32) {
	switch {
	case op == opMovR0PC:
		f.Regs[0] = f.Regs[15]
	case op == opMRSR0CPS:
		f.Regs[0] = f.CPSR
	case op == opMSRCPSR:
		f.CPSR = f.Regs[0]
	case op == opMovPCR0:
		f.Regs[15] = f.Regs[0]
	case op == opVMRSFPSC:
		f.Regs[0] = f.FPSCR
	case op == opVMSRFPSC:
		f.FPSCR = f.Regs[0]
	case op == mcrBase|dccmvacReg, op == mcrBase|dccimvacReg, op == mcrBase|icialluReg:
		// Cache maintenance: no functional effect on the fake.
	case op == mcrBase|ats1cprReg:
		if f.ForcePARFault {
			f.parLatch = 1
		} else {
			f.parLatch = f.Regs[0] &^ 0xFFF
		}
	case op == mrcBase|parReg:
		f.Regs[0] = f.parLatch
	case op == opLDCDCC:
		f.ldcArmed = true
		f.ldcSkippedFirst = false
		f.ldcAddr = f.Regs[0]
	case op == opSTCDCC:
		f.stcArmed = true
		f.stcAddr = f.Regs[0]
	case op == opSTRBSPPostInc:
		if f.AbortOnSTRBAtByte >= 0 && f.strbIndex == f.AbortOnSTRBAtByte {
			f.dscr |= dscrSDAbortL
			f.strbIndex++
			return
		}
		addr := f.Regs[13]
		if int(addr) < len(f.Mem) {
			f.Mem[addr] = byte(f.Regs[0])
		}
		f.Regs[13] = addr + 1
		f.strbIndex++
	case op&^0xF == opVMovRRDBase:
		i := op & 0xF
		f.Regs[0] = uint32(f.D[i])
		f.Regs[1] = uint32(f.D[i] >> 32)
	case op&^0xF == opVMovDRRBase:
		i := op & 0xF
		f.D[i] = uint64(f.Regs[1])<<32 | uint64(f.Regs[0])
	case op&^0xF000 == mcrBase|dbgDTRint:
		i := (op >> 12) & 0xF
		f.dtrtxLatch = f.Regs[i]
	case op&^0xF000 == mrcBase|dbgDTRint:
		i := (op >> 12) & 0xF
		f.Regs[i] = f.dtrrxLatch
	}
}

func (f *Fake) setMOE(moe uint32) {
	f.dscr = (f.dscr &^ dscrMOEMask) | ((moe << dscrMOEShift) & dscrMOEMask)
}

func (f *Fake) execDRCR(value uint32) {
	if value&drcrHRQ != 0 {
		f.dscr |= dscrHalted
		f.dscr &^= dscrRestarted
		f.setMOE(moeHaltRequest)
	}
	if value&drcrCSE != 0 {
		f.dscr &^= dscrSDAbortL
	}
	if value&drcrRRQ != 0 {
		f.resume()
	}
}

func (f *Fake) resume() {
	stepping := f.bcr[0]&bcrInstrMismatch != 0 && f.bcr[0]&bcrEnable != 0 && f.dscr&dscrIntDis != 0
	f.dscr |= dscrRestarted
	if !stepping {
		f.dscr &^= dscrHalted
		return
	}
	offset := uint32(8)
	length := uint32(4)
	if f.CPSR&thumbBit != 0 {
		offset = 4
		length = 2
	}
	instrAddr := f.Regs[15] - offset
	f.Regs[15] = instrAddr + length + offset
	f.dscr |= dscrHalted
	f.setMOE(moeBreakpoint)
}

// SetHalted forces the fake into a halted state at the architectural
// address addr (the driver will read back addr, not the pipelined
// value), for setting up test scenarios without going through
// HaltRequest.
func (f *Fake) SetHalted(addr uint32, thumb bool, moe uint32) {
	offset := uint32(8)
	if thumb {
		offset = 4
		f.CPSR |= thumbBit
	} else {
		f.CPSR &^= thumbBit
	}
	f.Regs[15] = addr + offset
	f.dscr |= dscrHalted
	f.dscr &^= dscrRestarted
	f.setMOE(moe)
}
