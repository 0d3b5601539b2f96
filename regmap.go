// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

// Debug register word indices, relative to debugBase, on the APB.
const (
	regDIDR  = 0  // Debug ID
	regDTRRX = 32 // DCC host->target word
	regITR   = 33 // Inject one ARM opcode
	regDSCR  = 34 // Status/Control
	regDTRTX = 35 // DCC target->host word
	regDRCR  = 36 // Run-control

	regBVR0 = 64 // Breakpoint Value Register base (indexed by comparator)
	regBCR0 = 80 // Breakpoint Control Register base
)

// DSCR bit positions.
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
)

// EXTDCCMODE encodings.
const (
	dccModeStall = 1
	dccModeFast  = 2
)

// DRCR bits.
const (
	drcrCSE = 1 << 2 // clear sticky error/abort flags
	drcrRRQ = 1 << 1 // restart request
	drcrHRQ = 1 << 0 // halt request
)

// Method-of-entry values decoded from DSCR.MOE. Only the "halt
// request" encoding is given a name; every other value is treated as a
// breakpoint/step/watchpoint-class entry (SIGTRAP).
const moeHaltRequest = 0x0

// bcrEnable marks a breakpoint control register as active.
const bcrEnable = 1 << 0

// bcrInstrMismatch selects mismatch-breakpoint mode on BCR, used to
// build the single-step comparator.
const bcrInstrMismatch = 4 << 20

// CPREG packs a CP14/CP15 coprocessor register descriptor the way the
// MCR/MRC encodings expect it.
func cpreg(coproc, opc1, rt, crn, crm, opc2 uint32) uint32 {
	return (opc1 << 21) | (crn << 16) | (rt << 12) | (coproc << 8) | (opc2 << 5) | crm
}

// Fixed instruction opcodes and coprocessor descriptors. These are
// bit-exact ARMv7 encodings and must survive verbatim.
var (
	mcrBase = uint32(0xEE000010)
	mrcBase = uint32(0xEE100010)

	// CP14 DCC register: MRC/MCR p14, 0, rT, c0, c5, 0.
	dbgDTRint = cpreg(14, 0, 0, 0, 5, 0)

	// CP15 cache maintenance by MVA, and I-cache invalidate-all.
	dccmvacReg  = cpreg(15, 0, 0, 7, 10, 1) // Clean by MVA to PoC
	dccimvacReg = cpreg(15, 0, 0, 7, 14, 1) // Clean and Invalidate by MVA
	icialluReg  = cpreg(15, 0, 0, 7, 5, 0)  // Invalidate all of I-cache

	// CP15 address translation: ATS1CPR (translate), PAR (result).
	ats1cprReg = cpreg(15, 0, 0, 7, 8, 0)
	parReg     = cpreg(15, 0, 0, 7, 4, 0)
)

// Self-contained instruction encodings injected verbatim through ITR.
const (
	opMovR0PC  = 0xE1A0000F // mov r0, pc
	opMRSR0CPS = 0xE10F0000 // mrs r0, CPSR
	opMSRCPSR  = 0xE12FF000 // msr CPSR_fsxc, r0
	opMovPCR0  = 0xE1A0F000 // mov pc, r0
	opVMRSFPSC = 0xEEF10A10 // vmrs r0, fpscr
	opVMSRFPSC = 0xEEE10A10 // vmsr fpscr, r0

	// vmov r0, r1, d<i> / vmov d<i>, r0, r1 take the d-register index i
	// or'd into the low nibble.
	opVMovRRDBase = 0xEC510B10 // vmov rX, rY, d<i> (read)
	opVMovDRRBase = 0xEC410B10 // vmov d<i>, rX, rY (write)

	// Fast-mode DCC stream load/store multiple, word at [r0], post-inc.
	opLDCDCC = 0xECB05E01 // ldc 14, cr5, [r0], #4
	opSTCDCC = 0xECA05E01 // stc 14, cr5, [r0], #4

	// strb r0, [sp], #1 -- single byte store used by the slow-path byte loop.
	opSTRBSPPostInc = 0xE4CD0001
)

// cacheLineSize is the granularity of the cache-maintenance-by-MVA
// walk in the fast memory path.
const cacheLineSize = 32
