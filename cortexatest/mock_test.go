// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexatest

import "testing"

func TestFakeWriteReadAPRoundTrip(t *testing.T) {
	f := NewFake(64)
	f.DebugBase = 0x1000
	if err := f.WriteAP(f.DebugBase+4*regBVR0, 0xCAFEBABE); err != nil {
		t.Fatalf("WriteAP: %v", err)
	}
	v, err := f.ReadAP(f.DebugBase + 4*regBVR0)
	if err != nil {
		t.Fatalf("ReadAP: %v", err)
	}
	if v != 0xCAFEBABE {
		t.Fatalf("got %#x, want 0xCAFEBABE", v)
	}
}

func TestFakeMovR0PCReadsPipelinedPC(t *testing.T) {
	f := NewFake(64)
	f.Regs[15] = 0x8008
	f.exec(opMovR0PC)
	if f.Regs[0] != 0x8008 {
		t.Fatalf("r0 = %#x, want 0x8008", f.Regs[0])
	}
}

func TestFakeLDCStreamSkipsFirstReadThenStreamsWords(t *testing.T) {
	f := NewFake(64)
	f.Mem[0x10] = 0x01
	f.Mem[0x11] = 0x02
	f.Mem[0x12] = 0x03
	f.Mem[0x13] = 0x04
	f.Mem[0x14] = 0xAA
	f.Mem[0x15] = 0xBB
	f.Mem[0x16] = 0xCC
	f.Mem[0x17] = 0xDD
	f.Regs[0] = 0x10
	f.exec(opLDCDCC)

	discard, err := f.ReadAP(4 * regDTRTX)
	if err != nil || discard != 0 {
		t.Fatalf("priming read: got (%#x, %v), want (0, nil)", discard, err)
	}
	v1, _ := f.ReadAP(4 * regDTRTX)
	if v1 != 0x04030201 {
		t.Fatalf("first streamed word = %#x, want 0x04030201", v1)
	}
	v2, _ := f.ReadAP(4 * regDTRTX)
	if v2 != 0xDDCCBBAA {
		t.Fatalf("second streamed word = %#x, want 0xDDCCBBAA", v2)
	}
}

func TestFakeSTRBAbortStopsWriteAndSetsSDAbortL(t *testing.T) {
	f := NewFake(64)
	f.AbortOnSTRBAtByte = 1
	f.Regs[13] = 0x20
	f.Regs[0] = 0x41
	f.exec(opSTRBSPPostInc) // byte 0: succeeds
	f.Regs[0] = 0x42
	f.exec(opSTRBSPPostInc) // byte 1: aborts

	if f.Mem[0x20] != 0x41 {
		t.Fatalf("first byte should have landed: %#x", f.Mem[0x20])
	}
	if f.Mem[0x21] != 0 {
		t.Fatalf("aborted byte must not have been written: %#x", f.Mem[0x21])
	}
	if f.dscr&dscrSDAbortL == 0 {
		t.Fatal("expected DSCR.SDABORT_L to be set")
	}
}

func TestFakeSetHaltedRoundTripsThroughMovR0PC(t *testing.T) {
	f := NewFake(64)
	f.SetHalted(0x8000, false, 0)
	f.exec(opMovR0PC)
	if f.Regs[0] != 0x8008 {
		t.Fatalf("pipelined pc = %#x, want 0x8008 (pc+8 for ARM)", f.Regs[0])
	}
}
