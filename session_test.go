// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import (
	"testing"

	"armprobe.dev/x/cortexa/ap"
	"armprobe.dev/x/cortexa/cortexatest"
	"armprobe.dev/x/cortexa/platform"
	"armprobe.dev/x/cortexa/target"
)

func newSlowSession(t *testing.T) (*Session, *cortexatest.Fake) {
	t.Helper()
	fake := cortexatest.NewFake(4096)
	fake.DebugBase = 0x80000000
	s, err := Probe(Config{
		DebugBase: fake.DebugBase,
		APB:       fake,
		Platform:  platform.New(nil),
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	return s, fake
}

func newFastSession(t *testing.T) (*Session, *cortexatest.Fake) {
	t.Helper()
	fake := cortexatest.NewFake(4096)
	fake.DebugBase = 0x80000000
	fake.IDRValue = 0x04770001
	s, err := Probe(Config{
		DebugBase:    fake.DebugBase,
		APB:          fake,
		AHBCandidate: fake,
		Platform:     platform.New(nil),
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	return s, fake
}

func TestProbeDiscoversAHB(t *testing.T) {
	s, _ := newFastSession(t)
	if s.priv.ahb == nil {
		t.Fatal("expected AHB to be discovered")
	}
}

func TestProbeWithoutAHBUsesSlowPath(t *testing.T) {
	s, _ := newSlowSession(t)
	if s.priv.ahb != nil {
		t.Fatal("expected no AHB to be discovered")
	}
}

func TestAttachHaltsAndReadsRegs(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x8000, false, 0)
	fake.Regs[0] = 0x11111111
	fake.CPSR = 0 // ARM state, matches SetHalted(thumb=false)

	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if s.priv.regs.r[0] != 0x11111111 {
		t.Fatalf("r0 = %#x, want 0x11111111", s.priv.regs.r[0])
	}
	if s.priv.regs.r[15] != 0x8000 {
		t.Fatalf("pc = %#x, want 0x8000 (pipeline offset must be subtracted)", s.priv.regs.r[15])
	}
}

func TestRegsReadWriteRoundTrip(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	buf := make([]byte, s.RegsSize())
	for i := range buf {
		buf[i] = byte(i)
	}
	if err := s.RegsWrite(buf); err != nil {
		t.Fatalf("RegsWrite: %v", err)
	}
	out := make([]byte, s.RegsSize())
	if err := s.RegsRead(out); err != nil {
		t.Fatalf("RegsRead: %v", err)
	}
	for i := range buf {
		if buf[i] != out[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, out[i], buf[i])
		}
	}
}

func TestRegsSizeMatchesTargetDescription(t *testing.T) {
	s, _ := newSlowSession(t)
	if got, want := s.RegsSize(), 16*4+4+4+16*8; got != want {
		t.Fatalf("RegsSize() = %d, want %d", got, want)
	}
}

func TestMemReadWriteZeroLengthIsNoop(t *testing.T) {
	s, _ := newSlowSession(t)
	if err := s.MemRead(nil, 0x1000); err != nil {
		t.Fatalf("MemRead(nil): %v", err)
	}
	if err := s.MemWrite(0x1000, nil); err != nil {
		t.Fatalf("MemWrite(nil): %v", err)
	}
}

func TestSlowMemWriteReadRoundTrip(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if err := s.MemWrite(0x100, want); err != nil {
		t.Fatalf("MemWrite: %v", err)
	}
	got := make([]byte, len(want))
	if err := s.MemRead(got, 0x100); err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestSlowMemWriteMisalignedUsesByteLoop(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	want := []byte{0xAA, 0xBB, 0xCC}
	if err := s.MemWrite(0x101, want); err != nil { // misaligned destination
		t.Fatalf("MemWrite: %v", err)
	}
	got := make([]byte, len(want))
	if err := s.MemRead(got, 0x101); err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestSlowMemWriteStopsAtFaultingByte(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	fake.AbortOnSTRBAtByte = 2 // fault on the third byte of this write
	src := []byte{1, 2, 3, 4, 5}
	if err := s.MemWrite(0x201, src); err != nil {
		t.Fatalf("MemWrite: %v", err)
	}
	if !s.CheckError() {
		t.Fatal("expected CheckError to report the injected fault")
	}
	if fake.Mem[0x201] != 1 || fake.Mem[0x202] != 2 {
		t.Fatalf("bytes before the fault should have landed: %#x %#x", fake.Mem[0x201], fake.Mem[0x202])
	}
	if fake.Mem[0x203] != 0 {
		t.Fatalf("byte at the faulting offset and beyond must not have been written: %#x", fake.Mem[0x203])
	}
}

func TestFastMemReadWriteRoundTrip(t *testing.T) {
	s, fake := newFastSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if err := s.MemWrite(0x300, want); err != nil {
		t.Fatalf("MemWrite: %v", err)
	}
	got := make([]byte, len(want))
	if err := s.MemRead(got, 0x300); err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestCheckErrorSurfacesMMUFaultAndClearsIt(t *testing.T) {
	s, fake := newFastSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	fake.ForcePARFault = true
	if err := s.MemRead(make([]byte, 4), 0x1000); err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	if !s.CheckError() {
		t.Fatal("expected CheckError to report the translation fault")
	}
	if s.CheckError() {
		t.Fatal("CheckError must clear the fault after reporting it")
	}
}

func TestHaltWaitReportsSigIntOnHaltRequest(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	if err := s.HaltRequest(); err != nil {
		t.Fatalf("HaltRequest: %v", err)
	}
	sig, err := s.HaltWait()
	if err != nil {
		t.Fatalf("HaltWait: %v", err)
	}
	if sig != target.SigInt {
		t.Fatalf("sig = %d, want SigInt", sig)
	}
}

func TestSingleStepARMAdvancesFourBytes(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x8000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := s.HaltResume(true); err != nil {
		t.Fatalf("HaltResume(step): %v", err)
	}
	sig, err := s.HaltWait()
	if err != nil {
		t.Fatalf("HaltWait: %v", err)
	}
	if sig != target.SigTrap {
		t.Fatalf("sig = %d, want SigTrap", sig)
	}
	if s.priv.regs.r[15] != 0x8004 {
		t.Fatalf("pc = %#x, want 0x8004", s.priv.regs.r[15])
	}
}

func TestSingleStepThumbAdvancesTwoBytesFromOddHalfword(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x8002, true, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !s.priv.regs.thumb() {
		t.Fatal("expected Thumb state after Attach")
	}
	if err := s.HaltResume(true); err != nil {
		t.Fatalf("HaltResume(step): %v", err)
	}
	if _, err := s.HaltWait(); err != nil {
		t.Fatalf("HaltWait: %v", err)
	}
	if s.priv.regs.r[15] != 0x8004 {
		t.Fatalf("pc = %#x, want 0x8004", s.priv.regs.r[15])
	}
}

func TestDetachThenAttachClearsBreakpointTable(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if slot := s.SetHWBP(0x2000, 4); slot != 0 {
		t.Fatalf("SetHWBP = %d, want 0", slot)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if got := s.ClearHWBP(0x2000, 4); got != -1 {
		t.Fatal("breakpoint table should have been cleared across detach/attach")
	}
}

func TestSetHWBPExhaustsComparators(t *testing.T) {
	fake := cortexatest.NewFake(4096)
	fake.DebugBase = 0x80000000
	fake.DIDR = 0 // one comparator: ((0>>24)&0xF)+1 == 1; read by Probe
	s, err := Probe(Config{
		DebugBase: fake.DebugBase,
		APB:       fake,
		Platform:  platform.New(nil),
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if slot := s.SetHWBP(0x2000, 4); slot != 0 {
		t.Fatalf("first SetHWBP = %d, want 0", slot)
	}
	if slot := s.SetHWBP(0x3000, 4); slot != -1 {
		t.Fatalf("second SetHWBP = %d, want -1 (exhausted)", slot)
	}
}

func TestBpBASIsBitExact(t *testing.T) {
	cases := []struct {
		addr   uint32
		length int
		want   uint32
	}{
		{0x8000, 4, 0xF << 5},
		{0x8000, 2, 0x3 << 5},
		{0x8002, 2, 0xC << 5},
	}
	for _, c := range cases {
		if got := bpBAS(c.addr, c.length); got != c.want {
			t.Errorf("bpBAS(%#x, %d) = %#x, want %#x", c.addr, c.length, got, c.want)
		}
	}
}

func TestVaToPAReportsTranslationFault(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	if err := s.Attach(); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	fake.ForcePARFault = true
	if _, err := s.priv.vaToPA(0x5000); err != nil {
		t.Fatalf("vaToPA: %v", err)
	}
	if !s.priv.mmuFault {
		t.Fatal("expected mmuFault to be set on PAR.F=1")
	}
}

func TestHaltRequestToleratesTimeout(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.TimeoutCountdown = 1
	if err := s.HaltRequest(); err != nil {
		t.Fatalf("HaltRequest should tolerate a timeout (WFI core): %v", err)
	}
}

func TestHaltWaitReportsSigLostOnTransportLoss(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.TransportErr = errTransport
	sig, err := s.HaltWait()
	if err == nil {
		t.Fatal("expected an error")
	}
	if sig != target.SigLost {
		t.Fatalf("sig = %d, want SigLost", sig)
	}
}

func TestHaltWaitTearsDownRegistryOnSigLost(t *testing.T) {
	fake := cortexatest.NewFake(16)
	fake.DebugBase = 0x80000000
	reg := target.NewRegistry()
	s, err := Probe(Config{
		DebugBase: fake.DebugBase,
		APB:       fake,
		Platform:  platform.New(nil),
		Name:      "core0",
		Registry:  reg,
	})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	reg.Add("core0", s)

	fake.TransportErr = errTransport
	if _, err := s.HaltWait(); err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := reg.Get("core0"); ok {
		t.Fatal("expected the registry to have torn the session down")
	}
}

func TestResetRunsResetterAndReattaches(t *testing.T) {
	s, fake := newSlowSession(t)
	fake.SetHalted(0x1000, false, 0)
	ranResetter := false
	s.priv.resetter = resetterFunc(func() error {
		ranResetter = true
		fake.SetHalted(0x4000, false, 0)
		return nil
	})
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !ranResetter {
		t.Fatal("expected the configured resetter to run")
	}
	if s.priv.regs.r[15] != 0x4000 {
		t.Fatalf("pc after reset = %#x, want 0x4000", s.priv.regs.r[15])
	}
}

// resetterFunc adapts a plain func to platform.Resetter for tests that
// don't need the real Zynq sequence.
type resetterFunc func() error

func (f resetterFunc) Reset(_ ap.AccessPort, _ platform.Platform) error { return f() }

var errTransport = transportErr("injected transport failure")

type transportErr string

func (e transportErr) Error() string { return string(e) }
