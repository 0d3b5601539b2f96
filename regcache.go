// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "encoding/binary"

// regCache is the in-memory snapshot of the core's architectural
// state: r0..r15, CPSR, FPSCR, d0..d15. It is the sole state the upper
// layer inspects or mutates; Session is responsible for loading it from
// the device on halt (regsReadInternal) and flushing it back on resume
// (regsWriteInternal).
type regCache struct {
	r     [16]uint32
	cpsr  uint32
	fpscr uint32
	d     [16]uint64
}

// cpsrThumb is CPSR bit 5, the Thumb state flag.
const cpsrThumb = 1 << 5

func (c *regCache) thumb() bool { return c.cpsr&cpsrThumb != 0 }

// RegsSize implements target.Target: 16*4 + 4 + 4 + 16*8 = 200 bytes,
// matching the GDB target description byte-for-byte.
func (s *Session) RegsSize() int { return 16*4 + 4 + 4 + 16*8 }

// RegsRead implements target.Target. out must be RegsSize() bytes.
func (s *Session) RegsRead(out []byte) error {
	if len(out) != s.RegsSize() {
		return errShortBuffer("RegsRead", s.RegsSize(), len(out))
	}
	o := 0
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[o:], s.priv.regs.r[i])
		o += 4
	}
	binary.LittleEndian.PutUint32(out[o:], s.priv.regs.cpsr)
	o += 4
	binary.LittleEndian.PutUint32(out[o:], s.priv.regs.fpscr)
	o += 4
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint64(out[o:], s.priv.regs.d[i])
		o += 8
	}
	return nil
}

// RegsWrite implements target.Target. in must be RegsSize() bytes. The
// cache is updated only; the device sees the new values on the next
// HaltResume.
func (s *Session) RegsWrite(in []byte) error {
	if len(in) != s.RegsSize() {
		return errShortBuffer("RegsWrite", s.RegsSize(), len(in))
	}
	o := 0
	for i := 0; i < 16; i++ {
		s.priv.regs.r[i] = binary.LittleEndian.Uint32(in[o:])
		o += 4
	}
	s.priv.regs.cpsr = binary.LittleEndian.Uint32(in[o:])
	o += 4
	s.priv.regs.fpscr = binary.LittleEndian.Uint32(in[o:])
	o += 4
	for i := 0; i < 16; i++ {
		s.priv.regs.d[i] = binary.LittleEndian.Uint64(in[o:])
		o += 8
	}
	return nil
}

func errShortBuffer(op string, want, got int) error {
	return &bufferSizeError{op: op, want: want, got: got}
}

type bufferSizeError struct {
	op        string
	want, got int
}

func (e *bufferSizeError) Error() string {
	return "cortexa: " + e.op + ": expected buffer of " + itoa(e.want) + " bytes, got " + itoa(e.got)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// targetDescription is the GDB target description XML exposed
// alongside the register layout. It is a constant, consumed by the
// GDB remote front end that sits above this package, and must stay
// byte-exact with RegsRead/RegsWrite.
const targetDescription = `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target>
  <architecture>arm</architecture>
  <feature name="org.gnu.gdb.arm.core">
    <reg name="r0" bitsize="32"/>
    <reg name="r1" bitsize="32"/>
    <reg name="r2" bitsize="32"/>
    <reg name="r3" bitsize="32"/>
    <reg name="r4" bitsize="32"/>
    <reg name="r5" bitsize="32"/>
    <reg name="r6" bitsize="32"/>
    <reg name="r7" bitsize="32"/>
    <reg name="r8" bitsize="32"/>
    <reg name="r9" bitsize="32"/>
    <reg name="r10" bitsize="32"/>
    <reg name="r11" bitsize="32"/>
    <reg name="r12" bitsize="32"/>
    <reg name="sp" bitsize="32" type="data_ptr"/>
    <reg name="lr" bitsize="32" type="code_ptr"/>
    <reg name="pc" bitsize="32" type="code_ptr"/>
    <reg name="cpsr" bitsize="32" regnum="25"/>
  </feature>
  <feature name="org.gnu.gdb.arm.vfp">
    <reg name="fpscr" bitsize="32" type="int" group="float"/>
    <reg name="d0" bitsize="64" type="float"/>
    <reg name="d1" bitsize="64" type="float"/>
    <reg name="d2" bitsize="64" type="float"/>
    <reg name="d3" bitsize="64" type="float"/>
    <reg name="d4" bitsize="64" type="float"/>
    <reg name="d5" bitsize="64" type="float"/>
    <reg name="d6" bitsize="64" type="float"/>
    <reg name="d7" bitsize="64" type="float"/>
    <reg name="d8" bitsize="64" type="float"/>
    <reg name="d9" bitsize="64" type="float"/>
    <reg name="d10" bitsize="64" type="float"/>
    <reg name="d11" bitsize="64" type="float"/>
    <reg name="d12" bitsize="64" type="float"/>
    <reg name="d13" bitsize="64" type="float"/>
    <reg name="d14" bitsize="64" type="float"/>
    <reg name="d15" bitsize="64" type="float"/>
  </feature>
</target>
`

// TargetDescription returns the GDB target description XML.
func TargetDescription() string { return targetDescription }
