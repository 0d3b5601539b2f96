// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package jtag names the physical probe-side signals of the ARM Debug
// Interface (ADIv5) transport, in either of its two wire encodings: the
// 5-wire JTAG scan chain or the 2-wire Serial Wire Debug (SWD) link.
//
// Naming these signals here, rather than inline in the probe lifecycle
// code, lets platform-specific wiring refer to a fixed vocabulary
// instead of ad-hoc strings.
//
// See https://en.wikipedia.org/wiki/JTAG and ARM IHI 0031 (ADIv5) for
// background.
package jtag

// Func identifies what a physical pin is wired to on the probe side of
// the debug link.
type Func string

// String implements fmt.Stringer.
func (f Func) String() string {
	if len(f) == 0 {
		return "N/A"
	}
	return string(f)
}
