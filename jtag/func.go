// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package jtag

// Well known pin functionality for the 5-wire JTAG scan chain.
const (
	TCK  Func = "JTAG_TCK"  // Test clock
	TDI  Func = "JTAG_TDI"  // Test mode data input
	TDO  Func = "JTAG_TDO"  // Test mode data output
	TMS  Func = "JTAG_TMS"  // Test mode select
	TRST Func = "JTAG_TRST" // Test reset, optional
)

// Well known pin functionality for the 2-wire Serial Wire Debug link.
// SWDIO carries the same signal TMS carries in JTAG mode when a probe
// supports dual-protocol pin multiplexing.
const (
	SWCLK Func = "SWD_SWCLK" // Synchronous clock, drives the target
	SWDIO Func = "SWD_SWDIO" // Bidirectional data line
	SWO   Func = "SWD_SWO"   // Optional asynchronous trace output
)
