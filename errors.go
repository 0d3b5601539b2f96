// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "errors"

// Error taxonomy. Transport faults are propagated as whatever error
// ap.AccessPort returns, usually wrapping ap.ErrTransport; everything
// below is specific to this driver.
var (
	// ErrBreakpointsExhausted is logged by SetHWBP when it returns -1
	// because every hardware breakpoint comparator is already allocated.
	ErrBreakpointsExhausted = errors.New("cortexa: no free hardware breakpoint comparator")

	// ErrBreakpointNotFound is logged by ClearHWBP when it returns -1
	// because no comparator is armed at the given address.
	ErrBreakpointNotFound = errors.New("cortexa: no hardware breakpoint at that address")
)

// CheckError implements target.Target. It reports true iff the AHB's
// transport-error accumulator is non-zero or mmuFault is set, clearing
// mmuFault as a side effect.
//
// When no AHB is wired, APB transport errors are not surfaced here;
// they still propagate immediately from whichever call raised them.
func (s *Session) CheckError() bool {
	fault := s.priv.mmuFault
	s.priv.mmuFault = false
	if s.priv.ahb != nil {
		if err := s.priv.ahb.Error(); err != nil {
			return true
		}
	}
	return fault
}
