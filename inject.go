// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

// exec writes opcode to ITR, causing the halted core to execute it in
// debug state. No status polling is performed per injection in the
// common path: the DCC transfer protocol provides implicit flow
// control. A fault is only detectable afterwards by inspecting
// DSCR.SDABORT_L.
func (p *privateState) exec(opcode uint32) error {
	return p.apbWrite(regITR, opcode)
}

// clearSticky writes DRCR.CSE, clearing the sticky data-abort flag.
func (p *privateState) clearSticky() error {
	return p.apbWrite(regDRCR, drcrCSE)
}

// checkAbort inspects DSCR.SDABORT_L; if set, it clears the sticky
// flag and marks mmuFault. It returns whether this particular check
// observed an abort, so a caller deciding what to do about the
// transfer it just issued doesn't have to rely on the session-wide
// sticky flag, which may still be set from an earlier, unrelated
// operation the caller hasn't yet consumed via CheckError.
func (p *privateState) checkAbort() (bool, error) {
	d, err := p.dscr()
	if err != nil {
		return false, err
	}
	if d&dscrSDAbortL != 0 {
		if err := p.clearSticky(); err != nil {
			return false, err
		}
		p.mmuFault = true
		return true, nil
	}
	return false, nil
}
