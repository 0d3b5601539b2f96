// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "fmt"

// apbWrite sets the AP's Transfer Address Register to debugBase +
// 4*regIdx, then writes value to the AP's Data-Read/Write register.
func (p *privateState) apbWrite(regIdx, value uint32) error {
	addr := p.debugBase + 4*regIdx
	if err := p.apb.WriteAP(addr, value); err != nil {
		return fmt.Errorf("cortexa: apb write reg %#x: %w", regIdx, err)
	}
	return nil
}

// apbRead sets the Transfer Address Register, issues a posted read,
// then retrieves the result from the DP's read buffer.
func (p *privateState) apbRead(regIdx uint32) (uint32, error) {
	addr := p.debugBase + 4*regIdx
	v, err := p.apb.ReadAP(addr)
	if err != nil {
		return 0, fmt.Errorf("cortexa: apb read reg %#x: %w", regIdx, err)
	}
	return v, nil
}

// dscr reads the Debug Status/Control register.
func (p *privateState) dscr() (uint32, error) { return p.apbRead(regDSCR) }

// setDSCR writes a new DSCR value verbatim.
func (p *privateState) setDSCR(v uint32) error { return p.apbWrite(regDSCR, v) }

// bvrIdx / bcrIdx return the word index of comparator i's Breakpoint
// Value / Control Register.
func bvrIdx(i int) uint32 { return regBVR0 + uint32(i) }
func bcrIdx(i int) uint32 { return regBCR0 + uint32(i) }
