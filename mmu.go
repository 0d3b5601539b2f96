// Copyright 2024 The Cortexa Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cortexa

import "fmt"

// vaToPA translates a virtual address through the core's MMU using a
// Privileged Read address-translation request (ATS1CPR, ARM DDI 0406
// B3.12). On a translation fault it sets mmuFault and still returns
// the synthesised physical address built from PAR's page bits; the
// caller must consult CheckError.
func (p *privateState) vaToPA(va uint32) (uint32, error) {
	if err := p.writeGP(0, va); err != nil {
		return 0, fmt.Errorf("cortexa: va_to_pa: %w", err)
	}
	if err := p.exec(mcrBase | ats1cprReg); err != nil {
		return 0, fmt.Errorf("cortexa: va_to_pa: translate request: %w", err)
	}
	if err := p.exec(mrcBase | parReg); err != nil {
		return 0, fmt.Errorf("cortexa: va_to_pa: reading PAR: %w", err)
	}
	par, err := p.readGP(0)
	if err != nil {
		return 0, fmt.Errorf("cortexa: va_to_pa: reading PAR: %w", err)
	}
	if par&1 != 0 {
		p.mmuFault = true
	}
	return (par &^ 0xFFF) | (va & 0xFFF), nil
}
