// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syscfg reads the SF32LB52x chip identification register and
// classifies the silicon revision.
package syscfg // import "github.com/go-sifli/sf52/syscfg"

import (
	"fmt"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
)

// Syscfg holds the four identification fields of the HPSYS_CFG IDR
// register.
type Syscfg struct {
	RevID uint8 // bits [7:0], hardware revision
	PID   uint8 // bits [15:8], package type
	CID   uint8 // bits [23:16], company identifier
	SID   uint8 // bits [31:24], product series
}

// Read decodes the IDR register. The register is re-read from hardware
// on every call.
func Read(p *bus.Port) (Syscfg, error) {
	idr := p.U32(regs.CFG_IDR)
	if err := p.Err(); err != nil {
		return Syscfg{}, fmt.Errorf("syscfg: could not read IDR: %w", err)
	}
	return Syscfg{
		RevID: uint8(idr >> regs.SHIFT_IDR_REVID),
		PID:   uint8(idr >> regs.SHIFT_IDR_PID),
		CID:   uint8(idr >> regs.SHIFT_IDR_CID),
		SID:   uint8(idr >> regs.SHIFT_IDR_SID),
	}, nil
}

// IDR returns the raw 32-bit register value.
func (sig Syscfg) IDR() uint32 {
	return uint32(sig.SID)<<regs.SHIFT_IDR_SID |
		uint32(sig.CID)<<regs.SHIFT_IDR_CID |
		uint32(sig.PID)<<regs.SHIFT_IDR_PID |
		uint32(sig.RevID)<<regs.SHIFT_IDR_REVID
}

// Revision classifies the REVID field.
func (sig Syscfg) Revision() ChipRevision {
	return FromRevID(sig.RevID)
}

func (sig Syscfg) String() string {
	return fmt.Sprintf(
		"syscfg{revid: 0x%02x, pid: 0x%02x, cid: 0x%02x, sid: 0x%02x}",
		sig.RevID, sig.PID, sig.CID, sig.SID,
	)
}

type revKind uint8

const (
	revInvalid revKind = iota
	revA3OrEarlier
	revA4
	revB4
)

// ChipRevision is the classified hardware revision.
//
// Valid revisions are 0x00-0x03 (A3 and earlier, including engineering
// samples), 0x07 (A4) and 0x0F (B4). A4 and B4 form the Letter Series,
// which boots the LCPU directly from ROM.
type ChipRevision struct {
	revid uint8
	kind  revKind
}

// FromRevID classifies a REVID value. It is total: every byte value
// maps to a (possibly invalid) revision.
func FromRevID(revid uint8) ChipRevision {
	rev := ChipRevision{revid: revid}
	switch {
	case revid <= 0x03:
		rev.kind = revA3OrEarlier
	case revid == 0x07:
		rev.kind = revA4
	case revid == 0x0F:
		rev.kind = revB4
	default:
		rev.kind = revInvalid
	}
	return rev
}

// RevID returns the raw REVID value.
func (rev ChipRevision) RevID() uint8 { return rev.revid }

// IsValid reports whether the revision is one the vendor firmware
// recognizes.
func (rev ChipRevision) IsValid() bool { return rev.kind != revInvalid }

// IsLetterSeries reports whether the revision is A4 or B4.
func (rev ChipRevision) IsLetterSeries() bool {
	return rev.kind == revA4 || rev.kind == revB4
}

// Name returns a human-readable revision name.
func (rev ChipRevision) Name() string {
	switch rev.kind {
	case revA3OrEarlier:
		switch rev.revid {
		case 0x00:
			return "Pre-A3 (ES v0.0)"
		case 0x01:
			return "Pre-A3 (ES v0.1)"
		case 0x02:
			return "Pre-A3 (ES v0.2)"
		default:
			return "A3"
		}
	case revA4:
		return "A4 (Letter Series)"
	case revB4:
		return "B4 (Letter Series)"
	default:
		return "Invalid"
	}
}

func (rev ChipRevision) String() string {
	if !rev.IsValid() {
		return fmt.Sprintf("Invalid(0x%02x)", rev.revid)
	}
	return rev.Name()
}

// PatchType returns the LCPU patch layout for this revision, and false
// for invalid revisions.
func (rev ChipRevision) PatchType() (PatchType, bool) {
	switch rev.kind {
	case revA3OrEarlier:
		return PatchA3, true
	case revA4, revB4:
		return PatchLetterSeries, true
	default:
		return 0, false
	}
}

// PatchType selects one of the two LCPU ROM patch layouts.
type PatchType uint8

const (
	// PatchA3 is used for REVID <= 0x03; the LCPU image is loaded
	// from flash.
	PatchA3 PatchType = iota
	// PatchLetterSeries is used for A4/B4; the LCPU runs from ROM.
	PatchLetterSeries
)

func (pt PatchType) String() string {
	switch pt {
	case PatchA3:
		return "A3"
	case PatchLetterSeries:
		return "LetterSeries"
	}
	return fmt.Sprintf("PatchType(%d)", int(pt))
}
