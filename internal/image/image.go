// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package image loads LCPU patch images from Intel HEX files.
//
// A patch image carries two data segments addressed in the LCPU
// shared-RAM window: the patch record (or redirect table) and the
// patch code. The segment addresses select which is which, so an
// image is tied to the chip revision whose layout it targets.
package image // import "github.com/go-sifli/sf52/internal/image"

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"

	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/syscfg"
)

// Image is a decoded LCPU patch image.
type Image struct {
	Record []byte
	Code   []byte
}

// Load parses an Intel HEX patch image and splits it into record and
// code per the revision's RAM layout.
func Load(r io.Reader, rev syscfg.ChipRevision) (Image, error) {
	var img Image

	typ, ok := rev.PatchType()
	if !ok {
		return img, fmt.Errorf("image: no patch layout for chip revision %v", rev)
	}
	var recAddr, codeAddr uint32
	switch typ {
	case syscfg.PatchA3:
		recAddr = regs.LPSYS_RAM_BASE + regs.A3_PATCH_RECORD
		codeAddr = regs.LPSYS_RAM_BASE + regs.A3_PATCH_CODE
	default:
		recAddr = regs.LPSYS_RAM_BASE + regs.LETTER_PATCH_BUF
		codeAddr = regs.LPSYS_RAM_BASE + regs.LETTER_PATCH_CODE
	}

	mem := gohex.NewMemory()
	err := mem.ParseIntelHex(r)
	if err != nil {
		return img, fmt.Errorf("image: could not parse HEX image: %w", err)
	}

	for _, seg := range mem.GetDataSegments() {
		switch seg.Address {
		case recAddr:
			img.Record = seg.Data
		case codeAddr:
			img.Code = seg.Data
		default:
			return img, fmt.Errorf(
				"image: segment at 0x%08x matches no patch region of revision %v",
				seg.Address, rev,
			)
		}
	}

	if img.Record == nil {
		return img, fmt.Errorf("image: image has no record segment (want 0x%08x)", recAddr)
	}
	if img.Code == nil {
		return img, fmt.Errorf("image: image has no code segment (want 0x%08x)", codeAddr)
	}
	return img, nil
}
