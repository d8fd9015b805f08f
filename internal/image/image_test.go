// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bytes"
	"testing"

	"github.com/marcinbor85/gohex"

	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/syscfg"
)

func hexImage(t *testing.T, segs map[uint32][]byte) *bytes.Buffer {
	t.Helper()
	mem := gohex.NewMemory()
	for addr, data := range segs {
		if err := mem.AddBinary(addr, data); err != nil {
			t.Fatalf("could not add segment 0x%08x: %+v", addr, err)
		}
	}
	buf := new(bytes.Buffer)
	mem.DumpIntelHex(buf, 16)
	return buf
}

func TestLoad(t *testing.T) {
	var (
		record = []byte{1, 2, 3, 4, 5, 6, 7, 8}
		code   = []byte{0xde, 0xad, 0xbe, 0xef, 0x52, 0x32}
	)

	for _, tc := range []struct {
		name  string
		revid uint8
		rec   uint32
		code  uint32
	}{
		{"a3", 0x03, regs.LPSYS_RAM_BASE + regs.A3_PATCH_RECORD, regs.LPSYS_RAM_BASE + regs.A3_PATCH_CODE},
		{"b4", 0x0F, regs.LPSYS_RAM_BASE + regs.LETTER_PATCH_BUF, regs.LPSYS_RAM_BASE + regs.LETTER_PATCH_CODE},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := hexImage(t, map[uint32][]byte{
				tc.rec:  record,
				tc.code: code,
			})

			img, err := Load(buf, syscfg.FromRevID(tc.revid))
			if err != nil {
				t.Fatalf("could not load image: %+v", err)
			}
			if !bytes.Equal(img.Record, record) {
				t.Fatalf("invalid record: got=%x, want=%x", img.Record, record)
			}
			if !bytes.Equal(img.Code, code) {
				t.Fatalf("invalid code: got=%x, want=%x", img.Code, code)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	rev := syscfg.FromRevID(0x0F)

	// segment outside any patch region.
	buf := hexImage(t, map[uint32][]byte{
		0x1000_0000: {1, 2, 3},
	})
	if _, err := Load(buf, rev); err == nil {
		t.Fatalf("expected an error for a stray segment")
	}

	// code segment missing.
	buf = hexImage(t, map[uint32][]byte{
		regs.LPSYS_RAM_BASE + regs.LETTER_PATCH_BUF: {1, 2, 3, 4, 5, 6, 7, 8},
	})
	if _, err := Load(buf, rev); err == nil {
		t.Fatalf("expected an error for a missing code segment")
	}

	// A3 image loaded on a Letter-Series chip.
	buf = hexImage(t, map[uint32][]byte{
		regs.LPSYS_RAM_BASE + regs.A3_PATCH_RECORD: {1, 2, 3, 4},
		regs.LPSYS_RAM_BASE + regs.A3_PATCH_CODE:   {5, 6, 7, 8},
	})
	if _, err := Load(buf, rev); err == nil {
		t.Fatalf("expected an error for a cross-revision image")
	}

	// not a HEX stream.
	if _, err := Load(bytes.NewReader([]byte("not an image")), rev); err == nil {
		t.Fatalf("expected an error for a corrupt stream")
	}

	// unknown revision.
	if _, err := Load(new(bytes.Buffer), syscfg.FromRevID(0x42)); err == nil {
		t.Fatalf("expected an error for an invalid revision")
	}
}
