// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"errors"
	"testing"

	"github.com/go-sifli/sf52/internal/mmap"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/rcc"
)

func newTestEFuse(t *testing.T) (*EFuse, *mmap.Handle) {
	t.Helper()
	win := mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))
	e, err := New(win)
	if err != nil {
		t.Fatalf("could not create efuse: %+v", err)
	}
	return e, win
}

func TestConfigTiming(t *testing.T) {
	for _, tc := range []struct {
		name string
		pclk rcc.Hertz
		timr uint32
	}{
		// 500 ns, 20 ns and 10 us in pclk cycles, rounded up.
		{"48MHz", 48 * rcc.MHz, 24 | 1<<8 | 480<<16},
		{"120MHz", 120 * rcc.MHz, 60 | 3<<8 | 1200<<16},
		{"24MHz", 24 * rcc.MHz, 12 | 1<<8 | 240<<16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, win := newTestEFuse(t)
			if err := e.ConfigTiming(tc.pclk); err != nil {
				t.Fatalf("could not configure timing: %+v", err)
			}
			timr, err := win.Uint32At(regs.EFUSE_TIMR)
			if err != nil {
				t.Fatalf("could not read TIMR: %+v", err)
			}
			if got, want := timr, tc.timr; got != want {
				t.Fatalf("invalid TIMR: got=0x%08x, want=0x%08x", got, want)
			}
		})
	}
}

func TestConfigTimingErrors(t *testing.T) {
	e, _ := newTestEFuse(t)

	if err := e.ConfigTiming(0); !errors.Is(err, ErrPclkUnknown) {
		t.Fatalf("invalid error for unknown pclk: %+v", err)
	}

	var tooFast PclkTooFastError
	err := e.ConfigTiming(150 * rcc.MHz)
	if !errors.As(err, &tooFast) || tooFast.Freq != 150*rcc.MHz {
		t.Fatalf("invalid error for fast pclk: %+v", err)
	}

	// no bank access before the timing is in place.
	if _, err := e.ReadBank(0); err == nil {
		t.Fatalf("expected an error reading an untimed controller")
	}
}

func TestReadBankAndUid(t *testing.T) {
	e, win := newTestEFuse(t)
	if err := e.ConfigTiming(48 * rcc.MHz); err != nil {
		t.Fatalf("could not configure timing: %+v", err)
	}

	seed := func(base int64, words ...uint32) {
		t.Helper()
		for i, w := range words {
			if err := win.SetUint32At(base+int64(4*i), w); err != nil {
				t.Fatalf("could not seed word %d: %+v", i, err)
			}
		}
	}
	seed(regs.EFUSE_BANK0_DATA, 0x04030201, 0x08070605, 0xAAAA5555)
	seed(regs.EFUSE_BANK1_DATA, 0xCAFEBABE)

	bank0, err := e.ReadBank(0)
	if err != nil {
		t.Fatalf("could not read bank 0: %+v", err)
	}
	if bank0[2] != 0xAAAA5555 {
		t.Fatalf("invalid bank 0 word 2: 0x%08x", bank0[2])
	}
	bank1, err := e.ReadBank(1)
	if err != nil {
		t.Fatalf("could not read bank 1: %+v", err)
	}
	if bank1[0] != 0xCAFEBABE {
		t.Fatalf("invalid bank 1 word 0: 0x%08x", bank1[0])
	}

	uid, err := e.Uid()
	if err != nil {
		t.Fatalf("could not read UID: %+v", err)
	}
	if got, want := uid, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}; got != want {
		t.Fatalf("invalid UID: got=%x, want=%x", got, want)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an invalid bank")
		}
	}()
	_, _ = e.ReadBank(2)
}

// Extraction is LSB-first within each word and carries across word
// boundaries.
func TestGetBits(t *testing.T) {
	for _, tc := range []struct {
		name  string
		words []uint32
		pos   int
		n     int
		want  uint32
	}{
		{"straddle", []uint32{0x80000000, 0x00000001}, 31, 2, 0b11},
		{"low-nibble", []uint32{0x000000A5}, 0, 4, 0x5},
		{"high-nibble", []uint32{0x000000A5}, 4, 4, 0xA},
		{"word1-only", []uint32{0, 0x0000FF00}, 40, 8, 0xFF},
		{"full-word", []uint32{0xDEADBEEF}, 0, 32, 0xDEADBEEF},
		{"wide-straddle", []uint32{0xF0000000, 0x0000000F}, 28, 8, 0xFF},
		{"single", []uint32{1 << 17}, 17, 1, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := getBits(tc.words, tc.pos, tc.n); got != tc.want {
				t.Fatalf("invalid bits: got=0x%x, want=0x%x", got, tc.want)
			}
		})
	}
}
