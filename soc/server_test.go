// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"bytes"
	"testing"

	"github.com/go-daq/tdaq"

	"github.com/go-sifli/sf52/rcc"
)

func TestSample(t *testing.T) {
	f := newFakeChip(t, 0x0F)
	srv := NewServer("sf52-01")
	srv.dev = f.device()

	data, err := srv.sample()
	if err != nil {
		t.Fatalf("could not sample clock tree: %+v", err)
	}

	dec := tdaq.NewDecoder(bytes.NewReader(data))
	n := dec.ReadU32()
	if got, want := n, uint32(7); got != want {
		t.Fatalf("invalid node count: got=%d, want=%d", got, want)
	}

	freqs := make(map[string]rcc.Hertz, n)
	for i := uint32(0); i < n; i++ {
		name := dec.ReadStr()
		freqs[name] = rcc.Hertz(dec.ReadU32())
	}
	if err := dec.Err(); err != nil {
		t.Fatalf("could not decode sample: %+v", err)
	}

	// hrc48 drives clk_sys on the fake chip.
	if got, want := freqs["clk_sys"], 48*rcc.MHz; got != want {
		t.Fatalf("invalid clk_sys: got=%v, want=%v", got, want)
	}
	// audio PLL down, reported as zero.
	if got, want := freqs["clk_aud_pll"], rcc.Hertz(0); got != want {
		t.Fatalf("invalid clk_aud_pll: got=%v, want=%v", got, want)
	}
}

func TestSampleWithoutDevice(t *testing.T) {
	srv := NewServer("sf52-01")
	if _, err := srv.sample(); err == nil {
		t.Fatalf("expected an error without a device")
	}
}
