// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package i2s configures the serial audio interface clocking.
//
// The interface runs off the audio PLL and holds a reference on it for
// its whole lifetime: the PLL cannot be powered down while an I2S
// stream is configured.
package i2s // import "github.com/go-sifli/sf52/i2s"

import (
	"fmt"

	"github.com/go-sifli/sf52/audpll"
	"github.com/go-sifli/sf52/rcc"
)

// Config describes one audio stream.
type Config struct {
	Rate     audpll.SampleRate
	BitDepth int // bits per sample: 16, 24 or 32
	Channels int
}

func (cfg Config) validate() error {
	switch cfg.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("i2s: invalid bit depth %d", cfg.BitDepth)
	}
	if cfg.Channels < 1 || cfg.Channels > 2 {
		return fmt.Errorf("i2s: invalid channel count %d", cfg.Channels)
	}
	return nil
}

// I2S is a configured audio stream clock plan.
type I2S struct {
	ref *audpll.Ref
	cfg Config
	div uint32
}

// New derives the stream clocking from the running PLL. Asking for a
// sample rate outside the PLL family panics; a rate whose bit clock
// does not divide the PLL output evenly is an error.
func New(pll *audpll.PLL, cfg Config) (*I2S, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pll.AssertCompatible(cfg.Rate)

	ref, err := pll.Borrow()
	if err != nil {
		return nil, fmt.Errorf("i2s: could not borrow PLL: %w", err)
	}

	var (
		src  = uint32(ref.Hertz())
		bclk = uint32(cfg.Rate) * uint32(cfg.BitDepth) * uint32(cfg.Channels)
	)
	if bclk == 0 || src%bclk != 0 {
		ref.Close()
		return nil, fmt.Errorf(
			"i2s: bit clock %v does not divide PLL output %v",
			rcc.Hertz(bclk), ref.Hertz(),
		)
	}
	return &I2S{ref: ref, cfg: cfg, div: src / bclk}, nil
}

// BitClock returns the serial bit clock frequency.
func (d *I2S) BitClock() rcc.Hertz {
	return rcc.Hertz(uint32(d.cfg.Rate) * uint32(d.cfg.BitDepth) * uint32(d.cfg.Channels))
}

// Div returns the PLL-to-bit-clock divider.
func (d *I2S) Div() uint32 { return d.div }

// Close releases the PLL reference.
func (d *I2S) Close() error {
	return d.ref.Close()
}
