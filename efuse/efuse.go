// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package efuse reads the SF32LB52x one-time-programmable fuse banks.
//
// The controller timing is expressed in pclk cycles, so the driver
// must be told the current pclk before any access; the chip UID and
// factory trim values live in bank 0.
package efuse // import "github.com/go-sifli/sf52/efuse"

import (
	"errors"
	"fmt"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/rcc"
)

// Fuse-cell timing requirements and controller field limits.
const (
	readHoldNs     = 500
	progHoldNs     = 20
	progPulseNs    = 10_000
	maxPclk        = 120 * rcc.MHz
	limitReadHold  = 0x7F
	limitProgHold  = 0x07
	limitProgPulse = 0x7FF

	// NumBanks fuse banks of WordsPerBank words each.
	NumBanks     = 2
	WordsPerBank = 8
)

// ErrPclkUnknown means the timing cannot be derived because the pclk
// frequency is not known (bus clock disabled or not yet resolved).
var ErrPclkUnknown = errors.New("efuse: pclk frequency unknown")

// PclkTooFastError means pclk exceeds the controller maximum.
type PclkTooFastError struct {
	Freq rcc.Hertz
}

func (e PclkTooFastError) Error() string {
	return fmt.Sprintf("efuse: pclk %v exceeds the %v controller maximum", e.Freq, maxPclk)
}

// TimingOutOfRangeError means a computed cycle count does not fit its
// timing register field.
type TimingOutOfRangeError struct {
	Field  string
	Cycles uint32
	Limit  uint32
}

func (e TimingOutOfRangeError) Error() string {
	return fmt.Sprintf("efuse: %s needs %d cycles, field limit is %d", e.Field, e.Cycles, e.Limit)
}

// cycles returns the number of pclk cycles covering d nanoseconds,
// rounded up.
func cycles(ns uint64, pclk rcc.Hertz) uint32 {
	const nsPerSec = 1_000_000_000
	return uint32((ns*uint64(pclk) + nsPerSec - 1) / nsPerSec)
}

// EFuse drives the fuse controller.
type EFuse struct {
	p     *bus.Port
	timed bool
}

// New binds the fuse controller and enables its clock gate.
func New(rw bus.ReadWriter) (*EFuse, error) {
	e := &EFuse{p: bus.New(rw)}
	e.p.Mod32(regs.RCC_ENR1, regs.RCC_HP_EFUSEC, 0)
	if err := e.p.Err(); err != nil {
		e.p.ClearErr()
		return nil, fmt.Errorf("efuse: could not enable controller clock: %w", err)
	}
	return e, nil
}

// ConfigTiming programs the fuse-cell timing for the given pclk.
// It must be called before any bank access and again after every pclk
// change.
func (e *EFuse) ConfigTiming(pclk rcc.Hertz) error {
	if pclk == 0 {
		return ErrPclkUnknown
	}
	if pclk > maxPclk {
		return PclkTooFastError{Freq: pclk}
	}

	var (
		thrck = cycles(readHoldNs, pclk)
		thpck = cycles(progHoldNs, pclk)
		tckhp = cycles(progPulseNs, pclk)
	)
	for _, tf := range []struct {
		name   string
		cycles uint32
		limit  uint32
	}{
		{"read hold", thrck, limitReadHold},
		{"program hold", thpck, limitProgHold},
		{"program pulse", tckhp, limitProgPulse},
	} {
		if tf.cycles > tf.limit {
			return TimingOutOfRangeError{Field: tf.name, Cycles: tf.cycles, Limit: tf.limit}
		}
	}

	e.p.SetU32(regs.EFUSE_TIMR,
		thrck<<regs.SHIFT_EFUSE_THRCK|
			thpck<<regs.SHIFT_EFUSE_THPCK|
			tckhp<<regs.SHIFT_EFUSE_TCKHP)
	if err := e.p.Err(); err != nil {
		e.p.ClearErr()
		return fmt.Errorf("efuse: could not program timing: %w", err)
	}
	e.timed = true
	return nil
}

// ReadBank returns the words of one fuse bank.
func (e *EFuse) ReadBank(bank int) ([WordsPerBank]uint32, error) {
	var words [WordsPerBank]uint32
	if bank < 0 || bank >= NumBanks {
		panic(fmt.Errorf("efuse: invalid bank %d", bank))
	}
	if !e.timed {
		return words, fmt.Errorf("efuse: timing not configured")
	}

	base := int64(regs.EFUSE_BANK0_DATA)
	if bank == 1 {
		base = regs.EFUSE_BANK1_DATA
	}
	for i := range words {
		words[i] = e.p.U32(base + int64(4*i))
	}
	if err := e.p.Err(); err != nil {
		e.p.ClearErr()
		return words, fmt.Errorf("efuse: could not read bank %d: %w", bank, err)
	}
	return words, nil
}

// Uid returns the 64-bit factory chip identifier from bank 0.
func (e *EFuse) Uid() ([8]byte, error) {
	var uid [8]byte
	words, err := e.ReadBank(0)
	if err != nil {
		return uid, err
	}
	for i := 0; i < 4; i++ {
		uid[i] = byte(words[0] >> uint(8*i))
		uid[4+i] = byte(words[1] >> uint(8*i))
	}
	return uid, nil
}

// Bits extracts n bits starting at bit position pos from a fuse bank.
// Bit positions count from the LSB of word 0 and may straddle word
// boundaries. n must be 1-32.
func (e *EFuse) Bits(bank, pos, n int) (uint32, error) {
	words, err := e.ReadBank(bank)
	if err != nil {
		return 0, err
	}
	return getBits(words[:], pos, n), nil
}

func getBits(words []uint32, pos, n int) uint32 {
	if n < 1 || n > 32 {
		panic(fmt.Errorf("efuse: invalid bit count %d", n))
	}
	if pos < 0 || pos+n > 32*len(words) {
		panic(fmt.Errorf("efuse: bit range [%d,%d) out of bank", pos, pos+n))
	}
	var v uint32
	for i := 0; i < n; i++ {
		var (
			w = (pos + i) / 32
			b = uint((pos + i) % 32)
		)
		v |= (words[w] >> b & 1) << uint(i)
	}
	return v
}
