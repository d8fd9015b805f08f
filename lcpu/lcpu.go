// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lcpu controls the low-power core from the HCPU side: reset
// hold/release and the ROM configuration block the LCPU firmware
// parses during its boot.
//
// The configuration block lives in the shared LPSYS RAM at a
// revision-dependent base and must be in place before the LCPU leaves
// reset.
package lcpu // import "github.com/go-sifli/sf52/lcpu"

import (
	"encoding/binary"
	"fmt"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/patch"
	"github.com/go-sifli/sf52/syscfg"
)

// ROM config block layout. The block is parsed by LCPU ROM code, so
// the offsets are part of the silicon contract.
const (
	romConfigMagic = 0x4545_7878 // "xxEE"
	romConfigSize  = 204

	offEmConfig  = 32
	offActConfig = 116
	offBtConfig  = 172
	offTxPower   = offBtConfig + 20
	offIpcAddr   = 200

	// EmConfig partitions the exchange memory into numbered blocks.
	NumEmBlocks = 40
)

// EmConfig sizes the LCPU exchange-memory blocks, in bytes.
type EmConfig struct {
	Sizes [NumEmBlocks]uint16
}

// DefaultEmConfig returns the exchange-memory partitioning the LCPU
// ROM expects when no host override is present: large buffers for the
// first four transport blocks, uniform small blocks for the rest.
func DefaultEmConfig() EmConfig {
	var em EmConfig
	for i := range em.Sizes {
		em.Sizes[i] = 0x40
	}
	em.Sizes[0] = 0x200
	em.Sizes[1] = 0x200
	em.Sizes[2] = 0x100
	em.Sizes[3] = 0x100
	return em
}

// ActConfig bounds the LCPU scheduler.
type ActConfig struct {
	MaxActivities uint8
	MaxLinks      uint8
	SleepEnabled  bool
	WakeupTimeUs  uint16
	RcCalPeriodMs uint32
}

// DefaultActConfig returns the scheduler bounds of an unconstrained
// host.
func DefaultActConfig() ActConfig {
	return ActConfig{
		MaxActivities: 10,
		MaxLinks:      7,
		SleepEnabled:  true,
		WakeupTimeUs:  1500,
		RcCalPeriodMs: 60_000,
	}
}

// BtConfig carries the radio parameters handed to the LCPU.
type BtConfig struct {
	Bdaddr     [6]byte
	TxPowerDbm int8
	MaxTxPower int8
}

// DefaultBtConfig returns the radio defaults (address all-zero, to be
// replaced from the EFUSE UID by the boot sequence).
func DefaultBtConfig() BtConfig {
	return BtConfig{TxPowerDbm: 0, MaxTxPower: 10}
}

// RomConfig is the boot configuration block handed to the LCPU ROM.
type RomConfig struct {
	Em      EmConfig
	Act     ActConfig
	Bt      BtConfig
	IpcAddr uint32 // physical address of the HCPU->LCPU exchange buffer
}

// DefaultRomConfig returns a config block pointing the IPC exchange at
// its fixed shared-RAM buffer.
func DefaultRomConfig() RomConfig {
	return RomConfig{
		Em:      DefaultEmConfig(),
		Act:     DefaultActConfig(),
		Bt:      DefaultBtConfig(),
		IpcAddr: regs.LPSYS_RAM_BASE + regs.HCPU2LCPU_MB_CH1_BUF,
	}
}

func (cfg RomConfig) encode() []byte {
	buf := make([]byte, romConfigSize)
	binary.LittleEndian.PutUint32(buf[0:], romConfigMagic)
	binary.LittleEndian.PutUint16(buf[4:], romConfigSize)

	for i, size := range cfg.Em.Sizes {
		binary.LittleEndian.PutUint16(buf[offEmConfig+2*i:], size)
	}

	buf[offActConfig+0] = cfg.Act.MaxActivities
	buf[offActConfig+1] = cfg.Act.MaxLinks
	if cfg.Act.SleepEnabled {
		buf[offActConfig+2] = 1
	}
	binary.LittleEndian.PutUint16(buf[offActConfig+4:], cfg.Act.WakeupTimeUs)
	binary.LittleEndian.PutUint32(buf[offActConfig+8:], cfg.Act.RcCalPeriodMs)

	copy(buf[offBtConfig:], cfg.Bt.Bdaddr[:])
	buf[offTxPower+0] = byte(cfg.Bt.TxPowerDbm)
	buf[offTxPower+1] = byte(cfg.Bt.MaxTxPower)

	binary.LittleEndian.PutUint32(buf[offIpcAddr:], cfg.IpcAddr)
	return buf
}

// configBase returns the ROM config block offset for the chip
// revision.
func configBase(rev syscfg.ChipRevision) (int64, error) {
	typ, ok := rev.PatchType()
	if !ok {
		return 0, fmt.Errorf("lcpu: no ROM config layout for chip revision %v", rev)
	}
	if typ == syscfg.PatchA3 {
		return regs.ROM_CONFIG_A3, nil
	}
	return regs.ROM_CONFIG_LETTER, nil
}

// LCPU drives the low-power core: reset line on the peripheral window,
// boot data on the shared RAM window.
type LCPU struct {
	p   *bus.Port
	ram bus.ReadWriter
}

func New(periph, ram bus.ReadWriter) *LCPU {
	return &LCPU{p: bus.New(periph), ram: ram}
}

// Hold asserts the LCPU reset line.
func (l *LCPU) Hold() error {
	l.p.Mod32(regs.LPAON_CR, regs.LPAON_LCPU_HOLD, 0)
	if err := l.p.Err(); err != nil {
		l.p.ClearErr()
		return fmt.Errorf("lcpu: could not hold LCPU: %w", err)
	}
	return nil
}

// Release deasserts the LCPU reset line; the core boots from its ROM
// or flash image.
func (l *LCPU) Release() error {
	l.p.Mod32(regs.LPAON_CR, 0, regs.LPAON_LCPU_HOLD)
	if err := l.p.Err(); err != nil {
		l.p.ClearErr()
		return fmt.Errorf("lcpu: could not release LCPU: %w", err)
	}
	return nil
}

// Held reports whether the LCPU is held in reset.
func (l *LCPU) Held() (bool, error) {
	cr := l.p.U32(regs.LPAON_CR)
	if err := l.p.Err(); err != nil {
		l.p.ClearErr()
		return false, fmt.Errorf("lcpu: could not read reset state: %w", err)
	}
	return cr&regs.LPAON_LCPU_HOLD != 0, nil
}

// WriteConfig places the ROM config block at the base matching the
// chip revision.
func (l *LCPU) WriteConfig(rev syscfg.ChipRevision, cfg RomConfig) error {
	base, err := configBase(rev)
	if err != nil {
		return err
	}
	if _, err := l.ram.WriteAt(cfg.encode(), base); err != nil {
		return fmt.Errorf("lcpu: could not write ROM config: %w", err)
	}
	return nil
}

// InstallPatch installs an LCPU ROM patch. The LCPU must be held in
// reset while the patch regions change.
func (l *LCPU) InstallPatch(rev syscfg.ChipRevision, record, code []byte) error {
	held, err := l.Held()
	if err != nil {
		return err
	}
	if !held {
		return fmt.Errorf("lcpu: cannot patch while the LCPU is running")
	}
	return patch.Install(l.ram, rev, record, code)
}
