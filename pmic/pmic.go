// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pmic drives the companion power-management IC over SMBus.
//
// Boards pairing the SF32LB52x with the external PMIC route the audio
// analog supply through a dedicated LDO: the audio PLL bring-up wants
// that rail up before the bandgap settles.
package pmic // import "github.com/go-sifli/sf52/pmic"

import (
	"fmt"

	"github.com/go-daq/smbus"
)

// DefaultAddr is the PMIC SMBus address.
const DefaultAddr = 0x41

// chip registers.
const (
	regChipID  = 0x00
	regBuckCtl = 0x01
	regBuckVo  = 0x02
	regLdoCtl  = 0x03
	regStatus  = 0x04

	chipID = 0x52

	ldoAudioEn = 1 << 0
	stPowerOK  = 1 << 0
)

// core buck output: 600 mV + 25 mV per code step.
const (
	buckMinMV  = 600
	buckMaxMV  = 1400
	buckStepMV = 25
)

// Bus is the SMBus access the driver needs.
type Bus interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
}

var _ Bus = (*smbus.Conn)(nil)

// PMIC drives one power-management IC.
type PMIC struct {
	bus  Bus
	addr uint8
}

// Open connects to the PMIC at addr on the given SMBus.
func Open(bus int, addr uint8) (*PMIC, error) {
	c, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("pmic: could not open smbus-%d: %w", bus, err)
	}
	return New(c, addr)
}

// New binds the PMIC on an already open bus and checks its identity.
func New(bus Bus, addr uint8) (*PMIC, error) {
	id, err := bus.ReadReg(addr, regChipID)
	if err != nil {
		return nil, fmt.Errorf("pmic: could not read chip ID: %w", err)
	}
	if id != chipID {
		return nil, fmt.Errorf("pmic: invalid chip ID 0x%02x (want 0x%02x)", id, chipID)
	}
	return &PMIC{bus: bus, addr: addr}, nil
}

// EnableAudio powers the audio analog LDO.
func (p *PMIC) EnableAudio() error {
	return p.mod(regLdoCtl, ldoAudioEn, 0)
}

// DisableAudio cuts the audio analog LDO.
func (p *PMIC) DisableAudio() error {
	return p.mod(regLdoCtl, 0, ldoAudioEn)
}

// SetCoreMillivolts programs the core buck output voltage.
func (p *PMIC) SetCoreMillivolts(mv int) error {
	if mv < buckMinMV || mv > buckMaxMV || (mv-buckMinMV)%buckStepMV != 0 {
		return fmt.Errorf(
			"pmic: invalid core voltage %d mV (range %d-%d, step %d)",
			mv, buckMinMV, buckMaxMV, buckStepMV,
		)
	}
	code := uint8((mv - buckMinMV) / buckStepMV)
	if err := p.bus.WriteReg(p.addr, regBuckVo, code); err != nil {
		return fmt.Errorf("pmic: could not set core voltage: %w", err)
	}
	return nil
}

// CoreMillivolts returns the programmed core buck output voltage.
func (p *PMIC) CoreMillivolts() (int, error) {
	code, err := p.bus.ReadReg(p.addr, regBuckVo)
	if err != nil {
		return 0, fmt.Errorf("pmic: could not read core voltage: %w", err)
	}
	return buckMinMV + int(code)*buckStepMV, nil
}

// PowerGood reports whether every enabled rail is in regulation.
func (p *PMIC) PowerGood() (bool, error) {
	st, err := p.bus.ReadReg(p.addr, regStatus)
	if err != nil {
		return false, fmt.Errorf("pmic: could not read status: %w", err)
	}
	return st&stPowerOK != 0, nil
}

func (p *PMIC) mod(reg, set, clr uint8) error {
	v, err := p.bus.ReadReg(p.addr, reg)
	if err != nil {
		return fmt.Errorf("pmic: could not read register 0x%02x: %w", reg, err)
	}
	v &^= clr
	v |= set
	if err := p.bus.WriteReg(p.addr, reg, v); err != nil {
		return fmt.Errorf("pmic: could not write register 0x%02x: %w", reg, err)
	}
	return nil
}
