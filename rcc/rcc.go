// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rcc resolves the HPSYS clock tree of the SF32LB52x.
//
// Every query walks the live register state: no frequency is cached
// inside this package except the audio-PLL output, which is not
// derivable from any RCC register and is published by the audpll
// lifecycle (see SetAudPll/ClearAudPll).
//
// Register access failures are sticky: the getters report the affected
// node as disabled, and Err holds the failure until ClearErr.
package rcc // import "github.com/go-sifli/sf52/rcc"

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
)

// Hertz is a clock frequency.
type Hertz uint32

const (
	KHz Hertz = 1_000
	MHz Hertz = 1_000_000
)

func (f Hertz) String() string {
	switch {
	case f >= MHz && f%MHz == 0:
		return fmt.Sprintf("%d MHz", f/MHz)
	case f >= MHz:
		return fmt.Sprintf("%d.%03d MHz", f/MHz, (f%MHz)/KHz)
	case f >= KHz && f%KHz == 0:
		return fmt.Sprintf("%d kHz", f/KHz)
	case f >= KHz:
		return fmt.Sprintf("%d.%03d kHz", f/KHz, f%KHz)
	default:
		return fmt.Sprintf("%d Hz", uint32(f))
	}
}

// SysSource selects the clk_sys upstream.
type SysSource uint8

const (
	SysHrc48 SysSource = regs.SEL_SYS_HRC48
	SysHxt48 SysSource = regs.SEL_SYS_HXT48
	SysDbl96 SysSource = regs.SEL_SYS_DBL96
	SysDll1  SysSource = regs.SEL_SYS_DLL1
)

func (s SysSource) String() string {
	switch s {
	case SysHrc48:
		return "hrc48"
	case SysHxt48:
		return "hxt48"
	case SysDbl96:
		return "dbl96"
	case SysDll1:
		return "dll1"
	}
	return fmt.Sprintf("SysSource(%d)", int(s))
}

// PeriSource selects the clk_peri upstream.
type PeriSource uint8

const (
	PeriHxt48 PeriSource = regs.SEL_PERI_HXT48
	PeriHrc48 PeriSource = regs.SEL_PERI_HRC48
)

// UsbSource selects the clk_usb upstream.
type UsbSource uint8

const (
	UsbClkSys UsbSource = regs.SEL_USBC_CLK_SYS
	UsbDll2   UsbSource = regs.SEL_USBC_DLL2
)

// audPllHz is the process-wide audio-PLL frequency cache. Zero means
// the PLL is down. Single-core access discipline: only the audpll
// lifecycle writes it.
var audPllHz atomic.Uint32

// SetAudPll publishes the audio-PLL output frequency.
func SetAudPll(f Hertz) { audPllHz.Store(uint32(f)) }

// ClearAudPll marks the audio PLL as down.
func ClearAudPll() { audPllHz.Store(0) }

// RCC resolves clock frequencies from the HPSYS_RCC and HPSYS_AON
// register files.
type RCC struct {
	p *bus.Port
}

func New(rw bus.ReadWriter) *RCC {
	return &RCC{p: bus.New(rw)}
}

func (rcc *RCC) u32(off int64) uint32 {
	return rcc.p.U32(off)
}

// Err reports the first register access failure since the last
// ClearErr. Frequency getters report an unreadable node as disabled;
// Err tells that apart from a node that is genuinely down.
func (rcc *RCC) Err() error { return rcc.p.Err() }

// ClearErr drops the sticky access error.
func (rcc *RCC) ClearErr() { rcc.p.ClearErr() }

// Hxt48 returns the 48 MHz crystal oscillator frequency while its
// ready bit is set.
func (rcc *RCC) Hxt48() (Hertz, bool) {
	if rcc.u32(regs.AON_ACR)&regs.AON_HXT48_RDY == 0 {
		return 0, false
	}
	return 48 * MHz, true
}

// Hrc48 returns the 48 MHz RC oscillator frequency while its ready
// bit is set.
func (rcc *RCC) Hrc48() (Hertz, bool) {
	if rcc.u32(regs.AON_ACR)&regs.AON_HRC48_RDY == 0 {
		return 0, false
	}
	return 48 * MHz, true
}

func (rcc *RCC) dll(off int64) (Hertz, bool) {
	cr := rcc.u32(off)
	if cr&regs.DLL_EN == 0 {
		return 0, false
	}
	stg := (cr & regs.MASK_DLL_STG) >> regs.SHIFT_DLL_STG
	div := Hertz(1)
	if cr&regs.DLL_OUT_DIV2_EN != 0 {
		div = 2
	}
	return 24 * MHz * Hertz(stg+1) / div, true
}

// Dll1 returns the DLL1 output frequency while the DLL is enabled.
func (rcc *RCC) Dll1() (Hertz, bool) { return rcc.dll(regs.RCC_DLL1CR) }

// Dll2 returns the DLL2 output frequency while the DLL is enabled.
func (rcc *RCC) Dll2() (Hertz, bool) { return rcc.dll(regs.RCC_DLL2CR) }

// SysSource returns the currently selected clk_sys upstream.
func (rcc *RCC) SysSource() SysSource {
	return SysSource((rcc.u32(regs.RCC_CSR) & regs.MASK_SEL_SYS) >> regs.SHIFT_SEL_SYS)
}

// ClkSys returns the system clock frequency.
func (rcc *RCC) ClkSys() (Hertz, bool) {
	switch rcc.SysSource() {
	case SysHrc48:
		return rcc.Hrc48()
	case SysHxt48:
		return rcc.Hxt48()
	case SysDll1:
		return rcc.Dll1()
	default:
		// dbl96 is not wired on this chip family.
		return 0, false
	}
}

// PeriSource returns the currently selected clk_peri upstream.
func (rcc *RCC) PeriSource() PeriSource {
	return PeriSource((rcc.u32(regs.RCC_CSR) & regs.MASK_SEL_PERI) >> regs.SHIFT_SEL_PERI)
}

// ClkPeri returns the peripheral clock frequency.
func (rcc *RCC) ClkPeri() (Hertz, bool) {
	switch rcc.PeriSource() {
	case PeriHxt48:
		return rcc.Hxt48()
	default:
		return rcc.Hrc48()
	}
}

// ClkPeriDiv2 returns half the peripheral clock frequency.
func (rcc *RCC) ClkPeriDiv2() (Hertz, bool) {
	f, ok := rcc.ClkPeri()
	if !ok {
		return 0, false
	}
	return f / 2, true
}

// HDiv returns the hclk divider.
func (rcc *RCC) HDiv() uint8 {
	return uint8((rcc.u32(regs.RCC_CFGR) & regs.MASK_HDIV) >> regs.SHIFT_HDIV)
}

// HClk returns the AHB clock frequency.
func (rcc *RCC) HClk() (Hertz, bool) {
	sys, ok := rcc.ClkSys()
	if !ok {
		return 0, false
	}
	div := rcc.HDiv()
	if div == 0 {
		// reset value, divider bypassed
		div = 1
	}
	return sys / Hertz(div), true
}

// PClk1 returns the APB1 clock frequency.
func (rcc *RCC) PClk1() (Hertz, bool) {
	hclk, ok := rcc.HClk()
	if !ok {
		return 0, false
	}
	pdiv := (rcc.u32(regs.RCC_CFGR) & regs.MASK_PDIV1) >> regs.SHIFT_PDIV1
	return hclk / Hertz(uint32(1)<<pdiv), true
}

// PClk2 returns the APB2 clock frequency.
func (rcc *RCC) PClk2() (Hertz, bool) {
	hclk, ok := rcc.HClk()
	if !ok {
		return 0, false
	}
	pdiv := (rcc.u32(regs.RCC_CFGR) & regs.MASK_PDIV2) >> regs.SHIFT_PDIV2
	return hclk / Hertz(uint32(1)<<pdiv), true
}

// UsbSource returns the currently selected clk_usb upstream.
func (rcc *RCC) UsbSource() UsbSource {
	return UsbSource((rcc.u32(regs.RCC_CSR) & regs.MASK_SEL_USBC) >> regs.SHIFT_SEL_USBC)
}

// ClkUsb returns the USB controller clock frequency.
func (rcc *RCC) ClkUsb() (Hertz, bool) {
	var (
		f  Hertz
		ok bool
	)
	switch rcc.UsbSource() {
	case UsbDll2:
		f, ok = rcc.Dll2()
	default:
		f, ok = rcc.ClkSys()
	}
	if !ok {
		return 0, false
	}
	div := (rcc.u32(regs.RCC_USBCR) & regs.MASK_USB_DIV) >> regs.SHIFT_USB_DIV
	if div == 0 {
		div = 1
	}
	return f / Hertz(div), true
}

// ClkAudPll returns the audio-PLL output frequency published by the
// audpll lifecycle.
func (rcc *RCC) ClkAudPll() (Hertz, bool) {
	f := Hertz(audPllHz.Load())
	return f, f != 0
}

// ClkAudPllDiv16 returns a sixteenth of the audio-PLL output.
func (rcc *RCC) ClkAudPllDiv16() (Hertz, bool) {
	f, ok := rcc.ClkAudPll()
	if !ok {
		return 0, false
	}
	return f / 16, true
}

// EnableReset enables and reset-pulses the peripherals selected by
// mask in the ENR1/RSTR1 register pair.
func (rcc *RCC) EnableReset(mask uint32) error {
	rcc.p.Mod32(regs.RCC_ENR1, mask, 0)
	rcc.p.Mod32(regs.RCC_RSTR1, mask, 0)
	rcc.p.Mod32(regs.RCC_RSTR1, 0, mask)
	if err := rcc.p.Err(); err != nil {
		rcc.p.ClearErr()
		return fmt.Errorf("rcc: could not enable+reset peripherals 0x%x: %w", mask, err)
	}
	return nil
}

// PrintClocks logs every clock-tree node, reporting "disabled" for
// nodes whose selected upstream is down.
func (rcc *RCC) PrintClocks(msg *log.Logger) {
	msg.Printf("clock frequencies:")
	for _, node := range []struct {
		name string
		freq func() (Hertz, bool)
	}{
		{"clk_sys", rcc.ClkSys},
		{"hclk", rcc.HClk},
		{"pclk1", rcc.PClk1},
		{"pclk2", rcc.PClk2},
		{"clk_peri", rcc.ClkPeri},
		{"clk_peri_div2", rcc.ClkPeriDiv2},
		{"clk_dll1", rcc.Dll1},
		{"clk_dll2", rcc.Dll2},
		{"hxt48", rcc.Hxt48},
		{"hrc48", rcc.Hrc48},
		{"clk_usb", rcc.ClkUsb},
		{"clk_aud_pll", rcc.ClkAudPll},
		{"clk_aud_pll_div16", rcc.ClkAudPllDiv16},
	} {
		f, ok := node.freq()
		if !ok {
			msg.Printf("  - %s: disabled", node.name)
			continue
		}
		msg.Printf("  - %s: %v", node.name, f)
	}
	if err := rcc.p.Err(); err != nil {
		msg.Printf("  register access error: %+v", err)
	}
}
