// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package audpll manages the SF32LB52x audio PLL.
//
// The PLL is a chip-wide singleton: at most one PLL value may exist in
// the process at a time, and New panics on a second. Start walks the
// analog bring-up (bandgap, reference, VCO calibration, SDM
// programming), publishes the output frequency to the rcc clock cache
// and Close tears everything down in reverse.
//
// Dependent peripherals hold a Ref while they use the PLL output;
// Close refuses to power down while references are outstanding.
//
// A PLL is not safe for concurrent use.
package audpll // import "github.com/go-sifli/sf52/audpll"

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/rcc"
)

// Freq selects the PLL output frequency. The two audio families are
// 48 kHz multiples (49.152 MHz) and 44.1 kHz multiples (45.1584 MHz);
// Freq44_1 is the direct 44.1 MHz tap used by legacy codec setups.
type Freq uint8

const (
	Freq49_152 Freq = iota
	Freq45_1584
	Freq44_1
)

// Hertz returns the nominal output frequency.
func (f Freq) Hertz() rcc.Hertz {
	switch f {
	case Freq49_152:
		return 49_152_000
	case Freq45_1584:
		return 45_158_400
	case Freq44_1:
		return 44_100_000
	}
	panic(fmt.Errorf("audpll: invalid frequency %d", int(f)))
}

func (f Freq) String() string {
	return f.Hertz().String()
}

// sdm returns the integer and 20-bit fractional words of the
// sigma-delta modulator for this output, assuming the 24 MHz SDM
// reference.
func (f Freq) sdm() (fcw, sdin uint32) {
	switch f {
	case Freq49_152:
		return 5, 201_327
	case Freq45_1584:
		return 4, 551_970
	case Freq44_1:
		return 4, 366_874
	}
	panic(fmt.Errorf("audpll: invalid frequency %d", int(f)))
}

// family folds the direct 44.1 MHz tap onto the 44.1 kHz family.
func (f Freq) family() Freq {
	if f == Freq44_1 {
		return Freq45_1584
	}
	return f
}

// SampleRate is an audio sample rate in Hz.
type SampleRate uint32

// Freq returns the PLL family serving this sample rate.
func (sr SampleRate) Freq() (Freq, bool) {
	switch sr {
	case 8000, 12000, 16000, 24000, 32000, 48000, 96000, 192000:
		return Freq49_152, true
	case 11025, 22050, 44100:
		return Freq45_1584, true
	}
	return 0, false
}

// VCO calibration parameters: with the counter window open for
// calWindow reference cycles, a centered VCO produces vcoTarget edges.
const (
	vcoTarget  = 1838
	calWindow  = 2000
	vcoInitial = 16
	vcoMax     = 31
)

// busy guards the singleton. Set by New, cleared by Close.
var busy atomic.Bool

// PLL drives the audio PLL block of the codec.
type PLL struct {
	p    *bus.Port
	msg  *log.Logger
	freq Freq

	fc      uint8 // calibrated VCO tuning code
	started bool
	closed  bool
	refs    int

	// hooks, replaced in tests
	measure func(fc uint8) (uint16, error)
	slp     func(d time.Duration)
	timeout time.Duration
}

// New claims the audio PLL for the given output frequency. The PLL is
// a hardware singleton: creating a second one before Close is a caller
// bug and panics.
func New(rw bus.ReadWriter, freq Freq) (*PLL, error) {
	freq.Hertz() // reject invalid selectors early

	if !busy.CompareAndSwap(false, true) {
		panic(fmt.Errorf("audpll: PLL already in use"))
	}

	pll := &PLL{
		p:       bus.New(rw),
		msg:     log.New(os.Stdout, "audpll: ", 0),
		freq:    freq,
		slp:     time.Sleep,
		timeout: 10 * time.Millisecond,
	}
	pll.measure = pll.measureVco

	pll.p.Mod32(regs.RCC_ENR1, regs.RCC_HP_AUDCODEC, 0)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		busy.Store(false)
		return nil, fmt.Errorf("audpll: could not enable codec clock: %w", err)
	}
	return pll, nil
}

// Freq returns the configured output frequency.
func (pll *PLL) Freq() Freq { return pll.freq }

// Start powers up and locks the PLL: crystal buffer, bandgap and
// reference generator, VCO calibration, SDM programming. A failed
// lock detection is reported as a warning, not an error; the SDM
// output is still usable while the loop settles.
func (pll *PLL) Start() error {
	if pll.closed {
		return fmt.Errorf("audpll: PLL is closed")
	}
	if pll.started {
		return fmt.Errorf("audpll: PLL already started")
	}

	// route the 48 MHz crystal into the audio domain and bring the
	// analog references up.
	pll.p.Mod32(regs.PMUC_HXT_CR1, regs.HXT_BUF_AUD_EN, 0)
	pll.p.Mod32(regs.AUD_BG_CFG0, regs.BG_EN|regs.BG_EN_SMPL, 0)
	pll.p.Mod32(regs.AUD_REFGEN_CFG, regs.REFGEN_EN, 0)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not enable references: %w", err)
	}
	pll.slp(100 * time.Microsecond)
	// the bandgap sampling switch is only closed for the settle time.
	pll.p.Mod32(regs.AUD_BG_CFG0, 0, regs.BG_EN_SMPL)

	// analog core, open loop for calibration.
	pll.p.SetU32(regs.AUD_PLL_CFG0,
		regs.PLL_EN_IARY|regs.PLL_EN_VCO|regs.PLL_EN_ANA|regs.PLL_OPEN|
			8<<regs.SHIFT_PLL_ICP_SEL|
			uint32(vcoInitial)<<regs.SHIFT_PLL_FC_VCO)
	pll.p.SetU32(regs.AUD_PLL_CFG1,
		3<<regs.SHIFT_PLL_R3_SEL|1<<regs.SHIFT_PLL_RZ_SEL|
			3<<regs.SHIFT_PLL_C2_SEL|6<<regs.SHIFT_PLL_CZ_SEL)
	pll.p.Mod32(regs.AUD_PLL_CAL_CFG,
		calWindow<<regs.SHIFT_PLL_CAL_LEN, regs.MASK_PLL_CAL_LEN)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not configure analog core: %w", err)
	}
	pll.slp(100 * time.Microsecond)

	fc, err := calibrate(pll.measure)
	if err != nil {
		return fmt.Errorf("audpll: could not calibrate VCO: %w", err)
	}
	pll.fc = fc
	pll.p.Mod32(regs.AUD_PLL_CFG0,
		uint32(fc)<<regs.SHIFT_PLL_FC_VCO, regs.MASK_PLL_FC_VCO|regs.PLL_OPEN)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not close loop: %w", err)
	}

	if err := pll.program(); err != nil {
		return err
	}

	if err := pll.lockCheck(); err != nil {
		pll.msg.Printf("warning: %v", err)
	}

	pll.started = true
	rcc.SetAudPll(pll.freq.Hertz())
	pll.msg.Printf("running at %v (fc=%d)", pll.freq, pll.fc)
	return nil
}

// program loads the SDM divider words and releases the digital loop
// from reset.
func (pll *PLL) program() error {
	fcw, sdin := pll.freq.sdm()

	// digital loop held in reset while the divider words change.
	pll.p.Mod32(regs.AUD_PLL_CFG2, regs.PLL_EN_DIG|regs.PLL_EN_LF_VCIN, regs.PLL_RSTB)
	pll.p.SetU32(regs.AUD_PLL_CFG3,
		sdin<<regs.SHIFT_PLL_SDIN|fcw<<regs.SHIFT_PLL_FCW|regs.PLL_EN_SDM)
	pll.p.Mod32(regs.AUD_PLL_CFG3, regs.PLL_SDM_UPDATE, 0)
	pll.p.Mod32(regs.AUD_PLL_CFG3, 0, regs.PLL_SDM_UPDATE)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not program SDM: %w", err)
	}
	pll.slp(10 * time.Microsecond)

	pll.p.Mod32(regs.AUD_PLL_CFG2, regs.PLL_RSTB, 0)
	pll.p.Mod32(regs.AUD_PLL_CFG4, regs.PLL_EN_CLK_DIG, 0)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not release digital loop: %w", err)
	}
	return nil
}

// lockCheck arms the cycle-slip detector, samples the unlock flag
// after the loop settling time and disarms the detector again.
func (pll *PLL) lockCheck() error {
	pll.p.Mod32(regs.AUD_PLL_CFG1, regs.PLL_CSD_EN|regs.PLL_CSD_RST, 0)
	pll.p.Mod32(regs.AUD_PLL_CFG1, 0, regs.PLL_CSD_RST)
	pll.slp(500 * time.Microsecond)
	stat := pll.p.U32(regs.AUD_PLL_STAT)
	pll.p.Mod32(regs.AUD_PLL_CFG1, 0, regs.PLL_CSD_EN)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("could not read lock status: %w", err)
	}
	if stat&regs.PLL_UNLOCK != 0 {
		return fmt.Errorf("PLL did not report lock at %v", pll.freq)
	}
	return nil
}

// measureVco programs the tuning code, runs one calibration window and
// returns the VCO edge count.
func (pll *PLL) measureVco(fc uint8) (uint16, error) {
	pll.p.Mod32(regs.AUD_PLL_CFG0, uint32(fc)<<regs.SHIFT_PLL_FC_VCO, regs.MASK_PLL_FC_VCO)
	pll.p.Mod32(regs.AUD_PLL_CAL_CFG, regs.PLL_CAL_EN, 0)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return 0, fmt.Errorf("could not start calibration (fc=%d): %w", fc, err)
	}

	deadline := time.Now().Add(pll.timeout)
	for pll.p.U32(regs.AUD_PLL_CAL_CFG)&regs.PLL_CAL_DONE == 0 {
		if err := pll.p.Err(); err != nil {
			pll.p.ClearErr()
			return 0, fmt.Errorf("could not poll calibration (fc=%d): %w", fc, err)
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("calibration timeout (fc=%d)", fc)
		}
		pll.slp(10 * time.Microsecond)
	}

	cnt := pll.p.U32(regs.AUD_PLL_CAL_RES) & regs.MASK_PLL_CNT
	pll.p.Mod32(regs.AUD_PLL_CAL_CFG, 0, regs.PLL_CAL_EN)
	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return 0, fmt.Errorf("could not read calibration count (fc=%d): %w", fc, err)
	}
	return uint16(cnt), nil
}

// calibrate searches the 5-bit VCO tuning range for the code whose
// edge count sits closest to vcoTarget. The count grows with the code,
// so a halving-step descent from the midpoint lands within one code of
// the optimum; a final pass over the neighbors settles it, preferring
// the lower code on equal distance.
func calibrate(measure func(fc uint8) (uint16, error)) (uint8, error) {
	fc := vcoInitial
	for step := 8; step > 0; step >>= 1 {
		cnt, err := measure(uint8(fc))
		if err != nil {
			return 0, err
		}
		switch {
		case int(cnt) < vcoTarget:
			fc += step
		case int(cnt) > vcoTarget:
			fc -= step
		default:
			return uint8(fc), nil
		}
		if fc < 0 {
			fc = 0
		}
		if fc > vcoMax {
			fc = vcoMax
		}
	}

	best, dist := -1, int(^uint(0)>>1)
	for _, cand := range []int{fc - 1, fc + 1, fc} {
		if cand < 0 || cand > vcoMax {
			continue
		}
		cnt, err := measure(uint8(cand))
		if err != nil {
			return 0, err
		}
		d := int(cnt) - vcoTarget
		if d < 0 {
			d = -d
		}
		if d < dist {
			best, dist = cand, d
		}
	}
	return uint8(best), nil
}

// AssertCompatible panics unless the sample rate belongs to the family
// this PLL is generating. Clocking a peripheral off the wrong family
// is a programming error, not a runtime condition.
func (pll *PLL) AssertCompatible(rate SampleRate) {
	f, ok := rate.Freq()
	if !ok {
		panic(fmt.Errorf("audpll: unsupported sample rate %d Hz", uint32(rate)))
	}
	if f.family() != pll.freq.family() {
		panic(fmt.Errorf(
			"audpll: sample rate %d Hz needs %v, PLL runs at %v",
			uint32(rate), f, pll.freq,
		))
	}
}

// Borrow hands out a reference to the PLL output. Close fails while
// references are outstanding.
func (pll *PLL) Borrow() (*Ref, error) {
	if pll.closed {
		return nil, fmt.Errorf("audpll: PLL is closed")
	}
	if !pll.started {
		return nil, fmt.Errorf("audpll: PLL not started")
	}
	pll.refs++
	return &Ref{pll: pll}, nil
}

// Close powers the PLL down in reverse bring-up order and releases the
// singleton. Closing twice is a no-op.
func (pll *PLL) Close() error {
	if pll.closed {
		return nil
	}
	if pll.refs != 0 {
		return fmt.Errorf("audpll: %d outstanding reference(s)", pll.refs)
	}

	rcc.ClearAudPll()
	pll.p.Mod32(regs.AUD_PLL_CFG4, 0, regs.PLL_EN_CLK_DIG)
	pll.p.Mod32(regs.AUD_PLL_CFG3, 0, regs.PLL_EN_SDM)
	pll.p.Mod32(regs.AUD_PLL_CFG2, 0, regs.PLL_EN_DIG|regs.PLL_EN_LF_VCIN|regs.PLL_RSTB)
	pll.p.Mod32(regs.AUD_PLL_CFG1, 0, regs.PLL_CSD_EN)
	pll.p.Mod32(regs.AUD_PLL_CFG0, 0, regs.PLL_EN_IARY|regs.PLL_EN_VCO|regs.PLL_EN_ANA)
	pll.p.Mod32(regs.AUD_REFGEN_CFG, 0, regs.REFGEN_EN)
	pll.p.Mod32(regs.AUD_BG_CFG0, 0, regs.BG_EN|regs.BG_EN_SMPL)
	pll.p.Mod32(regs.PMUC_HXT_CR1, 0, regs.HXT_BUF_AUD_EN)
	pll.p.Mod32(regs.RCC_ENR1, 0, regs.RCC_HP_AUDCODEC)

	pll.closed = true
	pll.started = false
	busy.Store(false)

	if err := pll.p.Err(); err != nil {
		pll.p.ClearErr()
		return fmt.Errorf("audpll: could not power down: %w", err)
	}
	return nil
}

// Ref is a borrowed handle on the running PLL output.
type Ref struct {
	pll    *PLL
	closed bool
}

// Freq returns the frequency of the borrowed output.
func (r *Ref) Freq() Freq { return r.pll.freq }

// Hertz returns the frequency of the borrowed output in Hz.
func (r *Ref) Hertz() rcc.Hertz { return r.pll.freq.Hertz() }

// Close returns the reference. Closing twice is a caller bug and
// panics.
func (r *Ref) Close() error {
	if r.closed {
		panic(fmt.Errorf("audpll: close of released reference"))
	}
	r.closed = true
	r.pll.refs--
	return nil
}
