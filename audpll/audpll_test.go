// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package audpll

import (
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/go-sifli/sf52/internal/mmap"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/rcc"
)

func TestSampleRateFreq(t *testing.T) {
	for _, tc := range []struct {
		rate SampleRate
		freq Freq
		ok   bool
	}{
		{48000, Freq49_152, true},
		{32000, Freq49_152, true},
		{24000, Freq49_152, true},
		{16000, Freq49_152, true},
		{12000, Freq49_152, true},
		{8000, Freq49_152, true},
		{96000, Freq49_152, true},
		{192000, Freq49_152, true},
		{44100, Freq45_1584, true},
		{22050, Freq45_1584, true},
		{11025, Freq45_1584, true},
		{88200, 0, false},
		{44000, 0, false},
		{0, 0, false},
	} {
		freq, ok := tc.rate.Freq()
		if ok != tc.ok || freq != tc.freq {
			t.Errorf("%d Hz: got=(%v,%v), want=(%v,%v)", uint32(tc.rate), freq, ok, tc.freq, tc.ok)
		}
	}
}

func TestFreq(t *testing.T) {
	for _, tc := range []struct {
		freq Freq
		hz   rcc.Hertz
		fcw  uint32
		sdin uint32
	}{
		{Freq49_152, 49_152_000, 5, 201_327},
		{Freq45_1584, 45_158_400, 4, 551_970},
		{Freq44_1, 44_100_000, 4, 366_874},
	} {
		if got, want := tc.freq.Hertz(), tc.hz; got != want {
			t.Errorf("%v: invalid frequency: got=%v, want=%v", tc.freq, got, want)
		}
		fcw, sdin := tc.freq.sdm()
		if fcw != tc.fcw || sdin != tc.sdin {
			t.Errorf("%v: invalid SDM words: got=(%d,%d), want=(%d,%d)",
				tc.freq, fcw, sdin, tc.fcw, tc.sdin,
			)
		}
	}
}

// The halving-step search must land on a code whose count distance to
// the target equals the exhaustive minimum over all 32 codes, for any
// monotone count response, while measuring far fewer codes.
func TestCalibrateConvergence(t *testing.T) {
	for _, tc := range []struct {
		name string
		cnt  func(fc uint8) int
	}{
		{"centered", func(fc uint8) int { return 1600 + 16*int(fc) }},
		{"steep", func(fc uint8) int { return 1000 + 64*int(fc) }},
		{"shallow", func(fc uint8) int { return 1830 + int(fc) }},
		{"offset-low", func(fc uint8) int { return 1700 + 7*int(fc) }},
		{"offset-high", func(fc uint8) int { return 1841 + 11*int(fc) }},
		{"all-low", func(fc uint8) int { return 100 + int(fc) }},
		{"all-high", func(fc uint8) int { return 3000 + int(fc) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			measure := func(fc uint8) (uint16, error) {
				calls++
				return uint16(tc.cnt(fc)), nil
			}

			got, err := calibrate(measure)
			if err != nil {
				t.Fatalf("could not calibrate: %+v", err)
			}

			dist := func(fc uint8) int {
				d := tc.cnt(fc) - vcoTarget
				if d < 0 {
					d = -d
				}
				return d
			}
			best := dist(0)
			for fc := 1; fc <= vcoMax; fc++ {
				if d := dist(uint8(fc)); d < best {
					best = d
				}
			}
			if got, want := dist(got), best; got != want {
				t.Fatalf("invalid code distance: got=%d, want=%d", got, want)
			}
			if calls > 8 {
				t.Fatalf("too many measurements: %d", calls)
			}
		})
	}
}

// On equal distance the lower tuning code wins.
func TestCalibrateTie(t *testing.T) {
	measure := func(fc uint8) (uint16, error) {
		return uint16(1754 + 8*int(fc)), nil // codes 10 and 11 are 4 off
	}
	got, err := calibrate(measure)
	if err != nil {
		t.Fatalf("could not calibrate: %+v", err)
	}
	if got, want := got, uint8(10); got != want {
		t.Fatalf("invalid code: got=%d, want=%d", got, want)
	}
}

func newTestPLL(t *testing.T, freq Freq) *PLL {
	t.Helper()
	win := mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))
	pll, err := New(win, freq)
	if err != nil {
		t.Fatalf("could not create PLL: %+v", err)
	}
	pll.msg = log.New(ioutil.Discard, "audpll: ", 0)
	pll.slp = func(time.Duration) {}
	pll.measure = func(fc uint8) (uint16, error) {
		return uint16(1600 + 16*int(fc)), nil
	}
	return pll
}

func TestLifecycle(t *testing.T) {
	pll := newTestPLL(t, Freq49_152)

	if _, err := pll.Borrow(); err == nil {
		t.Fatalf("expected an error borrowing a stopped PLL")
	}

	if err := pll.Start(); err != nil {
		t.Fatalf("could not start PLL: %+v", err)
	}
	if err := pll.Start(); err == nil {
		t.Fatalf("expected an error starting twice")
	}

	freq, ok := rcc.New(mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))).ClkAudPll()
	if !ok || freq != 49_152_000 {
		t.Fatalf("output not published: freq=%v ok=%v", freq, ok)
	}

	ref, err := pll.Borrow()
	if err != nil {
		t.Fatalf("could not borrow: %+v", err)
	}
	if got, want := ref.Hertz(), rcc.Hertz(49_152_000); got != want {
		t.Fatalf("invalid reference frequency: got=%v, want=%v", got, want)
	}

	if err := pll.Close(); err == nil {
		t.Fatalf("expected an error closing with an outstanding reference")
	}
	if err := ref.Close(); err != nil {
		t.Fatalf("could not release reference: %+v", err)
	}

	if err := pll.Close(); err != nil {
		t.Fatalf("could not close PLL: %+v", err)
	}
	if _, ok := rcc.New(mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))).ClkAudPll(); ok {
		t.Fatalf("output still published after close")
	}
	if err := pll.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %+v", err)
	}
	if _, err := pll.Borrow(); err == nil {
		t.Fatalf("expected an error borrowing a closed PLL")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for double reference close")
		}
	}()
	_ = ref.Close()
}

func TestStartProgramsRegisters(t *testing.T) {
	win := mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))
	pll, err := New(win, Freq45_1584)
	if err != nil {
		t.Fatalf("could not create PLL: %+v", err)
	}
	defer pll.Close()
	pll.msg = log.New(ioutil.Discard, "audpll: ", 0)
	pll.slp = func(time.Duration) {}
	pll.measure = func(fc uint8) (uint16, error) {
		return uint16(1600 + 16*int(fc)), nil // optimum within one of 15
	}

	if err := pll.Start(); err != nil {
		t.Fatalf("could not start PLL: %+v", err)
	}

	u32 := func(off int64) uint32 {
		t.Helper()
		v, err := win.Uint32At(off)
		if err != nil {
			t.Fatalf("could not read register 0x%x: %+v", off, err)
		}
		return v
	}

	cfg0 := u32(regs.AUD_PLL_CFG0)
	if got, want := (cfg0&regs.MASK_PLL_FC_VCO)>>regs.SHIFT_PLL_FC_VCO, uint32(pll.fc); got != want {
		t.Fatalf("invalid tuning code: got=%d, want=%d", got, want)
	}
	if cfg0&regs.PLL_OPEN != 0 {
		t.Fatalf("loop still open after calibration")
	}
	if got, want := (cfg0&regs.MASK_PLL_ICP_SEL)>>regs.SHIFT_PLL_ICP_SEL, uint32(8); got != want {
		t.Fatalf("invalid charge pump current: got=%d, want=%d", got, want)
	}

	cfg1 := u32(regs.AUD_PLL_CFG1)
	for _, tf := range []struct {
		name  string
		mask  uint32
		shift uint32
		want  uint32
	}{
		{"r3", regs.MASK_PLL_R3_SEL, regs.SHIFT_PLL_R3_SEL, 3},
		{"rz", regs.MASK_PLL_RZ_SEL, regs.SHIFT_PLL_RZ_SEL, 1},
		{"c2", regs.MASK_PLL_C2_SEL, regs.SHIFT_PLL_C2_SEL, 3},
		{"cz", regs.MASK_PLL_CZ_SEL, regs.SHIFT_PLL_CZ_SEL, 6},
	} {
		if got := (cfg1 & tf.mask) >> tf.shift; got != tf.want {
			t.Fatalf("invalid loop filter %s: got=%d, want=%d", tf.name, got, tf.want)
		}
	}
	if cfg1&regs.PLL_CSD_EN != 0 {
		t.Fatalf("cycle-slip detector left armed after the lock check")
	}

	bg := u32(regs.AUD_BG_CFG0)
	if bg&regs.BG_EN == 0 {
		t.Fatalf("bandgap not enabled")
	}
	if bg&regs.BG_EN_SMPL != 0 {
		t.Fatalf("bandgap sampling switch left closed after settling")
	}

	cfg3 := u32(regs.AUD_PLL_CFG3)
	if got, want := (cfg3&regs.MASK_PLL_FCW)>>regs.SHIFT_PLL_FCW, uint32(4); got != want {
		t.Fatalf("invalid FCW: got=%d, want=%d", got, want)
	}
	if got, want := cfg3&regs.MASK_PLL_SDIN, uint32(551_970); got != want {
		t.Fatalf("invalid SDIN: got=%d, want=%d", got, want)
	}
	if cfg3&regs.PLL_EN_SDM == 0 {
		t.Fatalf("SDM not enabled")
	}
	if cfg3&regs.PLL_SDM_UPDATE != 0 {
		t.Fatalf("SDM update strobe left asserted")
	}

	if u32(regs.AUD_PLL_CFG2)&regs.PLL_RSTB == 0 {
		t.Fatalf("digital loop still in reset")
	}
	if u32(regs.PMUC_HXT_CR1)&regs.HXT_BUF_AUD_EN == 0 {
		t.Fatalf("crystal buffer not routed to audio domain")
	}
}

func TestSingleton(t *testing.T) {
	pll := newTestPLL(t, Freq49_152)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected a panic creating a second PLL")
			}
		}()
		win := mmap.HandleFrom(make([]byte, regs.PERIPH_SPAN))
		_, _ = New(win, Freq44_1)
	}()

	if err := pll.Close(); err != nil {
		t.Fatalf("could not close PLL: %+v", err)
	}

	// singleton released: a new PLL may be created.
	pll2 := newTestPLL(t, Freq44_1)
	if err := pll2.Close(); err != nil {
		t.Fatalf("could not close PLL: %+v", err)
	}
}

func TestAssertCompatible(t *testing.T) {
	pll := newTestPLL(t, Freq44_1)
	defer pll.Close()

	// the direct 44.1 MHz tap serves the 44.1 kHz family.
	pll.AssertCompatible(44100)
	pll.AssertCompatible(22050)

	for _, rate := range []SampleRate{48000, 5000} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected a panic for rate %d", uint32(rate))
				}
			}()
			pll.AssertCompatible(rate)
		}()
	}
}
