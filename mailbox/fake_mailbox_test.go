// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"encoding/binary"
	"sync"

	"github.com/go-sifli/sf52/internal/regs"
)

// fakeState emulates the channel register files of both mailbox
// instances, including the destructive test-and-set semantics of the
// exclusive register and the raw/masked status plumbing.
type fakeState struct {
	mu  sync.Mutex
	mem []byte // plain backing store for registers with no side effects
	raw [2][NumChannels]uint16
	ier [2][NumChannels]uint16
	exr [2][NumChannels]uint32
}

func newFakeState() *fakeState {
	st := &fakeState{mem: make([]byte, regs.PERIPH_SPAN)}
	for inst := range st.exr {
		for ch := range st.exr[inst] {
			st.exr[inst][ch] = regs.MB_EXR_EX // unlocked
		}
	}
	return st
}

// fakeBus is one core's view of the shared register files. The core
// identity is what the hardware latches into the owner-ID field when
// this bus' read claims a mutex.
type fakeBus struct {
	st   *fakeState
	core LockCore
}

func (st *fakeState) bus(core LockCore) *fakeBus {
	return &fakeBus{st: st, core: core}
}

func decodeOff(off int64) (inst, ch int, reg int64, ok bool) {
	for i, base := range []int64{regs.MAILBOX1, regs.MAILBOX2} {
		if off < base || off >= base+NumChannels*regs.MB_CHAN_STRIDE {
			continue
		}
		rel := off - base
		return i, int(rel / regs.MB_CHAN_STRIDE), rel % regs.MB_CHAN_STRIDE, true
	}
	return 0, 0, 0, false
}

func (b *fakeBus) ReadAt(p []byte, off int64) (int, error) {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()

	inst, ch, reg, ok := decodeOff(off)
	if !ok {
		return copy(p, b.st.mem[off:off+int64(len(p))]), nil
	}

	var v uint32
	switch reg {
	case regs.MB_ISR:
		v = uint32(b.st.raw[inst][ch] & b.st.ier[inst][ch])
	case regs.MB_IER:
		v = uint32(b.st.ier[inst][ch])
	case regs.MB_EXR:
		v = b.st.exr[inst][ch]
		if v&regs.MB_EXR_EX != 0 {
			// destructive read: claim for this core
			b.st.exr[inst][ch] = uint32(b.core) << regs.SHIFT_MB_EXR_ID
		}
	}
	binary.LittleEndian.PutUint32(p, v)
	return len(p), nil
}

func (b *fakeBus) WriteAt(p []byte, off int64) (int, error) {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()

	inst, ch, reg, ok := decodeOff(off)
	if !ok {
		return copy(b.st.mem[off:], p), nil
	}

	v := binary.LittleEndian.Uint32(p)
	switch reg {
	case regs.MB_ITR:
		b.st.raw[inst][ch] |= uint16(v)
	case regs.MB_IER:
		b.st.ier[inst][ch] = uint16(v)
	case regs.MB_ICR:
		b.st.raw[inst][ch] &^= uint16(v)
	case regs.MB_EXR:
		if v&regs.MB_EXR_EX != 0 {
			b.st.exr[inst][ch] = regs.MB_EXR_EX
		}
	}
	return len(p), nil
}
