// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mailbox drives the SF32LB52x inter-processor mailboxes.
//
// The silicon wires the two mailbox instances asymmetrically: from the
// HCPU's point of view MAILBOX1 is transmit-only (trigger LCPU
// interrupts, hardware mutex) and MAILBOX2 carries the receive side
// (interrupt enable/pending/clear). The Sender and Receiver types
// preserve that split instead of presenting a bidirectional channel.
//
// The hardware mutex is a destructive read: reading the exclusive
// register claims the lock when it is free. TryLock is the only way to
// perform that read and returns an ownership guard; LockStatus re-
// releases immediately if its read happened to claim the lock.
package mailbox // import "github.com/go-sifli/sf52/mailbox"

import (
	"fmt"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
)

// NumChannels is the per-instance channel count of this chip family.
const NumChannels = regs.MB_NCHAN

// Channel identifies one mailbox lane.
type Channel struct {
	idx uint8
}

var (
	CH0 = Channel{0}
	CH1 = Channel{1}
	CH2 = Channel{2}
	CH3 = Channel{3}
)

// Chan returns channel i. Out-of-range indices are a caller bug and
// panic.
func Chan(i int) Channel {
	if i < 0 || i >= NumChannels {
		panic(fmt.Errorf("mailbox: invalid channel index %d", i))
	}
	return Channel{uint8(i)}
}

// Index returns the channel index.
func (ch Channel) Index() int { return int(ch.idx) }

func (ch Channel) reg(base, reg int64) int64 {
	return base + int64(ch.idx)*regs.MB_CHAN_STRIDE + reg
}

// LockCore is the hardware-mutex owner as decoded from the exclusive
// register at query time.
type LockCore uint8

const (
	Unlocked LockCore = 0
	Hcpu     LockCore = 1
	Lcpu     LockCore = 2
	Bcpu     LockCore = 3
)

func lockCore(exr uint32) LockCore {
	return LockCore((exr & regs.MASK_MB_EXR_ID) >> regs.SHIFT_MB_EXR_ID)
}

// IsLocked reports whether some core holds the lock.
func (c LockCore) IsLocked() bool { return c != Unlocked }

func (c LockCore) String() string {
	switch c {
	case Unlocked:
		return "unlocked"
	case Hcpu:
		return "hcpu"
	case Lcpu:
		return "lcpu"
	case Bcpu:
		return "bcpu"
	}
	return fmt.Sprintf("LockCore(%d)", int(c))
}

// Sender is the transmit-capable mailbox instance (MAILBOX1 from the
// HCPU): interrupt triggers toward the remote core and the hardware
// mutex.
type Sender struct {
	p    *bus.Port
	base int64
}

// NewSender binds the transmit mailbox and enables its clock gate.
func NewSender(rw bus.ReadWriter) (*Sender, error) {
	mb := &Sender{p: bus.New(rw), base: regs.MAILBOX1}
	mb.p.Mod32(regs.RCC_ENR1, regs.RCC_HP_MAILBOX1, 0)
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return nil, fmt.Errorf("mailbox: could not enable MAILBOX1 clock: %w", err)
	}
	return mb, nil
}

// Trigger asserts one interrupt bit toward the remote core. Bits are
// edge-triggered and fire-and-forget: no acknowledgement exists.
// bit must be 0-15.
func (mb *Sender) Trigger(ch Channel, bit int) error {
	if bit < 0 || bit > 15 {
		panic(fmt.Errorf("mailbox: invalid trigger bit %d", bit))
	}
	return mb.TriggerMask(ch, 1<<uint(bit))
}

// TriggerMask asserts every set bit of mask toward the remote core.
func (mb *Sender) TriggerMask(ch Channel, mask uint16) error {
	mb.p.SetU32(ch.reg(mb.base, regs.MB_ITR), uint32(mask))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return fmt.Errorf("mailbox: could not trigger ch%d mask=0x%04x: %w", ch.idx, mask, err)
	}
	return nil
}

// TryLock attempts to claim the channel's hardware mutex. On success
// the returned Lock is non-nil and owner is Unlocked; otherwise owner
// identifies the core holding the lock.
//
// The claim is performed by the hardware on the register read itself.
func (mb *Sender) TryLock(ch Channel) (*Lock, LockCore, error) {
	exr := mb.p.U32(ch.reg(mb.base, regs.MB_EXR))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return nil, Unlocked, fmt.Errorf("mailbox: could not read ch%d mutex: %w", ch.idx, err)
	}
	if exr&regs.MB_EXR_EX != 0 {
		return &Lock{mb: mb, ch: ch}, Unlocked, nil
	}
	return nil, lockCore(exr), nil
}

// LockStatus peeks at the channel's mutex owner. The hardware offers
// no side-effect-free read: if the probing read claims the lock, it is
// released again before returning Unlocked.
func (mb *Sender) LockStatus(ch Channel) (LockCore, error) {
	exr := mb.p.U32(ch.reg(mb.base, regs.MB_EXR))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return Unlocked, fmt.Errorf("mailbox: could not read ch%d mutex: %w", ch.idx, err)
	}
	if exr&regs.MB_EXR_EX != 0 {
		mb.p.SetU32(ch.reg(mb.base, regs.MB_EXR), regs.MB_EXR_EX)
		if err := mb.p.Err(); err != nil {
			mb.p.ClearErr()
			return Unlocked, fmt.Errorf("mailbox: could not re-release ch%d mutex: %w", ch.idx, err)
		}
		return Unlocked, nil
	}
	return lockCore(exr), nil
}

// Lock is the ownership guard for a claimed hardware mutex.
type Lock struct {
	mb       *Sender
	ch       Channel
	released bool
}

// Unlock releases the mutex. The hardware does not check ownership on
// release, so unlocking twice would silently corrupt exclusivity;
// doing so is a caller bug and panics.
func (l *Lock) Unlock() error {
	if l.released {
		panic(fmt.Errorf("mailbox: unlock of released ch%d mutex", l.ch.idx))
	}
	l.released = true
	l.mb.p.SetU32(l.ch.reg(l.mb.base, regs.MB_EXR), regs.MB_EXR_EX)
	if err := l.mb.p.Err(); err != nil {
		l.mb.p.ClearErr()
		return fmt.Errorf("mailbox: could not release ch%d mutex: %w", l.ch.idx, err)
	}
	return nil
}

// Receiver is the receive side (MAILBOX2 wiring): interrupt masking
// and acknowledgement for triggers coming from the remote core.
type Receiver struct {
	p    *bus.Port
	base int64
}

// NewReceiver binds the receive mailbox register file.
func NewReceiver(rw bus.ReadWriter) *Receiver {
	return &Receiver{p: bus.New(rw), base: regs.MAILBOX2}
}

// Enable unmasks the interrupt bits in mask for the channel.
func (mb *Receiver) Enable(ch Channel, mask uint16) error {
	mb.p.Mod32(ch.reg(mb.base, regs.MB_IER), uint32(mask), 0)
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return fmt.Errorf("mailbox: could not enable ch%d mask=0x%04x: %w", ch.idx, mask, err)
	}
	return nil
}

// Disable masks the interrupt bits in mask for the channel.
func (mb *Receiver) Disable(ch Channel, mask uint16) error {
	mb.p.Mod32(ch.reg(mb.base, regs.MB_IER), 0, uint32(mask))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return fmt.Errorf("mailbox: could not disable ch%d mask=0x%04x: %w", ch.idx, mask, err)
	}
	return nil
}

// Pending returns the channel's masked status (raw status AND enable
// mask).
func (mb *Receiver) Pending(ch Channel) (uint16, error) {
	isr := mb.p.U32(ch.reg(mb.base, regs.MB_ISR))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return 0, fmt.Errorf("mailbox: could not read ch%d status: %w", ch.idx, err)
	}
	return uint16(isr), nil
}

// Clear acknowledges the set bits of mask (write-1-to-clear; cleared
// bits are left untouched).
func (mb *Receiver) Clear(ch Channel, mask uint16) error {
	mb.p.SetU32(ch.reg(mb.base, regs.MB_ICR), uint32(mask))
	if err := mb.p.Err(); err != nil {
		mb.p.ClearErr()
		return fmt.Errorf("mailbox: could not clear ch%d mask=0x%04x: %w", ch.idx, mask, err)
	}
	return nil
}
