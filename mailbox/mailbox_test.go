// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/go-sifli/sf52/internal/regs"
)

func TestChan(t *testing.T) {
	for i := 0; i < NumChannels; i++ {
		if got, want := Chan(i).Index(), i; got != want {
			t.Fatalf("invalid channel index: got=%d, want=%d", got, want)
		}
	}

	for _, i := range []int{-1, NumChannels, 42} {
		t.Run(fmt.Sprintf("idx=%d", i), func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected a panic for channel index %d", i)
				}
			}()
			Chan(i)
		})
	}
}

func TestTrigger(t *testing.T) {
	st := newFakeState()
	mb, err := NewSender(st.bus(Hcpu))
	if err != nil {
		t.Fatalf("could not create sender: %+v", err)
	}

	err = mb.Trigger(CH1, 3)
	if err != nil {
		t.Fatalf("could not trigger: %+v", err)
	}
	err = mb.TriggerMask(CH1, 0xA000)
	if err != nil {
		t.Fatalf("could not trigger mask: %+v", err)
	}

	if got, want := st.raw[0][1], uint16(0xA008); got != want {
		t.Fatalf("invalid raw status: got=0x%04x, want=0x%04x", got, want)
	}
	if got := st.raw[0][0]; got != 0 {
		t.Fatalf("trigger leaked to ch0: 0x%04x", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for out-of-range bit")
		}
	}()
	_ = mb.Trigger(CH0, 16)
}

func TestReceiver(t *testing.T) {
	st := newFakeState()
	rx := NewReceiver(st.bus(Hcpu))

	trigger := func(ch Channel, mask uint16) {
		t.Helper()
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(mask))
		off := ch.reg(regs.MAILBOX2, regs.MB_ITR)
		if _, err := st.bus(Lcpu).WriteAt(buf[:], off); err != nil {
			t.Fatalf("could not trigger: %+v", err)
		}
	}

	// nothing enabled: triggered bits stay invisible in the masked
	// status.
	trigger(CH2, 0x0101)
	pending, err := rx.Pending(CH2)
	if err != nil {
		t.Fatalf("could not read pending: %+v", err)
	}
	if pending != 0 {
		t.Fatalf("masked status visible without enable: 0x%04x", pending)
	}

	err = rx.Enable(CH2, 0x0001)
	if err != nil {
		t.Fatalf("could not enable: %+v", err)
	}
	pending, err = rx.Pending(CH2)
	if err != nil {
		t.Fatalf("could not read pending: %+v", err)
	}
	if got, want := pending, uint16(0x0001); got != want {
		t.Fatalf("invalid pending: got=0x%04x, want=0x%04x", got, want)
	}

	// write-1-to-clear acknowledges only the named bits.
	err = rx.Clear(CH2, 0x0001)
	if err != nil {
		t.Fatalf("could not clear: %+v", err)
	}
	pending, err = rx.Pending(CH2)
	if err != nil {
		t.Fatalf("could not read pending: %+v", err)
	}
	if pending != 0 {
		t.Fatalf("pending bit survived clear: 0x%04x", pending)
	}
	if got, want := st.raw[1][2], uint16(0x0100); got != want {
		t.Fatalf("clear touched unacknowledged bits: got=0x%04x, want=0x%04x", got, want)
	}

	err = rx.Enable(CH2, 0x0100)
	if err != nil {
		t.Fatalf("could not enable: %+v", err)
	}
	err = rx.Disable(CH2, 0x0001)
	if err != nil {
		t.Fatalf("could not disable: %+v", err)
	}
	if got, want := st.ier[1][2], uint16(0x0100); got != want {
		t.Fatalf("invalid enable mask: got=0x%04x, want=0x%04x", got, want)
	}
}

func TestTryLock(t *testing.T) {
	st := newFakeState()

	hcpu, err := NewSender(st.bus(Hcpu))
	if err != nil {
		t.Fatalf("could not create sender: %+v", err)
	}
	lcpu, err := NewSender(st.bus(Lcpu))
	if err != nil {
		t.Fatalf("could not create sender: %+v", err)
	}

	lock, owner, err := hcpu.TryLock(CH0)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if lock == nil || owner != Unlocked {
		t.Fatalf("first claim failed: lock=%v owner=%v", lock, owner)
	}

	// contended claim observes the holder.
	l2, owner, err := lcpu.TryLock(CH0)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if l2 != nil || owner != Hcpu {
		t.Fatalf("contended claim: lock=%v owner=%v, want nil/hcpu", l2, owner)
	}

	// independent channel is unaffected.
	l3, owner, err := lcpu.TryLock(CH1)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if l3 == nil || owner != Unlocked {
		t.Fatalf("independent channel locked: owner=%v", owner)
	}
	if err := l3.Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}

	// released lock can be re-claimed by the other core.
	l4, owner, err := lcpu.TryLock(CH0)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if l4 == nil || owner != Unlocked {
		t.Fatalf("re-claim failed: owner=%v", owner)
	}
	status, err := hcpu.LockStatus(CH0)
	if err != nil {
		t.Fatalf("could not read status: %+v", err)
	}
	if got, want := status, Lcpu; got != want {
		t.Fatalf("invalid owner: got=%v, want=%v", got, want)
	}
	if err := l4.Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for double unlock")
		}
	}()
	_ = lock.Unlock()
}

// LockStatus has no side-effect-free read available: when its probe
// claims the lock, it must release it again.
func TestLockStatusReleases(t *testing.T) {
	st := newFakeState()
	mb, err := NewSender(st.bus(Hcpu))
	if err != nil {
		t.Fatalf("could not create sender: %+v", err)
	}

	status, err := mb.LockStatus(CH3)
	if err != nil {
		t.Fatalf("could not read status: %+v", err)
	}
	if got, want := status, Unlocked; got != want {
		t.Fatalf("invalid status: got=%v, want=%v", got, want)
	}

	// the probe must not have left the mutex claimed.
	lock, owner, err := mb.TryLock(CH3)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if lock == nil || owner != Unlocked {
		t.Fatalf("status probe leaked the lock: owner=%v", owner)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}
}

// Only one of N concurrent claimants may observe Unlocked; all later
// attempts must see the winner's core ID until the explicit release.
func TestLockExclusivity(t *testing.T) {
	const n = 16

	st := newFakeState()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted []*Lock
		owners  []LockCore
	)
	for i := 0; i < n; i++ {
		core := Hcpu
		if i%2 == 1 {
			core = Lcpu
		}
		mb, err := NewSender(st.bus(core))
		if err != nil {
			t.Fatalf("could not create sender: %+v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, owner, err := mb.TryLock(CH0)
			if err != nil {
				t.Errorf("could not try-lock: %+v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if lock != nil {
				granted = append(granted, lock)
			} else {
				owners = append(owners, owner)
			}
		}()
	}
	wg.Wait()

	if got, want := len(granted), 1; got != want {
		t.Fatalf("invalid number of granted locks: got=%d, want=%d", got, want)
	}
	winner := lockCore(st.exr[0][0])
	for i, owner := range owners {
		if owner != winner {
			t.Errorf("attempt %d: invalid owner: got=%v, want=%v", i, owner, winner)
		}
	}

	// still held: a fresh attempt observes the winner.
	mb, err := NewSender(st.bus(Bcpu))
	if err != nil {
		t.Fatalf("could not create sender: %+v", err)
	}
	lock, owner, err := mb.TryLock(CH0)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if lock != nil || owner != winner {
		t.Fatalf("late claim: lock=%v owner=%v, want nil/%v", lock, owner, winner)
	}

	if err := granted[0].Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}
	lock, owner, err = mb.TryLock(CH0)
	if err != nil {
		t.Fatalf("could not try-lock: %+v", err)
	}
	if lock == nil || owner != Unlocked {
		t.Fatalf("claim after release failed: owner=%v", owner)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("could not unlock: %+v", err)
	}
}
