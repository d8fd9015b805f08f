// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch installs LCPU ROM patches into the shared LPSYS RAM.
//
// The patch layout depends on the chip revision. A3 and earlier load
// the LCPU image from flash and take a large patch region at the top
// of the RAM window; the Letter Series (A4/B4) runs the LCPU from ROM
// and uses a small redirect table at the bottom, announced by a
// three-word header.
//
// Install validates everything before touching RAM: a rejected patch
// leaves the window exactly as it was.
package patch // import "github.com/go-sifli/sf52/patch"

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/syscfg"
)

var (
	// ErrEmptyRecord means the patch record buffer is empty.
	ErrEmptyRecord = errors.New("patch: empty patch record")

	// ErrEmptyCode means the patch code buffer is empty.
	ErrEmptyCode = errors.New("patch: empty patch code")
)

// InvalidRevisionError means the chip revision has no known patch
// layout.
type InvalidRevisionError struct {
	Rev syscfg.ChipRevision
}

func (e InvalidRevisionError) Error() string {
	return fmt.Sprintf("patch: no patch layout for chip revision %v", e.Rev)
}

// TooLargeError means a patch buffer exceeds its RAM region.
type TooLargeError struct {
	Buf   string // "code" or "record"
	Size  int
	Limit int
}

func (e TooLargeError) Error() string {
	return fmt.Sprintf(
		"patch: %s size %d exceeds region size %d",
		e.Buf, e.Size, e.Limit,
	)
}

// Record limits per layout. The A3 record region runs from the record
// base to the ROM config block; the Letter record shares its page with
// the header.
const (
	a3RecordLimit     = regs.ROM_CONFIG_A3 - regs.A3_PATCH_RECORD
	letterHeaderSize  = 12
	letterRecordLimit = regs.LETTER_PATCH_CODE - regs.LETTER_PATCH_BUF - letterHeaderSize
	letterEntrySize   = 8 // redirect table entry: address, target
)

// Install validates and writes an LCPU patch into the shared RAM
// window, using the layout matching the chip revision. No byte is
// written before every check has passed.
func Install(ram bus.ReadWriter, rev syscfg.ChipRevision, record, code []byte) error {
	if len(record) == 0 {
		return ErrEmptyRecord
	}
	if len(code) == 0 {
		return ErrEmptyCode
	}
	typ, ok := rev.PatchType()
	if !ok {
		return InvalidRevisionError{Rev: rev}
	}

	switch typ {
	case syscfg.PatchA3:
		return installA3(ram, record, code)
	default:
		return installLetter(ram, record, code)
	}
}

func installA3(ram bus.ReadWriter, record, code []byte) error {
	if len(code) > regs.A3_PATCH_SIZE {
		return TooLargeError{Buf: "code", Size: len(code), Limit: regs.A3_PATCH_SIZE}
	}
	if len(record) > a3RecordLimit {
		return TooLargeError{Buf: "record", Size: len(record), Limit: a3RecordLimit}
	}

	// clear the whole region first: a reinstall must not leave bytes
	// of a previous, larger patch behind the new code.
	zero := make([]byte, regs.A3_PATCH_SIZE)
	if _, err := ram.WriteAt(zero, regs.A3_PATCH_CODE); err != nil {
		return fmt.Errorf("patch: could not clear patch code region: %w", err)
	}
	if _, err := ram.WriteAt(code, regs.A3_PATCH_CODE); err != nil {
		return fmt.Errorf("patch: could not write patch code: %w", err)
	}
	if _, err := ram.WriteAt(record, regs.A3_PATCH_RECORD); err != nil {
		return fmt.Errorf("patch: could not write patch record: %w", err)
	}
	return nil
}

func installLetter(ram bus.ReadWriter, record, code []byte) error {
	if len(code) > regs.LETTER_PATCH_SIZE {
		return TooLargeError{Buf: "code", Size: len(code), Limit: regs.LETTER_PATCH_SIZE}
	}
	if len(record) > letterRecordLimit {
		return TooLargeError{Buf: "record", Size: len(record), Limit: letterRecordLimit}
	}
	entries := len(record) / letterEntrySize
	if entries*letterEntrySize != len(record) {
		return fmt.Errorf(
			"patch: record size %d is not a multiple of the %d-byte entry size",
			len(record), letterEntrySize,
		)
	}
	if entries > regs.LETTER_PATCH_ENTRIES {
		return TooLargeError{Buf: "record", Size: entries, Limit: regs.LETTER_PATCH_ENTRIES}
	}

	zero := make([]byte, regs.LETTER_PATCH_SIZE)
	if _, err := ram.WriteAt(zero, regs.LETTER_PATCH_CODE); err != nil {
		return fmt.Errorf("patch: could not clear patch code region: %w", err)
	}
	if _, err := ram.WriteAt(code, regs.LETTER_PATCH_CODE); err != nil {
		return fmt.Errorf("patch: could not write patch code: %w", err)
	}
	if _, err := ram.WriteAt(record, regs.LETTER_PATCH_BUF+letterHeaderSize); err != nil {
		return fmt.Errorf("patch: could not write redirect table: %w", err)
	}

	// header last: the LCPU treats a valid magic as "patch present".
	// The entry count is the fixed table capacity, not the number of
	// entries actually used.
	var hdr [letterHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], regs.LETTER_PATCH_MAGIC)
	binary.LittleEndian.PutUint32(hdr[4:], regs.LETTER_PATCH_ENTRIES)
	binary.LittleEndian.PutUint32(hdr[8:], (regs.LPSYS_RAM_BASE+regs.LETTER_PATCH_CODE)|1) // thumb entry
	if _, err := ram.WriteAt(hdr[:], regs.LETTER_PATCH_BUF); err != nil {
		return fmt.Errorf("patch: could not write patch header: %w", err)
	}
	return nil
}
