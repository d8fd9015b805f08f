// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus provides 32-bit register access over a mapped window.
//
// Errors are sticky: once a read or write fails, subsequent accesses
// are no-ops and Err reports the first failure. Multi-register
// hardware sequences check Err once at the end.
package bus // import "github.com/go-sifli/sf52/internal/bus"

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadWriter is the register window a Port drives.
type ReadWriter interface {
	io.ReaderAt
	io.WriterAt
}

// Port gives sticky-error word access to a register window.
type Port struct {
	rw   ReadWriter
	err  error
	xbuf [4]byte
}

func New(rw ReadWriter) *Port {
	return &Port{rw: rw}
}

// U32 reads the register at off. It returns 0 after a previous failure.
func (p *Port) U32(off int64) uint32 {
	if p.err != nil {
		return 0
	}
	_, p.err = p.rw.ReadAt(p.xbuf[:4], off)
	if p.err != nil {
		p.err = fmt.Errorf("bus: could not read register 0x%x: %w", off, p.err)
		return 0
	}
	return binary.LittleEndian.Uint32(p.xbuf[:4])
}

// SetU32 writes v to the register at off.
func (p *Port) SetU32(off int64, v uint32) {
	if p.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(p.xbuf[:4], v)
	_, p.err = p.rw.WriteAt(p.xbuf[:4], off)
	if p.err != nil {
		p.err = fmt.Errorf("bus: could not write register 0x%x: %w", off, p.err)
	}
}

// Mod32 read-modify-writes the register at off, clearing the clr bits
// and setting the set bits.
func (p *Port) Mod32(off int64, set, clr uint32) {
	v := p.U32(off)
	v &^= clr
	v |= set
	p.SetU32(off, v)
}

// Err reports the first access failure, if any.
func (p *Port) Err() error {
	return p.err
}

// ClearErr drops the sticky error, e.g. between independent sequences.
func (p *Port) ClearErr() {
	p.err = nil
}
