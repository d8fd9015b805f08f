// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soc binds the SF32LB52x HCPU-side drivers into one device:
// both /dev/mem windows, revision detection, the clock tree, the
// inter-processor mailbox and the LCPU boot sequence.
package soc // import "github.com/go-sifli/sf52/soc"

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-sifli/sf52/efuse"
	"github.com/go-sifli/sf52/internal/bus"
	"github.com/go-sifli/sf52/internal/image"
	"github.com/go-sifli/sf52/internal/mmap"
	"github.com/go-sifli/sf52/internal/regs"
	"github.com/go-sifli/sf52/lcpu"
	"github.com/go-sifli/sf52/mailbox"
	"github.com/go-sifli/sf52/rcc"
	"github.com/go-sifli/sf52/syscfg"
)

type config struct {
	devmem string
	msg    *log.Logger
	rom    lcpu.RomConfig
	patch  io.Reader // LCPU patch image (Intel HEX), nil to skip
}

// Option configures a Device.
type Option func(*config)

// WithDevMem selects the physical-memory device node.
func WithDevMem(path string) Option {
	return func(cfg *config) { cfg.devmem = path }
}

// WithRomConfig overrides the default LCPU boot configuration block.
func WithRomConfig(rom lcpu.RomConfig) Option {
	return func(cfg *config) { cfg.rom = rom }
}

// WithPatchImage provides the LCPU patch image to install during boot.
func WithPatchImage(r io.Reader) Option {
	return func(cfg *config) { cfg.patch = r }
}

// WithLogger redirects the device log.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) { cfg.msg = msg }
}

// Device is one SF32LB52x, seen from the HCPU side.
type Device struct {
	msg *log.Logger
	mem struct {
		fd     *os.File
		periph *mmap.Handle
		ram    *mmap.Handle
	}

	cfg config
	rev syscfg.ChipRevision

	rcc  *rcc.RCC
	lcpu *lcpu.LCPU
	mb   *mailbox.Sender
	rx   *mailbox.Receiver
	ef   *efuse.EFuse
}

// Open maps the SoC register and shared-RAM windows and binds the
// drivers.
func Open(opts ...Option) (*Device, error) {
	cfg := config{
		devmem: "/dev/mem",
		rom:    lcpu.DefaultRomConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mem, err := os.OpenFile(cfg.devmem, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("soc: could not open %q: %w", cfg.devmem, err)
	}

	periph, err := mmap.Map(mem, regs.PERIPH_BASE, regs.PERIPH_SPAN)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("soc: could not map peripheral window: %w", err)
	}
	ram, err := mmap.Map(mem, regs.LPSYS_RAM_BASE, regs.LPSYS_RAM_SPAN)
	if err != nil {
		_ = periph.Close()
		_ = mem.Close()
		return nil, fmt.Errorf("soc: could not map shared-RAM window: %w", err)
	}

	dev, err := newDevice(periph, ram, cfg)
	if err != nil {
		_ = ram.Close()
		_ = periph.Close()
		_ = mem.Close()
		return nil, err
	}
	dev.mem.fd = mem
	dev.mem.periph = periph
	dev.mem.ram = ram
	return dev, nil
}

func newDevice(periph, ram bus.ReadWriter, cfg config) (*Device, error) {
	if cfg.msg == nil {
		cfg.msg = log.New(os.Stdout, "sf52: ", 0)
	}
	dev := &Device{
		msg: cfg.msg,
		cfg: cfg,
	}

	sc, err := syscfg.Read(bus.New(periph))
	if err != nil {
		return nil, fmt.Errorf("soc: could not read chip identity: %w", err)
	}
	dev.rev = sc.Revision()
	dev.msg.Printf("chip: pid=0x%02x cid=0x%02x sid=0x%02x revision=%v",
		sc.PID, sc.CID, sc.SID, dev.rev,
	)

	dev.rcc = rcc.New(periph)
	dev.lcpu = lcpu.New(periph, ram)
	dev.rx = mailbox.NewReceiver(periph)

	dev.mb, err = mailbox.NewSender(periph)
	if err != nil {
		return nil, fmt.Errorf("soc: could not bind mailbox: %w", err)
	}
	dev.ef, err = efuse.New(periph)
	if err != nil {
		return nil, fmt.Errorf("soc: could not bind efuse controller: %w", err)
	}
	return dev, nil
}

// Revision returns the detected chip revision.
func (dev *Device) Revision() syscfg.ChipRevision { return dev.rev }

// RCC returns the clock-tree resolver.
func (dev *Device) RCC() *rcc.RCC { return dev.rcc }

// Mailbox returns the transmit mailbox.
func (dev *Device) Mailbox() *mailbox.Sender { return dev.mb }

// Receiver returns the receive mailbox.
func (dev *Device) Receiver() *mailbox.Receiver { return dev.rx }

// LCPU returns the low-power core control.
func (dev *Device) LCPU() *lcpu.LCPU { return dev.lcpu }

// Uid returns the factory chip identifier.
func (dev *Device) Uid() ([8]byte, error) {
	pclk, ok := dev.rcc.PClk1()
	if !ok {
		pclk = 0
	}
	if err := dev.ef.ConfigTiming(pclk); err != nil {
		return [8]byte{}, fmt.Errorf("soc: could not time efuse controller: %w", err)
	}
	return dev.ef.Uid()
}

// Boot brings the LCPU up: hold it in reset, install the patch image
// if one was provided, write the boot configuration block and release
// the core.
func (dev *Device) Boot() error {
	if !dev.rev.IsValid() {
		return fmt.Errorf("soc: cannot boot LCPU on revision %v", dev.rev)
	}

	if err := dev.lcpu.Hold(); err != nil {
		return err
	}

	if dev.cfg.patch != nil {
		img, err := image.Load(dev.cfg.patch, dev.rev)
		if err != nil {
			return err
		}
		if err := dev.lcpu.InstallPatch(dev.rev, img.Record, img.Code); err != nil {
			return err
		}
		dev.msg.Printf("patch: record=%d bytes, code=%d bytes", len(img.Record), len(img.Code))
	}

	rom := dev.cfg.rom
	if rom.Bt.Bdaddr == ([6]byte{}) {
		uid, err := dev.Uid()
		if err != nil {
			return err
		}
		copy(rom.Bt.Bdaddr[:], uid[:6])
		dev.msg.Printf("bdaddr from UID: %02x:%02x:%02x:%02x:%02x:%02x",
			rom.Bt.Bdaddr[0], rom.Bt.Bdaddr[1], rom.Bt.Bdaddr[2],
			rom.Bt.Bdaddr[3], rom.Bt.Bdaddr[4], rom.Bt.Bdaddr[5],
		)
	}
	if err := dev.lcpu.WriteConfig(dev.rev, rom); err != nil {
		return err
	}

	if err := dev.lcpu.Release(); err != nil {
		return err
	}
	dev.msg.Printf("LCPU released")
	return nil
}

// PrintClocks logs the resolved clock tree.
func (dev *Device) PrintClocks() {
	dev.rcc.PrintClocks(dev.msg)
}

// Close unmaps both windows.
func (dev *Device) Close() error {
	var first error
	if dev.mem.ram != nil {
		if err := dev.mem.ram.Close(); err != nil && first == nil {
			first = err
		}
	}
	if dev.mem.periph != nil {
		if err := dev.mem.periph.Close(); err != nil && first == nil {
			first = err
		}
	}
	if dev.mem.fd != nil {
		if err := dev.mem.fd.Close(); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return fmt.Errorf("soc: could not close device: %w", first)
	}
	return nil
}
