// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-daq/tdaq"

	"github.com/go-sifli/sf52/mailbox"
	"github.com/go-sifli/sf52/rcc"
)

// Server exposes one SF32LB52x to a TDAQ run control: the standard
// lifecycle commands drive the device bring-up and LCPU boot, and the
// /clocks output stream publishes periodic clock-tree samples.
type Server struct {
	name string
	opts []Option

	dev  *Device
	freq time.Duration
	data chan []byte
}

// NewServer creates a run-control server for the device selected by
// opts. The device itself is opened on /init.
func NewServer(name string, opts ...Option) *Server {
	return &Server{
		name: name,
		opts: opts,
		freq: 1 * time.Second,
	}
}

// Serve registers the server's handlers with the TDAQ server.
func (srv *Server) Serve(tsrv *tdaq.Server) {
	tsrv.CmdHandle("/config", srv.OnConfig)
	tsrv.CmdHandle("/init", srv.OnInit)
	tsrv.CmdHandle("/reset", srv.OnReset)
	tsrv.CmdHandle("/start", srv.OnStart)
	tsrv.CmdHandle("/stop", srv.OnStop)
	tsrv.CmdHandle("/quit", srv.OnQuit)

	tsrv.OutputHandle("/clocks", srv.clocks)

	tsrv.RunHandle(srv.run)
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.dev == nil {
		dev, err := Open(srv.opts...)
		if err != nil {
			ctx.Msg.Errorf("could not open device: %+v", err)
			return fmt.Errorf("could not open device: %w", err)
		}
		srv.dev = dev
	}
	srv.data = make(chan []byte, 16)
	ctx.Msg.Infof("device %q: revision %v", srv.name, srv.dev.Revision())
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.data = make(chan []byte, 16)
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.dev == nil {
		return fmt.Errorf("device %q not initialized", srv.name)
	}
	if err := srv.dev.Boot(); err != nil {
		ctx.Msg.Errorf("could not boot LCPU: %+v", err)
		return fmt.Errorf("could not boot LCPU: %w", err)
	}
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if srv.dev == nil {
		return nil
	}
	for i := 0; i < mailbox.NumChannels; i++ {
		ch := mailbox.Chan(i)
		pending, err := srv.dev.Receiver().Pending(ch)
		if err != nil {
			return fmt.Errorf("could not read ch%d status: %w", i, err)
		}
		if pending != 0 {
			ctx.Msg.Infof("ch%d: pending interrupts 0x%04x", i, pending)
		}
	}
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	if srv.dev == nil {
		return nil
	}
	err := srv.dev.Close()
	srv.dev = nil
	return err
}

func (srv *Server) clocks(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

func (srv *Server) run(ctx tdaq.Context) error {
	tick := time.NewTicker(srv.freq)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tick.C:
			data, err := srv.sample()
			if err != nil {
				ctx.Msg.Warnf("could not sample clock tree: %+v", err)
				continue
			}
			select {
			case srv.data <- data:
			default:
				// slow consumer, drop the sample
			}
		}
	}
}

// sample encodes one clock-tree snapshot: a node count followed by
// (name, frequency) pairs, zero frequency for disabled nodes.
func (srv *Server) sample() ([]byte, error) {
	if srv.dev == nil {
		return nil, fmt.Errorf("device %q not initialized", srv.name)
	}

	clk := srv.dev.RCC()
	nodes := []struct {
		name string
		freq func() (rcc.Hertz, bool)
	}{
		{"clk_sys", clk.ClkSys},
		{"hclk", clk.HClk},
		{"pclk1", clk.PClk1},
		{"pclk2", clk.PClk2},
		{"clk_peri", clk.ClkPeri},
		{"clk_usb", clk.ClkUsb},
		{"clk_aud_pll", clk.ClkAudPll},
	}

	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU32(uint32(len(nodes)))
	for _, node := range nodes {
		f, ok := node.freq()
		if !ok {
			f = 0
		}
		enc.WriteStr(node.name)
		enc.WriteU32(uint32(f))
	}
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("could not encode clock sample: %w", err)
	}
	return buf.Bytes(), nil
}
