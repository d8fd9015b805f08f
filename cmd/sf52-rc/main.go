// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sf52-rc starts a TDAQ server exposing one SF32LB52x to the
// run control.
package main // import "github.com/go-sifli/sf52/cmd/sf52-rc"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-sifli/sf52/soc"
)

func main() {
	cmd := flags.New()

	opts := []soc.Option{}
	if len(cmd.Args) > 1 {
		f, err := os.Open(cmd.Args[1])
		if err != nil {
			log.Fatalf("could not open patch image %q: %+v", cmd.Args[1], err)
		}
		defer f.Close()
		opts = append(opts, soc.WithPatchImage(f))
	}

	dev := soc.NewServer(cmd.Args[0], opts...)

	srv := tdaq.New(cmd, os.Stdout)
	dev.Serve(srv)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
