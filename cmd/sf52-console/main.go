// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sf52-console bridges the LCPU trace UART to the terminal.
package main // import "github.com/go-sifli/sf52/cmd/sf52-console"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		name = flag.String("port", "/dev/ttyUSB0", "serial port of the LCPU trace UART")
		baud = flag.Int("baud", 1_000_000, "baud rate")
	)

	flag.Parse()

	log.SetPrefix("sf52-console: ")
	log.SetFlags(0)

	err := run(*name, *baud)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(name string, baud int) error {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("could not open serial port %q: %w", name, err)
	}
	defer port.Close()

	log.Printf("connected to %q (%d bauds)", name, baud)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		_, err := io.Copy(os.Stdout, port)
		if err != nil {
			return fmt.Errorf("could not read from %q: %w", name, err)
		}
		return nil
	})
	grp.Go(func() error {
		_, err := io.Copy(port, os.Stdin)
		if err != nil {
			return fmt.Errorf("could not write to %q: %w", name, err)
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		// unblocks both copies.
		return port.Close()
	})

	err = grp.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
