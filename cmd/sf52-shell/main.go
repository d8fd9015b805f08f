// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sf52-shell provides an interactive prompt to poke at a
// SF32LB52x: clock tree, chip identity, mailbox channels and the LCPU
// boot sequence.
package main // import "github.com/go-sifli/sf52/cmd/sf52-shell"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/google/shlex"
	"github.com/peterh/liner"

	"github.com/go-sifli/sf52/mailbox"
	"github.com/go-sifli/sf52/soc"
)

func main() {
	var (
		devmem = flag.String("dev", "/dev/mem", "physical memory device node")
		patch  = flag.String("patch", "", "LCPU patch image (Intel HEX)")
	)

	flag.Parse()

	log.SetPrefix("sf52-shell: ")
	log.SetFlags(0)

	err := run(*devmem, *patch)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(devmem, patch string) error {
	opts := []soc.Option{soc.WithDevMem(devmem)}
	if patch != "" {
		f, err := os.Open(patch)
		if err != nil {
			return fmt.Errorf("could not open patch image %q: %w", patch, err)
		}
		defer f.Close()
		opts = append(opts, soc.WithPatchImage(f))
	}

	dev, err := soc.Open(opts...)
	if err != nil {
		return fmt.Errorf("could not open device: %w", err)
	}
	defer dev.Close()

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	sh := &shell{dev: dev}
	for {
		line, err := term.Prompt("sf52> ")
		switch err {
		case nil:
			// ok
		case io.EOF, liner.ErrPromptAborted:
			fmt.Println()
			return nil
		default:
			return fmt.Errorf("could not read line: %w", err)
		}
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		args, err := shlex.Split(line)
		if err != nil {
			log.Printf("could not parse %q: %+v", line, err)
			continue
		}
		quit, err := sh.dispatch(args)
		if err != nil {
			log.Printf("%+v", err)
		}
		if quit {
			return nil
		}
	}
}

type shell struct {
	dev *soc.Device
}

func (sh *shell) dispatch(args []string) (quit bool, err error) {
	switch args[0] {
	case "id":
		fmt.Printf("revision: %v\n", sh.dev.Revision())
		uid, err := sh.dev.Uid()
		if err != nil {
			return false, err
		}
		fmt.Printf("uid:      %x\n", uid)
	case "clocks":
		sh.dev.PrintClocks()
	case "boot":
		return false, sh.dev.Boot()
	case "lock":
		return false, sh.lock(args[1:])
	case "trigger":
		return false, sh.trigger(args[1:])
	case "pending":
		return false, sh.pending(args[1:])
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Println(`commands:
  id             chip revision and UID
  clocks         resolved clock tree
  boot           run the LCPU boot sequence
  lock <ch>      probe (and release) the channel hardware mutex
  trigger <ch> <bit>
                 raise an interrupt toward the LCPU
  pending <ch>   pending interrupts from the LCPU
  quit           leave the shell`)
	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	return false, nil
}

func (sh *shell) channel(args []string) (mailbox.Channel, error) {
	if len(args) < 1 {
		return mailbox.CH0, fmt.Errorf("missing channel index")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return mailbox.CH0, fmt.Errorf("invalid channel %q: %w", args[0], err)
	}
	if i < 0 || i >= mailbox.NumChannels {
		return mailbox.CH0, fmt.Errorf("invalid channel index %d", i)
	}
	return mailbox.Chan(i), nil
}

func (sh *shell) lock(args []string) error {
	ch, err := sh.channel(args)
	if err != nil {
		return err
	}
	owner, err := sh.dev.Mailbox().LockStatus(ch)
	if err != nil {
		return err
	}
	fmt.Printf("ch%d mutex: %v\n", ch.Index(), owner)
	return nil
}

func (sh *shell) trigger(args []string) error {
	ch, err := sh.channel(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("missing trigger bit")
	}
	bit, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid trigger bit %q: %w", args[1], err)
	}
	if bit < 0 || bit > 15 {
		return fmt.Errorf("invalid trigger bit %d", bit)
	}
	return sh.dev.Mailbox().Trigger(ch, bit)
}

func (sh *shell) pending(args []string) error {
	ch, err := sh.channel(args)
	if err != nil {
		return err
	}
	pending, err := sh.dev.Receiver().Pending(ch)
	if err != nil {
		return err
	}
	fmt.Printf("ch%d pending: 0x%04x\n", ch.Index(), pending)
	return nil
}
