// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package provdb // import "github.com/go-sifli/sf52/provdb"

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sifli/sf52/lcpu"
)

// Device is one provisioned chip: its factory identity and the radio
// parameters assigned on the production line.
type Device struct {
	PrimaryID     int32  `json:"identifier"`
	UID           string `json:"uid"`    // hex chip UID, 16 digits
	Bdaddr        string `json:"bdaddr"` // "aa:bb:cc:dd:ee:ff"
	TxPowerDbm    int8   `json:"tx_power"`
	MaxTxPower    int8   `json:"max_tx_power"`
	MaxActivities uint8  `json:"max_activities"`
	MaxLinks      uint8  `json:"max_links"`
	SleepEnabled  uint8  `json:"sleep_enabled"`
	WakeupTimeUs  uint16 `json:"wakeup_time_us"`
}

// RomConfig converts the database record into the boot configuration
// block handed to the LCPU.
func (dev Device) RomConfig() (lcpu.RomConfig, error) {
	cfg := lcpu.DefaultRomConfig()

	addr, err := parseBdaddr(dev.Bdaddr)
	if err != nil {
		return cfg, err
	}
	cfg.Bt.Bdaddr = addr
	cfg.Bt.TxPowerDbm = dev.TxPowerDbm
	cfg.Bt.MaxTxPower = dev.MaxTxPower
	cfg.Act.MaxActivities = dev.MaxActivities
	cfg.Act.MaxLinks = dev.MaxLinks
	cfg.Act.SleepEnabled = dev.SleepEnabled != 0
	cfg.Act.WakeupTimeUs = dev.WakeupTimeUs
	return cfg, nil
}

func parseBdaddr(s string) ([6]byte, error) {
	var addr [6]byte
	toks := strings.Split(s, ":")
	if len(toks) != 6 {
		return addr, fmt.Errorf("provdb: invalid bdaddr %q", s)
	}
	for i, tok := range toks {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return addr, fmt.Errorf("provdb: invalid bdaddr %q: %w", s, err)
		}
		addr[i] = uint8(v)
	}
	return addr, nil
}

// BootState is one boot outcome recorded by the provisioning line.
type BootState struct {
	ID       uint64
	Patch    int32
	ClkSysHz uint32
	Released uint16
}
