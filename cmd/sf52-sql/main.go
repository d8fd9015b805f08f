// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/go-sifli/sf52/provdb"
)

const (
	dbname = "sf52prov"
)

func main() {
	log.SetPrefix("sf52-sql: ")
	log.SetFlags(0)

	var (
		batch = flag.String("batch", "", "production batch to inspect")
	)

	flag.Parse()

	log.Printf("batch: %q", *batch)

	db, err := provdb.Open(dbname)
	if err != nil {
		log.Fatalf("could not open provisioning db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *batch)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *provdb.DB, batch string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	patch, err := db.LastPatchRelease(ctx)
	if err != nil {
		return fmt.Errorf("could not get last patch release: %w", err)
	}
	log.Printf("patch: %q", patch)

	if batch == "" {
		id, err := db.LastBatchID(ctx)
		if err != nil {
			return fmt.Errorf("could not get last batch-id: %w", err)
		}
		log.Printf("batch-id: %d", id)

		rows, err := db.QueryContext(ctx, "SELECT name FROM batches WHERE identifier=?", id)
		if err != nil {
			return fmt.Errorf("could not get batch name: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			err = rows.Scan(&batch)
			if err != nil {
				return fmt.Errorf("could not scan batch name: %w", err)
			}
		}
		log.Printf("batch: %q", batch)
	}

	devs, err := db.DeviceConfigs(ctx, batch)
	if err != nil {
		return fmt.Errorf("could not get device configs (batch=%q): %w", batch, err)
	}
	log.Printf("devices: %d", len(devs))
	for i, dev := range devs {
		log.Printf("row[%d]: uid=%s bdaddr=%s tx=%d dBm", i, dev.UID, dev.Bdaddr, dev.TxPowerDbm)
	}

	states, err := db.BootStates(ctx)
	if err != nil {
		return fmt.Errorf("could not retrieve bootstates: %w", err)
	}
	log.Printf("bootstates: %d", len(states))
	for i, bs := range states {
		log.Printf("row[%d]: %#v", i, bs)
	}

	return nil
}
