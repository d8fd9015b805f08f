// Copyright 2026 The go-sifli Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package provdb gives access to the factory provisioning database:
// released LCPU patch images, per-device radio parameters and the
// boot states recorded by the provisioning line.
package provdb // import "github.com/go-sifli/sf52/provdb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve provisioning data for a
// device fleet.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the provisioning database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("provdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("provdb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("provdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastPatchRelease returns the name of the most recently released
// LCPU patch image.
func (db *DB) LastPatchRelease(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM patches ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("provdb: could not query patch release: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("provdb: could not get patch release value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("provdb: could not scan db for patch release: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("provdb: context error while retrieving patch release: %w", err)
	}

	return name, nil
}

// LastBatchID returns the identifier of the most recent production
// batch.
func (db *DB) LastBatchID(ctx context.Context) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var batch uint32
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier FROM batches ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return batch, fmt.Errorf("provdb: could not query batch-id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&batch)
		if err != nil {
			return batch, fmt.Errorf("provdb: could not get batch-id value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return batch, fmt.Errorf("provdb: could not scan db for batch-id: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return batch, fmt.Errorf("provdb: context error while retrieving batch-id: %w", err)
	}

	return batch, nil
}

// DeviceConfigs returns the radio parameters of every device of one
// production batch.
func (db *DB) DeviceConfigs(ctx context.Context, batch string) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		cfg []Device
		err error
	)

	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT devices.* FROM devices
JOIN batch_devices ON devices.identifier=batch_devices.device
JOIN batches       ON batches.identifier=batch_devices.batch
WHERE (
	batches.name=?
)
`,
		batch,
	)
	if err != nil {
		return cfg, fmt.Errorf("provdb: could not run device cfg query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var dev Device
		err = rows.Scan(
			&dev.PrimaryID, &dev.UID, &dev.Bdaddr,
			&dev.TxPowerDbm, &dev.MaxTxPower,
			&dev.MaxActivities, &dev.MaxLinks,
			&dev.SleepEnabled, &dev.WakeupTimeUs,
		)
		if err != nil {
			return cfg, fmt.Errorf("provdb: could not scan row %d for device cfg: %w", i, err)
		}
		i++

		cfg = append(cfg, dev)
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("provdb: could not scan db for device cfg: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("provdb: context error while retrieving device cfg: %w", err)
	}

	return cfg, nil
}

// BootStates returns the boot outcomes recorded by the provisioning
// line.
func (db *DB) BootStates(ctx context.Context) ([]BootState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfg []BootState
	rows, err := db.db.QueryContext(ctx, "SELECT * FROM bootstates")
	if err != nil {
		return cfg, fmt.Errorf(
			"provdb: could not run bootstates query: %w",
			err,
		)
	}
	defer rows.Close()

	for rows.Next() {
		var bs BootState
		err = rows.Scan(&bs.ID, &bs.Patch, &bs.ClkSysHz, &bs.Released)
		if err != nil {
			return cfg, fmt.Errorf(
				"provdb: could not scan bootstates: %w",
				err,
			)
		}
		cfg = append(cfg, bs)
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf(
			"provdb: could not scan db for bootstates: %w",
			err,
		)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf(
			"provdb: context error while retrieving bootstates: %w",
			err,
		)
	}

	return cfg, nil
}
