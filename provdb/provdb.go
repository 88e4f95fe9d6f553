// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package provdb holds types to describe the factory provisioning
// database for eFuse programming: the fuse words pending for a given
// board serial and the audit trail of burn results.
package provdb // import "github.com/go-cvi/otp/provdb"

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
	usr = "provision"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Write is one fuse word scheduled for programming.
type Write struct {
	Addr  uint32 // virtual byte address, 4-byte aligned
	Value uint32
}

// Burn is the recorded outcome of one programming attempt.
type Burn struct {
	Serial string
	Addr   uint32
	Value  uint32
	OK     bool
	Status string // error text when !OK
}

// DB exposes convenience methods to retrieve pending fuse writes and
// record burn results in the provisioning database.
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

// PendingWrites returns the fuse words scheduled for the board with
// the given serial, in address order.
func (db *DB) PendingWrites(ctx context.Context, serial string) ([]Write, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT addr, value FROM fuse_writes WHERE serial = ? AND burned = 0 ORDER BY addr",
		serial,
	)
	if err != nil {
		return nil, fmt.Errorf("provdb: could not query pending writes: %w", err)
	}
	defer rows.Close()

	var ws []Write
	for rows.Next() {
		var w Write
		err = rows.Scan(&w.Addr, &w.Value)
		if err != nil {
			return nil, fmt.Errorf("provdb: could not get pending write: %w", err)
		}
		ws = append(ws, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("provdb: could not scan db for pending writes: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("provdb: context error while retrieving pending writes: %w", err)
	}

	return ws, nil
}

// RecordBurn appends one burn result to the audit trail.
func (db *DB) RecordBurn(ctx context.Context, burn Burn) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		"INSERT INTO fuse_burns (serial, addr, value, ok, status) VALUES (?, ?, ?, ?, ?)",
		burn.Serial, burn.Addr, burn.Value, burn.OK, burn.Status,
	)
	if err != nil {
		return fmt.Errorf("provdb: could not record burn (serial=%s, addr=0x%x): %w",
			burn.Serial, burn.Addr, err,
		)
	}

	return nil
}
