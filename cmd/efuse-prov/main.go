// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command efuse-prov burns the fuse words a board is provisioned with.
//
// It looks up the pending writes for the given board serial in the
// provisioning database, programs them one by one and records the
// outcome of each burn back into the database.
package main // import "github.com/go-cvi/otp/cmd/efuse-prov"

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/go-cvi/otp/efuse"
	"github.com/go-cvi/otp/internal/fusesim"
	"github.com/go-cvi/otp/provdb"
	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetPrefix("efuse-prov: ")
	log.SetFlags(0)

	var (
		dbname = flag.String("db", "provsrv", "name of the provisioning database")
		serial = flag.String("serial", "", "serial number of the board to provision")
		devmem = flag.String("dev-mem", "/dev/mem", "memory device with the eFuse register window")
		dryRun = flag.Bool("dry-run", false, "drive a simulated fuse macro instead of the hardware")
	)

	flag.Parse()

	if *serial == "" {
		log.Fatalf("missing board serial number (-serial)")
	}

	var opts []efuse.Option
	if *dryRun {
		opts = append(opts, efuse.WithRegIO(fusesim.New(2)))
		log.Printf("dry-run: driving a simulated fuse macro")
	}

	err := provision(*dbname, *serial, *devmem, opts...)
	if err != nil {
		log.Fatalf("could not provision board %q: %+v", *serial, err)
	}
}

func provision(dbname, serial, devmem string, opts ...efuse.Option) error {
	db, err := provdb.Open(dbname)
	if err != nil {
		return fmt.Errorf("could not open provisioning db: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	writes, err := db.PendingWrites(ctx, serial)
	if err != nil {
		return fmt.Errorf("could not fetch pending writes: %w", err)
	}
	if len(writes) == 0 {
		log.Printf("board %q: nothing to burn", serial)
		return nil
	}
	log.Printf("board %q: %d pending write(s)", serial, len(writes))

	ctl, err := efuse.NewController(devmem, opts...)
	if err != nil {
		return fmt.Errorf("could not create fuse controller: %w", err)
	}
	defer ctl.Close()

	var nerr int
	for _, w := range writes {
		burn := provdb.Burn{
			Serial: serial,
			Addr:   w.Addr,
			Value:  w.Value,
			OK:     true,
			Status: "ok",
		}
		err := ctl.WriteWord(w.Addr, w.Value)
		if err != nil {
			nerr++
			burn.OK = false
			burn.Status = err.Error()
			log.Printf("could not burn 0x%08x to 0x%02x: %+v", w.Value, w.Addr, err)
		} else {
			log.Printf("burned 0x%08x to 0x%02x", w.Value, w.Addr)
		}
		if err := db.RecordBurn(ctx, burn); err != nil {
			return fmt.Errorf("could not record burn (addr=0x%02x): %w", w.Addr, err)
		}
	}

	if nerr > 0 {
		return fmt.Errorf("%d burn(s) failed", nerr)
	}
	return nil
}
