// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command efuse-dump prints a hex dump of the eFuse shadow window.
//
//	$> efuse-dump -addr 0 -n 256
//	00000000  00 00 00 00 ef be ad de  00 00 00 00 00 00 00 00  |................|
//	...
package main // import "github.com/go-cvi/otp/cmd/efuse-dump"

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-cvi/otp/efuse"
	"github.com/go-cvi/otp/internal/fusesim"
)

func main() {
	log.SetPrefix("efuse-dump: ")
	log.SetFlags(0)

	var (
		devmem = flag.String("dev-mem", "/dev/mem", "memory device with the eFuse register window")
		addr   = flag.Uint("addr", 0, "byte offset into the fuse array")
		n      = flag.Int("n", efuse.Size, "number of bytes to dump")
		dryRun = flag.Bool("dry-run", false, "drive a simulated fuse macro instead of the hardware")
	)

	flag.Parse()

	var opts []efuse.Option
	if *dryRun {
		opts = append(opts, efuse.WithRegIO(fusesim.New(2)))
	}

	ctl, err := efuse.NewController(*devmem, opts...)
	if err != nil {
		log.Fatalf("could not create fuse controller: %+v", err)
	}
	defer ctl.Close()

	buf := make([]byte, *n)
	nr, err := ctl.ReadBuffer(uint32(*addr), buf)
	if err != nil {
		log.Fatalf("could not read fuse buffer: %+v", err)
	}

	_, err = fmt.Fprint(os.Stdout, hex.Dump(buf[:nr]))
	if err != nil {
		log.Fatalf("could not dump fuse buffer: %+v", err)
	}
}
