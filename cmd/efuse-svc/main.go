// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command efuse-svc exposes the eFuse controller over a JSON/TCP
// endpoint, one request per line:
//
//	{"name": "read",  "args": {"addr": 4}}
//	{"name": "write", "args": {"addr": 4, "value": 3735928559}}
//	{"name": "dump",  "args": {"addr": 0, "size": 256}}
//	{"name": "quit"}
//
// The service stops on SIGINT or SIGTERM.
package main // import "github.com/go-cvi/otp/cmd/efuse-svc"

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-cvi/otp/efuse"
	"github.com/go-cvi/otp/internal/fusesim"
)

func main() {
	var (
		addr   = flag.String("addr", ":8877", "efuse-svc [addr]:port")
		devmem = flag.String("dev-mem", "/dev/mem", "memory device with the eFuse register window")
		dryRun = flag.Bool("dry-run", false, "drive a simulated fuse macro instead of the hardware")
	)

	log.SetPrefix("efuse-svc: ")
	log.SetFlags(0)

	flag.Parse()

	var opts []efuse.Option
	if *dryRun {
		opts = append(opts, efuse.WithRegIO(fusesim.New(2)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := efuse.Serve(ctx, *addr, *devmem, opts...)
	if err != nil {
		log.Fatalf("could not run efuse service: %+v", err)
	}
}
