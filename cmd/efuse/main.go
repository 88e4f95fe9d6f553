// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command efuse is an interactive console for the CV181x eFuse array.
//
//	$> efuse
//	efuse> read 0x04
//	efuse> write 0x04 0xdeadbeef
//	efuse> dump 0 256
//	efuse> quit
//
// Programming fuses is irreversible; the -dry-run flag backs the
// console with a register-level simulator instead of the hardware.
package main // import "github.com/go-cvi/otp/cmd/efuse"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-cvi/otp"
	"github.com/go-cvi/otp/efuse"
	"github.com/go-cvi/otp/internal/fusesim"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("efuse: ")
	log.SetFlags(0)

	var (
		devmem  = flag.String("dev-mem", "/dev/mem", "memory device with the eFuse register window")
		dryRun  = flag.Bool("dry-run", false, "drive a simulated fuse macro instead of the hardware")
		yes     = flag.Bool("yes", false, "do not ask for confirmation before burning fuses")
		version = flag.Bool("version", false, "print version and exit")
	)

	flag.Parse()

	if *version {
		v, sum := otp.Version()
		fmt.Printf("efuse version=%q sum=%q\n", v, sum)
		return
	}

	var opts []efuse.Option
	if *dryRun {
		opts = append(opts, efuse.WithRegIO(fusesim.New(2)))
		log.Printf("dry-run: driving a simulated fuse macro")
	}

	ctl, err := efuse.NewController(*devmem, opts...)
	if err != nil {
		log.Fatalf("could not create fuse controller: %+v", err)
	}
	defer ctl.Close()

	err = interact(ctl, *yes)
	if err != nil {
		log.Fatalf("could not run efuse console: %+v", err)
	}
}

func interact(ctl *efuse.Controller, yes bool) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	for {
		s, err := line.Prompt("efuse> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("could not read prompt: %w", err)
		}

		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		line.AppendHistory(s)

		quit, err := dispatch(ctl, line, s, yes)
		if err != nil {
			log.Printf("%+v", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

func dispatch(ctl *efuse.Controller, line *liner.State, s string, yes bool) (bool, error) {
	toks := strings.Fields(s)
	switch toks[0] {
	case "read":
		if len(toks) != 2 {
			return false, fmt.Errorf("usage: read <addr>")
		}
		addr, err := parseU32(toks[1])
		if err != nil {
			return false, err
		}
		v, err := ctl.ReadShadow(addr)
		if err != nil {
			return false, err
		}
		fmt.Printf("0x%02x: 0x%08x\n", addr, v)

	case "write":
		if len(toks) != 3 {
			return false, fmt.Errorf("usage: write <addr> <value>")
		}
		addr, err := parseU32(toks[1])
		if err != nil {
			return false, err
		}
		v, err := parseU32(toks[2])
		if err != nil {
			return false, err
		}
		if !yes {
			ans, err := line.Prompt(fmt.Sprintf("burn 0x%08x to 0x%02x? [y/N] ", v, addr))
			if err != nil {
				return false, fmt.Errorf("could not read confirmation: %w", err)
			}
			if ans := strings.ToLower(strings.TrimSpace(ans)); ans != "y" && ans != "yes" {
				fmt.Println("aborted")
				return false, nil
			}
		}
		err = ctl.WriteWord(addr, v)
		if err != nil {
			return false, err
		}
		fmt.Printf("0x%02x: 0x%08x [done]\n", addr, v)

	case "dump":
		var (
			addr uint32
			size = efuse.Size
			err  error
		)
		if len(toks) > 1 {
			addr, err = parseU32(toks[1])
			if err != nil {
				return false, err
			}
		}
		if len(toks) > 2 {
			v, err := parseU32(toks[2])
			if err != nil {
				return false, err
			}
			size = int(v)
		}
		err = dump(os.Stdout, ctl, addr, size)
		if err != nil {
			return false, err
		}

	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Print(`commands:
  read  <addr>          read one 32-bit word from the shadow window
  write <addr> <value>  program one 32-bit word (irreversible)
  dump  [addr [size]]   hex-dump the shadow window
  quit                  leave the console
`)

	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", toks[0])
	}

	return false, nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q: %w", s, err)
	}
	return uint32(v), nil
}
