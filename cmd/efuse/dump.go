// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/go-cvi/otp/efuse"
)

func dump(w io.Writer, ctl *efuse.Controller, addr uint32, size int) error {
	buf := make([]byte, size)
	n, err := ctl.ReadBuffer(addr, buf)
	if err != nil {
		return fmt.Errorf("could not read fuse buffer: %w", err)
	}
	_, err = fmt.Fprint(w, hex.Dump(buf[:n]))
	if err != nil {
		return fmt.Errorf("could not dump fuse buffer: %w", err)
	}
	return nil
}
