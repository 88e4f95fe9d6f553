// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the CV181x eFuse register map.
//
// Offsets and bit assignments are fixed by the hardware macro and
// must stay bit-exact.
package regs // import "github.com/go-cvi/otp/internal/regs"

const (
	EFUSE_BASE = 0x03050000 // physical base of the eFuse register window
	EFUSE_SPAN = 0x1000

	// register offsets from EFUSE_BASE
	EFUSE_MODE    = 0x000
	EFUSE_ADR     = 0x004
	EFUSE_DIR_CMD = 0x008
	EFUSE_RD_DATA = 0x00C
	EFUSE_STATUS  = 0x010
	EFUSE_ONE_WAY = 0x014

	// shadow window, a 256-byte read-only mirror of the fuse array
	EFUSE_SHADOW = 0x100
	EFUSE_SIZE   = 0x100

	// MODE register bits
	EFUSE_BIT_AREAD  = 1 << 0 // array read
	EFUSE_BIT_MREAD  = 1 << 1 // margin read
	EFUSE_BIT_PRG    = 1 << 2 // program
	EFUSE_BIT_PWR_DN = 1 << 3 // power down
	EFUSE_BIT_CMD    = 1 << 4 // command strobe

	// STATUS register bits
	EFUSE_BIT_BUSY = 1 << 0

	// full MODE command words
	EFUSE_CMD_REFRESH = 0x30 // resync shadow window from the fuse array
)
