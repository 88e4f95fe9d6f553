// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package efuse drives the CV181x eFuse macro, a one-time-programmable
// 256-byte fuse array exposed through a small memory-mapped register set.
//
// Callers address the array by virtual word address: 4-byte aligned byte
// offsets in [0, 256). Each virtual 32-bit word is backed by two physical
// rows of the macro; programming writes both rows and reads compose them.
// A fuse bit can only ever transition from 0 to 1.
package efuse // import "github.com/go-cvi/otp/efuse"

import (
	"github.com/go-cvi/otp/internal/regs"
)

// Size is the size of the fuse array, in bytes.
const Size = regs.EFUSE_SIZE

// readType selects the read command issued to the macro.
type readType uint8

const (
	// arrayRead is a direct read of the current fuse state.
	arrayRead readType = iota
	// marginRead is a stricter read biased to expose weakly-programmed
	// bits. Used only for post-program verification.
	marginRead
)
