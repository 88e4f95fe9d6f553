// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"io"
)

// RegIO is the register-level access a Controller consumes: 32-bit
// little-endian reads and writes at byte offsets from the eFuse base.
type RegIO interface {
	io.ReaderAt
	io.WriterAt
}

type reg32 struct {
	r func() uint32
	w func(v uint32)
}

func newReg32(ctl *Controller, offset int64) reg32 {
	return reg32{
		r: func() uint32 {
			return ctl.readU32(offset)
		},
		w: func(v uint32) {
			ctl.writeU32(offset, v)
		},
	}
}
