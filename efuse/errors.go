// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import "errors"

var (
	// ErrOutOfRange is returned when an address falls outside the
	// 256-byte fuse array.
	ErrOutOfRange = errors.New("efuse: address out of range")

	// ErrMisaligned is returned when an address is not 4-byte aligned.
	ErrMisaligned = errors.New("efuse: address not 4-byte aligned")

	// ErrUnsupportedMode is returned when an invalid read type reaches
	// the macro. This is a programming error, not a hardware fault.
	ErrUnsupportedMode = errors.New("efuse: unsupported read type")

	// ErrClockGate is returned when the clock gating the register
	// window could not be enabled or released.
	ErrClockGate = errors.New("efuse: clock gate failure")

	// ErrVerification is returned when both physical rows of a word
	// fail the post-program margin-read check. The word must be
	// treated as suspect; reprogramming does not recover it.
	ErrVerification = errors.New("efuse: program verification failed")

	// ErrBufferFault is returned when the caller-supplied buffer is
	// invalid.
	ErrBufferFault = errors.New("efuse: invalid buffer")

	// ErrTimeout is returned when the macro busy bit does not clear
	// within the configured poll budget.
	ErrTimeout = errors.New("efuse: hardware timeout")
)
