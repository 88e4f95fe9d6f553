// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-cvi/otp/internal/regs"
)

// fakeDevMem creates a sparse file large enough to carry the eFuse
// register window at its hardware offset.
func fakeDevMem(t *testing.T) string {
	t.Helper()

	fname := filepath.Join(t.TempDir(), "dev.mem")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create fake dev-mem: %+v", err)
	}
	defer f.Close()

	_, err = f.WriteAt([]byte{1}, regs.EFUSE_BASE+regs.EFUSE_SPAN)
	if err != nil {
		t.Fatalf("could not size fake dev-mem: %+v", err)
	}

	return fname
}

func TestNewController(t *testing.T) {
	ctl, err := NewController(fakeDevMem(t))
	if err != nil {
		t.Fatalf("could not create fuse controller: %+v", err)
	}

	v, err := ctl.ReadShadow(0x00)
	if err != nil {
		t.Fatalf("could not read shadow word: %+v", err)
	}
	if v != 0 {
		t.Fatalf("invalid blank shadow word: got=0x%08x, want=0", v)
	}

	buf := make([]byte, Size)
	n, err := ctl.ReadBuffer(0, buf)
	if err != nil {
		t.Fatalf("could not read shadow buffer: %+v", err)
	}
	if got, want := n, Size; got != want {
		t.Fatalf("invalid shadow buffer length: got=%d, want=%d", got, want)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("invalid blank shadow buffer: buf[%d]=0x%x", i, b)
		}
	}

	err = ctl.Close()
	if err != nil {
		t.Fatalf("could not close fuse controller: %+v", err)
	}

	err = ctl.Close()
	if err != nil {
		t.Fatalf("could not re-close fuse controller: %+v", err)
	}
}

func TestNewControllerNoDev(t *testing.T) {
	_, err := NewController(filepath.Join(t.TempDir(), "not-there"))
	if err == nil {
		t.Fatalf("expected an error opening a missing memory device")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, os.ErrNotExist)
	}
}

func TestCheckAddr(t *testing.T) {
	for _, tc := range []struct {
		addr uint32
		want error
	}{
		{addr: 0x00, want: nil},
		{addr: 0x04, want: nil},
		{addr: 0xfc, want: nil},
		{addr: 0x100, want: ErrOutOfRange},
		{addr: 0xfffffffc, want: ErrOutOfRange},
		{addr: 0x01, want: ErrMisaligned},
		{addr: 0x101, want: ErrMisaligned},
		{addr: 0x02, want: ErrMisaligned},
		{addr: 0x03, want: ErrMisaligned},
		{addr: 0xfe, want: ErrMisaligned},
	} {
		got := checkAddr(tc.addr)
		if !errors.Is(got, tc.want) {
			t.Errorf("addr=0x%x: invalid error: got=%+v, want=%+v", tc.addr, got, tc.want)
		}
	}
}
