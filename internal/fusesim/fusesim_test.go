// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fusesim

import (
	"encoding/binary"
	"testing"

	"github.com/go-cvi/otp/internal/regs"
)

func rd32(t *testing.T, m *Macro, off int64) uint32 {
	t.Helper()

	var buf [4]byte
	_, err := m.ReadAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not read register 0x%x: %+v", off, err)
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func wr32(t *testing.T, m *Macro, off int64, v uint32) {
	t.Helper()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := m.WriteAt(buf[:], off)
	if err != nil {
		t.Fatalf("could not write register 0x%x: %+v", off, err)
	}
}

// progAddr packs a physical programming address the way the macro
// decodes it: bit position in [11:7], row number in [6:0].
func progAddr(bit, row uint32) uint32 {
	return bit<<7 | row
}

func TestMacroProgram(t *testing.T) {
	m := New(0)

	// power up, program bit 3 of row 0, then bit 3 of row 1
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_CMD)
	for row := uint32(0); row < 2; row++ {
		wr32(t, m, regs.EFUSE_ADR, progAddr(3, row))
		wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PRG|regs.EFUSE_BIT_CMD)
	}

	if got, want := m.ProgPulses(), 2; got != want {
		t.Fatalf("invalid number of program pulses: got=%d, want=%d", got, want)
	}
	for row := 0; row < 2; row++ {
		if got, want := m.Row(row), uint32(1<<3); got != want {
			t.Fatalf("invalid row %d contents: got=0x%08x, want=0x%08x", row, got, want)
		}
	}

	// the shadow window lags until a refresh strobe
	if got := rd32(t, m, regs.EFUSE_SHADOW); got != 0 {
		t.Fatalf("shadow updated without refresh: got=0x%08x", got)
	}
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_CMD_REFRESH)
	if got, want := rd32(t, m, regs.EFUSE_SHADOW), uint32(1<<3); got != want {
		t.Fatalf("invalid shadow word: got=0x%08x, want=0x%08x", got, want)
	}
}

func TestMacroShadowComposesRows(t *testing.T) {
	m := New(0)

	// different bits on the two rows of word 2
	wr32(t, m, regs.EFUSE_ADR, progAddr(0, 4))
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PRG|regs.EFUSE_BIT_CMD)
	wr32(t, m, regs.EFUSE_ADR, progAddr(1, 5))
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PRG|regs.EFUSE_BIT_CMD)

	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_CMD_REFRESH)

	if got, want := rd32(t, m, regs.EFUSE_SHADOW+2*4), uint32(0x3); got != want {
		t.Fatalf("invalid composed shadow word: got=0x%08x, want=0x%08x", got, want)
	}
}

func TestMacroReads(t *testing.T) {
	m := New(0)

	wr32(t, m, regs.EFUSE_ADR, progAddr(7, 6))
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PRG|regs.EFUSE_BIT_CMD)

	wr32(t, m, regs.EFUSE_ADR, 6)
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_AREAD|regs.EFUSE_BIT_CMD)
	if got, want := rd32(t, m, regs.EFUSE_RD_DATA), uint32(1<<7); got != want {
		t.Fatalf("invalid array read: got=0x%08x, want=0x%08x", got, want)
	}

	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_MREAD|regs.EFUSE_BIT_CMD)
	if got, want := rd32(t, m, regs.EFUSE_RD_DATA), uint32(1<<7); got != want {
		t.Fatalf("invalid margin read: got=0x%08x, want=0x%08x", got, want)
	}
}

func TestMacroWeakBit(t *testing.T) {
	m := New(0)

	m.WeakenBit(3, 7, 0)

	wr32(t, m, regs.EFUSE_ADR, progAddr(7, 6))
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PRG|regs.EFUSE_BIT_CMD)

	// an array read still sees the weak bit
	wr32(t, m, regs.EFUSE_ADR, 6)
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_AREAD|regs.EFUSE_BIT_CMD)
	if got, want := rd32(t, m, regs.EFUSE_RD_DATA), uint32(1<<7); got != want {
		t.Fatalf("invalid array read: got=0x%08x, want=0x%08x", got, want)
	}

	// a margin read does not
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_MREAD|regs.EFUSE_BIT_CMD)
	if got := rd32(t, m, regs.EFUSE_RD_DATA); got != 0 {
		t.Fatalf("margin read sees weak bit: got=0x%08x", got)
	}
}

func TestMacroBusy(t *testing.T) {
	m := New(3)

	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_CMD)
	for i := 0; i < 3; i++ {
		if got := rd32(t, m, regs.EFUSE_STATUS) & regs.EFUSE_BIT_BUSY; got == 0 {
			t.Fatalf("busy bit clear after %d polls, want 3", i)
		}
	}
	if got := rd32(t, m, regs.EFUSE_STATUS) & regs.EFUSE_BIT_BUSY; got != 0 {
		t.Fatalf("busy bit still set after latency elapsed")
	}

	m.StickBusy()
	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_CMD)
	for i := 0; i < 16; i++ {
		if got := rd32(t, m, regs.EFUSE_STATUS) & regs.EFUSE_BIT_BUSY; got == 0 {
			t.Fatalf("stuck busy bit cleared after %d polls", i)
		}
	}
}

func TestMacroPower(t *testing.T) {
	m := New(0)

	if m.Powered() {
		t.Fatalf("macro powered at reset")
	}

	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_CMD)
	if !m.Powered() {
		t.Fatalf("macro not powered after power-up strobe")
	}

	wr32(t, m, regs.EFUSE_MODE, regs.EFUSE_BIT_PWR_DN|regs.EFUSE_BIT_CMD)
	if m.Powered() {
		t.Fatalf("macro powered after power-down strobe")
	}
}

func TestMacroBusAlignment(t *testing.T) {
	m := New(0)

	if _, err := m.ReadAt(make([]byte, 2), 0); err == nil {
		t.Fatalf("expected an error on short register read")
	}
	if _, err := m.ReadAt(make([]byte, 4), 2); err == nil {
		t.Fatalf("expected an error on unaligned register read")
	}
	if _, err := m.WriteAt(make([]byte, 4), 2); err == nil {
		t.Fatalf("expected an error on unaligned register write")
	}
	if _, err := m.ReadAt(make([]byte, 4), 0x800); err == nil {
		t.Fatalf("expected an error on out-of-window register read")
	}
	if _, err := m.WriteAt(make([]byte, 4), regs.EFUSE_SHADOW); err == nil {
		t.Fatalf("expected an error writing the read-only shadow window")
	}
}
