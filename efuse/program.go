// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"encoding/binary"
	"fmt"

	"github.com/go-cvi/otp/internal/regs"
)

// physAddr composes the physical programming address from a virtual
// word index, a bit position and a row selector:
//
//	addr[11:7] = bit position (0-31)
//	addr[6:1]  = word index   (0-63)
//	addr[0]    = row selector (each virtual word spans two rows)
//
// The packing is hardware contract.
func physAddr(word, bit, row uint32) uint32 {
	return (bit&0x1F)<<7 | (word&0x3F)<<1 | row&1
}

// waitReady polls the STATUS busy bit until it clears. Operations
// complete in microseconds, so this is a tight spin, bounded by the
// configured poll budget.
func (ctl *Controller) waitReady() error {
	for i := 0; i < ctl.cfg.busy; i++ {
		busy := ctl.regs.status.r() & regs.EFUSE_BIT_BUSY
		if ctl.err != nil {
			return ctl.err
		}
		if busy == 0 {
			return nil
		}
	}
	return fmt.Errorf("efuse: busy bit stuck after %d polls: %w", ctl.cfg.busy, ErrTimeout)
}

// powerOn powers the fuse macro up or down. The macro is powered down
// between operations and must be powered on before any read.
func (ctl *Controller) powerOn(on bool) {
	mode := ctl.regs.mode.r()
	switch {
	case on:
		ctl.regs.mode.w(mode | regs.EFUSE_BIT_CMD)
	default:
		ctl.regs.mode.w(mode | regs.EFUSE_BIT_PWR_DN | regs.EFUSE_BIT_CMD)
	}
}

// refresh resyncs the shadow window from the physical fuse array.
func (ctl *Controller) refresh() {
	ctl.regs.mode.w(regs.EFUSE_CMD_REFRESH)
}

// readFromPhys reads one physical row of the fuse array.
func (ctl *Controller) readFromPhys(phy uint32, typ readType) (uint32, error) {
	ctl.powerOn(true)

	err := ctl.waitReady()
	if err != nil {
		return 0, err
	}

	ctl.regs.addr.w(phy)

	switch typ {
	case arrayRead:
		ctl.regs.mode.w(regs.EFUSE_BIT_AREAD | regs.EFUSE_BIT_CMD)
	case marginRead:
		ctl.regs.mode.w(regs.EFUSE_BIT_MREAD | regs.EFUSE_BIT_CMD)
	default:
		return 0, fmt.Errorf("efuse: read type %d: %w", typ, ErrUnsupportedMode)
	}

	err = ctl.waitReady()
	if err != nil {
		return 0, err
	}

	v := ctl.regs.rdData.r()
	if ctl.err != nil {
		return 0, ctl.err
	}
	return v, nil
}

// progBit programs a single fuse bit. Irreversible: it must only be
// issued for bits confirmed zero by a preceding array-read.
func (ctl *Controller) progBit(word, bit, row uint32) error {
	err := ctl.waitReady()
	if err != nil {
		return err
	}

	ctl.regs.addr.w(physAddr(word, bit, row))
	ctl.regs.mode.w(regs.EFUSE_BIT_PRG | regs.EFUSE_BIT_CMD)

	return ctl.err
}

// writeWord programs both physical rows backing the virtual word at
// index vir and verifies each with a margin read. Bits already set are
// skipped: 1->0 is electrically impossible and redundant pulses are
// wasted. The word fails only when BOTH rows fail verification; the
// macro composes the redundant rows on read, so a single bad row still
// yields the programmed value.
func (ctl *Controller) writeWord(vir, val uint32) error {
	var errCnt int

	for row := uint32(0); row < 2; row++ {
		phy := vir<<1 | row

		cur, err := ctl.readFromPhys(phy, arrayRead)
		if err != nil {
			return err
		}

		zero := val &^ cur // bits that must transition 0->1
		for bit := uint32(0); bit < 32; bit++ {
			if (zero>>bit)&1 == 0 {
				continue
			}
			err = ctl.progBit(vir, bit, row)
			if err != nil {
				return err
			}
		}

		chk, err := ctl.readFromPhys(phy, marginRead)
		if err != nil {
			return err
		}
		if val&chk != val {
			errCnt++
			ctl.msg.Printf("program check failed on row 0x%x of word 0x%x (%d)", phy, vir*4, errCnt)
		}
	}

	ctl.refresh()
	if ctl.err != nil {
		return ctl.err
	}

	if errCnt >= 2 {
		return fmt.Errorf("efuse: word 0x%x: %w", vir*4, ErrVerification)
	}
	return nil
}

// WriteWord programs the 32-bit word at the virtual byte address addr
// to value. Bits already programmed are left untouched, so rewriting a
// word is idempotent with respect to its set bits.
func (ctl *Controller) WriteWord(addr, value uint32) (err error) {
	if err := checkAddr(addr); err != nil {
		return err
	}

	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	if err := ctl.clk.Enable(); err != nil {
		return fmt.Errorf("efuse: could not enable clock: %w (%v)", ErrClockGate, err)
	}
	defer func() {
		if cerr := ctl.clk.Disable(); cerr != nil && err == nil {
			err = fmt.Errorf("efuse: could not release clock: %w (%v)", ErrClockGate, cerr)
		}
	}()

	err = ctl.writeWord(addr/4, value)

	// final shadow resync, then back to idle
	ctl.powerOn(true)
	ctl.refresh()
	if werr := ctl.waitReady(); werr != nil && err == nil {
		err = werr
	}
	ctl.powerOn(false)
	if ctl.err != nil && err == nil {
		err = ctl.err
	}

	return err
}

// ReadShadow returns the 32-bit word at the virtual byte address addr,
// read from the shadow window. The shadow mirrors the fuse array as of
// the last refresh and does not require the programming protocol.
func (ctl *Controller) ReadShadow(addr uint32) (uint32, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}

	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	return ctl.readShadow(addr)
}

// readShadow performs one gated shadow-window read. Callers hold ctl.mu.
func (ctl *Controller) readShadow(addr uint32) (uint32, error) {
	if err := ctl.clk.Enable(); err != nil {
		return 0, fmt.Errorf("efuse: could not enable clock: %w (%v)", ErrClockGate, err)
	}

	v := ctl.readU32(regs.EFUSE_SHADOW + int64(addr))
	err := ctl.err

	if cerr := ctl.clk.Disable(); cerr != nil && err == nil {
		err = fmt.Errorf("efuse: could not release clock: %w (%v)", ErrClockGate, cerr)
	}

	if err != nil {
		return 0, err
	}
	return v, nil
}

// ReadBuffer fills p with shadow-window bytes starting at the virtual
// byte address addr, in 4-byte strides. Requests longer than the fuse
// array are clamped to its size. It returns the number of bytes filled.
func (ctl *Controller) ReadBuffer(addr uint32, p []byte) (int, error) {
	if p == nil {
		return 0, fmt.Errorf("efuse: nil buffer: %w", ErrBufferFault)
	}

	n := len(p)
	if n > regs.EFUSE_SIZE {
		n = regs.EFUSE_SIZE
	}

	ctl.mu.Lock()
	defer ctl.mu.Unlock()

	for i := range p[:n] {
		p[i] = 0
	}

	var word [4]byte
	for i := 0; i < n; i += 4 {
		a := addr + uint32(i)
		if err := checkAddr(a); err != nil {
			return 0, err
		}
		v, err := ctl.readShadow(a)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint32(word[:], v)
		copy(p[i:n], word[:])
	}

	return n, nil
}
