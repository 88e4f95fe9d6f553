// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-cvi/otp/internal/mmap"
	"github.com/go-cvi/otp/internal/regs"
)

// Controller owns the memory-mapped eFuse register window and the
// clock gating it. A single controller is constructed at startup and
// shared; its public operations serialize on an internal lock, since
// the macro is a single shared resource with no hardware locking.
type Controller struct {
	msg *log.Logger
	mu  sync.Mutex // serializes the public entry points

	mem struct {
		fd *os.File
		h  *mmap.Handle
	}
	rw  RegIO
	clk Clock
	cfg config

	err error
	buf [4]byte

	regs struct {
		mode   reg32
		addr   reg32
		dirCmd reg32
		rdData reg32
		status reg32
		oneWay reg32
	}
}

// NewController maps the eFuse register window from the memory device
// at devmem (usually /dev/mem) and binds the register set. When the
// WithRegIO option is given, devmem is ignored and the provided window
// is used instead.
func NewController(devmem string, opts ...Option) (*Controller, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctl := &Controller{
		msg: log.New(os.Stdout, "efuse: ", 0),
		clk: cfg.clk,
		cfg: cfg,
	}

	if cfg.rw != nil {
		ctl.rw = cfg.rw
		ctl.bind()
		return ctl, nil
	}

	mem, err := os.OpenFile(devmem, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("efuse: could not open %q: %w", devmem, err)
	}

	h, err := mmap.Map(mem, regs.EFUSE_BASE, regs.EFUSE_SPAN)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("efuse: could not map register window: %w", err)
	}

	ctl.mem.fd = mem
	ctl.mem.h = h
	ctl.rw = h
	ctl.bind()

	return ctl, nil
}

func (ctl *Controller) bind() {
	ctl.regs.mode = newReg32(ctl, regs.EFUSE_MODE)
	ctl.regs.addr = newReg32(ctl, regs.EFUSE_ADR)
	ctl.regs.dirCmd = newReg32(ctl, regs.EFUSE_DIR_CMD)
	ctl.regs.rdData = newReg32(ctl, regs.EFUSE_RD_DATA)
	ctl.regs.status = newReg32(ctl, regs.EFUSE_STATUS)
	ctl.regs.oneWay = newReg32(ctl, regs.EFUSE_ONE_WAY)
}

// Close releases the register mapping. The fuse array itself is
// permanent hardware state and is never destroyed.
func (ctl *Controller) Close() error {
	if ctl.mem.fd == nil {
		return nil
	}

	var (
		errH   = ctl.mem.h.Close()
		errMem = ctl.mem.fd.Close()
	)

	ctl.mem.fd = nil
	ctl.mem.h = nil

	if errMem != nil {
		return fmt.Errorf("efuse: could not close device mem file: %w", errMem)
	}

	if errH != nil {
		return fmt.Errorf("efuse: could not unmap register window: %w", errH)
	}

	return nil
}

func (ctl *Controller) readU32(off int64) uint32 {
	if ctl.err != nil {
		return 0
	}
	_, ctl.err = ctl.rw.ReadAt(ctl.buf[:4], off)
	if ctl.err != nil {
		ctl.err = fmt.Errorf("efuse: could not read register 0x%x: %w", off, ctl.err)
		return 0
	}
	return binary.LittleEndian.Uint32(ctl.buf[:4])
}

func (ctl *Controller) writeU32(off int64, v uint32) {
	if ctl.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(ctl.buf[:4], v)
	_, ctl.err = ctl.rw.WriteAt(ctl.buf[:4], off)
	if ctl.err != nil {
		ctl.err = fmt.Errorf("efuse: could not write register 0x%x: %w", off, ctl.err)
		return
	}
}

// checkAddr validates a virtual byte address before any register
// access takes place.
func checkAddr(addr uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("efuse: address 0x%x: %w", addr, ErrMisaligned)
	}
	if addr >= regs.EFUSE_SIZE {
		return fmt.Errorf("efuse: address 0x%x: %w", addr, ErrOutOfRange)
	}
	return nil
}
