// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fusesim simulates the CV181x eFuse macro at the register
// level. It decodes MODE command strobes, models the one-time 0->1
// programming semantics of the fuse rows and composes the two
// redundant rows of each word into the shadow window on refresh.
//
// Programming fuses is irreversible on real silicon; the simulator
// backs the dry-run mode of the otp commands and the efuse tests.
package fusesim // import "github.com/go-cvi/otp/internal/fusesim"

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/go-cvi/otp/internal/regs"
)

const (
	// NumWords is the number of 32-bit virtual words in the array.
	NumWords = regs.EFUSE_SIZE / 4

	// numRows is the number of physical rows; two rows back each word.
	numRows = 2 * NumWords
)

// Macro is a register-level model of the eFuse macro. It implements
// the io.ReaderAt/io.WriterAt pair the efuse controller drives.
type Macro struct {
	mu sync.Mutex

	addr   uint32
	dirCmd uint32
	rdData uint32
	oneWay uint32

	powered bool
	busy    int  // remaining busy polls on STATUS
	stuck   bool // busy bit never clears

	rows   [numRows]uint32
	weak   [numRows]uint32 // bits that will program weakly
	faint  [numRows]uint32 // weakly-programmed bits: array-read sees them, margin-read does not
	shadow [NumWords]uint32

	latency int
	nProg   int
	nOps    int
}

// New returns a blank macro. Each strobed command holds the busy bit
// for latency polls.
func New(latency int) *Macro {
	return &Macro{latency: latency}
}

// WeakenBit marks a fuse bit so that the next program pulse leaves it
// weakly programmed: visible to an array-read, missed by a margin-read.
func (m *Macro) WeakenBit(word, bit, row uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weak[(2*word+row)%numRows] |= 1 << (bit & 0x1F)
}

// StickBusy wedges the busy bit, simulating a hung macro.
func (m *Macro) StickBusy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stuck = true
}

// ProgPulses returns the number of program pulses issued so far.
func (m *Macro) ProgPulses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nProg
}

// RegOps returns the number of register accesses performed so far.
func (m *Macro) RegOps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nOps
}

// Powered reports whether the macro is currently powered.
func (m *Macro) Powered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powered
}

// Row returns the raw contents of physical row i.
func (m *Macro) Row(i int) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[i%numRows]
}

// ReadAt implements the register read side. Only aligned 32-bit
// accesses are valid, matching the hardware bus.
func (m *Macro) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(p) != 4 || off%4 != 0 {
		return 0, fmt.Errorf("fusesim: unaligned register read (off=0x%x, len=%d)", off, len(p))
	}
	m.nOps++

	var v uint32
	switch {
	case off == regs.EFUSE_MODE:
		// command strobe, reads back as zero
	case off == regs.EFUSE_ADR:
		v = m.addr
	case off == regs.EFUSE_DIR_CMD:
		v = m.dirCmd
	case off == regs.EFUSE_RD_DATA:
		v = m.rdData
	case off == regs.EFUSE_STATUS:
		switch {
		case m.stuck:
			v = regs.EFUSE_BIT_BUSY
		case m.busy > 0:
			m.busy--
			v = regs.EFUSE_BIT_BUSY
		}
	case off == regs.EFUSE_ONE_WAY:
		v = m.oneWay
	case off >= regs.EFUSE_SHADOW && off < regs.EFUSE_SHADOW+regs.EFUSE_SIZE:
		v = m.shadow[(off-regs.EFUSE_SHADOW)/4]
	default:
		return 0, fmt.Errorf("fusesim: invalid register read at 0x%x", off)
	}

	binary.LittleEndian.PutUint32(p, v)
	return 4, nil
}

// WriteAt implements the register write side.
func (m *Macro) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(p) != 4 || off%4 != 0 {
		return 0, fmt.Errorf("fusesim: unaligned register write (off=0x%x, len=%d)", off, len(p))
	}
	m.nOps++

	v := binary.LittleEndian.Uint32(p)
	switch off {
	case regs.EFUSE_MODE:
		// MODE is a command strobe: it executes on write and
		// self-clears, so a read-modify-write never replays the
		// previous command.
		m.exec(v)
	case regs.EFUSE_ADR:
		m.addr = v
	case regs.EFUSE_DIR_CMD:
		m.dirCmd = v
	case regs.EFUSE_ONE_WAY:
		m.oneWay = v
	default:
		return 0, fmt.Errorf("fusesim: invalid register write at 0x%x", off)
	}

	return 4, nil
}

// exec dispatches a MODE write.
func (m *Macro) exec(v uint32) {
	if v == regs.EFUSE_CMD_REFRESH {
		for w := 0; w < NumWords; w++ {
			m.shadow[w] = m.rows[2*w] | m.rows[2*w+1]
		}
		m.busy = m.latency
		return
	}

	if v&regs.EFUSE_BIT_CMD == 0 {
		return
	}
	m.powered = v&regs.EFUSE_BIT_PWR_DN == 0

	switch {
	case v&regs.EFUSE_BIT_AREAD != 0:
		m.rdData = m.rows[m.addr%numRows]
	case v&regs.EFUSE_BIT_MREAD != 0:
		i := m.addr % numRows
		m.rdData = m.rows[i] &^ m.faint[i]
	case v&regs.EFUSE_BIT_PRG != 0:
		m.nProg++
		var (
			bit  = (m.addr >> 7) & 0x1F
			row  = (m.addr & 0x7F) % numRows
			mask = uint32(1) << bit
		)
		m.rows[row] |= mask
		if m.weak[row]&mask != 0 {
			m.faint[row] |= mask
		}
	}
	m.busy = m.latency
}
