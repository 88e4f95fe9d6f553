// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

// config holds the tunables of a Controller.
type config struct {
	clk  Clock
	rw   RegIO // externally provided register window (testing, dry-run)
	busy int   // busy-bit poll budget per wait
}

func newConfig() config {
	return config{
		clk:  nopClock{},
		busy: 1 << 20,
	}
}

// Option configures a Controller.
type Option func(*config)

// WithClock selects the clock gating the register window.
// The default clock is always on.
func WithClock(clk Clock) Option {
	return func(cfg *config) {
		cfg.clk = clk
	}
}

// WithBusyBudget bounds the number of STATUS polls a single wait may
// spend before reporting a hardware timeout.
func WithBusyBudget(n int) Option {
	return func(cfg *config) {
		cfg.busy = n
	}
}

// WithRegIO backs the controller with the provided register window
// instead of mapping the hardware one. Used with the macro simulator
// for dry runs and tests.
func WithRegIO(rw RegIO) Option {
	return func(cfg *config) {
		cfg.rw = rw
	}
}
