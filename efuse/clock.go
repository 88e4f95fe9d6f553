// Copyright 2026 The go-cvi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package efuse

// Clock gates access to the eFuse register window. The controller
// enables the clock for the duration of each operation and releases it
// on every exit path.
type Clock interface {
	Enable() error
	Disable() error
}

// nopClock is used on platforms where the eFuse clock is always on.
type nopClock struct{}

func (nopClock) Enable() error  { return nil }
func (nopClock) Disable() error { return nil }

var _ Clock = nopClock{}
