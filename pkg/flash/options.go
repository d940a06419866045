// FixtureLink Core
// Copyright (c) 2026 The FixtureLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FixtureLink Core.
//
// FixtureLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FixtureLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FixtureLink Core.  If not, see <http://www.gnu.org/licenses/>.

package flash

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultFlashTimeout = 13 * time.Second
	DefaultSettleDelay  = 100 * time.Millisecond
)

// Config holds the engine configuration.
type Config struct {
	ProgressCallback ProgressCallback
	Clock            clockwork.Clock
	// FlashTimeout bounds each ack wait. Sized for the worst case flash
	// erase.
	FlashTimeout time.Duration
	// SettleDelay is the pause after Exit before residual output is
	// drained.
	SettleDelay time.Duration
}

func defaultConfig() Config {
	return Config{
		Clock:        clockwork.NewRealClock(),
		FlashTimeout: DefaultFlashTimeout,
		SettleDelay:  DefaultSettleDelay,
	}
}

// Option configures an Engine.
type Option func(*Config)

// WithProgressCallback sets a callback invoked after every acked header
// byte and block.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = cb
	}
}

func WithFlashTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.FlashTimeout = timeout
		}
	}
}

func WithSettleDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.SettleDelay = delay
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}
