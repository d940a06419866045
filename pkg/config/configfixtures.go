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

package config

import (
	"fmt"
	"time"
)

const (
	DefaultLot          = "111"
	DefaultDebugLot     = "999"
	DefaultVendorMarker = "ANKI"
	DefaultBaudRate     = 1000000
	DefaultReadTimeout  = 100 * time.Millisecond
	DefaultFlashTimeout = 13 * time.Second
	DefaultMinModel     = 8
)

var DefaultFirmwarePaths = []string{"fixture.safe", "../../fixture.safe"}

type Fixtures struct {
	modelBySerial      map[uint32]int
	MinModel           *int           `toml:"min_model,omitempty"`
	Lot                string         `toml:"lot"`
	VendorMarker       string         `toml:"vendor_marker,omitempty"`
	ReadTimeout        string         `toml:"read_timeout,omitempty"`
	FlashTimeout       string         `toml:"flash_timeout,omitempty"`
	FirmwarePaths      []string       `toml:"firmware_paths,omitempty"`
	Models             []FixtureModel `toml:"model,omitempty"`
	BaudRate           int            `toml:"baud_rate,omitempty"`
	Debug              bool           `toml:"debug"`
	AutoConfirmUpgrade bool           `toml:"auto_confirm_upgrade,omitempty"`
}

// FixtureModel assigns a product model to the fixture with the given
// serial number.
type FixtureModel struct {
	Serial uint32 `toml:"serial"`
	Model  int    `toml:"model"`
}

func buildModelIndex(models []FixtureModel) map[uint32]int {
	idx := make(map[uint32]int, len(models))
	for _, m := range models {
		idx[m.Serial] = m.Model
	}
	return idx
}

func validateLot(lot string) error {
	if len(lot) != 3 {
		return fmt.Errorf("lot must be exactly 3 characters, got %q", lot)
	}
	for _, r := range lot {
		if r < '0' || r > '9' {
			return fmt.Errorf("lot must be numeric, got %q", lot)
		}
	}
	return nil
}

// Lot returns the operator-entered lot prefix. Debug stations always log
// under the debug lot.
func (c *Instance) Lot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Fixtures.Debug {
		return DefaultDebugLot
	}
	if c.vals.Fixtures.Lot == "" {
		return DefaultLot
	}
	return c.vals.Fixtures.Lot
}

func (c *Instance) SetLot(lot string) error {
	if err := validateLot(lot); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Fixtures.Lot = lot
	return nil
}

func (c *Instance) DebugMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Fixtures.Debug
}

func (c *Instance) SetDebugMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Fixtures.Debug = enabled
}

func (c *Instance) VendorMarker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Fixtures.VendorMarker == "" {
		return DefaultVendorMarker
	}
	return c.vals.Fixtures.VendorMarker
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Fixtures.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.vals.Fixtures.BaudRate
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ReadTimeout is the timeout for interactive fixture exchanges.
func (c *Instance) ReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Fixtures.ReadTimeout, DefaultReadTimeout)
}

// FlashTimeout is the widened per-ack timeout used while flashing, sized
// for worst-case erase latency.
func (c *Instance) FlashTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Fixtures.FlashTimeout, DefaultFlashTimeout)
}

func (c *Instance) FirmwarePaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Fixtures.FirmwarePaths) == 0 {
		return DefaultFirmwarePaths
	}
	return c.vals.Fixtures.FirmwarePaths
}

func (c *Instance) AutoConfirmUpgrade() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Fixtures.AutoConfirmUpgrade
}

func (c *Instance) MinModel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Fixtures.MinModel == nil {
		return DefaultMinModel
	}
	return *c.vals.Fixtures.MinModel
}

// ModelForSerial returns the configured model for a fixture serial.
func (c *Instance) ModelForSerial(serial uint32) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Fixtures.modelBySerial == nil {
		for _, m := range c.vals.Fixtures.Models {
			if m.Serial == serial {
				return m.Model, true
			}
		}
		return 0, false
	}
	m, ok := c.vals.Fixtures.modelBySerial[serial]
	return m, ok
}

func (c *Instance) SetModelForSerial(serial uint32, model int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	for i := range c.vals.Fixtures.Models {
		if c.vals.Fixtures.Models[i].Serial == serial {
			c.vals.Fixtures.Models[i].Model = model
			replaced = true
		}
	}
	if !replaced {
		c.vals.Fixtures.Models = append(c.vals.Fixtures.Models, FixtureModel{
			Serial: serial,
			Model:  model,
		})
	}
	c.vals.Fixtures.modelBySerial = buildModelIndex(c.vals.Fixtures.Models)
}
