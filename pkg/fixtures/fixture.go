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

// Package fixtures tracks the test fixtures attached to this station.
package fixtures

import (
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
)

// Fixture is one connected test fixture. It is created by a successful
// handshake and discarded when its port disappears or after a flash.
type Fixture struct {
	runlog.State

	Framer *transport.Framer
	Log    *runlog.DailyLog

	Port       string
	Type       string
	LotCode    string
	CurLotCode string
	Serial     uint32
	GUID       uint32
	Model      int
	CurModel   int
	Upgrading  bool
}

// NewFixture returns a fixture with no model or lot code applied yet.
func NewFixture(port string, framer *transport.Framer) *Fixture {
	return &Fixture{
		Port:     port,
		Framer:   framer,
		Model:    1,
		CurModel: -1,
	}
}

// Close releases the fixture's port.
func (f *Fixture) Close() error {
	if f.Framer == nil {
		return nil
	}
	return f.Framer.Close()
}

// ApplyModel clamps the model for production stations and recomputes the
// lot code.
func (f *Fixture) ApplyModel(lotPart1, lotPart2 string, minModel int, debug bool) {
	if !debug && f.Model < minModel {
		f.Model = minModel
	}
	f.LotCode = LotCode(lotPart1, lotPart2, f.Model)
}

// NeedsLotUpdate reports whether the fixture's programmed lot code or model
// is stale.
func (f *Fixture) NeedsLotUpdate() bool {
	return f.LotCode != f.CurLotCode || f.Model != f.CurModel
}
