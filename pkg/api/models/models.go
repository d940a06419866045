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

package models

import "encoding/json"

const (
	NotificationRunSealed         = "runs.sealed"
	NotificationFixtureConnected  = "fixtures.connected"
	NotificationFixtureRemoved    = "fixtures.removed"
	NotificationFixtureFlashed    = "fixtures.flashed"
	NotificationExportCompleted   = "export.completed"
	NotificationUpgradeConfirming = "fixtures.upgrade.confirming"
)

// Notification is a server-originated event fanned out to subscribers
// such as MQTT publishers and the run history recorder.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}
