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

package database

import (
	"database/sql"
	"time"
)

/*
 * Concrete databases live in subpackages. Shared records and interfaces
 * stay here so the service and API can depend on them without importing
 * a driver.
 */

// RunEntry is one sealed test run.
type RunEntry struct {
	SealedAt      time.Time `json:"sealedAt"`
	Port          string    `json:"port"`
	Result        string    `json:"result"`
	ResultName    string    `json:"resultName,omitempty"`
	ESN           string    `json:"esn"`
	LotCode       string    `json:"lotCode"`
	Text          string    `json:"text,omitempty"`
	DBID          int64     `db:"ID" json:"id"`
	FixtureSerial uint32    `json:"fixtureSerial"`
	Cycle         int       `json:"cycle"`
	Model         int       `json:"model"`
}

type GenericDBI interface {
	UnsafeGetSQLDb() *sql.DB
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

type RunDBI interface {
	GenericDBI
	AddRun(entry *RunEntry) error
	RecentRuns(serial uint32, limit int) ([]RunEntry, error)
	CleanupRuns(retentionDays int) (int64, error)
}
