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

package helpers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/fixturelink/fixturelink-core/pkg/database/rundb"
	_ "github.com/mattn/go-sqlite3"
)

// NewTempRunDB returns a migrated run database backed by a file in the
// test's temp dir.
func NewTempRunDB(t *testing.T) *rundb.RunDB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "runs_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	db := &rundb.RunDB{}
	db.SetSQLForTesting(context.Background(), sqlDB)
	if err := db.MigrateUp(); err != nil {
		_ = sqlDB.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close run database: %v", err)
		}
	})
	return db
}
