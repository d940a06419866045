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

// Package rundb records sealed test runs in a local sqlite database.
package rundb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/database"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNullSQL = errors.New("RunDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

type RunDB struct {
	sql     *sql.DB
	ctx     context.Context //nolint:containedctx // lifetime of the service
	dataDir string
}

var _ database.RunDBI = (*RunDB)(nil)

// OpenRunDB opens (creating if needed) the run history in dataDir and
// brings its schema up to date.
func OpenRunDB(ctx context.Context, dataDir string) (*RunDB, error) {
	db := &RunDB{ctx: ctx, dataDir: dataDir}
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *RunDB) Open() error {
	dbPath := db.GetDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	return db.MigrateUp()
}

func (db *RunDB) GetDBPath() string {
	return filepath.Join(db.dataDir, config.RunsDbFile)
}

func (db *RunDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *RunDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *RunDB) Vacuum() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(db.ctx, db.sql)
}

func (db *RunDB) AddRun(entry *database.RunEntry) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlAddRun(db.ctx, db.sql, entry)
}

// RecentRuns returns up to limit runs, newest first. A zero serial
// matches every fixture.
func (db *RunDB) RecentRuns(serial uint32, limit int) ([]database.RunEntry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlRecentRuns(db.ctx, db.sql, serial, limit)
}

// CleanupRuns deletes runs older than retentionDays. Zero or less keeps
// everything.
func (db *RunDB) CleanupRuns(retentionDays int) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	if retentionDays <= 0 {
		return 0, nil
	}
	return sqlCleanupRuns(db.ctx, db.sql, retentionDays)
}

func (db *RunDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting injects a connection without running migrations.
func (db *RunDB) SetSQLForTesting(ctx context.Context, sqlDB *sql.DB) {
	db.sql = sqlDB
	db.ctx = ctx
}
