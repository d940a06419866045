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
	"database/sql"
	"fmt"

	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/stretchr/testify/mock"
)

// MockRunDBI is a mock implementation of database.RunDBI using
// testify/mock.
type MockRunDBI struct {
	mock.Mock
}

func (m *MockRunDBI) UnsafeGetSQLDb() *sql.DB {
	args := m.Called()
	if db, ok := args.Get(0).(*sql.DB); ok {
		return db
	}
	return nil
}

func (m *MockRunDBI) MigrateUp() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock RunDBI migrate up failed: %w", err)
	}
	return nil
}

func (m *MockRunDBI) Vacuum() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock RunDBI vacuum failed: %w", err)
	}
	return nil
}

func (m *MockRunDBI) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock RunDBI close failed: %w", err)
	}
	return nil
}

func (m *MockRunDBI) GetDBPath() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRunDBI) AddRun(entry *database.RunEntry) error {
	args := m.Called(entry)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock RunDBI add run failed: %w", err)
	}
	return nil
}

func (m *MockRunDBI) RecentRuns(serial uint32, limit int) ([]database.RunEntry, error) {
	args := m.Called(serial, limit)
	runs, _ := args.Get(0).([]database.RunEntry)
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock RunDBI recent runs failed: %w", err)
	}
	return runs, nil
}

func (m *MockRunDBI) CleanupRuns(retentionDays int) (int64, error) {
	args := m.Called(retentionDays)
	if err := args.Error(1); err != nil {
		return 0, fmt.Errorf("mock RunDBI cleanup failed: %w", err)
	}
	return args.Get(0).(int64), nil
}

// NewMockRunDBI returns a mock with the housekeeping calls stubbed.
func NewMockRunDBI() *MockRunDBI {
	m := &MockRunDBI{}
	m.On("Close").Return(nil).Maybe()
	m.On("GetDBPath").Return("/tmp/runs.db").Maybe()
	return m
}
