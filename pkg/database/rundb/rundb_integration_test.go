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

package rundb

import (
	"context"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDB_Integration(t *testing.T) {
	t.Parallel()

	db, err := OpenRunDB(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	old := time.Now().AddDate(0, 0, -40)
	for i, serial := range []uint32{1, 2, 1} {
		entry := &database.RunEntry{
			FixtureSerial: serial,
			Port:          "COM1",
			Result:        "000",
			Cycle:         i + 1,
			Model:         8,
			SealedAt:      time.Now(),
		}
		if i == 0 {
			entry.SealedAt = old
		}
		require.NoError(t, db.AddRun(entry))
		assert.Positive(t, entry.DBID)
	}

	all, err := db.RecentRuns(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].Cycle)

	fix1, err := db.RecentRuns(1, 10)
	require.NoError(t, err)
	assert.Len(t, fix1, 2)

	removed, err := db.CleanupRuns(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	fix1, err = db.RecentRuns(1, 10)
	require.NoError(t, err)
	assert.Len(t, fix1, 1)

	// reopening re-runs migrations without error
	require.NoError(t, db.MigrateUp())
}
