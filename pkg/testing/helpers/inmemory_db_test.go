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
	"encoding/binary"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempRunDB(t *testing.T) {
	t.Parallel()

	db := NewTempRunDB(t)

	entry := &database.RunEntry{
		SealedAt:      time.Date(2026, time.January, 4, 10, 0, 0, 0, time.UTC),
		Port:          "COM3",
		Result:        "000",
		ESN:           "00012345",
		LotCode:       "11160208",
		FixtureSerial: 42,
		Cycle:         1,
		Model:         8,
	}
	require.NoError(t, db.AddRun(entry))
	assert.Positive(t, entry.DBID)

	runs, err := db.RecentRuns(42, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "00012345", runs[0].ESN)
}

func TestFSHelper_WriteFirmwareImage(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	data, err := h.WriteFirmwareImage("/fw/fixture.safe", 64, 0xDEADBEEF)
	require.NoError(t, err)
	require.Len(t, data, 64)
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(data[FirmwareGUIDOffset:]))
	assert.True(t, h.FileExists("/fw/fixture.safe"))

	_, err = h.WriteFirmwareImage("/fw/tiny.safe", 4, 1)
	require.Error(t, err)
}

func TestFSHelper_WriteLogs(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	require.NoError(t, h.WriteLogs("/logs", map[string]string{
		"260104-fix2.log": "b",
		"260104-fix1.log": "a",
	}))
	require.NoError(t, h.Fs.MkdirAll("/logs/backup", 0o750))

	names, err := h.ListFiles("/logs")
	require.NoError(t, err)
	assert.Equal(t, []string{"260104-fix1.log", "260104-fix2.log"}, names)
}
