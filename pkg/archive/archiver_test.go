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

package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportTime = time.Date(2026, time.June, 9, 14, 30, 15, 0, time.UTC)

type failingDest struct{}

func (failingDest) Name() string { return "broken" }

func (failingDest) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, errors.New("drive removed")
}

func setupLogs(t *testing.T, files map[string]string) (afero.Fs, *runlog.LogDir) {
	t.Helper()
	fs := afero.NewMemMapFs()
	dir, err := runlog.NewLogDir(fs, "/logs")
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/logs/"+name, []byte(content), 0o644))
	}
	return fs, dir
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	r, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestExport(t *testing.T) {
	t.Parallel()

	fs, logs := setupLogs(t, map[string]string{
		"260609-fix2.log": "second",
		"260609-fix1.log": "first",
		"notes.txt":       "ignored",
	})
	require.NoError(t, fs.MkdirAll("/usb", 0o755))

	var updates []Progress
	a := NewArchiver(logs, clockwork.NewFakeClockAt(exportTime), "LINE3", func(p Progress) {
		updates = append(updates, p)
	})

	report, err := a.Export(context.Background(), NewDirDestination(fs, "/usb"))
	require.NoError(t, err)

	const name = "260609.143015.LINE3.log.gz"
	assert.Equal(t, name, report.Name)
	assert.Equal(t, []string{"260609-fix1.log", "260609-fix2.log"}, report.Files)

	exported, err := afero.ReadFile(fs, "/usb/"+name)
	require.NoError(t, err)
	assert.Equal(t,
		"[FILE:260609-fix1.log,PC:LINE3]first[FILE:260609-fix2.log,PC:LINE3]second",
		gunzip(t, exported),
	)
	assert.Equal(t, int64(len(exported)), report.Bytes)

	local, err := afero.ReadFile(fs, "/logs/"+name)
	require.NoError(t, err)
	assert.Equal(t, exported, local)

	tempExists, err := afero.Exists(fs, "/logs/"+TempName)
	require.NoError(t, err)
	assert.False(t, tempExists)

	for _, moved := range []string{"260609-143015-fix1.log", "260609-143015-fix2.log"} {
		exists, err := afero.Exists(fs, "/logs/backup/"+moved)
		require.NoError(t, err)
		assert.True(t, exists, moved)
	}
	assert.False(t, a.HasLogs())

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, last.Total, last.Copied)
}

func TestExport_NoLogs(t *testing.T) {
	t.Parallel()

	fs, logs := setupLogs(t, map[string]string{"old.log.gz": "x"})
	a := NewArchiver(logs, clockwork.NewFakeClockAt(exportTime), "LINE3", nil)

	_, err := a.Export(context.Background(), NewDirDestination(fs, "/usb"))
	require.ErrorIs(t, err, ErrNoLogs)
}

func TestExport_DestinationFailureKeepsLogs(t *testing.T) {
	t.Parallel()

	fs, logs := setupLogs(t, map[string]string{"260609-fix1.log": "first"})
	a := NewArchiver(logs, clockwork.NewFakeClockAt(exportTime), "LINE3", nil)

	_, err := a.Export(context.Background(), failingDest{})
	require.Error(t, err)

	exists, err := afero.Exists(fs, "/logs/260609-fix1.log")
	require.NoError(t, err)
	assert.True(t, exists)

	tempExists, err := afero.Exists(fs, "/logs/"+TempName)
	require.NoError(t, err)
	assert.True(t, tempExists)
	assert.True(t, a.HasLogs())
}

func TestExport_LargeLogCopiesInChunks(t *testing.T) {
	t.Parallel()

	// incompressible enough to span several chunks
	big := make([]byte, 3*ChunkSize)
	seed := uint32(1)
	for i := range big {
		seed = seed*1664525 + 1013904223
		big[i] = byte(seed >> 24)
	}
	fs, logs := setupLogs(t, map[string]string{"260609-fix9.log": string(big)})
	require.NoError(t, fs.MkdirAll("/usb", 0o755))

	var updates []Progress
	a := NewArchiver(logs, clockwork.NewFakeClockAt(exportTime), "LINE3", func(p Progress) {
		updates = append(updates, p)
	})
	report, err := a.Export(context.Background(), NewDirDestination(fs, "/usb"))
	require.NoError(t, err)

	assert.Greater(t, len(updates), 1)
	for _, u := range updates {
		assert.LessOrEqual(t, u.Copied, u.Total)
	}
	assert.Equal(t, report.Bytes, updates[len(updates)-1].Copied)
}
