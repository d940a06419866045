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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // mutates the global logger
func TestInitLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "nested")
	var buf bytes.Buffer

	require.NoError(t, InitLogging(dir, []io.Writer{&buf}))
	t.Cleanup(func() {
		log.Logger = log.Output(os.Stderr)
	})

	log.Info().Str("port", "COM9").Msg("fixture registered")

	assert.Contains(t, buf.String(), "fixture registered")
	assert.Contains(t, buf.String(), `"port":"COM9"`)

	info, err := os.Stat(filepath.Join(dir, config.LogFile))
	require.NoError(t, err, "rotating log file should exist")
	assert.Positive(t, info.Size())
	assert.Equal(t, LogWriter(), logWriter)
}

func TestEnsureDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dirs := []string{
		filepath.Join(root, "logs", "nested"),
		filepath.Join(root, "logs", "nested", "backup"),
		"",
	}

	require.NoError(t, EnsureDirectories(dirs...))

	for _, d := range dirs[:2] {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
		}
	}
}
