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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tempDir, CfgFile))
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, DefaultLot, cfg.Lot())
	assert.NotEmpty(t, cfg.StationID(), "station id should be generated on save")
	assert.False(t, cfg.DebugMode())

	model, ok := cfg.ModelForSerial(1)
	require.True(t, ok)
	assert.Equal(t, DefaultMinModel, model)
}

func TestAPIPort_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIPort, cfg.APIPort(), "Should return default port initially")

	cfg.SetAPIPort(9999)
	assert.Equal(t, 9999, cfg.APIPort())

	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())

	assert.Equal(t, 9999, cfg.APIPort(), "Custom port should persist after save/load")
	assert.Equal(t, ":9999", cfg.APIListen())
}

func TestLoad_FixtureSection(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)

	data := `config_schema = 1

[fixtures]
lot = "123"
debug = false
read_timeout = "250ms"
firmware_paths = ["/opt/fixture.safe"]

[[fixtures.model]]
serial = 4
model = 11

[[fixtures.model]]
serial = 9
model = 12
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))

	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.Lot())
	assert.Equal(t, []string{"/opt/fixture.safe"}, cfg.FirmwarePaths())
	assert.Equal(t, "250ms", cfg.ReadTimeout().String())
	assert.Equal(t, DefaultFlashTimeout, cfg.FlashTimeout())
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate())
	assert.Equal(t, DefaultVendorMarker, cfg.VendorMarker())

	model, ok := cfg.ModelForSerial(4)
	require.True(t, ok)
	assert.Equal(t, 11, model)

	model, ok = cfg.ModelForSerial(9)
	require.True(t, ok)
	assert.Equal(t, 12, model)

	_, ok = cfg.ModelForSerial(1)
	assert.False(t, ok, "file models replace the default mapping")
}

func TestLoad_RejectsSchemaMismatch(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("config_schema = 99\n"), 0o600))

	_, err := NewConfig(tempDir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestLoad_RejectsBadLot(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfgPath := filepath.Join(tempDir, CfgFile)
	data := "config_schema = 1\n[fixtures]\nlot = \"12\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))

	_, err := NewConfig(tempDir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lot")
}

func TestLogsDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		logsDir  string
		dataDir  string
		expected string
	}{
		{
			name:     "empty uses data dir",
			logsDir:  "",
			dataDir:  "/data",
			expected: filepath.Join("/data", LogsDir),
		},
		{
			name:     "relative joins data dir",
			logsDir:  "fixture-logs",
			dataDir:  "/data",
			expected: filepath.Join("/data", "fixture-logs"),
		},
		{
			name:     "absolute kept",
			logsDir:  filepath.Join(string(filepath.Separator), "srv", "logs"),
			dataDir:  "/data",
			expected: filepath.Join(string(filepath.Separator), "srv", "logs"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewInstanceForTesting(Values{Export: Export{LogsDir: tt.logsDir}})
			assert.Equal(t, tt.expected, cfg.LogsDir(tt.dataDir))
		})
	}
}
