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

import "path/filepath"

type Export struct {
	LogsDir        string   `toml:"logs_dir,omitempty"`
	RemovableRoots []string `toml:"removable_roots,omitempty"`
	S3             S3Export `toml:"s3,omitempty"`
}

// S3Export configures an optional object storage destination used in
// place of removable media.
type S3Export struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix,omitempty"`
	Region          string `toml:"region,omitempty"`
	EndpointURL     string `toml:"endpoint_url,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	Enabled         bool   `toml:"enabled"`
	ForcePathStyle  bool   `toml:"force_path_style,omitempty"`
}

type History struct {
	Enabled       *bool `toml:"enabled,omitempty"`
	RetentionDays int   `toml:"retention_days,omitempty"`
}

// LogsDir returns the directory holding daily fixture logs. Relative
// paths are resolved against dataDir.
func (c *Instance) LogsDir(dataDir string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dir := c.vals.Export.LogsDir
	if dir == "" {
		return filepath.Join(dataDir, LogsDir)
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(dataDir, dir)
}

// RemovableRoots lists mount point prefixes that count as removable
// export media. Empty means the platform defaults.
func (c *Instance) RemovableRoots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Export.RemovableRoots
}

func (c *Instance) S3Export() S3Export {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Export.S3
}

func (c *Instance) HistoryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.History.Enabled == nil {
		return true
	}
	return *c.vals.History.Enabled
}

func (c *Instance) HistoryRetentionDays() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.History.RetentionDays
}
