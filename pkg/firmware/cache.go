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

// Package firmware loads the fixture firmware image that connected
// fixtures are upgraded to.
package firmware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	guidOffset = 8
	minLength  = guidOffset + 4
)

var ErrImageTooShort = errors.New("firmware image too short")

// Image is a loaded firmware image. GUID identifies the build and is
// compared against the GUID each fixture reports.
type Image struct {
	ModTime time.Time
	Path    string
	Data    []byte
	GUID    uint32
}

// ParseGUID reads the little-endian build GUID from image bytes 8..11.
func ParseGUID(data []byte) (uint32, error) {
	if len(data) < minLength {
		return 0, fmt.Errorf("%w: %d bytes", ErrImageTooShort, len(data))
	}
	return binary.LittleEndian.Uint32(data[guidOffset:minLength]), nil
}

// Cache holds the newest image found on the search paths for the life of
// the process.
type Cache struct {
	fs       afero.Fs
	current  *Image
	rejected map[string]time.Time
	paths    []string
	mu       syncutil.RWMutex
}

func NewCache(fs afero.Fs, paths []string) *Cache {
	return &Cache{
		fs:       fs,
		paths:    paths,
		rejected: make(map[string]time.Time),
	}
}

// Current returns the loaded image, if any.
func (c *Cache) Current() (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current != nil
}

// Refresh loads path if it exists and is strictly newer than the cached
// image. It reports whether a new image was loaded.
func (c *Cache) Refresh(path string) (bool, error) {
	info, err := c.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat firmware image: %w", err)
	}

	modTime := info.ModTime()
	c.mu.RLock()
	current := c.current
	rejectedAt, wasRejected := c.rejected[path]
	c.mu.RUnlock()

	if current != nil && !modTime.After(current.ModTime) {
		return false, nil
	}
	if wasRejected && rejectedAt.Equal(modTime) {
		return false, nil
	}

	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to read firmware image: %w", err)
	}
	guid, err := ParseGUID(data)
	if err != nil {
		c.mu.Lock()
		c.rejected[path] = modTime
		c.mu.Unlock()
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}

	img := &Image{
		Path:    path,
		Data:    data,
		GUID:    guid,
		ModTime: modTime,
	}
	c.mu.Lock()
	c.current = img
	delete(c.rejected, path)
	c.mu.Unlock()

	log.Info().
		Str("path", path).
		Str("guid", fmt.Sprintf("%08X", guid)).
		Int("size", len(data)).
		Msg("reloaded firmware image")
	return true, nil
}

// RefreshAll refreshes every search path in order, so the newest file
// wins.
func (c *Cache) RefreshAll() (bool, error) {
	var errs []error
	loaded := false
	for _, path := range c.paths {
		ok, err := c.Refresh(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = loaded || ok
	}
	return loaded, errors.Join(errs...)
}
