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
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// FirmwareGUIDOffset is where an image stores its little-endian build GUID.
const FirmwareGUIDOffset = 8

// FSHelper provides utilities for filesystem mocking in tests
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// WithFs wraps an existing filesystem.
func WithFs(fs afero.Fs) *FSHelper {
	return &FSHelper{Fs: fs}
}

// WriteFirmwareImage writes a deterministic firmware image of size bytes
// carrying guid and returns its contents.
func (h *FSHelper) WriteFirmwareImage(path string, size int, guid uint32) ([]byte, error) {
	if size < FirmwareGUIDOffset+4 {
		return nil, fmt.Errorf("image too small for guid: %d bytes", size)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 3)
	}
	binary.LittleEndian.PutUint32(data[FirmwareGUIDOffset:], guid)
	if err := h.WriteFile(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteLogs creates one file per entry under dir.
func (h *FSHelper) WriteLogs(dir string, files map[string]string) error {
	for name, content := range files {
		if err := h.WriteFile(filepath.Join(dir, name), []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes content, creating parent directories.
func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// FileExists checks if a file exists in the filesystem
func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	return err == nil && exists
}

// ListFiles returns the sorted names of regular files in dir.
func (h *FSHelper) ListFiles(dir string) ([]string, error) {
	entries, err := afero.ReadDir(h.Fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
