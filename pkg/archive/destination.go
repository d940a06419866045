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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Destination receives a finished export container.
type Destination interface {
	// Name describes the destination for status output.
	Name() string
	// Create opens name for writing. The export is only complete once
	// Close returns nil.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// DirDestination writes exports into a directory, normally the root of a
// removable drive.
type DirDestination struct {
	fs  afero.Fs
	dir string
}

func NewDirDestination(fs afero.Fs, dir string) *DirDestination {
	return &DirDestination{fs: fs, dir: dir}
}

func (d *DirDestination) Name() string {
	return d.dir
}

func (d *DirDestination) Create(_ context.Context, name string) (io.WriteCloser, error) {
	f, err := d.fs.OpenFile(
		filepath.Join(d.dir, name),
		os.O_CREATE|os.O_TRUNC|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	return f, nil
}
