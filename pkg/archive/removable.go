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
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// DefaultRemovableRoots are the mount prefixes treated as removable media
// on unix systems.
var DefaultRemovableRoots = []string{"/media", "/run/media", "/mnt/usb", "/Volumes"}

// PartitionLister lists mounted partitions.
type PartitionLister func(ctx context.Context, all bool) ([]disk.PartitionStat, error)

// Detector finds the removable drive exports are written to.
type Detector struct {
	list  PartitionLister
	goos  string
	roots []string
}

func NewDetector(roots []string) *Detector {
	if len(roots) == 0 {
		roots = DefaultRemovableRoots
	}
	return &Detector{
		list:  disk.PartitionsWithContext,
		goos:  runtime.GOOS,
		roots: roots,
	}
}

// Detect returns the mount point of the last removable drive found.
func (d *Detector) Detect(ctx context.Context) (string, bool, error) {
	parts, err := d.list(ctx, false)
	if err != nil {
		return "", false, fmt.Errorf("failed to list partitions: %w", err)
	}

	var found []string
	for _, p := range parts {
		if d.isRemovable(p.Mountpoint) {
			found = append(found, p.Mountpoint)
		}
	}
	if len(found) == 0 {
		return "", false, nil
	}
	slices.Sort(found)
	return found[len(found)-1], true, nil
}

func (d *Detector) isRemovable(mount string) bool {
	if mount == "" {
		return false
	}
	if d.goos == "windows" {
		// A: and B: are floppies, C: is the system drive
		letter := strings.ToUpper(mount[:1])[0]
		return letter > 'C' && letter <= 'Z'
	}
	for _, root := range d.roots {
		rel, err := filepath.Rel(root, mount)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return true
	}
	return false
}
