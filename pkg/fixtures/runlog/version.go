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

package runlog

import (
	"strconv"
	"strings"
)

// Version is the unit identity printed in a run's version record:
// version,<firmware>,<hardware>,<serial>,<model>,...
type Version struct {
	Firmware string
	Hardware string
	Serial   string
	ModelHex string
	Model    int
}

// ParseVersion extracts the version record from run text.
func ParseVersion(run string) (Version, bool) {
	parts := strings.SplitN(run, VersionMarker, 2)
	if len(parts) < 2 {
		return Version{}, false
	}
	fields := strings.Split(parts[1], ",")
	if len(fields) < 4 {
		return Version{}, false
	}

	v := Version{
		Firmware: fields[0],
		Hardware: fields[1],
		Serial:   fields[2],
		ModelHex: fields[3],
	}
	if len(v.ModelHex) >= 8 {
		v.ModelHex = v.ModelHex[:8]
		if m, err := strconv.ParseUint(v.ModelHex, 16, 32); err == nil {
			v.Model = int(m)
		}
	}
	return v, true
}

// HasBootloaderInfo reports whether the hardware field carries the
// electronics revision and bootloader version. Older units print zeros.
func (v Version) HasBootloaderInfo() bool {
	return len(v.Hardware) >= 8 && v.Hardware[4:6] != "00"
}

// HardwareRevision is the hardware revision for units without bootloader
// info.
func (v Version) HardwareRevision() string {
	if len(v.Hardware) < 8 {
		return ""
	}
	return v.Hardware[6:8]
}

// Electronics returns the revision as major.minor.
func (v Version) Electronics() string {
	if len(v.Hardware) < 6 {
		return ""
	}
	return v.Hardware[4:5] + "." + v.Hardware[5:6]
}

func (v Version) Bootloader() string {
	return v.HardwareRevision()
}
