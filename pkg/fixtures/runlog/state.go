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

// Package runlog splits a fixture's console stream into test runs and
// keeps the per-day fixture log files.
package runlog

import (
	"strings"
	"time"
)

const (
	EndMarker    = "[TEST:END]"
	ResultMarker = "[RESULT:"
	// VersionMarker starts the unit's version record.
	VersionMarker = "version,"
	// TestMarker prefixes every test step while a run is in progress.
	TestMarker = "[TEST:"
	PCQuery    = "PC?"
	PCReply    = 'Y'

	resultLen = 3
	esnOffset = len(VersionMarker) + 18
	esnLen    = 8
)

// State is the run tracking carried by each fixture.
type State struct {
	CurrentRun     string
	LastRun        string
	Result         string
	ESN            string
	Cycles         int
	DidRespondToPC bool
}

// Run is a sealed test run.
type Run struct {
	SealedAt time.Time
	Text     string
	Result   string
	ESN      string
	Cycle    int
}

// field returns n bytes of s starting offset bytes after the first match
// of marker, or "" when the marker is missing or s is too short.
func field(s, marker string, offset, n int) string {
	i := strings.Index(s, marker)
	if i < 0 {
		return ""
	}
	start := i + offset
	if start+n > len(s) {
		return ""
	}
	return s[start : start+n]
}

func ExtractResult(run string) string {
	return field(run, ResultMarker, len(ResultMarker), resultLen)
}

// ExtractESN returns the unit serial from the version record.
func ExtractESN(run string) string {
	return field(run, VersionMarker, esnOffset, esnLen)
}
