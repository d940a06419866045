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

package flash

const (
	PhasePreparing = "preparing"
	PhaseHeader    = "header"
	PhaseBlock     = "block"
	PhaseComplete  = "complete"
)

// Progress reports how far a flash has got.
type Progress struct {
	Phase       string
	Block       int
	TotalBlocks int
	BytesSent   int
	TotalBytes  int
}

// Percentage returns the completion in the range 0 to 100.
func (p Progress) Percentage() float64 {
	if p.TotalBytes == 0 {
		return 0
	}
	return float64(p.BytesSent) / float64(p.TotalBytes) * 100
}

// ProgressCallback should return quickly; it runs on the flashing
// goroutine.
type ProgressCallback func(Progress)
