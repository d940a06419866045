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

// Package flash writes a firmware image to a fixture's serial flash
// loader.
//
// The loader is entered by sending Exit at the command prompt. The image
// is then streamed as a 4 byte header, one byte at a time, followed by
// fixed size blocks. The loader answers every header byte and every block
// with a single '1' byte. Any other answer, or no answer within the flash
// timeout, aborts the attempt. There is no partial retry: a failed fixture
// reconnects through discovery and is flashed again from the start.
package flash
