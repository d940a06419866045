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

import (
	"errors"
	"fmt"
)

var ErrImageTooShort = errors.New("image shorter than flash header")

// AckError reports a missing or wrong acknowledgement from the loader.
type AckError struct {
	Err   error
	Phase string
	Index int
	Got   byte
}

func (e *AckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no ack for %s %d: %v", e.Phase, e.Index, e.Err)
	}
	return fmt.Sprintf("bad ack for %s %d: got 0x%02X", e.Phase, e.Index, e.Got)
}

func (e *AckError) Unwrap() error {
	return e.Err
}
