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

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TerminalConfirmer asks the operator on a terminal before fixtures are
// reflashed.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (t TerminalConfirmer) ConfirmUpgrade(ctx context.Context, current, target uint32) (bool, error) {
	answers := make(chan bool, 1)
	errs := make(chan error, 1)

	go func() {
		r := bufio.NewReader(t.In)
		for {
			_, _ = fmt.Fprintf(t.Out,
				"Fixture firmware %08X differs from %08X. Upgrade fixtures? [y/N] ",
				current, target)
			line, err := r.ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			switch answer {
			case "y", "yes":
				answers <- true
				return
			case "", "n", "no":
				if err != nil && answer == "" && !errors.Is(err, io.EOF) {
					errs <- fmt.Errorf("failed to read answer: %w", err)
					return
				}
				answers <- false
				return
			}
			if err != nil {
				answers <- false
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errs:
		return false, err
	case ok := <-answers:
		return ok, nil
	}
}
