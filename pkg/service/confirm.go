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

package service

import (
	"context"
	"errors"
)

// ErrUpgradeDeclined stops the service when the operator refuses a
// firmware upgrade.
var ErrUpgradeDeclined = errors.New("firmware upgrade declined")

// Confirmer asks whether fixtures running firmware current may be
// upgraded to target. It is consulted once per process.
type Confirmer interface {
	ConfirmUpgrade(ctx context.Context, current, target uint32) (bool, error)
}

// AutoConfirmer answers every upgrade prompt with Accept.
type AutoConfirmer struct {
	Accept bool
}

func (a AutoConfirmer) ConfirmUpgrade(context.Context, uint32, uint32) (bool, error) {
	return a.Accept, nil
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, current, target uint32) (bool, error)

func (f ConfirmerFunc) ConfirmUpgrade(ctx context.Context, current, target uint32) (bool, error) {
	return f(ctx, current, target)
}
