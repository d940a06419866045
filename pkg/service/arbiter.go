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

import "github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"

// Owner identifies who may issue bytes on a fixture's port this tick.
type Owner int

const (
	OwnerNone Owner = iota
	OwnerReconcile
	OwnerDebug
)

func (o Owner) String() string {
	switch o {
	case OwnerReconcile:
		return "reconcile"
	case OwnerDebug:
		return "debug"
	default:
		return "none"
	}
}

// Arbiter grants each fixture's transport to one owner per tick. Leases
// are cleared at the start of every tick.
type Arbiter struct {
	leases map[string]Owner
	mu     syncutil.Mutex
}

func NewArbiter() *Arbiter {
	return &Arbiter{leases: make(map[string]Owner)}
}

// Acquire takes the lease on port for owner. It succeeds when the port is
// free or already held by the same owner.
func (a *Arbiter) Acquire(port string, owner Owner) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	held, ok := a.leases[port]
	if ok && held != owner {
		return false
	}
	a.leases[port] = owner
	return true
}

func (a *Arbiter) Holder(port string) Owner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leases[port]
}

func (a *Arbiter) Release(port string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.leases, port)
}

func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.leases)
}
