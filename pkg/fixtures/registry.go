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

package fixtures

import (
	"cmp"
	"slices"

	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
)

// Registry holds at most one fixture per port and indexes them by serial.
type Registry struct {
	byPort   map[string]*Fixture
	bySerial map[uint32]string
	mu       syncutil.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		byPort:   make(map[string]*Fixture),
		bySerial: make(map[uint32]string),
	}
}

// Add registers f under its port. Any fixture previously registered on the
// same port, or under the same serial on another port, is dropped and
// returned so the caller can close it.
func (r *Registry) Add(f *Fixture) []*Fixture {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*Fixture
	if old, ok := r.byPort[f.Port]; ok && old != f {
		evicted = append(evicted, r.removeLocked(old.Port))
	}
	if oldPort, ok := r.bySerial[f.Serial]; ok && oldPort != f.Port {
		if old := r.removeLocked(oldPort); old != nil {
			evicted = append(evicted, old)
		}
	}

	r.byPort[f.Port] = f
	r.bySerial[f.Serial] = f.Port
	return evicted
}

func (r *Registry) removeLocked(port string) *Fixture {
	f, ok := r.byPort[port]
	if !ok {
		return nil
	}
	delete(r.byPort, port)
	if r.bySerial[f.Serial] == port {
		delete(r.bySerial, f.Serial)
	}
	return f
}

// Remove drops the fixture on port and returns it, or nil.
func (r *Registry) Remove(port string) *Fixture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(port)
}

func (r *Registry) Get(port string) (*Fixture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byPort[port]
	return f, ok
}

// BySerial resolves the serial to its current port on every call.
func (r *Registry) BySerial(serial uint32) (*Fixture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	port, ok := r.bySerial[serial]
	if !ok {
		return nil, false
	}
	f, ok := r.byPort[port]
	return f, ok
}

func (r *Registry) Has(port string) bool {
	_, ok := r.Get(port)
	return ok
}

func (r *Registry) Ports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ports := make([]string, 0, len(r.byPort))
	for port := range r.byPort {
		ports = append(ports, port)
	}
	slices.Sort(ports)
	return ports
}

// List returns the fixtures ordered by port.
func (r *Registry) List() []*Fixture {
	ports := r.Ports()
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Fixture, 0, len(ports))
	for _, port := range ports {
		if f, ok := r.byPort[port]; ok {
			list = append(list, f)
		}
	}
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPort)
}

// Prune removes every fixture whose port is not in live and returns them.
func (r *Registry) Prune(live []string) []*Fixture {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Fixture
	for port := range r.byPort {
		if slices.Contains(live, port) {
			continue
		}
		removed = append(removed, r.removeLocked(port))
	}
	slices.SortFunc(removed, func(a, b *Fixture) int {
		return cmp.Compare(a.Port, b.Port)
	})
	return removed
}
