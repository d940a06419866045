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

package mocks

import (
	"errors"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
)

var ErrPortClosed = errors.New("port closed")

// MockSerialPort is a scripted serial port. Bytes queued with Feed are
// returned by Read, and OnWrite may answer each write with more input.
type MockSerialPort struct {
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	ReadFunc   func(p []byte) (n int, err error)
	OnWrite    func(p []byte) []byte
	readData   []byte
	written    []byte
	timeouts   []time.Duration
	mu         syncutil.RWMutex
	closed     bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

// Feed queues data to be returned by later reads.
func (m *MockSerialPort) Feed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readData = append(m.readData, data...)
}

func (m *MockSerialPort) FeedString(s string) {
	m.Feed([]byte(s))
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	readFunc := m.ReadFunc
	readErr := m.ReadError
	if readFunc == nil && readErr == nil && len(m.readData) > 0 {
		n := copy(p, m.readData)
		m.readData = m.readData[n:]
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	if readFunc != nil {
		return readFunc(p)
	}
	if readErr != nil {
		return 0, readErr
	}

	// simulate a blocking read that times out
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if m.WriteError != nil {
		err := m.WriteError
		m.mu.Unlock()
		return 0, err
	}
	m.written = append(m.written, p...)
	onWrite := m.OnWrite
	m.mu.Unlock()

	if onWrite != nil {
		if reply := onWrite(p); len(reply) > 0 {
			m.Feed(reply)
		}
	}
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts = append(m.timeouts, t)
	return m.TimeoutErr
}

// Written returns a copy of every byte written so far.
func (m *MockSerialPort) Written() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.written))
	copy(out, m.written)
	return out
}

// Timeouts returns the read timeouts applied, in order.
func (m *MockSerialPort) Timeouts() []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]time.Duration, len(m.timeouts))
	copy(out, m.timeouts)
	return out
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Pending reports how many fed bytes have not been read yet.
func (m *MockSerialPort) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.readData)
}
