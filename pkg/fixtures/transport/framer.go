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

// Package transport turns a raw fixture serial link into prompt-driven
// command/response exchanges.
package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Attention forces the fixture back to its command prompt.
	Attention byte = 0x1B
	// Prompt is echoed by the fixture once it is ready for a command.
	Prompt = ">"
	// StatusOK terminates a successful command response.
	StatusOK = "status,0"

	DefaultReadTimeout = 100 * time.Millisecond

	drainPollTimeout = 10 * time.Millisecond
	maxDrainDuration = 500 * time.Millisecond
	readChunkSize    = 4096
)

var (
	ErrTimeout = errors.New("timed out waiting for fixture")
	ErrClosed  = errors.New("fixture port closed")
)

// Framer wraps one fixture port. It is not safe for concurrent use; the
// reconciler owns every framer and drives them from one goroutine.
type Framer struct {
	port    SerialPort
	name    string
	pending []byte
	timeout time.Duration
	closed  bool
}

// NewFramer wraps port and applies the given read timeout.
func NewFramer(name string, port SerialPort, timeout time.Duration) (*Framer, error) {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	f := &Framer{
		port: port,
		name: name,
	}
	if err := f.SetReadTimeout(timeout); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Framer) Name() string {
	return f.name
}

func (f *Framer) ReadTimeout() time.Duration {
	return f.timeout
}

func (f *Framer) SetReadTimeout(d time.Duration) error {
	if err := f.port.SetReadTimeout(d); err != nil {
		return fmt.Errorf("failed to set read timeout on %s: %w", f.name, err)
	}
	f.timeout = d
	return nil
}

// Write sends every byte of p.
func (f *Framer) Write(p []byte) error {
	if f.closed {
		return ErrClosed
	}
	for len(p) > 0 {
		n, err := f.port.Write(p)
		if err != nil {
			return fmt.Errorf("failed to write to %s: %w", f.name, err)
		}
		if n == 0 {
			return fmt.Errorf("failed to write to %s: short write", f.name)
		}
		p = p[n:]
	}
	return nil
}

func (f *Framer) WriteByte(b byte) error {
	return f.Write([]byte{b})
}

// SendCommand writes line terminated by a newline.
func (f *Framer) SendCommand(line string) error {
	return f.Write([]byte(line + "\n"))
}

// fill performs one port read into the pending buffer.
func (f *Framer) fill() (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	buf := make([]byte, readChunkSize)
	n, err := f.port.Read(buf)
	if n > 0 {
		f.pending = append(f.pending, buf[:n]...)
	}
	if err != nil {
		return n, fmt.Errorf("failed to read from %s: %w", f.name, err)
	}
	return n, nil
}

// ReadUntil collects input until sentinel appears and returns the text
// before it. The sentinel is consumed and anything after it stays buffered
// for the next read. On timeout the partial input also stays buffered.
func (f *Framer) ReadUntil(sentinel string) (string, error) {
	deadline := time.Now().Add(f.timeout)
	for {
		if i := strings.Index(string(f.pending), sentinel); i >= 0 {
			text := string(f.pending[:i])
			f.pending = f.pending[i+len(sentinel):]
			return text, nil
		}
		if !time.Now().Before(deadline) {
			return "", fmt.Errorf("%w: %q on %s", ErrTimeout, sentinel, f.name)
		}
		if _, err := f.fill(); err != nil {
			return "", err
		}
	}
}

// ReadByte returns the next input byte, waiting up to the read timeout.
func (f *Framer) ReadByte() (byte, error) {
	deadline := time.Now().Add(f.timeout)
	for len(f.pending) == 0 {
		if !time.Now().Before(deadline) {
			return 0, fmt.Errorf("%w: byte on %s", ErrTimeout, f.name)
		}
		if _, err := f.fill(); err != nil {
			return 0, err
		}
	}
	b := f.pending[0]
	f.pending = f.pending[1:]
	return b, nil
}

// ReadAvailable returns everything the fixture has sent so far without
// waiting for more than a short poll interval.
func (f *Framer) ReadAvailable() (string, error) {
	if f.closed {
		return "", ErrClosed
	}
	if err := f.port.SetReadTimeout(drainPollTimeout); err != nil {
		return "", fmt.Errorf("failed to set poll timeout on %s: %w", f.name, err)
	}
	defer func() {
		_ = f.port.SetReadTimeout(f.timeout)
	}()

	start := time.Now()
	for time.Since(start) < maxDrainDuration {
		n, err := f.fill()
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
	}

	text := string(f.pending)
	f.pending = f.pending[:0]
	return text, nil
}

// Drain discards all pending input.
func (f *Framer) Drain() error {
	_, err := f.ReadAvailable()
	return err
}

// Interrupt sends the attention byte and consumes the prompt, returning
// whatever the fixture printed before it.
func (f *Framer) Interrupt() (string, error) {
	if err := f.WriteByte(Attention); err != nil {
		return "", err
	}
	return f.ReadUntil(Prompt)
}

// Exchange interrupts the fixture, sends cmd and reads the response up to
// sentinel.
func (f *Framer) Exchange(cmd, sentinel string) (string, error) {
	if _, err := f.Interrupt(); err != nil {
		return "", err
	}
	if err := f.SendCommand(cmd); err != nil {
		return "", err
	}
	return f.ReadUntil(sentinel)
}

func (f *Framer) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.pending = nil
	if err := f.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.name, err)
	}
	return nil
}
