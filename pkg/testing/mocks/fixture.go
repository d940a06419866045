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
	"fmt"
	"strings"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
)

const (
	simHeaderLen     = 4
	simFirstBlockLen = 2076
	simBlockLen      = 2080
)

// FixtureSim emulates a test fixture's command console and its flash
// loader well enough to drive discovery, reconciliation and flashing.
type FixtureSim struct {
	// Responses maps a command word to the body printed before status,0.
	Responses map[string]string
	// FlashAck picks the ack byte for header byte or block idx. Nil
	// always acks with '1'.
	FlashAck  func(phase string, idx int) byte
	Banner    string
	commands  []string
	out       []byte
	line      []byte
	written   []byte
	flashData []byte
	flashPlan []int
	flashSize int
	flashStep int
	flashFill int
	mu        syncutil.Mutex
	Serial    uint32
	GUID      uint32
	Type      int
	flashing  bool
	flashed   bool
	closed    bool
}

// NewFixtureSim returns a fixture with the given identity. flashSize is
// the image length the loader expects after Exit.
func NewFixtureSim(serial, guid uint32, flashSize int) *FixtureSim {
	return &FixtureSim{
		Serial:    serial,
		GUID:      guid,
		Type:      1,
		Banner:    "\r\nANKI fixture ready\r\n",
		Responses: map[string]string{},
		flashSize: flashSize,
	}
}

// Emit queues console output, such as run log text.
func (s *FixtureSim) Emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, text...)
}

func (s *FixtureSim) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *FixtureSim) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}

// FlashData returns the bytes received by the flash loader.
func (s *FixtureSim) FlashData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.flashData...)
}

func (s *FixtureSim) Flashed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flashed
}

func (s *FixtureSim) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FixtureSim) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrPortClosed
	}
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (s *FixtureSim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrPortClosed
	}
	s.written = append(s.written, p...)
	for _, b := range p {
		if s.flashing {
			s.flashByte(b)
			continue
		}
		switch b {
		case 0x1B:
			s.line = s.line[:0]
			s.out = append(s.out, s.Banner...)
			s.out = append(s.out, '>')
		case '\n':
			s.command(strings.TrimSpace(string(s.line)))
			s.line = s.line[:0]
		default:
			s.line = append(s.line, b)
		}
	}
	return len(p), nil
}

func (s *FixtureSim) command(line string) {
	if line == "" {
		return
	}
	s.commands = append(s.commands, line)
	word := strings.Fields(line)[0]
	switch word {
	case "GetSerial":
		s.out = append(s.out, fmt.Sprintf(
			"fixture,ok,0,%d,%d,%d\r\n",
			s.Serial, s.Type, int32(s.GUID), //nolint:gosec // fixtures print the guid signed
		)...)
		s.out = append(s.out, "status,0\r\n"...)
	case "Exit":
		s.startFlash()
	default:
		s.out = append(s.out, s.Responses[word]...)
		s.out = append(s.out, "status,0\r\n"...)
	}
}

func (s *FixtureSim) startFlash() {
	s.flashing = true
	s.flashData = s.flashData[:0]
	s.flashStep = 0
	s.flashFill = 0
	s.flashPlan = nil
	for i := 0; i < simHeaderLen; i++ {
		s.flashPlan = append(s.flashPlan, 1)
	}
	remaining := s.flashSize - simHeaderLen
	size := simFirstBlockLen
	for remaining > 0 {
		n := min(size, remaining)
		s.flashPlan = append(s.flashPlan, n)
		remaining -= n
		size = simBlockLen
	}
}

func (s *FixtureSim) flashByte(b byte) {
	s.flashData = append(s.flashData, b)
	s.flashFill++
	if s.flashStep >= len(s.flashPlan) || s.flashFill < s.flashPlan[s.flashStep] {
		return
	}

	phase, idx := "header", s.flashStep
	if s.flashStep >= simHeaderLen {
		phase, idx = "block", s.flashStep-simHeaderLen
	}
	ack := byte('1')
	if s.FlashAck != nil {
		ack = s.FlashAck(phase, idx)
	}
	s.out = append(s.out, ack)

	s.flashStep++
	s.flashFill = 0
	if ack != '1' || s.flashStep == len(s.flashPlan) {
		s.flashing = false
		s.flashed = ack == '1'
	}
}

func (*FixtureSim) SetReadTimeout(time.Duration) error {
	return nil
}

func (s *FixtureSim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
