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

package runlog

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Parser feeds console text into a fixture's State and its daily log.
type Parser struct {
	clock   clockwork.Clock
	machine string
	user    string
}

func NewParser(clock clockwork.Clock, machine, user string) *Parser {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Parser{
		clock:   clock,
		machine: machine,
		user:    user,
	}
}

// Trailer returns the text inserted before each end marker in the log.
func (p *Parser) Trailer(serial uint32) string {
	now := p.clock.Now()
	return fmt.Sprintf(
		"logtime,%s\r\nlogfix,%d,%s,%s\r\n",
		now.Format("2006-01-02,15:04:05"), serial, p.machine, p.user,
	)
}

// Ingest appends text to the running output. The chunk is persisted to
// dl (if set) with a trailer ahead of each end marker. When a run
// completes it is sealed and returned; otherwise a pending PC? query is
// answered through ack once per run.
func (p *Parser) Ingest(
	st *State,
	serial uint32,
	dl *DailyLog,
	text string,
	ack io.ByteWriter,
) (*Run, error) {
	if text == "" {
		return nil, nil
	}

	st.CurrentRun += text

	if dl != nil {
		persisted := text
		if strings.Contains(text, EndMarker) {
			persisted = strings.ReplaceAll(text, EndMarker, p.Trailer(serial)+EndMarker)
		}
		if err := dl.Append(p.clock.Now(), persisted); err != nil {
			log.Warn().Err(err).Uint32("serial", serial).Msg("failed to append fixture log")
		}
	}

	if i := strings.Index(st.CurrentRun, EndMarker); i >= 0 {
		return p.seal(st, i), nil
	}

	if !st.DidRespondToPC && strings.Contains(st.CurrentRun, PCQuery) {
		if err := ack.WriteByte(PCReply); err != nil {
			return nil, fmt.Errorf("failed to answer PC query: %w", err)
		}
		st.DidRespondToPC = true
	}
	return nil, nil
}

func (p *Parser) seal(st *State, end int) *Run {
	st.Cycles++
	st.Result = ExtractResult(st.CurrentRun)
	st.ESN = ExtractESN(st.CurrentRun)
	st.DidRespondToPC = false
	st.LastRun = st.CurrentRun[:end]
	st.CurrentRun = st.CurrentRun[end+len(EndMarker):]

	return &Run{
		SealedAt: p.clock.Now(),
		Text:     st.LastRun,
		Result:   st.Result,
		ESN:      st.ESN,
		Cycle:    st.Cycles,
	}
}
