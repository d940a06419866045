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
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFixture         = errors.New("device is not a fixture")
	ErrMalformedHandshake = errors.New("malformed fixture handshake")
)

const (
	handshakeCommand = "GetSerial"

	fieldSerial = 3
	fieldType   = 4
	fieldGUID   = 5
)

// Handshake is the identity a fixture reports in reply to GetSerial.
type Handshake struct {
	Type   string
	Serial uint32
	GUID   uint32
}

// ParseHandshake decodes the GetSerial response body.
func ParseHandshake(text string) (Handshake, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	// empty fields are kept so the field offsets stay fixed
	values := strings.Split(strings.NewReplacer("\r", ",", "\n", ",").Replace(text), ",")
	if len(values) <= fieldGUID {
		return Handshake{}, fmt.Errorf("%w: %d fields", ErrMalformedHandshake, len(values))
	}

	serial, err := strconv.ParseUint(strings.TrimSpace(values[fieldSerial]), 10, 32)
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: serial %q", ErrMalformedHandshake, values[fieldSerial])
	}
	guid, err := parseGUID(strings.TrimSpace(values[fieldGUID]))
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: guid %q", ErrMalformedHandshake, values[fieldGUID])
	}

	return Handshake{
		Serial: uint32(serial),
		Type:   strings.TrimSpace(values[fieldType]),
		GUID:   guid,
	}, nil
}

// parseGUID accepts the GUID printed either signed or unsigned.
func parseGUID(s string) (uint32, error) {
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("failed to parse guid: %w", err)
		}
		return uint32(int32(v)), nil //nolint:gosec // two's complement reinterpretation
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse guid: %w", err)
	}
	return uint32(v), nil
}

// Discoverer probes serial ports for fixtures.
type Discoverer struct {
	cfg     *config.Instance
	logs    *runlog.LogDir
	factory transport.PortFactory
}

func NewDiscoverer(
	cfg *config.Instance,
	logs *runlog.LogDir,
	factory transport.PortFactory,
) *Discoverer {
	if factory == nil {
		factory = transport.DefaultPortFactory
	}
	return &Discoverer{
		cfg:     cfg,
		logs:    logs,
		factory: factory,
	}
}

// Discover opens port and performs the fixture handshake. On any failure
// the port is closed and no fixture is returned.
func (d *Discoverer) Discover(ctx context.Context, port string) (*Fixture, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discovery cancelled: %w", err)
	}

	sp, err := d.factory(port, transport.FixtureMode(d.cfg.BaudRate()))
	if err != nil {
		return nil, err
	}

	framer, err := transport.NewFramer(port, sp, d.cfg.ReadTimeout())
	if err != nil {
		_ = sp.Close()
		return nil, err
	}

	fix, err := d.handshake(port, framer)
	if err != nil {
		if closeErr := framer.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("port", port).Msg("failed to close probed port")
		}
		return nil, err
	}
	return fix, nil
}

func (d *Discoverer) handshake(port string, framer *transport.Framer) (*Fixture, error) {
	prompt, err := framer.Interrupt()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFixture, err)
	}
	if !strings.Contains(prompt, d.cfg.VendorMarker()) {
		return nil, fmt.Errorf("%w: no %s marker on %s", ErrNotFixture, d.cfg.VendorMarker(), port)
	}

	if err := framer.SendCommand(handshakeCommand); err != nil {
		return nil, err
	}
	resp, err := framer.ReadUntil(transport.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to read handshake: %w", err)
	}

	hs, err := ParseHandshake(resp)
	if err != nil {
		return nil, err
	}

	fix := NewFixture(port, framer)
	fix.Serial = hs.Serial
	fix.Type = hs.Type
	fix.GUID = hs.GUID
	if model, ok := d.cfg.ModelForSerial(hs.Serial); ok {
		fix.Model = model
	}
	if d.logs != nil {
		fix.Log = d.logs.Open(hs.Serial)
	}

	log.Info().
		Str("port", port).
		Uint32("serial", fix.Serial).
		Str("type", fix.Type).
		Str("guid", fmt.Sprintf("%08X", fix.GUID)).
		Int("model", fix.Model).
		Msg("fixture connected")

	return fix, nil
}
