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
	"testing"

	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/fixturelink/fixturelink-core/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func testConfig() *config.Instance {
	return config.NewInstanceForTesting(config.Values{
		Fixtures: config.Fixtures{
			Lot:          "111",
			ReadTimeout:  "50ms",
			VendorMarker: "ANKI",
			Models: []config.FixtureModel{
				{Serial: 42, Model: 11},
			},
		},
	})
}

func factoryFor(port transport.SerialPort, seen *serial.Mode) transport.PortFactory {
	return func(_ string, mode *serial.Mode) (transport.SerialPort, error) {
		if seen != nil {
			*seen = *mode
		}
		return port, nil
	}
}

func TestParseHandshake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		want    Handshake
		wantErr bool
	}{
		{
			name: "unsigned guid",
			text: "fixture,ok,0,42,1,305419896\r\n",
			want: Handshake{Serial: 42, Type: "1", GUID: 0x12345678},
		},
		{
			name: "echoed command",
			text: "GetSerial\r\nok,0,42,3,5",
			want: Handshake{Serial: 42, Type: "3", GUID: 5},
		},
		{
			name: "negative guid",
			text: "x,y,z,7,2,-2\r\n",
			want: Handshake{Serial: 7, Type: "2", GUID: 0xFFFFFFFE},
		},
		{
			name:    "too few fields",
			text:    "a,b,c,1\r\n",
			wantErr: true,
		},
		{
			name:    "bad serial",
			text:    "a,b,c,serial,1,5",
			wantErr: true,
		},
		{
			name:    "guid out of range",
			text:    "a,b,c,1,1,99999999999",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseHandshake(tt.text)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedHandshake)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover_Fixture(t *testing.T) {
	t.Parallel()

	sim := mocks.NewFixtureSim(42, 0xFFFFFFF0, 0)
	var mode serial.Mode
	logs, err := runlog.NewLogDir(afero.NewMemMapFs(), "/logs")
	require.NoError(t, err)
	d := NewDiscoverer(testConfig(), logs, factoryFor(sim, &mode))

	fix, err := d.Discover(context.Background(), "/dev/ttyACM0")
	require.NoError(t, err)
	require.NotNil(t, fix)

	assert.Equal(t, 1000000, mode.BaudRate)
	assert.Equal(t, "/dev/ttyACM0", fix.Port)
	assert.Equal(t, uint32(42), fix.Serial)
	assert.Equal(t, "1", fix.Type)
	assert.Equal(t, uint32(0xFFFFFFF0), fix.GUID)
	assert.Equal(t, 11, fix.Model)
	assert.Equal(t, -1, fix.CurModel)
	assert.NotNil(t, fix.Log)
	assert.False(t, sim.IsClosed())
	assert.Equal(t, []string{"GetSerial"}, sim.Commands())
}

func TestDiscover_UnmappedSerialDefaultsToModelOne(t *testing.T) {
	t.Parallel()

	sim := mocks.NewFixtureSim(5, 1, 0)
	d := NewDiscoverer(testConfig(), nil, factoryFor(sim, nil))

	fix, err := d.Discover(context.Background(), "COM3")
	require.NoError(t, err)
	assert.Equal(t, 1, fix.Model)
	assert.Nil(t, fix.Log)
}

func TestDiscover_NotFixture(t *testing.T) {
	t.Parallel()

	sim := mocks.NewFixtureSim(42, 1, 0)
	sim.Banner = "\r\nsome modem\r\n"
	d := NewDiscoverer(testConfig(), nil, factoryFor(sim, nil))

	fix, err := d.Discover(context.Background(), "COM3")
	require.ErrorIs(t, err, ErrNotFixture)
	assert.Nil(t, fix)
	assert.True(t, sim.IsClosed())
}

func TestDiscover_SilentDevice(t *testing.T) {
	t.Parallel()

	port := mocks.NewMockSerialPort()
	d := NewDiscoverer(testConfig(), nil, factoryFor(port, nil))

	_, err := d.Discover(context.Background(), "COM3")
	require.ErrorIs(t, err, ErrNotFixture)
	require.ErrorIs(t, err, transport.ErrTimeout)
	assert.True(t, port.IsClosed())
}

func TestDiscover_MalformedHandshake(t *testing.T) {
	t.Parallel()

	port := mocks.NewMockSerialPort()
	port.OnWrite = func(p []byte) []byte {
		switch string(p) {
		case "\x1b":
			return []byte("ANKI>")
		case "GetSerial\n":
			return []byte("garbage\r\nstatus,0\r\n")
		}
		return nil
	}
	d := NewDiscoverer(testConfig(), nil, factoryFor(port, nil))

	_, err := d.Discover(context.Background(), "COM3")
	require.ErrorIs(t, err, ErrMalformedHandshake)
	assert.True(t, port.IsClosed())
}

func TestDiscover_OpenError(t *testing.T) {
	t.Parallel()

	openErr := errors.New("access denied")
	d := NewDiscoverer(testConfig(), nil, func(string, *serial.Mode) (transport.SerialPort, error) {
		return nil, openErr
	})

	_, err := d.Discover(context.Background(), "COM3")
	require.ErrorIs(t, err, openErr)
}

func TestDiscover_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDiscoverer(testConfig(), nil, factoryFor(mocks.NewMockSerialPort(), nil))

	_, err := d.Discover(ctx, "COM3")
	require.ErrorIs(t, err, context.Canceled)
}
