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

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendCommand(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client())
	require.NoError(t, c.SendCommand(context.Background(), "GetSerial"))
	assert.Equal(t, "/api/command", gotPath)
	assert.JSONEq(t, `{"command":"GetSerial"}`, string(gotBody))
}

func TestClient_ErrorResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"export already running"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, srv.Client())
	err := c.StartExport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export already running")
}

func TestClient_Fixtures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.FixtureStatus{{Port: "/dev/ttyACM0", Serial: 7}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil)
	statuses, err := c.Fixtures(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, uint32(7), statuses[0].Serial)
}
