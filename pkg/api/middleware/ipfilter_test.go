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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIPFilter(t *testing.T) {
	t.Parallel()

	f := NewIPFilter([]string{"10.0.0.5", "192.168.1.0/24", "10.0.0.6:7498", "not-an-ip"})
	assert.Len(t, f.addrs, 2)
	assert.Len(t, f.nets, 1)
	assert.False(t, f.Empty())

	assert.True(t, NewIPFilter(nil).Empty())
	assert.True(t, NewIPFilter([]string{"bogus"}).Empty())
}

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		allowed    []string
		want       bool
	}{
		{name: "empty allows all", remoteAddr: "203.0.113.9:5000", want: true},
		{name: "exact match", allowed: []string{"10.0.0.5"}, remoteAddr: "10.0.0.5:5000", want: true},
		{name: "not listed", allowed: []string{"10.0.0.5"}, remoteAddr: "10.0.0.6:5000", want: false},
		{name: "cidr match", allowed: []string{"192.168.1.0/24"}, remoteAddr: "192.168.1.77:1", want: true},
		{name: "cidr miss", allowed: []string{"192.168.1.0/24"}, remoteAddr: "192.168.2.1:1", want: false},
		{name: "loopback always", allowed: []string{"10.0.0.5"}, remoteAddr: "127.0.0.1:9000", want: true},
		{name: "ipv6 loopback", allowed: []string{"10.0.0.5"}, remoteAddr: "[::1]:9000", want: true},
		{name: "garbage addr", allowed: []string{"10.0.0.5"}, remoteAddr: "garbage", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewIPFilter(tt.allowed).IsAllowed(tt.remoteAddr))
		})
	}
}

func TestIPFilterMiddleware(t *testing.T) {
	t.Parallel()

	handler := IPFilterMiddleware(NewIPFilter([]string{"10.0.0.5"}))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("OK"))
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/command", http.NoBody)
	req.RemoteAddr = "10.0.0.5:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/command", http.NoBody)
	req.RemoteAddr = "10.0.0.9:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden\n", rec.Body.String())
}

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10.1.2.3", ParseRemoteIP("10.1.2.3:80").String())
	assert.Equal(t, "10.1.2.3", ParseRemoteIP("10.1.2.3").String())
	assert.Nil(t, ParseRemoteIP("nope"))
	assert.True(t, IsLoopbackAddr("127.0.0.1:1"))
	assert.False(t, IsLoopbackAddr("10.0.0.1:1"))
}
