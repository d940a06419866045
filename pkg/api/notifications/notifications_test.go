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

package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotification_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		FixtureConnected(ns, models.FixtureParams{Port: "/dev/ttyUSB0", Serial: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("notification send blocked on unbuffered channel")
	}
}

func TestSendNotification_DropsWhenFull(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ns <- models.Notification{Method: "prefill"}

	for range 10 {
		FixtureRemoved(ns, models.FixtureParams{Port: "/dev/ttyUSB0"})
	}

	msg := <-ns
	assert.Equal(t, "prefill", msg.Method)
	assert.Empty(t, ns)
}

func TestSendNotification_NilChannel(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		RunSealed(nil, models.RunSealedParams{Serial: 3})
	})
}

func TestRunSealed_Payload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	sealed := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	RunSealed(ns, models.RunSealedParams{
		SealedAt:   sealed,
		Port:       "/dev/ttyACM0",
		Result:     "000",
		ResultName: "PASS",
		ESN:        "0000BEEF",
		LotCode:    "11160211",
		Serial:     42,
		Cycle:      3,
		Model:      11,
	})

	notification := <-ns
	assert.Equal(t, models.NotificationRunSealed, notification.Method)

	var got models.RunSealedParams
	require.NoError(t, json.Unmarshal(notification.Params, &got))
	assert.Equal(t, uint32(42), got.Serial)
	assert.Equal(t, "0000BEEF", got.ESN)
	assert.True(t, sealed.Equal(got.SealedAt))
}

func TestNotificationMethods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		send   func(chan<- models.Notification)
		name   string
		method string
	}{
		{
			name:   "connected",
			method: models.NotificationFixtureConnected,
			send: func(ns chan<- models.Notification) {
				FixtureConnected(ns, models.FixtureParams{})
			},
		},
		{
			name:   "removed",
			method: models.NotificationFixtureRemoved,
			send: func(ns chan<- models.Notification) {
				FixtureRemoved(ns, models.FixtureParams{})
			},
		},
		{
			name:   "flashed",
			method: models.NotificationFixtureFlashed,
			send: func(ns chan<- models.Notification) {
				FixtureFlashed(ns, models.FixtureFlashedParams{Success: true})
			},
		},
		{
			name:   "upgrade confirming",
			method: models.NotificationUpgradeConfirming,
			send: func(ns chan<- models.Notification) {
				UpgradeConfirming(ns, models.UpgradeConfirmingParams{ToGUID: "00000001"})
			},
		},
		{
			name:   "export completed",
			method: models.NotificationExportCompleted,
			send: func(ns chan<- models.Notification) {
				ExportCompleted(ns, models.ExportStatus{State: models.ExportStateDone})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ns := make(chan models.Notification, 1)
			tt.send(ns)
			got := <-ns
			assert.Equal(t, tt.method, got.Method)
			assert.NotEmpty(t, got.Params)
		})
	}
}
