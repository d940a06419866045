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

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// sendNotification marshals the payload and queues it without blocking.
// A full queue drops the notification; the reconcile loop must never
// stall on a slow subscriber.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	if ns == nil {
		return
	}

	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("error marshalling notification params")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping notification")
	}
}

func RunSealed(ns chan<- models.Notification, payload models.RunSealedParams) {
	sendNotification(ns, models.NotificationRunSealed, payload)
}

func FixtureConnected(ns chan<- models.Notification, payload models.FixtureParams) {
	sendNotification(ns, models.NotificationFixtureConnected, payload)
}

func FixtureRemoved(ns chan<- models.Notification, payload models.FixtureParams) {
	sendNotification(ns, models.NotificationFixtureRemoved, payload)
}

func FixtureFlashed(ns chan<- models.Notification, payload models.FixtureFlashedParams) {
	sendNotification(ns, models.NotificationFixtureFlashed, payload)
}

func UpgradeConfirming(ns chan<- models.Notification, payload models.UpgradeConfirmingParams) {
	sendNotification(ns, models.NotificationUpgradeConfirming, payload)
}

func ExportCompleted(ns chan<- models.Notification, payload models.ExportStatus) {
	sendNotification(ns, models.NotificationExportCompleted, payload)
}
