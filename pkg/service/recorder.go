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

package service

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/rs/zerolog/log"
)

// RunRecorder stores sealed runs delivered by the broker in the run
// history database.
type RunRecorder struct {
	db   database.RunDBI
	done chan struct{}
	once sync.Once
}

func NewRunRecorder(db database.RunDBI) *RunRecorder {
	return &RunRecorder{
		db:   db,
		done: make(chan struct{}),
	}
}

// Start consumes runs.sealed notifications until the channel closes.
func (r *RunRecorder) Start(notifs <-chan models.Notification) {
	go func() {
		defer r.once.Do(func() { close(r.done) })
		for notif := range notifs {
			if notif.Method != models.NotificationRunSealed {
				continue
			}
			if err := r.record(notif.Params); err != nil {
				log.Error().Err(err).Msg("failed to record test run")
			}
		}
	}()
}

// Done is closed once the notification channel has been drained.
func (r *RunRecorder) Done() <-chan struct{} {
	return r.done
}

func (r *RunRecorder) record(raw json.RawMessage) error {
	var p models.RunSealedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode run notification: %w", err)
	}
	entry := &database.RunEntry{
		SealedAt:      p.SealedAt,
		Port:          p.Port,
		Result:        p.Result,
		ResultName:    p.ResultName,
		ESN:           p.ESN,
		LotCode:       p.LotCode,
		Text:          p.Text,
		FixtureSerial: p.Serial,
		Cycle:         p.Cycle,
		Model:         p.Model,
	}
	if err := r.db.AddRun(entry); err != nil {
		return fmt.Errorf("failed to add run: %w", err)
	}
	log.Debug().Int64("id", entry.DBID).Uint32("serial", p.Serial).Msg("recorded test run")
	return nil
}
