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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/api/notifications"
	"github.com/fixturelink/fixturelink-core/pkg/archive"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrExportRunning = errors.New("export already running")
	ErrNoDestination = errors.New("no export destination available")
)

// DestinationResolver picks where the next export goes. It returns
// ErrNoDestination when nothing is attached.
type DestinationResolver func(ctx context.Context) (archive.Destination, error)

// Exporter runs log exports one at a time and tracks their status.
type Exporter struct {
	clock    clockwork.Clock
	archiver *archive.Archiver
	resolve  DestinationResolver
	notifs   chan<- models.Notification
	status   models.ExportStatus
	wg       sync.WaitGroup
	mu       syncutil.RWMutex
}

func NewExporter(
	logs *runlog.LogDir,
	clock clockwork.Clock,
	machine string,
	resolve DestinationResolver,
	notifs chan<- models.Notification,
) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &Exporter{
		clock:   clock,
		resolve: resolve,
		notifs:  notifs,
		status:  models.ExportStatus{State: models.ExportStateIdle},
	}
	e.archiver = archive.NewArchiver(logs, clock, machine, e.onProgress)
	return e
}

func (e *Exporter) onProgress(p archive.Progress) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Copied = p.Copied
	e.status.Total = p.Total
}

// Status returns the current export status. Available reports whether a
// destination is attached right now.
func (e *Exporter) Status(ctx context.Context) models.ExportStatus {
	_, err := e.resolve(ctx)
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := e.status
	st.Available = err == nil && e.archiver.HasLogs()
	return st
}

func (e *Exporter) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.State == models.ExportStateRunning {
		return ErrExportRunning
	}
	now := e.clock.Now()
	e.status = models.ExportStatus{
		State:     models.ExportStateRunning,
		StartedAt: &now,
	}
	return nil
}

func (e *Exporter) finish(report archive.Report, err error) models.ExportStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.status.FinishedAt = &now
	e.status.Name = report.Name
	e.status.Destination = report.Destination
	e.status.Files = len(report.Files)
	if err != nil {
		e.status.State = models.ExportStateFailed
		e.status.Error = err.Error()
	} else {
		e.status.State = models.ExportStateDone
	}
	return e.status
}

// Start launches an export in the background. The destination is
// resolved up front so a missing drive is reported to the caller.
func (e *Exporter) Start(ctx context.Context) error {
	dest, err := e.resolve(ctx)
	if err != nil {
		return err
	}
	if err := e.begin(); err != nil {
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.export(ctx, dest); err != nil {
			log.Error().Err(err).Str("destination", dest.Name()).Msg("export failed")
		}
	}()
	return nil
}

// Run performs an export synchronously.
func (e *Exporter) Run(ctx context.Context) (archive.Report, error) {
	dest, err := e.resolve(ctx)
	if err != nil {
		return archive.Report{}, err
	}
	if err := e.begin(); err != nil {
		return archive.Report{}, err
	}
	return e.export(ctx, dest)
}

func (e *Exporter) export(ctx context.Context, dest archive.Destination) (archive.Report, error) {
	log.Info().Str("destination", dest.Name()).Msg("starting log export")
	report, err := e.archiver.Export(ctx, dest)
	if err != nil {
		err = fmt.Errorf("failed to export logs: %w", err)
	}
	st := e.finish(report, err)
	notifications.ExportCompleted(e.notifs, st)
	return report, err
}

// Wait blocks until a background export has finished.
func (e *Exporter) Wait() {
	e.wg.Wait()
}
