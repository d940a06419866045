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
	"runtime/debug"
	"slices"
	"sync/atomic"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/api/notifications"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/firmware"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/fixturelink/fixturelink-core/pkg/flash"
	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrTickBusy  = errors.New("previous tick still running")
	ErrTickPanic = errors.New("tick panicked")
)

// FixtureDiscoverer probes a port for a fixture.
type FixtureDiscoverer interface {
	Discover(ctx context.Context, port string) (*fixtures.Fixture, error)
}

// RemovableDetector reports the mount point of an attached export drive.
type RemovableDetector interface {
	Detect(ctx context.Context) (string, bool, error)
}

// ReconcilerDeps are the collaborators of a Reconciler. Removable and
// Notifications may be nil.
type ReconcilerDeps struct {
	Config        *config.Instance
	Clock         clockwork.Clock
	Registry      *fixtures.Registry
	Discoverer    FixtureDiscoverer
	Firmware      *firmware.Cache
	Parser        *runlog.Parser
	Flasher       *flash.Engine
	Confirmer     Confirmer
	Removable     RemovableDetector
	ListPorts     func() ([]string, error)
	Notifications chan<- models.Notification
}

// Reconciler brings the attached fixtures in line with the station
// configuration once per tick.
type Reconciler struct {
	ReconcilerDeps
	arbiter          *Arbiter
	debug            *DebugMachine
	command          string
	removable        string
	lotPart2         string
	snapshot         []models.FixtureStatus
	mu               syncutil.RWMutex
	busy             atomic.Bool
	removableOK      bool
	upgradeConfirmed bool
}

func NewReconciler(deps ReconcilerDeps) *Reconciler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Registry == nil {
		deps.Registry = fixtures.NewRegistry()
	}
	if deps.Confirmer == nil {
		deps.Confirmer = AutoConfirmer{Accept: deps.Config.AutoConfirmUpgrade()}
	}
	return &Reconciler{
		ReconcilerDeps: deps,
		arbiter:        NewArbiter(),
		debug:          NewDebugMachine(),
	}
}

func (r *Reconciler) Debug() *DebugMachine {
	return r.debug
}

// QueueCommand sets the ad-hoc command sent to every fixture on the next
// tick. A later call replaces a command that has not been sent yet.
func (r *Reconciler) QueueCommand(cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.command = cmd
}

func (r *Reconciler) takeCommand() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd := r.command
	r.command = ""
	return cmd
}

// RemovableMount returns the export drive found on the last tick.
func (r *Reconciler) RemovableMount() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.removable, r.removableOK
}

func (r *Reconciler) LotPart2() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lotPart2
}

// Statuses returns the snapshot published after the last tick.
func (r *Reconciler) Statuses() []models.FixtureStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.snapshot)
}

// Tick runs one reconciliation pass. An overlapping call returns
// ErrTickBusy without doing anything. Stage errors are logged and
// swallowed; only ErrUpgradeDeclined and recovered panics are returned.
func (r *Reconciler) Tick(ctx context.Context) (err error) {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrTickBusy
	}
	defer r.busy.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in reconcile tick")
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
		}
	}()

	r.arbiter.Reset()

	ports, err := r.prune()
	if err != nil {
		log.Warn().Err(err).Msg("failed to enumerate serial ports")
	}

	if _, err := r.Firmware.RefreshAll(); err != nil {
		log.Warn().Err(err).Msg("failed to refresh firmware image")
	}

	if ports != nil {
		r.discover(ctx, ports)
	}

	r.detectRemovable(ctx)
	r.stepDebug()

	lotPart2 := fixtures.LotDate(r.Clock.Now())
	r.mu.Lock()
	r.lotPart2 = lotPart2
	r.mu.Unlock()

	err = r.reconcileFixtures(ctx, lotPart2)
	r.publishSnapshot()
	return err
}

func (r *Reconciler) prune() ([]string, error) {
	ports, err := r.ListPorts()
	if err != nil {
		return nil, err
	}
	for _, fix := range r.Registry.Prune(ports) {
		log.Info().Str("port", fix.Port).Uint32("serial", fix.Serial).Msg("fixture removed")
		r.drop(fix)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}

// drop closes a fixture that is no longer in the registry.
func (r *Reconciler) drop(fix *fixtures.Fixture) {
	if err := fix.Close(); err != nil {
		log.Warn().Err(err).Str("port", fix.Port).Msg("failed to close fixture port")
	}
	fix.Log = nil
	r.arbiter.Release(fix.Port)
	notifications.FixtureRemoved(r.Notifications, fixtureParams(fix))
}

func (r *Reconciler) discover(ctx context.Context, ports []string) {
	for _, port := range ports {
		if r.Registry.Has(port) {
			continue
		}
		fix, err := r.Discoverer.Discover(ctx, port)
		if err != nil {
			log.Debug().Err(err).Str("port", port).Msg("no fixture on port")
			continue
		}
		for _, stale := range r.Registry.Add(fix) {
			log.Info().Str("port", stale.Port).Msg("evicting stale fixture entry")
			r.drop(stale)
		}
		notifications.FixtureConnected(r.Notifications, fixtureParams(fix))
	}
}

func (r *Reconciler) detectRemovable(ctx context.Context) {
	if r.Removable == nil {
		return
	}
	mount, ok, err := r.Removable.Detect(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("failed to detect removable drive")
		ok = false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok != r.removableOK || mount != r.removable {
		log.Info().Bool("available", ok).Str("mount", mount).Msg("export drive changed")
	}
	r.removable, r.removableOK = mount, ok
}

func (r *Reconciler) stepDebug() {
	if !r.Config.DebugMode() || r.Registry.Len() != 1 {
		r.debug.Reset()
		return
	}
	fix := r.Registry.List()[0]
	if err := r.debug.Step(fix, r.arbiter); err != nil {
		log.Warn().Err(err).Str("port", fix.Port).Msg("debug step failed")
	}
}

func (r *Reconciler) reconcileFixtures(ctx context.Context, lotPart2 string) error {
	cmd := r.takeCommand()
	for _, fix := range r.Registry.List() {
		if ctx.Err() != nil {
			return nil
		}
		err := r.reconcileFixtureRecovered(ctx, fix, lotPart2, cmd)
		if errors.Is(err, ErrUpgradeDeclined) {
			return err
		}
		if err != nil {
			log.Warn().Err(err).Str("port", fix.Port).Msg("fixture reconcile failed")
		}
	}
	return nil
}

// reconcileFixtureRecovered confines a panic to the fixture that caused
// it so the rest of the tick still runs.
func (r *Reconciler) reconcileFixtureRecovered(
	ctx context.Context,
	fix *fixtures.Fixture,
	lotPart2 string,
	cmd string,
) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("port", fix.Port).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic reconciling fixture")
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
		}
	}()
	return r.reconcileFixture(ctx, fix, lotPart2, cmd)
}

func (r *Reconciler) reconcileFixture(
	ctx context.Context,
	fix *fixtures.Fixture,
	lotPart2 string,
	cmd string,
) error {
	debugMode := r.Config.DebugMode()
	owned := r.arbiter.Acquire(fix.Port, OwnerReconcile)

	if owned {
		if err := r.ingest(fix); err != nil {
			return err
		}
	}

	if img, ok := r.Firmware.Current(); ok && fix.GUID != img.GUID {
		if !owned {
			return nil
		}
		if !debugMode {
			if err := r.confirmUpgrade(ctx, fix.GUID, img.GUID); err != nil {
				return err
			}
		}
		r.upgrade(ctx, fix, img)
		return nil
	}

	fix.ApplyModel(r.Config.Lot(), lotPart2, r.Config.MinModel(), debugMode)
	if !owned {
		return nil
	}

	if fix.NeedsLotUpdate() {
		if err := fix.Framer.Drain(); err != nil {
			return fmt.Errorf("failed to drain before lot update: %w", err)
		}
		if _, err := fix.Framer.Exchange("SetLotCode "+fix.LotCode, transport.StatusOK); err != nil {
			return fmt.Errorf("failed to set lot code: %w", err)
		}
		log.Info().Str("port", fix.Port).Str("lot", fix.LotCode).Int("model", fix.Model).Msg("lot code set")
		fix.CurLotCode = fix.LotCode
		fix.CurModel = fix.Model
	}

	if cmd != "" {
		if err := fix.Framer.Drain(); err != nil {
			return fmt.Errorf("failed to drain before command: %w", err)
		}
		resp, err := fix.Framer.Exchange(cmd, transport.StatusOK)
		if err != nil {
			return fmt.Errorf("failed to run command %q: %w", cmd, err)
		}
		log.Info().Str("port", fix.Port).Str("command", cmd).Str("response", resp).Msg("command sent")
	}
	return nil
}

func (r *Reconciler) ingest(fix *fixtures.Fixture) error {
	text, err := fix.Framer.ReadAvailable()
	if err != nil {
		return fmt.Errorf("failed to read fixture output: %w", err)
	}
	run, err := r.Parser.Ingest(&fix.State, fix.Serial, fix.Log, text, fix.Framer)
	if err != nil {
		return err
	}
	if run == nil {
		return nil
	}

	log.Info().
		Str("port", fix.Port).
		Uint32("serial", fix.Serial).
		Str("result", run.Result).
		Str("esn", run.ESN).
		Int("cycle", run.Cycle).
		Msg("test run complete")
	notifications.RunSealed(r.Notifications, models.RunSealedParams{
		SealedAt:   run.SealedAt,
		Port:       fix.Port,
		Result:     run.Result,
		ResultName: runlog.ResultName(run.Result),
		ESN:        run.ESN,
		LotCode:    fix.CurLotCode,
		Station:    r.Config.StationName(),
		Text:       run.Text,
		Serial:     fix.Serial,
		Cycle:      run.Cycle,
		Model:      fix.Model,
	})
	return nil
}

func (r *Reconciler) confirmUpgrade(ctx context.Context, current, target uint32) error {
	if r.upgradeConfirmed {
		return nil
	}
	notifications.UpgradeConfirming(r.Notifications, models.UpgradeConfirmingParams{
		FromGUID: formatGUID(current),
		ToGUID:   formatGUID(target),
	})
	ok, err := r.Confirmer.ConfirmUpgrade(ctx, current, target)
	if err != nil {
		return fmt.Errorf("failed to confirm upgrade: %w", err)
	}
	if !ok {
		return ErrUpgradeDeclined
	}
	r.upgradeConfirmed = true
	return nil
}

// upgrade flashes img and removes the fixture whatever the outcome; it is
// rediscovered with its new GUID once it reboots.
func (r *Reconciler) upgrade(ctx context.Context, fix *fixtures.Fixture, img *firmware.Image) {
	fix.Upgrading = true
	r.publishSnapshot()

	log.Info().
		Str("port", fix.Port).
		Str("from", formatGUID(fix.GUID)).
		Str("to", formatGUID(img.GUID)).
		Msg("upgrading fixture firmware")

	res, err := r.Flasher.Flash(ctx, fix.Framer, img.Data)
	params := models.FixtureFlashedParams{
		Port:       fix.Port,
		FromGUID:   formatGUID(fix.GUID),
		ToGUID:     formatGUID(img.GUID),
		Serial:     fix.Serial,
		BytesSent:  res.BytesSent,
		DurationMs: res.Duration.Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		params.Error = err.Error()
		log.Error().Err(err).Str("port", fix.Port).Msg("firmware upgrade failed")
	} else {
		log.Info().
			Str("port", fix.Port).
			Int("blocks", res.Blocks).
			Dur("duration", res.Duration).
			Msg("firmware upgrade complete")
	}

	r.Registry.Remove(fix.Port)
	r.drop(fix)
	notifications.FixtureFlashed(r.Notifications, params)
}

func (r *Reconciler) publishSnapshot() {
	debugMode := r.Config.DebugMode()
	list := r.Registry.List()
	statuses := make([]models.FixtureStatus, 0, len(list))
	for _, fix := range list {
		st := fixtureStatus(fix)
		if debugMode && len(list) == 1 {
			st.DebugState = r.debug.State().String()
			st.Details = r.debug.Details()
		}
		statuses = append(statuses, st)
	}

	r.mu.Lock()
	r.snapshot = statuses
	r.mu.Unlock()
}
