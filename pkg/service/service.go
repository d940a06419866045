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

// Package service runs the fixture station: it reconciles attached
// fixtures on a fixed tick, fans notifications out to publishers and the
// run history, and serves exports.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fixturelink/fixturelink-core/pkg/api"
	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/archive"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/fixturelink/fixturelink-core/pkg/database/rundb"
	"github.com/fixturelink/fixturelink-core/pkg/firmware"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/fixturelink/fixturelink-core/pkg/flash"
	"github.com/fixturelink/fixturelink-core/pkg/helpers"
	"github.com/fixturelink/fixturelink-core/pkg/service/broker"
	"github.com/fixturelink/fixturelink-core/pkg/service/publishers"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const notificationBuffer = 100

// Options override the station's collaborators. Zero values select the
// real implementations.
type Options struct {
	Fs           afero.Fs
	Clock        clockwork.Clock
	PortFactory  transport.PortFactory
	ListPorts    func() ([]string, error)
	Confirmer    Confirmer
	Removable    RemovableDetector
	RunDB        database.RunDBI
	DataDir      string
	FlashOptions []flash.Option
}

type Service struct {
	ctx        context.Context //nolint:containedctx // lifetime of the service
	runDB      database.RunDBI
	cfg        *config.Instance
	fs         afero.Fs
	clock      clockwork.Clock
	cancel     context.CancelFunc
	err        error
	notifs     chan models.Notification
	broker     *broker.Broker
	reconciler *Reconciler
	exporter   *Exporter
	firmware   *firmware.Cache
	recorder   *RunRecorder
	done       chan struct{}
	dataDir    string
	publishers []*publishers.MQTTPublisher
	startOnce  sync.Once
	ownsDB     bool
}

func resolveFirmwarePaths(paths []string) []string {
	exeDir := helpers.ExeDir()
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) && exeDir != "" {
			p = filepath.Join(exeDir, p)
		}
		resolved = append(resolved, p)
	}
	return resolved
}

// New assembles a station from cfg. Nothing touches the serial ports or
// the network until Start.
//
//nolint:gocritic // options struct copied once
func New(cfg *config.Instance, opts Options) (*Service, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ListPorts == nil {
		opts.ListPorts = helpers.GetSerialDeviceList
	}
	if opts.Removable == nil {
		opts.Removable = archive.NewDetector(cfg.RemovableRoots())
	}
	if opts.DataDir == "" {
		opts.DataDir = helpers.DataDir()
	}

	logs, err := runlog.NewLogDir(opts.Fs, cfg.LogsDir(opts.DataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open log directory: %w", err)
	}

	station := cfg.StationName()
	flashOpts := append([]flash.Option{flash.WithFlashTimeout(cfg.FlashTimeout())}, opts.FlashOptions...)

	s := &Service{
		cfg:      cfg,
		fs:       opts.Fs,
		clock:    opts.Clock,
		dataDir:  opts.DataDir,
		runDB:    opts.RunDB,
		notifs:   make(chan models.Notification, notificationBuffer),
		firmware: firmware.NewCache(opts.Fs, resolveFirmwarePaths(cfg.FirmwarePaths())),
		done:     make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.reconciler = NewReconciler(ReconcilerDeps{
		Config:        cfg,
		Clock:         opts.Clock,
		Registry:      fixtures.NewRegistry(),
		Discoverer:    fixtures.NewDiscoverer(cfg, logs, opts.PortFactory),
		Firmware:      s.firmware,
		Parser:        runlog.NewParser(opts.Clock, station, helpers.UserName()),
		Flasher:       flash.New(flashOpts...),
		Confirmer:     opts.Confirmer,
		Removable:     opts.Removable,
		ListPorts:     opts.ListPorts,
		Notifications: s.notifs,
	})
	s.exporter = NewExporter(logs, opts.Clock, station, s.resolveDestination, s.notifs)

	return s, nil
}

func (s *Service) resolveDestination(context.Context) (archive.Destination, error) {
	if s3cfg := s.cfg.S3Export(); s3cfg.Enabled {
		dest, err := archive.NewS3Destination(s3cfg)
		if err != nil {
			return nil, err
		}
		return dest, nil
	}
	if mount, ok := s.reconciler.RemovableMount(); ok {
		return archive.NewDirDestination(s.fs, mount), nil
	}
	return nil, ErrNoDestination
}

func (s *Service) startPublishers() {
	for _, mqttCfg := range s.cfg.GetMQTTPublishers() {
		// nil means enabled
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)
		pub := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, s.cfg.StationID(), mqttCfg.Filter)
		if creds := s.cfg.Credentials(mqttCfg.Broker); creds != nil && creds.Username != "" {
			log.Debug().Msgf("using stored credentials for %s", mqttCfg.Broker)
			pub.SetAuth(creds.Username, creds.Password)
		}
		ch, id := s.broker.Subscribe(notificationBuffer)
		if err := pub.Start(ch); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			s.broker.Unsubscribe(id)
			continue
		}
		s.publishers = append(s.publishers, pub)
	}

	if len(s.publishers) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(s.publishers))
	}
}

func (s *Service) startHistory() error {
	if !s.cfg.HistoryEnabled() {
		log.Info().Msg("run history disabled")
		s.runDB = nil
		return nil
	}

	if s.runDB == nil {
		log.Info().Msg("opening run history database")
		db, err := rundb.OpenRunDB(s.ctx, s.dataDir)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		s.runDB = db
		s.ownsDB = true
	}

	if days := s.cfg.HistoryRetentionDays(); days > 0 {
		removed, err := s.runDB.CleanupRuns(days)
		if err != nil {
			log.Error().Err(err).Msg("failed to clean up run history")
		} else if removed > 0 {
			log.Info().Int64("removed", removed).Int("days", days).Msg("cleaned up run history")
		}
	}

	s.recorder = NewRunRecorder(s.runDB)
	ch, _ := s.broker.SubscribeMethods(notificationBuffer, models.NotificationRunSealed)
	s.recorder.Start(ch)
	return nil
}

// Start brings the station up and begins ticking. It may be called once.
func (s *Service) Start() error {
	err := errors.New("service already started")
	s.startOnce.Do(func() {
		err = s.start()
	})
	return err
}

func (s *Service) start() error {
	log.Info().Msgf("version: %s", config.AppVersion)
	log.Info().Msgf("boot session UUID: %s", uuid.New().String())

	s.broker = broker.NewBroker(context.Background(), s.notifs)
	s.broker.Start()

	if err := s.startHistory(); err != nil {
		s.cancel()
		close(s.notifs)
		<-s.broker.Done()
		close(s.done)
		return err
	}

	log.Info().Msg("starting publishers")
	s.startPublishers()

	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		return s.runTicks(gctx, g)
	})

	go func() {
		err := g.Wait()
		if err != nil {
			log.Error().Err(err).Msg("station stopped")
		}
		s.shutdown(err)
	}()

	log.Info().
		Dur("interval", s.cfg.TickInterval()).
		Bool("debug", s.cfg.DebugMode()).
		Str("lot", s.cfg.Lot()).
		Msg("station started")
	return nil
}

// runTicks starts a reconcile pass on every tick. A pass that overruns the
// interval causes later ticks to be skipped rather than queued.
func (s *Service) runTicks(ctx context.Context, g *errgroup.Group) error {
	ticker := s.clock.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	g.Go(func() error { return s.tick(ctx) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			g.Go(func() error { return s.tick(ctx) })
		}
	}
}

func (s *Service) tick(ctx context.Context) error {
	err := s.reconciler.Tick(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTickBusy):
		log.Debug().Msg("skipping tick, previous tick still running")
		return nil
	case errors.Is(err, ErrUpgradeDeclined):
		return err
	default:
		log.Error().Err(err).Msg("reconcile tick failed")
		return nil
	}
}

func (s *Service) shutdown(cause error) {
	log.Info().Msg("service stopping, running cleanup")
	s.cancel()

	s.exporter.Wait()
	for _, fix := range s.reconciler.Registry.List() {
		if err := fix.Close(); err != nil {
			log.Warn().Err(err).Str("port", fix.Port).Msg("error closing fixture")
		}
	}

	close(s.notifs)
	<-s.broker.Done()
	for _, pub := range s.publishers {
		pub.Stop()
	}
	if s.recorder != nil {
		<-s.recorder.Done()
	}
	if s.ownsDB {
		if err := s.runDB.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing run history")
		}
	}

	s.err = cause
	log.Info().Msg("service cleanup completed")
	close(s.done)
}

// Done is closed once the station has fully stopped.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the station stopped. Only valid after Done.
func (s *Service) Err() error {
	return s.err
}

// Stop cancels the tick loop and waits for cleanup.
func (s *Service) Stop() error {
	s.cancel()
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
	return s.err
}

// Export performs a single export without starting the station.
func (s *Service) Export(ctx context.Context) (archive.Report, error) {
	s.reconciler.detectRemovable(ctx)
	return s.exporter.Run(ctx)
}

func (s *Service) Statuses() []models.FixtureStatus {
	return s.reconciler.Statuses()
}

func (s *Service) QueueCommand(cmd string) {
	s.reconciler.QueueCommand(cmd)
}

func (s *Service) SetInteraction(name string, color int) error {
	if !s.cfg.DebugMode() {
		return fmt.Errorf("%w: debug mode is off", api.ErrConflict)
	}
	i, err := ParseInteraction(name)
	if err != nil {
		return err
	}
	s.reconciler.Debug().SetInteraction(i, color)
	return nil
}

// SetLot changes the lot prefix used for fixtures seen from now on and
// saves it when the config came from disk.
func (s *Service) SetLot(lot string) error {
	if s.cfg.DebugMode() {
		return fmt.Errorf("%w: lot is fixed in debug mode", api.ErrConflict)
	}
	if err := s.cfg.SetLot(lot); err != nil {
		return err
	}
	log.Info().Str("lot", lot).Msg("lot changed")
	if s.cfg.Path() == "" {
		return nil
	}
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (s *Service) StartExport() error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("%w: station stopped", api.ErrUnavailable)
	}
	err := s.exporter.Start(s.ctx)
	switch {
	case errors.Is(err, ErrExportRunning):
		return fmt.Errorf("%w: %w", api.ErrConflict, err)
	case errors.Is(err, ErrNoDestination):
		return fmt.Errorf("%w: %w", api.ErrUnavailable, err)
	default:
		return err
	}
}

func (s *Service) ExportStatus(ctx context.Context) models.ExportStatus {
	return s.exporter.Status(ctx)
}

func (s *Service) Firmware() models.FirmwareResponse {
	img, ok := s.firmware.Current()
	if !ok {
		return models.FirmwareResponse{}
	}
	modTime := img.ModTime
	return models.FirmwareResponse{
		ModTime: &modTime,
		Path:    img.Path,
		GUID:    formatGUID(img.GUID),
		Size:    len(img.Data),
		Loaded:  true,
	}
}

func (s *Service) RecentRuns(serial uint32, limit int) ([]database.RunEntry, error) {
	if s.runDB == nil {
		return nil, api.ErrHistoryDisabled
	}
	runs, err := s.runDB.RecentRuns(serial, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	return runs, nil
}

var _ api.Service = (*Service)(nil)
