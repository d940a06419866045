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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fixturelink/fixturelink-core/internal/telemetry"
	"github.com/fixturelink/fixturelink-core/pkg/api"
	"github.com/fixturelink/fixturelink-core/pkg/api/client"
	"github.com/fixturelink/fixturelink-core/pkg/cli"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/service"
	"github.com/fixturelink/fixturelink-core/pkg/service/discovery"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Close()
		os.Exit(1)
	}
	telemetry.Close()
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if exit, err := flags.Pre(os.Args[1:], os.Stdout); exit || err != nil {
		return err
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			telemetry.Flush()
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.Remote() {
		_, err := flags.Post(ctx, client.LocalClient(cfg), os.Stdout)
		return err
	}

	if *flags.Debug {
		cfg.SetDebugMode(true)
	}

	opts := service.Options{}
	if !*flags.Daemon && !cfg.AutoConfirmUpgrade() {
		opts.Confirmer = cli.TerminalConfirmer{In: os.Stdin, Out: os.Stderr}
	}

	svc, err := service.New(cfg, opts)
	if err != nil {
		return fmt.Errorf("error creating station: %w", err)
	}

	if *flags.Export {
		report, err := svc.Export(ctx)
		if stopErr := svc.Stop(); stopErr != nil {
			log.Warn().Err(stopErr).Msg("error stopping station")
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Printf("Exported %d files to %s/%s\n", len(report.Files), report.Destination, report.Name)
		return nil
	}

	if err := svc.Start(); err != nil {
		return fmt.Errorf("error starting station: %w", err)
	}

	apiErr := make(chan error, 1)
	go func() {
		apiErr <- api.NewServer(cfg, svc).Start(ctx)
	}()

	mdns := discovery.New(cfg)
	mdns.Start()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case <-svc.Done():
	case err := <-apiErr:
		if err != nil {
			log.Error().Err(err).Msg("api server stopped")
		}
	}

	stop()
	mdns.Stop()
	err = svc.Stop()
	if errors.Is(err, service.ErrUpgradeDeclined) {
		return errors.New("firmware upgrade declined, fixtures left untouched")
	}
	return err
}
