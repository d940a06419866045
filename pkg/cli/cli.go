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

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fixturelink/fixturelink-core/internal/telemetry"
	"github.com/fixturelink/fixturelink-core/pkg/api/client"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	set     *flag.FlagSet
	Command *string
	Lot     *string
	Status  *bool
	Export  *bool
	Debug   *bool
	Daemon  *bool
	Version *bool
}

// SetupFlags defines the station flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		Command: fs.String(
			"command",
			"",
			"send a raw command to every fixture on the running station",
		),
		Lot: fs.String(
			"lot",
			"",
			"change the lot prefix on the running station",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the fixture table of the running station and exit",
		),
		Export: fs.Bool(
			"export",
			false,
			"export fixture logs to removable media and exit",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"start the station in debug mode",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"log to stderr and never prompt on the terminal",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It reports
// whether the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}
	if *f.Version {
		_, _ = fmt.Fprintf(out, "FixtureLink v%s\n", config.AppVersion)
		return true, nil
	}
	return false, nil
}

// Remote reports whether a flag targets an already running station.
func (f *Flags) Remote() bool {
	return f.isFlagPassed("command") || f.isFlagPassed("lot") || *f.Status
}

// Post actions the flags that talk to a running station through its API.
// It reports whether one was handled.
func (f *Flags) Post(ctx context.Context, c *client.Client, out io.Writer) (bool, error) {
	switch {
	case f.isFlagPassed("command"):
		if *f.Command == "" {
			return true, errors.New("command flag requires a value")
		}
		if err := c.SendCommand(ctx, *f.Command); err != nil {
			log.Error().Err(err).Msg("error sending command")
			return true, fmt.Errorf("error sending command: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Command queued: %s\n", *f.Command)
		return true, nil
	case f.isFlagPassed("lot"):
		if err := c.SetLot(ctx, *f.Lot); err != nil {
			return true, fmt.Errorf("error setting lot: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Lot set to %s\n", *f.Lot)
		return true, nil
	case *f.Status:
		statuses, err := c.Fixtures(ctx)
		if err != nil {
			return true, fmt.Errorf("error reading fixtures: %w", err)
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PORT\tSERIAL\tMODEL\tLOT\tRESULT\tESN\tCYCLES")
		for _, st := range statuses {
			_, _ = fmt.Fprintf(tw, "%s\t%08X\t%s\t%s\t%s\t%s\t%d\n",
				st.Port, st.Serial, st.ModelLabel, st.LotCode,
				strings.TrimSpace(st.Result+" "+st.ResultName), st.ESN, st.Cycles)
		}
		if err := tw.Flush(); err != nil {
			return true, fmt.Errorf("failed to write table: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Setup prepares directories, logging, config and error reporting.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	err := helpers.EnsureDirectories(helpers.ConfigDir(), helpers.DataDir(), helpers.StateDir())
	if err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	err = helpers.InitLogging(helpers.StateDir(), writers)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// opt-in
	if err := telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		DSN:        cfg.SentryDSN(),
		StationID:  cfg.StationID(),
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

