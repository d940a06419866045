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
	"fmt"
	"strings"

	"github.com/fixturelink/fixturelink-core/pkg/fixtures"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
)

const (
	cmdInfoMode = "SetMode Info"
	cmdCarMode  = "SetMode Car"

	InsertPrompt = "Insert car to begin.\r\n\r\n" +
		"WARNING: The car's firmware will be downgraded to 252x!"
	TestingText = "Testing..."
)

// Interaction is the debug page selected by the operator.
type Interaction int

const (
	InteractionInfo Interaction = iota
	InteractionColor
	InteractionFirmware
)

// ParseInteraction maps an API interaction name to an Interaction.
func ParseInteraction(name string) (Interaction, error) {
	switch name {
	case "info":
		return InteractionInfo, nil
	case "color":
		return InteractionColor, nil
	case "firmware":
		return InteractionFirmware, nil
	default:
		return 0, fmt.Errorf("unknown interaction: %q", name)
	}
}

type DebugState int

const (
	DebugStartup DebugState = iota
	DebugInfoEnter
	DebugInfoWait
	DebugColorEnter
	DebugColorMode
	DebugChangeFirmware
)

func (s DebugState) String() string {
	switch s {
	case DebugStartup:
		return "startup"
	case DebugInfoEnter:
		return "info_enter"
	case DebugInfoWait:
		return "info_wait"
	case DebugColorEnter:
		return "color_enter"
	case DebugColorMode:
		return "color_mode"
	case DebugChangeFirmware:
		return "change_firmware"
	default:
		return "unknown"
	}
}

// DebugMachine drives a single fixture on a debug bench through the info,
// color and firmware pages. A failed step is retried on the next tick.
type DebugMachine struct {
	details     string
	state       DebugState
	interaction Interaction
	color       int
	mu          syncutil.Mutex
}

func NewDebugMachine() *DebugMachine {
	return &DebugMachine{}
}

// SetInteraction selects the active page. A change restarts the machine.
// A positive color selects the body color used in color mode.
func (d *DebugMachine) SetInteraction(i Interaction, color int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i != d.interaction {
		d.interaction = i
		d.state = DebugStartup
		d.details = ""
	}
	if color > 0 {
		d.color = color
	}
}

func (d *DebugMachine) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DebugStartup
	d.details = ""
}

func (d *DebugMachine) State() DebugState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DebugMachine) Interaction() Interaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interaction
}

// Details is the info page text composed on the last InfoWait step.
func (d *DebugMachine) Details() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.details
}

// Step advances the machine by one state for fix. States that talk to the
// fixture take its transport lease from arb first.
func (d *DebugMachine) Step(fix *fixtures.Fixture, arb *Arbiter) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case DebugStartup:
		if !arb.Acquire(fix.Port, OwnerDebug) {
			return nil
		}
		if err := fix.Framer.Drain(); err != nil {
			return fmt.Errorf("failed to drain debug fixture: %w", err)
		}
		switch d.interaction {
		case InteractionColor:
			d.state = DebugColorEnter
		case InteractionFirmware:
			d.state = DebugChangeFirmware
		default:
			d.state = DebugInfoEnter
		}
	case DebugInfoEnter:
		if !arb.Acquire(fix.Port, OwnerDebug) {
			return nil
		}
		if _, err := fix.Framer.Exchange(cmdInfoMode, transport.StatusOK); err != nil {
			return fmt.Errorf("failed to enter info mode: %w", err)
		}
		fix.Result = ""
		fix.LastRun = InsertPrompt
		d.details = fix.LastRun
		d.state = DebugInfoWait
	case DebugInfoWait:
		d.details = ComposeDetails(fix)
	case DebugColorEnter:
		if !arb.Acquire(fix.Port, OwnerDebug) {
			return nil
		}
		if _, err := fix.Framer.Exchange(cmdCarMode, transport.StatusOK); err != nil {
			return fmt.Errorf("failed to enter car mode: %w", err)
		}
		d.color = fix.Model
		d.state = DebugColorMode
	case DebugColorMode:
		if d.color > 0 {
			fix.Model = d.color
		}
	case DebugChangeFirmware:
	}
	return nil
}

// ComposeDetails renders the info page for fix: a testing indicator or
// the last result, followed by the unit identity from the version record
// and the last run text. While a test is underway LastRun is replaced
// with the testing indicator.
func ComposeDetails(fix *fixtures.Fixture) string {
	var b strings.Builder

	switch {
	case strings.Contains(fix.CurrentRun, runlog.TestMarker):
		fix.LastRun = TestingText
	case fix.Result != "":
		b.WriteString("TEST RESULT: " + fix.Result + " " + runlog.ResultName(fix.Result))
		b.WriteString("\r\n")
	}

	if v, ok := runlog.ParseVersion(fix.LastRun); ok {
		b.WriteString("\r\nSerial number: " + v.Serial)
		if name := fixtures.ModelName(v.Model); name != "" {
			fmt.Fprintf(&b, "\r\nModel: %d / %s", v.Model, name)
		} else {
			b.WriteString("\r\nModel: " + v.ModelHex + " / UNKNOWN")
		}
		b.WriteString("\r\nFirmware version: " + v.Firmware)
		switch {
		case v.HasBootloaderInfo():
			b.WriteString("\r\nElectronics: " + v.Electronics())
			b.WriteString("\r\nBootloader: " + v.Bootloader())
		case v.HardwareRevision() != "":
			b.WriteString("\r\nHardware: " + v.HardwareRevision())
			b.WriteString("\r\n(Bootloader version unavailable, use FW 2032)")
		}
	}

	b.WriteString(fix.LastRun)
	return b.String()
}
