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

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
)

func formatGUID(guid uint32) string {
	return fmt.Sprintf("%08X", guid)
}

func fixtureParams(fix *fixtures.Fixture) models.FixtureParams {
	return models.FixtureParams{
		Port:   fix.Port,
		Type:   fix.Type,
		GUID:   formatGUID(fix.GUID),
		Serial: fix.Serial,
	}
}

func fixtureStatus(fix *fixtures.Fixture) models.FixtureStatus {
	return models.FixtureStatus{
		Port:          fix.Port,
		Type:          fix.Type,
		GUID:          formatGUID(fix.GUID),
		ModelLabel:    fixtures.ModelLabel(fix.Model),
		ModelName:     fixtures.ModelName(fix.Model),
		ModelColor:    fixtures.ModelColor(fix.Model),
		LotCode:       fix.LotCode,
		Result:        fix.Result,
		ResultName:    runlog.ResultName(fix.Result),
		ESN:           fix.ESN,
		LastRun:       fix.LastRun,
		Serial:        fix.Serial,
		Model:         fix.Model,
		Cycles:        fix.Cycles,
		LastRunLength: len(fix.LastRun),
		Upgrading:     fix.Upgrading,
	}
}
