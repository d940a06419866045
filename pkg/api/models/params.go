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

package models

import "time"

const (
	InteractionInfo     = "info"
	InteractionColor    = "color"
	InteractionFirmware = "firmware"
)

type CommandParams struct {
	Command string `json:"command" validate:"required,max=256,fixturecmd"`
}

type InteractionParams struct {
	Color       *int   `json:"color,omitempty" validate:"omitempty,min=1,max=16"`
	Interaction string `json:"interaction" validate:"required,oneof=info color firmware"`
}

type LotParams struct {
	Lot string `json:"lot" validate:"required,lot"`
}

type RunSealedParams struct {
	SealedAt   time.Time `json:"sealedAt"`
	Port       string    `json:"port"`
	Result     string    `json:"result"`
	ResultName string    `json:"resultName"`
	ESN        string    `json:"esn"`
	LotCode    string    `json:"lotCode"`
	Station    string    `json:"station,omitempty"`
	Text       string    `json:"text,omitempty"`
	Serial     uint32    `json:"serial"`
	Cycle      int       `json:"cycle"`
	Model      int       `json:"model"`
}

type FixtureParams struct {
	Port   string `json:"port"`
	Type   string `json:"type,omitempty"`
	GUID   string `json:"guid"`
	Serial uint32 `json:"serial"`
}

type FixtureFlashedParams struct {
	Port       string `json:"port"`
	FromGUID   string `json:"fromGuid"`
	ToGUID     string `json:"toGuid"`
	Error      string `json:"error,omitempty"`
	Serial     uint32 `json:"serial"`
	BytesSent  int    `json:"bytesSent"`
	DurationMs int64  `json:"durationMs"`
	Success    bool   `json:"success"`
}

type UpgradeConfirmingParams struct {
	FromGUID string `json:"fromGuid"`
	ToGUID   string `json:"toGuid"`
}
