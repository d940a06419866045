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
	ExportStateIdle    = "idle"
	ExportStateRunning = "running"
	ExportStateDone    = "done"
	ExportStateFailed  = "failed"
)

// FixtureStatus is the per-fixture snapshot published after every tick.
type FixtureStatus struct {
	Port          string `json:"port" csv:"port"`
	Type          string `json:"type" csv:"type"`
	GUID          string `json:"guid" csv:"guid"`
	ModelLabel    string `json:"modelLabel" csv:"model_label"`
	ModelName     string `json:"modelName" csv:"model_name"`
	ModelColor    string `json:"modelColor" csv:"-"`
	LotCode       string `json:"lotCode" csv:"lot_code"`
	Result        string `json:"result" csv:"result"`
	ResultName    string `json:"resultName" csv:"result_name"`
	ESN           string `json:"esn" csv:"esn"`
	DebugState    string `json:"debugState,omitempty" csv:"debug_state"`
	Details       string `json:"details,omitempty" csv:"-"`
	LastRun       string `json:"-" csv:"-"`
	Serial        uint32 `json:"serial" csv:"serial"`
	Model         int    `json:"model" csv:"model"`
	Cycles        int    `json:"cycles" csv:"cycles"`
	LastRunLength int    `json:"lastRunLength" csv:"last_run_length"`
	Upgrading     bool   `json:"upgrading" csv:"upgrading"`
}

type ExportStatus struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	State       string     `json:"state"`
	Destination string     `json:"destination,omitempty"`
	Name        string     `json:"name,omitempty"`
	Error       string     `json:"error,omitempty"`
	Copied      int64      `json:"copied"`
	Total       int64      `json:"total"`
	Files       int        `json:"files"`
	Available   bool       `json:"available"`
}

type FirmwareResponse struct {
	ModTime *time.Time `json:"modTime,omitempty"`
	Path    string     `json:"path,omitempty"`
	GUID    string     `json:"guid,omitempty"`
	Size    int        `json:"size"`
	Loaded  bool       `json:"loaded"`
}

type RunResponse struct {
	SealedAt   time.Time `json:"sealedAt"`
	Port       string    `json:"port"`
	Result     string    `json:"result"`
	ResultName string    `json:"resultName"`
	ESN        string    `json:"esn"`
	LotCode    string    `json:"lotCode"`
	ID         int64     `json:"id"`
	Serial     uint32    `json:"serial"`
	Cycle      int       `json:"cycle"`
	Model      int       `json:"model"`
}

type FixtureLogResponse struct {
	Port    string `json:"port"`
	LastRun string `json:"lastRun"`
	Details string `json:"details,omitempty"`
	Serial  uint32 `json:"serial"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
