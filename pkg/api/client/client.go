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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/rs/zerolog/log"
)

var ErrRequestTimeout = errors.New("request timed out")

// Client talks to the API of a running station.
type Client struct {
	http    *http.Client
	baseURL string
}

// LocalClient returns a client for the station running on this machine.
func LocalClient(cfg *config.Instance) *Client {
	u := url.URL{
		Scheme: "http",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
	}
	return NewClient(u.String(), &http.Client{Timeout: config.ApiRequestTimeout})
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrRequestTimeout
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing response body")
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("api returned %s", resp.Status)
		}
		return fmt.Errorf("api returned %s: %s", resp.Status, apiErr.Error)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Fixtures(ctx context.Context) ([]models.FixtureStatus, error) {
	var statuses []models.FixtureStatus
	if err := c.do(ctx, http.MethodGet, "/api/fixtures", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// SendCommand queues a raw command for every connected fixture.
func (c *Client) SendCommand(ctx context.Context, cmd string) error {
	return c.do(ctx, http.MethodPost, "/api/command", models.CommandParams{Command: cmd}, nil)
}

func (c *Client) SetLot(ctx context.Context, lot string) error {
	return c.do(ctx, http.MethodPost, "/api/lot", models.LotParams{Lot: lot}, nil)
}

func (c *Client) StartExport(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/export", nil, nil)
}

func (c *Client) ExportStatus(ctx context.Context) (models.ExportStatus, error) {
	var status models.ExportStatus
	err := c.do(ctx, http.MethodGet, "/api/export", nil, &status)
	return status, err
}
