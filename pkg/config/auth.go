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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// CredentialEntry holds login details for an external endpoint such as an
// MQTT broker.
type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// schemeAliases maps protocol variants to their canonical form.
var schemeAliases = map[string]string{
	"tcp": "mqtt",
	"ssl": "mqtts",
	"tls": "mqtts",
	"ws":  "http",
	"wss": "https",
}

type authCredsFormat struct {
	Creds map[string]CredentialEntry `toml:"creds"`
}

// LoadAuthFromData parses auth.toml data. Entries may sit at the root
// (["mqtt://broker:1883"]) or under a creds table ([creds."broker:1883"]);
// both are merged.
func LoadAuthFromData(data []byte) map[string]CredentialEntry {
	result := make(map[string]CredentialEntry)

	var root map[string]CredentialEntry
	if err := toml.Unmarshal(data, &root); err == nil {
		for k, v := range root {
			if k != "creds" {
				result[k] = v
			}
		}
	}

	var creds authCredsFormat
	if err := toml.Unmarshal(data, &creds); err == nil {
		maps.Copy(result, creds.Creds)
	}

	return result
}

// LoadAuthFile reads credentials from path. A missing file is not an error.
func LoadAuthFile(path string) (map[string]CredentialEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the config dir
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]CredentialEntry{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}
	return LoadAuthFromData(data), nil
}

func normalizeScheme(scheme string) string {
	lower := strings.ToLower(scheme)
	if canonical, ok := schemeAliases[lower]; ok {
		return canonical
	}
	return lower
}

func isSchemelessKey(key string) bool {
	return !strings.Contains(key, "://")
}

// LookupAuth finds credentials for a URL. Matches are tried from most to
// least specific:
//  1. exact scheme, host and path prefix
//  2. canonical scheme (tcp://x matches an mqtt://x entry)
//  3. schemeless host:port
func LookupAuth(creds map[string]CredentialEntry, reqURL string) *CredentialEntry {
	if len(creds) == 0 {
		return nil
	}

	u, err := url.Parse(reqURL)
	if err != nil || u.Host == "" {
		// bare host:port brokers
		u, err = url.Parse("tcp://" + reqURL)
		if err != nil {
			log.Warn().Msgf("invalid auth request url: %s", reqURL)
			return nil
		}
	}

	match := func(exact bool) *CredentialEntry {
		for k, v := range creds {
			if isSchemelessKey(k) {
				continue
			}
			defURL, err := url.Parse(k)
			if err != nil {
				log.Error().Msgf("invalid auth config url: %s", k)
				continue
			}
			schemeOK := strings.EqualFold(defURL.Scheme, u.Scheme)
			if !exact {
				schemeOK = normalizeScheme(defURL.Scheme) == normalizeScheme(u.Scheme)
			}
			if schemeOK &&
				strings.EqualFold(defURL.Host, u.Host) &&
				strings.HasPrefix(u.Path, defURL.Path) {
				return &v
			}
		}
		return nil
	}

	if c := match(true); c != nil {
		return c
	}
	if c := match(false); c != nil {
		return c
	}

	for k, v := range creds {
		if isSchemelessKey(k) && strings.EqualFold(k, u.Host) {
			return &v
		}
	}
	return nil
}

// Credentials returns stored credentials for the given endpoint, or nil.
func (c *Instance) Credentials(endpoint string) *CredentialEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return LookupAuth(c.auth, endpoint)
}

// SetCredentials replaces the in-memory credential table.
func (c *Instance) SetCredentials(creds map[string]CredentialEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = creds
}
