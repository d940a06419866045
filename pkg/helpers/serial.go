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

package helpers

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type serialDevice struct {
	Vid string
	Pid string
}

// Bench debug probes expose CDC ports that never answer the fixture
// handshake.
var ignoreDevices = []serialDevice{
	// SEGGER J-Link
	{Vid: "1366", Pid: "0105"},
	{Vid: "1366", Pid: "1015"},
	{Vid: "1366", Pid: "1024"},
	// Black Magic Probe
	{Vid: "1d50", Pid: "6018"},
}

var (
	detailedPortsList = enumerator.GetDetailedPortsList
	plainPortsList    = serial.GetPortsList
)

func ignoreSerialDevice(vid, pid string) bool {
	if vid == "" || pid == "" {
		return false
	}

	vid = strings.ToLower(vid)
	pid = strings.ToLower(pid)

	for _, v := range ignoreDevices {
		if vid == v.Vid && pid == v.Pid {
			return true
		}
	}

	return false
}

func isCandidatePort(goos, name string) bool {
	switch goos {
	case "linux":
		return strings.HasPrefix(name, "/dev/ttyUSB") ||
			strings.HasPrefix(name, "/dev/ttyACM")
	case "darwin":
		return strings.HasPrefix(name, "/dev/tty.usbserial") ||
			strings.HasPrefix(name, "/dev/tty.usbmodem")
	case "windows":
		return strings.HasPrefix(name, "COM")
	default:
		return name != ""
	}
}

// GetSerialDeviceList returns the serial ports that may have a fixture
// attached, sorted by name.
func GetSerialDeviceList() ([]string, error) {
	var devices []string

	details, err := detailedPortsList()
	if err != nil {
		log.Debug().Err(err).Msg("detailed port enumeration failed, falling back")

		ports, err := plainPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list on %s: %w", runtime.GOOS, err)
		}

		for _, p := range ports {
			if isCandidatePort(runtime.GOOS, p) {
				devices = append(devices, p)
			}
		}
		sort.Strings(devices)
		return devices, nil
	}

	for _, d := range details {
		if d == nil || !isCandidatePort(runtime.GOOS, d.Name) {
			continue
		}
		if d.IsUSB && ignoreSerialDevice(d.VID, d.PID) {
			log.Trace().Str("port", d.Name).Msg("ignoring known non-fixture device")
			continue
		}
		devices = append(devices, d.Name)
	}

	sort.Strings(devices)
	return devices, nil
}
