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

package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// LogDir is the directory holding the daily fixture logs. Its lock is held
// by every append and by exports, so an export never sees a half-written
// chunk.
type LogDir struct {
	fs  afero.Fs
	dir string
	mu  syncutil.Mutex
}

func NewLogDir(fs afero.Fs, dir string) (*LogDir, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return &LogDir{fs: fs, dir: dir}, nil
}

func (d *LogDir) Fs() afero.Fs {
	return d.fs
}

func (d *LogDir) Path() string {
	return d.dir
}

// WithLock runs fn with appends blocked.
func (d *LogDir) WithLock(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

// Open returns the log association for a fixture serial.
func (d *LogDir) Open(serial uint32) *DailyLog {
	return &DailyLog{dir: d, serial: serial}
}

// DailyLog appends one fixture's output to a file named after the day and
// the fixture serial.
type DailyLog struct {
	dir    *LogDir
	serial uint32
}

// FileName returns the log file name for the given day.
func FileName(day time.Time, serial uint32) string {
	return fmt.Sprintf("%s-fix%d.log", day.Format("060102"), serial)
}

func (l *DailyLog) Path(now time.Time) string {
	return filepath.Join(l.dir.dir, FileName(now, l.serial))
}

// Append writes text to the file for now's day.
func (l *DailyLog) Append(now time.Time, text string) error {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()

	path := l.Path(now)
	f, err := l.dir.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close log file")
		}
	}()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}
