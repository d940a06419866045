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

// Package archive bundles the daily fixture logs into a single gzip
// container and ships it to removable media or object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	TempName  = "temp.gz"
	BackupDir = "backup"
	ChunkSize = 256 * 1024
)

var ErrNoLogs = errors.New("no logs since last copy")

// Progress reports the copy of the container to its destination.
type Progress struct {
	Copied int64
	Total  int64
}

// Report describes a completed export.
type Report struct {
	Name        string
	Destination string
	Files       []string
	Bytes       int64
}

// Archiver exports the log directory.
type Archiver struct {
	logs     *runlog.LogDir
	clock    clockwork.Clock
	progress func(Progress)
	machine  string
}

func NewArchiver(
	logs *runlog.LogDir,
	clock clockwork.Clock,
	machine string,
	progress func(Progress),
) *Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{
		logs:     logs,
		clock:    clock,
		machine:  machine,
		progress: progress,
	}
}

// ExportName is the container name for an export taken at now.
func (a *Archiver) ExportName(now time.Time) string {
	return fmt.Sprintf("%s.%s.log.gz", now.Format("060102.150405"), a.machine)
}

// Export packs every log file into a container, copies it to dest and
// moves the logs into the backup directory. Log appends are blocked for
// the duration. On failure the logs and the temporary container are left
// where they are.
func (a *Archiver) Export(ctx context.Context, dest Destination) (Report, error) {
	var report Report
	err := a.logs.WithLock(func() error {
		var err error
		report, err = a.export(ctx, dest)
		return err
	})
	return report, err
}

func (a *Archiver) export(ctx context.Context, dest Destination) (Report, error) {
	fs := a.logs.Fs()
	dir := a.logs.Path()

	files, err := a.logFiles()
	if err != nil {
		return Report{}, err
	}
	if len(files) == 0 {
		return Report{}, ErrNoLogs
	}

	now := a.clock.Now()
	name := a.ExportName(now)
	tempPath := filepath.Join(dir, TempName)

	if err := fs.MkdirAll(filepath.Join(dir, BackupDir), 0o750); err != nil {
		return Report{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := a.pack(fs, tempPath, files); err != nil {
		return Report{}, err
	}
	size, err := a.copyTo(ctx, fs, tempPath, dest, name)
	if err != nil {
		return Report{}, err
	}
	if err := fs.Rename(tempPath, filepath.Join(dir, name)); err != nil {
		return Report{}, fmt.Errorf("failed to rename container: %w", err)
	}

	stamp := now.Format("150405")
	for _, file := range files {
		moved := strings.ReplaceAll(file, "fix", stamp+"-fix")
		if err := fs.Rename(
			filepath.Join(dir, file),
			filepath.Join(dir, BackupDir, moved),
		); err != nil {
			return Report{}, fmt.Errorf("failed to back up %s: %w", file, err)
		}
	}

	log.Info().
		Str("name", name).
		Str("destination", dest.Name()).
		Int("files", len(files)).
		Int64("bytes", size).
		Msg("exported fixture logs")

	return Report{
		Name:        name,
		Destination: dest.Name(),
		Files:       files,
		Bytes:       size,
	}, nil
}

// logFiles returns the base names of the log files, sorted.
func (a *Archiver) logFiles() ([]string, error) {
	entries, err := afero.ReadDir(a.logs.Fs(), a.logs.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		files = append(files, e.Name())
	}
	slices.Sort(files)
	return files, nil
}

// HasLogs reports whether there is anything to export.
func (a *Archiver) HasLogs() bool {
	files, err := a.logFiles()
	return err == nil && len(files) > 0
}

func (a *Archiver) pack(fs afero.Fs, tempPath string, files []string) error {
	out, err := fs.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close container")
		}
	}()

	gz := gzip.NewWriter(out)
	for _, file := range files {
		header := fmt.Sprintf("[FILE:%s,PC:%s]", file, a.machine)
		if _, err := io.WriteString(gz, header); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", file, err)
		}
		if err := appendFile(fs, gz, filepath.Join(a.logs.Path(), file)); err != nil {
			return err
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish container: %w", err)
	}
	return nil
}

func appendFile(fs afero.Fs, w io.Writer, path string) error {
	in, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close log")
		}
	}()
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to pack %s: %w", path, err)
	}
	return nil
}

func (a *Archiver) copyTo(
	ctx context.Context,
	fs afero.Fs,
	tempPath string,
	dest Destination,
	name string,
) (int64, error) {
	in, err := fs.Open(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open container: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close container")
		}
	}()
	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat container: %w", err)
	}
	total := info.Size()

	out, err := dest.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, ChunkSize)
	var copied int64
	for copied < total {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return copied, fmt.Errorf("export cancelled: %w", err)
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				_ = out.Close()
				return copied, fmt.Errorf("failed to copy container: %w", err)
			}
			copied += int64(n)
			if a.progress != nil {
				a.progress(Progress{Copied: copied, Total: total})
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		} else if readErr != nil {
			_ = out.Close()
			return copied, fmt.Errorf("failed to read container: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return copied, fmt.Errorf("failed to finish copy: %w", err)
	}
	return copied, nil
}
