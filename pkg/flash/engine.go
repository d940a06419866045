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

package flash

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	HeaderLen     = 4
	BlockLen      = 2048 + 32
	FirstBlockLen = BlockLen - HeaderLen

	ackByte     = '1'
	exitCommand = "Exit"
)

// Transport is the serial access the engine needs. It is satisfied by
// *transport.Framer.
type Transport interface {
	Interrupt() (string, error)
	SendCommand(line string) error
	Drain() error
	Write(p []byte) error
	ReadByte() (byte, error)
	ReadTimeout() time.Duration
	SetReadTimeout(d time.Duration) error
}

// Result summarises a successful flash.
type Result struct {
	Duration  time.Duration
	BytesSent int
	Blocks    int
}

// BlockSizes returns the sizes of the blocks sent after the header for an
// image of the given length. The sizes always sum to length minus the
// header.
func BlockSizes(length int) []int {
	remaining := length - HeaderLen
	if remaining <= 0 {
		return nil
	}
	sizes := make([]int, 0, remaining/BlockLen+1)
	size := FirstBlockLen
	for remaining > 0 {
		n := min(size, remaining)
		sizes = append(sizes, n)
		remaining -= n
		size = BlockLen
	}
	return sizes
}

// Engine flashes images over a Transport.
type Engine struct {
	config Config
}

func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{config: cfg}
}

func (e *Engine) report(p Progress) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(p)
	}
}

// Flash streams image to the fixture behind t. The transport's read
// timeout is widened for the duration and restored on every return.
// ctx is only consulted before the first byte goes out; once started a
// flash runs to completion or to a protocol failure.
func (e *Engine) Flash(ctx context.Context, t Transport, image []byte) (Result, error) {
	if len(image) < HeaderLen {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrImageTooShort, len(image))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("flash cancelled: %w", err)
	}

	start := e.config.Clock.Now()
	blocks := BlockSizes(len(image))
	progress := Progress{
		Phase:       PhasePreparing,
		TotalBlocks: len(blocks),
		TotalBytes:  len(image),
	}
	e.report(progress)

	if err := t.Drain(); err != nil {
		return Result{}, fmt.Errorf("failed to drain before interrupt: %w", err)
	}
	if _, err := t.Interrupt(); err != nil {
		return Result{}, fmt.Errorf("failed to reach prompt: %w", err)
	}
	if err := t.SendCommand(exitCommand); err != nil {
		return Result{}, fmt.Errorf("failed to enter loader: %w", err)
	}
	e.config.Clock.Sleep(e.config.SettleDelay)
	if err := t.Drain(); err != nil {
		return Result{}, fmt.Errorf("failed to drain before flash: %w", err)
	}

	oldTimeout := t.ReadTimeout()
	if err := t.SetReadTimeout(e.config.FlashTimeout); err != nil {
		return Result{}, fmt.Errorf("failed to widen timeout: %w", err)
	}
	defer func() {
		if err := t.SetReadTimeout(oldTimeout); err != nil {
			log.Warn().Err(err).Msg("failed to restore read timeout after flash")
		}
	}()

	progress.Phase = PhaseHeader
	for i := range HeaderLen {
		if err := t.Write(image[i : i+1]); err != nil {
			return Result{}, fmt.Errorf("failed to write header byte %d: %w", i, err)
		}
		if err := expectAck(t, PhaseHeader, i); err != nil {
			return Result{}, err
		}
		progress.BytesSent++
		e.report(progress)
	}

	progress.Phase = PhaseBlock
	offset := HeaderLen
	for i, size := range blocks {
		if err := t.Write(image[offset : offset+size]); err != nil {
			return Result{}, fmt.Errorf("failed to write block %d: %w", i, err)
		}
		if err := expectAck(t, PhaseBlock, i); err != nil {
			return Result{}, err
		}
		offset += size
		progress.Block = i + 1
		progress.BytesSent = offset
		e.report(progress)
		log.Debug().Int("block", i).Int("offset", offset).Msg("flash block acked")
	}

	progress.Phase = PhaseComplete
	e.report(progress)

	return Result{
		BytesSent: offset,
		Blocks:    len(blocks),
		Duration:  e.config.Clock.Since(start),
	}, nil
}

func expectAck(t Transport, phase string, idx int) error {
	b, err := t.ReadByte()
	if err != nil {
		return &AckError{Phase: phase, Index: idx, Err: err}
	}
	if b != ackByte {
		return &AckError{Phase: phase, Index: idx, Got: b}
	}
	return nil
}
