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
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/firmware"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/runlog"
	"github.com/fixturelink/fixturelink-core/pkg/fixtures/transport"
	"github.com/fixturelink/fixturelink-core/pkg/flash"
	testhelpers "github.com/fixturelink/fixturelink-core/pkg/testing/helpers"
	"github.com/fixturelink/fixturelink-core/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

const firmwarePath = "/fw/fixture.safe"

// 2026-01-04 falls in week 02.
var benchTime = time.Date(2026, time.January, 4, 10, 0, 0, 0, time.UTC)

type bench struct {
	fs     afero.Fs
	r      *Reconciler
	sims   map[string]*mocks.FixtureSim
	notifs chan models.Notification
	listFn func() ([]string, error)
	ports  []string
}

func testValues() config.Values {
	return config.Values{
		Fixtures: config.Fixtures{
			Lot:          "111",
			ReadTimeout:  "50ms",
			VendorMarker: "ANKI",
		},
	}
}

func newBench(t *testing.T, vals config.Values, confirmer Confirmer) *bench {
	t.Helper()

	b := &bench{
		fs:     afero.NewMemMapFs(),
		sims:   map[string]*mocks.FixtureSim{},
		notifs: make(chan models.Notification, 32),
	}
	cfg := config.NewInstanceForTesting(vals)
	logs, err := runlog.NewLogDir(b.fs, "/logs")
	require.NoError(t, err)

	factory := func(path string, _ *serial.Mode) (transport.SerialPort, error) {
		sim, ok := b.sims[path]
		if !ok {
			return nil, errors.New("no such port")
		}
		return sim, nil
	}
	clock := clockwork.NewFakeClockAt(benchTime)

	b.r = NewReconciler(ReconcilerDeps{
		Config:     cfg,
		Clock:      clock,
		Discoverer: fixtures.NewDiscoverer(cfg, logs, factory),
		Firmware:   firmware.NewCache(b.fs, []string{firmwarePath}),
		Parser:     runlog.NewParser(clock, "bench", "tester"),
		Flasher: flash.New(
			flash.WithSettleDelay(0),
			flash.WithFlashTimeout(200*time.Millisecond),
		),
		Confirmer: confirmer,
		ListPorts: func() ([]string, error) {
			if b.listFn != nil {
				return b.listFn()
			}
			return b.ports, nil
		},
		Notifications: b.notifs,
	})
	return b
}

func (b *bench) attach(port string, sim *mocks.FixtureSim) {
	b.sims[port] = sim
	b.ports = append(b.ports, port)
}

func (b *bench) drain() []models.Notification {
	var notifs []models.Notification
	for {
		select {
		case n := <-b.notifs:
			notifs = append(notifs, n)
		default:
			return notifs
		}
	}
}

func (b *bench) methods() []string {
	var methods []string
	for _, n := range b.drain() {
		methods = append(methods, n.Method)
	}
	return methods
}

func writeImage(t *testing.T, fs afero.Fs, size int, guid uint32) []byte {
	t.Helper()
	data, err := testhelpers.WithFs(fs).WriteFirmwareImage(firmwarePath, size, guid)
	require.NoError(t, err)
	return data
}

func TestTick_DiscoversAndProgramsLot(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	b.attach("COM1", sim)

	require.NoError(t, b.r.Tick(context.Background()))

	assert.Equal(t, []string{"GetSerial", "SetLotCode 11160208"}, sim.Commands())
	assert.Equal(t, []string{models.NotificationFixtureConnected}, b.methods())

	statuses := b.r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "COM1", statuses[0].Port)
	assert.Equal(t, uint32(42), statuses[0].Serial)
	assert.Equal(t, 8, statuses[0].Model, "model is clamped to the station minimum")
	assert.Equal(t, "11160208", statuses[0].LotCode)
	assert.Equal(t, "602", b.r.LotPart2())

	require.NoError(t, b.r.Tick(context.Background()))
	assert.Len(t, sim.Commands(), 2, "lot code is only sent when it changes")
}

func TestTick_SealsRun(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	b.attach("COM1", sim)
	require.NoError(t, b.r.Tick(context.Background()))
	b.methods()

	sim.Emit("[TEST:START]\r\nversion,00000A1B,00001203,0000000A,00000008,1234abcd\r\n" +
		"[RESULT:000]\r\n[TEST:END]\r\n")
	require.NoError(t, b.r.Tick(context.Background()))

	var sealed *models.RunSealedParams
	for _, n := range b.drain() {
		if n.Method == models.NotificationRunSealed {
			var p models.RunSealedParams
			require.NoError(t, json.Unmarshal(n.Params, &p))
			sealed = &p
		}
	}
	require.NotNil(t, sealed)
	assert.Equal(t, "000", sealed.Result)
	assert.Equal(t, "PASS", sealed.ResultName)
	assert.Equal(t, uint32(42), sealed.Serial)
	assert.Equal(t, 1, sealed.Cycle)
	assert.Equal(t, "11160208", sealed.LotCode)
	assert.True(t, benchTime.Equal(sealed.SealedAt))

	statuses := b.r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses[0].Cycles)
	assert.Equal(t, "PASS", statuses[0].ResultName)

	logged, err := afero.ReadFile(b.fs, "/logs/"+runlog.FileName(benchTime, 42))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "logfix,42,bench,tester\r\n[TEST:END]")
}

func TestTick_UpgradesMismatchedFirmware(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), AutoConfirmer{Accept: true})
	image := writeImage(t, b.fs, 2100, 0xA1B2)
	sim := mocks.NewFixtureSim(42, 1, len(image))
	b.attach("COM1", sim)

	require.NoError(t, b.r.Tick(context.Background()))

	assert.True(t, sim.Flashed())
	assert.Equal(t, image, sim.FlashData())
	assert.True(t, sim.IsClosed(), "flashed fixtures are dropped until they reboot")
	assert.Equal(t, 0, b.r.Registry.Len())
	assert.Empty(t, b.r.Statuses())
	assert.Equal(t, []string{
		models.NotificationFixtureConnected,
		models.NotificationUpgradeConfirming,
		models.NotificationFixtureRemoved,
		models.NotificationFixtureFlashed,
	}, b.methods())
}

func TestTick_FailedFlashStillRemovesFixture(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), AutoConfirmer{Accept: true})
	image := writeImage(t, b.fs, 2100, 0xA1B2)
	sim := mocks.NewFixtureSim(42, 1, len(image))
	sim.FlashAck = func(string, int) byte { return '0' }
	b.attach("COM1", sim)

	require.NoError(t, b.r.Tick(context.Background()))

	assert.False(t, sim.Flashed())
	assert.True(t, sim.IsClosed())
	assert.Equal(t, 0, b.r.Registry.Len())

	var flashed *models.FixtureFlashedParams
	for _, n := range b.drain() {
		if n.Method != models.NotificationFixtureFlashed {
			continue
		}
		var p models.FixtureFlashedParams
		require.NoError(t, json.Unmarshal(n.Params, &p))
		flashed = &p
	}
	require.NotNil(t, flashed, "flash outcome is always reported")
	assert.False(t, flashed.Success)
	assert.NotEmpty(t, flashed.Error)
	assert.Equal(t, uint32(42), flashed.Serial)
}

func TestTick_MatchingFirmwareIsNotFlashed(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), AutoConfirmer{Accept: false})
	writeImage(t, b.fs, 2100, 0xA1B2)
	sim := mocks.NewFixtureSim(42, 0xA1B2, 0)
	b.attach("COM1", sim)

	require.NoError(t, b.r.Tick(context.Background()))
	assert.False(t, sim.Flashed())
	assert.Equal(t, 1, b.r.Registry.Len())
	assert.Contains(t, sim.Commands(), "SetLotCode 11160208")
}

func TestTick_UpgradeDeclined(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), AutoConfirmer{Accept: false})
	writeImage(t, b.fs, 2100, 0xA1B2)
	sim := mocks.NewFixtureSim(42, 1, 2100)
	b.attach("COM1", sim)

	err := b.r.Tick(context.Background())
	require.ErrorIs(t, err, ErrUpgradeDeclined)
	assert.False(t, sim.Flashed())
	assert.Equal(t, 1, b.r.Registry.Len())
}

func TestTick_ConfirmsUpgradeOnce(t *testing.T) {
	t.Parallel()

	asked := 0
	confirmer := ConfirmerFunc(func(_ context.Context, current, target uint32) (bool, error) {
		asked++
		assert.Equal(t, uint32(1), current)
		assert.Equal(t, uint32(0xA1B2), target)
		return true, nil
	})
	b := newBench(t, testValues(), confirmer)
	image := writeImage(t, b.fs, 2100, 0xA1B2)
	simA := mocks.NewFixtureSim(1, 1, len(image))
	simB := mocks.NewFixtureSim(2, 1, len(image))
	b.attach("COM1", simA)
	b.attach("COM2", simB)

	require.NoError(t, b.r.Tick(context.Background()))
	assert.Equal(t, 1, asked)
	assert.True(t, simA.Flashed())
	assert.True(t, simB.Flashed())
}

func TestTick_DebugSkipsConfirmation(t *testing.T) {
	t.Parallel()

	vals := testValues()
	vals.Fixtures.Debug = true
	b := newBench(t, vals, AutoConfirmer{Accept: false})
	image := writeImage(t, b.fs, 2100, 0xA1B2)
	simA := mocks.NewFixtureSim(1, 1, len(image))
	simB := mocks.NewFixtureSim(2, 1, len(image))
	b.attach("COM1", simA)
	b.attach("COM2", simB)

	require.NoError(t, b.r.Tick(context.Background()))
	assert.True(t, simA.Flashed())
	assert.True(t, simB.Flashed())
}

func TestTick_Busy(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	b.r.busy.Store(true)
	require.ErrorIs(t, b.r.Tick(context.Background()), ErrTickBusy)
}

func TestTick_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	b.listFn = func() ([]string, error) {
		panic("usb stack exploded")
	}

	err := b.r.Tick(context.Background())
	require.ErrorIs(t, err, ErrTickPanic)

	b.listFn = nil
	require.NoError(t, b.r.Tick(context.Background()), "busy flag is cleared after a panic")
}

func TestTick_FixturePanicDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	confirmer := ConfirmerFunc(func(context.Context, uint32, uint32) (bool, error) {
		panic("prompt crashed")
	})
	b := newBench(t, testValues(), confirmer)
	writeImage(t, b.fs, 2100, 0xA1B2)
	stale := mocks.NewFixtureSim(41, 1, 2100)
	current := mocks.NewFixtureSim(42, 0xA1B2, 0)
	b.attach("COM1", stale)
	b.attach("COM2", current)

	require.NoError(t, b.r.Tick(context.Background()))

	assert.False(t, stale.Flashed())
	assert.Contains(t, current.Commands(), "SetLotCode 11160208")
	assert.Equal(t, 2, b.r.Registry.Len())
}

func TestTick_PrunesRemovedPorts(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	b.attach("COM1", sim)
	require.NoError(t, b.r.Tick(context.Background()))
	b.methods()

	b.ports = nil
	require.NoError(t, b.r.Tick(context.Background()))

	assert.True(t, sim.IsClosed())
	assert.Equal(t, 0, b.r.Registry.Len())
	assert.Empty(t, b.r.Statuses())
	assert.Equal(t, []string{models.NotificationFixtureRemoved}, b.methods())
}

func TestTick_ListPortsErrorKeepsFixtures(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	b.attach("COM1", sim)
	require.NoError(t, b.r.Tick(context.Background()))

	b.listFn = func() ([]string, error) {
		return nil, errors.New("enumeration failed")
	}
	require.NoError(t, b.r.Tick(context.Background()))
	assert.Equal(t, 1, b.r.Registry.Len())
	assert.False(t, sim.IsClosed())
}

func TestTick_SendsQueuedCommandOnce(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	sim.Responses["Ping"] = "pong\r\n"
	b.attach("COM1", sim)
	require.NoError(t, b.r.Tick(context.Background()))

	b.r.QueueCommand("Ping")
	require.NoError(t, b.r.Tick(context.Background()))
	require.NoError(t, b.r.Tick(context.Background()))

	assert.Equal(t, []string{"GetSerial", "SetLotCode 11160208", "Ping"}, sim.Commands())
}

func TestTick_DebugInfoPage(t *testing.T) {
	t.Parallel()

	vals := testValues()
	vals.Fixtures.Debug = true
	b := newBench(t, vals, nil)
	sim := mocks.NewFixtureSim(42, 1, 0)
	b.attach("COM1", sim)

	// startup, info enter, info wait
	for range 3 {
		require.NoError(t, b.r.Tick(context.Background()))
	}

	assert.Equal(t, []string{"GetSerial", "SetMode Info", "SetLotCode 99960201"}, sim.Commands())
	statuses := b.r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "info_wait", statuses[0].DebugState)
	assert.Equal(t, InsertPrompt, statuses[0].Details)
	assert.Equal(t, 1, statuses[0].Model, "debug stations do not clamp the model")
}

func TestTick_DetectsRemovable(t *testing.T) {
	t.Parallel()

	b := newBench(t, testValues(), nil)
	b.r.Removable = detectorFunc(func(context.Context) (string, bool, error) {
		return "/media/usb0", true, nil
	})

	_, ok := b.r.RemovableMount()
	assert.False(t, ok)
	require.NoError(t, b.r.Tick(context.Background()))
	mount, ok := b.r.RemovableMount()
	assert.True(t, ok)
	assert.Equal(t, "/media/usb0", mount)
}

type detectorFunc func(ctx context.Context) (string, bool, error)

func (f detectorFunc) Detect(ctx context.Context) (string, bool, error) {
	return f(ctx)
}
