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

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "subscriber channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return models.Notification{}
	}
}

func TestBroker_Subscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))

	ch, id := b.Subscribe(10)
	assert.NotNil(t, ch)
	assert.Equal(t, 0, id)

	_, id2 := b.SubscribeMethods(5, models.NotificationRunSealed)
	assert.Equal(t, 1, id2)
	assert.Len(t, b.subscribers, 2)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))
	ch, id := b.Subscribe(10)

	b.Unsubscribe(id)
	assert.Empty(t, b.subscribers)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	b.Unsubscribe(id)
}

func TestBroker_BroadcastToMultipleSubscribers(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 10)
	b := NewBroker(context.Background(), source)
	b.Start()

	sub1, _ := b.Subscribe(10)
	sub2, _ := b.Subscribe(10)

	source <- models.Notification{
		Method: models.NotificationFixtureConnected,
		Params: []byte(`{"serial":7}`),
	}

	assert.Equal(t, models.NotificationFixtureConnected, receive(t, sub1).Method)
	assert.Equal(t, models.NotificationFixtureConnected, receive(t, sub2).Method)
}

func TestBroker_MethodFilter(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 10)
	b := NewBroker(context.Background(), source)
	b.Start()

	runs, _ := b.SubscribeMethods(10, models.NotificationRunSealed)
	all, _ := b.Subscribe(10)

	source <- models.Notification{Method: models.NotificationFixtureConnected}
	source <- models.Notification{Method: models.NotificationRunSealed}

	assert.Equal(t, models.NotificationFixtureConnected, receive(t, all).Method)
	assert.Equal(t, models.NotificationRunSealed, receive(t, all).Method)
	assert.Equal(t, models.NotificationRunSealed, receive(t, runs).Method)

	select {
	case n := <-runs:
		t.Fatalf("unexpected notification %q", n.Method)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroker_NonBlockingSendDropsWhenFull(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 100)
	b := NewBroker(context.Background(), source)
	b.Start()

	slow, _ := b.Subscribe(2)
	fast, _ := b.Subscribe(20)

	for range 10 {
		source <- models.Notification{Method: models.NotificationRunSealed}
	}

	for range 10 {
		receive(t, fast)
	}

	received := 0
	timeout := time.After(50 * time.Millisecond)
drain:
	for {
		select {
		case <-slow:
			received++
		case <-timeout:
			break drain
		}
	}
	assert.LessOrEqual(t, received, 2, "should have dropped excess notifications")
}

func TestBroker_ContextCancellationStopsBroker(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(ctx, make(chan models.Notification, 10))
	b.Start()
	sub, _ := b.Subscribe(10)

	cancel()

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	_, ok := <-sub
	assert.False(t, ok, "subscriber channel should be closed on context cancellation")
}

func TestBroker_SourceChannelClosureStopsBroker(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 10)
	b := NewBroker(context.Background(), source)
	b.Start()
	sub, _ := b.Subscribe(10)

	close(source)

	<-b.Done()
	_, ok := <-sub
	assert.False(t, ok, "subscriber channel should be closed when source closes")
}

func TestBroker_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 100)
	b := NewBroker(context.Background(), source)
	b.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, id := b.Subscribe(5)
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			source <- models.Notification{Method: models.NotificationRunSealed}
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
}

func TestBroker_SubscriberReceivesInOrder(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification, 100)
	b := NewBroker(context.Background(), source)
	b.Start()
	sub, _ := b.Subscribe(100)

	methods := []string{
		models.NotificationFixtureConnected,
		models.NotificationRunSealed,
		models.NotificationFixtureFlashed,
		models.NotificationFixtureRemoved,
	}
	for _, m := range methods {
		source <- models.Notification{Method: m}
	}

	for i, want := range methods {
		assert.Equal(t, want, receive(t, sub).Method, "notification %d out of order", i)
	}
}
