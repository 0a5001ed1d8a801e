package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRegistryTracksEvents(t *testing.T) {
	r := NewWatcherRegistry()

	id := r.Register("scheduler", "/etc/autopatrol")
	require.NotEmpty(t, id)

	list := r.List()
	require.Len(t, list, 1)
	require.Equal(t, WatcherStatusRunning, list[0].Status)

	r.MarkEvent(id, nil)
	list = r.List()
	require.False(t, list[0].LastEvent.IsZero())
	require.Equal(t, 1, list[0].Events)

	r.MarkEvent(id, errors.New("overflow"))
	list = r.List()
	require.Equal(t, WatcherStatusError, list[0].Status)
	require.Contains(t, list[0].LastError, "overflow")

	r.MarkStopped(id, context.Canceled)
	list = r.List()
	require.Equal(t, WatcherStatusStopped, list[0].Status)
	require.Contains(t, list[0].LastError, "overflow")

	r.MarkEvent("unknown", nil)
	require.Len(t, r.List(), 1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFileWatcherDebounce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}

	w, err := NewFileWatcher(t.TempDir(), []string{"timer.json"}, logger.NewTestLogger(), withNow(clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.True(t, w.accept("timer.json"))
	clock.Advance(300 * time.Millisecond)
	assert.False(t, w.accept("timer.json"))
	assert.True(t, w.accept("copy.json"))
	clock.Advance(time.Second)
	assert.True(t, w.accept("timer.json"))
}

func TestFileWatcherDeliversSettledChange(t *testing.T) {
	dir := t.TempDir()
	registry := NewWatcherRegistry()

	w, err := NewFileWatcher(dir, []string{"timer.json"}, logger.NewTestLogger(),
		WithSettle(20*time.Millisecond), WithRegistry(registry))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timer.json"), []byte("[]"), 0o600))

	select {
	case name := <-w.Events():
		assert.Equal(t, "timer.json", name)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}

	cancel()
	<-done

	list := registry.List()
	require.Len(t, list, 1)
	assert.Equal(t, WatcherStatusStopped, list[0].Status)
}
