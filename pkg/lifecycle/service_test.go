package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startErr error
	stopWait time.Duration
}

func (f *fakeService) Start(context.Context) error {
	f.started.Store(true)
	return f.startErr
}

func (f *fakeService) Stop(ctx context.Context) error {
	select {
	case <-time.After(f.stopWait):
	case <-ctx.Done():
		return ctx.Err()
	}

	f.stopped.Store(true)

	return nil
}

func TestRunServiceStopsOnCancel(t *testing.T) {
	svc := &fakeService{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- RunService(ctx, &ServiceOptions{ServiceName: "test", Service: svc, Logger: logger.NewTestLogger()})
	}()

	require.Eventually(t, svc.started.Load, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunService did not return")
	}

	assert.True(t, svc.stopped.Load())
}

func TestRunServiceStartError(t *testing.T) {
	svc := &fakeService{startErr: errors.New("boom")}

	err := RunService(context.Background(), &ServiceOptions{ServiceName: "test", Service: svc})
	require.Error(t, err)
	assert.False(t, svc.stopped.Load())
}

func TestRunServiceShutdownTimeout(t *testing.T) {
	svc := &fakeService{stopWait: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunService(ctx, &ServiceOptions{ServiceName: "slow", Service: svc, ShutdownTimeout: 20 * time.Millisecond})
	require.Error(t, err)
}

func TestCreateComponentLogger(t *testing.T) {
	l, err := CreateComponentLogger("scheduler", &logger.Config{Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = CreateComponentLogger("scheduler", &logger.Config{Level: "nope"})
	require.Error(t, err)
}
