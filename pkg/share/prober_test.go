/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package share

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var today = time.Date(2025, 3, 7, 9, 30, 0, 0, time.Local)

func dir(mod time.Time) *fstest.MapFile {
	return &fstest.MapFile{Mode: fs.ModeDir | 0o755, ModTime: mod}
}

func file(mod time.Time) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("x"), ModTime: mod}
}

func freshShare() fstest.MapFS {
	return fstest.MapFS{
		"2025-02":            dir(today.AddDate(0, 0, -7)),
		"2025-02/old.csv":    file(today.AddDate(0, 0, -7)),
		"2025-03":            dir(today),
		"2025-03/06":         dir(today.AddDate(0, 0, -1)),
		"2025-03/06/a.csv":   file(today.AddDate(0, 0, -1)),
		"2025-03/07":         dir(today),
		"2025-03/07/run.csv": file(today),
	}
}

func staleShare() fstest.MapFS {
	return fstest.MapFS{
		"logs":           dir(today.AddDate(0, 0, -2)),
		"logs/r0305.csv": file(today.AddDate(0, 0, -2)),
	}
}

func dataDevice(code, ip, path string) models.DeviceSpec {
	return models.DeviceSpec{
		Line:       "A1",
		Code:       code,
		IP:         ip,
		Path:       path,
		Account:    "op",
		Password:   "pw",
		DriverName: "CQ.IOT.HT.SPIDriver.dll",
	}
}

func newTestProber(m Mounter, limit int, timeout time.Duration) *Prober {
	return NewProber(m, limit, timeout, logger.NewTestLogger(), WithNow(func() time.Time { return today }))
}

func TestCheckDailyLog(t *testing.T) {
	ctx := context.Background()

	found, err := CheckDailyLog(ctx, freshShare(), today)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = CheckDailyLog(ctx, staleShare(), today)
	require.NoError(t, err)
	assert.False(t, found)

	latest, err := LatestDir(ctx, freshShare(), ".")
	require.NoError(t, err)
	assert.Equal(t, "2025-03/07", latest)
}

func TestHasTodayFileMatchesByName(t *testing.T) {
	old := today.AddDate(-1, 0, 0)

	tests := []struct {
		name string
		file string
		want bool
	}{
		{"dashed", "line-2025-03-07.log", true},
		{"compact", "SPI_20250307_A.csv", true},
		{"other day", "SPI_20250306.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{tt.file: file(old)}

			got, err := HasTodayFile(fsys, ".", today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbeSharesSentinelsAndUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	devices := []models.DeviceSpec{
		dataDevice("D1", "10.0.0.1", models.NotApplicable),
		dataDevice("D2", "10.0.0.2", models.NeedsSetup),
		dataDevice("D3", "10.0.0.3", `\\10.0.0.3\logs`),
	}

	got := newTestProber(mounter, 2, time.Second).ProbeShares(context.Background(), map[string]bool{"10.0.0.3": false}, devices)

	require.Len(t, got, 3)
	assert.Equal(t, models.ConnectionSuccess, got[models.NotApplicable].Status)
	assert.Equal(t, models.PromptNoShareDependency, got[models.NotApplicable].Message)
	assert.Equal(t, models.ConnectionFailure, got[models.NeedsSetup].Status)
	assert.Equal(t, models.PromptPathNotConfigured, got[models.NeedsSetup].Message)

	unreachable := got[`\\10.0.0.3\logs`]
	assert.Equal(t, models.ConnectionFailure, unreachable.Status)
	assert.Equal(t, models.PromptAccessPathFailure, unreachable.Profile)
	assert.Contains(t, unreachable.Message, models.PromptDeviceOff)
	assert.Contains(t, unreachable.Message, models.PromptCableUnplugged)
	assert.Contains(t, unreachable.Message, models.PromptAddressChanged)
}

func TestProbeSharesMountOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	fresh := dataDevice("F", "10.0.0.1", `\\10.0.0.1\fresh`)
	stale := dataDevice("S", "10.0.0.2", `\\10.0.0.2\stale`)
	denied := dataDevice("X", "10.0.0.3", `\\10.0.0.3\denied`)
	denied.Account = models.NotApplicable

	mounter.EXPECT().Mount(gomock.Any(), fresh.Path, "op", "pw").Return(freshShare(), nil)
	mounter.EXPECT().Unmount(fresh.Path).Return(nil)
	mounter.EXPECT().Mount(gomock.Any(), stale.Path, "op", "pw").Return(staleShare(), nil)
	mounter.EXPECT().Unmount(stale.Path).Return(errors.New("already gone"))

	denyErr := errors.New("errno 86")
	mounter.EXPECT().Mount(gomock.Any(), denied.Path, "", "pw").Return(nil, denyErr)
	mounter.EXPECT().Classify(denyErr).Return(ClassifyWin32(86))

	reach := map[string]bool{"10.0.0.1": true, "10.0.0.2": true, "10.0.0.3": true}
	got := newTestProber(mounter, 5, time.Second).ProbeShares(context.Background(), reach, []models.DeviceSpec{fresh, stale, denied})

	assert.True(t, got[fresh.Path].Succeeded())
	assert.True(t, got[stale.Path].MissingDailyLog())
	assert.Contains(t, got[stale.Path].Message, models.PromptDeviceNotProducing)
	assert.Equal(t, models.ConnectionInvalidCredentials, got[denied.Path].Status)
}

func TestProbeSharesResolvesDatedPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	printer := dataDevice("P", "10.0.0.7", `\\10.0.0.7\print\*`)
	printer.DriverName = "CQ.IOT.HT.PanasonicPrintingDriver.dll"

	resolved := `\\10.0.0.7\print\2025-03-07`
	mounter.EXPECT().Mount(gomock.Any(), resolved, "op", "pw").Return(freshShare(), nil)
	mounter.EXPECT().Unmount(resolved).Return(nil)

	got := newTestProber(mounter, 1, time.Second).ProbeShares(context.Background(), map[string]bool{"10.0.0.7": true}, []models.DeviceSpec{printer})

	require.Contains(t, got, printer.Path)
	assert.True(t, got[printer.Path].Succeeded())
}

func TestProbeSharesWatchdogForcesUnmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	release := make(chan struct{})
	classified := make(chan struct{})

	hung := dataDevice("H", "10.0.0.9", `\\10.0.0.9\hung`)

	mounter.EXPECT().Mount(gomock.Any(), hung.Path, "op", "pw").DoAndReturn(
		func(context.Context, string, string, string) (fs.FS, error) {
			<-release
			return nil, errors.New("late failure")
		})
	mounter.EXPECT().Unmount(hung.Path).Return(nil)
	mounter.EXPECT().Classify(gomock.Any()).DoAndReturn(func(err error) models.ConnectionOutcome {
		close(classified)
		return models.UnknownErrorCause(err)
	})

	start := time.Now()
	got := newTestProber(mounter, 1, 50*time.Millisecond).ProbeShares(context.Background(), map[string]bool{"10.0.0.9": true}, []models.DeviceSpec{hung})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.ConnectionFailure, got[hung.Path].Status)
	assert.Equal(t, models.PromptConnectionTimedOut, got[hung.Path].Profile)

	close(release)
	<-classified
}

func TestProbeSharesRecoversPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	bad := dataDevice("B", "10.0.0.4", `\\10.0.0.4\bad`)
	good := dataDevice("G", "10.0.0.5", `\\10.0.0.5\good`)

	mounter.EXPECT().Mount(gomock.Any(), bad.Path, gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string, string) (fs.FS, error) {
			panic("driver fault")
		})
	mounter.EXPECT().Mount(gomock.Any(), good.Path, gomock.Any(), gomock.Any()).Return(freshShare(), nil)
	mounter.EXPECT().Unmount(good.Path).Return(nil)

	reach := map[string]bool{"10.0.0.4": true, "10.0.0.5": true}
	got := newTestProber(mounter, 2, time.Second).ProbeShares(context.Background(), reach, []models.DeviceSpec{bad, good})

	assert.Equal(t, models.ConnectionUnknownError, got[bad.Path].Status)
	assert.Contains(t, got[bad.Path].Message, "driver fault")
	assert.True(t, got[good.Path].Succeeded())
}

func TestProbeSharesRespectsConcurrencyLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	const (
		limit   = 3
		devices = 20
	)

	var inflight, peak atomic.Int32

	mounter.EXPECT().Mount(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string, string) (fs.FS, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)

			return freshShare(), nil
		}).Times(devices)
	mounter.EXPECT().Unmount(gomock.Any()).DoAndReturn(func(string) error {
		inflight.Add(-1)
		return nil
	}).Times(devices)

	list := make([]models.DeviceSpec, devices)
	reach := make(map[string]bool, devices)

	for i := range list {
		ip := fmt.Sprintf("10.2.0.%d", i+1)
		list[i] = dataDevice(fmt.Sprintf("C%d", i), ip, fmt.Sprintf(`\\%s\logs`, ip))
		reach[ip] = true
	}

	got := newTestProber(mounter, limit, time.Second).ProbeShares(context.Background(), reach, list)

	assert.Len(t, got, devices)
	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}

func TestProbeSharesLimitHoldsWhileTimedOutMountsLinger(t *testing.T) {
	ctrl := gomock.NewController(t)
	mounter := NewMockMounter(ctrl)

	const (
		limit   = 3
		devices = 12
	)

	var inflight, peak atomic.Int32

	// Mount ignores its context, like WNetAddConnection2.
	mounter.EXPECT().Mount(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string, string) (fs.FS, error) {
			n := inflight.Add(1)
			defer inflight.Add(-1)

			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			time.Sleep(60 * time.Millisecond)

			return freshShare(), nil
		}).Times(devices)
	mounter.EXPECT().Unmount(gomock.Any()).Return(nil).AnyTimes()

	list := make([]models.DeviceSpec, devices)
	reach := make(map[string]bool, devices)

	for i := range list {
		ip := fmt.Sprintf("10.3.0.%d", i+1)
		list[i] = dataDevice(fmt.Sprintf("T%d", i), ip, fmt.Sprintf(`\\%s\logs`, ip))
		reach[ip] = true
	}

	p := newTestProber(mounter, limit, 5*time.Millisecond)
	got := p.ProbeShares(context.Background(), reach, list)

	require.Len(t, got, devices)

	for path, out := range got {
		assert.Equal(t, models.PromptConnectionTimedOut, out.Profile, path)
	}

	// Every lingering mount goroutine releases its slot once Mount returns.
	require.Eventually(t, func() bool {
		if !p.mounts.TryAcquire(limit) {
			return false
		}

		p.mounts.Release(limit)

		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}
