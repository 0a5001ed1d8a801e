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

package patrol

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/carverauto/autopatrol/pkg/history"
	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/report"
	"github.com/carverauto/autopatrol/pkg/scan"
	"github.com/carverauto/autopatrol/pkg/share"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	conditionDriver = "CQ.IOT.SiemensPLCDriver.dll"
	dataDriver      = "CQ.IOT.HT.SPIDriver.dll"
)

type fixture struct {
	pinger  *scan.MockPinger
	mounter *share.MockMounter
	store   *report.Store
	orch    *Orchestrator
	now     time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	log := logger.NewTestLogger()
	clock := func() time.Time { return now }

	f := &fixture{
		pinger:  scan.NewMockPinger(ctrl),
		mounter: share.NewMockMounter(ctrl),
		store:   report.NewStore(t.TempDir(), log),
		now:     now,
	}

	f.orch = NewOrchestrator(
		scan.NewProber(f.pinger, time.Second, log),
		share.NewProber(f.mounter, 2, time.Second, log, share.WithNow(clock)),
		history.NewTracker(f.store, log),
		f.store,
		log,
		WithClock(clock),
	)

	return f
}

func (f *fixture) reachable(addrs map[string]bool) {
	for addr, up := range addrs {
		f.pinger.EXPECT().Ping(gomock.Any(), addr).Return(up, nil)
	}
}

func device(line, code, ip, path, driver string) models.DeviceSpec {
	return models.DeviceSpec{
		Line:       line,
		Num:        1,
		DeviceType: "test",
		Code:       code,
		IP:         ip,
		Path:       path,
		Account:    "op",
		Password:   "pw",
		DriverName: driver,
	}
}

func TestSortRecords(t *testing.T) {
	records := []models.ResultRecord{
		{Line: "B2", Item: models.ItemIP},
		{Line: "A10", Item: models.ItemIP},
		{Line: "A2", Item: models.ItemIP},
		{Line: "~badline", Item: models.ItemIP},
		{Line: "a2", Item: models.ItemCredentials},
		{Line: "C", Item: models.ItemIP},
	}

	SortRecords(records)

	var lines []string
	for _, r := range records {
		lines = append(lines, r.Line+"/"+string(r.Item))
	}

	assert.Equal(t, []string{"a2/Credentials", "A2/IP", "A10/IP", "B2/IP", "C/IP", "~badline/IP"}, lines)
}

func TestPatrolEndToEnd(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 7, 8, 0, 0, 0, time.Local))

	gateway := device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver)
	spi := device("A1", "SPI-1", "10.0.0.2", `\\10.0.0.2\logs`, dataDriver)

	f.reachable(map[string]bool{"10.0.0.1": true, "10.0.0.2": false})

	records, err := f.orch.Patrol(context.Background(), []models.DeviceSpec{gateway, spi}, "20250307-auto-patrol-morning.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.ItemCondition, records[0].Item)
	assert.Equal(t, "PLC-1", records[0].Code)
	assert.Equal(t, models.ResultSuccess, records[0].Result)

	assert.Equal(t, models.ItemCredentials, records[1].Item)
	assert.Equal(t, "SPI-1", records[1].Code)
	assert.Equal(t, models.ResultFailure, records[1].Result)
	for _, cause := range models.ReachabilityFailureCauses {
		assert.Contains(t, records[1].Message(), cause)
	}

	assert.Equal(t, models.ItemIP, records[2].Item)
	assert.Equal(t, models.ResultFailure, records[2].Result)
	assert.Equal(t, models.ReachabilityFailureCauses, records[2].Messages)

	for _, r := range records {
		assert.NotEqual(t, models.ItemSharePath, r.Item)
		assert.Equal(t, 1, r.Duration)
	}

	stored, err := f.store.Read("20250307-auto-patrol-morning.xlsx")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestPatrolSharesAndDurations(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 7, 20, 0, 0, 0, time.Local))

	stale := device("B3", "AOI-7", "10.0.1.7", `\\10.0.1.7\aoi`, dataDriver)
	fresh := device("B3", "SPI-8", "10.0.1.8", `\\10.0.1.8\spi`, dataDriver)
	other := device("B3", "PC-9", "10.0.1.9", models.NeedsSetup, "CQ.IOT.Unknown.dll")
	excluded := device("B3", "OFF", models.NotApplicable, models.NotApplicable, dataDriver)

	_, err := f.store.Write("20250306-auto-patrol-evening.xlsx", []models.ResultRecord{
		{Line: "b3", Code: "aoi-7", Item: models.ItemSharePath, Result: models.ResultFailure, Duration: 2},
		{Line: "B3", Code: "AOI-7", Item: models.ItemCredentials, Result: models.ResultFailure, Duration: 4},
		{Line: "B3", Code: "SPI-8", Item: models.ItemIP, Result: models.ResultSuccess, Duration: 6},
	})
	require.NoError(t, err)

	f.reachable(map[string]bool{"10.0.1.7": true, "10.0.1.8": true, "10.0.1.9": true})

	yesterday := f.now.AddDate(0, 0, -1)
	f.mounter.EXPECT().Mount(gomock.Any(), stale.Path, "op", "pw").
		Return(fstest.MapFS{"old.csv": &fstest.MapFile{ModTime: yesterday}}, nil)
	f.mounter.EXPECT().Unmount(stale.Path).Return(nil)
	f.mounter.EXPECT().Mount(gomock.Any(), fresh.Path, "op", "pw").
		Return(fstest.MapFS{"SPI_20250307.csv": &fstest.MapFile{ModTime: yesterday}}, nil)
	f.mounter.EXPECT().Unmount(fresh.Path).Return(nil)

	records, err := f.orch.Patrol(context.Background(), []models.DeviceSpec{stale, fresh, other, excluded}, "20250307-auto-patrol-evening.xlsx")
	require.NoError(t, err)

	byKey := make(map[string]models.ResultRecord)
	for _, r := range records {
		byKey[r.Code+"/"+string(r.Item)] = r
	}

	require.Len(t, byKey, 7)

	assert.Equal(t, models.ResultFailure, byKey["AOI-7/SharePath"].Result)
	assert.Equal(t, models.PromptDailyLogMissing, byKey["AOI-7/SharePath"].Describe)
	assert.Equal(t, 3, byKey["AOI-7/SharePath"].Duration)
	assert.Equal(t, models.ResultSuccess, byKey["AOI-7/Credentials"].Result)
	assert.Equal(t, 1, byKey["AOI-7/Credentials"].Duration)

	assert.Equal(t, models.ResultSuccess, byKey["SPI-8/SharePath"].Result)
	assert.Equal(t, 7, byKey["SPI-8/IP"].Duration)

	assert.Equal(t, models.ResultSuccess, byKey["PC-9/IP"].Result)
	assert.NotContains(t, byKey, "PC-9/Credentials")
	assert.NotContains(t, byKey, "OFF/IP")
}

func TestPatrolSameDayRerunKeepsDuration(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 7, 20, 0, 0, 0, time.Local))

	_, err := f.store.Write("20250307-auto-patrol-morning.xlsx", []models.ResultRecord{
		{Line: "A1", Code: "PLC-1", Item: models.ItemCondition, Result: models.ResultFailure, Duration: 5},
	})
	require.NoError(t, err)

	f.reachable(map[string]bool{"10.0.0.1": false})

	records, err := f.orch.Patrol(context.Background(),
		[]models.DeviceSpec{device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver)},
		"20250307-auto-patrol-evening.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].Duration)
	assert.Equal(t, models.ConditionFailureCauses, records[0].Messages)
}

func TestPatrolFailsOnReportErrors(t *testing.T) {
	t.Run("unreadable prior report", func(t *testing.T) {
		f := newFixture(t, time.Now())

		bad := filepath.Join(f.store.Dir(), "20250306-auto-patrol-morning.xlsx")
		require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))

		_, err := f.orch.Patrol(context.Background(), nil, "x.xlsx")
		require.ErrorIs(t, err, report.ErrReportIO)
	})

	t.Run("unwritable report", func(t *testing.T) {
		f := newFixture(t, time.Now())
		f.reachable(map[string]bool{"10.0.0.1": true})

		_, err := f.orch.Patrol(context.Background(),
			[]models.DeviceSpec{device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver)},
			"../escape.xlsx")
		require.ErrorIs(t, err, report.ErrInvalidName)
	})
}
