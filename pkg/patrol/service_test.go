package patrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/carverauto/autopatrol/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newService(t *testing.T, f *fixture, pub Publisher, devices DeviceSource) *Service {
	t.Helper()

	return NewService(&ServiceConfig{
		Orchestrator: f.orch,
		Store:        f.store,
		Publisher:    pub,
		Devices:      devices,
		Logger:       logger.NewTestLogger(),
		Now:          func() time.Time { return f.now },
	})
}

func TestTaskRegistry(t *testing.T) {
	r := NewTaskRegistry()
	now := time.Now()

	first, err := r.Begin("patrol", report.KindManual, now)
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	assert.True(t, r.Running("patrol"))

	_, err = r.Begin("patrol", report.KindScheduled, now)
	require.ErrorIs(t, err, ErrPatrolInProgress)

	_, err = r.Begin("copy", report.KindScheduled, now.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, r.List(), 2)
	assert.Equal(t, "patrol", r.List()[0].Name)

	r.End("patrol")
	assert.False(t, r.Running("patrol"))
}

func TestTriggerPatrolRejectsOverlapAndEmptyRoster(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 7, 10, 0, 0, 0, time.Local))
	svc := newService(t, f, nil, nil)

	_, err := svc.TriggerPatrol(context.Background(), nil, report.KindManual)
	require.ErrorIs(t, err, ErrNoDevices)

	_, err = svc.Registry().Begin(patrolTask, report.KindScheduled, f.now)
	require.NoError(t, err)

	devices := []models.DeviceSpec{device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver)}

	_, err = svc.TriggerPatrol(context.Background(), devices, report.KindManual)
	require.ErrorIs(t, err, ErrPatrolInProgress)
}

func TestTriggerPatrolManualReportIsBrowsable(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 7, 10, 15, 0, 0, time.Local))
	svc := newService(t, f, nil, nil)

	f.reachable(map[string]bool{"10.0.0.1": true})

	devices := []models.DeviceSpec{device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver)}

	records, err := svc.TriggerPatrol(context.Background(), devices, report.KindManual)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, svc.Registry().Running(patrolTask))

	names, err := svc.ListReports("20250307")
	require.NoError(t, err)
	assert.Equal(t, []string{"20250307_101500-manual-patrol.xlsx"}, names)

	loaded, err := svc.LoadHistory(context.Background(), names[0])
	require.NoError(t, err)
	assert.Equal(t, records[0].Code, loaded[0].Code)
}

func TestPublishResultsAttemptsEveryRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	f := newFixture(t, time.Date(2025, 3, 7, 8, 0, 0, 0, time.Local))
	svc := newService(t, f, pub, nil)

	records := []models.ResultRecord{
		{Line: "A1", Code: "PLC-1", Item: models.ItemCondition, Describe: models.PromptGatewayNormal},
		{Line: "A1", Code: "SPI-1", Item: models.ItemIP, Describe: models.PromptDeviceIPUnreachable},
	}

	var sent []models.Envelope

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, v any) error {
		env, ok := v.(models.Envelope)
		require.True(t, ok)

		sent = append(sent, env)
		if env.BoxCode == "PLC-1" {
			return errors.New("channel closed")
		}

		return nil
	}).Times(2)

	err := svc.PublishResults(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLC-1")

	require.Len(t, sent, 2)
	assert.Equal(t, models.PromptDeviceIPUnreachable, sent[1].Data.Params[0].V)
	assert.Equal(t, "2025-03-07T08:00:00.000", sent[1].RptTime)
}

func TestRunScheduledPatrol(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)
	src := NewMockDeviceSource(ctrl)

	f := newFixture(t, time.Date(2025, 3, 7, 20, 0, 0, 0, time.Local))
	svc := newService(t, f, pub, src)

	src.EXPECT().Devices(gomock.Any()).Return([]models.DeviceSpec{
		device("A1", "PLC-1", "10.0.0.1", models.NotApplicable, conditionDriver),
		device("A2", "PLC-2", "10.0.0.2", models.NotApplicable, conditionDriver),
	}, nil)
	f.reachable(map[string]bool{"10.0.0.1": true, "10.0.0.2": false})
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, svc.RunScheduledPatrol(context.Background()))

	names, err := svc.ListReports("")
	require.NoError(t, err)
	assert.Equal(t, []string{"20250307-auto-patrol-evening.xlsx"}, names)
}

func TestRunScheduledPatrolDeviceLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockDeviceSource(ctrl)

	f := newFixture(t, time.Now())
	svc := newService(t, f, nil, src)

	boom := errors.New("roster unreadable")
	src.EXPECT().Devices(gomock.Any()).Return(nil, boom)

	require.ErrorIs(t, svc.RunScheduledPatrol(context.Background()), boom)
}
