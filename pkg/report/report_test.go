package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carverauto/autopatrol/pkg/logger"
	"github.com/carverauto/autopatrol/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.ResultRecord {
	return []models.ResultRecord{
		{
			Line: "A2", Num: 3, DeviceType: "SPI", Code: "SPI-01", IP: "10.0.0.2",
			Item: models.ItemIP, Result: models.ResultSuccess, Describe: models.PromptDeviceIPNormal, Duration: 4,
		},
		{
			Line: "A2", Num: 3, DeviceType: "SPI", Code: "SPI-01", IP: "10.0.0.2",
			Item: models.ItemSharePath, Result: models.ResultFailure, Describe: models.PromptDailyLogMissing,
			Messages: []string{models.PromptDeviceNotProducing, models.PromptLogPathChanged}, Duration: 1,
		},
	}
}

func TestName(t *testing.T) {
	morning := time.Date(2025, 3, 7, 8, 0, 0, 0, time.Local)
	evening := time.Date(2025, 3, 7, 20, 0, 1, 0, time.Local)
	odd := time.Date(2025, 3, 7, 13, 45, 9, 0, time.Local)

	assert.Equal(t, "20250307-auto-patrol-morning.xlsx", Name(KindScheduled, morning))
	assert.Equal(t, "20250307-auto-patrol-evening.xlsx", Name(KindScheduled, evening))
	assert.Equal(t, "20250307-auto-patrol-unknown_134509.xlsx", Name(KindScheduled, odd))
	assert.Equal(t, "20250307_134509-manual-patrol.xlsx", Name(KindManual, odd))

	assert.True(t, IsScheduled(Name(KindScheduled, odd)))
	assert.False(t, IsScheduled(Name(KindManual, odd)))
	assert.Equal(t, "20250307", DateStamp(Name(KindManual, odd)))
	assert.Empty(t, DateStamp("x.xlsx"))
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "r.xlsx")

	require.NoError(t, WriteFile(path, sampleRecords()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords()[1], got[1])
	assert.Equal(t, 4, got[0].Duration)
	assert.Empty(t, got[0].Messages)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.xlsx"))
	require.ErrorIs(t, err, ErrReportIO)

	empty := filepath.Join(dir, "empty.xlsx")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	got, err := ReadFile(empty)
	require.NoError(t, err)
	assert.Empty(t, got)

	garbage := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a workbook"), 0o600))

	_, err = ReadFile(garbage)
	require.ErrorIs(t, err, ErrReportIO)
}

func TestStoreListAndLatest(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logger.NewTestLogger())

	_, _, ok, err := store.LatestScheduled()
	require.NoError(t, err)
	assert.False(t, ok)

	names := []string{
		"20250306-auto-patrol-evening.xlsx",
		"20250307-auto-patrol-morning.xlsx",
		"20250307_101500-manual-patrol.xlsx",
	}

	base := time.Now().Add(-time.Hour)

	for i, name := range names {
		_, err := store.Write(name, sampleRecords())
		require.NoError(t, err)

		mod := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), mod, mod))
	}

	// An older mtime on the newer name: selection goes by mtime.
	old := base.Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, names[1]), old, old))

	_, name, ok, err := store.LatestScheduled()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, names[0], name)

	listed, err := store.List("20250307")
	require.NoError(t, err)
	assert.Equal(t, []string{names[2], names[1]}, listed)
}

func TestStoreReadCachesUntilModified(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, logger.NewTestLogger())

	name := "20250307-auto-patrol-morning.xlsx"
	_, err := store.Write(name, sampleRecords())
	require.NoError(t, err)

	first, err := store.Read(name)
	require.NoError(t, err)
	require.Len(t, first, 2)

	_, err = store.Write(name, sampleRecords()[:1])
	require.NoError(t, err)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, name), later, later))

	second, err := store.Read(name)
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestStoreRejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir(), logger.NewTestLogger())

	_, err := store.Read("../etc/passwd")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = store.Write(`..\x.xlsx`, nil)
	require.ErrorIs(t, err, ErrInvalidName)
}
