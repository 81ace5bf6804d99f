package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/seqscan/internal/seqscan"
	"github.com/banshee-data/seqscan/internal/trajectory"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "seqscan_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testResult(t *testing.T) (*seqscan.Result, seqscan.Params) {
	t.Helper()
	ts := func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
	traj := trajectory.New("fox1", true, []trajectory.Observation{
		{X: 0, Y: 0, Time: ts(0)},
		{X: 0, Y: 0, Time: ts(10)},
		{X: 0, Y: 0, Time: ts(20)},
		{X: 50, Y: 0, Time: ts(25)},
		{X: 0, Y: 0, Time: ts(30)},
	})
	params := seqscan.Params{Eps: 1, MinPoints: 2, Delta: 15 * time.Second}
	s, err := seqscan.New(traj, params)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	return res, params
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	migrations, err := migrationsDir()
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestInsertAndGetResult(t *testing.T) {
	db := openTestDB(t)
	res, params := testResult(t)

	created := time.Unix(1000, 0).UTC()
	runID, err := db.InsertResult(res, true, params, created)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := db.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "fox1", run.TagID)
	assert.True(t, run.IsCartesian)
	assert.Equal(t, 1.0, run.Eps)
	assert.Equal(t, 2, run.MinPoints)
	assert.Equal(t, 15.0, run.DeltaSeconds)
	assert.Equal(t, len(res.Classifications), run.ObservationCount)
	assert.Equal(t, len(res.Stops), run.StopCount)
	assert.Equal(t, created.UnixNano(), run.CreatedUnixNanos)
}

func TestRoundTripClassifications(t *testing.T) {
	db := openTestDB(t)
	res, params := testResult(t)

	runID, err := db.InsertResult(res, true, params, time.Unix(0, 0))
	require.NoError(t, err)

	rows, err := db.GetClassifications(runID)
	require.NoError(t, err)
	require.Len(t, rows, len(res.Classifications))

	for i := range rows {
		want := res.Classifications[i]
		assert.Equal(t, want.X, rows[i].X, "row %d x", i)
		assert.Equal(t, want.Cluster, rows[i].Cluster, "row %d cluster", i)
		assert.Equal(t, want.Class, rows[i].Class, "row %d class", i)
		assert.Equal(t, want.Type, rows[i].Type, "row %d type", i)
		assert.True(t, want.Time.Equal(rows[i].Time), "row %d time", i)
	}
}

func TestRoundTripStops(t *testing.T) {
	db := openTestDB(t)
	res, params := testResult(t)
	require.NotEmpty(t, res.Stops)

	runID, err := db.InsertResult(res, true, params, time.Unix(0, 0))
	require.NoError(t, err)

	stops, err := db.GetStops(runID)
	require.NoError(t, err)
	require.Len(t, stops, len(res.Stops))
	assert.Equal(t, "STOP_1", stops[0].StopID)
	assert.True(t, res.Stops[0].Start.Equal(stops[0].Start))
	assert.True(t, res.Stops[0].End.Equal(stops[0].End))
}

func TestGetStopsInRange(t *testing.T) {
	db := openTestDB(t)
	res, params := testResult(t)

	_, err := db.InsertResult(res, true, params, time.Unix(0, 0))
	require.NoError(t, err)

	// Overlapping window.
	stops, err := db.GetStopsInRange("fox1", time.Unix(5, 0).UnixNano(), time.Unix(60, 0).UnixNano())
	require.NoError(t, err)
	assert.Len(t, stops, 1)

	// Disjoint window.
	stops, err = db.GetStopsInRange("fox1", time.Unix(500, 0).UnixNano(), time.Unix(600, 0).UnixNano())
	require.NoError(t, err)
	assert.Empty(t, stops)

	// Other tag.
	stops, err = db.GetStopsInRange("other", 0, time.Unix(600, 0).UnixNano())
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun("no-such-run")
	assert.Error(t, err)
}
