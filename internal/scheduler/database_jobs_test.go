package scheduler

import (
	"testing"

	testingpkg "github.com/aristath/riskbucket/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALCheckpointJob(t *testing.T) {
	universe := testingpkg.NewTestDB(t, "universe")
	portfolio := testingpkg.NewTestDB(t, "portfolio")

	job := NewWALCheckpointJob(zerolog.Nop(), universe, nil, portfolio)
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}

func TestWALCheckpointJob_NoDatabases(t *testing.T) {
	assert.NoError(t, NewWALCheckpointJob(zerolog.Nop(), nil, nil).Run())
}

func TestWALCheckpointJob_ClosedDatabaseIsSkipped(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	require.NoError(t, db.Close())

	assert.NoError(t, NewWALCheckpointJob(zerolog.Nop(), db).Run())
}

func TestIntegrityCheckJob(t *testing.T) {
	universe := testingpkg.NewTestDB(t, "universe")
	portfolio := testingpkg.NewTestDB(t, "portfolio")

	job := NewIntegrityCheckJob(zerolog.Nop(), universe, portfolio, nil)
	assert.Equal(t, "integrity_check", job.Name())
	assert.NoError(t, job.Run())
}

func TestIntegrityCheckJob_FailsOnUnreachableDatabase(t *testing.T) {
	db := testingpkg.NewTestDB(t, "portfolio")
	require.NoError(t, db.Close())

	err := NewIntegrityCheckJob(zerolog.Nop(), db).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database portfolio is corrupted")
}
