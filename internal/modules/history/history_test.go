package history

import (
	"testing"
	"time"

	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/universe"
	testingpkg "github.com/aristath/riskbucket/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJob(t *testing.T) {
	log := zerolog.Nop()
	universeDB := testingpkg.NewTestDB(t, "universe")
	portfolioDB := testingpkg.NewTestDB(t, "portfolio")

	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	stocks := universe.NewService(universe.NewRepository(universeDB.Conn(), log), log)
	bucketService := buckets.NewService(buckets.NewRepository(portfolioDB.Conn(), log), stocks, manager, 1000, log)
	repo := NewRepository(portfolioDB.Conn(), log)
	service := NewService(repo, bucketService, log)

	stock, err := stocks.CreateStock("AAA", "Alpha")
	require.NoError(t, err)
	_, err = stocks.AddQuote(stock.ID, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 100)
	require.NoError(t, err)

	priced, err := bucketService.Create("Priced", false, "alice", nil)
	require.NoError(t, err)
	_, err = bucketService.ChangeConfig(priced.ID, "alice", []buckets.ConfigUpdate{{StockID: stock.ID, Quantity: 4}})
	require.NoError(t, err)

	cash, err := bucketService.Create("Cash only", true, "bob", nil)
	require.NoError(t, err)

	var recorded *events.SnapshotRecordedData
	_ = bus.Subscribe(events.SnapshotRecorded, func(e *events.Event) {
		recorded = e.Data.(*events.SnapshotRecordedData)
	})

	job := NewSnapshotJob(repo, bucketService, manager, log)
	job.now = func() time.Time { return time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC) }

	assert.Equal(t, "bucket_value_snapshot", job.Name())
	require.NoError(t, job.Run())
	require.NoError(t, job.Run(), "re-running the same day replaces the snapshot")

	require.NotNil(t, recorded)
	assert.Equal(t, 2, recorded.Buckets)
	assert.Equal(t, 0, recorded.Failed)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points, err := service.History(priced.ID, "alice", since)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-05-01", points[0].Date)
	assert.InDelta(t, 1000.0, points[0].Value, 1e-9)

	points, err = service.History(cash.ID, "alice", since)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1000.0, points[0].Value)

	_, err = service.History(priced.ID, "bob", since)
	assert.ErrorIs(t, err, buckets.ErrNotFound)

	later, err := service.History(priced.ID, "alice", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, later)
}
