package buckets

import (
	"testing"
	"time"

	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/aristath/riskbucket/internal/modules/universe"
	testingpkg "github.com/aristath/riskbucket/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service  *Service
	universe *universe.Service
	bus      *events.Bus
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()

	universeDB := testingpkg.NewTestDB(t, "universe")
	portfolioDB := testingpkg.NewTestDB(t, "portfolio")

	bus := events.NewBus(log)
	stocks := universe.NewService(universe.NewRepository(universeDB.Conn(), log), log)
	service := NewService(NewRepository(portfolioDB.Conn(), log), stocks, events.NewManager(bus, log), 1000, log)

	return &fixture{service: service, universe: stocks, bus: bus}
}

func (f *fixture) stock(t *testing.T, ticker, name string, quote float64) string {
	t.Helper()
	stock, err := f.universe.CreateStock(ticker, name)
	require.NoError(t, err)
	_, err = f.universe.AddQuote(stock.ID, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), quote)
	require.NoError(t, err)
	return stock.ID
}

func TestCreate(t *testing.T) {
	f := setup(t)

	bucket, err := f.service.Create("Growth", false, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bucket.Available)
	assert.Equal(t, "alice", bucket.Owner)

	cash := 250.0
	other, err := f.service.Create("Growth", true, "bob", &cash)
	require.NoError(t, err, "names are unique per owner only")
	assert.Equal(t, 250.0, other.Available)

	_, err = f.service.Create("Growth", true, "alice", nil)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = f.service.Create("  ", true, "alice", nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	negative := -1.0
	_, err = f.service.Create("Debt", true, "alice", &negative)
	assert.ErrorIs(t, err, ErrNegativeAvailable)
}

func TestAccessibility(t *testing.T) {
	f := setup(t)

	own, err := f.service.Create("Alice private", false, "alice", nil)
	require.NoError(t, err)
	shared, err := f.service.Create("Bob public", true, "bob", nil)
	require.NoError(t, err)
	hidden, err := f.service.Create("Bob private", false, "bob", nil)
	require.NoError(t, err)

	list, err := f.service.Accessible("alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, own.ID, list[0].ID)
	assert.Equal(t, shared.ID, list[1].ID)

	_, err = f.service.Get(hidden.ID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := f.service.Detail(shared.ID, "alice")
	require.NoError(t, err)
	assert.False(t, detail.Editable)
	assert.Equal(t, 1000.0, detail.Value)

	assert.ErrorIs(t, f.service.Delete(shared.ID, "alice"), ErrNotOwner)
	assert.ErrorIs(t, f.service.Delete(hidden.ID, "alice"), ErrNotFound)
}

func TestDelete_EmitsEvent(t *testing.T) {
	f := setup(t)

	var got []events.EventType
	_ = f.bus.Subscribe(events.BucketDeleted, func(e *events.Event) { got = append(got, e.Type) })

	bucket, err := f.service.Create("Temp", false, "alice", nil)
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(bucket.ID, "alice"))

	_, err = f.service.Get(bucket.ID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []events.EventType{events.BucketDeleted}, got)
}

func TestChangeConfig_SellsThenBuys(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)
	b := f.stock(t, "BBB", "Beta", 50)

	var changed []*events.CompositionChangedData
	_ = f.bus.Subscribe(events.BucketCompositionChanged, func(e *events.Event) {
		changed = append(changed, e.Data.(*events.CompositionChangedData))
	})

	bucket, err := f.service.Create("Mix", false, "alice", nil)
	require.NoError(t, err)

	updated, err := f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 5}, {StockID: b, Quantity: 4}})
	require.NoError(t, err)
	assert.InDelta(t, 300.0, updated.Available, 1e-9)

	value, err := f.service.CurrentValue(*updated)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, value, 1e-9)

	updated, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 2}})
	require.NoError(t, err)
	assert.InDelta(t, 800.0, updated.Available, 1e-9)

	configs, err := f.service.repo.CurrentConfigs(bucket.ID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, a, configs[0].StockID)
	assert.Equal(t, 2.0, configs[0].Quantity)
	assert.Nil(t, configs[0].End)

	require.Len(t, changed, 2)
	assert.Equal(t, 1, changed[1].Configs)
}

func TestChangeConfig_InsufficientFundsLeavesBucketUntouched(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)

	bucket, err := f.service.Create("Mix", false, "alice", nil)
	require.NoError(t, err)
	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 2}})
	require.NoError(t, err)

	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 20}})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	after, err := f.service.Get(bucket.ID, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 800.0, after.Available, 1e-9)

	configs, err := f.service.repo.CurrentConfigs(bucket.ID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 2.0, configs[0].Quantity)
}

func TestChangeConfig_Validation(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)

	bucket, err := f.service.Create("Mix", true, "alice", nil)
	require.NoError(t, err)

	_, err = f.service.ChangeConfig(bucket.ID, "bob", []ConfigUpdate{{StockID: a, Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: -1}})
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: "missing", Quantity: 1}})
	assert.ErrorIs(t, err, universe.ErrStockNotFound)

	unquoted, err := f.universe.CreateStock("NOQ", "No quote")
	require.NoError(t, err)
	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: unquoted.ID, Quantity: 1}})
	assert.ErrorIs(t, err, universe.ErrNoQuote)
}

func TestMergeUpdates(t *testing.T) {
	merged, err := mergeUpdates([]ConfigUpdate{
		{StockID: "a", Quantity: 1},
		{StockID: "b", Quantity: 0},
		{StockID: "c", Quantity: 2},
		{StockID: "a", Quantity: 1.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []ConfigUpdate{{StockID: "a", Quantity: 2.5}, {StockID: "c", Quantity: 2}}, merged)
}

func TestComposition_RoundTripThroughEditor(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)
	b := f.stock(t, "BBB", "Beta", 50)

	bucket, err := f.service.Create("Mix", false, "alice", nil)
	require.NoError(t, err)
	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 5}, {StockID: b, Quantity: 4}})
	require.NoError(t, err)

	state, err := f.service.Composition(bucket.ID, "alice")
	require.NoError(t, err)
	assert.True(t, state.Editable)
	assert.InDelta(t, 1000.0, state.View.Total, 1e-9)
	assert.InDelta(t, 300.0, state.View.Available, 1e-9)
	assert.Equal(t, []float64{0, 500, 700}, state.View.Boundaries)
	require.Len(t, state.View.Chunks, 2)
	assert.Equal(t, composition.Chunk{ID: a, Name: "Alpha", Quantity: 5, Value: 100}, state.View.Chunks[0])

	// drag the last handle to the total: Beta absorbs all available cash
	edited, err := composition.Reallocate(state.View.Chunks, []float64{0, 500, 1000})
	require.NoError(t, err)

	saved, err := f.service.SaveComposition(bucket.ID, "alice", edited)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, saved.View.Available, 1e-6)
	assert.InDelta(t, 10.0, saved.View.Chunks[1].Quantity, 1e-9)

	public, err := f.service.Composition(bucket.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound, "private bucket")
	assert.Nil(t, public)
}

func TestSaveComposition_Validation(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)

	cash := 500.0
	bucket, err := f.service.Create("Mix", true, "alice", &cash)
	require.NoError(t, err)

	// posted values are replaced by the latest quote before the budget check
	_, err = f.service.SaveComposition(bucket.ID, "alice", []composition.Chunk{{ID: a, Quantity: 6, Value: 1}})
	assert.ErrorIs(t, err, composition.ErrOverAllocated)

	_, err = f.service.SaveComposition(bucket.ID, "alice", []composition.Chunk{{ID: a, Quantity: -1, Value: 100}})
	assert.ErrorIs(t, err, composition.ErrNegativeQuantity)

	_, err = f.service.SaveComposition(bucket.ID, "alice", []composition.Chunk{{ID: "missing", Quantity: 1, Value: 100}})
	assert.ErrorIs(t, err, universe.ErrStockNotFound)

	_, err = f.service.SaveComposition(bucket.ID, "bob", []composition.Chunk{{ID: a, Quantity: 1, Value: 100}})
	assert.ErrorIs(t, err, ErrNotOwner)

	unchanged, err := f.service.Get(bucket.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 500.0, unchanged.Available)

	saved, err := f.service.SaveComposition(bucket.ID, "alice", []composition.Chunk{{ID: a, Quantity: 5, Value: 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, saved.View.Available, 1e-9)
}

func TestValueOn(t *testing.T) {
	f := setup(t)
	a := f.stock(t, "AAA", "Alpha", 100)

	bucket, err := f.service.Create("Mix", false, "alice", nil)
	require.NoError(t, err)
	_, err = f.service.ChangeConfig(bucket.ID, "alice", []ConfigUpdate{{StockID: a, Quantity: 3}})
	require.NoError(t, err)

	today := time.Now()
	value, err := f.service.ValueOn(bucket.ID, "alice", today)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, value, 1e-9)

	value, err = f.service.ValueOn(bucket.ID, "alice", today.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 0.0, value, "configuration did not exist yet")
}

func TestDescriptions(t *testing.T) {
	f := setup(t)

	bucket, err := f.service.Create("Mix", true, "alice", nil)
	require.NoError(t, err)

	_, err = f.service.AddDescription(bucket.ID, "alice", "ab", true)
	assert.ErrorIs(t, err, ErrDescriptionTooShort)

	con, err := f.service.AddDescription(bucket.ID, "alice", "Volatile", false)
	require.NoError(t, err)
	pro, err := f.service.AddDescription(bucket.ID, "alice", "Diversified", true)
	require.NoError(t, err)

	_, err = f.service.AddDescription(bucket.ID, "alice", "Diversified", false)
	assert.ErrorIs(t, err, ErrDuplicateDescription)

	_, err = f.service.AddDescription(bucket.ID, "bob", "Looks good", true)
	assert.ErrorIs(t, err, ErrNotOwner)

	list, err := f.service.Descriptions(bucket.ID, "bob")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, pro.ID, list[0].ID, "pros first")

	edited, err := f.service.EditDescription(bucket.ID, con.ID, "alice", "Very volatile", false)
	require.NoError(t, err)
	assert.Equal(t, "Very volatile", edited.Text)

	_, err = f.service.EditDescription(bucket.ID, "missing", "alice", "Anything", false)
	assert.ErrorIs(t, err, ErrDescriptionNotFound)

	require.NoError(t, f.service.DeleteDescription(bucket.ID, con.ID, "alice"))
	assert.ErrorIs(t, f.service.DeleteDescription(bucket.ID, con.ID, "alice"), ErrDescriptionNotFound)
}
