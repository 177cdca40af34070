package composition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoChunks() []Chunk {
	return []Chunk{
		{ID: "1", Name: "Apple", Quantity: 1, Value: 3},
		{ID: "2", Name: "Google", Quantity: 2, Value: 2},
	}
}

func TestBoundaries(t *testing.T) {
	assert.Equal(t, []float64{0}, Boundaries(nil))
	assert.Equal(t, []float64{0, 3, 7}, Boundaries(twoChunks()))
}

func TestBoundaries_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 1; n < 20; n++ {
		chunks := make([]Chunk, n)
		for i := range chunks {
			chunks[i] = Chunk{ID: string(rune('a' + i)), Quantity: rng.Float64() * 10, Value: 0.5 + rng.Float64()*100}
		}

		bounds := Boundaries(chunks)
		require.Len(t, bounds, n+1)
		assert.Equal(t, 0.0, bounds[0])
		for i := 1; i < len(bounds); i++ {
			assert.GreaterOrEqual(t, bounds[i], bounds[i-1])
		}
		assert.InDelta(t, Allocated(chunks), bounds[n], 1e-9)
	}
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, 93.0, Available(100, twoChunks()))
	assert.Equal(t, 100.0, Available(100, nil))
	assert.Equal(t, -7.0, Available(0, twoChunks()))
}

func TestAppend_ConsumesAvailable(t *testing.T) {
	chunks := []Chunk{{ID: "1", Name: "Apple", Quantity: 7, Value: 10}}
	suggestions := []Suggestion{
		{ID: "9", Name: "Microsoft", Value: 10},
		{ID: "8", Name: "Amazon", Value: 20},
	}

	out, err := Append(chunks, 100, "Microsoft", suggestions)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, Chunk{ID: "9", Name: "Microsoft", Quantity: 3, Value: 10}, out[1])
	assert.Equal(t, 0.0, Available(100, out))

	// input untouched
	assert.Len(t, chunks, 1)
}

func TestAppend_NoBudget(t *testing.T) {
	chunks := []Chunk{{ID: "1", Name: "Apple", Quantity: 7, Value: 10}}
	suggestions := []Suggestion{{ID: "9", Name: "Microsoft", Value: 10}}

	out, err := Append(chunks, 70, "Microsoft", suggestions)
	assert.ErrorIs(t, err, ErrNothingAvailable)
	assert.Equal(t, chunks, out)
}

func TestAppend_NameMatchIsExact(t *testing.T) {
	chunks := twoChunks()
	suggestions := []Suggestion{{ID: "9", Name: "Microsoft", Value: 10}}

	for _, text := range []string{"microsoft", "Micro", "", "Microsoft "} {
		out, err := Append(chunks, 100, text, suggestions)
		assert.ErrorIs(t, err, ErrSuggestionNotFound, text)
		assert.Equal(t, chunks, out, text)
	}
}

func TestAppend_RejectsNonPositiveValue(t *testing.T) {
	chunks := twoChunks()
	out, err := Append(chunks, 100, "Ghost", []Suggestion{{ID: "0", Name: "Ghost", Value: 0}})
	assert.ErrorIs(t, err, ErrNonPositiveValue)
	assert.Equal(t, chunks, out)
}

func TestDelete(t *testing.T) {
	chunks := []Chunk{{ID: "1"}, {ID: "2"}}

	assert.Equal(t, []Chunk{{ID: "1"}}, Delete(chunks, "2"))
	assert.Equal(t, chunks, Delete(chunks, "99"))
	assert.Equal(t, []Chunk{{ID: "2"}}, Delete(chunks, "1"))
	assert.Len(t, chunks, 2)
}

func TestDelete_OnlyFirstMatch(t *testing.T) {
	chunks := []Chunk{{ID: "1", Name: "a"}, {ID: "1", Name: "b"}}
	assert.Equal(t, []Chunk{{ID: "1", Name: "b"}}, Delete(chunks, "1"))
}

func TestReallocate_AdjacentChunksAbsorbGap(t *testing.T) {
	chunks := twoChunks()

	out, err := Reallocate(chunks, []float64{0, 6, 18})
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{ID: "1", Name: "Apple", Quantity: 2, Value: 3},
		{ID: "2", Name: "Google", Quantity: 6, Value: 2},
	}, out)

	// the caller's sequence is not mutated
	assert.Equal(t, twoChunks(), chunks)
}

func TestReallocate_LastBoundaryResizesLastChunkOnly(t *testing.T) {
	out, err := Reallocate(twoChunks(), []float64{0, 3, 11})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out[0].Quantity)
	assert.Equal(t, 4.0, out[1].Quantity)
}

func TestReallocate_OnlyFirstDifferenceApplies(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Quantity: 1, Value: 1},
		{ID: "b", Quantity: 1, Value: 1},
		{ID: "c", Quantity: 1, Value: 1},
	}

	out, err := Reallocate(chunks, []float64{0, 2, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0].Quantity)
	assert.Equal(t, 0.0, out[1].Quantity)
	assert.Equal(t, 1.0, out[2].Quantity, "boundary 3 moved too but is ignored")
}

func TestReallocate_NoOps(t *testing.T) {
	chunks := twoChunks()

	out, err := Reallocate(chunks, []float64{0, 3, 7})
	require.NoError(t, err)
	assert.Equal(t, chunks, out, "unchanged boundaries")

	out, err = Reallocate(chunks, []float64{1, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, chunks, out, "origin change")

	out, err = Reallocate(chunks, []float64{0, 3})
	assert.ErrorIs(t, err, ErrBoundaryLength)
	assert.Equal(t, chunks, out)
}

func TestReallocate_Idempotent(t *testing.T) {
	next := []float64{0, 6, 18}

	first, err := Reallocate(twoChunks(), next)
	require.NoError(t, err)
	second, err := Reallocate(first, next)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReallocate_RoundTrip(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Quantity: 1.5, Value: 12.34},
		{ID: "b", Quantity: 3, Value: 7.77},
		{ID: "c", Quantity: 0.25, Value: 101.01},
	}
	prev := Boundaries(chunks)

	for i := 1; i < len(prev); i++ {
		next := append([]float64(nil), prev...)
		next[i] += 5.55

		out, err := ReallocateFrom(chunks, prev, next)
		require.NoError(t, err)

		got := Boundaries(out)
		assert.InDelta(t, next[i], got[i], 1e-9)
		if i < len(prev)-1 {
			assert.InDelta(t, next[i+1], got[i+1], 1e-9)
		}
	}
}

func TestMovedBoundary(t *testing.T) {
	i, ok := MovedBoundary([]float64{0, 1, 2}, []float64{0, 1, 3})
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = MovedBoundary([]float64{0, 1, 2}, []float64{0, 1, 2})
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(twoChunks(), 7))
	assert.ErrorIs(t, Validate(twoChunks(), 6), ErrOverAllocated)
	assert.ErrorIs(t, Validate([]Chunk{{ID: "x", Quantity: -1, Value: 1}}, 10), ErrNegativeQuantity)
	assert.ErrorIs(t, Validate([]Chunk{{ID: "x", Quantity: 1, Value: 0}}, 10), ErrNonPositiveValue)
}

func TestNewView(t *testing.T) {
	view := NewView(10, []Chunk{{ID: "1", Name: "Apple", Quantity: 2.0 / 3.0, Value: 3}})

	require.Len(t, view.Boundaries, 2)
	assert.InDelta(t, 2.0, view.Boundaries[1], 1e-9)
	assert.InDelta(t, 8.0, view.Available, 1e-9)
	assert.Equal(t, "8.00", view.AvailableDisplay)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, Row{ID: "1", Name: "Apple", Quantity: "0.67", Value: "3", TotalValue: "2.00"}, view.Rows[0])
	assert.Nil(t, view.Preview)
}

func TestView_WithPreview(t *testing.T) {
	view := NewView(100, nil).WithPreview("Amazon", []Suggestion{{ID: "8", Name: "Amazon", Value: 40}})

	require.NotNil(t, view.Preview)
	assert.Equal(t, "2.50", view.Preview.Quantity)
	assert.Equal(t, "40", view.Preview.Value)
	assert.Equal(t, "100.00", view.Preview.TotalValue)

	assert.Nil(t, view.WithPreview("amazon", []Suggestion{{ID: "8", Name: "Amazon", Value: 40}}).Preview)
}

func TestValidateValues_RejectsOverflow(t *testing.T) {
	assert.ErrorIs(t, ValidateValues([]Chunk{{ID: "a", Quantity: 1e308, Value: 10}}), ErrNotFinite)
	assert.ErrorIs(t, ValidateValues([]Chunk{{ID: "a", Quantity: 1, Value: math.Inf(1)}}), ErrNotFinite)
	assert.ErrorIs(t, ValidateValues([]Chunk{{ID: "a", Quantity: math.NaN(), Value: 1}}), ErrNotFinite)

	// each contribution fits, their sum does not
	big := []Chunk{{ID: "a", Quantity: 1.5, Value: 1e308}, {ID: "b", Quantity: 1.5, Value: 1e308}}
	assert.NoError(t, ValidateValues(big[:1]))
	assert.ErrorIs(t, ValidateValues(big), ErrNotFinite)
}

func TestValidateTotal(t *testing.T) {
	assert.NoError(t, ValidateTotal(100, twoChunks()))
	assert.ErrorIs(t, ValidateTotal(math.Inf(1), nil), ErrNotFinite)
	assert.ErrorIs(t, ValidateTotal(1.7e308, []Chunk{{ID: "a", Quantity: -1, Value: 1.7e308}}), ErrNotFinite)
	assert.ErrorIs(t, Validate(nil, math.NaN()), ErrNotFinite)
}

func TestAppend_RejectsOverflowingQuantity(t *testing.T) {
	chunks := twoChunks()
	out, err := AppendSuggestion(chunks, 1e10, Suggestion{ID: "9", Name: "Penny", Value: 1e-300})
	assert.ErrorIs(t, err, ErrNotFinite)
	assert.Equal(t, chunks, out)

	_, err = AppendSuggestion(chunks, 100, Suggestion{ID: "9", Name: "Huge", Value: math.Inf(1)})
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestView_PreviewSkipsOverflowingQuantity(t *testing.T) {
	assert.NotPanics(t, func() {
		view := NewView(1e10, nil).WithPreview("Penny", []Suggestion{{ID: "9", Name: "Penny", Value: 1e-300}})
		assert.Nil(t, view.Preview)
	})
}
