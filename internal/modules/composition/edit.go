package composition

import (
	"fmt"
)

// BoundaryPolicy decides which boundary of a changed sequence is honored.
type BoundaryPolicy int

const (
	// FirstBoundaryWins applies only the lowest-index difference between the current
	// and proposed boundaries. Any later differences in the same call are ignored; the
	// range control reports one handle moving at a time.
	FirstBoundaryWins BoundaryPolicy = iota
)

// SelectedSuggestion returns the first suggestion whose name equals text exactly.
// Matching is case-sensitive.
func SelectedSuggestion(text string, suggestions []Suggestion) (Suggestion, bool) {
	for _, s := range suggestions {
		if s.Name == text {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Append adds the suggestion named text, sized to take all of the available budget.
// On ErrSuggestionNotFound or ErrNothingAvailable the returned slice equals chunks.
func Append(chunks []Chunk, total float64, text string, suggestions []Suggestion) ([]Chunk, error) {
	s, ok := SelectedSuggestion(text, suggestions)
	if !ok {
		return clone(chunks), fmt.Errorf("%q: %w", text, ErrSuggestionNotFound)
	}
	return AppendSuggestion(chunks, total, s)
}

// AppendSuggestion appends s with quantity available/value.
func AppendSuggestion(chunks []Chunk, total float64, s Suggestion) ([]Chunk, error) {
	if err := ValidateSuggestion(s); err != nil {
		return clone(chunks), err
	}
	available := Available(total, chunks)
	if available <= 0 {
		return clone(chunks), ErrNothingAvailable
	}

	quantity := available / s.Value
	if !finite(quantity) {
		return clone(chunks), fmt.Errorf("%s: %w", s.Name, ErrNotFinite)
	}

	out := make([]Chunk, len(chunks), len(chunks)+1)
	copy(out, chunks)
	return append(out, Chunk{
		ID:       s.ID,
		Name:     s.Name,
		Quantity: quantity,
		Value:    s.Value,
	}), nil
}

// Delete removes the first chunk with the given id. Unknown ids leave the sequence as is.
func Delete(chunks []Chunk, id string) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	removed := false
	for _, c := range chunks {
		if !removed && c.ID == id {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}

// MovedBoundary returns the index of the boundary that moved between prev and next.
// It implements FirstBoundaryWins, the only policy the editor supports. A change at
// the origin (index 0) is not a move and makes the whole call a no-op.
func MovedBoundary(prev, next []float64) (int, bool) {
	for i := range prev {
		if i >= len(next) {
			break
		}
		if prev[i] != next[i] {
			if i == 0 {
				return 0, false
			}
			return i, true
		}
	}
	return 0, false
}

// Reallocate applies a drag of the range control. next is the full boundary sequence
// reported by the control; the chunks on both sides of the moved boundary absorb the
// new gaps, all other chunks keep their quantity.
func Reallocate(chunks []Chunk, next []float64) ([]Chunk, error) {
	return ReallocateFrom(chunks, Boundaries(chunks), next)
}

// ReallocateFrom is Reallocate with the caller's projection of chunks as prev.
func ReallocateFrom(chunks []Chunk, prev, next []float64) ([]Chunk, error) {
	out := clone(chunks)
	if len(prev) != len(chunks)+1 || len(next) != len(prev) {
		return out, fmt.Errorf("%w: %d chunks, %d current, %d proposed",
			ErrBoundaryLength, len(chunks), len(prev), len(next))
	}

	i, moved := MovedBoundary(prev, next)
	if !moved {
		return out, nil
	}

	before := out[i-1]
	before.Quantity = (next[i] - next[i-1]) / before.Value
	out[i-1] = before

	// The last boundary has no chunk after it; the available region absorbs the move.
	if i < len(prev)-1 {
		after := out[i]
		after.Quantity = (next[i+1] - next[i]) / after.Value
		out[i] = after
	}
	return out, nil
}
