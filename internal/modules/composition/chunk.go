// Package composition implements the bucket composition editor: the ordered list of
// portfolio slices ("chunks") held by a bucket, the cumulative boundary view a range
// control drags, and the edits the editor supports (append, delete, reallocate).
//
// Every function is pure: it receives the current chunk sequence and returns a new one.
// Input slices are never written to.
package composition

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSuggestionNotFound is returned when the typed text matches no suggestion.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrNothingAvailable is returned when the whole budget is already allocated.
	ErrNothingAvailable = errors.New("nothing available to allocate")
	// ErrNonPositiveValue is returned for a suggestion or chunk priced at or below zero.
	ErrNonPositiveValue = errors.New("value must be positive")
	// ErrNegativeQuantity is returned by Validate for a chunk with quantity below zero.
	ErrNegativeQuantity = errors.New("quantity can not be negative")
	// ErrOverAllocated is returned by Validate when chunks exceed the total budget.
	ErrOverAllocated = errors.New("allocation exceeds total")
	// ErrBoundaryLength is returned when a boundary sequence does not match the chunks.
	ErrBoundaryLength = errors.New("boundary length mismatch")
	// ErrNotFinite is returned for amounts that overflow to infinity or are NaN.
	ErrNotFinite = errors.New("amount is not a finite number")
)

// allocationTolerance absorbs float noise from slider steps when checking the budget.
const allocationTolerance = 1e-6

// Chunk is one slice of a bucket: a quantity of an instrument priced at Value per unit.
type Chunk struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}

// Contribution returns the chunk's share of the budget.
func (c Chunk) Contribution() float64 {
	return c.Quantity * c.Value
}

// Suggestion is a candidate instrument offered by the stock search.
type Suggestion struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Portfolio is the editing state owned by the host: a fixed budget and its chunks.
type Portfolio struct {
	Total  float64 `json:"total"`
	Chunks []Chunk `json:"chunks"`
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ValidateSuggestion rejects suggestions that can not become chunks.
func ValidateSuggestion(s Suggestion) error {
	if !finite(s.Value) {
		return fmt.Errorf("%s: %w", s.Name, ErrNotFinite)
	}
	if s.Value <= 0 {
		return fmt.Errorf("%s: %w", s.Name, ErrNonPositiveValue)
	}
	return nil
}

// ValidateValues rejects chunks priced at or below zero, and chunks whose amounts
// or running allocation are not finite. Chunks built from untrusted input go
// through it before any edit is applied.
func ValidateValues(chunks []Chunk) error {
	allocated := 0.0
	for _, c := range chunks {
		if !finite(c.Value) || !finite(c.Quantity) {
			return fmt.Errorf("chunk %s: %w", c.ID, ErrNotFinite)
		}
		if c.Value <= 0 {
			return fmt.Errorf("chunk %s: %w", c.ID, ErrNonPositiveValue)
		}
		allocated += c.Contribution()
		if !finite(allocated) {
			return fmt.Errorf("chunk %s: %w", c.ID, ErrNotFinite)
		}
	}
	return nil
}

// ValidateTotal rejects a budget that is not finite or whose available amount
// overflows for chunks.
func ValidateTotal(total float64, chunks []Chunk) error {
	if !finite(total) || !finite(Available(total, chunks)) {
		return fmt.Errorf("total: %w", ErrNotFinite)
	}
	return nil
}

// Validate checks the data model invariants before a composition is committed:
// positive unit values, non-negative quantities and sum(contribution) <= total.
func Validate(chunks []Chunk, total float64) error {
	if err := ValidateValues(chunks); err != nil {
		return err
	}
	if err := ValidateTotal(total, chunks); err != nil {
		return err
	}
	for _, c := range chunks {
		if c.Quantity < 0 {
			return fmt.Errorf("chunk %s: %w", c.ID, ErrNegativeQuantity)
		}
	}
	if available := Available(total, chunks); available < -allocationTolerance {
		return fmt.Errorf("%w by %.2f", ErrOverAllocated, -available)
	}
	return nil
}

// clone returns a copy of chunks that shares no backing array with the input.
func clone(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	return out
}
