package composition

import (
	"gonum.org/v1/gonum/floats"
)

func contributions(chunks []Chunk) []float64 {
	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = c.Contribution()
	}
	return out
}

// Boundaries projects chunks onto the cumulative value axis the range control works in.
// The result has len(chunks)+1 entries: 0, then the running sum of contributions.
func Boundaries(chunks []Chunk) []float64 {
	bounds := make([]float64, len(chunks)+1)
	if len(chunks) == 0 {
		return bounds
	}
	floats.CumSum(bounds[1:], contributions(chunks))
	return bounds
}

// Allocated returns the part of the budget assigned to chunks.
func Allocated(chunks []Chunk) float64 {
	return floats.Sum(contributions(chunks))
}

// Available returns the unallocated remainder of total.
func Available(total float64, chunks []Chunk) float64 {
	return total - Allocated(chunks)
}
