package composition

import (
	"github.com/shopspring/decimal"
)

// displayPlaces is the number of decimals the editor table shows.
const displayPlaces = 2

// Row is one line of the composition table, formatted for display.
type Row struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	Value      string `json:"value"`
	TotalValue string `json:"total_value"`
}

// AddPreview previews the chunk the add row would create for the typed text.
type AddPreview struct {
	Suggestion Suggestion `json:"suggestion"`
	Quantity   string     `json:"quantity"`
	Value      string     `json:"value"`
	TotalValue string     `json:"total_value"`
}

// View is everything the editor renders for one composition state.
type View struct {
	Total            float64     `json:"total"`
	Chunks           []Chunk     `json:"chunks"`
	Boundaries       []float64   `json:"boundaries"`
	Available        float64     `json:"available"`
	AvailableDisplay string      `json:"available_display"`
	Rows             []Row       `json:"rows"`
	Preview          *AddPreview `json:"preview,omitempty"`
}

// Fixed formats v with the editor's display precision.
func Fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(displayPlaces)
}

// NewView builds the editor view for chunks under total.
func NewView(total float64, chunks []Chunk) View {
	available := Available(total, chunks)
	rows := make([]Row, len(chunks))
	for i, c := range chunks {
		rows[i] = Row{
			ID:         c.ID,
			Name:       c.Name,
			Quantity:   Fixed(c.Quantity),
			Value:      decimal.NewFromFloat(c.Value).String(),
			TotalValue: Fixed(c.Contribution()),
		}
	}
	return View{
		Total:            total,
		Chunks:           clone(chunks),
		Boundaries:       Boundaries(chunks),
		Available:        available,
		AvailableDisplay: Fixed(available),
		Rows:             rows,
	}
}

// WithPreview attaches the add-row preview for text, if text names a suggestion.
func (v View) WithPreview(text string, suggestions []Suggestion) View {
	s, ok := SelectedSuggestion(text, suggestions)
	if !ok || ValidateSuggestion(s) != nil || !finite(v.Available/s.Value) {
		v.Preview = nil
		return v
	}
	v.Preview = &AddPreview{
		Suggestion: s,
		Quantity:   Fixed(v.Available / s.Value),
		Value:      decimal.NewFromFloat(s.Value).String(),
		TotalValue: Fixed(v.Available),
	}
	return v
}
