// Package handlers exposes the composition editor over HTTP. The editor holds
// no state: every request carries the current chunks and total, and the
// response carries the replacement list and its view.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SuggestionSource resolves the add-row text to candidate instruments.
// Implemented by universe.Service.
type SuggestionSource interface {
	Suggestions(text string, first int) ([]composition.Suggestion, error)
}

// Handler handles composition editor requests
type Handler struct {
	suggestions SuggestionSource
	searchLimit int
	log         zerolog.Logger
}

// NewHandler creates a new composition handler
func NewHandler(suggestions SuggestionSource, searchLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		suggestions: suggestions,
		searchLimit: searchLimit,
		log:         log.With().Str("handler", "composition").Logger(),
	}
}

// RegisterRoutes registers composition routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/composition", func(r chi.Router) {
		r.Post("/boundaries", h.HandleBoundaries)
		r.Post("/preview", h.HandlePreview) // Add-row preview for the typed text
		r.Post("/append", h.HandleAppend)
		r.Post("/delete", h.HandleDelete)
		r.Post("/reallocate", h.HandleReallocate)
	})
}

type editRequest struct {
	Total       float64                  `json:"total"`
	Chunks      []composition.Chunk      `json:"chunks"`
	Text        string                   `json:"text,omitempty"`
	Suggestions []composition.Suggestion `json:"suggestions,omitempty"`
	ID          string                   `json:"id,omitempty"`
	Previous    []float64                `json:"previous,omitempty"`
	Boundaries  []float64                `json:"boundaries,omitempty"`
}

type editResponse struct {
	Applied bool             `json:"applied"`
	Reason  string           `json:"reason,omitempty"`
	View    composition.View `json:"view"`
}

// HandleBoundaries returns the view of the posted composition
func (h *Handler) HandleBoundaries(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, composition.NewView(req.Total, req.Chunks))
}

// HandlePreview returns the view with the add-row preview for the typed text
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	suggestions, err := h.resolve(req)
	if err != nil {
		h.log.Error().Err(err).Str("text", req.Text).Msg("Failed to load suggestions")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	view := composition.NewView(req.Total, req.Chunks).WithPreview(req.Text, suggestions)
	h.writeJSON(w, http.StatusOK, view)
}

// HandleAppend adds the suggestion named by text with all of the available budget
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	suggestions, err := h.resolve(req)
	if err != nil {
		h.log.Error().Err(err).Str("text", req.Text).Msg("Failed to load suggestions")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chunks, err := composition.Append(req.Chunks, req.Total, req.Text, suggestions)
	switch {
	case errors.Is(err, composition.ErrSuggestionNotFound), errors.Is(err, composition.ErrNothingAvailable):
		h.writeEdit(w, req.Total, chunks, false, err.Error())
	case err != nil:
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeEdit(w, req.Total, chunks, true, "")
	}
}

// HandleDelete removes the first chunk with the posted id
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	chunks := composition.Delete(req.Chunks, req.ID)
	if len(chunks) == len(req.Chunks) {
		h.writeEdit(w, req.Total, chunks, false, "no chunk with id "+req.ID)
		return
	}
	h.writeEdit(w, req.Total, chunks, true, "")
}

// HandleReallocate applies a drag of the range control. previous, when posted,
// is the boundary sequence the control was showing before the drag.
func (h *Handler) HandleReallocate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	prev := req.Previous
	if prev == nil {
		prev = composition.Boundaries(req.Chunks)
	}
	chunks, err := composition.ReallocateFrom(req.Chunks, prev, req.Boundaries)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, moved := composition.MovedBoundary(prev, req.Boundaries); !moved {
		h.writeEdit(w, req.Total, chunks, false, "no boundary moved")
		return
	}
	h.writeEdit(w, req.Total, chunks, true, "")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*editRequest, bool) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := validate(req.Total, req.Chunks); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// resolve returns the posted suggestions, or searches for text when none were posted.
func (h *Handler) resolve(req *editRequest) ([]composition.Suggestion, error) {
	if req.Suggestions != nil || req.Text == "" {
		return req.Suggestions, nil
	}
	return h.suggestions.Suggestions(req.Text, h.searchLimit)
}

// validate rejects compositions the view can not render.
func validate(total float64, chunks []composition.Chunk) error {
	if err := composition.ValidateValues(chunks); err != nil {
		return err
	}
	return composition.ValidateTotal(total, chunks)
}

// writeEdit writes the edited composition. An edit whose result overflows is
// rejected with 400.
func (h *Handler) writeEdit(w http.ResponseWriter, total float64, chunks []composition.Chunk, applied bool, reason string) {
	if err := validate(total, chunks); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, editResponse{
		Applied: applied,
		Reason:  reason,
		View:    composition.NewView(total, chunks),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
