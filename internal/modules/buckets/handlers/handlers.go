// Package handlers provides HTTP handlers for bucket management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/aristath/riskbucket/internal/modules/history"
	"github.com/aristath/riskbucket/internal/modules/universe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// HistorySource provides the value history of a bucket
type HistorySource interface {
	History(bucketID, profile string, since time.Time) ([]history.Point, error)
}

// Handler handles bucket HTTP requests
type Handler struct {
	service *buckets.Service
	history HistorySource
	log     zerolog.Logger
}

// NewHandler creates a new bucket handler
func NewHandler(service *buckets.Service, history HistorySource, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		history: history,
		log:     log.With().Str("handler", "buckets").Logger(),
	}
}

// RegisterRoutes registers bucket routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/buckets", func(r chi.Router) {
		r.Get("/", h.HandleList)    // Own and public buckets
		r.Post("/", h.HandleCreate) // Create a bucket
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Get("/value", h.HandleGetValue)     // ?date=YYYY-MM-DD, defaults to now
			r.Get("/history", h.HandleGetHistory) // ?since=YYYY-MM-DD, defaults to one year

			r.Get("/composition", h.HandleGetComposition)
			r.Put("/composition", h.HandleSaveComposition)

			r.Post("/descriptions", h.HandleAddDescription)
			r.Put("/descriptions/{descID}", h.HandleEditDescription)
			r.Delete("/descriptions/{descID}", h.HandleDeleteDescription)
		})
	})
}

// HandleList returns the buckets the profile can see
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	list, err := h.service.Accessible(profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"buckets": list,
	})
}

type createRequest struct {
	Name      string   `json:"name"`
	Public    bool     `json:"public"`
	Available *float64 `json:"available,omitempty"`
}

// HandleCreate creates a bucket owned by the requesting profile
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bucket, err := h.service.Create(req.Name, req.Public, profile, req.Available)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, bucket)
}

// HandleGet returns a bucket with its value, configuration and descriptions
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Detail(chi.URLParam(r, "id"), profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// HandleDelete deletes a bucket
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(chi.URLParam(r, "id"), profile); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetValue returns the current value, or the value of the configuration active on ?date=
func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := domain.ParseDate(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		value, err := h.service.ValueOn(id, profile, day)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"date":  raw,
			"value": value,
		})
		return
	}

	bucket, err := h.service.Get(id, profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	value, err := h.service.CurrentValue(*bucket)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"value":         value,
		"value_display": composition.Fixed(value),
	})
}

// HandleGetHistory returns the recorded daily values of a bucket
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	since := time.Now().AddDate(-1, 0, 0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		var err error
		if since, err = domain.ParseDate(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	points, err := h.history.History(chi.URLParam(r, "id"), profile, since)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": points,
	})
}

// HandleGetComposition returns the editing state of the bucket's configuration
func (h *Handler) HandleGetComposition(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	state, err := h.service.Composition(chi.URLParam(r, "id"), profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

type saveCompositionRequest struct {
	Chunks []composition.Chunk `json:"chunks"`
}

// HandleSaveComposition commits the edited chunk list as the bucket's configuration
func (h *Handler) HandleSaveComposition(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req saveCompositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := h.service.SaveComposition(chi.URLParam(r, "id"), profile, req.Chunks)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

type descriptionRequest struct {
	Text   string `json:"text"`
	IsGood bool   `json:"is_good"`
}

// HandleAddDescription attaches a pro or con to a bucket
func (h *Handler) HandleAddDescription(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := h.service.AddDescription(chi.URLParam(r, "id"), profile, req.Text, req.IsGood)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, d)
}

// HandleEditDescription rewrites a description
func (h *Handler) HandleEditDescription(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := h.service.EditDescription(chi.URLParam(r, "id"), chi.URLParam(r, "descID"), profile, req.Text, req.IsGood)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// HandleDeleteDescription removes a description
func (h *Handler) HandleDeleteDescription(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDescription(chi.URLParam(r, "id"), chi.URLParam(r, "descID"), profile); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (string, bool) {
	profile, err := domain.ProfileFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err.Error())
		return "", false
	}
	return profile, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, buckets.ErrNotFound),
		errors.Is(err, buckets.ErrDescriptionNotFound),
		errors.Is(err, universe.ErrStockNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, buckets.ErrNotOwner):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, buckets.ErrDuplicateName),
		errors.Is(err, buckets.ErrDuplicateDescription),
		errors.Is(err, buckets.ErrStillHeld):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, buckets.ErrInsufficientFunds),
		errors.Is(err, composition.ErrOverAllocated),
		errors.Is(err, universe.ErrNoQuote):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, buckets.ErrInvalidName),
		errors.Is(err, buckets.ErrNegativeAvailable),
		errors.Is(err, buckets.ErrNegativeQuantity),
		errors.Is(err, buckets.ErrDescriptionTooShort),
		errors.Is(err, universe.ErrFutureDate),
		errors.Is(err, composition.ErrNonPositiveValue),
		errors.Is(err, composition.ErrNegativeQuantity),
		errors.Is(err, composition.ErrNotFinite):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Bucket request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
