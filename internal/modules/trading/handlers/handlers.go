// Package handlers provides HTTP handlers for trading accounts.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/trading"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles trading HTTP requests
type Handler struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(service *trading.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// RegisterRoutes registers trading routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)             // Cash and holdings
			r.Get("/trades", h.HandleTrades)    // Trade history, newest first
			r.Post("/preview", h.HandlePreview) // Invest slider preview
			r.Post("/invest", h.HandleInvest)   // Buy or sell bucket units
		})
	})
}

// HandleList returns the accounts of the requesting profile
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.Accounts(profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
	})
}

type createRequest struct {
	Name        string   `json:"name"`
	OpeningCash *float64 `json:"opening_cash,omitempty"`
}

// HandleCreate opens an account for the requesting profile
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

	account, err := h.service.CreateAccount(profile, req.Name, req.OpeningCash)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// HandleGet returns an account summary
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(chi.URLParam(r, "id"), profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleTrades returns the trades of an account
func (h *Handler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	trades, err := h.service.Trades(chi.URLParam(r, "id"), profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
	})
}

type previewRequest struct {
	BucketID string  `json:"bucket_id"`
	Target   float64 `json:"target"`
}

// HandlePreview returns the effect of moving the invest slider to target
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	preview, err := h.service.Preview(chi.URLParam(r, "id"), profile, req.BucketID, req.Target)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

type investRequest struct {
	BucketID string  `json:"bucket_id"`
	Quantity float64 `json:"quantity"`
}

// HandleInvest buys (positive quantity) or sells units of a bucket
func (h *Handler) HandleInvest(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profile(w, r)
	if !ok {
		return
	}

	var req investRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accountID := chi.URLParam(r, "id")
	trade, err := h.service.InvestBucket(accountID, profile, req.BucketID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	summary, err := h.service.Summary(accountID, profile)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"trade":   trade,
		"account": summary,
	})
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
	case errors.Is(err, trading.ErrAccountNotFound), errors.Is(err, buckets.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trading.ErrDuplicateAccount):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, trading.ErrInsufficientCash),
		errors.Is(err, trading.ErrInsufficientHoldings),
		errors.Is(err, trading.ErrUnpricedBucket):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, trading.ErrInvalidAccountName),
		errors.Is(err, trading.ErrNegativeOpeningCash),
		errors.Is(err, trading.ErrZeroQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Trading request failed")
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
