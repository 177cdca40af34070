// Package handlers provides HTTP handlers for the stock universe.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/modules/universe"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles universe HTTP requests
type Handler struct {
	service     *universe.Service
	searchLimit int
	log         zerolog.Logger
}

// NewHandler creates a new universe handler. searchLimit is the default result
// count of the stock typeahead.
func NewHandler(service *universe.Service, searchLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		service:     service,
		searchLimit: searchLimit,
		log:         log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes registers universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleSearch)       // Typeahead suggestions valued at latest quote
		r.Post("/", h.HandleCreateStock) // Register a stock
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetStock)
			r.Get("/quote", h.HandleLatestQuote) // ?date=YYYY-MM-DD, defaults to today
			r.Get("/quotes", h.HandleGetQuotes)  // ?start=&end=, defaults to the last 30 days
			r.Post("/quotes", h.HandleAddQuote)
		})
	})
}

// HandleSearch returns up to ?first= suggestions whose name contains ?text=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	first := h.searchLimit
	if raw := r.URL.Query().Get("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "first must be a non-negative integer")
			return
		}
		first = n
	}

	suggestions, err := h.service.Suggestions(r.URL.Query().Get("text"), first)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

type createStockRequest struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// HandleCreateStock registers a stock
func (h *Handler) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stock, err := h.service.CreateStock(req.Ticker, req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stock)
}

// HandleGetStock returns one stock
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.GetStock(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stock)
}

// HandleLatestQuote returns the latest quote on or before ?date=
func (h *Handler) HandleLatestQuote(w http.ResponseWriter, r *http.Request) {
	var on *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		on = &date
	}

	quote, err := h.service.LatestQuote(chi.URLParam(r, "id"), on)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quoteResponse(*quote))
}

// HandleGetQuotes returns quotes in a date range, newest first
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = domain.ParseDate(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = domain.ParseDate(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	quotes, err := h.service.QuotesInRange(chi.URLParam(r, "id"), start, end)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]map[string]interface{}, len(quotes))
	for i, q := range quotes {
		out[i] = quoteResponse(q)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": out,
	})
}

type addQuoteRequest struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// HandleAddQuote stores the closing value of a stock for a day
func (h *Handler) HandleAddQuote(w http.ResponseWriter, r *http.Request) {
	var req addQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.service.AddQuote(chi.URLParam(r, "id"), date, req.Value)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, quoteResponse(*quote))
}

func quoteResponse(q universe.DailyQuote) map[string]interface{} {
	return map[string]interface{}{
		"stock_id": q.StockID,
		"date":     domain.FormatDate(q.Date),
		"value":    q.Value,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, universe.ErrStockNotFound), errors.Is(err, universe.ErrNoQuote):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, universe.ErrDuplicateTicker):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, universe.ErrInvalidTicker),
		errors.Is(err, universe.ErrInvalidName),
		errors.Is(err, universe.ErrNegativeQuote),
		errors.Is(err, universe.ErrFutureDate):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Universe request failed")
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
