// Package universe manages the stocks a bucket can hold and their daily quotes.
package universe

import (
	"errors"
	"time"
)

var (
	ErrStockNotFound   = errors.New("stock not found")
	ErrDuplicateTicker = errors.New("ticker already exists")
	ErrInvalidTicker   = errors.New("ticker must be 1-10 characters of A-Z, 0-9, '.' or '-'")
	ErrInvalidName     = errors.New("stock name is required")
	ErrNegativeQuote   = errors.New("quote value can not be negative")
	// ErrNoQuote is returned when a stock has no quote on or before the requested date.
	ErrNoQuote = errors.New("no quote available")
	// ErrFutureDate is returned when a quote is requested for a date after today.
	ErrFutureDate = errors.New("date is in the future")
)

// Stock is a tradable instrument
type Stock struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyQuote is the closing value of a stock on one calendar day
type DailyQuote struct {
	StockID string    `json:"stock_id"`
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
}
