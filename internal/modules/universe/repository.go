package universe

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles stock and quote database operations
// Database: universe.db (stocks, daily_quotes tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new universe repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "universe").Logger(),
	}
}

// CreateStock inserts a stock
func (r *Repository) CreateStock(stock Stock) error {
	_, err := r.db.Exec(
		"INSERT INTO stocks (id, ticker, name, created_at) VALUES (?, ?, ?, ?)",
		stock.ID, stock.Ticker, stock.Name, stock.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock %s: %w", stock.Ticker, err)
	}
	return nil
}

// GetStock returns the stock with the given id, or nil if none exists
func (r *Repository) GetStock(id string) (*Stock, error) {
	return r.scanStock(r.db.QueryRow("SELECT id, ticker, name, created_at FROM stocks WHERE id = ?", id))
}

// GetStockByTicker returns the stock with the given ticker, or nil if none exists
func (r *Repository) GetStockByTicker(ticker string) (*Stock, error) {
	return r.scanStock(r.db.QueryRow("SELECT id, ticker, name, created_at FROM stocks WHERE ticker = ?", ticker))
}

func (r *Repository) scanStock(row *sql.Row) (*Stock, error) {
	var stock Stock
	var createdAt int64
	err := row.Scan(&stock.ID, &stock.Ticker, &stock.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock: %w", err)
	}
	stock.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &stock, nil
}

// FindStocks returns up to limit stocks whose name contains text, ignoring ASCII case
func (r *Repository) FindStocks(text string, limit int) ([]Stock, error) {
	query := `
		SELECT id, ticker, name, created_at FROM stocks
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name, ticker
		LIMIT ?
	`
	rows, err := r.db.Query(query, "%"+escapeLike(text)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]Stock, 0, limit)
	for rows.Next() {
		var stock Stock
		var createdAt int64
		if err := rows.Scan(&stock.ID, &stock.Ticker, &stock.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stock.CreatedAt = time.Unix(createdAt, 0).UTC()
		stocks = append(stocks, stock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}
	return stocks, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpsertQuote stores the quote for its day, replacing any existing value
func (r *Repository) UpsertQuote(quote DailyQuote) error {
	_, err := r.db.Exec(`
		INSERT INTO daily_quotes (stock_id, date, value) VALUES (?, ?, ?)
		ON CONFLICT(stock_id, date) DO UPDATE SET value = excluded.value
	`, quote.StockID, domain.FormatDate(quote.Date), quote.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert quote for %s: %w", quote.StockID, err)
	}
	return nil
}

// LatestQuote returns the most recent quote dated on or before day, or nil if none exists
func (r *Repository) LatestQuote(stockID string, day time.Time) (*DailyQuote, error) {
	var date string
	quote := DailyQuote{StockID: stockID}
	err := r.db.QueryRow(`
		SELECT date, value FROM daily_quotes
		WHERE stock_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, stockID, domain.FormatDate(day)).Scan(&date, &quote.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest quote for %s: %w", stockID, err)
	}
	if quote.Date, err = domain.ParseDate(date); err != nil {
		return nil, err
	}
	return &quote, nil
}

// QuotesInRange returns quotes dated within [start, end], newest first
func (r *Repository) QuotesInRange(stockID string, start, end time.Time) ([]DailyQuote, error) {
	rows, err := r.db.Query(`
		SELECT date, value FROM daily_quotes
		WHERE stock_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
	`, stockID, domain.FormatDate(start), domain.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes for %s: %w", stockID, err)
	}
	defer rows.Close()

	var quotes []DailyQuote
	for rows.Next() {
		var date string
		quote := DailyQuote{StockID: stockID}
		if err := rows.Scan(&date, &quote.Value); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		if quote.Date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}
	return quotes, nil
}
