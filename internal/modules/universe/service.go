package universe

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// Service implements the stock universe operations on top of Repository
type Service struct {
	repo *Repository
	now  func() time.Time
	log  zerolog.Logger
}

// NewService creates a new universe service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
		log:  log.With().Str("service", "universe").Logger(),
	}
}

// CreateStock registers a new stock. The ticker is upper-cased before validation.
func (s *Service) CreateStock(ticker, name string) (*Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, ErrInvalidName
	}
	if !tickerPattern.MatchString(ticker) {
		return nil, fmt.Errorf("%q: %w", ticker, ErrInvalidTicker)
	}

	existing, err := s.repo.GetStockByTicker(ticker)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", ticker, ErrDuplicateTicker)
	}

	stock := Stock{
		ID:        uuid.New().String(),
		Ticker:    ticker,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateStock(stock); err != nil {
		return nil, err
	}

	s.log.Info().Str("ticker", ticker).Str("stock_id", stock.ID).Msg("Stock created")
	return &stock, nil
}

// GetStock returns a stock or ErrStockNotFound
func (s *Service) GetStock(id string) (*Stock, error) {
	stock, err := s.repo.GetStock(id)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrStockNotFound)
	}
	return stock, nil
}

// AddQuote records the closing value of a stock for a day
func (s *Service) AddQuote(stockID string, date time.Time, value float64) (*DailyQuote, error) {
	if value < 0 {
		return nil, ErrNegativeQuote
	}
	if _, err := s.GetStock(stockID); err != nil {
		return nil, err
	}

	quote := DailyQuote{StockID: stockID, Date: domain.Date(date), Value: value}
	if err := s.repo.UpsertQuote(quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// LatestQuote returns the most recent quote on or before on; nil means today.
func (s *Service) LatestQuote(stockID string, on *time.Time) (*DailyQuote, error) {
	today := domain.Date(s.now())
	day := today
	if on != nil {
		day = domain.Date(*on)
		if day.After(today) {
			return nil, fmt.Errorf("%s: %w", domain.FormatDate(day), ErrFutureDate)
		}
	}

	quote, err := s.repo.LatestQuote(stockID, day)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, fmt.Errorf("stock %s on %s: %w", stockID, domain.FormatDate(day), ErrNoQuote)
	}
	return quote, nil
}

// FindStocks returns up to first stocks whose name contains text
func (s *Service) FindStocks(text string, first int) ([]Stock, error) {
	if first <= 0 {
		return []Stock{}, nil
	}
	return s.repo.FindStocks(strings.TrimSpace(text), first)
}

// Suggestions returns the typeahead candidates for text, valued at their latest quote.
// Stocks without a quote can not be sized and are left out.
func (s *Service) Suggestions(text string, first int) ([]composition.Suggestion, error) {
	stocks, err := s.FindStocks(text, first)
	if err != nil {
		return nil, err
	}

	suggestions := make([]composition.Suggestion, 0, len(stocks))
	for _, stock := range stocks {
		quote, err := s.LatestQuote(stock.ID, nil)
		if errors.Is(err, ErrNoQuote) {
			continue
		}
		if err != nil {
			return nil, err
		}

		suggestion := composition.Suggestion{ID: stock.ID, Name: stock.Name, Value: quote.Value}
		if composition.ValidateSuggestion(suggestion) != nil {
			s.log.Debug().Str("stock_id", stock.ID).Msg("Skipping zero-valued suggestion")
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// QuotesInRange returns the quotes of a stock between start and end, newest first
func (s *Service) QuotesInRange(stockID string, start, end time.Time) ([]DailyQuote, error) {
	if end.Before(start) {
		start, end = end, start
	}
	quotes, err := s.repo.QuotesInRange(stockID, start, end)
	if err != nil {
		return nil, err
	}
	if quotes == nil {
		quotes = []DailyQuote{}
	}
	return quotes, nil
}
