package trading

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BucketPricer values buckets. Implemented by buckets.Service.
type BucketPricer interface {
	Get(id, profile string) (*buckets.Bucket, error)
	CurrentValue(bucket buckets.Bucket) (float64, error)
}

// Service implements trading account operations
type Service struct {
	repo         *Repository
	buckets      BucketPricer
	eventManager *events.Manager
	defaultCash  float64
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new trading service. New accounts open with defaultCash.
func NewService(repo *Repository, buckets BucketPricer, eventManager *events.Manager, defaultCash float64, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		buckets:      buckets,
		eventManager: eventManager,
		defaultCash:  defaultCash,
		now:          time.Now,
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// CreateAccount opens an account for profile. A nil openingCash uses the configured default.
func (s *Service) CreateAccount(profile, name string, openingCash *float64) (*Account, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxAccountNameLength {
		return nil, ErrInvalidAccountName
	}

	cash := s.defaultCash
	if openingCash != nil {
		cash = *openingCash
	}
	if cash < 0 {
		return nil, ErrNegativeOpeningCash
	}

	account := Account{
		ID:          uuid.New().String(),
		Name:        name,
		Profile:     profile,
		OpeningCash: cash,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateAccount(account); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID).Str("profile", profile).Msg("Trading account created")
	return &account, nil
}

// Accounts returns the accounts of profile
func (s *Service) Accounts(profile string) ([]Account, error) {
	return s.repo.ListAccounts(profile)
}

// Account returns an account of profile. Other profiles' accounts are not found.
func (s *Service) Account(id, profile string) (*Account, error) {
	account, err := s.repo.GetAccount(id)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Profile != profile {
		return nil, fmt.Errorf("%s: %w", id, ErrAccountNotFound)
	}
	return account, nil
}

// Summary returns an account with its available cash and holdings
func (s *Service) Summary(id, profile string) (*Summary, error) {
	account, err := s.Account(id, profile)
	if err != nil {
		return nil, err
	}
	cash, err := s.repo.AvailableCash(id)
	if err != nil {
		return nil, err
	}
	holdings, err := s.repo.Holdings(id)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Account:              *account,
		AvailableCash:        cash,
		AvailableCashDisplay: composition.Fixed(cash),
		Holdings:             holdings,
	}, nil
}

// Trades returns the trades of an account, newest first
func (s *Service) Trades(id, profile string) ([]Trade, error) {
	if _, err := s.Account(id, profile); err != nil {
		return nil, err
	}
	return s.repo.Trades(id)
}

// PreviewInvestment computes the effect of setting the total invested in a bucket
// to target. The slider ranges over [0, available + owned*unitValue]; target is
// clamped to it.
func PreviewInvestment(available, unitValue, owned, target float64) Preview {
	ownedValue := owned * unitValue
	ceiling := available + ownedValue
	target = math.Max(0, math.Min(target, ceiling))

	invested := target - ownedValue
	var additional float64
	if unitValue > 0 {
		additional = invested / unitValue
	}

	action := SideHold
	switch {
	case invested > 0:
		action = SideBuy
	case invested < 0:
		action = SideSell
	}

	remaining := available - invested
	return Preview{
		UnitValue:          unitValue,
		Owned:              owned,
		OwnedValue:         ownedValue,
		Max:                ceiling,
		Target:             target,
		Invested:           invested,
		AdditionalQuantity: additional,
		Remaining:          remaining,
		Action:             action,
		InvestedDisplay:    composition.Fixed(math.Abs(invested)),
		RemainingDisplay:   composition.Fixed(remaining),
	}
}

// Preview runs PreviewInvestment for an account and a bucket at its current value
func (s *Service) Preview(accountID, profile, bucketID string, target float64) (*Preview, error) {
	if _, err := s.Account(accountID, profile); err != nil {
		return nil, err
	}
	unitValue, err := s.unitValue(bucketID, profile)
	if err != nil {
		return nil, err
	}
	cash, err := s.repo.AvailableCash(accountID)
	if err != nil {
		return nil, err
	}
	owned, err := s.repo.OwnedAmount(accountID, bucketID)
	if err != nil {
		return nil, err
	}

	preview := PreviewInvestment(cash, unitValue, owned, target)
	return &preview, nil
}

func (s *Service) unitValue(bucketID, profile string) (float64, error) {
	bucket, err := s.buckets.Get(bucketID, profile)
	if err != nil {
		return 0, err
	}
	value, err := s.buckets.CurrentValue(*bucket)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s: %w", bucketID, ErrUnpricedBucket)
	}
	return value, nil
}

// InvestBucket buys (quantity > 0) or sells units of a bucket at its current value
func (s *Service) InvestBucket(accountID, profile, bucketID string, quantity float64) (*Trade, error) {
	if quantity == 0 {
		return nil, ErrZeroQuantity
	}
	if _, err := s.Account(accountID, profile); err != nil {
		return nil, err
	}
	price, err := s.unitValue(bucketID, profile)
	if err != nil {
		return nil, err
	}

	trade := Trade{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		BucketID:   bucketID,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: s.now().UTC(),
	}

	err = s.repo.RecordTrade(trade, func(cash, owned float64) error {
		if cost := quantity * price; cost > cash+cashTolerance {
			return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cost, cash)
		}
		if quantity < 0 && -quantity > owned+cashTolerance {
			return fmt.Errorf("%w: selling %g, own %g", ErrInsufficientHoldings, -quantity, owned)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("bucket_id", bucketID).
		Float64("quantity", quantity).
		Float64("price", price).
		Msg("Bucket trade executed")

	if s.eventManager != nil {
		s.eventManager.Emit("trading", &events.TradeExecutedData{
			TradeID:   trade.ID,
			AccountID: accountID,
			BucketID:  bucketID,
			Side:      trade.Side(),
			Quantity:  quantity,
			Price:     price,
		})
	}
	return &trade, nil
}
