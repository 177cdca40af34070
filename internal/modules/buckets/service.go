package buckets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/composition"
	"github.com/aristath/riskbucket/internal/modules/universe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// QuoteSource prices stocks. Implemented by universe.Service.
type QuoteSource interface {
	GetStock(id string) (*universe.Stock, error)
	LatestQuote(stockID string, on *time.Time) (*universe.DailyQuote, error)
}

// Service implements bucket operations
type Service struct {
	repo             *Repository
	quotes           QuoteSource
	eventManager     *events.Manager
	defaultAvailable float64
	now              func() time.Time
	log              zerolog.Logger
}

// NewService creates a new bucket service. New buckets start with defaultAvailable cash.
func NewService(repo *Repository, quotes QuoteSource, eventManager *events.Manager, defaultAvailable float64, log zerolog.Logger) *Service {
	return &Service{
		repo:             repo,
		quotes:           quotes,
		eventManager:     eventManager,
		defaultAvailable: defaultAvailable,
		now:              time.Now,
		log:              log.With().Str("service", "buckets").Logger(),
	}
}

// Create creates a bucket owned by owner. A nil available uses the configured default.
func (s *Service) Create(name string, public bool, owner string, available *float64) (*Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	cash := s.defaultAvailable
	if available != nil {
		cash = *available
	}
	if cash < 0 {
		return nil, ErrNegativeAvailable
	}

	bucket := Bucket{
		ID:        uuid.New().String(),
		Name:      name,
		Owner:     owner,
		Public:    public,
		Available: cash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(bucket); err != nil {
		return nil, err
	}

	s.log.Info().Str("bucket_id", bucket.ID).Str("owner", owner).Msg("Bucket created")
	s.emit(&events.BucketData{BucketID: bucket.ID, Name: bucket.Name, Owner: owner})
	return &bucket, nil
}

// Accessible returns the buckets profile owns and all public buckets
func (s *Service) Accessible(profile string) ([]Bucket, error) {
	return s.repo.ListAccessible(profile)
}

// All returns every bucket regardless of owner, for background jobs
func (s *Service) All() ([]Bucket, error) {
	return s.repo.ListAll()
}

// Get returns a bucket profile can see. Private buckets of other profiles are
// reported as ErrNotFound.
func (s *Service) Get(id, profile string) (*Bucket, error) {
	bucket, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if bucket == nil || (!bucket.Public && bucket.Owner != profile) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return bucket, nil
}

func (s *Service) owned(id, profile string) (*Bucket, error) {
	bucket, err := s.Get(id, profile)
	if err != nil {
		return nil, err
	}
	if bucket.Owner != profile {
		return nil, ErrNotOwner
	}
	return bucket, nil
}

// Detail returns a bucket with its value, current configuration and descriptions
func (s *Service) Detail(id, profile string) (*Detail, error) {
	bucket, err := s.Get(id, profile)
	if err != nil {
		return nil, err
	}

	configs, err := s.repo.CurrentConfigs(id)
	if err != nil {
		return nil, err
	}
	descriptions, err := s.repo.Descriptions(id)
	if err != nil {
		return nil, err
	}
	value, err := s.CurrentValue(*bucket)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Bucket:       *bucket,
		Value:        value,
		Editable:     bucket.Owner == profile,
		Configs:      configs,
		Descriptions: descriptions,
	}, nil
}

// Delete removes a bucket. Only its owner may delete it.
func (s *Service) Delete(id, profile string) error {
	bucket, err := s.owned(id, profile)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.log.Info().Str("bucket_id", id).Msg("Bucket deleted")
	s.emit(&events.BucketData{BucketID: id, Name: bucket.Name, Owner: bucket.Owner, Deleted: true})
	return nil
}

// CurrentValue is the bucket's cash plus its current configuration at latest quotes
func (s *Service) CurrentValue(bucket Bucket) (float64, error) {
	configs, err := s.repo.CurrentConfigs(bucket.ID)
	if err != nil {
		return 0, err
	}
	invested, err := s.valueOf(configs, nil)
	if err != nil {
		return 0, err
	}
	return bucket.Available + invested, nil
}

// ValueOn values the configuration active on day at that day's quotes
func (s *Service) ValueOn(id, profile string, day time.Time) (float64, error) {
	if _, err := s.Get(id, profile); err != nil {
		return 0, err
	}
	configs, err := s.repo.ConfigsOn(id, day)
	if err != nil {
		return 0, err
	}
	return s.valueOf(configs, &day)
}

func (s *Service) valueOf(configs []StockConfiguration, on *time.Time) (float64, error) {
	values := make([]float64, len(configs))
	for i, c := range configs {
		quote, err := s.quotes.LatestQuote(c.StockID, on)
		if err != nil {
			return 0, fmt.Errorf("failed to value %s: %w", c.StockID, err)
		}
		values[i] = quote.Value * c.Quantity
	}
	return floats.Sum(values), nil
}

// ChangeConfig replaces the bucket's configuration. The current configuration is
// sold at latest quotes into available cash, then updates are bought from it.
// Buying more than the bucket can pay fails with ErrInsufficientFunds and leaves
// the bucket untouched. Updates for the same stock are merged; zero quantities are
// dropped.
func (s *Service) ChangeConfig(id, profile string, updates []ConfigUpdate) (*Bucket, error) {
	if _, err := s.owned(id, profile); err != nil {
		return nil, err
	}

	merged, err := mergeUpdates(updates)
	if err != nil {
		return nil, err
	}

	buyPrices := make(map[string]float64, len(merged))
	for _, u := range merged {
		if _, err := s.quotes.GetStock(u.StockID); err != nil {
			return nil, err
		}
		quote, err := s.quotes.LatestQuote(u.StockID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", u.StockID, err)
		}
		buyPrices[u.StockID] = quote.Value
	}

	bucket, err := s.repo.ReplaceConfigs(id, domain.Date(s.now()), func(bucket Bucket, current []StockConfiguration) ([]ConfigUpdate, float64, error) {
		sold, err := s.valueOf(current, nil)
		if err != nil {
			return nil, 0, err
		}

		available := bucket.Available + sold
		for _, u := range merged {
			available -= buyPrices[u.StockID] * u.Quantity
		}

		if available < -fundsTolerance {
			return nil, 0, fmt.Errorf("%w: short by %.2f", ErrInsufficientFunds, -available)
		}
		if available < 0 {
			available = 0
		}
		return merged, available, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bucket_id", id).
		Int("configs", len(merged)).
		Float64("available", bucket.Available).
		Msg("Bucket configuration changed")
	s.emit(&events.CompositionChangedData{BucketID: id, Configs: len(merged), Available: bucket.Available})
	return bucket, nil
}

func mergeUpdates(updates []ConfigUpdate) ([]ConfigUpdate, error) {
	merged := make([]ConfigUpdate, 0, len(updates))
	index := make(map[string]int, len(updates))
	for _, u := range updates {
		if u.Quantity < 0 {
			return nil, fmt.Errorf("%s: %w", u.StockID, ErrNegativeQuantity)
		}
		if u.Quantity == 0 {
			continue
		}
		if i, ok := index[u.StockID]; ok {
			merged[i].Quantity += u.Quantity
			continue
		}
		index[u.StockID] = len(merged)
		merged = append(merged, u)
	}
	return merged, nil
}

// Composition returns the editing state of a bucket: one chunk per current
// configuration that has a quote, valued at that quote, under a total of the
// bucket's cash plus the chunks' contributions.
func (s *Service) Composition(id, profile string) (*Composition, error) {
	bucket, err := s.Get(id, profile)
	if err != nil {
		return nil, err
	}

	configs, err := s.repo.CurrentConfigs(id)
	if err != nil {
		return nil, err
	}

	chunks := make([]composition.Chunk, 0, len(configs))
	for _, c := range configs {
		quote, err := s.quotes.LatestQuote(c.StockID, nil)
		if errors.Is(err, universe.ErrNoQuote) {
			s.log.Warn().Str("stock_id", c.StockID).Msg("Configuration without quote left out of composition")
			continue
		}
		if err != nil {
			return nil, err
		}
		stock, err := s.quotes.GetStock(c.StockID)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, composition.Chunk{
			ID:       c.StockID,
			Name:     stock.Name,
			Quantity: c.Quantity,
			Value:    quote.Value,
		})
	}

	if err := composition.ValidateValues(chunks); err != nil {
		return nil, err
	}

	total := bucket.Available + composition.Allocated(chunks)
	return &Composition{
		BucketID: id,
		Editable: bucket.Owner == profile,
		View:     composition.NewView(total, chunks),
	}, nil
}

// SaveComposition commits an edited chunk list as the bucket's new configuration.
// Chunks are re-priced at latest quotes; their Value is not trusted. The priced
// chunks must fit the current composition's total.
func (s *Service) SaveComposition(id, profile string, chunks []composition.Chunk) (*Composition, error) {
	current, err := s.Composition(id, profile)
	if err != nil {
		return nil, err
	}
	if !current.Editable {
		return nil, ErrNotOwner
	}

	priced := make([]composition.Chunk, len(chunks))
	updates := make([]ConfigUpdate, len(chunks))
	for i, c := range chunks {
		if _, err := s.quotes.GetStock(c.ID); err != nil {
			return nil, err
		}
		quote, err := s.quotes.LatestQuote(c.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", c.ID, err)
		}
		c.Value = quote.Value
		priced[i] = c
		updates[i] = ConfigUpdate{StockID: c.ID, Quantity: c.Quantity}
	}
	if err := composition.Validate(priced, current.View.Total); err != nil {
		return nil, err
	}

	if _, err := s.ChangeConfig(id, profile, updates); err != nil {
		return nil, err
	}
	return s.Composition(id, profile)
}

// Descriptions returns the descriptions of a bucket profile can see
func (s *Service) Descriptions(bucketID, profile string) ([]Description, error) {
	if _, err := s.Get(bucketID, profile); err != nil {
		return nil, err
	}
	return s.repo.Descriptions(bucketID)
}

// AddDescription attaches a pro or con to a bucket the profile owns
func (s *Service) AddDescription(bucketID, profile, text string, isGood bool) (*Description, error) {
	if _, err := s.owned(bucketID, profile); err != nil {
		return nil, err
	}
	text, err := validateDescription(text)
	if err != nil {
		return nil, err
	}

	d := Description{ID: uuid.New().String(), BucketID: bucketID, Text: text, IsGood: isGood}
	if err := s.repo.CreateDescription(d); err != nil {
		return nil, err
	}
	s.emit(&events.DescriptionChangedData{BucketID: bucketID, DescriptionID: d.ID, Action: "added"})
	return &d, nil
}

// EditDescription changes the text and polarity of a description
func (s *Service) EditDescription(bucketID, id, profile, text string, isGood bool) (*Description, error) {
	if _, err := s.owned(bucketID, profile); err != nil {
		return nil, err
	}
	text, err := validateDescription(text)
	if err != nil {
		return nil, err
	}

	d, err := s.repo.GetDescription(bucketID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDescriptionNotFound
	}

	d.Text, d.IsGood = text, isGood
	if err := s.repo.UpdateDescription(*d); err != nil {
		return nil, err
	}
	s.emit(&events.DescriptionChangedData{BucketID: bucketID, DescriptionID: id, Action: "edited"})
	return d, nil
}

// DeleteDescription removes a description from a bucket the profile owns
func (s *Service) DeleteDescription(bucketID, id, profile string) error {
	if _, err := s.owned(bucketID, profile); err != nil {
		return err
	}
	d, err := s.repo.GetDescription(bucketID, id)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrDescriptionNotFound
	}
	if err := s.repo.DeleteDescription(bucketID, id); err != nil {
		return err
	}
	s.emit(&events.DescriptionChangedData{BucketID: bucketID, DescriptionID: id, Action: "deleted"})
	return nil
}

func validateDescription(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDescriptionLength {
		return "", ErrDescriptionTooShort
	}
	return text, nil
}

func (s *Service) emit(data events.EventData) {
	if s.eventManager != nil {
		s.eventManager.Emit("buckets", data)
	}
}
