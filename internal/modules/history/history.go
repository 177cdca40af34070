// Package history records the daily value of every bucket and serves it back
// as the chart data of the invest panel.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/rs/zerolog"
)

// Point is the value of a bucket at the end of one day
type Point struct {
	BucketID string  `json:"bucket_id"`
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
}

// Repository handles value history database operations
// Database: portfolio.db (bucket_value_history table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// Upsert stores the value of a bucket for a day, replacing any earlier snapshot of that day
func (r *Repository) Upsert(point Point) error {
	_, err := r.db.Exec(`
		INSERT INTO bucket_value_history (bucket_id, date, value) VALUES (?, ?, ?)
		ON CONFLICT(bucket_id, date) DO UPDATE SET value = excluded.value
	`, point.BucketID, point.Date, point.Value)
	if err != nil {
		return fmt.Errorf("failed to store value of %s on %s: %w", point.BucketID, point.Date, err)
	}
	return nil
}

// Since returns the points of a bucket dated on or after since, oldest first
func (r *Repository) Since(bucketID string, since time.Time) ([]Point, error) {
	rows, err := r.db.Query(
		"SELECT bucket_id, date, value FROM bucket_value_history WHERE bucket_id = ? AND date >= ? ORDER BY date",
		bucketID, domain.FormatDate(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history of %s: %w", bucketID, err)
	}
	defer rows.Close()

	points := []Point{}
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.BucketID, &p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return points, nil
}

// BucketSource is the part of buckets.Service the history needs
type BucketSource interface {
	All() ([]buckets.Bucket, error)
	Get(id, profile string) (*buckets.Bucket, error)
	CurrentValue(bucket buckets.Bucket) (float64, error)
}

// Service serves bucket value history
type Service struct {
	repo    *Repository
	buckets BucketSource
	log     zerolog.Logger
}

// NewService creates a new history service
func NewService(repo *Repository, buckets BucketSource, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		buckets: buckets,
		log:     log.With().Str("service", "history").Logger(),
	}
}

// History returns the recorded values of a bucket the profile can see
func (s *Service) History(bucketID, profile string, since time.Time) ([]Point, error) {
	if _, err := s.buckets.Get(bucketID, profile); err != nil {
		return nil, err
	}
	return s.repo.Since(bucketID, since)
}
