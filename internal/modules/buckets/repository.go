package buckets

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/riskbucket/internal/database"
	"github.com/aristath/riskbucket/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ReplacePlan computes the configuration that replaces current, and the bucket's
// available cash afterwards. It runs inside the replacing transaction.
type ReplacePlan func(bucket Bucket, current []StockConfiguration) ([]ConfigUpdate, float64, error)

// Repository handles bucket database operations
// Database: portfolio.db (buckets, stock_configurations, bucket_descriptions tables;
// bucket_trades is read to guard deletion)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new bucket repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "buckets").Logger(),
	}
}

const bucketColumns = "id, name, owner, public, available, created_at"

// Create inserts a bucket
func (r *Repository) Create(bucket Bucket) error {
	_, err := r.db.Exec(
		"INSERT INTO buckets ("+bucketColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		bucket.ID, bucket.Name, bucket.Owner, boolToInt(bucket.Public), bucket.Available, bucket.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", bucket.Name, ErrDuplicateName)
		}
		return fmt.Errorf("failed to insert bucket %s: %w", bucket.Name, err)
	}
	return nil
}

// Get returns the bucket with the given id, or nil if none exists
func (r *Repository) Get(id string) (*Bucket, error) {
	return getBucket(r.db, id)
}

func getBucket(q querier, id string) (*Bucket, error) {
	rows, err := q.Query("SELECT "+bucketColumns+" FROM buckets WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket %s: %w", id, err)
	}
	buckets, err := scanBuckets(rows)
	if err != nil || len(buckets) == 0 {
		return nil, err
	}
	return &buckets[0], nil
}

// ListAccessible returns the buckets profile owns plus every public bucket, by name
func (r *Repository) ListAccessible(profile string) ([]Bucket, error) {
	rows, err := r.db.Query(
		"SELECT "+bucketColumns+" FROM buckets WHERE owner = ? OR public = 1 ORDER BY name, id",
		profile,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	return scanBuckets(rows)
}

// ListAll returns every bucket
func (r *Repository) ListAll() ([]Bucket, error) {
	rows, err := r.db.Query("SELECT " + bucketColumns + " FROM buckets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	return scanBuckets(rows)
}

func scanBuckets(rows *sql.Rows) ([]Bucket, error) {
	defer rows.Close()

	buckets := []Bucket{}
	for rows.Next() {
		var b Bucket
		var public int
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.Name, &b.Owner, &public, &b.Available, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		b.Public = public != 0
		b.CreatedAt = time.Unix(createdAt, 0).UTC()
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}
	return buckets, nil
}

// Delete removes a bucket with its configurations, descriptions and value history.
// A bucket some account still holds units of is kept and ErrStillHeld is returned.
func (r *Repository) Delete(id string) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var holders int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM (
				SELECT account_id FROM bucket_trades
				WHERE bucket_id = ?
				GROUP BY account_id
				HAVING SUM(quantity) > ?
			)`, id, fundsTolerance).Scan(&holders)
		if err != nil {
			return fmt.Errorf("failed to count holders of bucket %s: %w", id, err)
		}
		if holders > 0 {
			return fmt.Errorf("%d accounts: %w", holders, ErrStillHeld)
		}

		if _, err := tx.Exec("DELETE FROM buckets WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete bucket %s: %w", id, err)
		}
		return nil
	})
}

const configColumns = "id, bucket_id, stock_id, quantity, start_date, end_date"

// CurrentConfigs returns the configurations of a bucket that have not ended
func (r *Repository) CurrentConfigs(bucketID string) ([]StockConfiguration, error) {
	return currentConfigs(r.db, bucketID)
}

func currentConfigs(q querier, bucketID string) ([]StockConfiguration, error) {
	rows, err := q.Query(
		"SELECT "+configColumns+" FROM stock_configurations WHERE bucket_id = ? AND end_date IS NULL ORDER BY rowid",
		bucketID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations for %s: %w", bucketID, err)
	}
	return scanConfigs(rows)
}

// ConfigsOn returns the configurations active on day: started on or before it and
// not ended by it.
func (r *Repository) ConfigsOn(bucketID string, day time.Time) ([]StockConfiguration, error) {
	date := domain.FormatDate(day)
	rows, err := r.db.Query(`
		SELECT `+configColumns+` FROM stock_configurations
		WHERE bucket_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date > ?)
		ORDER BY rowid
	`, bucketID, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations for %s: %w", bucketID, err)
	}
	return scanConfigs(rows)
}

func scanConfigs(rows *sql.Rows) ([]StockConfiguration, error) {
	defer rows.Close()

	configs := []StockConfiguration{}
	for rows.Next() {
		var c StockConfiguration
		var start string
		var end sql.NullString
		if err := rows.Scan(&c.ID, &c.BucketID, &c.StockID, &c.Quantity, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		var err error
		if c.Start, err = domain.ParseDate(start); err != nil {
			return nil, err
		}
		if end.Valid {
			endDate, err := domain.ParseDate(end.String)
			if err != nil {
				return nil, err
			}
			c.End = &endDate
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configurations: %w", err)
	}
	return configs, nil
}

// ReplaceConfigs ends the current configurations of a bucket on day and stores the
// ones plan returns, starting on day, in a single transaction.
func (r *Repository) ReplaceConfigs(bucketID string, day time.Time, plan ReplacePlan) (*Bucket, error) {
	var updated *Bucket
	date := domain.FormatDate(day)

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		bucket, err := getBucket(tx, bucketID)
		if err != nil {
			return err
		}
		if bucket == nil {
			return fmt.Errorf("%s: %w", bucketID, ErrNotFound)
		}

		current, err := currentConfigs(tx, bucketID)
		if err != nil {
			return err
		}

		next, available, err := plan(*bucket, current)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			"UPDATE stock_configurations SET end_date = ? WHERE bucket_id = ? AND end_date IS NULL",
			date, bucketID,
		); err != nil {
			return fmt.Errorf("failed to end configurations: %w", err)
		}

		for _, u := range next {
			if _, err := tx.Exec(
				"INSERT INTO stock_configurations ("+configColumns+") VALUES (?, ?, ?, ?, ?, NULL)",
				uuid.New().String(), bucketID, u.StockID, u.Quantity, date,
			); err != nil {
				return fmt.Errorf("failed to insert configuration for %s: %w", u.StockID, err)
			}
		}

		if _, err := tx.Exec("UPDATE buckets SET available = ? WHERE id = ?", available, bucketID); err != nil {
			return fmt.Errorf("failed to update available cash: %w", err)
		}

		bucket.Available = available
		updated = bucket
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Debug().Str("bucket_id", bucketID).Float64("available", updated.Available).Msg("Configuration replaced")
	return updated, nil
}

// Descriptions returns the descriptions of a bucket, pros first
func (r *Repository) Descriptions(bucketID string) ([]Description, error) {
	rows, err := r.db.Query(
		"SELECT id, bucket_id, text, is_good FROM bucket_descriptions WHERE bucket_id = ? ORDER BY is_good DESC, rowid",
		bucketID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query descriptions: %w", err)
	}
	defer rows.Close()

	descriptions := []Description{}
	for rows.Next() {
		var d Description
		var isGood int
		if err := rows.Scan(&d.ID, &d.BucketID, &d.Text, &isGood); err != nil {
			return nil, fmt.Errorf("failed to scan description: %w", err)
		}
		d.IsGood = isGood != 0
		descriptions = append(descriptions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating descriptions: %w", err)
	}
	return descriptions, nil
}

// GetDescription returns a description of a bucket, or nil if none exists
func (r *Repository) GetDescription(bucketID, id string) (*Description, error) {
	var d Description
	var isGood int
	err := r.db.QueryRow(
		"SELECT id, bucket_id, text, is_good FROM bucket_descriptions WHERE id = ? AND bucket_id = ?",
		id, bucketID,
	).Scan(&d.ID, &d.BucketID, &d.Text, &isGood)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query description %s: %w", id, err)
	}
	d.IsGood = isGood != 0
	return &d, nil
}

// CreateDescription inserts a description
func (r *Repository) CreateDescription(d Description) error {
	_, err := r.db.Exec(
		"INSERT INTO bucket_descriptions (id, bucket_id, text, is_good) VALUES (?, ?, ?, ?)",
		d.ID, d.BucketID, d.Text, boolToInt(d.IsGood),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDescription
		}
		return fmt.Errorf("failed to insert description: %w", err)
	}
	return nil
}

// UpdateDescription rewrites the text and polarity of a description
func (r *Repository) UpdateDescription(d Description) error {
	_, err := r.db.Exec(
		"UPDATE bucket_descriptions SET text = ?, is_good = ? WHERE id = ? AND bucket_id = ?",
		d.Text, boolToInt(d.IsGood), d.ID, d.BucketID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDescription
		}
		return fmt.Errorf("failed to update description %s: %w", d.ID, err)
	}
	return nil
}

// DeleteDescription removes a description
func (r *Repository) DeleteDescription(bucketID, id string) error {
	if _, err := r.db.Exec("DELETE FROM bucket_descriptions WHERE id = ? AND bucket_id = ?", id, bucketID); err != nil {
		return fmt.Errorf("failed to delete description %s: %w", id, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
