// Package buckets manages risk buckets: named, optionally public portfolios of
// stocks with an amount of uninvested cash, their descriptions, and the history
// of their stock configurations.
package buckets

import (
	"errors"
	"time"

	"github.com/aristath/riskbucket/internal/modules/composition"
)

var (
	ErrNotFound             = errors.New("bucket not found")
	ErrNotOwner             = errors.New("only the owner can modify this bucket")
	ErrInvalidName          = errors.New("bucket name is required")
	ErrDuplicateName        = errors.New("a bucket with this name already exists")
	ErrNegativeAvailable    = errors.New("available cash can not be negative")
	ErrNegativeQuantity     = errors.New("quantity can not be negative")
	ErrInsufficientFunds    = errors.New("not enough money available")
	ErrDescriptionNotFound  = errors.New("description not found")
	ErrDescriptionTooShort  = errors.New("description must be at least 3 characters")
	ErrDuplicateDescription = errors.New("description already exists for this bucket")
	ErrStillHeld            = errors.New("bucket units are still held by trading accounts")
)

// minDescriptionLength is the shortest description text accepted.
const minDescriptionLength = 3

// fundsTolerance absorbs float noise when a save spends exactly the available cash.
const fundsTolerance = 1e-6

// Bucket is a named portfolio owned by a profile
type Bucket struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Public    bool      `json:"public"`
	Available float64   `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

// StockConfiguration is a quantity of one stock held by a bucket from Start until End.
// A configuration with a nil End is current.
type StockConfiguration struct {
	ID       string     `json:"id"`
	BucketID string     `json:"bucket_id"`
	StockID  string     `json:"stock_id"`
	Quantity float64    `json:"quantity"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
}

// Description is a pro (IsGood) or con attached to a bucket
type Description struct {
	ID       string `json:"id"`
	BucketID string `json:"bucket_id"`
	Text     string `json:"text"`
	IsGood   bool   `json:"is_good"`
}

// ConfigUpdate is one line of a new bucket configuration
type ConfigUpdate struct {
	StockID  string  `json:"stock_id"`
	Quantity float64 `json:"quantity"`
}

// Detail is a bucket with everything its page shows
type Detail struct {
	Bucket
	Value        float64              `json:"value"`
	Editable     bool                 `json:"editable"`
	Configs      []StockConfiguration `json:"configs"`
	Descriptions []Description        `json:"descriptions"`
}

// Composition is the editing state of a bucket's current configuration
type Composition struct {
	BucketID string           `json:"bucket_id"`
	Editable bool             `json:"editable"`
	View     composition.View `json:"view"`
}
