// Package trading implements paper-trading accounts that buy and sell units of
// buckets at the buckets' current value.
package trading

import (
	"errors"
	"time"
)

var (
	ErrAccountNotFound      = errors.New("trading account not found")
	ErrInvalidAccountName   = errors.New("account name must be 1-30 characters")
	ErrDuplicateAccount     = errors.New("an account with this name already exists")
	ErrNegativeOpeningCash  = errors.New("opening cash can not be negative")
	ErrZeroQuantity         = errors.New("quantity must not be zero")
	ErrInsufficientCash     = errors.New("not enough cash available")
	ErrInsufficientHoldings = errors.New("not enough units owned")
	ErrUnpricedBucket       = errors.New("bucket has no positive value")
)

// maxAccountNameLength is the longest account name accepted.
const maxAccountNameLength = 30

// cashTolerance absorbs float noise when a trade spends exactly the available cash.
const cashTolerance = 1e-6

// Side of a trade or preview
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideHold = "HOLD"
)

// Account is a paper-trading account of a profile
type Account struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Profile     string    `json:"profile"`
	OpeningCash float64   `json:"opening_cash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Trade moves units of a bucket into (positive quantity) or out of an account
type Trade struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	BucketID   string    `json:"bucket_id"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Side returns BUY or SELL
func (t Trade) Side() string {
	if t.Quantity < 0 {
		return SideSell
	}
	return SideBuy
}

// Holding is the number of units of one bucket an account owns
type Holding struct {
	BucketID string  `json:"bucket_id"`
	Quantity float64 `json:"quantity"`
}

// Summary is an account with its cash and holdings
type Summary struct {
	Account
	AvailableCash        float64   `json:"available_cash"`
	AvailableCashDisplay string    `json:"available_cash_display"`
	Holdings             []Holding `json:"holdings"`
}

// Preview is the outcome of moving the invest slider to Target
type Preview struct {
	UnitValue          float64 `json:"unit_value"`
	Owned              float64 `json:"owned"`
	OwnedValue         float64 `json:"owned_value"`
	Max                float64 `json:"max"`
	Target             float64 `json:"target"`
	Invested           float64 `json:"invested"`
	AdditionalQuantity float64 `json:"additional_quantity"`
	Remaining          float64 `json:"remaining"`
	Action             string  `json:"action"`
	InvestedDisplay    string  `json:"invested_display"`
	RemainingDisplay   string  `json:"remaining_display"`
}
