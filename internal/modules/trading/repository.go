package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/riskbucket/internal/database"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// TradeCheck validates a trade against the account's cash and the units of the
// traded bucket it owns, read inside the recording transaction.
type TradeCheck func(availableCash, owned float64) error

// Repository handles trading account database operations
// Database: portfolio.db (trading_accounts, bucket_trades tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trading repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trading").Logger(),
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CreateAccount inserts an account
func (r *Repository) CreateAccount(account Account) error {
	_, err := r.db.Exec(
		"INSERT INTO trading_accounts (id, name, profile, opening_cash, created_at) VALUES (?, ?, ?, ?, ?)",
		account.ID, account.Name, account.Profile, account.OpeningCash, account.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", account.Name, ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to insert account %s: %w", account.Name, err)
	}
	return nil
}

// GetAccount returns an account, or nil if none exists
func (r *Repository) GetAccount(id string) (*Account, error) {
	return getAccount(r.db, id)
}

func getAccount(q querier, id string) (*Account, error) {
	var a Account
	var createdAt int64
	err := q.QueryRow(
		"SELECT id, name, profile, opening_cash, created_at FROM trading_accounts WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &a.Profile, &a.OpeningCash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %s: %w", id, err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

// ListAccounts returns the accounts of a profile by name
func (r *Repository) ListAccounts(profile string) ([]Account, error) {
	rows, err := r.db.Query(
		"SELECT id, name, profile, opening_cash, created_at FROM trading_accounts WHERE profile = ? ORDER BY name",
		profile,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var a Account
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Profile, &a.OpeningCash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// AvailableCash returns the opening cash of an account minus the net cost of its trades
func (r *Repository) AvailableCash(accountID string) (float64, error) {
	return availableCash(r.db, accountID)
}

func availableCash(q querier, accountID string) (float64, error) {
	account, err := getAccount(q, accountID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, ErrAccountNotFound
	}

	rows, err := q.Query("SELECT quantity, price FROM bucket_trades WHERE account_id = ?", accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var quantities, prices []float64
	for rows.Next() {
		var quantity, price float64
		if err := rows.Scan(&quantity, &price); err != nil {
			return 0, fmt.Errorf("failed to scan trade: %w", err)
		}
		quantities = append(quantities, quantity)
		prices = append(prices, price)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating trades: %w", err)
	}

	return account.OpeningCash - floats.Dot(quantities, prices), nil
}

// OwnedAmount returns the net units of a bucket an account holds
func (r *Repository) OwnedAmount(accountID, bucketID string) (float64, error) {
	return ownedAmount(r.db, accountID, bucketID)
}

func ownedAmount(q querier, accountID, bucketID string) (float64, error) {
	var owned float64
	err := q.QueryRow(
		"SELECT COALESCE(SUM(quantity), 0) FROM bucket_trades WHERE account_id = ? AND bucket_id = ?",
		accountID, bucketID,
	).Scan(&owned)
	if err != nil {
		return 0, fmt.Errorf("failed to sum holdings: %w", err)
	}
	return owned, nil
}

// Holdings returns the buckets an account holds a non-zero amount of
func (r *Repository) Holdings(accountID string) ([]Holding, error) {
	rows, err := r.db.Query(`
		SELECT bucket_id, SUM(quantity) FROM bucket_trades
		WHERE account_id = ?
		GROUP BY bucket_id
		HAVING ABS(SUM(quantity)) > 1e-9
		ORDER BY bucket_id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []Holding{}
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.BucketID, &h.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// Trades returns the trades of an account, newest first
func (r *Repository) Trades(accountID string) ([]Trade, error) {
	rows, err := r.db.Query(
		"SELECT id, account_id, bucket_id, quantity, price, executed_at FROM bucket_trades WHERE account_id = ? ORDER BY executed_at DESC, rowid DESC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []Trade{}
	for rows.Next() {
		var t Trade
		var executedAt int64
		if err := rows.Scan(&t.ID, &t.AccountID, &t.BucketID, &t.Quantity, &t.Price, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.ExecutedAt = time.Unix(executedAt, 0).UTC()
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// RecordTrade stores trade if check accepts the account's current cash and holdings
func (r *Repository) RecordTrade(trade Trade, check TradeCheck) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		cash, err := availableCash(tx, trade.AccountID)
		if err != nil {
			return err
		}
		owned, err := ownedAmount(tx, trade.AccountID, trade.BucketID)
		if err != nil {
			return err
		}
		if err := check(cash, owned); err != nil {
			return err
		}

		_, err = tx.Exec(
			"INSERT INTO bucket_trades (id, account_id, bucket_id, quantity, price, executed_at) VALUES (?, ?, ?, ?, ?, ?)",
			trade.ID, trade.AccountID, trade.BucketID, trade.Quantity, trade.Price, trade.ExecutedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
		return nil
	})
}
