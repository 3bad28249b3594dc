// Package postgres binds the ledger to PostgreSQL. Each atomic unit is one
// database transaction; account rows are serialized with SELECT ... FOR
// UPDATE, and the unique index on username is the final arbiter of duplicate
// registrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankapp/ledger"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables and the username uniqueness constraint.
// transactions.seq orders same-timestamp entries by insertion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			balance       NUMERIC(20, 4) NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS transactions (
			seq          BIGSERIAL PRIMARY KEY,
			id           TEXT NOT NULL UNIQUE,
			account_id   TEXT NOT NULL REFERENCES accounts (id),
			kind         TEXT NOT NULL,
			counterparty TEXT NOT NULL DEFAULT '',
			amount       NUMERIC(20, 4) NOT NULL,
			ts           TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id, ts, seq);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not ensure schema: %w", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *ledger.Account) error {
	query := `INSERT INTO accounts (id, username, password_hash, balance, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, a.ID, a.Username, a.PasswordHash, a.Balance, a.CreatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*ledger.Account, error) {
	query := `SELECT id, username, password_hash, balance, created_at FROM accounts WHERE id = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*ledger.Account, error) {
	query := `SELECT id, username, password_hash, balance, created_at FROM accounts WHERE username = $1`
	return scanAccount(s.db.QueryRowContext(ctx, query, username))
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	query := `SELECT id, account_id, kind, counterparty, amount, ts
			  FROM transactions WHERE account_id = $1 ORDER BY ts, seq`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Counterparty, &t.Amount, &t.Timestamp)
		if err != nil {
			return nil, translate(err)
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(err)
	}
	return transactions, nil
}

// Update wraps fn in a database transaction. A non-nil error from fn rolls
// everything back and is returned unchanged; commit and begin failures come
// back as ErrStoreUnavailable.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (p *pgTx) AccountForUpdate(ctx context.Context, id string) (*ledger.Account, error) {
	query := `SELECT id, username, password_hash, balance, created_at
			  FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(p.tx.QueryRowContext(ctx, query, id))
}

func (p *pgTx) AccountIDByUsername(ctx context.Context, username string) (string, error) {
	var id string
	err := p.tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE username = $1`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ledger.ErrNotFound
		}
		return "", translate(err)
	}
	return id, nil
}

func (p *pgTx) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	_, err := p.tx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (p *pgTx) AppendTransaction(ctx context.Context, t *ledger.Transaction) error {
	query := `INSERT INTO transactions (id, account_id, kind, counterparty, amount, ts)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.tx.ExecContext(ctx, query, t.ID, t.AccountID, t.Kind, t.Counterparty, t.Amount, t.Timestamp)
	if err != nil {
		return translate(err)
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanAccount(r row) (*ledger.Account, error) {
	a := &ledger.Account{}
	err := r.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, translate(err)
	}
	return a, nil
}

// translate maps driver failures onto the ledger error kinds: a unique
// violation is a duplicate username, anything else is a store failure the
// caller may treat as transient.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ledger.ErrAlreadyExists
	}
	return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
}

var _ ledger.Store = (*Store)(nil)
