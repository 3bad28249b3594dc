package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// --- Store Interfaces ---

// Store is the persistence boundary for accounts and transactions. Lookups
// report a missing record as ErrNotFound; implementations must enforce a
// uniqueness constraint on username and report a violation of it from
// CreateAccount as ErrAlreadyExists.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) error
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	FindAccountByUsername(ctx context.Context, username string) (*Account, error)

	// FindTransactionsByAccount returns the account's transactions ordered by
	// timestamp ascending, insertion order on equal timestamps.
	FindTransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error)

	// Update runs fn as one atomic unit: every write made through the Tx
	// becomes durable and visible together when fn returns nil, and none of
	// them do when fn returns an error.
	Update(ctx context.Context, fn func(Tx) error) error
}

// Tx is the store's view inside one atomic unit.
type Tx interface {
	// AccountForUpdate reads an account and holds it locked against other
	// mutating units until the enclosing Update finishes.
	AccountForUpdate(ctx context.Context, id string) (*Account, error)

	// AccountIDByUsername resolves a username without taking a lock, so the
	// caller can order its AccountForUpdate calls by id.
	AccountIDByUsername(ctx context.Context, username string) (string, error)

	SetBalance(ctx context.Context, id string, balance decimal.Decimal) error
	AppendTransaction(ctx context.Context, t *Transaction) error
}

// PasswordHasher turns a plaintext credential into an opaque one-way hash.
// The core never sees the plaintext again after registration.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}
