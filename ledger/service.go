// Package ledger holds the core banking rules: account registration and the
// balance-mutation protocol (deposit, withdraw, transfer). Balances only move
// inside one atomic store unit together with their transaction records, so the
// sum of an account's signed transactions always equals its balance.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the sole authority for creating accounts and mutating balances.
// It is safe for concurrent use; serialization of same-account mutations is
// delegated to the Store's locking.
type Service struct {
	store  Store
	hasher PasswordHasher
}

func NewService(store Store, hasher PasswordHasher) *Service {
	return &Service{store: store, hasher: hasher}
}

// Register creates an account with balance zero and the hashed credential.
// The store's uniqueness constraint on username is the final arbiter: a
// concurrent duplicate registration loses with ErrAlreadyExists even when the
// lookup below raced past it.
func (s *Service) Register(ctx context.Context, username, password string) (*Account, error) {
	_, err := s.store.FindAccountByUsername(ctx, username)
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Balance:      decimal.Zero,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit adds amount to the account balance and records the matching
// transaction in the same atomic unit.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.store.Update(ctx, func(tx Tx) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, account.ID, account.Balance.Add(amount)); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, &Transaction{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Kind:      KindDeposit,
			Amount:    amount,
			Timestamp: time.Now(),
		})
	})
}

// Withdraw subtracts amount from the account balance, failing with
// ErrInsufficientFunds before any mutation if the balance cannot cover it.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.store.Update(ctx, func(tx Tx) error {
		account, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		if err := tx.SetBalance(ctx, account.ID, account.Balance.Sub(amount)); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, &Transaction{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Kind:      KindWithdrawal,
			Amount:    amount,
			Timestamp: time.Now(),
		})
	})
}

// Transfer moves amount from the source account to the account owning
// toUsername. The debit, the credit and both transaction records form one
// atomic unit: either all four writes are visible or none are. Transferring
// to oneself is allowed and leaves the balance unchanged, recording two
// offsetting entries.
func (s *Service) Transfer(ctx context.Context, fromAccountID, toUsername string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.store.Update(ctx, func(tx Tx) error {
		toID, err := tx.AccountIDByUsername(ctx, toUsername)
		if errors.Is(err, ErrNotFound) {
			return ErrRecipientNotFound
		}
		if err != nil {
			return err
		}

		from, to, err := lockPair(ctx, tx, fromAccountID, toID)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		if from.ID != to.ID {
			if err := tx.SetBalance(ctx, from.ID, from.Balance.Sub(amount)); err != nil {
				return err
			}
			if err := tx.SetBalance(ctx, to.ID, to.Balance.Add(amount)); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := tx.AppendTransaction(ctx, &Transaction{
			ID:           uuid.NewString(),
			AccountID:    from.ID,
			Kind:         KindTransferOut,
			Counterparty: to.Username,
			Amount:       amount,
			Timestamp:    now,
		}); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, &Transaction{
			ID:           uuid.NewString(),
			AccountID:    to.ID,
			Kind:         KindTransferIn,
			Counterparty: from.Username,
			Amount:       amount,
			Timestamp:    now,
		})
	})
}

// lockPair locks the two accounts of a transfer in ascending id order, so two
// opposite concurrent transfers cannot deadlock on each other's rows. A
// self-transfer locks the single row once.
func lockPair(ctx context.Context, tx Tx, fromID, toID string) (from, to *Account, err error) {
	if fromID == toID {
		from, err = tx.AccountForUpdate(ctx, fromID)
		return from, from, err
	}
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	a, err := tx.AccountForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.AccountForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == fromID {
		return a, b, nil
	}
	return b, a, nil
}

// History returns the account's transactions, oldest first.
func (s *Service) History(ctx context.Context, accountID string) ([]Transaction, error) {
	if _, err := s.store.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.FindTransactionsByAccount(ctx, accountID)
}

// FindAccountByUsername returns the account owning username, or ErrNotFound.
func (s *Service) FindAccountByUsername(ctx context.Context, username string) (*Account, error) {
	return s.store.FindAccountByUsername(ctx, username)
}
