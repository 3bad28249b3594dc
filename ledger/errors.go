package ledger

import "errors"

// --- Error Kinds ---

// Every failure a Service call can report is one of these sentinels (possibly
// wrapped). None of them are retried internally; only ErrStoreUnavailable is
// potentially transient.
var (
	// ErrAlreadyExists means the username is already taken.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrNotFound means no account matches the given id or username.
	ErrNotFound = errors.New("account not found")

	// ErrRecipientNotFound means the transfer destination username does not
	// resolve to an account.
	ErrRecipientNotFound = errors.New("recipient account not found")

	// ErrInsufficientFunds means the balance cannot cover the requested
	// withdrawal or transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount means the amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrStoreUnavailable wraps a transport or transaction failure from the
	// persistence store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
