package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Models ---

// Account is the aggregate root: it owns a balance and the transactions
// recorded against it. The balance is only ever changed through the Service.
type Account struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindWithdrawal  TransactionKind = "withdrawal"
	KindTransferIn  TransactionKind = "transfer_in"
	KindTransferOut TransactionKind = "transfer_out"
)

// Transaction is one append-only ledger entry. Counterparty is set only for
// the transfer kinds and holds the other account's username.
type Transaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Kind         TransactionKind `json:"kind"`
	Counterparty string          `json:"counterparty,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Signed returns the amount with the sign implied by the kind: deposits and
// inbound transfers count positive, withdrawals and outbound transfers negative.
func (t Transaction) Signed() decimal.Decimal {
	switch t.Kind {
	case KindWithdrawal, KindTransferOut:
		return t.Amount.Neg()
	default:
		return t.Amount
	}
}
