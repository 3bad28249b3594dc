// Package api is the thin HTTP layer over the ledger service. Handlers only
// decode, delegate and map error kinds to status codes; every rule lives in
// the ledger package.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankapp/auth"
	"bankapp/ledger"

	"github.com/shopspring/decimal"
)

// --- Models ---

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// --- Handlers ---

type Env struct {
	Service *ledger.Service
}

// account resolves the authenticated caller to their account. All mutating
// endpoints operate on the caller's own account only.
func (env *Env) account(w http.ResponseWriter, r *http.Request) (*ledger.Account, bool) {
	username, err := auth.UsernameFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	account, err := env.Service.FindAccountByUsername(r.Context(), username)
	if err != nil {
		auth.RespondWithError(w, http.StatusNotFound, "Account not found")
		return nil, false
	}
	return account, true
}

func (env *Env) AccountHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := env.account(w, r)
	if !ok {
		return
	}
	auth.JSON(w, http.StatusOK, account)
}

func (env *Env) DepositHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := env.account(w, r)
	if !ok {
		return
	}
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	if err := env.Service.Deposit(r.Context(), account.ID, amount); err != nil {
		respondLedgerError(w, err)
		return
	}
	auth.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (env *Env) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := env.account(w, r)
	if !ok {
		return
	}
	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}
	if err := env.Service.Withdraw(r.Context(), account.ID, amount); err != nil {
		respondLedgerError(w, err)
		return
	}
	auth.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (env *Env) TransferHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := env.account(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	if err := env.Service.Transfer(r.Context(), account.ID, req.To, amount); err != nil {
		respondLedgerError(w, err)
		return
	}
	auth.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (env *Env) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := env.account(w, r)
	if !ok {
		return
	}
	history, err := env.Service.History(r.Context(), account.ID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	if len(history) == 0 {
		auth.JSON(w, http.StatusOK, []ledger.Transaction{})
		return
	}
	auth.JSON(w, http.StatusOK, history)
}

// --- Helpers ---

func decodeAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid amount")
		return decimal.Decimal{}, false
	}
	return amount, true
}

func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		auth.RespondWithError(w, http.StatusBadRequest, "Amount must be positive")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		auth.RespondWithError(w, http.StatusConflict, "Insufficient funds")
	case errors.Is(err, ledger.ErrRecipientNotFound):
		auth.RespondWithError(w, http.StatusNotFound, "Recipient not found")
	case errors.Is(err, ledger.ErrNotFound):
		auth.RespondWithError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, ledger.ErrStoreUnavailable):
		auth.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
	default:
		auth.RespondWithError(w, http.StatusInternalServerError, "Internal error")
	}
}
