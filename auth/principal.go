package auth

import (
	"context"

	"bankapp/ledger"
)

// --- Principal Adapter ---

// Principal is the authenticated-principal shape consumed by whatever
// authentication layer sits in front of the ledger. Every account carries the
// single fixed role USER.
type Principal struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
}

func PrincipalFor(a *ledger.Account) Principal {
	return Principal{
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Roles:        []string{"USER"},
	}
}

// LoadPrincipal resolves a username to its principal, failing with
// ledger.ErrNotFound when no such account exists.
func (env *Env) LoadPrincipal(ctx context.Context, username string) (Principal, error) {
	account, err := env.Service.FindAccountByUsername(ctx, username)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalFor(account), nil
}
