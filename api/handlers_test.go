package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bankapp/api"
	"bankapp/auth"
	"bankapp/ledger"
	"bankapp/memstore"

	"github.com/shopspring/decimal"
)

type testEnv struct {
	service *ledger.Service
	authEnv *auth.Env
	apiEnv  *api.Env
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	service := ledger.NewService(memstore.New(), auth.NewBcryptHasher())
	return &testEnv{
		service: service,
		authEnv: &auth.Env{Service: service, Hasher: auth.NewBcryptHasher(), Tokens: auth.NewTokens([]byte("test-key"))},
		apiEnv:  &api.Env{Service: service},
	}
}

func (e *testEnv) register(t *testing.T, username string) *ledger.Account {
	t.Helper()
	account, err := e.service.Register(context.Background(), username, "password1")
	if err != nil {
		t.Fatal(err)
	}
	return account
}

// do sends body to the handler wrapped in the auth middleware, authenticated
// as username.
func (e *testEnv) do(t *testing.T, handler http.HandlerFunc, username, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := e.authEnv.Tokens.Generate(username)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.authEnv.Middleware(handler).ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) balance(t *testing.T, username string) decimal.Decimal {
	t.Helper()
	account, err := e.service.FindAccountByUsername(context.Background(), username)
	if err != nil {
		t.Fatal(err)
	}
	return account.Balance
}

func TestDepositHandler(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")

	rec := e.do(t, e.apiEnv.DepositHandler, "alice", `{"amount":"100.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := e.balance(t, "alice"); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance = %s, want 100.00", got)
	}
}

func TestDepositHandlerRejectsNonPositive(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")

	for _, body := range []string{`{"amount":"-5.00"}`, `{"amount":"0"}`, `{"amount":"abc"}`} {
		rec := e.do(t, e.apiEnv.DepositHandler, "alice", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if got := e.balance(t, "alice"); !got.IsZero() {
		t.Fatalf("balance = %s, want 0", got)
	}
}

func TestWithdrawHandlerInsufficientFunds(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	e.do(t, e.apiEnv.DepositHandler, "alice", `{"amount":"100.00"}`)

	rec := e.do(t, e.apiEnv.WithdrawHandler, "alice", `{"amount":"150.00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if got := e.balance(t, "alice"); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance = %s, want unchanged 100.00", got)
	}
}

func TestTransferHandler(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")
	e.do(t, e.apiEnv.DepositHandler, "alice", `{"amount":"100.00"}`)

	rec := e.do(t, e.apiEnv.TransferHandler, "alice", `{"to":"bob","amount":"40.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := e.balance(t, "alice"); !got.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("alice balance = %s, want 60.00", got)
	}
	if got := e.balance(t, "bob"); !got.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("bob balance = %s, want 40.00", got)
	}
}

func TestTransferHandlerUnknownRecipient(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	e.do(t, e.apiEnv.DepositHandler, "alice", `{"amount":"60.00"}`)

	rec := e.do(t, e.apiEnv.TransferHandler, "alice", `{"to":"nonexistent","amount":"10.00"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := e.balance(t, "alice"); !got.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("balance = %s, want unchanged 60.00", got)
	}
}

func TestHistoryHandler(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice")
	e.do(t, e.apiEnv.DepositHandler, "alice", `{"amount":"10.00"}`)
	e.do(t, e.apiEnv.WithdrawHandler, "alice", `{"amount":"4.00"}`)

	rec := e.do(t, e.apiEnv.HistoryHandler, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var history []ledger.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history len=%d, want 2", len(history))
	}
	if history[0].Kind != ledger.KindDeposit || history[1].Kind != ledger.KindWithdrawal {
		t.Fatalf("unexpected order: %s then %s", history[0].Kind, history[1].Kind)
	}
}

func TestHandlersRequireAuth(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"1.00"}`))
	rec := httptest.NewRecorder()
	e.authEnv.Middleware(http.HandlerFunc(e.apiEnv.DepositHandler)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSignupAndLoginFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := httptest.NewRecorder()
	e.authEnv.SignupHandler(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"alice","password":"password1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Duplicate signup
	rec = httptest.NewRecorder()
	e.authEnv.SignupHandler(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"alice","password":"password2"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.authEnv.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"password1"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["token"] == "" {
		t.Fatal("login should return a token")
	}

	rec = httptest.NewRecorder()
	e.authEnv.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"wrong-pw"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}
}
