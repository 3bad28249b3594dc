package postgres

import (
	"errors"
	"fmt"
	"testing"

	"bankapp/ledger"

	"github.com/lib/pq"
)

func TestTranslateUniqueViolation(t *testing.T) {
	err := translate(&pq.Error{Code: uniqueViolation, Constraint: "accounts_username_key"})
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Fatalf("err=%v, want ErrAlreadyExists", err)
	}
}

func TestTranslateWrappedUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("could not create account: %w", &pq.Error{Code: uniqueViolation})
	if !errors.Is(translate(wrapped), ledger.ErrAlreadyExists) {
		t.Fatal("wrapped unique violation should still map to ErrAlreadyExists")
	}
}

func TestTranslateOtherFailures(t *testing.T) {
	cases := []error{
		errors.New("connection refused"),
		&pq.Error{Code: "40001"}, // serialization failure
	}
	for _, cause := range cases {
		err := translate(cause)
		if !errors.Is(err, ledger.ErrStoreUnavailable) {
			t.Fatalf("translate(%v) = %v, want ErrStoreUnavailable", cause, err)
		}
		if errors.Is(err, ledger.ErrAlreadyExists) {
			t.Fatalf("translate(%v) must not claim a duplicate", cause)
		}
	}
}
