package config

import (
	"errors"
	"testing"
)

func TestFindCaseInsensitive(t *testing.T) {
	cfg := &Config{Accounts: []Account{{Email: "Me@Example.com"}}}

	account, err := cfg.Find("me@example.com")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if account.Email != "Me@Example.com" {
		t.Errorf("email = %s", account.Email)
	}

	if _, err := cfg.Find("other@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	cfg := &Config{}

	if err := cfg.Add(Account{Email: "me@example.com"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cfg.Add(Account{Email: "ME@example.com"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if len(cfg.Accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(cfg.Accounts))
	}
}

func TestRemove(t *testing.T) {
	cfg := &Config{Accounts: []Account{
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	}}

	if err := cfg.Remove("A@example.com"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Email != "b@example.com" {
		t.Errorf("accounts = %+v", cfg.Accounts)
	}

	if err := cfg.Remove("a@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}
