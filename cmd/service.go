package cmd

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"go.withmatt.com/mailsweep/internal/config"
	"go.withmatt.com/mailsweep/internal/gmail"
	"go.withmatt.com/mailsweep/internal/oauth"
)

// resolveAccount picks the account to operate on: the one named in args, or
// the sole configured account.
func resolveAccount(cfg *config.Config, args []string) (config.Account, error) {
	if len(args) > 0 {
		return cfg.Find(args[0])
	}
	switch len(cfg.Accounts) {
	case 0:
		return config.Account{}, fmt.Errorf("no accounts configured; run 'mailsweep accounts add' first")
	case 1:
		return cfg.Accounts[0], nil
	default:
		return config.Account{}, fmt.Errorf("multiple accounts configured; specify an email")
	}
}

// newGmailClient builds an authenticated Gmail client for the account.
func newGmailClient(ctx context.Context, email string) (*gmail.Client, error) {
	httpClient, err := oauth.GetClient(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", email, err)
	}

	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return gmail.NewClient(srv), nil
}
