// Package unsub performs RFC 8058 one-click unsubscribes.
package unsub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/browser"
)

const (
	requestTimeout = 10 * time.Second
	oneClickBody   = "List-Unsubscribe=One-Click"
)

// ErrNotHTTPS rejects unsubscribe targets that are not https URLs.
// One-click posts carry no user interaction, so they never go over
// plaintext.
var ErrNotHTTPS = errors.New("unsubscribe target is not https")

// Executor posts one-click unsubscribe requests.
type Executor struct {
	client *http.Client
}

// NewExecutor returns an executor with a dedicated short-timeout client.
func NewExecutor() *Executor {
	return &Executor{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Post performs the one-click unsubscribe POST. HTTPS-only; any other
// scheme fails before a request is made.
func (e *Executor) Post(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse unsubscribe url: %w", err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrNotHTTPS, parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		rawURL,
		strings.NewReader(oneClickBody),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("List-Unsubscribe", "One-Click")

	res, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("unsubscribe request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("unsubscribe returned %s", res.Status)
	}
	return nil
}

// OpenManual opens a non-one-click http(s) unsubscribe page in the user's
// browser. The scheme check guards against handing arbitrary strings to the
// OS opener.
func OpenManual(rawURL string) error {
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("refusing to open non-http url %q", rawURL)
	}
	return browser.OpenURL(rawURL)
}
