package unsub

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostOneClick(t *testing.T) {
	var gotMethod, gotBody, gotContentType, gotHeader string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("List-Unsubscribe")
	}))
	defer server.Close()

	executor := &Executor{client: server.Client()}
	if err := executor.Post(context.Background(), server.URL); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotBody != "List-Unsubscribe=One-Click" {
		t.Errorf("body = %q", gotBody)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotHeader != "One-Click" {
		t.Errorf("List-Unsubscribe header = %q", gotHeader)
	}
}

func TestPostRejectsPlainHTTP(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	executor := NewExecutor()
	err := executor.Post(context.Background(), server.URL)
	if !errors.Is(err, ErrNotHTTPS) {
		t.Fatalf("err = %v, want ErrNotHTTPS", err)
	}
	if called {
		t.Error("request was sent over plaintext")
	}
}

func TestPostRejectsMailto(t *testing.T) {
	executor := NewExecutor()
	if err := executor.Post(context.Background(), "mailto:off@example.com"); !errors.Is(err, ErrNotHTTPS) {
		t.Fatalf("err = %v, want ErrNotHTTPS", err)
	}
}

func TestPostNon2xx(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	executor := &Executor{client: server.Client()}
	if err := executor.Post(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 410 response")
	}
}

func TestOpenManualRejectsNonHTTP(t *testing.T) {
	if err := OpenManual("mailto:off@example.com"); err == nil {
		t.Fatal("expected refusal for mailto url")
	}
	if err := OpenManual("file:///etc/passwd"); err == nil {
		t.Fatal("expected refusal for file url")
	}
}
