package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"go.withmatt.com/mailsweep/internal/gmail"
	"go.withmatt.com/mailsweep/internal/scan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scans.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() *scan.Result {
	return &scan.Result{
		TotalMessages: 120,
		FailedFetches: 2,
		Senders: []scan.ScoredSender{
			{
				SenderRecord: scan.SenderRecord{
					Address:        "newsletter@big.com",
					DisplayName:    "Big News",
					MessageIDs:     []gmail.MessageID{"m1", "m2", "m3"},
					MessageCount:   3,
					HasUnsubscribe: true,
					OneClick:       true,
					Target: &scan.UnsubscribeTarget{
						Kind:  scan.TargetHTTP,
						Value: "https://big.com/u",
					},
					MatchedKeyword: true,
					LatestSubject:  "Weekly Newsletter",
				},
				Score:    0.9,
				Eligible: true,
			},
			{
				SenderRecord: scan.SenderRecord{
					Address:      "john@friend.com",
					MessageIDs:   []gmail.MessageID{"m4"},
					MessageCount: 1,
				},
				Score: 0,
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveScan("me@example.com", sampleResult()); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	got, err := store.LoadScan("me@example.com")
	if err != nil {
		t.Fatalf("LoadScan: %v", err)
	}

	if got.TotalMessages != 120 || got.FailedFetches != 2 {
		t.Errorf("counts = %d/%d, want 120/2", got.TotalMessages, got.FailedFetches)
	}
	if got.ScannedAt.IsZero() {
		t.Error("ScannedAt not recorded")
	}
	if len(got.Senders) != 2 {
		t.Fatalf("senders = %d, want 2", len(got.Senders))
	}

	first := got.Senders[0]
	if first.Address != "newsletter@big.com" {
		t.Errorf("order not preserved: first = %s", first.Address)
	}
	if first.DisplayName != "Big News" || first.MessageCount != 3 {
		t.Errorf("record fields lost: %+v", first.SenderRecord)
	}
	if len(first.MessageIDs) != 3 || first.MessageIDs[0] != "m1" {
		t.Errorf("message ids = %v", first.MessageIDs)
	}
	if !first.HasUnsubscribe || !first.OneClick || !first.MatchedKeyword || !first.Eligible {
		t.Error("boolean flags lost")
	}
	if first.Target == nil || first.Target.Kind != scan.TargetHTTP || first.Target.Value != "https://big.com/u" {
		t.Errorf("target = %+v", first.Target)
	}
	if first.Score != 0.9 {
		t.Errorf("score = %v, want 0.9", first.Score)
	}

	second := got.Senders[1]
	if second.Target != nil {
		t.Errorf("nil target became %+v", second.Target)
	}
	if second.Eligible {
		t.Error("second sender should stay ineligible")
	}
}

func TestLoadNoScan(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.LoadScan("nobody@example.com"); !errors.Is(err, ErrNoScan) {
		t.Fatalf("err = %v, want ErrNoScan", err)
	}
}

func TestSaveReplacesPreviousScan(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveScan("me@example.com", sampleResult()); err != nil {
		t.Fatalf("first SaveScan: %v", err)
	}

	smaller := &scan.Result{
		TotalMessages: 10,
		Senders: []scan.ScoredSender{{
			SenderRecord: scan.SenderRecord{
				Address:      "only@left.com",
				MessageIDs:   []gmail.MessageID{"m9"},
				MessageCount: 1,
			},
		}},
	}
	if err := store.SaveScan("me@example.com", smaller); err != nil {
		t.Fatalf("second SaveScan: %v", err)
	}

	got, err := store.LoadScan("me@example.com")
	if err != nil {
		t.Fatalf("LoadScan: %v", err)
	}
	if got.TotalMessages != 10 {
		t.Errorf("TotalMessages = %d, want 10", got.TotalMessages)
	}
	if len(got.Senders) != 1 || got.Senders[0].Address != "only@left.com" {
		t.Errorf("stale senders survived the rewrite: %+v", got.Senders)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveScan("a@example.com", sampleResult()); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}
	if _, err := store.LoadScan("b@example.com"); !errors.Is(err, ErrNoScan) {
		t.Fatalf("err = %v, want ErrNoScan for the other account", err)
	}
}
