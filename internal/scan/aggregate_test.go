package scan

import (
	"testing"
	"time"

	"go.withmatt.com/mailsweep/internal/gmail"
)

func TestAggregateGroupsBySender(t *testing.T) {
	summaries := []MessageSummary{
		{ID: "1", Sender: "news@a.com"},
		{ID: "2", Sender: "news@a.com"},
		{ID: "3", Sender: "promo@b.com"},
		// Distinct by design: no canonicalization beyond what the parser
		// already did.
		{ID: "4", Sender: "no-reply@a.com"},
		{ID: "5", Sender: "noreply@a.com"},
	}

	records := Aggregate(summaries)

	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records["news@a.com"].MessageCount != 2 {
		t.Errorf("news@a.com count = %d, want 2", records["news@a.com"].MessageCount)
	}

	// Count-sum invariant: every parsed summary lands in exactly one
	// record.
	total := 0
	for _, record := range records {
		total += record.MessageCount
	}
	if total != len(summaries) {
		t.Errorf("sum of counts = %d, want %d", total, len(summaries))
	}
}

func TestAggregateFlagsAccumulate(t *testing.T) {
	target := UnsubscribeTarget{Kind: TargetHTTP, Value: "https://a.com/u"}
	summaries := []MessageSummary{
		{ID: "1", Sender: "news@a.com"},
		{ID: "2", Sender: "news@a.com", Unsubscribe: &target, OneClick: true},
		{ID: "3", Sender: "news@a.com", MatchedKeyword: true},
	}

	record := Aggregate(summaries)["news@a.com"]

	if !record.HasUnsubscribe {
		t.Error("HasUnsubscribe should be sticky once seen")
	}
	if !record.OneClick {
		t.Error("OneClick should be sticky once seen")
	}
	if !record.MatchedKeyword {
		t.Error("MatchedKeyword should be sticky once seen")
	}
	if len(record.MessageIDs) != 3 {
		t.Errorf("MessageIDs = %d, want 3", len(record.MessageIDs))
	}
}

func TestAggregateTargetFirstWins(t *testing.T) {
	first := UnsubscribeTarget{Kind: TargetHTTP, Value: "https://a.com/first"}
	second := UnsubscribeTarget{Kind: TargetMailto, Value: "unsub@a.com"}

	record := Aggregate([]MessageSummary{
		{ID: "1", Sender: "news@a.com", Unsubscribe: &first},
		{ID: "2", Sender: "news@a.com", Unsubscribe: &second},
	})["news@a.com"]

	if record.Target == nil {
		t.Fatal("Target = nil")
	}
	if record.Target.Value != "https://a.com/first" {
		t.Errorf("Target = %q, later sighting must not overwrite", record.Target.Value)
	}
}

func TestAggregateLatestSubject(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	record := Aggregate([]MessageSummary{
		{ID: "1", Sender: "news@a.com", Subject: "undated", SentAt: nil},
		{ID: "2", Sender: "news@a.com", Subject: "june issue", SentAt: &newer},
		{ID: "3", Sender: "news@a.com", Subject: "january issue", SentAt: &older},
	})["news@a.com"]

	if record.LatestSubject != "june issue" {
		t.Errorf("LatestSubject = %q, want %q", record.LatestSubject, "june issue")
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := len(Aggregate(nil)); got != 0 {
		t.Errorf("Aggregate(nil) = %d records, want 0", got)
	}
}

func TestAggregateKeepsIDs(t *testing.T) {
	record := Aggregate([]MessageSummary{
		{ID: "x", Sender: "a@b.com"},
		{ID: "y", Sender: "a@b.com"},
	})["a@b.com"]

	want := []gmail.MessageID{"x", "y"}
	if len(record.MessageIDs) != len(want) {
		t.Fatalf("MessageIDs = %v, want %v", record.MessageIDs, want)
	}
	for i := range want {
		if record.MessageIDs[i] != want[i] {
			t.Errorf("MessageIDs[%d] = %s, want %s", i, record.MessageIDs[i], want[i])
		}
	}
}
