package scan

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreFullHouse(t *testing.T) {
	record := &SenderRecord{
		Address:        "news@example.com",
		MessageCount:   25,
		HasUnsubscribe: true,
		MatchedKeyword: true,
		LatestSubject:  "Your Weekly Newsletter",
	}

	// 0.5 header + 0.3 keyword + 0.2 volume + 0.3 high volume + 0.1
	// subject. Both volume tiers apply cumulatively.
	if got := Score(record); !almostEqual(got, 1.4) {
		t.Errorf("Score = %v, want 1.4", got)
	}

	scored := NewScoredSender(record)
	if !scored.Eligible {
		t.Error("expected eligible")
	}
}

func TestScoreNoSignals(t *testing.T) {
	record := &SenderRecord{Address: "john@example.com", MessageCount: 3}

	if got := Score(record); got != 0 {
		t.Errorf("Score = %v, want 0", got)
	}
	if NewScoredSender(record).Eligible {
		t.Error("expected not eligible")
	}
}

func TestScoreVolumeTiers(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{5, 0},
		{6, 0.2},
		{20, 0.2},
		{21, 0.5},
	}

	for _, tt := range tests {
		record := &SenderRecord{Address: "a@b.com", MessageCount: tt.count}
		if got := Score(record); !almostEqual(got, tt.want) {
			t.Errorf("Score(count=%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestScoreSubjectSubstring(t *testing.T) {
	tests := []struct {
		subject string
		want    float64
	}{
		{"Please UNSUBSCRIBE me", 0.1},
		{"The Daily Newsletter", 0.1},
		{"Meeting tomorrow", 0},
		{"", 0},
	}

	for _, tt := range tests {
		record := &SenderRecord{Address: "a@b.com", MessageCount: 1, LatestSubject: tt.subject}
		if got := Score(record); !almostEqual(got, tt.want) {
			t.Errorf("Score(subject=%q) = %v, want %v", tt.subject, got, tt.want)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	record := &SenderRecord{
		Address:        "news@example.com",
		MessageCount:   10,
		HasUnsubscribe: true,
		MatchedKeyword: true,
	}

	first := Score(record)
	second := Score(record)
	if first != second {
		t.Errorf("Score not deterministic: %v vs %v", first, second)
	}
}

func TestEligibleByHeaderAlone(t *testing.T) {
	// Score 0.5 is below the threshold, but the unsubscribe header alone
	// surfaces the sender.
	record := &SenderRecord{Address: "a@b.com", MessageCount: 1, HasUnsubscribe: true}
	scored := NewScoredSender(record)

	if !almostEqual(scored.Score, 0.5) {
		t.Errorf("Score = %v, want 0.5", scored.Score)
	}
	if !scored.Eligible {
		t.Error("unsubscribe header alone should make a sender eligible")
	}
}

func TestEligibleByThreshold(t *testing.T) {
	// keyword 0.3 + volume 0.2 + high volume 0.3 = 0.8 without any header.
	record := &SenderRecord{Address: "promo@b.com", MessageCount: 21, MatchedKeyword: true}
	scored := NewScoredSender(record)

	if !scored.Eligible {
		t.Errorf("score %v should clear the %v threshold", scored.Score, EligibleThreshold)
	}
}
