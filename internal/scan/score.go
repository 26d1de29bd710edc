package scan

import "strings"

// Additive scoring weights. These came out of ad-hoc tuning; changing them
// silently reorders every scan, so treat them as fixed.
const (
	weightUnsubscribe = 0.5
	weightKeyword     = 0.3
	weightVolume      = 0.2 // message_count > 5
	weightHighVolume  = 0.3 // message_count > 20, on top of weightVolume
	weightSubject     = 0.1

	// EligibleThreshold is the minimum score for a sender to be surfaced
	// when it lacks an unsubscribe header.
	EligibleThreshold = 0.6
)

// ScoredSender is a SenderRecord with its derived score and eligibility.
type ScoredSender struct {
	SenderRecord
	Score    float64
	Eligible bool
}

// Score computes the newsletter-likelihood score for a sender. Pure function
// of the record's fields: same record, same score, regardless of fetch
// order. Unbounded above, never negative.
func Score(record *SenderRecord) float64 {
	score := 0.0
	if record.HasUnsubscribe {
		score += weightUnsubscribe
	}
	if record.MatchedKeyword {
		score += weightKeyword
	}
	// Both volume tiers apply cumulatively: >20 messages contributes 0.5
	// total.
	if record.MessageCount > 5 {
		score += weightVolume
	}
	if record.MessageCount > 20 {
		score += weightHighVolume
	}
	if subjectLooksPromotional(record.LatestSubject) {
		score += weightSubject
	}
	return score
}

// NewScoredSender scores a record and derives eligibility: a sender is
// surfaced when its score clears the threshold or it advertises an
// unsubscribe header at all.
func NewScoredSender(record *SenderRecord) ScoredSender {
	score := Score(record)
	return ScoredSender{
		SenderRecord: *record,
		Score:        score,
		Eligible:     score >= EligibleThreshold || record.HasUnsubscribe,
	}
}

func subjectLooksPromotional(subject string) bool {
	lower := strings.ToLower(subject)
	return strings.Contains(lower, "unsubscribe") || strings.Contains(lower, "newsletter")
}
