package scan

import (
	"time"

	"go.withmatt.com/mailsweep/internal/gmail"
)

// SenderRecord accumulates everything known about one normalized sender
// address over the course of a scan.
type SenderRecord struct {
	Address        string
	DisplayName    string
	MessageIDs     []gmail.MessageID
	MessageCount   int
	HasUnsubscribe bool
	OneClick       bool
	// Target is the unsubscribe target from the first message that carried
	// one. Later, possibly conflicting targets from the same sender never
	// overwrite it.
	Target         *UnsubscribeTarget
	MatchedKeyword bool
	LatestSubject  string

	latestAt *time.Time
}

// Aggregate folds message summaries into one record per sender address.
// The grouping key is the address exactly as the parser produced it;
// noreply@foo.com and no-reply@foo.com stay distinct senders.
//
// Each message must be folded at most once; the fetcher's uniqueness
// guarantee upholds that.
func Aggregate(summaries []MessageSummary) map[string]*SenderRecord {
	records := make(map[string]*SenderRecord)
	for _, summary := range summaries {
		record, ok := records[summary.Sender]
		if !ok {
			record = &SenderRecord{Address: summary.Sender}
			records[summary.Sender] = record
		}
		record.fold(summary)
	}
	return records
}

func (r *SenderRecord) fold(summary MessageSummary) {
	r.MessageCount++
	r.MessageIDs = append(r.MessageIDs, summary.ID)

	if r.DisplayName == "" {
		r.DisplayName = summary.DisplayName
	}
	if summary.Unsubscribe != nil {
		r.HasUnsubscribe = true
		if r.Target == nil {
			target := *summary.Unsubscribe
			r.Target = &target
		}
	}
	r.OneClick = r.OneClick || summary.OneClick
	r.MatchedKeyword = r.MatchedKeyword || summary.MatchedKeyword

	// Latest subject follows the most recent dated message; undated
	// messages only fill an empty slot.
	switch {
	case summary.SentAt != nil && (r.latestAt == nil || summary.SentAt.After(*r.latestAt)):
		r.latestAt = summary.SentAt
		r.LatestSubject = summary.Subject
	case r.LatestSubject == "" && r.latestAt == nil:
		r.LatestSubject = summary.Subject
	}
}
