package scan

import (
	"context"
	"fmt"
	"sort"

	"go.withmatt.com/mailsweep/internal/fetch"
	"go.withmatt.com/mailsweep/internal/gmail"
)

const (
	// DefaultPageSize is the Gmail list page size, not an overall cap.
	DefaultPageSize = 500
	// DefaultMaxMessages bounds how much of the mailbox one scan inspects.
	DefaultMaxMessages = 2000
)

// MailboxClient is the narrow mailbox surface the scanner needs.
type MailboxClient interface {
	ListMessageIDs(ctx context.Context, pageToken string, pageSize int64) ([]gmail.MessageID, string, error)
	GetMessageMetadata(ctx context.Context, id gmail.MessageID) (gmail.RawHeaders, error)
}

// Scanner runs one scan: page message IDs, fetch their metadata under a
// concurrency budget, parse, aggregate by sender and score.
type Scanner struct {
	Client      MailboxClient
	PageSize    int64
	MaxMessages int
	Concurrency int
	Policy      fetch.Policy
	Logf        func(string, ...any)
}

// Result is the outcome of a scan. Senders is ordered by descending score,
// ties broken by descending message count then address. FailedFetches is
// informational: those messages are simply missing from the aggregation.
type Result struct {
	Senders       []ScoredSender
	TotalMessages int
	FailedFetches int
}

// Run executes the scan. Per-message fetch failures are contained and
// counted; only listing errors and cancellation abort the scan.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxMessages := s.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	logf := s.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	ids, err := s.listIDs(ctx, pageSize, maxMessages)
	if err != nil {
		return nil, err
	}
	logf("scan: %d messages listed", len(ids))

	fetcher := fetch.NewFetcher(s.Client, s.Policy, s.Concurrency, logf)
	outcomes := fetcher.FetchBatch(ctx, ids)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fold in listing order, not map order: first-wins target selection and
	// the latest-subject tie-break must not vary between identical scans.
	summaries := make([]MessageSummary, 0, len(outcomes))
	failed := 0
	seen := make(map[gmail.MessageID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		outcome, ok := outcomes[id]
		if !ok {
			continue
		}
		if !outcome.OK() {
			logf("scan: fetch failed for %s: %v", id, outcome.Err)
			failed++
			continue
		}
		summaries = append(summaries, ParseSummary(id, outcome.Headers))
	}

	records := Aggregate(summaries)
	senders := make([]ScoredSender, 0, len(records))
	for _, record := range records {
		senders = append(senders, NewScoredSender(record))
	}
	sortSenders(senders)

	return &Result{
		Senders:       senders,
		TotalMessages: len(ids),
		FailedFetches: failed,
	}, nil
}

func (s *Scanner) listIDs(ctx context.Context, pageSize int64, maxMessages int) ([]gmail.MessageID, error) {
	var ids []gmail.MessageID
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, next, err := s.Client.ListMessageIDs(ctx, pageToken, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		ids = append(ids, page...)

		if len(ids) >= maxMessages {
			return ids[:maxMessages], nil
		}
		if next == "" {
			return ids, nil
		}
		pageToken = next
	}
}

func sortSenders(senders []ScoredSender) {
	sort.SliceStable(senders, func(i, j int) bool {
		if senders[i].Score != senders[j].Score {
			return senders[i].Score > senders[j].Score
		}
		if senders[i].MessageCount != senders[j].MessageCount {
			return senders[i].MessageCount > senders[j].MessageCount
		}
		return senders[i].Address < senders[j].Address
	})
}
