package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.withmatt.com/mailsweep/internal/gmail"
)

// DefaultConcurrency bounds in-flight metadata requests per batch.
const DefaultConcurrency = 10

// MetadataGetter is the single remote call the fetcher wraps.
type MetadataGetter interface {
	GetMessageMetadata(ctx context.Context, id gmail.MessageID) (gmail.RawHeaders, error)
}

// Outcome is the per-message result of a batch fetch: either headers or the
// classified error that exhausted retries.
type Outcome struct {
	Headers gmail.RawHeaders
	Kind    ErrorKind
	Err     error
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Fetcher retrieves message metadata for batches of IDs under a fixed
// concurrency budget, retrying transient failures per its Policy.
type Fetcher struct {
	client      MetadataGetter
	policy      Policy
	concurrency int
	logf        func(string, ...any)

	// sleep is replaceable in tests; it must honor ctx.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher with the given concurrency budget.
// A non-positive limit falls back to DefaultConcurrency.
func NewFetcher(client MetadataGetter, policy Policy, concurrency int, logf func(string, ...any)) *Fetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Fetcher{
		client:      client,
		policy:      policy,
		concurrency: concurrency,
		logf:        logf,
		sleep:       sleepContext,
	}
}

// FetchBatch fetches metadata for every unique ID in ids. Every submitted ID
// appears exactly once in the returned map, as a success or a failure; a
// single message exhausting its retries never aborts the batch. The only
// exception is cancellation: an ID whose fetch observes ctx cancellation is
// omitted entirely, never recorded half-done.
func (f *Fetcher) FetchBatch(
	ctx context.Context,
	ids []gmail.MessageID,
) map[gmail.MessageID]Outcome {
	results := make(map[gmail.MessageID]Outcome, len(ids))
	if len(ids) == 0 {
		return results
	}

	seen := make(map[gmail.MessageID]struct{}, len(ids))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	var mu sync.Mutex
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			outcome, cancelled := f.fetchOne(groupCtx, id)
			if cancelled {
				return nil
			}
			mu.Lock()
			results[id] = outcome
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// fetchOne runs the attempt/retry loop for a single message, holding its
// concurrency slot across backoff waits so in-flight requests plus pending
// retries never exceed the budget.
func (f *Fetcher) fetchOne(ctx context.Context, id gmail.MessageID) (Outcome, bool) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return Outcome{}, true
		}

		headers, err := f.client.GetMessageMetadata(ctx, id)
		if err == nil {
			return Outcome{Headers: headers}, false
		}
		if ctx.Err() != nil {
			return Outcome{}, true
		}

		kind := Classify(err)
		delay, retry := f.policy.Decide(attempt, kind)
		if !retry {
			return Outcome{Kind: kind, Err: err}, false
		}

		f.logf("retrying %s after %s (attempt %d, %s)", id, delay, attempt+1, kind)
		if err := f.sleep(ctx, delay); err != nil {
			return Outcome{}, true
		}
	}
}

// CountFailed returns how many outcomes in the batch are failures.
func CountFailed(results map[gmail.MessageID]Outcome) int {
	failed := 0
	for _, outcome := range results {
		if !outcome.OK() {
			failed++
		}
	}
	return failed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
