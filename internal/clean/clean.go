// Package clean executes planned remediation actions against a mailbox.
package clean

import (
	"context"

	"go.withmatt.com/mailsweep/internal/gmail"
	"go.withmatt.com/mailsweep/internal/scan"
)

// Unsubscriber posts a one-click unsubscribe to an https URL.
type Unsubscriber interface {
	Post(ctx context.Context, url string) error
}

// FilterCreator installs a provider-side filter that blocks a sender.
type FilterCreator interface {
	CreateBlockFilter(ctx context.Context, sender string) (string, error)
}

// BatchDeleter permanently deletes messages.
type BatchDeleter interface {
	BatchDelete(ctx context.Context, ids []gmail.MessageID) (int, error)
}

// Result records what actually happened for one sender.
type Result struct {
	Sender       string
	Action       scan.ActionKind
	Unsubscribed bool
	Blocked      bool
	Deleted      int
	Err          error
}

// Runner executes planned actions. One sender's failure never stops the
// rest of the run.
type Runner struct {
	Unsubscriber Unsubscriber
	Filters      FilterCreator
	Deleter      BatchDeleter
	Logf         func(string, ...any)
}

// Run executes the plan for each sender in order and returns one result per
// sender.
func (r *Runner) Run(
	ctx context.Context,
	senders []scan.ScoredSender,
	plans []scan.PlannedAction,
) []Result {
	logf := r.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	results := make([]Result, 0, len(senders))
	for i, sender := range senders {
		if err := ctx.Err(); err != nil {
			break
		}
		results = append(results, r.runOne(ctx, sender, plans[i], logf))
	}
	return results
}

func (r *Runner) runOne(
	ctx context.Context,
	sender scan.ScoredSender,
	plan scan.PlannedAction,
	logf func(string, ...any),
) Result {
	result := Result{Sender: sender.Address, Action: plan.Kind}
	if plan.Kind == scan.ActionSkip {
		return result
	}

	if plan.Kind == scan.ActionUnsubscribeThenDelete && plan.Target == nil {
		// The planner only emits this kind with a target; a hand-built plan
		// without one degrades to a block.
		plan.Kind = scan.ActionBlockThenDelete
		result.Action = plan.Kind
	}

	if plan.Kind == scan.ActionUnsubscribeThenDelete {
		// The executor re-checks the https requirement itself.
		if err := r.Unsubscriber.Post(ctx, plan.Target.Value); err != nil {
			logf("clean: unsubscribe failed for %s, blocking instead: %v", sender.Address, err)
		} else {
			result.Unsubscribed = true
		}
	}

	needsBlock := plan.Kind == scan.ActionBlockThenDelete ||
		(plan.Kind == scan.ActionUnsubscribeThenDelete && !result.Unsubscribed)
	if needsBlock {
		if _, err := r.Filters.CreateBlockFilter(ctx, sender.Address); err != nil {
			logf("clean: block filter failed for %s: %v", sender.Address, err)
			result.Err = err
		} else {
			result.Blocked = true
		}
	}

	deleted, err := r.Deleter.BatchDelete(ctx, sender.MessageIDs)
	result.Deleted = deleted
	if err != nil {
		logf("clean: delete failed for %s after %d messages: %v", sender.Address, deleted, err)
		if result.Err == nil {
			result.Err = err
		}
	}
	return result
}
