package scan

// UserIntent is what the user confirmed for a sender before planning.
type UserIntent int

const (
	// IntentUnsubscribe means unsubscribe if possible, otherwise block.
	IntentUnsubscribe UserIntent = iota
	// IntentBlock skips unsubscribing and goes straight to a block filter.
	IntentBlock
	// IntentDelete deletes messages without unsubscribing or blocking.
	IntentDelete
	// IntentSkip leaves the sender alone.
	IntentSkip
)

// ActionKind enumerates the planned remediation per sender.
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionUnsubscribeThenDelete
	ActionBlockThenDelete
	ActionDeleteOnly
)

func (k ActionKind) String() string {
	switch k {
	case ActionUnsubscribeThenDelete:
		return "unsubscribe+delete"
	case ActionBlockThenDelete:
		return "block+delete"
	case ActionDeleteOnly:
		return "delete"
	default:
		return "skip"
	}
}

// PlannedAction is the single remediation decided for a sender. Target is
// set only for ActionUnsubscribeThenDelete.
type PlannedAction struct {
	Kind   ActionKind
	Target *UnsubscribeTarget
}

// Plan decides the remediation for a scored sender given the user's intent.
// Pure function of its inputs; executing the plan belongs elsewhere.
//
// A mailto target is never auto-dispatched under any intent. That is a hard
// security rule: unsubscribing by mail would send from the user's account.
func Plan(sender ScoredSender, intent UserIntent) PlannedAction {
	switch intent {
	case IntentSkip:
		return PlannedAction{Kind: ActionSkip}
	case IntentDelete:
		return PlannedAction{Kind: ActionDeleteOnly}
	case IntentBlock:
		return PlannedAction{Kind: ActionBlockThenDelete}
	}

	if sender.OneClick && sender.Target != nil && sender.Target.Kind == TargetHTTP {
		target := *sender.Target
		return PlannedAction{Kind: ActionUnsubscribeThenDelete, Target: &target}
	}
	return PlannedAction{Kind: ActionBlockThenDelete}
}
