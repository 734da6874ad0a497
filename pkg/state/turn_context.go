package state

import (
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

// TurnContext carries everything a single turn needs: the incoming
// activity, per-turn scratch state, and the replies produced so far.
// A turn context is never shared across turns; the surrounding pipeline
// serializes activities per conversation, so no locking happens here.
type TurnContext struct {
	activity  *schema.Activity
	turnState map[string]any
	responses []*schema.Activity
}

func NewTurnContext(activity *schema.Activity) *TurnContext {
	return &TurnContext{
		activity:  activity,
		turnState: make(map[string]any),
	}
}

// Activity returns the activity being processed this turn.
func (tc *TurnContext) Activity() *schema.Activity {
	return tc.activity
}

// TurnState is the live per-turn scratch map. The "turn" memory scope
// binds directly to it; mutations are visible for the rest of the turn
// and discarded afterwards.
func (tc *TurnContext) TurnState() map[string]any {
	return tc.turnState
}

// ReplaceTurnState swaps the whole scratch map, used when a memory scope
// root is assigned.
func (tc *TurnContext) ReplaceTurnState(value map[string]any) {
	if value == nil {
		value = make(map[string]any)
	}
	tc.turnState = value
}

// SendActivity queues a reply for delivery after the turn completes.
func (tc *TurnContext) SendActivity(a *schema.Activity) {
	tc.responses = append(tc.responses, a)
}

// SendText queues a plain text reply to the incoming activity.
func (tc *TurnContext) SendText(text string) {
	tc.SendActivity(tc.activity.CreateReply(text))
}

// Responses returns the replies queued during this turn, in send order.
func (tc *TurnContext) Responses() []*schema.Activity {
	return tc.responses
}
