// Package dialogs implements the conversation engine: dialogs arranged on
// a per-conversation stack, and the scoped memory subsystem dialog code
// uses to read and write state through path expressions.
package dialogs

import "encoding/json"

// DialogTurnStatus describes what the dialog stack did with a turn.
type DialogTurnStatus string

const (
	// StatusEmpty means the stack was empty and nothing processed the turn.
	StatusEmpty DialogTurnStatus = "empty"
	// StatusWaiting means the active dialog is waiting for more input.
	StatusWaiting DialogTurnStatus = "waiting"
	// StatusComplete means the stack finished and produced a result.
	StatusComplete DialogTurnStatus = "complete"
	// StatusCancelled means the stack was cancelled before completing.
	StatusCancelled DialogTurnStatus = "cancelled"
)

// DialogTurnResult is returned by every stack operation.
type DialogTurnResult struct {
	Status DialogTurnStatus
	Result any
}

// DialogReason explains why a dialog method is being invoked.
type DialogReason string

const (
	ReasonBeginCalled    DialogReason = "beginCalled"
	ReasonContinueCalled DialogReason = "continueCalled"
	ReasonEndCalled      DialogReason = "endCalled"
	ReasonReplaceCalled  DialogReason = "replaceCalled"
	ReasonCancelCalled   DialogReason = "cancelCalled"
)

// Dialog is a single conversational sub-flow.
type Dialog interface {
	ID() string
	BeginDialog(dc *DialogContext, options any) (DialogTurnResult, error)
	ContinueDialog(dc *DialogContext) (DialogTurnResult, error)
	// ResumeDialog is called when a child dialog this dialog started ends.
	ResumeDialog(dc *DialogContext, reason DialogReason, result any) (DialogTurnResult, error)
}

// Container marks dialogs that host nested child dialogs and own their
// collective state. The "dialog" memory scope binds to container state,
// and the check is interface satisfaction on the definition looked up by
// id, never runtime type inspection of instances.
type Container interface {
	Dialog
	CreateChildContext(dc *DialogContext) (*DialogContext, error)
}

// PropertyProvider exposes a dialog definition's static properties for the
// "class" and "dialogclass" memory scopes.
type PropertyProvider interface {
	Properties() map[string]any
}

// DialogInstance is one entry on the dialog stack.
type DialogInstance struct {
	ID    string         `json:"id"`
	State map[string]any `json:"state"`
}

// DialogState is the persisted stack for one conversation (or one
// container level). Innermost (active) dialog last.
type DialogState struct {
	Stack []*DialogInstance `json:"dialogStack"`
}

// DialogStateFrom rehydrates a DialogState from either a live pointer or
// the map shape it takes after a persistence round trip.
func DialogStateFrom(v any) (*DialogState, bool) {
	switch s := v.(type) {
	case *DialogState:
		return s, true
	case map[string]any:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, false
		}
		ds := &DialogState{}
		if err := json.Unmarshal(data, ds); err != nil {
			return nil, false
		}
		return ds, true
	default:
		return nil, false
	}
}
