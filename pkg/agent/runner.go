package agent

import (
	"context"

	"github.com/dotsetgreg/agenthost/pkg/dialogs"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/recognizers"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// Conversation-state key holding the persisted dialog stack.
const dialogStateKey = "dialogState"

// DialogRunnerOptions configures the scoped-memory environment the
// runner builds for every turn.
type DialogRunnerOptions struct {
	// Recognizer, when set, runs on each message; its result lands under
	// turn.recognized so paths like #Intent and @entity resolve.
	Recognizer recognizers.Recognizer
	// Settings backs the read-only settings scope.
	Settings map[string]any
	// DefaultScope for unqualified paths. Empty means dialog.
	DefaultScope string
	// MaxResolverPasses caps alias rewriting. Zero keeps the default.
	MaxResolverPasses int
}

// DialogRunner hosts a root dialog as an ActivityHandler: each message
// activity continues the conversation's dialog stack, starting the root
// dialog when the stack is empty.
type DialogRunner struct {
	dialogs   *dialogs.DialogSet
	rootID    string
	userState *state.AgentState
	convState *state.AgentState
	opts      DialogRunnerOptions
}

func NewDialogRunner(set *dialogs.DialogSet, rootID string, userState, convState *state.AgentState, opts DialogRunnerOptions) *DialogRunner {
	return &DialogRunner{
		dialogs:   set,
		rootID:    rootID,
		userState: userState,
		convState: convState,
		opts:      opts,
	}
}

func (r *DialogRunner) OnTurn(ctx context.Context, tc *state.TurnContext) error {
	a := tc.Activity()
	if a == nil || !a.IsMessage() {
		return nil
	}

	if r.opts.Recognizer != nil {
		result, err := r.opts.Recognizer.Recognize(ctx, a.Text)
		if err != nil {
			return err
		}
		tc.TurnState()["recognized"] = result.Memory()
	}

	ds := r.loadDialogState(tc)

	conf := dialogs.DefaultStateManagerConfiguration(r.userState, r.convState, r.opts.Settings)
	if r.opts.DefaultScope != "" {
		conf.DefaultScope = r.opts.DefaultScope
	}
	if r.opts.MaxResolverPasses > 0 {
		conf.MaxResolverPasses = r.opts.MaxResolverPasses
	}

	dc := dialogs.NewDialogContext(r.dialogs, tc, ds, conf)

	result, err := dc.ContinueDialog()
	if err != nil {
		return err
	}
	if result.Status == dialogs.StatusEmpty {
		result, err = dc.BeginDialog(r.rootID, nil)
		if err != nil {
			return err
		}
	}

	logger.DebugCF("agent", "Dialog turn finished", map[string]any{
		"status":       string(result.Status),
		"conversation": a.Conversation.ID,
	})
	return nil
}

// loadDialogState pulls the dialog stack out of the conversation
// document, rehydrating from the JSON shape it takes after persistence,
// and stores the live pointer back so stack mutations are saved.
func (r *DialogRunner) loadDialogState(tc *state.TurnContext) *dialogs.DialogState {
	doc := r.convState.Get(tc)
	ds, ok := dialogs.DialogStateFrom(doc[dialogStateKey])
	if !ok {
		ds = &dialogs.DialogState{}
	}
	doc[dialogStateKey] = ds
	return ds
}
