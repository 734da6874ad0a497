package dialogs

import (
	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// DialogContext is the live execution context for one turn against one
// dialog stack. Child containers get their own context with a parent
// back-reference; scope lookups always take the context explicitly.
type DialogContext struct {
	dialogs     *DialogSet
	turn        *state.TurnContext
	dialogState *DialogState
	parent      *DialogContext
	stateMgr    *DialogStateManager
}

// NewDialogContext builds the root context for a turn. conf may be nil, in
// which case a minimal configuration (turn and dialog scopes only) is used.
func NewDialogContext(set *DialogSet, tc *state.TurnContext, ds *DialogState, conf *StateManagerConfiguration) *DialogContext {
	if ds == nil {
		ds = &DialogState{}
	}
	dc := &DialogContext{
		dialogs:     set,
		turn:        tc,
		dialogState: ds,
	}
	dc.stateMgr = NewDialogStateManager(dc, conf)
	return dc
}

func newChildContext(parent *DialogContext, set *DialogSet, ds *DialogState) *DialogContext {
	dc := &DialogContext{
		dialogs:     set,
		turn:        parent.turn,
		dialogState: ds,
		parent:      parent,
	}
	dc.stateMgr = NewDialogStateManager(dc, parent.stateMgr.config)
	return dc
}

// Context returns the turn context this dialog context runs in.
func (dc *DialogContext) Context() *state.TurnContext {
	return dc.turn
}

// Parent returns the enclosing dialog context, or nil at the root.
func (dc *DialogContext) Parent() *DialogContext {
	return dc.parent
}

// Stack returns the live dialog stack, innermost dialog last.
func (dc *DialogContext) Stack() []*DialogInstance {
	return dc.dialogState.Stack
}

// ActiveDialog returns the instance on top of the stack, or nil.
func (dc *DialogContext) ActiveDialog() *DialogInstance {
	if n := len(dc.dialogState.Stack); n > 0 {
		return dc.dialogState.Stack[n-1]
	}
	return nil
}

// State is the scoped memory manager bound to this context.
func (dc *DialogContext) State() *DialogStateManager {
	return dc.stateMgr
}

// FindDialog resolves id against this context's dialog set, walking up
// through parent contexts when not found locally.
func (dc *DialogContext) FindDialog(id string) Dialog {
	if d := dc.dialogs.Find(id); d != nil {
		return d
	}
	if dc.parent != nil {
		return dc.parent.FindDialog(id)
	}
	return nil
}

// BeginDialog pushes a new instance of the dialog onto the stack and
// starts it.
func (dc *DialogContext) BeginDialog(id string, options any) (DialogTurnResult, error) {
	dialog := dc.FindDialog(id)
	if dialog == nil {
		return DialogTurnResult{}, agenterrors.DialogNotFound(id)
	}

	instance := &DialogInstance{ID: id, State: make(map[string]any)}
	dc.dialogState.Stack = append(dc.dialogState.Stack, instance)
	return dialog.BeginDialog(dc, options)
}

// ContinueDialog routes the turn to the active dialog. An empty stack
// reports StatusEmpty rather than failing.
func (dc *DialogContext) ContinueDialog() (DialogTurnResult, error) {
	instance := dc.ActiveDialog()
	if instance == nil {
		return DialogTurnResult{Status: StatusEmpty}, nil
	}

	dialog := dc.FindDialog(instance.ID)
	if dialog == nil {
		return DialogTurnResult{}, agenterrors.DialogNotFound(instance.ID)
	}
	return dialog.ContinueDialog(dc)
}

// EndDialog pops the active dialog and resumes whatever is underneath,
// handing it the ended dialog's result.
func (dc *DialogContext) EndDialog(result any) (DialogTurnResult, error) {
	dc.pop()

	instance := dc.ActiveDialog()
	if instance == nil {
		return DialogTurnResult{Status: StatusComplete, Result: result}, nil
	}

	dialog := dc.FindDialog(instance.ID)
	if dialog == nil {
		return DialogTurnResult{}, agenterrors.DialogNotFound(instance.ID)
	}
	return dialog.ResumeDialog(dc, ReasonEndCalled, result)
}

// ReplaceDialog swaps the active dialog for a new one, keeping the rest
// of the stack intact.
func (dc *DialogContext) ReplaceDialog(id string, options any) (DialogTurnResult, error) {
	dc.pop()
	return dc.BeginDialog(id, options)
}

// CancelAllDialogs empties the stack.
func (dc *DialogContext) CancelAllDialogs() (DialogTurnResult, error) {
	if len(dc.dialogState.Stack) == 0 {
		return DialogTurnResult{Status: StatusEmpty}, nil
	}
	dc.dialogState.Stack = nil
	return DialogTurnResult{Status: StatusCancelled}, nil
}

func (dc *DialogContext) pop() *DialogInstance {
	n := len(dc.dialogState.Stack)
	if n == 0 {
		return nil
	}
	instance := dc.dialogState.Stack[n-1]
	dc.dialogState.Stack = dc.dialogState.Stack[:n-1]
	return instance
}
