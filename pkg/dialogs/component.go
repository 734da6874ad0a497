package dialogs

import "github.com/dotsetgreg/agenthost/pkg/agenterrors"

// Child stack location inside a component instance's state.
const componentDialogsKey = "dialogs"

// ComponentDialog packages an inner dialog set behind a single dialog id.
// It is a Container: the "dialog" memory scope binds to a component
// instance's state, and child dialogs run on a nested stack stored inside
// that state.
type ComponentDialog struct {
	id              string
	dialogs         *DialogSet
	initialDialogID string
}

func NewComponentDialog(id string) *ComponentDialog {
	return &ComponentDialog{id: id, dialogs: NewDialogSet()}
}

func (c *ComponentDialog) ID() string { return c.id }

// AddDialog registers a child dialog. The first dialog added becomes the
// one started when the component begins, unless overridden.
func (c *ComponentDialog) AddDialog(dialog Dialog) *ComponentDialog {
	c.dialogs.Add(dialog)
	if c.initialDialogID == "" {
		c.initialDialogID = dialog.ID()
	}
	return c
}

// SetInitialDialogID overrides which child starts the component.
func (c *ComponentDialog) SetInitialDialogID(id string) *ComponentDialog {
	c.initialDialogID = id
	return c
}

// CreateChildContext builds the nested dialog context over the child
// stack stored in this instance's state, rehydrating it after a
// persistence round trip.
func (c *ComponentDialog) CreateChildContext(dc *DialogContext) (*DialogContext, error) {
	inst := dc.ActiveDialog()
	if inst == nil {
		return nil, agenterrors.ActiveDialogUndefined("create child context")
	}
	if inst.State == nil {
		inst.State = map[string]any{}
	}

	ds, ok := DialogStateFrom(inst.State[componentDialogsKey])
	if !ok {
		ds = &DialogState{}
	}
	// Store the live pointer back so nested stack mutations persist.
	inst.State[componentDialogsKey] = ds

	return newChildContext(dc, c.dialogs, ds), nil
}

func (c *ComponentDialog) BeginDialog(dc *DialogContext, options any) (DialogTurnResult, error) {
	if c.initialDialogID == "" {
		return DialogTurnResult{}, agenterrors.DialogNotFound(c.id + ": no initial dialog")
	}
	child, err := c.CreateChildContext(dc)
	if err != nil {
		return DialogTurnResult{}, err
	}
	result, err := child.BeginDialog(c.initialDialogID, options)
	if err != nil {
		return DialogTurnResult{}, err
	}
	return c.endIfComplete(dc, result)
}

func (c *ComponentDialog) ContinueDialog(dc *DialogContext) (DialogTurnResult, error) {
	child, err := c.CreateChildContext(dc)
	if err != nil {
		return DialogTurnResult{}, err
	}
	result, err := child.ContinueDialog()
	if err != nil {
		return DialogTurnResult{}, err
	}
	return c.endIfComplete(dc, result)
}

// ResumeDialog routes a resumption from the outer stack into the child
// stack as a continuation.
func (c *ComponentDialog) ResumeDialog(dc *DialogContext, reason DialogReason, result any) (DialogTurnResult, error) {
	return c.ContinueDialog(dc)
}

// endIfComplete collapses a finished child stack into the component's own
// end: the inner result becomes the component's result on the outer stack.
func (c *ComponentDialog) endIfComplete(dc *DialogContext, result DialogTurnResult) (DialogTurnResult, error) {
	switch result.Status {
	case StatusComplete, StatusCancelled:
		return dc.EndDialog(result.Result)
	default:
		return result, nil
	}
}
