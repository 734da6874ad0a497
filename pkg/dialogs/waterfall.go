package dialogs

// Waterfall instance-state keys. Values survive a persistence round trip,
// so numbers come back as float64 and maps as map[string]any.
const (
	waterfallStepIndexKey = "stepIndex"
	waterfallOptionsKey   = "options"
	waterfallValuesKey    = "values"
)

// WaterfallStep is one stage of a waterfall. Steps either wait for input,
// advance with sc.Next, or end the dialog.
type WaterfallStep func(sc *WaterfallStepContext) (DialogTurnResult, error)

// WaterfallDialog runs a fixed sequence of steps, one per turn unless a
// step advances explicitly. Step position and collected values live in
// the dialog instance state, so a waterfall resumes correctly after its
// conversation is persisted and reloaded.
type WaterfallDialog struct {
	id    string
	steps []WaterfallStep
}

func NewWaterfallDialog(id string, steps ...WaterfallStep) *WaterfallDialog {
	return &WaterfallDialog{id: id, steps: steps}
}

func (d *WaterfallDialog) ID() string { return d.id }

// AddStep appends a step, for builders that assemble waterfalls piecewise.
func (d *WaterfallDialog) AddStep(step WaterfallStep) *WaterfallDialog {
	d.steps = append(d.steps, step)
	return d
}

func (d *WaterfallDialog) BeginDialog(dc *DialogContext, options any) (DialogTurnResult, error) {
	inst := dc.ActiveDialog()
	inst.State[waterfallOptionsKey] = options
	inst.State[waterfallValuesKey] = map[string]any{}
	return d.runStep(dc, 0, ReasonBeginCalled, nil)
}

func (d *WaterfallDialog) ContinueDialog(dc *DialogContext) (DialogTurnResult, error) {
	var text string
	if a := dc.Context().Activity(); a != nil {
		text = a.Text
	}
	return d.ResumeDialog(dc, ReasonContinueCalled, text)
}

// ResumeDialog advances to the step after the one recorded in instance
// state, handing it result (a child dialog's outcome or the turn's text).
func (d *WaterfallDialog) ResumeDialog(dc *DialogContext, reason DialogReason, result any) (DialogTurnResult, error) {
	inst := dc.ActiveDialog()
	index := stateInt(inst.State[waterfallStepIndexKey]) + 1
	return d.runStep(dc, index, reason, result)
}

func (d *WaterfallDialog) runStep(dc *DialogContext, index int, reason DialogReason, result any) (DialogTurnResult, error) {
	if index >= len(d.steps) {
		return dc.EndDialog(result)
	}

	inst := dc.ActiveDialog()
	inst.State[waterfallStepIndexKey] = index

	values, _ := inst.State[waterfallValuesKey].(map[string]any)
	if values == nil {
		values = map[string]any{}
		inst.State[waterfallValuesKey] = values
	}

	sc := &WaterfallStepContext{
		dialog:  d,
		dc:      dc,
		index:   index,
		reason:  reason,
		options: inst.State[waterfallOptionsKey],
		values:  values,
		result:  result,
	}
	return d.steps[index](sc)
}

// WaterfallStepContext is handed to each step with the waterfall's
// position, options, accumulated values, and the previous step's result.
type WaterfallStepContext struct {
	dialog  *WaterfallDialog
	dc      *DialogContext
	index   int
	reason  DialogReason
	options any
	values  map[string]any
	result  any
}

// Context exposes the dialog context, including the scoped state manager.
func (sc *WaterfallStepContext) Context() *DialogContext { return sc.dc }

func (sc *WaterfallStepContext) Index() int           { return sc.index }
func (sc *WaterfallStepContext) Reason() DialogReason { return sc.reason }
func (sc *WaterfallStepContext) Options() any         { return sc.options }
func (sc *WaterfallStepContext) Result() any          { return sc.result }

// Values is the waterfall's shared scratch map, persisted with the
// instance across turns.
func (sc *WaterfallStepContext) Values() map[string]any { return sc.values }

// Next skips ahead to the following step within the same turn.
func (sc *WaterfallStepContext) Next(result any) (DialogTurnResult, error) {
	return sc.dialog.runStep(sc.dc, sc.index+1, ReasonContinueCalled, result)
}

// BeginDialog starts a child dialog from this step.
func (sc *WaterfallStepContext) BeginDialog(id string, options any) (DialogTurnResult, error) {
	return sc.dc.BeginDialog(id, options)
}

// EndDialog finishes the waterfall early.
func (sc *WaterfallStepContext) EndDialog(result any) (DialogTurnResult, error) {
	return sc.dc.EndDialog(result)
}

// SendText queues a reply from within a step.
func (sc *WaterfallStepContext) SendText(text string) {
	sc.dc.Context().SendText(text)
}

// Waiting reports that the step is paused for the next user turn.
func (sc *WaterfallStepContext) Waiting() (DialogTurnResult, error) {
	return DialogTurnResult{Status: StatusWaiting}, nil
}

// stateInt reads an instance-state number regardless of whether it has
// been through a JSON round trip.
func stateInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
