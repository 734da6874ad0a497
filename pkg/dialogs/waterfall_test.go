package dialogs

import (
	"encoding/json"
	"testing"

	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
	"github.com/dotsetgreg/agenthost/pkg/schema"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// runTurn feeds one user utterance through the stack: continue if a
// dialog is active, otherwise start the root.
func runTurn(t *testing.T, set *DialogSet, ds *DialogState, rootID, text string) (*state.TurnContext, DialogTurnResult) {
	t.Helper()
	tc := state.NewTurnContext(schema.NewMessageActivity("test", "conv-1", "user-1", text))
	dc := NewDialogContext(set, tc, ds, nil)

	result, err := dc.ContinueDialog()
	if err != nil {
		t.Fatal(err)
	}
	if result.Status == StatusEmpty {
		result, err = dc.BeginDialog(rootID, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	return tc, result
}

func lastText(t *testing.T, tc *state.TurnContext) string {
	t.Helper()
	responses := tc.Responses()
	if len(responses) == 0 {
		t.Fatal("no responses queued")
	}
	return responses[len(responses)-1].Text
}

func TestWaterfall_StepsAdvanceAcrossTurns(t *testing.T) {
	flow := NewWaterfallDialog("flow",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			sc.SendText("What is your name?")
			return sc.Waiting()
		},
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			name, _ := sc.Result().(string)
			sc.Values()["name"] = name
			sc.SendText("Hello " + name)
			return sc.EndDialog(name)
		},
	)
	set := NewDialogSet(flow)
	ds := &DialogState{}

	tc, result := runTurn(t, set, ds, "flow", "hi")
	if result.Status != StatusWaiting {
		t.Fatalf("turn 1 status = %v", result.Status)
	}
	if lastText(t, tc) != "What is your name?" {
		t.Fatalf("turn 1 reply = %q", lastText(t, tc))
	}

	tc, result = runTurn(t, set, ds, "flow", "Ada")
	if result.Status != StatusComplete {
		t.Fatalf("turn 2 status = %v", result.Status)
	}
	if result.Result != "Ada" {
		t.Fatalf("result = %v", result.Result)
	}
	if lastText(t, tc) != "Hello Ada" {
		t.Fatalf("turn 2 reply = %q", lastText(t, tc))
	}
	if len(ds.Stack) != 0 {
		t.Fatalf("stack not empty after completion: %d", len(ds.Stack))
	}
}

func TestWaterfall_NextRunsFollowingStepSameTurn(t *testing.T) {
	flow := NewWaterfallDialog("flow",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.Next("carried")
		},
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.EndDialog(sc.Result())
		},
	)
	set := NewDialogSet(flow)

	_, result := runTurn(t, set, &DialogState{}, "flow", "go")
	if result.Status != StatusComplete || result.Result != "carried" {
		t.Fatalf("result = %+v", result)
	}
}

func TestTextPrompt_RetriesUntilValidInput(t *testing.T) {
	flow := NewWaterfallDialog("flow",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.BeginDialog("ask", PromptOptions{
				Prompt:      "Name?",
				RetryPrompt: "I need a name.",
			})
		},
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.EndDialog(sc.Result())
		},
	)
	set := NewDialogSet(flow, NewTextPrompt("ask"))
	ds := &DialogState{}

	tc, result := runTurn(t, set, ds, "flow", "hi")
	if result.Status != StatusWaiting || lastText(t, tc) != "Name?" {
		t.Fatalf("turn 1: %v, reply %q", result.Status, lastText(t, tc))
	}

	tc, result = runTurn(t, set, ds, "flow", "   ")
	if result.Status != StatusWaiting || lastText(t, tc) != "I need a name." {
		t.Fatalf("turn 2: %v, reply %q", result.Status, lastText(t, tc))
	}

	_, result = runTurn(t, set, ds, "flow", "Ada")
	if result.Status != StatusComplete || result.Result != "Ada" {
		t.Fatalf("turn 3: %+v", result)
	}
}

func TestComponentDialog_NestedStackSurvivesPersistence(t *testing.T) {
	inner := NewWaterfallDialog("inner",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.BeginDialog("ask", PromptOptions{Prompt: "City?"})
		},
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			city, _ := sc.Result().(string)
			if err := sc.Context().State().SetValue("$city", city); err != nil {
				return DialogTurnResult{}, err
			}
			return sc.EndDialog(city)
		},
	)
	comp := NewComponentDialog("trip").
		AddDialog(inner).
		AddDialog(NewTextPrompt("ask"))
	set := NewDialogSet(comp)
	ds := &DialogState{}

	tc, result := runTurn(t, set, ds, "trip", "book a trip")
	if result.Status != StatusWaiting || lastText(t, tc) != "City?" {
		t.Fatalf("turn 1: %v, reply %q", result.Status, lastText(t, tc))
	}

	// Simulate the conversation document going through storage between
	// turns: everything must rehydrate from plain JSON shapes.
	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	restored, ok := DialogStateFrom(raw)
	if !ok {
		t.Fatal("dialog state did not rehydrate")
	}

	_, result = runTurn(t, set, restored, "trip", "Seattle")
	if result.Status != StatusComplete || result.Result != "Seattle" {
		t.Fatalf("turn 2: %+v", result)
	}
}

func TestDialogContext_BeginUnknownDialogFails(t *testing.T) {
	tc := state.NewTurnContext(schema.NewMessageActivity("test", "c", "u", "hi"))
	dc := NewDialogContext(NewDialogSet(), tc, &DialogState{}, nil)

	_, err := dc.BeginDialog("ghost", nil)
	if !agenterrors.HasCode(err, agenterrors.CodeDialogNotFound) {
		t.Fatalf("got %v, want dialog not found", err)
	}
}

func TestDialogContext_CancelAllDialogs(t *testing.T) {
	flow := NewWaterfallDialog("flow",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.Waiting()
		},
	)
	set := NewDialogSet(flow)
	ds := &DialogState{}
	runTurn(t, set, ds, "flow", "hi")

	tc := state.NewTurnContext(schema.NewMessageActivity("test", "conv-1", "user-1", "cancel"))
	dc := NewDialogContext(set, tc, ds, nil)
	result, err := dc.CancelAllDialogs()
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusCancelled || len(ds.Stack) != 0 {
		t.Fatalf("cancel: %+v, stack %d", result, len(ds.Stack))
	}
}

func TestDialogContext_ReplaceDialogSwapsTop(t *testing.T) {
	first := NewWaterfallDialog("first",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.Context().ReplaceDialog("second", nil)
		},
	)
	second := NewWaterfallDialog("second",
		func(sc *WaterfallStepContext) (DialogTurnResult, error) {
			return sc.Waiting()
		},
	)
	set := NewDialogSet(first, second)
	ds := &DialogState{}

	_, result := runTurn(t, set, ds, "first", "hi")
	if result.Status != StatusWaiting {
		t.Fatalf("status = %v", result.Status)
	}
	if len(ds.Stack) != 1 || ds.Stack[0].ID != "second" {
		t.Fatalf("stack = %+v", ds.Stack)
	}
}
