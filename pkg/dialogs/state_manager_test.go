package dialogs

import (
	"testing"

	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
	"github.com/dotsetgreg/agenthost/pkg/schema"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

type testDialog struct {
	id    string
	props map[string]any
}

func (d *testDialog) ID() string { return d.id }

func (d *testDialog) BeginDialog(dc *DialogContext, options any) (DialogTurnResult, error) {
	return DialogTurnResult{Status: StatusWaiting}, nil
}

func (d *testDialog) ContinueDialog(dc *DialogContext) (DialogTurnResult, error) {
	return dc.EndDialog(dc.Context().Activity().Text)
}

func (d *testDialog) ResumeDialog(dc *DialogContext, reason DialogReason, result any) (DialogTurnResult, error) {
	return DialogTurnResult{Status: StatusWaiting}, nil
}

func (d *testDialog) Properties() map[string]any { return d.props }

func newTestDialogContext(t *testing.T, dialogs ...Dialog) *DialogContext {
	t.Helper()
	storage := state.NewMemoryStorage()
	conf := DefaultStateManagerConfiguration(
		state.NewUserState(storage),
		state.NewConversationState(storage),
		map[string]any{
			"greeting": "hello",
			"limits":   map[string]any{"maxTurns": 5},
		},
	)
	tc := state.NewTurnContext(schema.NewMessageActivity("test", "conv-1", "user-1", "hi"))
	return NewDialogContext(NewDialogSet(dialogs...), tc, &DialogState{}, conf)
}

func pushInstance(dc *DialogContext, id string) *DialogInstance {
	inst := &DialogInstance{ID: id, State: map[string]any{}}
	dc.dialogState.Stack = append(dc.dialogState.Stack, inst)
	return inst
}

func TestStateManager_SetGetRoundTrip(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("user.profile.name", "Ada"); err != nil {
		t.Fatal(err)
	}
	got, err := sm.GetValue("user.profile.name", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Ada" {
		t.Fatalf("got %v, want Ada", got)
	}

	missing, err := sm.GetValue("user.profile.missing", "default")
	if err != nil {
		t.Fatal(err)
	}
	if missing != "default" {
		t.Fatalf("missing path returned %v, want default", missing)
	}
}

func TestStateManager_ScopeRootRead(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("turn.counter", 3); err != nil {
		t.Fatal(err)
	}
	root, err := sm.GetValue("turn", nil)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := root.(map[string]any)
	if !ok || m["counter"] != 3 {
		t.Fatalf("turn root = %v", root)
	}
}

func TestStateManager_SetScopeRootNilFails(t *testing.T) {
	dc := newTestDialogContext(t)
	err := dc.State().SetValue("user", nil)
	if !agenterrors.HasCode(err, agenterrors.CodeUndefinedMemoryObject) {
		t.Fatalf("got %v, want undefined memory object", err)
	}
}

func TestStateManager_DialogScopeWithoutActiveDialogFails(t *testing.T) {
	dc := newTestDialogContext(t)
	err := dc.State().SetValue("dialog.foo", "bar")
	if !agenterrors.HasCode(err, agenterrors.CodeActiveDialogUndefined) {
		t.Fatalf("got %v, want active dialog undefined", err)
	}

	// Reads never fail: an unbound dialog scope is just empty.
	got, err := dc.State().GetValue("dialog.foo", "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fallback" {
		t.Fatalf("got %v", got)
	}
}

func TestStateManager_DialogScopeBindsActiveContainer(t *testing.T) {
	root := NewComponentDialog("root")
	dc := newTestDialogContext(t, root)
	inst := pushInstance(dc, "root")

	if err := dc.State().SetValue("$name", "Ada"); err != nil {
		t.Fatal(err)
	}
	if inst.State["name"] != "Ada" {
		t.Fatalf("container state = %v", inst.State)
	}
	got, err := dc.State().GetValue("dialog.name", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Ada" {
		t.Fatalf("got %v", got)
	}
}

func TestStateManager_DialogScopeFallsBackToParentContainer(t *testing.T) {
	leaf := &testDialog{id: "leaf"}
	comp := NewComponentDialog("comp").AddDialog(leaf)
	dc := newTestDialogContext(t, comp)
	compInst := pushInstance(dc, "comp")

	child, err := comp.CreateChildContext(dc)
	if err != nil {
		t.Fatal(err)
	}
	pushInstance(child, "leaf")

	// The leaf is not a container, so $ binds to the parent component.
	if err := child.State().SetValue("$city", "Seattle"); err != nil {
		t.Fatal(err)
	}
	if compInst.State["city"] != "Seattle" {
		t.Fatalf("component state = %v", compInst.State)
	}
}

func TestStateManager_ThisScopeBindsActiveInstance(t *testing.T) {
	leaf := &testDialog{id: "leaf"}
	dc := newTestDialogContext(t, leaf)
	inst := pushInstance(dc, "leaf")

	if err := dc.State().SetValue("this.attempts", 2); err != nil {
		t.Fatal(err)
	}
	if inst.State["attempts"] != 2 {
		t.Fatalf("instance state = %v", inst.State)
	}
}

func TestStateManager_ReadOnlyScopesRejectWrites(t *testing.T) {
	leaf := &testDialog{id: "leaf", props: map[string]any{"maxTurns": 3}}
	dc := newTestDialogContext(t, leaf)
	pushInstance(dc, "leaf")

	for _, path := range []string{"settings.greeting", "class.maxTurns", "dialogcontext.stack"} {
		err := dc.State().SetValue(path, "nope")
		if !agenterrors.HasCode(err, agenterrors.CodeMemoryScopeReadOnly) {
			t.Fatalf("SetValue(%q): got %v, want read-only error", path, err)
		}
		err = dc.State().DeleteValue(path)
		if !agenterrors.HasCode(err, agenterrors.CodeMemoryScopeReadOnly) {
			t.Fatalf("DeleteValue(%q): got %v, want read-only error", path, err)
		}
	}
}

func TestStateManager_SettingsAndClassReads(t *testing.T) {
	leaf := &testDialog{id: "leaf", props: map[string]any{"maxTurns": 3}}
	dc := newTestDialogContext(t, leaf)
	pushInstance(dc, "leaf")
	sm := dc.State()

	greeting, err := sm.GetStringValue("settings.greeting", "")
	if err != nil || greeting != "hello" {
		t.Fatalf("settings.greeting = %q, err %v", greeting, err)
	}
	maxTurns, err := sm.GetIntValue("settings.limits.maxTurns", 0)
	if err != nil || maxTurns != 5 {
		t.Fatalf("settings.limits.maxTurns = %d, err %v", maxTurns, err)
	}
	classMax, err := sm.GetIntValue("%maxTurns", 0)
	if err != nil || classMax != 3 {
		t.Fatalf("%%maxTurns = %d, err %v", classMax, err)
	}
}

func TestStateManager_EntityFirstSemantics(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("turn.recognized.entities.city", []any{"Seattle", "Tacoma"}); err != nil {
		t.Fatal(err)
	}
	if err := sm.SetValue("turn.recognized.entities.age", 30); err != nil {
		t.Fatal(err)
	}

	city, err := sm.GetValue("@city", nil)
	if err != nil {
		t.Fatal(err)
	}
	if city != "Seattle" {
		t.Fatalf("@city = %v, want Seattle", city)
	}

	all, err := sm.GetValue("@@city", nil)
	if err != nil {
		t.Fatal(err)
	}
	if list, ok := all.([]any); !ok || len(list) != 2 {
		t.Fatalf("@@city = %v, want the full list", all)
	}

	// first() on a scalar passes the scalar through.
	age, err := sm.GetValue("@age", nil)
	if err != nil {
		t.Fatal(err)
	}
	if age != 30 {
		t.Fatalf("@age = %v, want 30", age)
	}
}

func TestStateManager_HashIntentAlias(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("turn.recognized.intents.Greeting.score", 0.9); err != nil {
		t.Fatal(err)
	}
	score, err := sm.GetValue("#Greeting.score", nil)
	if err != nil {
		t.Fatal(err)
	}
	if score != 0.9 {
		t.Fatalf("#Greeting.score = %v", score)
	}
}

func TestStateManager_ScopeNamesAreCaseSensitive(t *testing.T) {
	root := NewComponentDialog("root")
	dc := newTestDialogContext(t, root)
	pushInstance(dc, "root")
	sm := dc.State()

	// "User" is not a scope, so the whole path routes to the default
	// scope instead of the user scope.
	if err := sm.SetValue("User.name", "Ada"); err != nil {
		t.Fatal(err)
	}
	fromUser, err := sm.GetValue("user.name", "absent")
	if err != nil {
		t.Fatal(err)
	}
	if fromUser != "absent" {
		t.Fatalf("user.name = %v, case-folded scope match leaked", fromUser)
	}
	fromDialog, err := sm.GetValue("$User.name", nil)
	if err != nil {
		t.Fatal(err)
	}
	if fromDialog != "Ada" {
		t.Fatalf("$User.name = %v", fromDialog)
	}
}

func TestStateManager_ArrayIndexing(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("user.tags[0]", "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := sm.SetValue("user.tags[1]", "beta"); err != nil {
		t.Fatal(err)
	}

	// Writing past the append boundary is malformed, not an extension.
	err := sm.SetValue("user.tags[5]", "gap")
	if !agenterrors.HasCode(err, agenterrors.CodeInvalidPath) {
		t.Fatalf("got %v, want invalid path", err)
	}

	// Reading out of range is a missing value, not an error.
	got, err := sm.GetValue("user.tags[9]", "none")
	if err != nil {
		t.Fatal(err)
	}
	if got != "none" {
		t.Fatalf("got %v", got)
	}

	first, err := sm.GetValue("user.tags[0]", nil)
	if err != nil || first != "alpha" {
		t.Fatalf("user.tags[0] = %v, err %v", first, err)
	}
}

func TestStateManager_QuotedBracketKeys(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("user.profile['full name']", "Ada Lovelace"); err != nil {
		t.Fatal(err)
	}
	got, err := sm.GetValue(`user.profile["full name"]`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Ada Lovelace" {
		t.Fatalf("got %v", got)
	}
}

func TestStateManager_DeleteValue(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	if err := sm.SetValue("user.profile.name", "Ada"); err != nil {
		t.Fatal(err)
	}
	if err := sm.DeleteValue("user.profile.name"); err != nil {
		t.Fatal(err)
	}
	got, err := sm.GetValue("user.profile.name", "gone")
	if err != nil || got != "gone" {
		t.Fatalf("after delete: %v, err %v", got, err)
	}

	// Deleting something that never existed is a no-op.
	if err := sm.DeleteValue("user.never.was.here"); err != nil {
		t.Fatalf("delete of absent path errored: %v", err)
	}
}

type loopingResolver struct{}

func (loopingResolver) TransformPath(path string) string { return path + "x" }

func TestStateManager_ResolutionLoopIsBounded(t *testing.T) {
	conf := &StateManagerConfiguration{
		PathResolvers: []PathResolver{loopingResolver{}},
		MemoryScopes:  []MemoryScope{NewTurnScope()},
		DefaultScope:  ScopeTurn,
	}
	tc := state.NewTurnContext(schema.NewMessageActivity("test", "c", "u", "hi"))
	dc := NewDialogContext(NewDialogSet(), tc, &DialogState{}, conf)

	_, err := dc.State().GetValue("anything", nil)
	if !agenterrors.HasCode(err, agenterrors.CodePathResolutionLoop) {
		t.Fatalf("got %v, want path resolution loop", err)
	}
}

func TestStateManager_DialogContextScopeView(t *testing.T) {
	comp := NewComponentDialog("outer")
	leaf := &testDialog{id: "inner"}
	dc := newTestDialogContext(t, comp, leaf)
	pushInstance(dc, "outer")
	pushInstance(dc, "inner")

	view, err := dc.State().GetValue("dialogcontext", nil)
	if err != nil {
		t.Fatal(err)
	}
	m := view.(map[string]any)
	stack := m["stack"].([]any)
	if len(stack) != 2 || stack[0] != "outer" || stack[1] != "inner" {
		t.Fatalf("stack = %v", stack)
	}
	if m["activeDialog"] != "inner" {
		t.Fatalf("activeDialog = %v", m["activeDialog"])
	}
}

func TestStateManager_SnapshotSelectsScopes(t *testing.T) {
	leaf := &testDialog{id: "leaf"}
	dc := newTestDialogContext(t, leaf)
	pushInstance(dc, "leaf")
	sm := dc.State()

	if err := sm.SetValue("user.name", "Ada"); err != nil {
		t.Fatal(err)
	}

	snapshot := sm.GetMemorySnapshot()
	if _, ok := snapshot[ScopeUser]; !ok {
		t.Fatal("snapshot missing user scope")
	}
	if _, ok := snapshot[ScopeTurn]; !ok {
		t.Fatal("snapshot missing turn scope")
	}
	if _, ok := snapshot[ScopeSettings]; ok {
		t.Fatal("snapshot must not include settings")
	}
	if _, ok := snapshot[ScopeDialogContext]; ok {
		t.Fatal("snapshot must not include dialogcontext")
	}
}

func TestStateManager_GetScopeUnknownFails(t *testing.T) {
	dc := newTestDialogContext(t)
	_, err := dc.State().GetScope("nosuch")
	if !agenterrors.HasCode(err, agenterrors.CodeScopeNotFound) {
		t.Fatalf("got %v, want scope not found", err)
	}
}

func TestStateManager_MalformedPaths(t *testing.T) {
	dc := newTestDialogContext(t)
	sm := dc.State()

	for _, path := range []string{"user..name", "user.tags[", "user.tags[-1]", "user.last()"} {
		_, err := sm.GetValue(path, nil)
		if !agenterrors.HasCode(err, agenterrors.CodeInvalidPath) {
			t.Fatalf("GetValue(%q): got %v, want invalid path", path, err)
		}
	}
}
