package dialogs

import (
	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// Built-in memory scope names. Lookup is case-sensitive.
const (
	ScopeTurn          = "turn"
	ScopeSettings      = "settings"
	ScopeUser          = "user"
	ScopeConversation  = "conversation"
	ScopeDialog        = "dialog"
	ScopeThis          = "this"
	ScopeClass         = "class"
	ScopeDialogClass   = "dialogclass"
	ScopeDialogContext = "dialogcontext"
)

// MemoryScope is a named region of state addressable by path expressions.
//
// GetMemory never fails: a scope with nothing bound reports an empty map.
// WriteMemory returns the live backing object for nested writes and fails
// when the scope is read-only or has no binding. SetMemory replaces the
// backing object wholesale; the state manager rejects nil values before a
// scope ever sees them.
type MemoryScope interface {
	Name() string
	IncludeInSnapshot() bool
	GetMemory(dc *DialogContext) map[string]any
	WriteMemory(dc *DialogContext) (map[string]any, error)
	SetMemory(dc *DialogContext, value map[string]any) error
}

// TurnScope binds to the per-turn scratch map on the turn context.
type TurnScope struct{}

func NewTurnScope() *TurnScope { return &TurnScope{} }

func (s *TurnScope) Name() string            { return ScopeTurn }
func (s *TurnScope) IncludeInSnapshot() bool { return true }

func (s *TurnScope) GetMemory(dc *DialogContext) map[string]any {
	return dc.Context().TurnState()
}

func (s *TurnScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return dc.Context().TurnState(), nil
}

func (s *TurnScope) SetMemory(dc *DialogContext, value map[string]any) error {
	dc.Context().ReplaceTurnState(value)
	return nil
}

// SettingsScope exposes the host configuration as read-only memory.
type SettingsScope struct {
	settings map[string]any
}

func NewSettingsScope(settings map[string]any) *SettingsScope {
	if settings == nil {
		settings = map[string]any{}
	}
	return &SettingsScope{settings: settings}
}

func (s *SettingsScope) Name() string            { return ScopeSettings }
func (s *SettingsScope) IncludeInSnapshot() bool { return false }

func (s *SettingsScope) GetMemory(dc *DialogContext) map[string]any {
	return s.settings
}

func (s *SettingsScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return nil, agenterrors.MemoryScopeReadOnly(ScopeSettings)
}

func (s *SettingsScope) SetMemory(dc *DialogContext, value map[string]any) error {
	return agenterrors.MemoryScopeReadOnly(ScopeSettings)
}

// AgentStateScope binds a scope name to a persisted AgentState document,
// used for both the user and conversation scopes.
type AgentStateScope struct {
	name  string
	state *state.AgentState
}

func NewUserScope(st *state.AgentState) *AgentStateScope {
	return &AgentStateScope{name: ScopeUser, state: st}
}

func NewConversationScope(st *state.AgentState) *AgentStateScope {
	return &AgentStateScope{name: ScopeConversation, state: st}
}

func (s *AgentStateScope) Name() string            { return s.name }
func (s *AgentStateScope) IncludeInSnapshot() bool { return true }

func (s *AgentStateScope) GetMemory(dc *DialogContext) map[string]any {
	return s.state.Get(dc.Context())
}

func (s *AgentStateScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return s.state.Get(dc.Context()), nil
}

func (s *AgentStateScope) SetMemory(dc *DialogContext, value map[string]any) error {
	s.state.Replace(dc.Context(), value)
	return nil
}

// DialogScope binds to the nearest container dialog's state: the active
// dialog if its definition is a container, otherwise the parent context's
// active dialog if that one is. The walk is exactly two hops.
type DialogScope struct{}

func NewDialogScope() *DialogScope { return &DialogScope{} }

func (s *DialogScope) Name() string            { return ScopeDialog }
func (s *DialogScope) IncludeInSnapshot() bool { return true }

// containerInstance resolves the dialog-scope binding, or nil when neither
// hop lands on a container.
func containerInstance(dc *DialogContext) *DialogInstance {
	if inst := dc.ActiveDialog(); inst != nil {
		if _, ok := dc.FindDialog(inst.ID).(Container); ok {
			return inst
		}
	}
	if parent := dc.Parent(); parent != nil {
		if inst := parent.ActiveDialog(); inst != nil {
			if _, ok := parent.FindDialog(inst.ID).(Container); ok {
				return inst
			}
		}
	}
	return nil
}

func (s *DialogScope) GetMemory(dc *DialogContext) map[string]any {
	if inst := containerInstance(dc); inst != nil {
		if inst.State == nil {
			inst.State = map[string]any{}
		}
		return inst.State
	}
	return map[string]any{}
}

func (s *DialogScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	inst := containerInstance(dc)
	if inst == nil {
		return nil, agenterrors.ActiveDialogUndefined("write dialog scope")
	}
	if inst.State == nil {
		inst.State = map[string]any{}
	}
	return inst.State, nil
}

func (s *DialogScope) SetMemory(dc *DialogContext, value map[string]any) error {
	inst := containerInstance(dc)
	if inst == nil {
		return agenterrors.ActiveDialogUndefined("set dialog scope")
	}
	inst.State = value
	return nil
}

// ThisScope binds to the active dialog instance's own state regardless of
// container capability.
type ThisScope struct{}

func NewThisScope() *ThisScope { return &ThisScope{} }

func (s *ThisScope) Name() string            { return ScopeThis }
func (s *ThisScope) IncludeInSnapshot() bool { return true }

func (s *ThisScope) GetMemory(dc *DialogContext) map[string]any {
	if inst := dc.ActiveDialog(); inst != nil {
		if inst.State == nil {
			inst.State = map[string]any{}
		}
		return inst.State
	}
	return map[string]any{}
}

func (s *ThisScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	inst := dc.ActiveDialog()
	if inst == nil {
		return nil, agenterrors.ActiveDialogUndefined("write this scope")
	}
	if inst.State == nil {
		inst.State = map[string]any{}
	}
	return inst.State, nil
}

func (s *ThisScope) SetMemory(dc *DialogContext, value map[string]any) error {
	inst := dc.ActiveDialog()
	if inst == nil {
		return agenterrors.ActiveDialogUndefined("set this scope")
	}
	inst.State = value
	return nil
}

// ClassScope exposes the active dialog definition's static properties,
// read-only.
type ClassScope struct{}

func NewClassScope() *ClassScope { return &ClassScope{} }

func (s *ClassScope) Name() string            { return ScopeClass }
func (s *ClassScope) IncludeInSnapshot() bool { return false }

func (s *ClassScope) GetMemory(dc *DialogContext) map[string]any {
	if inst := dc.ActiveDialog(); inst != nil {
		if provider, ok := dc.FindDialog(inst.ID).(PropertyProvider); ok {
			if props := provider.Properties(); props != nil {
				return props
			}
		}
	}
	return map[string]any{}
}

func (s *ClassScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return nil, agenterrors.MemoryScopeReadOnly(ScopeClass)
}

func (s *ClassScope) SetMemory(dc *DialogContext, value map[string]any) error {
	return agenterrors.MemoryScopeReadOnly(ScopeClass)
}

// DialogClassScope exposes the static properties of the dialog the
// "dialog" scope is bound to, read-only.
type DialogClassScope struct{}

func NewDialogClassScope() *DialogClassScope { return &DialogClassScope{} }

func (s *DialogClassScope) Name() string            { return ScopeDialogClass }
func (s *DialogClassScope) IncludeInSnapshot() bool { return false }

func (s *DialogClassScope) GetMemory(dc *DialogContext) map[string]any {
	if inst := containerInstance(dc); inst != nil {
		if provider, ok := dc.FindDialog(inst.ID).(PropertyProvider); ok {
			if props := provider.Properties(); props != nil {
				return props
			}
		}
	}
	return map[string]any{}
}

func (s *DialogClassScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return nil, agenterrors.MemoryScopeReadOnly(ScopeDialogClass)
}

func (s *DialogClassScope) SetMemory(dc *DialogContext, value map[string]any) error {
	return agenterrors.MemoryScopeReadOnly(ScopeDialogClass)
}

// DialogContextScope reflects the dialog stack itself: the ordered list of
// dialog ids, the active dialog, and the parent context's active dialog.
// Read-only by construction, the view is rebuilt on every read.
type DialogContextScope struct{}

func NewDialogContextScope() *DialogContextScope { return &DialogContextScope{} }

func (s *DialogContextScope) Name() string            { return ScopeDialogContext }
func (s *DialogContextScope) IncludeInSnapshot() bool { return false }

func (s *DialogContextScope) GetMemory(dc *DialogContext) map[string]any {
	stack := make([]any, 0, len(dc.Stack()))
	for _, inst := range dc.Stack() {
		stack = append(stack, inst.ID)
	}

	view := map[string]any{"stack": stack}
	if inst := dc.ActiveDialog(); inst != nil {
		view["activeDialog"] = inst.ID
	}
	if parent := dc.Parent(); parent != nil {
		if inst := parent.ActiveDialog(); inst != nil {
			view["parent"] = inst.ID
		}
	}
	return view
}

func (s *DialogContextScope) WriteMemory(dc *DialogContext) (map[string]any, error) {
	return nil, agenterrors.MemoryScopeReadOnly(ScopeDialogContext)
}

func (s *DialogContextScope) SetMemory(dc *DialogContext, value map[string]any) error {
	return agenterrors.MemoryScopeReadOnly(ScopeDialogContext)
}
