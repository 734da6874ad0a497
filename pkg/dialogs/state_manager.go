package dialogs

import (
	"strconv"
	"strings"

	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// StateManagerConfiguration carries the resolver and scope registries a
// DialogStateManager dispatches against. Registration order is
// significant for resolvers (longer aliases first) and preserved for
// scope snapshots.
type StateManagerConfiguration struct {
	PathResolvers []PathResolver
	MemoryScopes  []MemoryScope

	// DefaultScope receives paths whose first segment names no registered
	// scope. Empty means ScopeDialog.
	DefaultScope string

	// MaxResolverPasses bounds alias rewriting. Zero means 10.
	MaxResolverPasses int
}

const defaultMaxResolverPasses = 10

// DefaultStateManagerConfiguration wires every built-in resolver and
// scope. userState, conversationState, and settings may be nil/empty for
// hosts that do not carry them; the corresponding scopes are then omitted.
func DefaultStateManagerConfiguration(userState, conversationState *state.AgentState, settings map[string]any) *StateManagerConfiguration {
	conf := &StateManagerConfiguration{
		PathResolvers:     DefaultPathResolvers(),
		DefaultScope:      ScopeDialog,
		MaxResolverPasses: defaultMaxResolverPasses,
	}

	conf.MemoryScopes = append(conf.MemoryScopes,
		NewTurnScope(),
		NewDialogScope(),
		NewThisScope(),
		NewClassScope(),
		NewDialogClassScope(),
		NewDialogContextScope(),
	)
	if settings != nil {
		conf.MemoryScopes = append(conf.MemoryScopes, NewSettingsScope(settings))
	}
	if userState != nil {
		conf.MemoryScopes = append(conf.MemoryScopes, NewUserScope(userState))
	}
	if conversationState != nil {
		conf.MemoryScopes = append(conf.MemoryScopes, NewConversationScope(conversationState))
	}
	return conf
}

// DialogStateManager resolves path expressions against the registered
// memory scopes. It owns no state of its own: every access reads the live
// dialog context fresh.
type DialogStateManager struct {
	dc     *DialogContext
	config *StateManagerConfiguration
	scopes map[string]MemoryScope
}

func NewDialogStateManager(dc *DialogContext, conf *StateManagerConfiguration) *DialogStateManager {
	if conf == nil {
		conf = DefaultStateManagerConfiguration(nil, nil, nil)
	}
	if conf.DefaultScope == "" {
		conf.DefaultScope = ScopeDialog
	}
	if conf.MaxResolverPasses <= 0 {
		conf.MaxResolverPasses = defaultMaxResolverPasses
	}

	m := &DialogStateManager{
		dc:     dc,
		config: conf,
		scopes: make(map[string]MemoryScope, len(conf.MemoryScopes)),
	}
	for _, scope := range conf.MemoryScopes {
		m.scopes[scope.Name()] = scope
	}
	return m
}

// Configuration returns the registry backing this manager.
func (m *DialogStateManager) Configuration() *StateManagerConfiguration {
	return m.config
}

// GetScope looks a scope up by exact name.
func (m *DialogStateManager) GetScope(name string) (MemoryScope, error) {
	if scope, ok := m.scopes[name]; ok {
		return scope, nil
	}
	return nil, agenterrors.ScopeNotFound(name)
}

// TransformPath rewrites alias prefixes until the path reaches a fixed
// point. Rewriting that does not converge within the configured pass
// budget fails rather than looping.
func (m *DialogStateManager) TransformPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	for pass := 0; pass < m.config.MaxResolverPasses; pass++ {
		next := path
		for _, resolver := range m.config.PathResolvers {
			next = resolver.TransformPath(next)
		}
		if next == path {
			return path, nil
		}
		path = next
	}
	return "", agenterrors.PathResolutionLoop(path, m.config.MaxResolverPasses)
}

// resolveScope splits a canonical path into its memory scope and the
// remaining relative path. A first segment naming no registered scope
// routes the whole path into the default scope.
func (m *DialogStateManager) resolveScope(path string) (MemoryScope, string, error) {
	if path == "" {
		return nil, "", agenterrors.InvalidPath(path, "empty path")
	}

	name := path
	remainder := ""
	if cut := strings.IndexAny(path, ".["); cut >= 0 {
		name = path[:cut]
		remainder = path[cut:]
		remainder = strings.TrimPrefix(remainder, ".")
	}

	if scope, ok := m.scopes[name]; ok {
		return scope, remainder, nil
	}

	scope, ok := m.scopes[m.config.DefaultScope]
	if !ok {
		return nil, "", agenterrors.ScopeNotFound(m.config.DefaultScope)
	}
	return scope, path, nil
}

// GetValue resolves path and reads the addressed value. Missing segments,
// out-of-range indices, and empty first() targets all yield defaultValue
// rather than failing; only malformed paths and unresolvable aliases
// error.
func (m *DialogStateManager) GetValue(path string, defaultValue any) (any, error) {
	canonical, err := m.TransformPath(path)
	if err != nil {
		return defaultValue, err
	}
	scope, remainder, err := m.resolveScope(canonical)
	if err != nil {
		return defaultValue, err
	}

	memory := scope.GetMemory(m.dc)
	if remainder == "" {
		return memory, nil
	}

	segments, err := parsePath(remainder)
	if err != nil {
		return defaultValue, err
	}

	value, found := walkGet(memory, segments)
	if !found {
		return defaultValue, nil
	}
	return value, nil
}

// TryGetValue is GetValue with an explicit found flag, for callers that
// need to distinguish an absent path from a stored nil or zero value.
func (m *DialogStateManager) TryGetValue(path string) (any, bool, error) {
	canonical, err := m.TransformPath(path)
	if err != nil {
		return nil, false, err
	}
	scope, remainder, err := m.resolveScope(canonical)
	if err != nil {
		return nil, false, err
	}

	memory := scope.GetMemory(m.dc)
	if remainder == "" {
		return memory, true, nil
	}

	segments, err := parsePath(remainder)
	if err != nil {
		return nil, false, err
	}

	value, found := walkGet(memory, segments)
	return value, found, nil
}

// GetStringValue is GetValue narrowed to strings; non-string values fall
// back to the default.
func (m *DialogStateManager) GetStringValue(path, defaultValue string) (string, error) {
	value, err := m.GetValue(path, defaultValue)
	if err != nil {
		return defaultValue, err
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return defaultValue, nil
}

// GetIntValue is GetValue narrowed to integers, accepting the float64
// shape numbers take after a JSON round trip.
func (m *DialogStateManager) GetIntValue(path string, defaultValue int) (int, error) {
	value, err := m.GetValue(path, defaultValue)
	if err != nil {
		return defaultValue, err
	}
	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return defaultValue, nil
	}
}

// GetBoolValue is GetValue narrowed to booleans.
func (m *DialogStateManager) GetBoolValue(path string, defaultValue bool) (bool, error) {
	value, err := m.GetValue(path, defaultValue)
	if err != nil {
		return defaultValue, err
	}
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return defaultValue, nil
}

// SetValue resolves path and writes value, creating intermediate
// containers along the way. A path addressing a scope root replaces the
// scope's whole backing object, which must then be a non-nil map.
func (m *DialogStateManager) SetValue(path string, value any) error {
	canonical, err := m.TransformPath(path)
	if err != nil {
		return err
	}
	scope, remainder, err := m.resolveScope(canonical)
	if err != nil {
		return err
	}

	if remainder == "" {
		if value == nil {
			return agenterrors.UndefinedMemoryObject(scope.Name())
		}
		root, ok := value.(map[string]any)
		if !ok {
			return agenterrors.InvalidPath(path, "scope root must be set to an object")
		}
		return scope.SetMemory(m.dc, root)
	}

	memory, err := scope.WriteMemory(m.dc)
	if err != nil {
		return err
	}

	segments, err := parsePath(remainder)
	if err != nil {
		return err
	}
	if segments[0].kind != segKey {
		// Scope roots are maps; a leading index would write into a
		// detached array.
		return agenterrors.InvalidPath(path, "scope root is not an array")
	}
	if _, err := walkSet(memory, segments, value, remainder); err != nil {
		return err
	}
	return nil
}

// DeleteValue removes the value at path. Absent paths are a no-op.
func (m *DialogStateManager) DeleteValue(path string) error {
	canonical, err := m.TransformPath(path)
	if err != nil {
		return err
	}
	scope, remainder, err := m.resolveScope(canonical)
	if err != nil {
		return err
	}
	if remainder == "" {
		return agenterrors.InvalidPath(path, "cannot delete a scope root")
	}

	memory, err := scope.WriteMemory(m.dc)
	if err != nil {
		return err
	}

	segments, err := parsePath(remainder)
	if err != nil {
		return err
	}
	walkDelete(memory, segments)
	return nil
}

// GetMemorySnapshot collects the snapshot-eligible scopes into one map
// keyed by scope name, for diagnostics and tracing.
func (m *DialogStateManager) GetMemorySnapshot() map[string]any {
	snapshot := make(map[string]any)
	for _, scope := range m.config.MemoryScopes {
		if !scope.IncludeInSnapshot() {
			continue
		}
		snapshot[scope.Name()] = scope.GetMemory(m.dc)
	}
	return snapshot
}

// Path segments after scope resolution: plain keys, bracketed indices or
// quoted keys, and the first() accessor.

type segmentKind int

const (
	segKey segmentKind = iota
	segIndex
	segFirst
)

type pathSegment struct {
	kind  segmentKind
	key   string
	index int
}

// parsePath tokenizes a relative path into segments. Accepted forms:
// identifiers separated by dots, [N] numeric indices, ['key'] / ["key"]
// quoted keys, and first().
func parsePath(path string) ([]pathSegment, error) {
	var segments []pathSegment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			if i == 0 || i == len(path)-1 || path[i+1] == '.' {
				return nil, agenterrors.InvalidPath(path, "empty segment")
			}
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, agenterrors.InvalidPath(path, "unterminated bracket")
			}
			inner := path[i+1 : i+end]
			seg, err := parseBracket(path, inner)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			name := path[i : i+end]
			if name == "" {
				return nil, agenterrors.InvalidPath(path, "empty segment")
			}
			if strings.HasSuffix(name, "()") {
				if name != "first()" {
					return nil, agenterrors.InvalidPath(path, "unknown function "+name)
				}
				segments = append(segments, pathSegment{kind: segFirst})
			} else {
				segments = append(segments, pathSegment{kind: segKey, key: name})
			}
			i += end
		}
	}
	if len(segments) == 0 {
		return nil, agenterrors.InvalidPath(path, "empty path")
	}
	return segments, nil
}

func parseBracket(path, inner string) (pathSegment, error) {
	if inner == "" {
		return pathSegment{}, agenterrors.InvalidPath(path, "empty bracket")
	}
	if inner[0] == '\'' || inner[0] == '"' {
		quote := inner[0]
		if len(inner) < 2 || inner[len(inner)-1] != quote {
			return pathSegment{}, agenterrors.InvalidPath(path, "unterminated quote in bracket")
		}
		return pathSegment{kind: segKey, key: inner[1 : len(inner)-1]}, nil
	}
	index, err := strconv.Atoi(inner)
	if err != nil || index < 0 {
		return pathSegment{}, agenterrors.InvalidPath(path, "bracket index must be a non-negative integer")
	}
	return pathSegment{kind: segIndex, index: index}, nil
}

// walkGet follows segments through the value graph. Any miss along the
// way reports not-found instead of an error.
func walkGet(current any, segments []pathSegment) (any, bool) {
	for _, seg := range segments {
		switch seg.kind {
		case segKey:
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[seg.key]
			if !ok {
				return nil, false
			}
		case segIndex:
			arr, ok := current.([]any)
			if !ok || seg.index >= len(arr) {
				return nil, false
			}
			current = arr[seg.index]
		case segFirst:
			if arr, ok := current.([]any); ok {
				if len(arr) == 0 {
					return nil, false
				}
				current = arr[0]
			}
			// Non-array values pass through first() unchanged.
		}
	}
	return current, true
}

// walkSet writes value at the segment path, materializing intermediate
// maps and arrays. Arrays grow only at the append boundary: writing index
// len(arr) appends, anything past that is an invalid path.
func walkSet(current any, segments []pathSegment, value any, path string) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	seg := segments[0]
	rest := segments[1:]

	switch seg.kind {
	case segKey:
		m, ok := current.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		child, err := walkSet(m[seg.key], rest, value, path)
		if err != nil {
			return nil, err
		}
		m[seg.key] = child
		return m, nil

	case segIndex:
		arr, ok := current.([]any)
		if !ok {
			arr = []any{}
		}
		switch {
		case seg.index < len(arr):
			child, err := walkSet(arr[seg.index], rest, value, path)
			if err != nil {
				return nil, err
			}
			arr[seg.index] = child
			return arr, nil
		case seg.index == len(arr):
			child, err := walkSet(nil, rest, value, path)
			if err != nil {
				return nil, err
			}
			return append(arr, child), nil
		default:
			return nil, agenterrors.InvalidPath(path, "array index past append boundary")
		}

	case segFirst:
		if arr, ok := current.([]any); ok {
			if len(arr) == 0 {
				child, err := walkSet(nil, rest, value, path)
				if err != nil {
					return nil, err
				}
				return append(arr, child), nil
			}
			child, err := walkSet(arr[0], rest, value, path)
			if err != nil {
				return nil, err
			}
			arr[0] = child
			return arr, nil
		}
		// first() on a non-array addresses the value itself.
		return walkSet(current, rest, value, path)
	}
	return nil, agenterrors.InvalidPath(path, "unsupported segment")
}

// walkDelete removes the terminal segment if present. Every miss is a
// silent no-op.
func walkDelete(current any, segments []pathSegment) {
	for i, seg := range segments {
		last := i == len(segments)-1
		switch seg.kind {
		case segKey:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			if last {
				delete(m, seg.key)
				return
			}
			current, ok = m[seg.key]
			if !ok {
				return
			}
		case segIndex:
			arr, ok := current.([]any)
			if !ok || seg.index >= len(arr) {
				return
			}
			if last {
				// Terminal index deletes clear the slot rather than
				// splicing, so sibling indices stay stable.
				arr[seg.index] = nil
				return
			}
			current = arr[seg.index]
		case segFirst:
			arr, ok := current.([]any)
			if !ok {
				if last {
					return
				}
				continue
			}
			if len(arr) == 0 {
				return
			}
			if last {
				arr[0] = nil
				return
			}
			current = arr[0]
		}
	}
}
