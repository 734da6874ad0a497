package state

import (
	"context"
	"fmt"
)

// StateKind selects how a storage key is derived from the turn's activity.
type StateKind string

const (
	KindUser         StateKind = "user"
	KindConversation StateKind = "conversation"
)

// AgentState is persisted state scoped to either a user or a conversation.
// Loaded documents are cached in the TurnContext for the duration of the
// turn; SaveChanges writes the cached document back.
type AgentState struct {
	storage Storage
	kind    StateKind
}

func NewUserState(storage Storage) *AgentState {
	return &AgentState{storage: storage, kind: KindUser}
}

func NewConversationState(storage Storage) *AgentState {
	return &AgentState{storage: storage, kind: KindConversation}
}

func (s *AgentState) Kind() StateKind {
	return s.kind
}

// StorageKey derives the persistence key from the turn's activity.
func (s *AgentState) StorageKey(tc *TurnContext) (string, error) {
	a := tc.Activity()
	if a == nil {
		return "", fmt.Errorf("turn context has no activity")
	}
	switch s.kind {
	case KindUser:
		if a.ChannelID == "" || a.From.ID == "" {
			return "", fmt.Errorf("activity is missing channelId or from.id")
		}
		return a.ChannelID + "/users/" + a.From.ID, nil
	case KindConversation:
		if a.ChannelID == "" || a.Conversation.ID == "" {
			return "", fmt.Errorf("activity is missing channelId or conversation.id")
		}
		return a.ChannelID + "/conversations/" + a.Conversation.ID, nil
	default:
		return "", fmt.Errorf("unknown state kind %q", s.kind)
	}
}

func (s *AgentState) cacheKey() string {
	return "state:" + string(s.kind)
}

// Load reads the backing document into the turn cache. With force false a
// document already cached this turn is left alone.
func (s *AgentState) Load(ctx context.Context, tc *TurnContext, force bool) error {
	if !force {
		if _, ok := tc.TurnState()[s.cacheKey()]; ok {
			return nil
		}
	}

	key, err := s.StorageKey(tc)
	if err != nil {
		return err
	}
	docs, err := s.storage.Read(ctx, []string{key})
	if err != nil {
		return fmt.Errorf("load %s state: %w", s.kind, err)
	}
	doc := docs[key]
	if doc == nil {
		doc = make(map[string]any)
	}
	tc.TurnState()[s.cacheKey()] = doc
	return nil
}

// Get returns the cached document, creating an empty one if the state was
// never loaded this turn. The returned map is live: mutations are picked
// up by SaveChanges.
func (s *AgentState) Get(tc *TurnContext) map[string]any {
	if doc, ok := tc.TurnState()[s.cacheKey()].(map[string]any); ok {
		return doc
	}
	doc := make(map[string]any)
	tc.TurnState()[s.cacheKey()] = doc
	return doc
}

// Replace swaps the cached document wholesale.
func (s *AgentState) Replace(tc *TurnContext, value map[string]any) {
	if value == nil {
		value = make(map[string]any)
	}
	tc.TurnState()[s.cacheKey()] = value
}

// SaveChanges persists the cached document. A turn that never touched
// this state is a no-op.
func (s *AgentState) SaveChanges(ctx context.Context, tc *TurnContext) error {
	doc, ok := tc.TurnState()[s.cacheKey()].(map[string]any)
	if !ok {
		return nil
	}
	key, err := s.StorageKey(tc)
	if err != nil {
		return err
	}
	if err := s.storage.Write(ctx, map[string]map[string]any{key: doc}); err != nil {
		return fmt.Errorf("save %s state: %w", s.kind, err)
	}
	return nil
}

// Clear resets the cached document to empty; the next SaveChanges persists
// the reset.
func (s *AgentState) Clear(tc *TurnContext) {
	tc.TurnState()[s.cacheKey()] = make(map[string]any)
}

// Delete removes the persisted document and the turn cache entry.
func (s *AgentState) Delete(ctx context.Context, tc *TurnContext) error {
	key, err := s.StorageKey(tc)
	if err != nil {
		return err
	}
	delete(tc.TurnState(), s.cacheKey())
	return s.storage.Delete(ctx, []string{key})
}
