// Package state provides turn-scoped execution context and persisted
// user/conversation state for the agent runtime.
package state

import (
	"context"
	"encoding/json"
)

// Storage is a keyed JSON-document store. Implementations must return
// detached documents so callers can mutate results freely.
type Storage interface {
	// Read fetches the documents for keys. Missing keys are simply absent
	// from the result, not an error.
	Read(ctx context.Context, keys []string) (map[string]map[string]any, error)
	// Write upserts each document in changes.
	Write(ctx context.Context, changes map[string]map[string]any) error
	// Delete removes the documents for keys, ignoring missing ones.
	Delete(ctx context.Context, keys []string) error
}

// cloneDocument detaches a document through a JSON round trip. Besides
// copying, this normalizes any struct values held in the document to the
// map shape they would take after real persistence, so in-memory and
// on-disk storage behave identically.
func cloneDocument(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
