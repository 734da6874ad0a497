// Package recognizers defines the result shape produced by recognizers and
// utilities for selecting the top-scoring intent.
package recognizers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
)

// IntentScore is a recognizer confidence for one intent. Extra carries any
// additional recognizer-specific properties that arrived alongside score.
type IntentScore struct {
	Score *float64
	Extra map[string]any
}

// Score or -1 when the recognizer supplied none.
func (s IntentScore) ScoreOrDefault() float64 {
	if s.Score == nil {
		return -1
	}
	return *s.Score
}

func (s IntentScore) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		obj[k] = v
	}
	if s.Score != nil {
		obj["score"] = *s.Score
	}
	return json.Marshal(obj)
}

func (s *IntentScore) UnmarshalJSON(data []byte) error {
	obj := map[string]any{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if raw, ok := obj["score"]; ok {
		if f, ok := raw.(float64); ok {
			s.Score = &f
		}
		delete(obj, "score")
	}
	if len(obj) > 0 {
		s.Extra = obj
	}
	return nil
}

// IntentMap is an insertion-ordered intent → score mapping. Order matters:
// tie-breaks in TopIntent go to the first intent inserted.
type IntentMap struct {
	keys   []string
	values map[string]IntentScore
}

func NewIntentMap() *IntentMap {
	return &IntentMap{values: make(map[string]IntentScore)}
}

// Set inserts or updates an intent. Updating keeps the original position.
func (m *IntentMap) Set(name string, score IntentScore) *IntentMap {
	if m.values == nil {
		m.values = make(map[string]IntentScore)
	}
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = score
	return m
}

// SetScore is a convenience for plain confidence values.
func (m *IntentMap) SetScore(name string, score float64) *IntentMap {
	return m.Set(name, IntentScore{Score: &score})
}

func (m *IntentMap) Get(name string) (IntentScore, bool) {
	score, ok := m.values[name]
	return score, ok
}

func (m *IntentMap) Len() int {
	return len(m.keys)
}

// Range visits intents in insertion order until fn returns false.
func (m *IntentMap) Range(fn func(name string, score IntentScore) bool) {
	for _, key := range m.keys {
		if !fn(key, m.values[key]) {
			return
		}
	}
}

func (m *IntentMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the document tokens so key order is preserved.
func (m *IntentMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("intents: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]IntentScore)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		var score IntentScore
		if err := dec.Decode(&score); err != nil {
			return err
		}
		m.Set(key, score)
	}
	// Consume closing brace.
	_, err = dec.Token()
	return err
}

// Result is what a recognizer produces for one utterance.
type Result struct {
	Text        string         `json:"text"`
	AlteredText string         `json:"alteredText,omitempty"`
	Intents     *IntentMap     `json:"intents"`
	Entities    map[string]any `json:"entities,omitempty"`
}

// TopScoringIntent is the winner selected by TopIntent.
type TopScoringIntent struct {
	Intent string
	Score  float64
}

// TopIntent returns the highest-scoring intent. Missing scores count as -1
// and ties go to the first intent in insertion order (strict greater-than).
// A nil result or nil intents collection is a coded error; an empty intents
// collection is not, and yields {"", -1}.
func TopIntent(result *Result) (TopScoringIntent, error) {
	if result == nil || result.Intents == nil {
		return TopScoringIntent{}, agenterrors.EmptyRecognizerResult()
	}

	top := TopScoringIntent{Intent: "", Score: -1}
	result.Intents.Range(func(name string, score IntentScore) bool {
		if value := score.ScoreOrDefault(); value > top.Score {
			top = TopScoringIntent{Intent: name, Score: value}
		}
		return true
	})
	return top, nil
}

// Memory projects the result onto a plain value graph so dialog path
// expressions like turn.recognized.intents.Greeting.score can address it.
func (r *Result) Memory() map[string]any {
	out := map[string]any{
		"text": r.Text,
	}
	if r.AlteredText != "" {
		out["alteredText"] = r.AlteredText
	}

	intents := map[string]any{}
	if r.Intents != nil {
		r.Intents.Range(func(name string, score IntentScore) bool {
			entry := make(map[string]any, len(score.Extra)+1)
			for k, v := range score.Extra {
				entry[k] = v
			}
			if score.Score != nil {
				entry["score"] = *score.Score
			}
			intents[name] = entry
			return true
		})
	}
	out["intents"] = intents

	if r.Entities != nil {
		out["entities"] = r.Entities
	}
	return out
}
