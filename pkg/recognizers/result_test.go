package recognizers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dotsetgreg/agenthost/pkg/agenterrors"
)

func TestTopIntent_FirstMaxWinsOnTie(t *testing.T) {
	result := &Result{
		Text: "t",
		Intents: NewIntentMap().
			SetScore("A", 0.2).
			SetScore("B", 0.9).
			SetScore("C", 0.9),
	}

	top, err := TopIntent(result)
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "B" || top.Score != 0.9 {
		t.Fatalf("top = %+v, want {B 0.9}", top)
	}
}

func TestTopIntent_EmptyIntentsReturnsSentinel(t *testing.T) {
	top, err := TopIntent(&Result{Text: "t", Intents: NewIntentMap()})
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "" || top.Score != -1 {
		t.Fatalf("top = %+v, want {\"\" -1}", top)
	}
}

func TestTopIntent_NilResultAndNilIntentsError(t *testing.T) {
	if _, err := TopIntent(nil); !agenterrors.HasCode(err, agenterrors.CodeEmptyRecognizerResult) {
		t.Fatalf("nil result: got %v", err)
	}
	if _, err := TopIntent(&Result{Text: "t"}); !agenterrors.HasCode(err, agenterrors.CodeEmptyRecognizerResult) {
		t.Fatalf("nil intents: got %v", err)
	}
}

func TestTopIntent_MissingScoreCountsAsNegativeOne(t *testing.T) {
	result := &Result{
		Text: "t",
		Intents: NewIntentMap().
			Set("NoScore", IntentScore{}).
			SetScore("Low", 0.1),
	}

	top, err := TopIntent(result)
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "Low" || top.Score != 0.1 {
		t.Fatalf("top = %+v, want {Low 0.1}", top)
	}
}

func TestIntentMap_JSONRoundTripPreservesOrder(t *testing.T) {
	body := `{"Zeta":{"score":0.5},"Alpha":{"score":0.5,"provider":"test"},"Mid":{}}`

	m := NewIntentMap()
	if err := json.Unmarshal([]byte(body), m); err != nil {
		t.Fatal(err)
	}

	var order []string
	m.Range(func(name string, _ IntentScore) bool {
		order = append(order, name)
		return true
	})
	if len(order) != 3 || order[0] != "Zeta" || order[1] != "Alpha" || order[2] != "Mid" {
		t.Fatalf("iteration order = %v, want document order", order)
	}

	alpha, ok := m.Get("Alpha")
	if !ok || alpha.Score == nil || *alpha.Score != 0.5 {
		t.Fatalf("Alpha = %+v", alpha)
	}
	if alpha.Extra["provider"] != "test" {
		t.Fatalf("Alpha extra = %v", alpha.Extra)
	}

	// Document-order tie-break survives the round trip.
	top, err := TopIntent(&Result{Text: "t", Intents: m})
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "Zeta" {
		t.Fatalf("top after round trip = %+v, want Zeta", top)
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	decoded := NewIntentMap()
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatal(err)
	}
	var reorder []string
	decoded.Range(func(name string, _ IntentScore) bool {
		reorder = append(reorder, name)
		return true
	})
	if len(reorder) != 3 || reorder[0] != "Zeta" {
		t.Fatalf("marshal lost ordering: %v", reorder)
	}
}

func TestIntentMap_SetUpdatesKeepPosition(t *testing.T) {
	m := NewIntentMap().SetScore("A", 0.1).SetScore("B", 0.2)
	m.SetScore("A", 0.9)

	var order []string
	m.Range(func(name string, _ IntentScore) bool {
		order = append(order, name)
		return true
	})
	if order[0] != "A" || order[1] != "B" {
		t.Fatalf("order = %v, update must not move A", order)
	}
	if m.Len() != 2 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestResultMemory_ShapesValueGraph(t *testing.T) {
	result := &Result{
		Text:    "book a trip to Seattle",
		Intents: NewIntentMap().SetScore("BookTrip", 0.87),
		Entities: map[string]any{
			"city": []any{"Seattle"},
		},
	}

	memory := result.Memory()
	intents := memory["intents"].(map[string]any)
	book := intents["BookTrip"].(map[string]any)
	if book["score"] != 0.87 {
		t.Fatalf("intents.BookTrip.score = %v", book["score"])
	}
	entities := memory["entities"].(map[string]any)
	if entities["city"].([]any)[0] != "Seattle" {
		t.Fatalf("entities.city = %v", entities["city"])
	}
}

func TestRegexpRecognizer_IntentAndNamedGroupEntities(t *testing.T) {
	r := NewRegexpRecognizer()
	if err := r.AddIntent("Weather", `(?i)weather in (?P<city>\w+)`); err != nil {
		t.Fatal(err)
	}
	if err := r.AddIntent("Greeting", `(?i)^(hi|hello)\b`); err != nil {
		t.Fatal(err)
	}

	result, err := r.Recognize(context.Background(), "weather in Seattle")
	if err != nil {
		t.Fatal(err)
	}

	top, err := TopIntent(result)
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "Weather" {
		t.Fatalf("top = %+v", top)
	}
	cities := result.Entities["city"].([]any)
	if len(cities) != 1 || cities[0] != "Seattle" {
		t.Fatalf("entities.city = %v", cities)
	}
}

func TestRegexpRecognizer_NoMatchYieldsEmptyIntents(t *testing.T) {
	r := NewRegexpRecognizer()
	if err := r.AddIntent("Greeting", `(?i)^hello\b`); err != nil {
		t.Fatal(err)
	}

	result, err := r.Recognize(context.Background(), "completely unrelated")
	if err != nil {
		t.Fatal(err)
	}
	if result.Intents.Len() != 0 {
		t.Fatalf("expected no intents, got %d", result.Intents.Len())
	}

	top, err := TopIntent(result)
	if err != nil {
		t.Fatal(err)
	}
	if top.Intent != "" || top.Score != -1 {
		t.Fatalf("top = %+v", top)
	}
}
