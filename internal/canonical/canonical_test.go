package canonical_test

import (
	"encoding/json"
	"testing"

	"github.com/ILLUVRSE/trip-planner/internal/canonical"
)

func TestMarshalSortsKeys(t *testing.T) {
	a, err := canonical.Marshal(map[string]any{"b": 2, "a": []any{"x", 1}})
	if err != nil {
		t.Fatalf("marshal a: %v", err)
	}
	b, err := canonical.Marshal(map[string]any{"a": []any{"x", 1}, "b": 2})
	if err != nil {
		t.Fatalf("marshal b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("canonical bytes differ: %s vs %s", a, b)
	}
	if string(a) != `{"a":["x",1],"b":2}` {
		t.Fatalf("unexpected encoding %s", a)
	}
}

type plan struct {
	Name  string  `json:"name"`
	Cost  float64 `json:"cost"`
	Stops []int   `json:"stops"`
}

func TestToMapProducesPlainValues(t *testing.T) {
	m, err := canonical.ToMap(plan{Name: "trip", Cost: 1234.5, Stops: []int{1, 2}})
	if err != nil {
		t.Fatalf("to map: %v", err)
	}
	if m["name"] != "trip" {
		t.Fatalf("unexpected name %v", m["name"])
	}
	if n, ok := m["cost"].(json.Number); !ok || n.String() != "1234.5" {
		t.Fatalf("expected json.Number 1234.5, got %#v", m["cost"])
	}
	if _, ok := m["stops"].([]any); !ok {
		t.Fatalf("expected []any for stops, got %T", m["stops"])
	}
}

func TestToMapRejectsNonObjects(t *testing.T) {
	if _, err := canonical.ToMap([]int{1}); err == nil {
		t.Fatalf("expected error for list value")
	}
}
