package highlight

import (
	"encoding/json"
	"testing"
)

func TestSelection(t *testing.T) {
	if !None().IsNone() {
		t.Error("None() should select nothing")
	}
	var zero Selection
	if !zero.IsNone() {
		t.Error("zero value should select nothing")
	}

	s := At(2)
	idx, ok := s.Index()
	if !ok || idx != 2 {
		t.Errorf("Expected index 2, got %d (%v)", idx, ok)
	}
	if s.String() != "2" || None().String() != "none" {
		t.Errorf("unexpected String(): %q, %q", s.String(), None().String())
	}
}

func TestSelection_JSON(t *testing.T) {
	tests := []struct {
		sel  Selection
		want string
	}{
		{None(), "null"},
		{At(0), "0"},
		{At(3), "3"},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.sel)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.sel, data, tt.want)
		}

		var back Selection
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if back != tt.sel {
			t.Errorf("round trip: got %v, want %v", back, tt.sel)
		}
	}

	var s Selection
	if err := json.Unmarshal([]byte(`"x"`), &s); err == nil {
		t.Error("Expected error for non-numeric selection")
	}
}

func TestEdges(t *testing.T) {
	tokens := []string{"The", "quick", "brown", "fox"}
	scores := [][]float64{
		{0.25, 0.25, 0.25, 0.25},
		{0.1, 0.4, 0.3, 0.2},
		{0.5, 0, 0.3, 0.2},
		{0.2, 0.2, 0.2, 0.4},
	}

	got := Edges(At(1), scores, tokens)
	want := []Edge{
		{Source: 1, Target: 0, Weight: 0.1},
		{Source: 1, Target: 2, Weight: 0.3},
		{Source: 1, Target: 3, Weight: 0.2},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d edges, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEdges_Count(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}
	scores := make([][]float64, len(tokens))
	for i := range scores {
		scores[i] = make([]float64, len(tokens))
	}

	for i := range tokens {
		if n := len(Edges(At(i), scores, tokens)); n != len(tokens)-1 {
			t.Errorf("selection %d: expected %d edges, got %d", i, len(tokens)-1, n)
		}
	}
}

func TestEdges_Empty(t *testing.T) {
	tokens := []string{"a", "b"}
	scores := [][]float64{{0.5, 0.5}, {0.5, 0.5}}

	tests := []struct {
		name   string
		sel    Selection
		tokens []string
	}{
		{"no selection", None(), tokens},
		{"negative index", At(-1), tokens},
		{"past the end", At(2), tokens},
		{"no tokens", At(0), nil},
		{"single token", At(0), []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Edges(tt.sel, scores, tt.tokens)
			if got == nil {
				t.Fatal("Expected non-nil slice")
			}
			if len(got) != 0 {
				t.Errorf("Expected no edges, got %+v", got)
			}
		})
	}
}

func TestEdges_MalformedScores(t *testing.T) {
	tokens := []string{"a", "b", "c"}

	got := Edges(At(0), [][]float64{{0.4, 0.6}}, tokens)
	if len(got) != 2 || got[0].Weight != 0.6 || got[1].Weight != 0 {
		t.Errorf("Expected short row to yield weight 0, got %+v", got)
	}

	got = Edges(At(2), nil, tokens)
	if len(got) != 2 || got[0].Weight != 0 || got[1].Weight != 0 {
		t.Errorf("Expected missing row to yield zero weights, got %+v", got)
	}
}

func TestStrongest(t *testing.T) {
	if _, ok := Strongest(nil); ok {
		t.Error("Expected no strongest edge for empty input")
	}

	edges := []Edge{
		{Source: 0, Target: 1, Weight: 0.3},
		{Source: 0, Target: 2, Weight: 0.5},
		{Source: 0, Target: 3, Weight: 0.5},
	}
	best, ok := Strongest(edges)
	if !ok || best.Target != 2 {
		t.Errorf("Expected target 2, got %+v", best)
	}
}
