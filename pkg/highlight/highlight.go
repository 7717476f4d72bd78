// Package highlight maps a selected token to the attention edges drawn from it.
package highlight

import (
	"encoding/json"
	"strconv"
)

// Selection is an optional token index. The zero value selects nothing.
type Selection struct {
	index int
	set   bool
}

// None returns the empty selection.
func None() Selection {
	return Selection{}
}

// At selects token i. Range checks belong to the caller.
func At(i int) Selection {
	return Selection{index: i, set: true}
}

// Index returns the selected index and whether one is set.
func (s Selection) Index() (int, bool) {
	return s.index, s.set
}

// IsNone reports whether nothing is selected.
func (s Selection) IsNone() bool {
	return !s.set
}

func (s Selection) String() string {
	if !s.set {
		return "none"
	}
	return strconv.Itoa(s.index)
}

// MarshalJSON encodes the selection as an index or null.
func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.index)
}

// UnmarshalJSON accepts an index or null.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var idx *int
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx == nil {
		*s = None()
		return nil
	}
	*s = At(*idx)
	return nil
}

// Edge is a directed attention link from the selected token to another token.
type Edge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// Edges derives the highlight edges for sel.
//
// With no selection, or a selection outside [0, len(tokens)), the result is
// empty. Otherwise there is one edge per other token in ascending target
// order, weighted by scores[sel][target]. Cells missing from a malformed
// score matrix weigh 0. The result is never nil.
func Edges(sel Selection, scores [][]float64, tokens []string) []Edge {
	src, ok := sel.Index()
	if !ok || src < 0 || src >= len(tokens) {
		return []Edge{}
	}

	var row []float64
	if src < len(scores) {
		row = scores[src]
	}

	edges := make([]Edge, 0, len(tokens)-1)
	for j := range tokens {
		if j == src {
			continue
		}
		var w float64
		if j < len(row) {
			w = row[j]
		}
		edges = append(edges, Edge{Source: src, Target: j, Weight: w})
	}
	return edges
}

// Strongest returns the edge with the largest weight. Ties keep the lowest
// target. It reports false for an empty slice.
func Strongest(edges []Edge) (Edge, bool) {
	if len(edges) == 0 {
		return Edge{}, false
	}
	best := edges[0]
	for _, e := range edges[1:] {
		if e.Weight > best.Weight {
			best = e
		}
	}
	return best, true
}
