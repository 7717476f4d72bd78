package controller

import (
	"time"

	"github.com/google/uuid"

	"attnviz/pkg/highlight"
	"attnviz/pkg/model"
	"attnviz/pkg/model/attention"
)

// Snapshot is one immutable state of the controller.
//
// Tokens, Hyperparameters and Tensors always belong together: a Snapshot is
// built whole and swapped in whole. Callers must not modify its slices.
type Snapshot struct {
	ID              uuid.UUID             `json:"id"`
	Revision        uint64                `json:"revision"`
	InputText       string                `json:"inputText"`
	Tokens          []string              `json:"tokens"`
	Hyperparameters model.Hyperparameters `json:"hyperparameters"`
	Tensors         attention.TensorSet   `json:"tensors"`
	Selection       highlight.Selection   `json:"selection"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// Edges returns the highlight edges for the snapshot's selection.
func (s *Snapshot) Edges() []highlight.Edge {
	return highlight.Edges(s.Selection, s.Tensors.AttentionScores, s.Tokens)
}

// SelectedToken returns the per-token view of the selected token.
func (s *Snapshot) SelectedToken() (attention.TokenView, bool) {
	idx, ok := s.Selection.Index()
	if !ok {
		return attention.TokenView{}, false
	}
	return s.Tensors.Token(idx)
}

// TokenCount returns the number of tokens.
func (s *Snapshot) TokenCount() int {
	return len(s.Tokens)
}

// derive copies s under a new identity and the next revision.
func (s *Snapshot) derive() *Snapshot {
	next := *s
	next.ID = uuid.New()
	next.Revision = s.Revision + 1
	next.CreatedAt = time.Now()
	return &next
}
