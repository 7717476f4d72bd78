// Package model defines the hyperparameters of the simulated self-attention layer.
//
// The layer is not trained: Q, K and V are sampled, so the hyperparameters only
// control tensor shapes, the score scaling denominator and the dropout mask.
//
// Key properties:
//   - ModelDimension sets the width of Q, K, V and the output
//   - NumHeads only changes the scaling factor 1/sqrt(ModelDimension/NumHeads);
//     the tensors are never split into per-head slices
//   - MaxSeqLength truncates the token sequence
package model

import (
	"fmt"
	"math"
	"strings"

	aerrors "attnviz/pkg/errors"
)

// Hyperparameters holds the user-adjustable settings of the attention layer.
type Hyperparameters struct {
	// ModelDimension is the width of every Q/K/V/output row (512 by default)
	ModelDimension int `json:"modelDimension" yaml:"model_dimension"`

	// NumHeads is the nominal number of attention heads (8 by default)
	NumHeads int `json:"numHeads" yaml:"num_heads"`

	// DropoutRate is the probability of zeroing an attention score (0.1 by default)
	DropoutRate float64 `json:"dropoutRate" yaml:"dropout_rate"`

	// MaxSeqLength is the maximum number of tokens kept from the input (512 by default)
	MaxSeqLength int `json:"maxSeqLength" yaml:"max_seq_length"`
}

// DefaultHyperparameters returns the settings the walkthrough starts with.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		ModelDimension: 512,
		NumHeads:       8,
		DropoutRate:    0.1,
		MaxSeqLength:   512,
	}
}

// Validate checks the constraints the computation depends on.
//
// These are looser than the UI ranges in Ranges: the core accepts any positive
// dimension and sequence length, and leaves range clamping to the caller.
func (h Hyperparameters) Validate() error {
	if h.ModelDimension <= 0 {
		return aerrors.InvalidHyperparameter(string(FieldModelDimension), float64(h.ModelDimension),
			fmt.Sprintf("must be positive, got %d", h.ModelDimension))
	}
	if h.NumHeads < 1 {
		return aerrors.InvalidHyperparameter(string(FieldNumHeads), float64(h.NumHeads),
			fmt.Sprintf("must be at least 1, got %d", h.NumHeads))
	}
	if math.IsNaN(h.DropoutRate) || h.DropoutRate < 0 || h.DropoutRate >= 1 {
		return aerrors.InvalidHyperparameter(string(FieldDropoutRate), h.DropoutRate,
			fmt.Sprintf("must be in [0, 1), got %v", h.DropoutRate))
	}
	if h.MaxSeqLength <= 0 {
		return aerrors.InvalidHyperparameter(string(FieldMaxSeqLength), float64(h.MaxSeqLength),
			fmt.Sprintf("must be positive, got %d", h.MaxSeqLength))
	}
	return nil
}

// HeadDimension returns ModelDimension / NumHeads as a real number.
// ModelDimension need not be divisible by NumHeads.
func (h Hyperparameters) HeadDimension() float64 {
	return float64(h.ModelDimension) / float64(h.NumHeads)
}

// ScaleFactor returns 1/sqrt(HeadDimension), the factor applied to QK^T.
func (h Hyperparameters) ScaleFactor() float64 {
	return 1 / math.Sqrt(h.HeadDimension())
}

// Field names one hyperparameter.
type Field string

const (
	FieldModelDimension Field = "modelDimension"
	FieldNumHeads       Field = "numHeads"
	FieldDropoutRate    Field = "dropoutRate"
	FieldMaxSeqLength   Field = "maxSeqLength"
)

// Fields returns all hyperparameter fields in display order.
func Fields() []Field {
	return []Field{FieldModelDimension, FieldNumHeads, FieldDropoutRate, FieldMaxSeqLength}
}

// fieldAliases maps normalized spellings to fields.
var fieldAliases = map[string]Field{
	"modeldimension": FieldModelDimension,
	"dmodel":         FieldModelDimension,
	"dim":            FieldModelDimension,
	"numheads":       FieldNumHeads,
	"heads":          FieldNumHeads,
	"dropoutrate":    FieldDropoutRate,
	"dropout":        FieldDropoutRate,
	"maxseqlength":   FieldMaxSeqLength,
	"maxseqlen":      FieldMaxSeqLength,
	"seqlen":         FieldMaxSeqLength,
}

// ParseField resolves a field name. Case, '_' and '-' are ignored, so
// "model_dimension", "modelDimension" and "MODEL-DIMENSION" are all accepted.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(name)))
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return "", aerrors.UnknownHyperparameter(name)
}

// Label returns a human-readable name for the field.
func (f Field) Label() string {
	switch f {
	case FieldModelDimension:
		return "Model Dimension"
	case FieldNumHeads:
		return "Number of Heads"
	case FieldDropoutRate:
		return "Dropout Rate"
	case FieldMaxSeqLength:
		return "Max Sequence Length"
	default:
		return string(f)
	}
}

// Get returns the value of a field as a float64.
func (h Hyperparameters) Get(f Field) (float64, error) {
	switch f {
	case FieldModelDimension:
		return float64(h.ModelDimension), nil
	case FieldNumHeads:
		return float64(h.NumHeads), nil
	case FieldDropoutRate:
		return h.DropoutRate, nil
	case FieldMaxSeqLength:
		return float64(h.MaxSeqLength), nil
	default:
		return 0, aerrors.UnknownHyperparameter(string(f))
	}
}

// With returns a copy of h with field f set to value, validated.
// Integer fields reject fractional values.
func (h Hyperparameters) With(f Field, value float64) (Hyperparameters, error) {
	asInt := func() (int, error) {
		if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
			return 0, aerrors.InvalidHyperparameter(string(f), value, "must be an integer")
		}
		return int(value), nil
	}

	out := h
	switch f {
	case FieldModelDimension:
		v, err := asInt()
		if err != nil {
			return h, err
		}
		out.ModelDimension = v
	case FieldNumHeads:
		v, err := asInt()
		if err != nil {
			return h, err
		}
		out.NumHeads = v
	case FieldDropoutRate:
		out.DropoutRate = value
	case FieldMaxSeqLength:
		v, err := asInt()
		if err != nil {
			return h, err
		}
		out.MaxSeqLength = v
	default:
		return h, aerrors.UnknownHyperparameter(string(f))
	}

	if err := out.Validate(); err != nil {
		return h, err
	}
	return out, nil
}

// String returns a compact one-line summary.
func (h Hyperparameters) String() string {
	return fmt.Sprintf("d_model=%d heads=%d dropout=%v max_seq_len=%d",
		h.ModelDimension, h.NumHeads, h.DropoutRate, h.MaxSeqLength)
}
