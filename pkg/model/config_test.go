package model

import (
	"math"
	"testing"

	aerrors "attnviz/pkg/errors"
)

func TestDefaultHyperparameters(t *testing.T) {
	h := DefaultHyperparameters()

	if h.ModelDimension != 512 || h.NumHeads != 8 || h.DropoutRate != 0.1 || h.MaxSeqLength != 512 {
		t.Errorf("unexpected defaults: %+v", h)
	}
	if err := h.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if h.HeadDimension() != 64 {
		t.Errorf("Expected head dimension 64, got %v", h.HeadDimension())
	}
	if h.ScaleFactor() != 0.125 {
		t.Errorf("Expected scale factor 0.125, got %v", h.ScaleFactor())
	}
}

func TestHyperparameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Hyperparameters)
		wantErr bool
	}{
		{"defaults", func(h *Hyperparameters) {}, false},
		{"short sequence allowed", func(h *Hyperparameters) { h.MaxSeqLength = 2 }, false},
		{"non divisible heads allowed", func(h *Hyperparameters) { h.NumHeads = 7 }, false},
		{"zero dimension", func(h *Hyperparameters) { h.ModelDimension = 0 }, true},
		{"zero heads", func(h *Hyperparameters) { h.NumHeads = 0 }, true},
		{"negative dropout", func(h *Hyperparameters) { h.DropoutRate = -0.1 }, true},
		{"dropout of one", func(h *Hyperparameters) { h.DropoutRate = 1 }, true},
		{"nan dropout", func(h *Hyperparameters) { h.DropoutRate = math.NaN() }, true},
		{"zero sequence", func(h *Hyperparameters) { h.MaxSeqLength = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DefaultHyperparameters()
			tt.mutate(&h)
			err := h.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !aerrors.IsCode(err, aerrors.ErrInvalidHyperparameter) {
				t.Errorf("Expected INVALID_HYPERPARAMETER, got %v", err)
			}
		})
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"modelDimension", FieldModelDimension},
		{"model_dimension", FieldModelDimension},
		{"DIM", FieldModelDimension},
		{"heads", FieldNumHeads},
		{"num-heads", FieldNumHeads},
		{"dropout", FieldDropoutRate},
		{"max_seq_length", FieldMaxSeqLength},
		{" seqlen ", FieldMaxSeqLength},
	}

	for _, tt := range tests {
		got, err := ParseField(tt.in)
		if err != nil {
			t.Errorf("ParseField(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseField("temperature"); !aerrors.IsCode(err, aerrors.ErrUnknownHyperparameter) {
		t.Errorf("Expected UNKNOWN_HYPERPARAMETER, got %v", err)
	}
}

func TestHyperparameters_With(t *testing.T) {
	h := DefaultHyperparameters()

	got, err := h.With(FieldMaxSeqLength, 2)
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}
	if got.MaxSeqLength != 2 || h.MaxSeqLength != 512 {
		t.Errorf("Expected copy with MaxSeqLength 2, got %+v (original %+v)", got, h)
	}

	got, err = h.With(FieldDropoutRate, 0.25)
	if err != nil || got.DropoutRate != 0.25 {
		t.Errorf("Expected dropout 0.25, got %+v, %v", got, err)
	}

	if _, err := h.With(FieldNumHeads, 2.5); !aerrors.IsCode(err, aerrors.ErrInvalidHyperparameter) {
		t.Errorf("Expected fractional heads to be rejected, got %v", err)
	}
	if _, err := h.With(FieldModelDimension, -64); !aerrors.IsCode(err, aerrors.ErrInvalidHyperparameter) {
		t.Errorf("Expected negative dimension to be rejected, got %v", err)
	}
	if _, err := h.With(Field("bogus"), 1); !aerrors.IsCode(err, aerrors.ErrUnknownHyperparameter) {
		t.Errorf("Expected unknown field to be rejected, got %v", err)
	}
}

func TestHyperparameters_Get(t *testing.T) {
	h := DefaultHyperparameters()
	for _, f := range Fields() {
		v, err := h.Get(f)
		if err != nil {
			t.Errorf("Get(%s) failed: %v", f, err)
		}
		back, err := h.With(f, v)
		if err != nil || back != h {
			t.Errorf("With(Get(%s)) did not round trip: %+v, %v", f, back, err)
		}
	}
	if _, err := h.Get(Field("x")); err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestRange_Clamp(t *testing.T) {
	tests := []struct {
		field Field
		in    float64
		want  float64
	}{
		{FieldModelDimension, 10, 64},
		{FieldModelDimension, 5000, 1024},
		{FieldModelDimension, 100, 128},
		{FieldModelDimension, 512, 512},
		{FieldNumHeads, 0, 1},
		{FieldNumHeads, 7.4, 7},
		{FieldDropoutRate, 0.16, 0.15},
		{FieldDropoutRate, 0.9, 0.5},
		{FieldDropoutRate, -1, 0},
		{FieldMaxSeqLength, 2, 16},
		{FieldMaxSeqLength, 40, 48},
		{FieldMaxSeqLength, math.NaN(), 16},
	}

	for _, tt := range tests {
		r, ok := RangeFor(tt.field)
		if !ok {
			t.Fatalf("no range for %s", tt.field)
		}
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("%s: Clamp(%v) = %v, want %v", tt.field, tt.in, got, tt.want)
		}
	}
}

func TestRange_Contains(t *testing.T) {
	r := Ranges[FieldDropoutRate]
	if !r.Contains(0) || !r.Contains(0.5) || r.Contains(0.51) {
		t.Error("unexpected Contains results")
	}
	for _, f := range Fields() {
		if _, ok := RangeFor(f); !ok {
			t.Errorf("missing range for %s", f)
		}
		if f.Label() == string(f) {
			t.Errorf("missing label for %s", f)
		}
	}
}
