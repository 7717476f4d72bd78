package model

import "math"

// Range is the [Min, Max] interval and Step a control offers for a field.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Ranges are the control ranges for each hyperparameter.
//
// They bind the interactive surfaces (shell, HTTP API), which clamp user input
// with Range.Clamp before handing it to the controller. The controller itself
// only enforces Hyperparameters.Validate.
var Ranges = map[Field]Range{
	FieldModelDimension: {Min: 64, Max: 1024, Step: 64},
	FieldNumHeads:       {Min: 1, Max: 16, Step: 1},
	FieldDropoutRate:    {Min: 0, Max: 0.5, Step: 0.05},
	FieldMaxSeqLength:   {Min: 16, Max: 1024, Step: 16},
}

// RangeFor returns the control range for f.
func RangeFor(f Field) (Range, bool) {
	r, ok := Ranges[f]
	return r, ok
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to [Min, Max] and snaps it to the nearest step from Min.
// NaN clamps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	if r.Step <= 0 {
		return v
	}

	steps := math.Round((v - r.Min) / r.Step)
	snapped := r.Min + steps*r.Step
	// Drop float noise such as 0.15000000000000002
	snapped = math.Round(snapped*1e9) / 1e9
	if snapped > r.Max {
		snapped = r.Max
	}
	return snapped
}
