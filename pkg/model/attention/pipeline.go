// Package attention implements the simulated scaled dot-product self-attention pass.
//
// Q, K and V are sampled rather than projected from learned weights, and the
// pass is a single equivalent head: NumHeads only sets the scaling denominator.
package attention

import (
	"log"

	"attnviz/pkg/matrix"
	"attnviz/pkg/model"
)

// Pipeline runs the fixed sequence of matrix operations for one attention pass.
type Pipeline struct {
	rng    matrix.Source
	logger *log.Logger
}

// NewPipeline creates a pipeline drawing randomness from rng.
// A nil rng uses a clock-seeded source; a nil logger uses log.Default().
func NewPipeline(rng matrix.Source, logger *log.Logger) *Pipeline {
	if rng == nil {
		rng = matrix.NewSource(0)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{rng: rng, logger: logger}
}

// Compute derives the full tensor set for tokens under hp.
//
// Every call samples fresh Q, K, V and a fresh dropout mask. An empty token
// sequence yields Empty(). Invalid hyperparameters and dimension mismatches
// are logged and recovered: Compute always returns a well-defined set.
func (p *Pipeline) Compute(tokens []string, hp model.Hyperparameters) TensorSet {
	if len(tokens) == 0 {
		return Empty()
	}
	if err := hp.Validate(); err != nil {
		p.logger.Printf("[attention] skipping pass: %v", err)
		return Empty()
	}

	n, d := len(tokens), hp.ModelDimension

	// Step 1: Sample Q, K, V, three independent (n, d) draws
	q := matrix.Generate(p.rng, n, d)
	k := matrix.Generate(p.rng, n, d)
	v := matrix.Generate(p.rng, n, d)

	// Step 2: QK^T, shape (n, n)
	qkt, err := matrix.Multiply(q, matrix.Transpose(k))
	if err != nil {
		p.logger.Printf("[attention] QK^T: %v", err)
	}

	// Step 3: Scale by 1/sqrt(d_model / num_heads)
	scaled := matrix.Scale(qkt, hp.ScaleFactor())

	// Step 4: Row-wise softmax
	weights := matrix.Softmax(scaled)

	// Step 5: Dropout mask on the scores, without rescaling
	scores := matrix.ApplyDropoutMask(p.rng, weights, hp.DropoutRate)

	// Step 6: Weighted sum of values, shape (n, d)
	output, err := matrix.Multiply(scores, v)
	if err != nil {
		p.logger.Printf("[attention] scores·V: %v", err)
	}

	return TensorSet{
		Q:               q,
		K:               k,
		V:               v,
		QKt:             qkt,
		ScaledQKt:       scaled,
		AttentionScores: scores,
		Output:          output,
	}
}
