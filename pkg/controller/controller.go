// Package controller owns the canonical state of the attention walkthrough.
//
// Every transition (new text, new hyperparameters, a selection change) runs
// to completion under one lock and publishes a new immutable Snapshot.
// Readers load the current Snapshot without locking and never see tensors
// computed from a different token set than the one stored beside them.
package controller

import (
	"log"
	"sync"
	"sync/atomic"

	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/highlight"
	"attnviz/pkg/matrix"
	"attnviz/pkg/model"
	"attnviz/pkg/model/attention"
	"attnviz/pkg/tokenizer"
)

// DefaultText is the input shown before the user types anything.
const DefaultText = "The quick brown fox"

// Options configures a Controller.
type Options struct {
	// Text is the initial input. Empty input is valid.
	Text string
	// Hyperparameters defaults to model.DefaultHyperparameters() when zero.
	Hyperparameters model.Hyperparameters
	// Source supplies randomness for sampling and dropout. Nil uses a
	// clock-seeded source.
	Source matrix.Source
	Logger *log.Logger
}

// Listener is called after every snapshot swap.
type Listener func(*Snapshot)

type subscription struct {
	id int
	fn Listener
}

// Controller serializes state transitions and publishes snapshots.
type Controller struct {
	mu       sync.Mutex // serializes transitions
	current  atomic.Pointer[Snapshot]
	pipeline *attention.Pipeline
	logger   *log.Logger

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

// New creates a controller and computes the initial snapshot.
func New(opts Options) (*Controller, error) {
	hp := opts.Hyperparameters
	if hp == (model.Hyperparameters{}) {
		hp = model.DefaultHyperparameters()
	}
	if err := hp.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		pipeline: attention.NewPipeline(opts.Source, logger),
		logger:   logger,
	}
	c.current.Store(c.build(&Snapshot{}, opts.Text, hp))
	return c, nil
}

// Snapshot returns the current state. It never blocks on a running transition.
func (c *Controller) Snapshot() *Snapshot {
	return c.current.Load()
}

// Edges returns the highlight edges of the current snapshot.
func (c *Controller) Edges() []highlight.Edge {
	return c.Snapshot().Edges()
}

// SetInputText tokenizes text, clears the selection and recomputes.
func (c *Controller) SetInputText(text string) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	next := c.build(prev, text, prev.Hyperparameters)
	c.logger.Printf("[controller] text set: %d tokens (rev %d)", len(next.Tokens), next.Revision)
	return c.publish(next)
}

// SetHyperparameter updates one field, re-tokenizes the current text under
// the new MaxSeqLength, clears the selection and recomputes.
//
// Values are checked against the data-model constraints only; interactive
// surfaces clamp to model.Ranges first. On rejection the state is unchanged.
func (c *Controller) SetHyperparameter(f model.Field, value float64) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	hp, err := prev.Hyperparameters.With(f, value)
	if err != nil {
		c.logger.Printf("[controller] rejected %s=%v: %v", f, value, err)
		return prev, err
	}
	next := c.build(prev, prev.InputText, hp)
	c.logger.Printf("[controller] %s set to %v (rev %d)", f, value, next.Revision)
	return c.publish(next), nil
}

// SetHyperparameters replaces all hyperparameters at once.
func (c *Controller) SetHyperparameters(hp model.Hyperparameters) (*Snapshot, error) {
	return c.UpdateHyperparameters(func(model.Hyperparameters) (model.Hyperparameters, error) {
		return hp, nil
	})
}

// UpdateHyperparameters derives new hyperparameters from the current ones
// with fn and recomputes. Reading, merging, validating and publishing happen
// under one transition, so concurrent partial updates never overwrite each
// other. If fn fails or its result is invalid, the state is unchanged.
func (c *Controller) UpdateHyperparameters(fn func(model.Hyperparameters) (model.Hyperparameters, error)) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	hp, err := fn(prev.Hyperparameters)
	if err == nil {
		err = hp.Validate()
	}
	if err != nil {
		c.logger.Printf("[controller] rejected hyperparameters: %v", err)
		return prev, err
	}

	next := c.build(prev, prev.InputText, hp)
	c.logger.Printf("[controller] hyperparameters set to %s (rev %d)", hp, next.Revision)
	return c.publish(next), nil
}

// Recompute draws fresh Q, K, V and dropout for the current text and
// hyperparameters. The selection is cleared.
func (c *Controller) Recompute() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	return c.publish(c.build(prev, prev.InputText, prev.Hyperparameters))
}

// SelectToken selects token i. It fails with INVALID_SELECTION when i is
// outside the current token range, leaving the selection unchanged.
func (c *Controller) SelectToken(i int) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	if i < 0 || i >= len(prev.Tokens) {
		return prev, aerrors.InvalidSelection(i, len(prev.Tokens))
	}

	next := prev.derive()
	next.Selection = highlight.At(i)
	return c.publish(next), nil
}

// ClearSelection removes the selection.
func (c *Controller) ClearSelection() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.current.Load().derive()
	next.Selection = highlight.None()
	return c.publish(next)
}

// Subscribe registers fn to run after every swap, in registration order and
// on the goroutine that made the transition. fn must not call back into
// transitions. The returned func removes the subscription.
func (c *Controller) Subscribe(fn Listener) (cancel func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// build tokenizes text under hp and runs the pipeline. The result always has
// an empty selection.
func (c *Controller) build(prev *Snapshot, text string, hp model.Hyperparameters) *Snapshot {
	tok := tokenizer.New(hp.MaxSeqLength)
	tokens := tok.Encode(text)

	next := prev.derive()
	next.Tokens = tokens
	next.InputText = tok.Decode(tokens)
	next.Hyperparameters = hp
	next.Tensors = c.pipeline.Compute(tokens, hp)
	next.Selection = highlight.None()
	return next
}

// publish swaps next in and notifies subscribers. Callers hold c.mu.
func (c *Controller) publish(next *Snapshot) *Snapshot {
	c.current.Store(next)

	c.subMu.Lock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.subMu.Unlock()

	for _, s := range subs {
		s.fn(next)
	}
	return next
}
