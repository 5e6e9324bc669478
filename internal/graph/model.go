// Package graph composes nn layers into trainable models.
//
// A Model is a small fixed DAG: one Chain per input (a branch), a Concatenate
// merge when there is more than one branch, and a head Chain producing the
// output. Build checks every layer's input shape against its producer once, so
// Forward never has to guess. Backward runs the same structure in reverse and
// splits the merge gradient back into per-branch slices.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/embednet/internal/nn"
	"github.com/born-ml/embednet/internal/tensor"
)

// Input declares one model input: a name and the per-example shape
// (batch dimension excluded).
type Input struct {
	Name  string
	Shape tensor.Shape
}

// Optimizer is what Model.Step needs from an optimizer.
type Optimizer interface {
	Tick()
	nn.Updater
}

// NamedParameter pairs a parameter with its stable model-wide name.
type NamedParameter struct {
	Name  string
	Param *nn.Parameter
}

// Model is a built, shape-checked network.
type Model struct {
	name     string
	inputs   []Input
	branches []*Chain
	merge    *nn.Concatenate // nil with a single branch
	head     *Chain

	branchShapes []tensor.Shape
	outputShape  tensor.Shape
}

// Build assembles a Model and validates it.
//
// inputs[i] feeds branches[i]. With several branches their outputs are
// flattened and concatenated before the head. Build fails with a ShapeError
// or ConfigError if any layer rejects its inferred input shape, and with a
// ConfigError if two parameters share a name.
func Build(name string, inputs []Input, branches []*Chain, head *Chain) (*Model, error) {
	if len(inputs) == 0 {
		return nil, &nn.ConfigError{Layer: name, Field: "inputs", Value: 0, Reason: "at least one input required"}
	}
	if len(inputs) != len(branches) {
		return nil, &nn.ConfigError{
			Layer:  name,
			Field:  "branches",
			Value:  len(branches),
			Reason: fmt.Sprintf("need one branch per input (%d inputs)", len(inputs)),
		}
	}
	if head == nil {
		head = NewChain("head")
	}

	m := &Model{
		name:     name,
		inputs:   inputs,
		branches: branches,
		head:     head,
	}

	m.branchShapes = make([]tensor.Shape, len(branches))
	for i, b := range branches {
		if err := inputs[i].Shape.Validate(); err != nil {
			return nil, &nn.ConfigError{Layer: name, Field: "input " + inputs[i].Name, Value: inputs[i].Shape, Reason: err.Error()}
		}
		out, err := b.OutputShape(inputs[i].Shape)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		m.branchShapes[i] = out
	}

	headIn := m.branchShapes[0]
	if len(branches) > 1 {
		m.merge = nn.NewConcatenate("concatenate")
		merged, err := m.merge.MergedShape(m.branchShapes)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		headIn = merged
	}

	out, err := head.OutputShape(headIn)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	m.outputShape = out

	seen := make(map[string]bool)
	for _, np := range m.NamedParameters() {
		if seen[np.Name] {
			return nil, &nn.ConfigError{Layer: name, Field: "parameter", Value: np.Name, Reason: "duplicate name"}
		}
		seen[np.Name] = true
	}
	return m, nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Inputs returns the declared inputs.
func (m *Model) Inputs() []Input { return m.inputs }

// OutputShape returns the per-example output shape inferred at build time.
func (m *Model) OutputShape() tensor.Shape { return m.outputShape }

// Branches returns the input branches.
func (m *Model) Branches() []*Chain { return m.branches }

// Head returns the head chain.
func (m *Model) Head() *Chain { return m.head }

// Forward runs every branch, merges, and runs the head.
//
// inputs[i] must have shape (batch, Inputs()[i].Shape...) and all inputs must
// share the batch size, which may differ from call to call.
func (m *Model) Forward(inputs []*tensor.Tensor, mode nn.Mode) (*tensor.Tensor, error) {
	if len(inputs) != len(m.inputs) {
		return nil, fmt.Errorf("model %q: got %d inputs, want %d", m.name, len(inputs), len(m.inputs))
	}
	batch := inputs[0].Dim(0)
	outs := make([]*tensor.Tensor, len(inputs))
	for i, x := range inputs {
		want := m.inputs[i].Shape.WithBatch(batch)
		if !x.Shape().Equal(want) {
			return nil, tensor.NewShapeError("Model.Forward",
				fmt.Sprintf("input %q must be %v", m.inputs[i].Name, want), x.Shape())
		}
		out, err := m.branches[i].Forward(x, mode)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.name, err)
		}
		outs[i] = out
	}

	h := outs[0]
	if m.merge != nil {
		var err error
		if h, err = m.merge.Merge(outs); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.name, err)
		}
	}

	out, err := m.head.Forward(h, mode)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.name, err)
	}
	return out, nil
}

// Backward propagates dLoss/dOutput through the head, the merge and every
// branch, accumulating parameter gradients along the way.
func (m *Model) Backward(grad *tensor.Tensor) error {
	g, err := m.head.Backward(grad)
	if err != nil {
		return fmt.Errorf("model %q: %w", m.name, err)
	}

	grads := []*tensor.Tensor{g}
	if m.merge != nil {
		if grads, err = m.merge.Split(g); err != nil {
			return fmt.Errorf("model %q: %w", m.name, err)
		}
	}

	for i, b := range m.branches {
		if _, err := b.Backward(grads[i]); err != nil {
			return fmt.Errorf("model %q: %w", m.name, err)
		}
	}
	return nil
}

// layers lists every layer: branches in input order, then the head.
func (m *Model) layers() []nn.Layer {
	var out []nn.Layer
	for _, b := range m.branches {
		out = append(out, b.Layers()...)
	}
	return append(out, m.head.Layers()...)
}

// Parameters returns all trainable parameters in a stable order.
func (m *Model) Parameters() []*nn.Parameter {
	var params []*nn.Parameter
	for _, l := range m.layers() {
		params = append(params, l.Parameters()...)
	}
	return params
}

// NamedParameters returns every parameter with its stable name
// (e.g. "user_embedding.weight", "dense_1.kernel"), in Parameters order.
func (m *Model) NamedParameters() []NamedParameter {
	params := m.Parameters()
	out := make([]NamedParameter, len(params))
	for i, p := range params {
		out[i] = NamedParameter{Name: p.Name(), Param: p}
	}
	return out
}

// NumParameters returns the total number of trainable scalars.
func (m *Model) NumParameters() int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}

// StateDict returns a copy of every parameter keyed by name.
func (m *Model) StateDict() map[string]*tensor.Tensor {
	state := make(map[string]*tensor.Tensor)
	for _, np := range m.NamedParameters() {
		state[np.Name] = np.Param.Tensor().Clone()
	}
	return state
}

// LoadStateDict copies values into the model's parameters.
//
// Every model parameter must be present with a matching shape; extra entries
// are rejected so that a file for a different architecture fails loudly.
func (m *Model) LoadStateDict(state map[string]*tensor.Tensor) error {
	named := m.NamedParameters()
	known := make(map[string]bool, len(named))
	for _, np := range named {
		known[np.Name] = true
		src, ok := state[np.Name]
		if !ok {
			return fmt.Errorf("model %q: missing parameter %q", m.name, np.Name)
		}
		if err := tensor.CopyFrom(np.Param.Tensor(), src); err != nil {
			return fmt.Errorf("model %q: parameter %q: %w", m.name, np.Name, err)
		}
	}

	var extra []string
	for name := range state {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("model %q: unexpected parameters %s", m.name, strings.Join(extra, ", "))
	}
	return nil
}

// ZeroGrad clears every parameter gradient, including embedding row buffers.
// Must run before each batch's backward pass.
func (m *Model) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}

// Step applies one optimizer step: a single Tick, then an update of every
// parameter. Embedding tables go through ApplyOptimizerStep so that only the
// rows seen in the batch change.
func (m *Model) Step(opt Optimizer) error {
	opt.Tick()
	for _, l := range m.layers() {
		if emb, ok := l.(*nn.Embedding); ok {
			if err := emb.ApplyOptimizerStep(opt); err != nil {
				return fmt.Errorf("model %q: %w", m.name, err)
			}
			continue
		}
		for _, p := range l.Parameters() {
			if err := opt.Update(p); err != nil {
				return fmt.Errorf("model %q: update %q: %w", m.name, p.Name(), err)
			}
		}
	}
	return nil
}

// NonFiniteGradients returns the names of parameters whose accumulated
// gradient holds NaN or ±Inf. The result is empty when every gradient is finite.
func (m *Model) NonFiniteGradients() []string {
	var bad []string
	for _, np := range m.NamedParameters() {
		if !np.Param.GradFinite() {
			bad = append(bad, np.Name)
		}
	}
	return bad
}

// Summary renders one line per layer with its output shape and parameter
// count, followed by the total.
func (m *Model) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model %q\n", m.name)
	fmt.Fprintf(&sb, "%-24s %-16s %-16s %s\n", "Layer", "Kind", "Output", "Params")

	row := func(l nn.Layer, shape tensor.Shape) {
		n := 0
		for _, p := range l.Parameters() {
			n += p.Tensor().NumElements()
		}
		fmt.Fprintf(&sb, "%-24s %-16s %-16s %d\n", l.Name(), l.Kind(), batchShape(shape), n)
	}

	var headIn tensor.Shape
	for i, b := range m.branches {
		fmt.Fprintf(&sb, "%-24s %-16s %-16s %d\n", m.inputs[i].Name, "Input", batchShape(m.inputs[i].Shape), 0)
		shape := m.inputs[i].Shape
		for _, l := range b.Layers() {
			shape, _ = l.OutputShape(shape)
			row(l, shape)
		}
		headIn = shape
	}
	if m.merge != nil {
		headIn, _ = m.merge.MergedShape(m.branchShapes)
		row(m.merge, headIn)
	}
	shape := headIn
	for _, l := range m.head.Layers() {
		shape, _ = l.OutputShape(shape)
		row(l, shape)
	}
	fmt.Fprintf(&sb, "Total params: %d\n", m.NumParameters())
	return sb.String()
}

// batchShape formats a per-example shape with an unknown batch dimension.
func batchShape(s tensor.Shape) string {
	var sb strings.Builder
	sb.WriteString("(None")
	for _, d := range s {
		fmt.Fprintf(&sb, ", %d", d)
	}
	sb.WriteString(")")
	return sb.String()
}
