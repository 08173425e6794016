// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/xslices"
)

// This file implements Scan, the graph's only loop construct: a step function
// is applied over the leading axis of the input sequences, optionally feeding
// previous step outputs back in ("taps") and carrying shared-variable state.
//
// Scan lowers to a single OpTypeScan node holding a nested step Graph (see
// ScanSpec), plus one OpTypeScanOutput selector node per value read out of the
// loop. The number of steps is resolved at graph building time, so every
// output shape stays static.

// ScanOutputKind selects which value a ScanOutput node reads from its Scan.
type ScanOutputKind int

const (
	// ScanOutputHistory reads all steps of an output, stacked on a new
	// leading axis.
	ScanOutputHistory ScanOutputKind = iota

	// ScanOutputLast reads only the output's value at the final step.
	ScanOutputLast
)

// String implements fmt.Stringer.
func (k ScanOutputKind) String() string {
	switch k {
	case ScanOutputHistory:
		return "History"
	case ScanOutputLast:
		return "Last"
	}
	return fmt.Sprintf("ScanOutputKind(%d)", int(k))
}

// ScanSeqSpec describes one scanned sequence in a ScanSpec.
type ScanSeqSpec struct {
	// Taps are the per-step offsets read from the sequence, all <= 0: tap 0 is
	// the current element, tap -1 the previous one, etc.
	Taps []int

	// TapParams are the step-graph parameters fed with the tapped elements,
	// aligned with Taps.
	TapParams []*Node

	// Input is the index of the sequence source among the Scan node's inputs.
	Input int
}

// ScanOutSpec describes one recurrent output in a ScanSpec.
type ScanOutSpec struct {
	// Taps are the per-step offsets read from this output's own previous
	// values, all < 0. Empty for outputs that aren't fed back.
	Taps []int

	// TapParams are the step-graph parameters fed with the tapped previous
	// values, aligned with Taps.
	TapParams []*Node

	// Window is the number of previous steps the taps reach back, -min(Taps),
	// or 0 when there are no taps.
	Window int

	// InitialInput is the index of the initial value among the Scan node's
	// inputs, or -1 when the output has no taps. When Window is 1 the initial
	// is one element; when larger, the initial carries a leading axis of at
	// least Window elements, of which the trailing Window are used.
	InitialInput int

	// Result is the step-graph node computing this output's value at each step.
	Result *Node
}

// ScanNonSeqSpec describes one non-sequence in a ScanSpec: a loop-invariant
// value handed whole to every step.
type ScanNonSeqSpec struct {
	// Param is the step-graph parameter fed with the value.
	Param *Node

	// Input is the index of the value's source among the Scan node's inputs.
	Input int
}

// ScanSharedSpec describes one shared variable threaded through a scan.
type ScanSharedSpec struct {
	Var *SharedVar

	// Param is the step-graph parameter fed with the variable's carried value.
	Param *Node

	// Update is the step-graph node whose value the variable carries to the
	// next step. Equal to Param if the step never updates the variable.
	Update *Node

	// Input is the index of the variable's entry value (an outer SharedRead)
	// among the Scan node's inputs.
	Input int
}

// ScanSpec is the data attached to a Scan node: the nested step Graph and the
// wiring between the outer node's inputs and the step graph's parameters.
type ScanSpec struct {
	Name string
	Step *Graph

	Sequences []ScanSeqSpec
	Outputs   []ScanOutSpec
	NonSeqs   []ScanNonSeqSpec
	Shared    []ScanSharedSpec

	// NumSteps is the resolved number of steps. With an Until predicate it is
	// an upper bound: execution may stop earlier.
	NumSteps int

	// T0 is the first sequence index scanned, chosen so every negative
	// sequence tap stays in range.
	T0 int

	// Until, if not nil, is a scalar Bool step-graph node: when it evaluates
	// to true at some step, that step's outputs and updates are discarded and
	// the loop stops.
	Until *Node
}

// scanOutputNode is the data attached to ScanOutput selector nodes.
type scanOutputNode struct {
	kind  ScanOutputKind
	index int
}

// ScanOutputKind returns the selector kind of a ScanOutput node. It panics if
// the node is not a ScanOutput.
func (n *Node) ScanOutputKind() ScanOutputKind { return n.scanOutputData().kind }

// ScanOutputIndex returns which scan output a ScanOutput node selects. It
// panics if the node is not a ScanOutput.
func (n *Node) ScanOutputIndex() int { return n.scanOutputData().index }

func (n *Node) scanOutputData() *scanOutputNode {
	n.AssertValid()
	if n.opType != ops.OpTypeScanOutput {
		exceptions.Panicf("node %s is not a ScanOutput node", n)
	}
	return n.data.(*scanOutputNode)
}

// ScanSpec returns the spec of a Scan node. It panics if the node is not a
// Scan.
func (n *Node) ScanSpec() *ScanSpec {
	n.AssertValid()
	if n.opType != ops.OpTypeScan {
		exceptions.Panicf("node %s is not a Scan node", n)
	}
	return n.data.(*ScanSpec)
}

// scanSequenceDecl and scanOutputDecl hold the declarations accumulated by
// ScanConfig before Run.
type scanSequenceDecl struct {
	source *Node
	taps   []int
}

type scanOutputDecl struct {
	initial *Node
	taps    []int
}

// ScanConfig accumulates the declaration of a scan loop. Create it with
// NewScan, declare sequences, outputs and step count, then call Run with the
// step function.
type ScanConfig struct {
	g         *Graph
	name      string
	sequences []scanSequenceDecl
	outputs   []scanOutputDecl
	nonSeqs   []*Node
	numSteps  int
	explicit  bool
	until     bool
}

// NewScan starts the declaration of a scan loop on the graph. The name is
// used in error messages and logs; if empty one is generated.
func NewScan(g *Graph, name string) *ScanConfig {
	g.AssertValid()
	if name == "" {
		name = fmt.Sprintf("scan#%d", g.NumNodes())
	}
	return &ScanConfig{g: g, name: name}
}

// WithSequence declares an input sequence, scanned over its leading axis. The
// taps are the offsets handed to each step: 0 is the current element, -1 the
// previous one, and so on; if no tap is given, it defaults to 0. The step
// function receives one value per tap, in the given order.
func (c *ScanConfig) WithSequence(source *Node, taps ...int) *ScanConfig {
	source.AssertValid()
	if len(taps) == 0 {
		taps = []int{0}
	}
	c.sequences = append(c.sequences, scanSequenceDecl{source: source, taps: taps})
	return c
}

// WithOutput declares a recurrent output: the step function receives the
// output's previous values at the given taps (all < 0), and the initial node
// seeds the values for the first steps. If the window is 1 step deep, initial
// is one element; for deeper windows initial carries a leading axis of at
// least the window size, of which the trailing rows are used.
//
// For outputs that aren't fed back, use WithOutput(nil): the step function
// receives no value for it and only produces it.
func (c *ScanConfig) WithOutput(initial *Node, taps ...int) *ScanConfig {
	if initial != nil {
		initial.AssertValid()
	}
	c.outputs = append(c.outputs, scanOutputDecl{initial: initial, taps: taps})
	return c
}

// WithNonSequence declares a loop-invariant value: the step function receives
// it whole on every step, not scanned. Use it for values from the outer graph
// that the step reads but never iterates over.
func (c *ScanConfig) WithNonSequence(source *Node) *ScanConfig {
	source.AssertValid()
	c.nonSeqs = append(c.nonSeqs, source)
	return c
}

// WithNumSteps fixes the number of steps, instead of deriving it from the
// sequences. Sequences too short for that many steps throw a TapWindowError.
func (c *ScanConfig) WithNumSteps(n int) *ScanConfig {
	c.numSteps = n
	c.explicit = true
	return c
}

// WithUntil declares that the step function returns one extra trailing value:
// a scalar Bool that stops the loop when true. The stopping step's outputs
// and updates are discarded.
func (c *ScanConfig) WithUntil() *ScanConfig {
	c.until = true
	return c
}

// ScanCell is handed to the step function: it gives access to the step graph,
// the tapped values, and the shared variables' carried state.
type ScanCell struct {
	config *ScanConfig
	step   *Graph

	seqTaps [][]*Node
	outTaps [][]*Node
	nonSeqs []*Node
	shared  []*ScanSharedSpec
}

// Graph returns the step graph: nodes returned by the step function must
// belong to it.
func (cell *ScanCell) Graph() *Graph { return cell.step }

// SequenceTaps returns the tapped values of the i-th declared sequence, one
// node per declared tap.
func (cell *ScanCell) SequenceTaps(i int) []*Node { return cell.seqTaps[i] }

// SequenceTap returns the single tapped value of the i-th sequence. It panics
// if the sequence declares more than one tap.
func (cell *ScanCell) SequenceTap(i int) *Node {
	taps := cell.seqTaps[i]
	if len(taps) != 1 {
		exceptions.Panicf("scan %q: sequence #%d has %d taps, use SequenceTaps", cell.config.name, i, len(taps))
	}
	return taps[0]
}

// OutputTaps returns the tapped previous values of the i-th declared output,
// one node per declared tap.
func (cell *ScanCell) OutputTaps(i int) []*Node { return cell.outTaps[i] }

// OutputTap returns the single tapped previous value of the i-th output. It
// panics if the output declares more than one tap.
func (cell *ScanCell) OutputTap(i int) *Node {
	taps := cell.outTaps[i]
	if len(taps) != 1 {
		exceptions.Panicf("scan %q: output #%d has %d taps, use OutputTaps", cell.config.name, i, len(taps))
	}
	return taps[0]
}

// NonSequence returns the step-graph value of the i-th declared non-sequence.
func (cell *ScanCell) NonSequence(i int) *Node { return cell.nonSeqs[i] }

// Read returns the carried value of the shared variable for the current step:
// the variable's value at scan entry for the first step, then whatever Update
// set on the previous step. Repeated reads return the same node.
func (cell *ScanCell) Read(sv *SharedVar) *Node {
	if sv == nil {
		exceptions.Panicf("scan %q: Read of a nil shared variable", cell.config.name)
	}
	return cell.sharedState(sv).Param
}

// Update sets the value the shared variable carries to the next step (and,
// after the last step, back into the variable itself when the compiled
// function runs). The value must keep the variable's shape.
func (cell *ScanCell) Update(sv *SharedVar, value *Node) {
	if sv == nil {
		exceptions.Panicf("scan %q: Update of a nil shared variable", cell.config.name)
	}
	value.AssertValid()
	if value.graph != cell.step {
		exceptions.Panicf("scan %q: Update value for %q belongs to another graph", cell.config.name, sv.Name())
	}
	if !value.shape.Equal(sv.Shape()) {
		throwOnError(tapWindowErrorf(cell.config.name,
			"update of shared %q must keep shape %s, got %s", sv.Name(), sv.Shape(), value.shape))
	}
	cell.sharedState(sv).Update = value
}

func (cell *ScanCell) sharedState(sv *SharedVar) *ScanSharedSpec {
	for _, state := range cell.shared {
		if state.Var == sv {
			return state
		}
	}
	param := cell.step.Parameter(fmt.Sprintf("shared/%s", sv.Name()), sv.Shape())
	state := &ScanSharedSpec{Var: sv, Param: param, Update: param}
	cell.shared = append(cell.shared, state)
	return state
}

// ScanResults gives access to the values computed by a scan loop; returned by
// ScanConfig.Run.
type ScanResults struct {
	scan *Node

	histories []*Node
	lasts     []*Node
}

// Scan returns the underlying Scan node.
func (r *ScanResults) Scan() *Node { return r.scan }

// Output returns the history of the i-th declared output: all steps stacked
// on a new leading axis. With an until predicate, the leading dimension is an
// upper bound; at execution the returned tensor has one row per step actually
// taken.
func (r *ScanResults) Output(i int) *Node {
	if r.histories[i] == nil {
		spec := r.scan.ScanSpec()
		elem := spec.Outputs[i].Result.shape
		dims := append([]int{spec.NumSteps}, elem.Dimensions...)
		r.histories[i] = r.scan.graph.newNode(ops.OpTypeScanOutput,
			shapes.Make(elem.DType, dims...), []*Node{r.scan},
			&scanOutputNode{kind: ScanOutputHistory, index: i})
	}
	return r.histories[i]
}

// Last returns the i-th output's value at the final step taken.
func (r *ScanResults) Last(i int) *Node {
	if r.lasts[i] == nil {
		spec := r.scan.ScanSpec()
		r.lasts[i] = r.scan.graph.newNode(ops.OpTypeScanOutput,
			spec.Outputs[i].Result.shape.Clone(), []*Node{r.scan},
			&scanOutputNode{kind: ScanOutputLast, index: i})
	}
	return r.lasts[i]
}

// Run builds the step graph, calls stepFn to define one step of the loop, and
// lowers the whole declaration to a Scan node in the outer graph.
//
// The step function must return one node per declared output, in declaration
// order, plus a trailing scalar Bool if WithUntil was set. Declaration errors
// are thrown as *ScanSignatureError or *TapWindowError.
func (c *ScanConfig) Run(stepFn func(cell *ScanCell) []*Node) *ScanResults {
	c.g.AssertValid()
	if len(c.sequences) == 0 && !c.explicit {
		throwOnError(scanSignatureErrorf(c.name, "no sequences and no explicit number of steps: cannot derive the loop length"))
	}
	if c.explicit && c.numSteps <= 0 {
		throwOnError(tapWindowErrorf(c.name, "explicit number of steps must be positive, got %d", c.numSteps))
	}

	// Resolve the step range from the sequence taps.
	t0 := 0
	for ii, seq := range c.sequences {
		if seq.source.Rank() < 1 {
			throwOnError(scanSignatureErrorf(c.name, "sequence #%d is a scalar, it needs a leading axis to scan over", ii))
		}
		for _, tap := range seq.taps {
			if tap > 0 {
				throwOnError(scanSignatureErrorf(c.name, "sequence #%d: tap %d is positive, sequence taps must be <= 0", ii, tap))
			}
		}
		t0 = max(t0, -xslices.Min(seq.taps))
	}
	numSteps := c.numSteps
	if !c.explicit {
		for ii, seq := range c.sequences {
			available := seq.source.shape.Dim(0) - xslices.Max(seq.taps) - t0
			if ii == 0 || available < numSteps {
				numSteps = available
			}
		}
		if numSteps <= 0 {
			throwOnError(tapWindowErrorf(c.name, "sequences are too short for the declared taps: %d steps derived", numSteps))
		}
	} else {
		for ii, seq := range c.sequences {
			needed := t0 + numSteps + xslices.Max(seq.taps)
			if seq.source.shape.Dim(0) < needed {
				throwOnError(tapWindowErrorf(c.name,
					"sequence #%d has %d elements, %d steps with the declared taps need %d",
					ii, seq.source.shape.Dim(0), numSteps, needed))
			}
		}
	}

	// Build the step graph and its parameters, in declaration order.
	step := New(c.name + "/step")
	step.SetTestValuePolicy(c.g.testValues)
	cell := &ScanCell{config: c, step: step}
	spec := &ScanSpec{Name: c.name, Step: step, NumSteps: numSteps, T0: t0}
	var scanInputs []*Node
	for ii, seq := range c.sequences {
		elem := shapes.Make(seq.source.DType(), seq.source.shape.Dimensions[1:]...)
		seqSpec := ScanSeqSpec{Taps: seq.taps, Input: len(scanInputs)}
		scanInputs = append(scanInputs, seq.source)
		for _, tap := range seq.taps {
			param := step.Parameter(fmt.Sprintf("seq#%d[t%+d]", ii, tap), elem)
			seqSpec.TapParams = append(seqSpec.TapParams, param)
		}
		spec.Sequences = append(spec.Sequences, seqSpec)
		cell.seqTaps = append(cell.seqTaps, seqSpec.TapParams)
	}
	for ii, out := range c.outputs {
		outSpec := ScanOutSpec{Taps: out.taps, InitialInput: -1}
		if len(out.taps) > 0 {
			for _, tap := range out.taps {
				if tap >= 0 {
					throwOnError(scanSignatureErrorf(c.name, "output #%d: tap %d is not negative, output taps read previous steps", ii, tap))
				}
			}
			outSpec.Window = -xslices.Min(out.taps)
			if out.initial == nil {
				throwOnError(scanSignatureErrorf(c.name, "output #%d has taps %v but no initial value", ii, out.taps))
			}
			elem := out.initial.shape
			if outSpec.Window > 1 {
				if out.initial.Rank() < 1 || out.initial.shape.Dim(0) < outSpec.Window {
					throwOnError(tapWindowErrorf(c.name,
						"output #%d taps reach %d steps back, initial value %s needs a leading axis of at least %d",
						ii, outSpec.Window, out.initial.shape, outSpec.Window))
				}
				elem = shapes.Make(out.initial.DType(), out.initial.shape.Dimensions[1:]...)
			}
			outSpec.InitialInput = len(scanInputs)
			scanInputs = append(scanInputs, out.initial)
			for _, tap := range out.taps {
				param := step.Parameter(fmt.Sprintf("out#%d[t%+d]", ii, tap), elem)
				outSpec.TapParams = append(outSpec.TapParams, param)
			}
		} else if out.initial != nil {
			throwOnError(scanSignatureErrorf(c.name, "output #%d has an initial value but no taps reading it back", ii))
		}
		spec.Outputs = append(spec.Outputs, outSpec)
		cell.outTaps = append(cell.outTaps, outSpec.TapParams)
	}
	for ii, source := range c.nonSeqs {
		param := step.Parameter(fmt.Sprintf("nonseq#%d", ii), source.shape)
		spec.NonSeqs = append(spec.NonSeqs, ScanNonSeqSpec{Param: param, Input: len(scanInputs)})
		scanInputs = append(scanInputs, source)
		cell.nonSeqs = append(cell.nonSeqs, param)
	}

	// Define the step.
	results := stepFn(cell)
	wantResults := len(c.outputs)
	if c.until {
		wantResults++
	}
	if len(results) != wantResults {
		throwOnError(scanSignatureErrorf(c.name, "step function returned %d values, expected %d (%d outputs%s)",
			len(results), wantResults, len(c.outputs), map[bool]string{true: " + until", false: ""}[c.until]))
	}
	for ii, result := range results {
		if result == nil {
			throwOnError(scanSignatureErrorf(c.name, "step function returned nil for value #%d", ii))
		}
		if result.graph != step {
			throwOnError(scanSignatureErrorf(c.name, "step function value #%d belongs to graph %q, not to the step graph", ii, result.graph.name))
		}
	}
	for ii := range c.outputs {
		outSpec := &spec.Outputs[ii]
		outSpec.Result = results[ii]
		if len(outSpec.TapParams) > 0 && !results[ii].shape.Equal(outSpec.TapParams[0].shape) {
			throwOnError(scanSignatureErrorf(c.name,
				"output #%d is fed back through taps, its step value %s must keep the initial's element shape %s",
				ii, results[ii].shape, outSpec.TapParams[0].shape))
		}
	}
	if c.until {
		until := results[len(results)-1]
		if until.DType() != dtypes.Bool || !until.IsScalar() {
			throwOnError(scanSignatureErrorf(c.name, "until predicate must be a scalar Bool, got %s", until.shape))
		}
		spec.Until = until
	}
	for _, state := range cell.shared {
		state.Input = len(scanInputs)
		scanInputs = append(scanInputs, c.g.ReadShared(state.Var))
		spec.Shared = append(spec.Shared, *state)
	}

	// The Scan node itself carries no value: its results are read through
	// ScanOutput selector nodes.
	scanNode := c.g.newNode(ops.OpTypeScan, shapes.Invalid(), scanInputs, spec)
	return &ScanResults{
		scan:      scanNode,
		histories: make([]*Node, len(c.outputs)),
		lasts:     make([]*Node, len(c.outputs)),
	}
}
