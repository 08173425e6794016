// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/symgraph/ops"
)

// TransformFn is called for each source node being carried over to the
// destination graph. It returns the replacement node (built in the
// destination graph, typically from inputs mapped with TransformBuilder.Map),
// or nil to have the node cloned unchanged.
type TransformFn func(b *TransformBuilder, node *Node) *Node

// TransformBuilder rebuilds (part of) a source graph into a fresh destination
// graph. It is how the rewrite passes work: graphs are never mutated, each
// pass maps the previous graph into a new one, replacing the nodes it cares
// about and cloning the rest.
//
// Mapping is demand driven and memoized: only nodes reachable from the mapped
// roots are carried over, so nodes orphaned by a replacement are dropped for
// free. Parameters are the exception: all of them are carried over upfront,
// in order, so parameter handles keep their meaning.
type TransformBuilder struct {
	src, dst *Graph
	fn       TransformFn
	mapped   map[*Node]*Node
}

// NewTransform creates a TransformBuilder from src into a fresh graph with
// the same name and settings. All of src's parameters are carried over
// immediately, keeping their handles.
func NewTransform(src *Graph, fn TransformFn) *TransformBuilder {
	src.AssertValid()
	dst := New(src.name)
	dst.testValues = src.testValues
	dst.traced = src.traced
	b := &TransformBuilder{
		src:    src,
		dst:    dst,
		fn:     fn,
		mapped: make(map[*Node]*Node, len(src.nodes)),
	}
	for _, param := range src.parameters {
		data := param.parameterData()
		b.mapped[param] = dst.Parameter(data.name, param.shape)
	}
	return b
}

// Graph returns the destination graph being built.
func (b *TransformBuilder) Graph() *Graph { return b.dst }

// Map returns the destination node for the given source node, transforming it
// (and, recursively, its inputs) on first use.
func (b *TransformBuilder) Map(node *Node) *Node {
	if node == nil {
		return nil
	}
	if node.graph != b.src {
		exceptions.Panicf("TransformBuilder.Map: node %s doesn't belong to the source graph %q", node, b.src.name)
	}
	if out, found := b.mapped[node]; found {
		return out
	}
	var out *Node
	if b.fn != nil {
		out = b.fn(b, node)
	}
	if out == nil {
		out = b.clone(node)
	}
	if out.graph != b.dst {
		exceptions.Panicf("TransformBuilder: replacement for %s doesn't belong to the destination graph", node)
	}
	b.mapped[node] = out
	return out
}

// clone carries a node over unchanged, with its inputs mapped. Node data is
// treated as immutable and shared between the graphs.
func (b *TransformBuilder) clone(node *Node) *Node {
	switch node.opType {
	case ops.OpTypeParameter:
		// Pre-created by NewTransform.
		return b.dst.parameters[node.ParameterHandle()]
	case ops.OpTypeSharedRead:
		return b.dst.ReadShared(node.data.(*SharedVar))
	case ops.OpTypeScan:
		return b.cloneScan(node)
	}
	inputs := make([]*Node, len(node.inputs))
	for ii, input := range node.inputs {
		inputs[ii] = b.Map(input)
	}
	out := b.dst.newNode(node.opType, node.shape.Clone(), inputs, node.data)
	out.inplaceInput = node.inplaceInput
	out.logMessage = node.logMessage
	return out
}

// cloneScan rebuilds a Scan node, recursively transforming its step graph
// with the same TransformFn -- so a rewrite applied to a graph also applies
// inside its loops.
func (b *TransformBuilder) cloneScan(node *Node) *Node {
	spec := node.ScanSpec()
	stepB := NewTransform(spec.Step, b.fn)
	newSpec := &ScanSpec{
		Name:     spec.Name,
		Step:     stepB.Graph(),
		NumSteps: spec.NumSteps,
		T0:       spec.T0,
		Until:    stepB.Map(spec.Until),
	}
	mapAll := func(nodes []*Node) []*Node {
		out := make([]*Node, len(nodes))
		for ii, n := range nodes {
			out[ii] = stepB.Map(n)
		}
		return out
	}
	for _, seq := range spec.Sequences {
		newSpec.Sequences = append(newSpec.Sequences, ScanSeqSpec{
			Taps:      seq.Taps,
			TapParams: mapAll(seq.TapParams),
			Input:     seq.Input,
		})
	}
	for _, out := range spec.Outputs {
		newSpec.Outputs = append(newSpec.Outputs, ScanOutSpec{
			Taps:         out.Taps,
			TapParams:    mapAll(out.TapParams),
			Window:       out.Window,
			InitialInput: out.InitialInput,
			Result:       stepB.Map(out.Result),
		})
	}
	for _, nonSeq := range spec.NonSeqs {
		newSpec.NonSeqs = append(newSpec.NonSeqs, ScanNonSeqSpec{
			Param: stepB.Map(nonSeq.Param),
			Input: nonSeq.Input,
		})
	}
	for _, shared := range spec.Shared {
		newSpec.Shared = append(newSpec.Shared, ScanSharedSpec{
			Var:    shared.Var,
			Param:  stepB.Map(shared.Param),
			Update: stepB.Map(shared.Update),
			Input:  shared.Input,
		})
	}
	inputs := make([]*Node, len(node.inputs))
	for ii, input := range node.inputs {
		inputs[ii] = b.Map(input)
	}
	out := b.dst.newNode(ops.OpTypeScan, node.shape, inputs, newSpec)
	out.logMessage = node.logMessage
	return out
}

// TransformGraph rebuilds the subgraph reachable from roots into a new graph,
// applying fn (which may be nil, for a plain deep-copy) to every node carried
// over. It returns the new graph and the mapped roots.
func TransformGraph(src *Graph, roots []*Node, fn TransformFn) (*Graph, []*Node) {
	b := NewTransform(src, fn)
	newRoots := make([]*Node, len(roots))
	for ii, root := range roots {
		newRoots[ii] = b.Map(root)
	}
	return b.Graph(), newRoots
}
