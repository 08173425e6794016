// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types"
)

// Inplace returns the in-place marking pass: elementwise nodes whose output
// matches an input's shape and dtype are marked to overwrite that input's
// buffer during execution, instead of allocating a fresh one.
//
// A mark is only placed when it is safe: the input's buffer must not be owned
// elsewhere (parameters, constants, shared variables, graph outputs), at most
// one node may overwrite it, and every other reader of the input must be able
// to run before the writer -- which holds exactly when no other reader
// depends, directly or indirectly, on the writer's value. Executors turn the
// marks into scheduling edges from the readers to the writer.
//
// Unlike the other passes this one doesn't rebuild the graph: it only sets
// Node.SetInplaceInput on the graph it is given, which is expected to be the
// final one.
func Inplace() Pass { return inplacePass{} }

type inplacePass struct{}

func (inplacePass) Name() string { return "inplace" }

func (inplacePass) Apply(g *graph.Graph, roots []*graph.Node) (*graph.Graph, []*graph.Node, error) {
	markInplace(g, roots)
	return g, roots, nil
}

func markInplace(g *graph.Graph, roots []*graph.Node) {
	consumers := g.ConsumersMap(roots)
	external := types.SetWith(roots...)
	claimed := types.MakeSet[*graph.Node]()
	g.Nodes(func(node *graph.Node) {
		if _, live := consumers[node]; !live {
			return
		}
		if node.Type() == ops.OpTypeScan {
			spec := node.ScanSpec()
			var stepRoots []*graph.Node
			for _, out := range spec.Outputs {
				stepRoots = append(stepRoots, out.Result)
			}
			for _, shared := range spec.Shared {
				stepRoots = append(stepRoots, shared.Update)
			}
			if spec.Until != nil {
				stepRoots = append(stepRoots, spec.Until)
			}
			markInplace(spec.Step, stepRoots)
			return
		}
		if !canRunInplace(node) {
			return
		}
		for ii, input := range node.Inputs() {
			if !input.Shape().Equal(node.Shape()) {
				continue
			}
			if !bufferIsDisposable(input) || external.Has(input) || claimed.Has(input) {
				continue
			}
			if readerDependsOnWriter(input, node, consumers) {
				continue
			}
			node.SetInplaceInput(ii)
			claimed.Insert(input)
			break
		}
	})
}

// canRunInplace limits in-place execution to elementwise operations, where
// output element i depends only on input element i.
func canRunInplace(node *graph.Node) bool {
	opType := node.Type()
	return fusableUnary.Has(opType) || fusableBinary.Has(opType) ||
		opType == ops.OpTypeLogicalNot || opType == ops.OpTypeLogicalAnd || opType == ops.OpTypeLogicalOr ||
		opType == ops.OpTypeFusedExpr
}

// bufferIsDisposable reports whether a node's output buffer belongs to the
// executor and may be overwritten once its readers ran. Parameters are
// caller-owned, constants and shared reads alias long-lived storage, and scan
// results may alias the scan's retained history.
func bufferIsDisposable(node *graph.Node) bool {
	switch node.Type() {
	case ops.OpTypeParameter, ops.OpTypeConstant, ops.OpTypeSharedRead,
		ops.OpTypeScan, ops.OpTypeScanOutput:
		return false
	}
	return true
}

// readerDependsOnWriter reports whether some reader of input other than
// writer is reachable from writer through consumer edges. Such a reader could
// never be scheduled before the writer, so overwriting input would corrupt
// its operand.
func readerDependsOnWriter(input, writer *graph.Node, consumers map[*graph.Node][]*graph.Node) bool {
	visited := types.MakeSet[*graph.Node]()
	var reachable func(node *graph.Node) bool
	reachable = func(node *graph.Node) bool {
		if visited.Has(node) {
			return false
		}
		visited.Insert(node)
		for _, consumer := range consumers[node] {
			if consumer == writer {
				continue
			}
			for _, operand := range consumer.Inputs() {
				if operand == input {
					return true
				}
			}
			if reachable(consumer) {
				return true
			}
		}
		return false
	}
	return reachable(writer)
}
