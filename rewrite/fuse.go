// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types"
)

// Fuse returns the elementwise fusion pass: chains of elementwise operations
// over one common shape and dtype are collapsed into single FusedExpr nodes,
// evaluated in one pass over the data instead of one materialized buffer per
// operation.
//
// A node joins the chain of its consumer only when every one of its consumers
// is part of the chain, so no value is ever computed twice. Scalar operands
// (typically constants) stay outside the chain and are broadcast by the fused
// kernel. Fusion also applies inside scan step graphs, where it pays off once
// per step.
func Fuse() Pass { return fusePass{} }

type fusePass struct{}

func (fusePass) Name() string { return "fuse" }

// fusableUnary and fusableBinary are the operations a FusedExpr can evaluate
// elementwise. Comparisons and Where are excluded: they change or mix dtypes.
var (
	fusableUnary = types.SetWith(
		ops.OpTypeNeg,
		ops.OpTypeAbs,
		ops.OpTypeSign,
		ops.OpTypeExp,
		ops.OpTypeLog,
		ops.OpTypeSqrt,
		ops.OpTypeTanh,
		ops.OpTypeLogistic,
	)
	fusableBinary = types.SetWith(
		ops.OpTypeAdd,
		ops.OpTypeSub,
		ops.OpTypeMul,
		ops.OpTypeDiv,
		ops.OpTypePow,
		ops.OpTypeRem,
		ops.OpTypeMax,
		ops.OpTypeMin,
	)
)

func fusable(node *graph.Node) bool {
	if node.IsLogged() {
		return false
	}
	return fusableUnary.Has(node.Type()) || fusableBinary.Has(node.Type())
}

// fuseGroup is one chain to be collapsed: root is the last operation, the one
// whose value leaves the chain.
type fuseGroup struct {
	root    *graph.Node
	members types.Set[*graph.Node]
}

func (fusePass) Apply(g *graph.Graph, roots []*graph.Node) (*graph.Graph, []*graph.Node, error) {
	groups := make(map[*graph.Node]*fuseGroup)
	collectGroups(g, roots, groups)
	newGraph, newRoots := graph.TransformGraph(g, roots, func(b *graph.TransformBuilder, node *graph.Node) *graph.Node {
		group := groups[node]
		if group == nil || group.root != node {
			return nil
		}
		program, extInputs := group.compile()
		mapped := make([]*graph.Node, len(extInputs))
		for ii, input := range extInputs {
			mapped[ii] = b.Map(input)
		}
		return graph.FusedExpr(program, mapped...)
	})
	return newGraph, newRoots, nil
}

// collectGroups finds the fusion groups of one graph and recurses into the
// step graphs of its Scan nodes. Groups of all (sub)graphs land in the same
// map: node pointers are unique across graphs.
func collectGroups(g *graph.Graph, roots []*graph.Node, groups map[*graph.Node]*fuseGroup) {
	// External references (outputs, update values) must stay materialized: a
	// node feeding one can only be a group's root, never an interior member.
	external := types.MakeSet[*graph.Node](len(roots))
	for _, root := range roots {
		external.Insert(root)
	}
	consumers := make(map[*graph.Node][]*graph.Node)
	var nodes []*graph.Node
	g.Nodes(func(node *graph.Node) {
		nodes = append(nodes, node)
		for _, input := range node.Inputs() {
			consumers[input] = append(consumers[input], node)
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
			collectGroups(spec.Step, stepRoots, groups)
		}
	})

	// Grow groups from the latest nodes backward, so each chain is rooted at
	// its last operation.
	for ii := len(nodes) - 1; ii >= 0; ii-- {
		node := nodes[ii]
		if !fusable(node) || groups[node] != nil {
			continue
		}
		group := &fuseGroup{root: node, members: types.SetWith(node)}
		worklist := []*graph.Node{node}
		for len(worklist) > 0 {
			member := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, input := range member.Inputs() {
				if group.members.Has(input) || !fusable(input) || external.Has(input) {
					continue
				}
				if input.DType() != group.root.DType() || !input.Shape().EqualDimensions(group.root.Shape()) {
					continue
				}
				if !allIn(consumers[input], group.members) {
					continue
				}
				group.members.Insert(input)
				worklist = append(worklist, input)
			}
		}
		if len(group.members) < 2 {
			continue
		}
		for member := range group.members {
			groups[member] = group
		}
	}
}

func allIn(nodes []*graph.Node, set types.Set[*graph.Node]) bool {
	for _, node := range nodes {
		if !set.Has(node) {
			return false
		}
	}
	return true
}

// compile linearizes the group into a FusedProgram: a post-order walk from
// the root assigns registers to the external inputs first, then one
// instruction per member.
func (group *fuseGroup) compile() (*graph.FusedProgram, []*graph.Node) {
	var extInputs []*graph.Node
	var order []*graph.Node
	seen := types.MakeSet[*graph.Node](len(group.members))
	var visit func(node *graph.Node)
	visit = func(node *graph.Node) {
		if seen.Has(node) {
			return
		}
		seen.Insert(node)
		if !group.members.Has(node) {
			extInputs = append(extInputs, node)
			return
		}
		for _, input := range node.Inputs() {
			visit(input)
		}
		order = append(order, node)
	}
	visit(group.root)

	registers := make(map[*graph.Node]int, len(extInputs)+len(order))
	for ii, input := range extInputs {
		registers[input] = ii
	}
	program := &graph.FusedProgram{NumInputs: len(extInputs)}
	for ii, member := range order {
		registers[member] = len(extInputs) + ii
		instr := graph.FusedInstruction{Op: member.Type(), Arg0: registers[member.Inputs()[0]]}
		if len(member.Inputs()) > 1 {
			instr.Arg1 = registers[member.Inputs()[1]]
		}
		program.Instructions = append(program.Instructions, instr)
	}
	return program, extInputs
}
