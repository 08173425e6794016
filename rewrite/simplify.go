// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
)

// Simplify returns the algebraic simplification pass: it removes Identity and
// redundant ConvertDType nodes, cancels involutions (Neg of Neg, Log of Exp,
// Exp of Log) and folds operations with a neutral or absorbing constant
// operand (x+0, x*1, x/1, x^1, x*0, x^0, 0-x).
//
// A rule only fires when the replacement keeps the node's shape, so implicit
// scalar broadcasts are never lost. Logged nodes are left alone: they are
// observation points.
func Simplify() Pass { return simplifyPass{} }

type simplifyPass struct{}

func (simplifyPass) Name() string { return "simplify" }

func (simplifyPass) Apply(g *graph.Graph, roots []*graph.Node) (*graph.Graph, []*graph.Node, error) {
	newGraph, newRoots := graph.TransformGraph(g, roots, simplifyNode)
	return newGraph, newRoots, nil
}

// simplifyNode is the TransformFn of the pass; it returns nil for nodes no
// rule applies to. It also runs inside scan step graphs, courtesy of
// graph.TransformGraph's recursion.
func simplifyNode(b *graph.TransformBuilder, node *graph.Node) *graph.Node {
	if node.IsLogged() {
		return nil
	}
	inputs := node.Inputs()

	// keep maps an input over as the node's replacement; valid only if it
	// preserves the node's shape.
	keep := func(replacement *graph.Node) *graph.Node {
		if !replacement.Shape().Equal(node.Shape()) {
			return nil
		}
		return b.Map(replacement)
	}

	switch node.Type() {
	case ops.OpTypeIdentity:
		return keep(inputs[0])

	case ops.OpTypeConvertDType:
		if inputs[0].DType() == node.DType() {
			return keep(inputs[0])
		}

	case ops.OpTypeNeg:
		if inputs[0].Type() == ops.OpTypeNeg {
			return keep(inputs[0].Inputs()[0])
		}

	case ops.OpTypeLog:
		if inputs[0].Type() == ops.OpTypeExp {
			return keep(inputs[0].Inputs()[0])
		}

	case ops.OpTypeExp:
		if inputs[0].Type() == ops.OpTypeLog {
			return keep(inputs[0].Inputs()[0])
		}

	case ops.OpTypeAdd:
		if constIsAll(inputs[1], 0) {
			return keep(inputs[0])
		}
		if constIsAll(inputs[0], 0) {
			return keep(inputs[1])
		}

	case ops.OpTypeSub:
		if constIsAll(inputs[1], 0) {
			return keep(inputs[0])
		}
		if constIsAll(inputs[0], 0) && inputs[1].Shape().Equal(node.Shape()) {
			return graph.Neg(b.Map(inputs[1]))
		}

	case ops.OpTypeMul:
		if constIsAll(inputs[1], 1) {
			return keep(inputs[0])
		}
		if constIsAll(inputs[0], 1) {
			return keep(inputs[1])
		}
		if constIsAll(inputs[0], 0) || constIsAll(inputs[1], 0) {
			return filledLike(b, node, 0)
		}

	case ops.OpTypeDiv:
		if constIsAll(inputs[1], 1) {
			return keep(inputs[0])
		}

	case ops.OpTypePow:
		if constIsAll(inputs[1], 1) {
			return keep(inputs[0])
		}
		if constIsAll(inputs[1], 0) {
			return filledLike(b, node, 1)
		}
	}
	return nil
}

// constIsAll reports whether node is a constant whose elements all equal
// value. Bool constants never match.
func constIsAll(node *graph.Node, value float64) bool {
	t := node.ConstValue()
	if t == nil || !t.DType().IsFloat() && !t.DType().IsInt() {
		return false
	}
	if t.DType() == dtypes.Float16 {
		// The flat representation is the raw bits, a numeric conversion
		// would be meaningless.
		return false
	}
	flat := reflect.ValueOf(t.Flat())
	float64Type := reflect.TypeOf(float64(0))
	if !flat.Type().Elem().ConvertibleTo(float64Type) {
		return false
	}
	for ii := 0; ii < flat.Len(); ii++ {
		if flat.Index(ii).Convert(float64Type).Float() != value {
			return false
		}
	}
	return true
}

// filledLike builds a constant of node's shape filled with value, in the
// destination graph.
func filledLike(b *graph.TransformBuilder, node *graph.Node, value float64) *graph.Node {
	scalar := graph.Scalar(b.Graph(), node.DType(), value)
	if node.IsScalar() {
		return scalar
	}
	return graph.BroadcastToDims(scalar, node.Shape().Dimensions...)
}
