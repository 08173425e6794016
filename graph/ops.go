// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/shapeinference"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// This file holds the graph construction API ("ops"): each function validates
// the operands through package shapeinference and appends a new Node to the
// graph. Errors are thrown (panic) as *shapeinference.TypeShapeError.

// throwOnError panics with the given error, preserving its type for
// exceptions.TryFor at the compile entry point.
func throwOnError(err error) {
	if err != nil {
		panic(err)
	}
}

// Parameter registers an input parameter for the computation Graph. The
// returned node is used both when building the graph and to bind concrete
// values when invoking the compiled function.
//
// If name is empty a name is generated from the parameter's index. Asking
// twice for the same name returns the original node if the shape matches, and
// throws otherwise.
func (g *Graph) Parameter(name string, shape shapes.Shape) *Node {
	g.AssertValid()
	if !shape.Ok() {
		throwOnError(shapeinference.Errorf(ops.OpTypeParameter, "parameter %q has an invalid shape", name))
	}
	handle := ParameterHandle(len(g.parameters))
	if name == "" {
		name = fmt.Sprintf("p#%d", handle)
	}
	if prevHandle, found := g.parameterNameToHandle[name]; found {
		node := g.parameters[prevHandle]
		if !node.shape.Equal(shape) {
			throwOnError(shapeinference.Errorf(ops.OpTypeParameter,
				"parameter %q already exists with shape %s, requested %s", name, node.shape, shape))
		}
		return node
	}
	node := g.newNode(ops.OpTypeParameter, shape.Clone(), nil, &parameterNode{name: name, handle: handle})
	g.parameters = append(g.parameters, node)
	g.parameterNameToHandle[name] = handle
	return node
}

// ConstTensor creates a constant node with the given tensor value. The tensor
// is shared, not copied: it must not be mutated afterward.
func ConstTensor(g *Graph, t *tensors.Tensor) *Node {
	g.AssertValid()
	if t == nil {
		exceptions.Panicf("ConstTensor: tensor is nil")
	}
	return g.newNode(ops.OpTypeConstant, t.Shape(), nil, t)
}

// Const creates a constant node converting the given Go value (scalar or
// nested slices) to a tensor. See tensors.FromAnyValue.
func Const(g *Graph, value any) *Node {
	return ConstTensor(g, tensors.FromAnyValue(value))
}

// ConstFlat creates a constant node from flat (row-major) data and the target
// dimensions. The flat slice is shared, not copied.
func ConstFlat[T dtypes.Supported](g *Graph, flat []T, dimensions ...int) *Node {
	return ConstTensor(g, tensors.FromFlatAndDimensions(flat, dimensions...))
}

// Scalar returns a constant scalar node of the given dtype. Values are cached
// per graph, so repeated uses of the same scalar share one node.
func Scalar(g *Graph, dtype dtypes.DType, value float64) *Node {
	return g.getScalarConst(dtype, value)
}

// ScalarZero returns the cached constant 0 of the given dtype.
func ScalarZero(g *Graph, dtype dtypes.DType) *Node { return Scalar(g, dtype, 0) }

// ScalarOne returns the cached constant 1 of the given dtype.
func ScalarOne(g *Graph, dtype dtypes.DType) *Node { return Scalar(g, dtype, 1) }

// scalarCache maps dtype and value to a previously created constant node.
type scalarCache map[dtypes.DType]map[float64]*Node

func (g *Graph) getScalarConst(dtype dtypes.DType, value float64) *Node {
	dtypeMap, found := g.scalars[dtype]
	if !found {
		dtypeMap = make(map[float64]*Node)
		g.scalars[dtype] = dtypeMap
	}
	if node, found := dtypeMap[value]; found {
		return node
	}
	node := Const(g, shapes.CastAsDType(value, dtype))
	dtypeMap[value] = node
	return node
}

// addUnaryOp adds a standard (shape preserving) unary op.
func addUnaryOp(opType ops.OpType, operand *Node) *Node {
	operand.AssertValid()
	shape, err := shapeinference.UnaryOp(opType, operand.shape)
	throwOnError(err)
	return operand.graph.newNode(opType, shape, []*Node{operand}, nil)
}

// addBinaryOp adds a standard binary op, with implicit scalar broadcasting.
func addBinaryOp(opType ops.OpType, lhs, rhs *Node) *Node {
	lhs.AssertValid()
	rhs.AssertValid()
	shape, err := shapeinference.BinaryOp(opType, lhs.shape, rhs.shape)
	throwOnError(err)
	return lhs.graph.newNode(opType, shape, []*Node{lhs, rhs}, nil)
}

// addComparisonOp adds a comparison op, returning a Bool node.
func addComparisonOp(opType ops.OpType, lhs, rhs *Node) *Node {
	lhs.AssertValid()
	rhs.AssertValid()
	shape, err := shapeinference.ComparisonOp(opType, lhs.shape, rhs.shape)
	throwOnError(err)
	return lhs.graph.newNode(opType, shape, []*Node{lhs, rhs}, nil)
}

// Identity returns a node that outputs its input unchanged.
func Identity(x *Node) *Node { return addUnaryOp(ops.OpTypeIdentity, x) }

// Neg returns -x.
func Neg(x *Node) *Node { return addUnaryOp(ops.OpTypeNeg, x) }

// Abs returns |x|.
func Abs(x *Node) *Node { return addUnaryOp(ops.OpTypeAbs, x) }

// Sign returns -1, 0 or +1 per element.
func Sign(x *Node) *Node { return addUnaryOp(ops.OpTypeSign, x) }

// Exp returns e^x.
func Exp(x *Node) *Node { return addUnaryOp(ops.OpTypeExp, x) }

// Log returns the natural logarithm of x.
func Log(x *Node) *Node {
	x.graph.checkConstDomain(ops.OpTypeLog, x, func(v float64) bool { return v <= 0 },
		"Log of a non-positive constant")
	return addUnaryOp(ops.OpTypeLog, x)
}

// Sqrt returns the square root of x.
func Sqrt(x *Node) *Node {
	x.graph.checkConstDomain(ops.OpTypeSqrt, x, func(v float64) bool { return v < 0 },
		"Sqrt of a negative constant")
	return addUnaryOp(ops.OpTypeSqrt, x)
}

// Tanh returns the hyperbolic tangent of x.
func Tanh(x *Node) *Node { return addUnaryOp(ops.OpTypeTanh, x) }

// Logistic returns 1/(1+e^-x), aka. the sigmoid of x.
func Logistic(x *Node) *Node { return addUnaryOp(ops.OpTypeLogistic, x) }

// LogicalNot returns !x for Bool nodes.
func LogicalNot(x *Node) *Node { return addUnaryOp(ops.OpTypeLogicalNot, x) }

// Add returns lhs+rhs. Scalars broadcast implicitly.
func Add(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeAdd, lhs, rhs) }

// Sub returns lhs-rhs. Scalars broadcast implicitly.
func Sub(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeSub, lhs, rhs) }

// Mul returns lhs*rhs. Scalars broadcast implicitly.
func Mul(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeMul, lhs, rhs) }

// Div returns lhs/rhs. Scalars broadcast implicitly.
func Div(lhs, rhs *Node) *Node {
	lhs.graph.checkConstDomain(ops.OpTypeDiv, rhs, func(v float64) bool { return v == 0 },
		"division by a constant zero")
	return addBinaryOp(ops.OpTypeDiv, lhs, rhs)
}

// Pow returns lhs^rhs. Scalars broadcast implicitly.
func Pow(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypePow, lhs, rhs) }

// Rem returns the remainder of lhs/rhs.
func Rem(lhs, rhs *Node) *Node {
	lhs.graph.checkConstDomain(ops.OpTypeRem, rhs, func(v float64) bool { return v == 0 },
		"remainder by a constant zero")
	return addBinaryOp(ops.OpTypeRem, lhs, rhs)
}

// Max returns the elementwise maximum of lhs and rhs.
func Max(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeMax, lhs, rhs) }

// Min returns the elementwise minimum of lhs and rhs.
func Min(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeMin, lhs, rhs) }

// LogicalAnd returns lhs&&rhs for Bool nodes.
func LogicalAnd(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeLogicalAnd, lhs, rhs) }

// LogicalOr returns lhs||rhs for Bool nodes.
func LogicalOr(lhs, rhs *Node) *Node { return addBinaryOp(ops.OpTypeLogicalOr, lhs, rhs) }

// Equal returns lhs==rhs as Bool.
func Equal(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeEqual, lhs, rhs) }

// NotEqual returns lhs!=rhs as Bool.
func NotEqual(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeNotEqual, lhs, rhs) }

// GreaterThan returns lhs>rhs as Bool.
func GreaterThan(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeGreaterThan, lhs, rhs) }

// GreaterOrEqual returns lhs>=rhs as Bool.
func GreaterOrEqual(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeGreaterOrEqual, lhs, rhs) }

// LessThan returns lhs<rhs as Bool.
func LessThan(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeLessThan, lhs, rhs) }

// LessOrEqual returns lhs<=rhs as Bool.
func LessOrEqual(lhs, rhs *Node) *Node { return addComparisonOp(ops.OpTypeLessOrEqual, lhs, rhs) }

// Where returns onTrue where cond is true, and onFalse elsewhere. The
// condition may be a scalar, selecting one branch whole.
func Where(cond, onTrue, onFalse *Node) *Node {
	cond.AssertValid()
	onTrue.AssertValid()
	onFalse.AssertValid()
	shape, err := shapeinference.WhereOp(cond.shape, onTrue.shape, onFalse.shape)
	throwOnError(err)
	return cond.graph.newNode(ops.OpTypeWhere, shape, []*Node{cond, onTrue, onFalse}, nil)
}

// ConvertDType converts x to the given dtype. A no-op if x is already of the
// given dtype.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	x.AssertValid()
	if x.DType() == dtype {
		return x
	}
	shape, err := shapeinference.ConvertDTypeOp(x.shape, dtype)
	throwOnError(err)
	return x.graph.newNode(ops.OpTypeConvertDType, shape, []*Node{x}, dtype)
}

// reduceNode is the data attached to reduction nodes.
type reduceNode struct {
	axes []int
}

func addReduceOp(opType ops.OpType, x *Node, axes []int) *Node {
	x.AssertValid()
	if len(axes) == 0 {
		axes = make([]int, x.Rank())
		for axis := range axes {
			axes[axis] = axis
		}
	} else {
		normalized := make([]int, len(axes))
		for ii, axis := range axes {
			normalized[ii] = shapes.AdjustAxis(x.shape, axis)
		}
		axes = normalized
	}
	shape, err := shapeinference.ReduceOp(opType, x.shape, axes)
	throwOnError(err)
	return x.graph.newNode(opType, shape, []*Node{x}, &reduceNode{axes: axes})
}

// ReduceSum sums x over the given axes. If no axis is given, it reduces over
// all axes, returning a scalar. Negative axes count from the end.
func ReduceSum(x *Node, axes ...int) *Node { return addReduceOp(ops.OpTypeReduceSum, x, axes) }

// ReduceProd multiplies x over the given axes (all axes if none given).
func ReduceProd(x *Node, axes ...int) *Node { return addReduceOp(ops.OpTypeReduceProd, x, axes) }

// ReduceMax takes the maximum of x over the given axes (all axes if none given).
func ReduceMax(x *Node, axes ...int) *Node { return addReduceOp(ops.OpTypeReduceMax, x, axes) }

// ReduceMin takes the minimum of x over the given axes (all axes if none given).
func ReduceMin(x *Node, axes ...int) *Node { return addReduceOp(ops.OpTypeReduceMin, x, axes) }

// Reshape returns x reshaped to the given dimensions. The total size must be
// preserved.
func Reshape(x *Node, dimensions ...int) *Node {
	x.AssertValid()
	shape, err := shapeinference.ReshapeOp(x.shape, dimensions)
	throwOnError(err)
	return x.graph.newNode(ops.OpTypeReshape, shape, []*Node{x}, nil)
}

// sliceNode is the data attached to Slice nodes.
type sliceNode struct {
	starts, limits []int
}

// Slice extracts the range [starts[axis]:limits[axis]] on every axis of x
// (stride 1).
func Slice(x *Node, starts, limits []int) *Node {
	x.AssertValid()
	shape, err := shapeinference.SliceOp(x.shape, starts, limits)
	throwOnError(err)
	return x.graph.newNode(ops.OpTypeSlice, shape, []*Node{x}, &sliceNode{starts: starts, limits: limits})
}

// SliceLeading extracts rows [start:limit] of the leading axis of x, keeping
// the other axes whole.
func SliceLeading(x *Node, start, limit int) *Node {
	x.AssertValid()
	starts := make([]int, x.Rank())
	limits := make([]int, x.Rank())
	copy(limits, x.shape.Dimensions)
	starts[0] = start
	limits[0] = limit
	return Slice(x, starts, limits)
}

// concatenateNode is the data attached to Concatenate nodes.
type concatenateNode struct {
	axis int
}

// Concatenate joins the operands along the given axis. Negative axis values
// count from the end.
func Concatenate(axis int, operands ...*Node) *Node {
	if len(operands) == 0 {
		exceptions.Panicf("Concatenate: requires at least one operand")
	}
	for _, operand := range operands {
		operand.AssertValid()
	}
	g := operands[0].graph
	axis = shapes.AdjustAxis(operands[0].shape, axis)
	operandShapes := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		operandShapes[ii] = operand.shape
	}
	shape, err := shapeinference.ConcatenateOp(axis, operandShapes)
	throwOnError(err)
	return g.newNode(ops.OpTypeConcatenate, shape, operands, &concatenateNode{axis: axis})
}

// BroadcastToDims broadcasts x to the given dimensions: x must be a scalar,
// or have the same rank with each axis either matching or of dimension 1.
func BroadcastToDims(x *Node, dimensions ...int) *Node {
	x.AssertValid()
	if x.shape.EqualDimensions(shapes.Make(x.DType(), dimensions...)) {
		return x
	}
	shape, err := shapeinference.BroadcastToDimsOp(x.shape, dimensions)
	throwOnError(err)
	return x.graph.newNode(ops.OpTypeBroadcastToDims, shape, []*Node{x}, nil)
}

// iotaNode is the data attached to Iota nodes.
type iotaNode struct {
	axis int
}

// Iota creates a node of the given shape whose values count 0, 1, 2, ...
// along the given axis.
func Iota(g *Graph, shape shapes.Shape, iotaAxis int) *Node {
	g.AssertValid()
	iotaAxis = shapes.AdjustAxis(shape, iotaAxis)
	outShape, err := shapeinference.IotaOp(shape.DType, shape.Dimensions, iotaAxis)
	throwOnError(err)
	return g.newNode(ops.OpTypeIota, outShape, nil, &iotaNode{axis: iotaAxis})
}

// IotaFull creates a 1D node with values 0, 1, ..., n-1.
func IotaFull(g *Graph, dtype dtypes.DType, n int) *Node {
	return Iota(g, shapes.Make(dtype, n), 0)
}

// ReduceAxes returns the (normalized) axes a reduction operates over. It
// panics if the node is not a reduction.
func (n *Node) ReduceAxes() []int {
	n.AssertValid()
	data, ok := n.data.(*reduceNode)
	if !ok {
		exceptions.Panicf("node %s is not a reduction node", n)
	}
	return data.axes
}

// SliceBounds returns the per-axis starts and limits of a Slice node. It
// panics if the node is not a Slice.
func (n *Node) SliceBounds() (starts, limits []int) {
	n.AssertValid()
	data, ok := n.data.(*sliceNode)
	if !ok {
		exceptions.Panicf("node %s is not a Slice node", n)
	}
	return data.starts, data.limits
}

// ConcatAxis returns the (normalized) axis a Concatenate node joins on. It
// panics if the node is not a Concatenate.
func (n *Node) ConcatAxis() int {
	n.AssertValid()
	data, ok := n.data.(*concatenateNode)
	if !ok {
		exceptions.Panicf("node %s is not a Concatenate node", n)
	}
	return data.axis
}

// IotaAxis returns the (normalized) axis an Iota node counts along. It panics
// if the node is not an Iota.
func (n *Node) IotaAxis() int {
	n.AssertValid()
	data, ok := n.data.(*iotaNode)
	if !ok {
		exceptions.Panicf("node %s is not an Iota node", n)
	}
	return data.axis
}

// FusedProgram returns the program of a FusedExpr node. It panics if the node
// is not a FusedExpr.
func (n *Node) FusedProgram() *FusedProgram {
	n.AssertValid()
	data, ok := n.data.(*FusedProgram)
	if !ok {
		exceptions.Panicf("node %s is not a FusedExpr node", n)
	}
	return data
}

// checkConstDomain implements the graph's TestValuePolicy: if operand is a
// constant of a numeric dtype, check whether any element trips the predicate
// and warn or throw according to the policy.
func (g *Graph) checkConstDomain(op ops.OpType, operand *Node, bad func(v float64) bool, message string) {
	if g.testValues == TestValueOff || g.testValues == TestValueIgnore {
		return
	}
	t := operand.ConstValue()
	if t == nil || t.DType() == dtypes.Float16 || !t.DType().IsFloat() && !t.DType().IsInt() {
		return
	}
	flatValue := reflect.ValueOf(t.Flat())
	float64Type := reflect.TypeOf(float64(0))
	if !flatValue.Type().Elem().ConvertibleTo(float64Type) {
		return
	}
	for ii := 0; ii < flatValue.Len(); ii++ {
		v := flatValue.Index(ii).Convert(float64Type).Float()
		if !bad(v) {
			continue
		}
		if g.testValues == TestValueWarn {
			klog.Warningf("graph %q: %s: %s (element #%d of %s)", g.name, op, message, ii, t.Shape())
			return
		}
		throwOnError(shapeinference.Errorf(op, "%s (element #%d of %s)", message, ii, t.Shape()))
	}
}
