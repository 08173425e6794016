// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the shape resulting from each operation,
// and validates that the operation's input dtypes and shapes are compatible
// with its signature.
//
// It is used by package graph at node construction time: no execution happens
// there, but every shape and dtype is checked and resolved, so errors are
// reported where the offending expression is built, and not later during
// execution.
//
// All validation failures are returned as *TypeShapeError.
package shapeinference

import (
	"fmt"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types"
	"github.com/gomlx/symgraph/types/shapes"
)

// TypeShapeError reports an input dtype or shape incompatible with an
// operation's signature, detected at graph construction time.
type TypeShapeError struct {
	Op      ops.OpType
	Message string
}

// Error implements the error interface.
func (e *TypeShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Errorf creates a *TypeShapeError with a formatted message.
func Errorf(op ops.OpType, format string, args ...any) *TypeShapeError {
	return &TypeShapeError{Op: op, Message: fmt.Sprintf(format, args...)}
}

var (
	// BooleanOperations operate only on Bool inputs.
	BooleanOperations = types.SetWith(
		ops.OpTypeLogicalAnd,
		ops.OpTypeLogicalOr,
		ops.OpTypeLogicalNot,
	)

	// NumberOperations can take any number dtype as input.
	NumberOperations = types.SetWith(
		ops.OpTypeAdd,
		ops.OpTypeSub,
		ops.OpTypeMul,
		ops.OpTypeDiv,
		ops.OpTypePow,
		ops.OpTypeRem,
		ops.OpTypeMax,
		ops.OpTypeMin,
		ops.OpTypeNeg,
		ops.OpTypeAbs,
		ops.OpTypeSign,
		ops.OpTypeEqual,
		ops.OpTypeNotEqual,
		ops.OpTypeGreaterThan,
		ops.OpTypeGreaterOrEqual,
		ops.OpTypeLessThan,
		ops.OpTypeLessOrEqual,
		ops.OpTypeReduceSum,
		ops.OpTypeReduceProd,
		ops.OpTypeReduceMax,
		ops.OpTypeReduceMin,
	)

	// FloatOperations operate only on float dtypes.
	FloatOperations = types.SetWith(
		ops.OpTypeExp,
		ops.OpTypeLog,
		ops.OpTypeSqrt,
		ops.OpTypeTanh,
		ops.OpTypeLogistic,
	)

	// StandardUnaryOperations have a single operand and preserve its shape.
	StandardUnaryOperations = types.SetWith(
		ops.OpTypeIdentity,
		ops.OpTypeNeg,
		ops.OpTypeAbs,
		ops.OpTypeSign,
		ops.OpTypeExp,
		ops.OpTypeLog,
		ops.OpTypeSqrt,
		ops.OpTypeTanh,
		ops.OpTypeLogistic,
		ops.OpTypeLogicalNot,
	)

	// StandardBinaryOperations have lhs and rhs operands of the same dtype,
	// with implicit broadcasting of scalars.
	StandardBinaryOperations = types.SetWith(
		ops.OpTypeAdd,
		ops.OpTypeSub,
		ops.OpTypeMul,
		ops.OpTypeDiv,
		ops.OpTypePow,
		ops.OpTypeRem,
		ops.OpTypeMax,
		ops.OpTypeMin,
		ops.OpTypeLogicalAnd,
		ops.OpTypeLogicalOr,
	)

	// ComparisonOperations take two operands of the same dtype and return Bool.
	ComparisonOperations = types.SetWith(
		ops.OpTypeEqual,
		ops.OpTypeNotEqual,
		ops.OpTypeGreaterThan,
		ops.OpTypeGreaterOrEqual,
		ops.OpTypeLessThan,
		ops.OpTypeLessOrEqual,
	)

	// ReduceOperations reduce the operand over a set of axes.
	ReduceOperations = types.SetWith(
		ops.OpTypeReduceSum,
		ops.OpTypeReduceProd,
		ops.OpTypeReduceMax,
		ops.OpTypeReduceMin,
	)
)

// checkOperandDType validates the dtype is acceptable for the operation class.
func checkOperandDType(op ops.OpType, dtype dtypes.DType) error {
	if BooleanOperations.Has(op) && dtype != dtypes.Bool {
		return Errorf(op, "operation requires Bool operands, got %s", dtype)
	}
	if FloatOperations.Has(op) && !dtype.IsFloat() {
		return Errorf(op, "operation requires float operands, got %s", dtype)
	}
	if NumberOperations.Has(op) && (dtype == dtypes.Bool || dtype == dtypes.InvalidDType) {
		return Errorf(op, "operation requires numeric operands, got %s", dtype)
	}
	return nil
}

// UnaryOp validates and returns the output shape of the standard unary
// operations (shape preserving).
func UnaryOp(op ops.OpType, operand shapes.Shape) (shapes.Shape, error) {
	if !StandardUnaryOperations.Has(op) {
		return shapes.Invalid(), Errorf(op, "not a standard unary operation")
	}
	if !operand.Ok() {
		return shapes.Invalid(), Errorf(op, "invalid operand shape")
	}
	if err := checkOperandDType(op, operand.DType); err != nil {
		return shapes.Invalid(), err
	}
	return operand.Clone(), nil
}

// binaryShape resolves the output dimensions of a binary op: operands must
// have the same dtype, and either equal dimensions or one of them a scalar
// (which broadcasts).
func binaryShape(op ops.OpType, lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if !lhs.Ok() || !rhs.Ok() {
		return shapes.Invalid(), Errorf(op, "invalid operand shape")
	}
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), Errorf(op, "operands have different dtypes: %s and %s", lhs, rhs)
	}
	if lhs.IsScalar() {
		return rhs.Clone(), nil
	}
	if rhs.IsScalar() {
		return lhs.Clone(), nil
	}
	if !lhs.EqualDimensions(rhs) {
		return shapes.Invalid(), Errorf(op,
			"operands have incompatible dimensions: %s and %s (only scalars broadcast implicitly)", lhs, rhs)
	}
	return lhs.Clone(), nil
}

// BinaryOp validates and returns the output shape of the standard binary
// operations.
func BinaryOp(op ops.OpType, lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if !StandardBinaryOperations.Has(op) {
		return shapes.Invalid(), Errorf(op, "not a standard binary operation")
	}
	if err := checkOperandDType(op, lhs.DType); err != nil {
		return shapes.Invalid(), err
	}
	return binaryShape(op, lhs, rhs)
}

// ComparisonOp validates and returns the output shape of a comparison: the
// operands' resolved shape with dtype Bool.
func ComparisonOp(op ops.OpType, lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if !ComparisonOperations.Has(op) {
		return shapes.Invalid(), Errorf(op, "not a comparison operation")
	}
	shape, err := binaryShape(op, lhs, rhs)
	if err != nil {
		return shapes.Invalid(), err
	}
	shape.DType = dtypes.Bool
	return shape, nil
}

// WhereOp validates and returns the output shape of Where(cond, onTrue, onFalse).
// The condition must be Bool, and either a scalar or match the branches'
// dimensions; the branches must agree in dtype and broadcast like a binary op.
func WhereOp(cond, onTrue, onFalse shapes.Shape) (shapes.Shape, error) {
	const op = ops.OpTypeWhere
	if cond.DType != dtypes.Bool {
		return shapes.Invalid(), Errorf(op, "condition must be Bool, got %s", cond)
	}
	shape, err := binaryShape(op, onTrue, onFalse)
	if err != nil {
		return shapes.Invalid(), err
	}
	if !cond.IsScalar() && !cond.EqualDimensions(shape) {
		return shapes.Invalid(), Errorf(op, "condition dimensions %s don't match branches %s", cond, shape)
	}
	return shape, nil
}

// ReduceOp validates and returns the output shape of a reduction over the
// given axes (already normalized to be non-negative). The reduced axes are
// removed from the shape; reducing over all axes (or axes==nil) yields a
// scalar.
func ReduceOp(op ops.OpType, operand shapes.Shape, axes []int) (shapes.Shape, error) {
	if !ReduceOperations.Has(op) {
		return shapes.Invalid(), Errorf(op, "not a reduce operation")
	}
	if err := checkOperandDType(op, operand.DType); err != nil {
		return shapes.Invalid(), err
	}
	if len(axes) == 0 {
		return shapes.Shape{DType: operand.DType}, nil
	}
	seen := types.MakeSet[int](len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			return shapes.Invalid(), Errorf(op, "reduce axis %d out of range for shape %s", axis, operand)
		}
		if seen.Has(axis) {
			return shapes.Invalid(), Errorf(op, "duplicate reduce axis %d", axis)
		}
		seen.Insert(axis)
	}
	newDims := make([]int, 0, operand.Rank()-len(axes))
	for axis, dim := range operand.Dimensions {
		if !seen.Has(axis) {
			newDims = append(newDims, dim)
		}
	}
	return shapes.Make(operand.DType, newDims...), nil
}

// ReshapeOp validates the total size is preserved and returns the new shape.
func ReshapeOp(operand shapes.Shape, dimensions []int) (shapes.Shape, error) {
	newShape := shapes.Make(operand.DType, dimensions...)
	if newShape.Size() != operand.Size() {
		return shapes.Invalid(), Errorf(ops.OpTypeReshape,
			"cannot reshape %s (%d elements) to dimensions %v (%d elements)",
			operand, operand.Size(), dimensions, newShape.Size())
	}
	return newShape, nil
}

// SliceOp validates starts/limits (one per axis, stride 1) and returns the
// sliced shape.
func SliceOp(operand shapes.Shape, starts, limits []int) (shapes.Shape, error) {
	const op = ops.OpTypeSlice
	if len(starts) != operand.Rank() || len(limits) != operand.Rank() {
		return shapes.Invalid(), Errorf(op,
			"starts (%d) and limits (%d) must have one value per axis of %s", len(starts), len(limits), operand)
	}
	newDims := make([]int, operand.Rank())
	for axis := range starts {
		if starts[axis] < 0 || limits[axis] > operand.Dimensions[axis] || starts[axis] >= limits[axis] {
			return shapes.Invalid(), Errorf(op,
				"invalid slice [%d:%d] on axis %d of shape %s", starts[axis], limits[axis], axis, operand)
		}
		newDims[axis] = limits[axis] - starts[axis]
	}
	return shapes.Make(operand.DType, newDims...), nil
}

// ConcatenateOp validates the operands and returns the concatenated shape
// along the given (non-negative) axis.
func ConcatenateOp(axis int, operands []shapes.Shape) (shapes.Shape, error) {
	const op = ops.OpTypeConcatenate
	if len(operands) == 0 {
		return shapes.Invalid(), Errorf(op, "requires at least one operand")
	}
	first := operands[0]
	if axis < 0 || axis >= first.Rank() {
		return shapes.Invalid(), Errorf(op, "axis %d out of range for shape %s", axis, first)
	}
	newDims := slices.Clone(first.Dimensions)
	for ii, operand := range operands[1:] {
		if operand.DType != first.DType || operand.Rank() != first.Rank() {
			return shapes.Invalid(), Errorf(op, "operand #%d (%s) incompatible with %s", ii+1, operand, first)
		}
		for otherAxis := range operand.Dimensions {
			if otherAxis != axis && operand.Dimensions[otherAxis] != first.Dimensions[otherAxis] {
				return shapes.Invalid(), Errorf(op,
					"operand #%d (%s) differs from %s on axis %d", ii+1, operand, first, otherAxis)
			}
		}
		newDims[axis] += operand.Dimensions[axis]
	}
	return shapes.Make(first.DType, newDims...), nil
}

// BroadcastToDimsOp validates and returns the broadcast shape: the operand
// must be a scalar, or have the same rank with each axis either matching or
// of dimension 1.
func BroadcastToDimsOp(operand shapes.Shape, dimensions []int) (shapes.Shape, error) {
	const op = ops.OpTypeBroadcastToDims
	newShape := shapes.Make(operand.DType, dimensions...)
	if operand.IsScalar() {
		return newShape, nil
	}
	if operand.Rank() != newShape.Rank() {
		return shapes.Invalid(), Errorf(op,
			"operand %s must be a scalar or have rank %d to broadcast to %v", operand, newShape.Rank(), dimensions)
	}
	for axis, dim := range operand.Dimensions {
		if dim != 1 && dim != dimensions[axis] {
			return shapes.Invalid(), Errorf(op,
				"axis %d of %s is not broadcastable to %v", axis, operand, dimensions)
		}
	}
	return newShape, nil
}

// ConvertDTypeOp validates and returns the operand's shape with the new dtype.
func ConvertDTypeOp(operand shapes.Shape, dtype dtypes.DType) (shapes.Shape, error) {
	if dtype == dtypes.InvalidDType {
		return shapes.Invalid(), Errorf(ops.OpTypeConvertDType, "invalid target dtype")
	}
	shape := operand.Clone()
	shape.DType = dtype
	return shape, nil
}

// IotaOp validates and returns the shape of an Iota along the given axis.
func IotaOp(dtype dtypes.DType, dimensions []int, iotaAxis int) (shapes.Shape, error) {
	const op = ops.OpTypeIota
	shape := shapes.Make(dtype, dimensions...)
	if dtype == dtypes.Bool || dtype == dtypes.InvalidDType {
		return shapes.Invalid(), Errorf(op, "requires a numeric dtype, got %s", dtype)
	}
	if iotaAxis < 0 || iotaAxis >= shape.Rank() {
		return shapes.Invalid(), Errorf(op, "axis %d out of range for dimensions %v", iotaAxis, dimensions)
	}
	return shape, nil
}
