// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/tensors"
)

// kernelFn computes one node's value. The output tensor is preallocated with
// the node's shape; for in-place nodes it may alias an input, which is safe
// for all elementwise kernels (element i of the output only reads element i
// of the inputs).
type kernelFn func(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error

// kernels maps each op type to its kernel. Populated by the init functions of
// the kernel files; Scan and ScanOutput are handled by the executor directly.
var kernels [ops.OpTypeLast]kernelFn

func init() {
	for _, opType := range []ops.OpType{
		ops.OpTypeIdentity, ops.OpTypeNeg, ops.OpTypeAbs, ops.OpTypeSign,
		ops.OpTypeExp, ops.OpTypeLog, ops.OpTypeSqrt, ops.OpTypeTanh,
		ops.OpTypeLogistic, ops.OpTypeLogicalNot,
	} {
		kernels[opType] = execUnary
	}
	for _, opType := range []ops.OpType{
		ops.OpTypeAdd, ops.OpTypeSub, ops.OpTypeMul, ops.OpTypeDiv,
		ops.OpTypePow, ops.OpTypeRem, ops.OpTypeMax, ops.OpTypeMin,
		ops.OpTypeLogicalAnd, ops.OpTypeLogicalOr,
	} {
		kernels[opType] = execBinary
	}
	for _, opType := range []ops.OpType{
		ops.OpTypeEqual, ops.OpTypeNotEqual, ops.OpTypeGreaterThan,
		ops.OpTypeGreaterOrEqual, ops.OpTypeLessThan, ops.OpTypeLessOrEqual,
	} {
		kernels[opType] = execComparison
	}
	kernels[ops.OpTypeWhere] = execWhere
}

// unaryFnFloat returns the elementwise function of a unary op over floats.
func unaryFnFloat[T podFloatConstraints](op ops.OpType) func(T) T {
	switch op {
	case ops.OpTypeIdentity:
		return func(v T) T { return v }
	case ops.OpTypeNeg:
		return func(v T) T { return -v }
	case ops.OpTypeAbs:
		return func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	case ops.OpTypeSign:
		return func(v T) T {
			if v > 0 {
				return 1
			} else if v < 0 {
				return -1
			}
			return 0
		}
	case ops.OpTypeExp:
		return func(v T) T { return T(math.Exp(float64(v))) }
	case ops.OpTypeLog:
		return func(v T) T { return T(math.Log(float64(v))) }
	case ops.OpTypeSqrt:
		return func(v T) T { return T(math.Sqrt(float64(v))) }
	case ops.OpTypeTanh:
		return func(v T) T { return T(math.Tanh(float64(v))) }
	case ops.OpTypeLogistic:
		return func(v T) T { return T(1 / (1 + math.Exp(-float64(v)))) }
	}
	return nil
}

// unaryFnInt returns the elementwise function of a unary op over signed
// integers.
func unaryFnInt[T int8 | int16 | int32 | int64](op ops.OpType) func(T) T {
	switch op {
	case ops.OpTypeIdentity:
		return func(v T) T { return v }
	case ops.OpTypeNeg:
		return func(v T) T { return -v }
	case ops.OpTypeAbs:
		return func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	case ops.OpTypeSign:
		return func(v T) T {
			if v > 0 {
				return 1
			} else if v < 0 {
				return -1
			}
			return 0
		}
	}
	return nil
}

// unaryFnUint returns the elementwise function of a unary op over unsigned
// integers.
func unaryFnUint[T uint8 | uint16 | uint32 | uint64](op ops.OpType) func(T) T {
	switch op {
	case ops.OpTypeIdentity, ops.OpTypeAbs:
		return func(v T) T { return v }
	case ops.OpTypeNeg:
		return func(v T) T { return -v }
	case ops.OpTypeSign:
		return func(v T) T {
			if v > 0 {
				return 1
			}
			return 0
		}
	}
	return nil
}

func unaryLoop[T any](in, out []T, fn func(T) T) {
	for ii, v := range in {
		out[ii] = fn(v)
	}
}

func applyUnary[T podNumericConstraints](op ops.OpType, in, out []T, fn func(T) T) error {
	if fn == nil {
		return errors.Errorf("%s is not supported for this dtype", op)
	}
	unaryLoop(in, out, fn)
	return nil
}

func execUnary(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	op := node.Type()
	in := inputs[0]
	switch in.DType() {
	case dtypes.Bool:
		if op != ops.OpTypeLogicalNot && op != ops.OpTypeIdentity {
			return errors.Errorf("%s is not supported for Bool", op)
		}
		inFlat, outFlat := tensors.FlatOf[bool](in), tensors.FlatOf[bool](output)
		for ii, v := range inFlat {
			outFlat[ii] = v != (op == ops.OpTypeLogicalNot)
		}
		return nil
	case dtypes.Int8:
		return applyUnary(op, tensors.FlatOf[int8](in), tensors.FlatOf[int8](output), unaryFnInt[int8](op))
	case dtypes.Int16:
		return applyUnary(op, tensors.FlatOf[int16](in), tensors.FlatOf[int16](output), unaryFnInt[int16](op))
	case dtypes.Int32:
		return applyUnary(op, tensors.FlatOf[int32](in), tensors.FlatOf[int32](output), unaryFnInt[int32](op))
	case dtypes.Int64:
		return applyUnary(op, tensors.FlatOf[int64](in), tensors.FlatOf[int64](output), unaryFnInt[int64](op))
	case dtypes.Uint8:
		return applyUnary(op, tensors.FlatOf[uint8](in), tensors.FlatOf[uint8](output), unaryFnUint[uint8](op))
	case dtypes.Uint16:
		return applyUnary(op, tensors.FlatOf[uint16](in), tensors.FlatOf[uint16](output), unaryFnUint[uint16](op))
	case dtypes.Uint32:
		return applyUnary(op, tensors.FlatOf[uint32](in), tensors.FlatOf[uint32](output), unaryFnUint[uint32](op))
	case dtypes.Uint64:
		return applyUnary(op, tensors.FlatOf[uint64](in), tensors.FlatOf[uint64](output), unaryFnUint[uint64](op))
	case dtypes.Float16:
		in32 := f16ToF32(tensors.FlatOf[float16.Float16](in))
		out32 := make([]float32, len(in32))
		if err := applyUnary(op, in32, out32, unaryFnFloat[float32](op)); err != nil {
			return err
		}
		f32ToF16(out32, tensors.FlatOf[float16.Float16](output))
		return nil
	case dtypes.Float32:
		return applyUnary(op, tensors.FlatOf[float32](in), tensors.FlatOf[float32](output), unaryFnFloat[float32](op))
	case dtypes.Float64:
		return applyUnary(op, tensors.FlatOf[float64](in), tensors.FlatOf[float64](output), unaryFnFloat[float64](op))
	}
	return errors.Errorf("unsupported dtype %s for %s", in.DType(), op)
}

// binaryFnFloat returns the elementwise function of a binary op over floats.
func binaryFnFloat[T podFloatConstraints](op ops.OpType) func(a, b T) T {
	switch op {
	case ops.OpTypeAdd:
		return func(a, b T) T { return a + b }
	case ops.OpTypeSub:
		return func(a, b T) T { return a - b }
	case ops.OpTypeMul:
		return func(a, b T) T { return a * b }
	case ops.OpTypeDiv:
		return func(a, b T) T { return a / b }
	case ops.OpTypePow:
		return func(a, b T) T { return T(math.Pow(float64(a), float64(b))) }
	case ops.OpTypeRem:
		return func(a, b T) T { return T(math.Mod(float64(a), float64(b))) }
	case ops.OpTypeMax:
		return func(a, b T) T {
			if a > b {
				return a
			}
			return b
		}
	case ops.OpTypeMin:
		return func(a, b T) T {
			if a < b {
				return a
			}
			return b
		}
	}
	return nil
}

// binaryFnInt returns the elementwise function of a binary op over integers.
func binaryFnInt[T podIntegerConstraints](op ops.OpType) func(a, b T) T {
	switch op {
	case ops.OpTypeAdd:
		return func(a, b T) T { return a + b }
	case ops.OpTypeSub:
		return func(a, b T) T { return a - b }
	case ops.OpTypeMul:
		return func(a, b T) T { return a * b }
	case ops.OpTypeDiv:
		return func(a, b T) T { return a / b }
	case ops.OpTypePow:
		return intPow[T]
	case ops.OpTypeRem:
		return func(a, b T) T { return a % b }
	case ops.OpTypeMax:
		return func(a, b T) T {
			if a > b {
				return a
			}
			return b
		}
	case ops.OpTypeMin:
		return func(a, b T) T {
			if a < b {
				return a
			}
			return b
		}
	}
	return nil
}

// binaryLoop applies fn elementwise, broadcasting whichever operand is a
// single element.
func binaryLoop[T any](lhs, rhs, out []T, fn func(a, b T) T) {
	switch {
	case len(lhs) == 1:
		a := lhs[0]
		for ii, b := range rhs {
			out[ii] = fn(a, b)
		}
	case len(rhs) == 1:
		b := rhs[0]
		for ii, a := range lhs {
			out[ii] = fn(a, b)
		}
	default:
		for ii, a := range lhs {
			out[ii] = fn(a, rhs[ii])
		}
	}
}

func applyBinary[T podNumericConstraints](op ops.OpType, lhs, rhs, out []T, fn func(a, b T) T) error {
	if fn == nil {
		return errors.Errorf("%s is not supported for this dtype", op)
	}
	binaryLoop(lhs, rhs, out, fn)
	return nil
}

func execBinary(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	op := node.Type()
	lhs, rhs := inputs[0], inputs[1]
	switch lhs.DType() {
	case dtypes.Bool:
		lhsFlat, rhsFlat := tensors.FlatOf[bool](lhs), tensors.FlatOf[bool](rhs)
		outFlat := tensors.FlatOf[bool](output)
		switch op {
		case ops.OpTypeLogicalAnd:
			binaryLoop(lhsFlat, rhsFlat, outFlat, func(a, b bool) bool { return a && b })
		case ops.OpTypeLogicalOr:
			binaryLoop(lhsFlat, rhsFlat, outFlat, func(a, b bool) bool { return a || b })
		default:
			return errors.Errorf("%s is not supported for Bool", op)
		}
		return nil
	case dtypes.Int8:
		return applyBinary(op, tensors.FlatOf[int8](lhs), tensors.FlatOf[int8](rhs), tensors.FlatOf[int8](output), binaryFnInt[int8](op))
	case dtypes.Int16:
		return applyBinary(op, tensors.FlatOf[int16](lhs), tensors.FlatOf[int16](rhs), tensors.FlatOf[int16](output), binaryFnInt[int16](op))
	case dtypes.Int32:
		return applyBinary(op, tensors.FlatOf[int32](lhs), tensors.FlatOf[int32](rhs), tensors.FlatOf[int32](output), binaryFnInt[int32](op))
	case dtypes.Int64:
		return applyBinary(op, tensors.FlatOf[int64](lhs), tensors.FlatOf[int64](rhs), tensors.FlatOf[int64](output), binaryFnInt[int64](op))
	case dtypes.Uint8:
		return applyBinary(op, tensors.FlatOf[uint8](lhs), tensors.FlatOf[uint8](rhs), tensors.FlatOf[uint8](output), binaryFnInt[uint8](op))
	case dtypes.Uint16:
		return applyBinary(op, tensors.FlatOf[uint16](lhs), tensors.FlatOf[uint16](rhs), tensors.FlatOf[uint16](output), binaryFnInt[uint16](op))
	case dtypes.Uint32:
		return applyBinary(op, tensors.FlatOf[uint32](lhs), tensors.FlatOf[uint32](rhs), tensors.FlatOf[uint32](output), binaryFnInt[uint32](op))
	case dtypes.Uint64:
		return applyBinary(op, tensors.FlatOf[uint64](lhs), tensors.FlatOf[uint64](rhs), tensors.FlatOf[uint64](output), binaryFnInt[uint64](op))
	case dtypes.Float16:
		lhs32 := f16ToF32(tensors.FlatOf[float16.Float16](lhs))
		rhs32 := f16ToF32(tensors.FlatOf[float16.Float16](rhs))
		out32 := make([]float32, output.Size())
		if err := applyBinary(op, lhs32, rhs32, out32, binaryFnFloat[float32](op)); err != nil {
			return err
		}
		f32ToF16(out32, tensors.FlatOf[float16.Float16](output))
		return nil
	case dtypes.Float32:
		return applyBinary(op, tensors.FlatOf[float32](lhs), tensors.FlatOf[float32](rhs), tensors.FlatOf[float32](output), binaryFnFloat[float32](op))
	case dtypes.Float64:
		return applyBinary(op, tensors.FlatOf[float64](lhs), tensors.FlatOf[float64](rhs), tensors.FlatOf[float64](output), binaryFnFloat[float64](op))
	}
	return errors.Errorf("unsupported dtype %s for %s", lhs.DType(), op)
}

// compareFn returns the elementwise predicate of a comparison op.
func compareFn[T podNumericConstraints](op ops.OpType) func(a, b T) bool {
	switch op {
	case ops.OpTypeEqual:
		return func(a, b T) bool { return a == b }
	case ops.OpTypeNotEqual:
		return func(a, b T) bool { return a != b }
	case ops.OpTypeGreaterThan:
		return func(a, b T) bool { return a > b }
	case ops.OpTypeGreaterOrEqual:
		return func(a, b T) bool { return a >= b }
	case ops.OpTypeLessThan:
		return func(a, b T) bool { return a < b }
	case ops.OpTypeLessOrEqual:
		return func(a, b T) bool { return a <= b }
	}
	return nil
}

func compareLoop[T podNumericConstraints](op ops.OpType, lhs, rhs []T, out []bool) error {
	fn := compareFn[T](op)
	if fn == nil {
		return errors.Errorf("%s is not a comparison", op)
	}
	switch {
	case len(lhs) == 1:
		a := lhs[0]
		for ii, b := range rhs {
			out[ii] = fn(a, b)
		}
	case len(rhs) == 1:
		b := rhs[0]
		for ii, a := range lhs {
			out[ii] = fn(a, b)
		}
	default:
		for ii, a := range lhs {
			out[ii] = fn(a, rhs[ii])
		}
	}
	return nil
}

func execComparison(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	op := node.Type()
	lhs, rhs := inputs[0], inputs[1]
	out := tensors.FlatOf[bool](output)
	switch lhs.DType() {
	case dtypes.Int8:
		return compareLoop(op, tensors.FlatOf[int8](lhs), tensors.FlatOf[int8](rhs), out)
	case dtypes.Int16:
		return compareLoop(op, tensors.FlatOf[int16](lhs), tensors.FlatOf[int16](rhs), out)
	case dtypes.Int32:
		return compareLoop(op, tensors.FlatOf[int32](lhs), tensors.FlatOf[int32](rhs), out)
	case dtypes.Int64:
		return compareLoop(op, tensors.FlatOf[int64](lhs), tensors.FlatOf[int64](rhs), out)
	case dtypes.Uint8:
		return compareLoop(op, tensors.FlatOf[uint8](lhs), tensors.FlatOf[uint8](rhs), out)
	case dtypes.Uint16:
		return compareLoop(op, tensors.FlatOf[uint16](lhs), tensors.FlatOf[uint16](rhs), out)
	case dtypes.Uint32:
		return compareLoop(op, tensors.FlatOf[uint32](lhs), tensors.FlatOf[uint32](rhs), out)
	case dtypes.Uint64:
		return compareLoop(op, tensors.FlatOf[uint64](lhs), tensors.FlatOf[uint64](rhs), out)
	case dtypes.Float16:
		return compareLoop(op, f16ToF32(tensors.FlatOf[float16.Float16](lhs)), f16ToF32(tensors.FlatOf[float16.Float16](rhs)), out)
	case dtypes.Float32:
		return compareLoop(op, tensors.FlatOf[float32](lhs), tensors.FlatOf[float32](rhs), out)
	case dtypes.Float64:
		return compareLoop(op, tensors.FlatOf[float64](lhs), tensors.FlatOf[float64](rhs), out)
	}
	return errors.Errorf("unsupported dtype %s for %s", lhs.DType(), op)
}

// whereLoop selects elementwise between onTrue and onFalse; cond and either
// branch broadcast when they hold a single element.
func whereLoop[T any](cond []bool, onTrue, onFalse, out []T) {
	pick := func(branch []T, ii int) T {
		if len(branch) == 1 {
			return branch[0]
		}
		return branch[ii]
	}
	if len(cond) == 1 {
		branch := onFalse
		if cond[0] {
			branch = onTrue
		}
		for ii := range out {
			out[ii] = pick(branch, ii)
		}
		return
	}
	for ii := range out {
		if cond[ii] {
			out[ii] = pick(onTrue, ii)
		} else {
			out[ii] = pick(onFalse, ii)
		}
	}
}

func execWhere(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	cond := tensors.FlatOf[bool](inputs[0])
	onTrue, onFalse := inputs[1], inputs[2]
	switch output.DType() {
	case dtypes.Bool:
		whereLoop(cond, tensors.FlatOf[bool](onTrue), tensors.FlatOf[bool](onFalse), tensors.FlatOf[bool](output))
	case dtypes.Int8:
		whereLoop(cond, tensors.FlatOf[int8](onTrue), tensors.FlatOf[int8](onFalse), tensors.FlatOf[int8](output))
	case dtypes.Int16:
		whereLoop(cond, tensors.FlatOf[int16](onTrue), tensors.FlatOf[int16](onFalse), tensors.FlatOf[int16](output))
	case dtypes.Int32:
		whereLoop(cond, tensors.FlatOf[int32](onTrue), tensors.FlatOf[int32](onFalse), tensors.FlatOf[int32](output))
	case dtypes.Int64:
		whereLoop(cond, tensors.FlatOf[int64](onTrue), tensors.FlatOf[int64](onFalse), tensors.FlatOf[int64](output))
	case dtypes.Uint8:
		whereLoop(cond, tensors.FlatOf[uint8](onTrue), tensors.FlatOf[uint8](onFalse), tensors.FlatOf[uint8](output))
	case dtypes.Uint16:
		whereLoop(cond, tensors.FlatOf[uint16](onTrue), tensors.FlatOf[uint16](onFalse), tensors.FlatOf[uint16](output))
	case dtypes.Uint32:
		whereLoop(cond, tensors.FlatOf[uint32](onTrue), tensors.FlatOf[uint32](onFalse), tensors.FlatOf[uint32](output))
	case dtypes.Uint64:
		whereLoop(cond, tensors.FlatOf[uint64](onTrue), tensors.FlatOf[uint64](onFalse), tensors.FlatOf[uint64](output))
	case dtypes.Float16:
		whereLoop(cond, tensors.FlatOf[float16.Float16](onTrue), tensors.FlatOf[float16.Float16](onFalse), tensors.FlatOf[float16.Float16](output))
	case dtypes.Float32:
		whereLoop(cond, tensors.FlatOf[float32](onTrue), tensors.FlatOf[float32](onFalse), tensors.FlatOf[float32](output))
	case dtypes.Float64:
		whereLoop(cond, tensors.FlatOf[float64](onTrue), tensors.FlatOf[float64](onFalse), tensors.FlatOf[float64](output))
	default:
		return errors.Errorf("unsupported dtype %s for %s", output.DType(), node.Type())
	}
	return nil
}
