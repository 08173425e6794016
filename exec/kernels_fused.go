// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/shapeinference"
	"github.com/gomlx/symgraph/types/tensors"
)

func init() {
	kernels[ops.OpTypeFusedExpr] = execFused
}

// fusedStep is one pre-resolved instruction of a fused program: exactly one
// of unary/binary is set.
type fusedStep[T podNumericConstraints] struct {
	unary      func(T) T
	binary     func(a, b T) T
	arg0, arg1 int
}

// fusedSteps resolves the program instructions to per-element functions for T.
func fusedSteps[T podNumericConstraints](program *graph.FusedProgram, unaryFn func(ops.OpType) func(T) T, binaryFn func(ops.OpType) func(a, b T) T) ([]fusedStep[T], error) {
	steps := make([]fusedStep[T], len(program.Instructions))
	for ii, inst := range program.Instructions {
		steps[ii].arg0, steps[ii].arg1 = inst.Arg0, inst.Arg1
		if shapeinference.StandardUnaryOperations.Has(inst.Op) {
			steps[ii].unary = unaryFn(inst.Op)
			if steps[ii].unary == nil {
				return nil, errors.Errorf("fused %s is not supported for this dtype", inst.Op)
			}
			continue
		}
		steps[ii].binary = binaryFn(inst.Op)
		if steps[ii].binary == nil {
			return nil, errors.Errorf("fused %s is not supported for this dtype", inst.Op)
		}
	}
	return steps, nil
}

// fusedLoop evaluates the resolved program once per output element. Scalar
// inputs broadcast.
func fusedLoop[T podNumericConstraints](steps []fusedStep[T], inputs [][]T, out []T) {
	registers := make([]T, len(inputs)+len(steps))
	for ii := range out {
		for reg, in := range inputs {
			if len(in) == 1 {
				registers[reg] = in[0]
			} else {
				registers[reg] = in[ii]
			}
		}
		reg := len(inputs)
		for _, step := range steps {
			if step.unary != nil {
				registers[reg] = step.unary(registers[step.arg0])
			} else {
				registers[reg] = step.binary(registers[step.arg0], registers[step.arg1])
			}
			reg++
		}
		out[ii] = registers[reg-1]
	}
}

func execFusedFor[T podNumericConstraints](program *graph.FusedProgram, unaryFn func(ops.OpType) func(T) T, binaryFn func(ops.OpType) func(a, b T) T, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	steps, err := fusedSteps(program, unaryFn, binaryFn)
	if err != nil {
		return err
	}
	flats := make([][]T, len(inputs))
	for ii, in := range inputs {
		flats[ii] = tensors.FlatOf[T](in)
	}
	fusedLoop(steps, flats, tensors.FlatOf[T](output))
	return nil
}

func execFused(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	program := node.FusedProgram()
	switch output.DType() {
	case dtypes.Int8:
		return execFusedFor(program, unaryFnInt[int8], binaryFnInt[int8], inputs, output)
	case dtypes.Int16:
		return execFusedFor(program, unaryFnInt[int16], binaryFnInt[int16], inputs, output)
	case dtypes.Int32:
		return execFusedFor(program, unaryFnInt[int32], binaryFnInt[int32], inputs, output)
	case dtypes.Int64:
		return execFusedFor(program, unaryFnInt[int64], binaryFnInt[int64], inputs, output)
	case dtypes.Uint8:
		return execFusedFor(program, unaryFnUint[uint8], binaryFnInt[uint8], inputs, output)
	case dtypes.Uint16:
		return execFusedFor(program, unaryFnUint[uint16], binaryFnInt[uint16], inputs, output)
	case dtypes.Uint32:
		return execFusedFor(program, unaryFnUint[uint32], binaryFnInt[uint32], inputs, output)
	case dtypes.Uint64:
		return execFusedFor(program, unaryFnUint[uint64], binaryFnInt[uint64], inputs, output)
	case dtypes.Float16:
		steps, err := fusedSteps(program, unaryFnFloat[float32], binaryFnFloat[float32])
		if err != nil {
			return err
		}
		flats := make([][]float32, len(inputs))
		for ii, in := range inputs {
			flats[ii] = f16ToF32(tensors.FlatOf[float16.Float16](in))
		}
		out32 := make([]float32, output.Size())
		fusedLoop(steps, flats, out32)
		f32ToF16(out32, tensors.FlatOf[float16.Float16](output))
		return nil
	case dtypes.Float32:
		return execFusedFor(program, unaryFnFloat[float32], binaryFnFloat[float32], inputs, output)
	case dtypes.Float64:
		return execFusedFor(program, unaryFnFloat[float64], binaryFnFloat[float64], inputs, output)
	}
	return errors.Errorf("unsupported dtype %s for %s", output.DType(), node.Type())
}
