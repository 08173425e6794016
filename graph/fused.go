// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/shapeinference"
	"github.com/gomlx/symgraph/types/shapes"
)

// FusedInstruction is one step of a fused elementwise program. It reads its
// operands from virtual registers and appends its result as a new register.
// For unary ops only Arg0 is used.
type FusedInstruction struct {
	Op         ops.OpType
	Arg0, Arg1 int
}

// FusedProgram is a small register-based program evaluated elementwise over
// the inputs of a FusedExpr node, one output element per pass. Registers
// [0, NumInputs) hold the node's inputs; each instruction appends one
// register; the last register is the node's output.
//
// The rewrite engine builds these when it collapses chains of elementwise
// nodes (see package rewrite); users don't create them directly.
type FusedProgram struct {
	NumInputs    int
	Instructions []FusedInstruction
}

// String lists the program instructions, one per line.
func (p *FusedProgram) String() string {
	parts := make([]string, 0, len(p.Instructions)+1)
	parts = append(parts, fmt.Sprintf("FusedProgram(%d inputs)", p.NumInputs))
	for ii, instr := range p.Instructions {
		reg := p.NumInputs + ii
		if shapeinference.StandardUnaryOperations.Has(instr.Op) {
			parts = append(parts, fmt.Sprintf("  r%d = %s(r%d)", reg, instr.Op, instr.Arg0))
		} else {
			parts = append(parts, fmt.Sprintf("  r%d = %s(r%d, r%d)", reg, instr.Op, instr.Arg0, instr.Arg1))
		}
	}
	return strings.Join(parts, "\n")
}

// FusedExpr creates a node that evaluates the given elementwise program over
// the inputs. All inputs must share a dtype and be either scalars (broadcast)
// or of one common shape, which is also the output shape.
func FusedExpr(program *FusedProgram, inputs ...*Node) *Node {
	if program == nil || len(program.Instructions) == 0 {
		exceptions.Panicf("FusedExpr: empty program")
	}
	if program.NumInputs != len(inputs) {
		exceptions.Panicf("FusedExpr: program expects %d inputs, got %d", program.NumInputs, len(inputs))
	}
	for _, input := range inputs {
		input.AssertValid()
	}
	g := inputs[0].graph
	dtype := inputs[0].DType()
	outputShape := shapes.Make(dtype)
	for ii, input := range inputs {
		if input.DType() != dtype {
			throwOnError(shapeinference.Errorf(ops.OpTypeFusedExpr,
				"input #%d dtype %s differs from input #0 dtype %s", ii, input.DType(), dtype))
		}
		if input.IsScalar() {
			continue
		}
		if outputShape.IsScalar() {
			outputShape = input.shape.Clone()
		} else if !input.shape.EqualDimensions(outputShape) {
			throwOnError(shapeinference.Errorf(ops.OpTypeFusedExpr,
				"input #%d shape %s differs from %s", ii, input.shape, outputShape))
		}
	}
	numRegisters := program.NumInputs
	for ii, instr := range program.Instructions {
		arity := 2
		if shapeinference.StandardUnaryOperations.Has(instr.Op) {
			arity = 1
		} else if !shapeinference.StandardBinaryOperations.Has(instr.Op) {
			throwOnError(shapeinference.Errorf(ops.OpTypeFusedExpr,
				"instruction #%d: %s is not fusable", ii, instr.Op))
		}
		if instr.Arg0 < 0 || instr.Arg0 >= numRegisters {
			throwOnError(shapeinference.Errorf(ops.OpTypeFusedExpr,
				"instruction #%d: register r%d not yet defined", ii, instr.Arg0))
		}
		if arity == 2 && (instr.Arg1 < 0 || instr.Arg1 >= numRegisters) {
			throwOnError(shapeinference.Errorf(ops.OpTypeFusedExpr,
				"instruction #%d: register r%d not yet defined", ii, instr.Arg1))
		}
		numRegisters++
	}
	return g.newNode(ops.OpTypeFusedExpr, outputShape, inputs, program)
}
