// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops enumerates the operation types of the symgraph computation
// graph. It is shared by the graph construction API (package graph), the
// shape inference rules (package shapeinference), the rewrite passes
// (package rewrite) and the executors (package exec).
package ops

// OpType is an enum of all operations supported by the computation graph.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota

	// Leaf nodes:

	OpTypeParameter
	OpTypeConstant
	OpTypeSharedRead
	OpTypeIota

	// Unary elementwise:

	OpTypeIdentity
	OpTypeConvertDType
	OpTypeNeg
	OpTypeAbs
	OpTypeSign
	OpTypeExp
	OpTypeLog
	OpTypeSqrt
	OpTypeTanh
	OpTypeLogistic
	OpTypeLogicalNot

	// Binary elementwise -- with implicit broadcasting of scalars:

	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypePow
	OpTypeRem
	OpTypeMax
	OpTypeMin
	OpTypeLogicalAnd
	OpTypeLogicalOr

	// Comparisons, yielding Bool:

	OpTypeEqual
	OpTypeNotEqual
	OpTypeGreaterThan
	OpTypeGreaterOrEqual
	OpTypeLessThan
	OpTypeLessOrEqual

	// Ternary:

	OpTypeWhere

	// Reductions:

	OpTypeReduceSum
	OpTypeReduceProd
	OpTypeReduceMax
	OpTypeReduceMin

	// Shape manipulation:

	OpTypeReshape
	OpTypeSlice
	OpTypeConcatenate
	OpTypeBroadcastToDims

	// Composite and control-flow nodes, created by the rewrite engine and
	// the scan lowering -- not directly by users:

	OpTypeFusedExpr
	OpTypeScan
	OpTypeScanOutput

	// OpTypeLast is a sentinel; keep it last.
	OpTypeLast
)
