// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

func init() {
	for _, opType := range []ops.OpType{
		ops.OpTypeReduceSum, ops.OpTypeReduceProd, ops.OpTypeReduceMax, ops.OpTypeReduceMin,
	} {
		kernels[opType] = execReduce
	}
	kernels[ops.OpTypeReshape] = execReshape
	kernels[ops.OpTypeSlice] = execSlice
	kernels[ops.OpTypeConcatenate] = execConcatenate
	kernels[ops.OpTypeBroadcastToDims] = execBroadcastToDims
	kernels[ops.OpTypeIota] = execIota
	kernels[ops.OpTypeConvertDType] = execConvertDType
}

// copyFlat copies between two flat slices of the same underlying type.
func copyFlat(flatDst, flatSrc any) {
	reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

func execReshape(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	// Same flat layout, only the shape changes.
	copyFlat(output.Flat(), inputs[0].Flat())
	return nil
}

// gatherLoop fills out with out[i] = in[mapFn(i)].
func gatherLoop[T any](in, out []T, mapFn func(outIdx int) int) {
	for ii := range out {
		out[ii] = in[mapFn(ii)]
	}
}

// gather fills each output element from the input element selected by mapFn.
// Both tensors must share a dtype.
func gather(in, out *tensors.Tensor, mapFn func(outIdx int) int) error {
	switch out.DType() {
	case dtypes.Bool:
		gatherLoop(tensors.FlatOf[bool](in), tensors.FlatOf[bool](out), mapFn)
	case dtypes.Int8:
		gatherLoop(tensors.FlatOf[int8](in), tensors.FlatOf[int8](out), mapFn)
	case dtypes.Int16:
		gatherLoop(tensors.FlatOf[int16](in), tensors.FlatOf[int16](out), mapFn)
	case dtypes.Int32:
		gatherLoop(tensors.FlatOf[int32](in), tensors.FlatOf[int32](out), mapFn)
	case dtypes.Int64:
		gatherLoop(tensors.FlatOf[int64](in), tensors.FlatOf[int64](out), mapFn)
	case dtypes.Uint8:
		gatherLoop(tensors.FlatOf[uint8](in), tensors.FlatOf[uint8](out), mapFn)
	case dtypes.Uint16:
		gatherLoop(tensors.FlatOf[uint16](in), tensors.FlatOf[uint16](out), mapFn)
	case dtypes.Uint32:
		gatherLoop(tensors.FlatOf[uint32](in), tensors.FlatOf[uint32](out), mapFn)
	case dtypes.Uint64:
		gatherLoop(tensors.FlatOf[uint64](in), tensors.FlatOf[uint64](out), mapFn)
	case dtypes.Float16:
		gatherLoop(tensors.FlatOf[float16.Float16](in), tensors.FlatOf[float16.Float16](out), mapFn)
	case dtypes.Float32:
		gatherLoop(tensors.FlatOf[float32](in), tensors.FlatOf[float32](out), mapFn)
	case dtypes.Float64:
		gatherLoop(tensors.FlatOf[float64](in), tensors.FlatOf[float64](out), mapFn)
	default:
		return errors.Errorf("unsupported dtype %s", out.DType())
	}
	return nil
}

func execSlice(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	starts, _ := node.SliceBounds()
	inStrides := inputs[0].Shape().Strides()
	outShape := output.Shape()
	outStrides := outShape.Strides()
	return gather(inputs[0], output, func(outIdx int) int {
		inIdx := 0
		for axis := range outShape.Dimensions {
			d := outIdx / outStrides[axis]
			outIdx %= outStrides[axis]
			inIdx += (starts[axis] + d) * inStrides[axis]
		}
		return inIdx
	})
}

func execBroadcastToDims(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	in := inputs[0]
	if in.Shape().IsScalar() {
		return gather(in, output, func(int) int { return 0 })
	}
	inShape := in.Shape()
	inStrides := inShape.Strides()
	outShape := output.Shape()
	outStrides := outShape.Strides()
	return gather(in, output, func(outIdx int) int {
		inIdx := 0
		for axis := range outShape.Dimensions {
			d := outIdx / outStrides[axis]
			outIdx %= outStrides[axis]
			if inShape.Dimensions[axis] != 1 {
				inIdx += d * inStrides[axis]
			}
		}
		return inIdx
	})
}

func execConcatenate(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	axis := node.ConcatAxis()
	outShape := output.Shape()
	outer := 1
	for _, dim := range outShape.Dimensions[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range outShape.Dimensions[axis+1:] {
		inner *= dim
	}
	outValue := reflect.ValueOf(output.Flat())
	outRun := outShape.Dimensions[axis] * inner
	offset := 0
	for _, in := range inputs {
		inValue := reflect.ValueOf(in.Flat())
		run := in.Shape().Dimensions[axis] * inner
		for o := 0; o < outer; o++ {
			reflect.Copy(
				outValue.Slice(o*outRun+offset, o*outRun+offset+run),
				inValue.Slice(o*run, (o+1)*run))
		}
		offset += run
	}
	return nil
}

// iotaFill fills out with the index along the iota axis, cast to T.
func iotaFill[T podNumericConstraints](out []T, stride, dim int) {
	for ii := range out {
		out[ii] = T((ii / stride) % dim)
	}
}

func execIota(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	axis := node.IotaAxis()
	shape := output.Shape()
	stride := shape.Strides()[axis]
	dim := shape.Dimensions[axis]
	switch shape.DType {
	case dtypes.Int8:
		iotaFill(tensors.FlatOf[int8](output), stride, dim)
	case dtypes.Int16:
		iotaFill(tensors.FlatOf[int16](output), stride, dim)
	case dtypes.Int32:
		iotaFill(tensors.FlatOf[int32](output), stride, dim)
	case dtypes.Int64:
		iotaFill(tensors.FlatOf[int64](output), stride, dim)
	case dtypes.Uint8:
		iotaFill(tensors.FlatOf[uint8](output), stride, dim)
	case dtypes.Uint16:
		iotaFill(tensors.FlatOf[uint16](output), stride, dim)
	case dtypes.Uint32:
		iotaFill(tensors.FlatOf[uint32](output), stride, dim)
	case dtypes.Uint64:
		iotaFill(tensors.FlatOf[uint64](output), stride, dim)
	case dtypes.Float16:
		flat := tensors.FlatOf[float16.Float16](output)
		for ii := range flat {
			flat[ii] = float16.Fromfloat32(float32((ii / stride) % dim))
		}
	case dtypes.Float32:
		iotaFill(tensors.FlatOf[float32](output), stride, dim)
	case dtypes.Float64:
		iotaFill(tensors.FlatOf[float64](output), stride, dim)
	default:
		return errors.Errorf("unsupported dtype %s for %s", shape.DType, node.Type())
	}
	return nil
}

// reduceLoop accumulates in into out with fn; outIdxFn maps an input flat
// index to its output flat index. The first value hitting each output element
// seeds it, so no identity element is needed.
func reduceLoop[T podNumericConstraints](fn func(a, b T) T, in, out []T, seeded []bool, outIdxFn func(inIdx int) int) {
	for ii, v := range in {
		outIdx := outIdxFn(ii)
		if !seeded[outIdx] {
			out[outIdx] = v
			seeded[outIdx] = true
			continue
		}
		out[outIdx] = fn(out[outIdx], v)
	}
}

// reduceBinaryOp maps a reduction to the binary op it folds with.
func reduceBinaryOp(op ops.OpType) ops.OpType {
	switch op {
	case ops.OpTypeReduceSum:
		return ops.OpTypeAdd
	case ops.OpTypeReduceProd:
		return ops.OpTypeMul
	case ops.OpTypeReduceMax:
		return ops.OpTypeMax
	case ops.OpTypeReduceMin:
		return ops.OpTypeMin
	}
	return ops.OpTypeInvalid
}

func execReduce(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	in := inputs[0]
	inShape := in.Shape()
	reduced := types.SetWith(node.ReduceAxes()...)
	outIdxFn := reduceOutIdxFn(inShape, output.Shape(), reduced)
	binOp := reduceBinaryOp(node.Type())
	seeded := make([]bool, output.Size())

	switch in.DType() {
	case dtypes.Int8:
		reduceLoop(binaryFnInt[int8](binOp), tensors.FlatOf[int8](in), tensors.FlatOf[int8](output), seeded, outIdxFn)
	case dtypes.Int16:
		reduceLoop(binaryFnInt[int16](binOp), tensors.FlatOf[int16](in), tensors.FlatOf[int16](output), seeded, outIdxFn)
	case dtypes.Int32:
		reduceLoop(binaryFnInt[int32](binOp), tensors.FlatOf[int32](in), tensors.FlatOf[int32](output), seeded, outIdxFn)
	case dtypes.Int64:
		reduceLoop(binaryFnInt[int64](binOp), tensors.FlatOf[int64](in), tensors.FlatOf[int64](output), seeded, outIdxFn)
	case dtypes.Uint8:
		reduceLoop(binaryFnInt[uint8](binOp), tensors.FlatOf[uint8](in), tensors.FlatOf[uint8](output), seeded, outIdxFn)
	case dtypes.Uint16:
		reduceLoop(binaryFnInt[uint16](binOp), tensors.FlatOf[uint16](in), tensors.FlatOf[uint16](output), seeded, outIdxFn)
	case dtypes.Uint32:
		reduceLoop(binaryFnInt[uint32](binOp), tensors.FlatOf[uint32](in), tensors.FlatOf[uint32](output), seeded, outIdxFn)
	case dtypes.Uint64:
		reduceLoop(binaryFnInt[uint64](binOp), tensors.FlatOf[uint64](in), tensors.FlatOf[uint64](output), seeded, outIdxFn)
	case dtypes.Float16:
		in32 := f16ToF32(tensors.FlatOf[float16.Float16](in))
		out32 := make([]float32, output.Size())
		reduceLoop(binaryFnFloat[float32](binOp), in32, out32, seeded, outIdxFn)
		f32ToF16(out32, tensors.FlatOf[float16.Float16](output))
	case dtypes.Float32:
		reduceLoop(binaryFnFloat[float32](binOp), tensors.FlatOf[float32](in), tensors.FlatOf[float32](output), seeded, outIdxFn)
	case dtypes.Float64:
		reduceLoop(binaryFnFloat[float64](binOp), tensors.FlatOf[float64](in), tensors.FlatOf[float64](output), seeded, outIdxFn)
	default:
		return errors.Errorf("unsupported dtype %s for %s", in.DType(), node.Type())
	}
	return nil
}

// reduceOutIdxFn maps input flat indices to output flat indices, skipping the
// reduced axes.
func reduceOutIdxFn(inShape, outShape shapes.Shape, reduced types.Set[int]) func(inIdx int) int {
	inStrides := inShape.Strides()
	keptStrides := outShape.Strides()
	outStrides := make([]int, inShape.Rank())
	outAxis := 0
	for axis := range inShape.Dimensions {
		if reduced.Has(axis) {
			outStrides[axis] = 0
			continue
		}
		outStrides[axis] = keptStrides[outAxis]
		outAxis++
	}
	return func(inIdx int) int {
		outIdx := 0
		for axis := range inShape.Dimensions {
			d := inIdx / inStrides[axis]
			inIdx %= inStrides[axis]
			outIdx += d * outStrides[axis]
		}
		return outIdx
	}
}

// execConvertDType converts elementwise through float64 (or bool).
func execConvertDType(node *graph.Node, inputs []*tensors.Tensor, output *tensors.Tensor) error {
	in := inputs[0]
	read, err := float64Reader(in)
	if err != nil {
		return err
	}
	write, err := float64Writer(output)
	if err != nil {
		return err
	}
	for ii := 0; ii < in.Size(); ii++ {
		write(ii, read(ii))
	}
	return nil
}

func float64Reader(t *tensors.Tensor) (func(i int) float64, error) {
	switch t.DType() {
	case dtypes.Bool:
		flat := tensors.FlatOf[bool](t)
		return func(i int) float64 {
			if flat[i] {
				return 1
			}
			return 0
		}, nil
	case dtypes.Int8:
		flat := tensors.FlatOf[int8](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Int16:
		flat := tensors.FlatOf[int16](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Int32:
		flat := tensors.FlatOf[int32](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Int64:
		flat := tensors.FlatOf[int64](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Uint8:
		flat := tensors.FlatOf[uint8](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Uint16:
		flat := tensors.FlatOf[uint16](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Uint32:
		flat := tensors.FlatOf[uint32](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Uint64:
		flat := tensors.FlatOf[uint64](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Float16:
		flat := tensors.FlatOf[float16.Float16](t)
		return func(i int) float64 { return float64(flat[i].Float32()) }, nil
	case dtypes.Float32:
		flat := tensors.FlatOf[float32](t)
		return func(i int) float64 { return float64(flat[i]) }, nil
	case dtypes.Float64:
		flat := tensors.FlatOf[float64](t)
		return func(i int) float64 { return flat[i] }, nil
	}
	return nil, errors.Errorf("unsupported dtype %s for dtype conversion", t.DType())
}

func float64Writer(t *tensors.Tensor) (func(i int, v float64), error) {
	switch t.DType() {
	case dtypes.Bool:
		flat := tensors.FlatOf[bool](t)
		return func(i int, v float64) { flat[i] = v != 0 }, nil
	case dtypes.Int8:
		flat := tensors.FlatOf[int8](t)
		return func(i int, v float64) { flat[i] = int8(v) }, nil
	case dtypes.Int16:
		flat := tensors.FlatOf[int16](t)
		return func(i int, v float64) { flat[i] = int16(v) }, nil
	case dtypes.Int32:
		flat := tensors.FlatOf[int32](t)
		return func(i int, v float64) { flat[i] = int32(v) }, nil
	case dtypes.Int64:
		flat := tensors.FlatOf[int64](t)
		return func(i int, v float64) { flat[i] = int64(v) }, nil
	case dtypes.Uint8:
		flat := tensors.FlatOf[uint8](t)
		return func(i int, v float64) { flat[i] = uint8(v) }, nil
	case dtypes.Uint16:
		flat := tensors.FlatOf[uint16](t)
		return func(i int, v float64) { flat[i] = uint16(v) }, nil
	case dtypes.Uint32:
		flat := tensors.FlatOf[uint32](t)
		return func(i int, v float64) { flat[i] = uint32(v) }, nil
	case dtypes.Uint64:
		flat := tensors.FlatOf[uint64](t)
		return func(i int, v float64) { flat[i] = uint64(v) }, nil
	case dtypes.Float16:
		flat := tensors.FlatOf[float16.Float16](t)
		return func(i int, v float64) { flat[i] = float16.Fromfloat32(float32(v)) }, nil
	case dtypes.Float32:
		flat := tensors.FlatOf[float32](t)
		return func(i int, v float64) { flat[i] = float32(v) }, nil
	case dtypes.Float64:
		flat := tensors.FlatOf[float64](t)
		return func(i int, v float64) { flat[i] = v }, nil
	}
	return nil, errors.Errorf("unsupported dtype %s for dtype conversion", t.DType())
}
