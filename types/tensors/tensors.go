// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements the host-side concrete multidimensional arrays
// used to feed and read values from compiled computations.
//
// A Tensor is a shape (see types/shapes) plus a flat slice of the shape's
// DType, laid out row-major. Tensors convert from and to regular Go values:
// scalars and (non-ragged) nested slices.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/symgraph/types/shapes"
)

// Tensor is a concrete, host-memory value with a Shape.
//
// The flat data is always a slice of the Go type corresponding to the
// shape's DType, with exactly Shape.Size() elements.
type Tensor struct {
	shape shapes.Shape
	flat  any
}

// FromShape creates a zero-initialized Tensor with the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape: invalid shape")
	}
	flat := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size()).Interface()
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// FromFlatAndDimensions creates a Tensor from the given flat data and dimensions.
// The length of flat must match the product of the dimensions.
func FromFlatAndDimensions[T dtypes.Supported](flat []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(flat) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatAndDimensions: flat has %d elements, shape %s requires %d",
			len(flat), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: flat}
}

// FromFlatAndShape creates a Tensor from the given flat data, which must be a
// slice of the shape DType's Go type with exactly shape.Size() elements. The
// flat data is shared, not copied.
func FromFlatAndShape(flat any, shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromFlatAndShape: invalid shape")
	}
	flatValueOf := reflect.ValueOf(flat)
	if flatValueOf.Kind() != reflect.Slice || dtypes.FromGoType(flatValueOf.Type().Elem()) != shape.DType {
		exceptions.Panicf("tensors.FromFlatAndShape: flat type %T doesn't match shape %s", flat, shape)
	}
	if flatValueOf.Len() != shape.Size() {
		exceptions.Panicf("tensors.FromFlatAndShape: flat has %d elements, shape %s requires %d",
			flatValueOf.Len(), shape, shape.Size())
	}
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// FromScalar creates a scalar (rank 0) Tensor with the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return &Tensor{shape: shapes.Scalar[T](), flat: []T{value}}
}

// FromAnyValue converts a Go value to a Tensor: accepted are *Tensor (returned
// unchanged), scalars of supported dtypes, and non-ragged nested slices.
func FromAnyValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	dims, baseType := valueDimensions(value)
	dtype := dtypes.FromGoType(baseType)
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("tensors.FromAnyValue: %T is not convertible to a tensor", value)
	}
	shape := shapes.Make(dtype, dims...)
	t := FromShape(shape)
	flatValueOf := reflect.ValueOf(t.flat)
	nextIdx := 0
	copyNested(flatValueOf, reflect.ValueOf(value), dims, &nextIdx)
	return t
}

// valueDimensions walks a (nested slice) value and returns its dimensions and
// the base element type. It panics on ragged slices.
func valueDimensions(value any) (dims []int, baseType reflect.Type) {
	valueOf := reflect.ValueOf(value)
	for valueOf.Kind() == reflect.Slice {
		dims = append(dims, valueOf.Len())
		if valueOf.Len() == 0 {
			exceptions.Panicf("tensors.FromAnyValue: cannot convert empty slice at axis %d", len(dims)-1)
		}
		valueOf = valueOf.Index(0)
	}
	return dims, valueOf.Type()
}

// copyNested copies the nested slice value into flat, checking each axis has
// consistent dimensions.
func copyNested(flat, value reflect.Value, dims []int, nextIdx *int) {
	if len(dims) == 0 {
		flat.Index(*nextIdx).Set(value)
		*nextIdx++
		return
	}
	if value.Len() != dims[0] {
		exceptions.Panicf("tensors.FromAnyValue: ragged slice, axis has %d elements, expected %d", value.Len(), dims[0])
	}
	for ii := 0; ii < value.Len(); ii++ {
		copyNested(flat, value.Index(ii), dims[1:], nextIdx)
	}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor's elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements stored.
func (t *Tensor) Size() int { return t.shape.Size() }

// Flat returns the underlying flat slice (of the DType's Go type).
// Mutating it mutates the tensor.
func (t *Tensor) Flat() any { return t.flat }

// FlatOf returns the flat data as a []T. It panics if T doesn't match DType.
func FlatOf[T dtypes.Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.FlatOf[%T]: tensor is %s", flat, t.shape)
	}
	return flat
}

// Value converts the tensor back to a Go value: a scalar for rank 0, nested
// slices otherwise.
func (t *Tensor) Value() any {
	if t.shape.IsScalar() {
		return reflect.ValueOf(t.flat).Index(0).Interface()
	}
	nextIdx := 0
	return buildNested(reflect.ValueOf(t.flat), t.shape.Dimensions, &nextIdx).Interface()
}

func buildNested(flat reflect.Value, dims []int, nextIdx *int) reflect.Value {
	if len(dims) == 0 {
		v := flat.Index(*nextIdx)
		*nextIdx++
		return v
	}
	elemType := flat.Type().Elem()
	for range dims[1:] {
		elemType = reflect.SliceOf(elemType)
	}
	out := reflect.MakeSlice(reflect.SliceOf(elemType), dims[0], dims[0])
	for ii := 0; ii < dims[0]; ii++ {
		out.Index(ii).Set(buildNested(flat, dims[1:], nextIdx))
	}
	return out
}

// Row returns a view of row i of the leading axis: a tensor of one less rank
// sharing the underlying data.
func (t *Tensor) Row(i int) *Tensor {
	if t.Rank() < 1 {
		exceptions.Panicf("Tensor.Row: tensor %s is a scalar", t.shape)
	}
	if i < 0 || i >= t.shape.Dim(0) {
		exceptions.Panicf("Tensor.Row(%d): leading axis has %d rows", i, t.shape.Dim(0))
	}
	rowShape := shapes.Make(t.shape.DType, t.shape.Dimensions[1:]...)
	rowSize := rowShape.Size()
	flat := reflect.ValueOf(t.flat).Slice(i*rowSize, (i+1)*rowSize).Interface()
	return &Tensor{shape: rowShape, flat: flat}
}

// SubLeading returns a view of the first n rows of the leading axis, sharing
// the underlying data.
func (t *Tensor) SubLeading(n int) *Tensor {
	if t.Rank() < 1 {
		exceptions.Panicf("Tensor.SubLeading: tensor %s is a scalar", t.shape)
	}
	if n < 0 || n > t.shape.Dim(0) {
		exceptions.Panicf("Tensor.SubLeading(%d): leading axis has %d rows", n, t.shape.Dim(0))
	}
	dims := append([]int{n}, t.shape.Dimensions[1:]...)
	newShape := shapes.Shape{DType: t.shape.DType, Dimensions: dims}
	rowSize := 1
	for _, dim := range t.shape.Dimensions[1:] {
		rowSize *= dim
	}
	flat := reflect.ValueOf(t.flat).Slice(0, n*rowSize).Interface()
	return &Tensor{shape: newShape, flat: flat}
}

// Clone makes a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := FromShape(t.shape)
	reflect.Copy(reflect.ValueOf(c.flat), reflect.ValueOf(t.flat))
	return c
}

// CopyFrom overwrites the tensor data with other's. Shapes must match.
func (t *Tensor) CopyFrom(other *Tensor) {
	if !t.shape.Equal(other.shape) {
		exceptions.Panicf("Tensor.CopyFrom: shape mismatch, %s vs %s", t.shape, other.shape)
	}
	reflect.Copy(reflect.ValueOf(t.flat), reflect.ValueOf(other.flat))
}

// Equal compares shape and every element.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.shape.Equal(other.shape) && reflect.DeepEqual(t.flat, other.flat)
}

// GoStr renders the tensor as a Go-syntax value, convenient for debugging.
func (t *Tensor) GoStr() string {
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t == nil {
		return "Tensor(nil)"
	}
	const maxElementsToPrint = 32
	if t.Size() <= maxElementsToPrint {
		return t.GoStr()
	}
	b := strings.Builder{}
	fmt.Fprintf(&b, "%s: (%d elements)", t.shape, t.Size())
	return b.String()
}
