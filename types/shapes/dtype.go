// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// CastAsDType casts a numeric value to the Go type corresponding to the DType.
// If the value is a (nested) slice, it converts to a newly allocated (nested)
// slice of the given DType.
//
// Float16 gets a proper IEEE conversion through github.com/x448/float16 --
// a plain reflect.Convert would reinterpret the underlying uint16.
func CastAsDType(value any, dtype dtypes.DType) any {
	valueOf := reflect.ValueOf(value)
	typeOf := valueOf.Type()
	if typeOf.Kind() == reflect.Slice || typeOf.Kind() == reflect.Array {
		newTypeOf := sliceTypeForDType(typeOf, dtype)
		newValueOf := reflect.MakeSlice(newTypeOf, valueOf.Len(), valueOf.Len())
		for ii := 0; ii < valueOf.Len(); ii++ {
			elem := CastAsDType(valueOf.Index(ii).Interface(), dtype)
			newValueOf.Index(ii).Set(reflect.ValueOf(elem))
		}
		return newValueOf.Interface()
	}

	// Scalar value.
	goType := dtype.GoType()
	if goType == nil {
		exceptions.Panicf("CastAsDType: dtype %s has no Go type", dtype)
	}
	if goType.Kind() == reflect.Bool {
		return !valueOf.IsZero()
	}
	if dtype == dtypes.Float16 {
		f64 := valueOf.Convert(reflect.TypeOf(float64(0))).Float()
		return float16.Fromfloat32(float32(f64))
	}
	return valueOf.Convert(goType).Interface()
}

func sliceTypeForDType(valueType reflect.Type, dtype dtypes.DType) reflect.Type {
	if valueType.Kind() != reflect.Slice && valueType.Kind() != reflect.Array {
		return dtype.GoType()
	}
	return reflect.SliceOf(sliceTypeForDType(valueType.Elem(), dtype))
}
