// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/x448/float16"
)

// Generic constraints for the kernels, over the plain-old-data Go types.
// Float16 is not included: it is stored as raw bits and the kernels compute
// through float32 (see f16ToF32/f32ToF16).

type podNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

type podSignedConstraints interface {
	int8 | int16 | int32 | int64 | float32 | float64
}

type podIntegerConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

type podFloatConstraints interface {
	float32 | float64
}

// f16ToF32 converts a Float16 buffer to a freshly allocated float32 one.
func f16ToF32(in []float16.Float16) []float32 {
	out := make([]float32, len(in))
	for ii, v := range in {
		out[ii] = v.Float32()
	}
	return out
}

// f32ToF16 converts float32 values back into a Float16 buffer.
func f32ToF16(in []float32, out []float16.Float16) {
	for ii, v := range in {
		out[ii] = float16.Fromfloat32(v)
	}
}

// intPow computes base^exp in O(log exp) multiplications. Negative exponents
// are treated as zero.
func intPow[T podIntegerConstraints](base, exp T) T {
	result := T(1)
	for exp > 0 {
		if exp%2 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
