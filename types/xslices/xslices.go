// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide generic slice helpers used throughout symgraph.
package xslices

import "golang.org/x/exp/constraints"

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Iota returns a slice of incremental int values, starting with start and of length len.
func Iota[T constraints.Integer | constraints.Float](start T, len int) (slice []T) {
	slice = make([]T, len)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// SliceWithValue creates a slice of the given size filled with the given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// Last returns the last element of a slice. It panics on an empty slice.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}

// Max scans the slice and returns the largest value. It panics on an empty slice.
func Max[T constraints.Ordered](slice []T) (value T) {
	value = slice[0]
	for _, v := range slice[1:] {
		if v > value {
			value = v
		}
	}
	return
}

// Min scans the slice and returns the smallest value. It panics on an empty slice.
func Min[T constraints.Ordered](slice []T) (value T) {
	value = slice[0]
	for _, v := range slice[1:] {
		if v < value {
			value = v
		}
	}
	return
}
