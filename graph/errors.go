// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import "fmt"

// ScanSignatureError reports a malformed Scan declaration: a step function
// whose arity or shapes don't match the declared sequences, taps and carried
// state.
type ScanSignatureError struct {
	Scan    string // Name of the scan, for context.
	Message string
}

// Error implements the error interface.
func (e *ScanSignatureError) Error() string {
	return fmt.Sprintf("scan %q: invalid signature: %s", e.Scan, e.Message)
}

func scanSignatureErrorf(scanName, format string, args ...any) error {
	return &ScanSignatureError{Scan: scanName, Message: fmt.Sprintf(format, args...)}
}

// TapWindowError reports a tap window that cannot be satisfied: offsets of the
// wrong sign, initial values too short for the window, or sequences shorter
// than the requested number of steps.
type TapWindowError struct {
	Scan    string
	Message string
}

// Error implements the error interface.
func (e *TapWindowError) Error() string {
	return fmt.Sprintf("scan %q: %s", e.Scan, e.Message)
}

func tapWindowErrorf(scanName, format string, args ...any) error {
	return &TapWindowError{Scan: scanName, Message: fmt.Sprintf(format, args...)}
}
