// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"sync"

	"github.com/gomlx/exceptions"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// SharedVar is a named, stateful tensor that lives outside any Graph: its
// value persists across calls of a compiled function.
//
// A graph reads it with Graph.ReadShared, and a compiled function updates it
// if an update node is declared for it at compile time (see package exec). A
// SharedVar may be read by any number of graphs.
//
// Value access is protected by a mutex, but the tensor itself is shared: the
// caller must not mutate a tensor obtained from Value.
type SharedVar struct {
	name  string
	mu    sync.Mutex
	value *tensors.Tensor
}

// NewShared creates a shared variable with the given name and initial value.
// The tensor is taken over, not copied.
func NewShared(name string, initial *tensors.Tensor) *SharedVar {
	if initial == nil {
		exceptions.Panicf("NewShared(%q): initial value is nil", name)
	}
	return &SharedVar{name: name, value: initial}
}

// Name of the shared variable.
func (sv *SharedVar) Name() string { return sv.name }

// Shape of the shared variable. Updates must keep it, so it is fixed at
// creation.
func (sv *SharedVar) Shape() shapes.Shape { return sv.value.Shape() }

// Value returns the current tensor held by the variable. The tensor must not
// be mutated; use SetValue to change the variable.
func (sv *SharedVar) Value() *tensors.Tensor {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.value
}

// SetValue replaces the variable's value. The new tensor must have the same
// shape as the current one.
func (sv *SharedVar) SetValue(t *tensors.Tensor) {
	if t == nil {
		exceptions.Panicf("SharedVar(%q).SetValue: tensor is nil", sv.name)
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if !t.Shape().Equal(sv.value.Shape()) {
		exceptions.Panicf("SharedVar(%q).SetValue: shape %s doesn't match variable shape %s",
			sv.name, t.Shape(), sv.value.Shape())
	}
	sv.value = t
}

// ReadShared creates a node that reads the shared variable's value at
// execution time. Multiple reads of the same variable in one graph return the
// same node.
func (g *Graph) ReadShared(sv *SharedVar) *Node {
	g.AssertValid()
	if sv == nil {
		exceptions.Panicf("ReadShared: shared variable is nil")
	}
	for _, node := range g.nodes {
		if node.opType == ops.OpTypeSharedRead && node.data.(*SharedVar) == sv {
			return node
		}
	}
	return g.newNode(ops.OpTypeSharedRead, sv.Shape().Clone(), nil, sv)
}
