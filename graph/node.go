// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// NoInplace is the value of Node.InplaceInput for nodes that don't execute
// in-place.
const NoInplace = -1

// Node represents the result of an operation in a Graph. It has a fixed
// shape, inferred and validated when the node is created (graph building
// time).
//
// Nodes are pure values from the graph's perspective: they never hold
// concrete data, except for constants.
type Node struct {
	graph  *Graph
	id     NodeId
	opType ops.OpType
	shape  shapes.Shape

	// inputs are the edges of the computation graph. Static attributes of an
	// operation (axes, dtypes, ...) are kept in data instead.
	inputs []*Node

	// data holds the operation's static attributes. Its type depends on
	// opType: *tensors.Tensor for constants, *SharedVar for shared reads,
	// *ScanSpec for scan, etc.
	data any

	// inplaceInput is the index of the input this node overwrites during
	// execution, or NoInplace. Set only by the rewrite engine, never at
	// construction.
	inplaceInput int

	// logMessage is set if the node is marked for logging by executors.
	logMessage string

	trace error // Stack-trace of where the node was created, if graph.traced.
}

// newNode creates and registers a node. All op constructors funnel here.
func (g *Graph) newNode(opType ops.OpType, shape shapes.Shape, inputs []*Node, data any) *Node {
	g.AssertValid()
	for ii, input := range inputs {
		if input == nil {
			exceptions.Panicf("%s: input #%d is nil", opType, ii)
		}
		if input.graph != g {
			exceptions.Panicf("%s: input #%d belongs to graph %q, not to %q", opType, ii, input.graph.name, g.name)
		}
	}
	node := &Node{
		graph:        g,
		opType:       opType,
		shape:        shape,
		inputs:       inputs,
		data:         data,
		inplaceInput: NoInplace,
	}
	node.id = g.registerNode(node)
	if g.traced {
		node.trace = errors.Errorf("stack-trace for %s node creation", opType)
	}
	return node
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph { return n.graph }

// Id is the unique id of this node within its Graph.
func (n *Node) Id() NodeId { return n.id }

// Type identifies the operation performed by the node.
func (n *Node) Type() ops.OpType {
	if n == nil {
		return ops.OpTypeInvalid
	}
	return n.opType
}

// Shape of the Node's output.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Invalid()
	}
	return n.shape
}

// DType returns the DType of the node's shape.
func (n *Node) DType() dtypes.DType { return n.shape.DType }

// Rank returns the rank of the node's shape.
func (n *Node) Rank() int { return n.shape.Rank() }

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool { return n.shape.IsScalar() }

// Inputs are the nodes whose values this node reads.
func (n *Node) Inputs() []*Node { return n.inputs }

// NumInputs returns the number of graph inputs of the node.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Data returns the operation's static attributes; see Node.data.
func (n *Node) Data() any { return n.data }

// AssertValid panics if n is nil or belongs to no graph.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	n.graph.AssertValid()
}

// ParameterName returns the parameter name. It panics if the node is not a
// parameter.
func (n *Node) ParameterName() string {
	return n.parameterData().name
}

// ParameterHandle returns the parameter index in the graph. It panics if the
// node is not a parameter.
func (n *Node) ParameterHandle() ParameterHandle {
	return n.parameterData().handle
}

func (n *Node) parameterData() *parameterNode {
	n.AssertValid()
	if n.opType != ops.OpTypeParameter {
		exceptions.Panicf("node %s is not a Parameter node", n)
	}
	return n.data.(*parameterNode)
}

// ConstValue returns the tensor held by a constant node, or nil for other
// node types.
func (n *Node) ConstValue() *tensors.Tensor {
	if n == nil || n.opType != ops.OpTypeConstant {
		return nil
	}
	return n.data.(*tensors.Tensor)
}

// SharedVar returns the shared variable read by the node. It panics if the
// node is not a SharedRead.
func (n *Node) SharedVar() *SharedVar {
	n.AssertValid()
	if n.opType != ops.OpTypeSharedRead {
		exceptions.Panicf("node %s is not a SharedRead node", n)
	}
	return n.data.(*SharedVar)
}

// InplaceInput returns the index of the input whose storage this node
// overwrites during execution, or NoInplace. In-place marks are placed by the
// rewrite engine only.
func (n *Node) InplaceInput() int { return n.inplaceInput }

// SetInplaceInput marks the node to overwrite the given input's storage
// during execution. Meant to be used by the rewrite engine: it validates
// dtype and dimensions match, but the aliasing safety analysis is the
// caller's responsibility.
func (n *Node) SetInplaceInput(inputIdx int) {
	n.AssertValid()
	if inputIdx == NoInplace {
		n.inplaceInput = NoInplace
		return
	}
	if inputIdx < 0 || inputIdx >= len(n.inputs) {
		exceptions.Panicf("SetInplaceInput(%d): node %s has %d inputs", inputIdx, n, len(n.inputs))
	}
	if !n.inputs[inputIdx].shape.Equal(n.shape) {
		exceptions.Panicf("SetInplaceInput(%d): input shape %s doesn't match node shape %s",
			inputIdx, n.inputs[inputIdx].shape, n.shape)
	}
	n.inplaceInput = inputIdx
}

// SetLogged marks the node to be logged by executors, with the given message.
func (n *Node) SetLogged(message string) { n.logMessage = message }

// IsLogged returns whether the node is marked to be logged.
func (n *Node) IsLogged() bool { return n.logMessage != "" }

// LogMessage associated with the node, if any.
func (n *Node) LogMessage() string { return n.logMessage }

// Trace returns a stack-trace (in the form of an error) of when the node was
// created. Only available if enabled with Graph.SetTraced(true).
func (n *Node) Trace() error { return n.trace }

// String implements fmt.Stringer. Logged nodes are marked with [Logged],
// in-place nodes with [Inplace#i].
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	parts := []string{n.opType.String()}
	switch n.opType {
	case ops.OpTypeParameter:
		parts[0] = fmt.Sprintf("Parameter(%q)", n.parameterData().name)
	case ops.OpTypeConstant:
		parts[0] = fmt.Sprintf("Constant(%s)", n.ConstValue())
	case ops.OpTypeSharedRead:
		parts[0] = fmt.Sprintf("SharedRead(%q)", n.data.(*SharedVar).Name())
	}
	if len(n.inputs) > 0 {
		ids := make([]string, len(n.inputs))
		for ii, input := range n.inputs {
			ids[ii] = fmt.Sprintf("#%d", input.id)
		}
		parts[0] = fmt.Sprintf("%s(%s)", parts[0], strings.Join(ids, ", "))
	}
	if n.inplaceInput != NoInplace {
		parts = append(parts, fmt.Sprintf("[Inplace#%d]", n.inplaceInput))
	}
	if n.logMessage != "" {
		parts = append(parts, "[Logged]")
	}
	return fmt.Sprintf("%s -> %s", strings.Join(parts, " "), n.shape)
}

// parameterNode is the data attached to Parameter nodes.
type parameterNode struct {
	name   string
	handle ParameterHandle
}
