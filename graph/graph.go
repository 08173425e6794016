// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements the symbolic computation graph at the core of
// symgraph.
//
// A Graph is built by composing ops (Add, Mul, ReduceSum, Scan, ...) over
// Node values. No computation happens while building: each op only validates
// dtypes and shapes (see package shapeinference) and appends a new Node with
// the inferred output shape. The graph is then handed to package exec, which
// optimizes it (package rewrite) and compiles it into an executable function.
//
// It is helpful to keep the different "times" in mind:
//
//   - Graph building time: ops are called, shapes are checked, nodes are
//     created. Errors here (*shapeinference.TypeShapeError and friends) are
//     reported with a reference to the offending node, since this is where
//     the compile/debug loop happens.
//   - Compile time: package exec rewrites the graph (simplification, fusion,
//     in-place marking) and lowers it to an executable program.
//   - Execution time: concrete tensors flow through the compiled program.
//
// Graph building errors are thrown as panics (see github.com/gomlx/exceptions)
// carrying typed error values; the public compile entry point converts them
// back to ordinary errors.
//
// A Graph is logically immutable once built: the rewrite passes produce new
// graphs instead of mutating in place (see TransformGraph), physically sharing
// constants and shared-variable handles.
package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// NodeId is a unique Node id within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// ParameterHandle is the index of a parameter within a Graph, in order of
// creation.
type ParameterHandle int

// TestValuePolicy controls the eager domain checks performed at graph
// building time on constant operands (division by a constant zero, Log or
// Sqrt of a negative constant, ...). Shapes and dtypes are always checked
// regardless of the policy; this only covers value-dependent checks that can
// be resolved from constants without executing the graph.
type TestValuePolicy int

const (
	// TestValueOff disables the eager constant domain checks.
	TestValueOff TestValuePolicy = iota

	// TestValueIgnore runs the checks but discards any finding.
	TestValueIgnore

	// TestValueWarn logs a warning for each finding.
	TestValueWarn

	// TestValueRaise panics (throws) on the first finding.
	TestValueRaise
)

// Graph holds the nodes (operations) and dependencies of a computation being
// defined.
//
// Create it with New, build nodes with the ops functions (see ops.go), then
// compile it with package exec. Methods panic (throw) on invalid use; see
// package documentation.
type Graph struct {
	name string
	id   string

	nodes      []*Node
	parameters []*Node

	parameterNameToHandle map[string]ParameterHandle

	scalars scalarCache

	testValues TestValuePolicy
	traced     bool
}

// New creates an empty Graph with the given name. If name is empty, a unique
// one is generated.
func New(name string) *Graph {
	id := uuid.NewString()
	if name == "" {
		name = "graph-" + id[:8]
	}
	g := &Graph{
		name:                  name,
		id:                    id,
		parameterNameToHandle: make(map[string]ParameterHandle),
		scalars:               make(scalarCache),
	}
	klog.V(2).Infof("graph.New(%q) id=%s", name, g.id)
	return g
}

// Name of the computation this Graph defines.
func (g *Graph) Name() string { return g.name }

// Id returns the unique id of the graph, used for log correlation.
func (g *Graph) Id() string { return g.id }

// AssertValid panics if the graph is nil.
func (g *Graph) AssertValid() {
	if g == nil {
		exceptions.Panicf("Graph is nil")
	}
}

// SetTraced defines whether each node creation stores a stack-trace of where
// it was created, which is helpful for debugging. See Node.Trace.
func (g *Graph) SetTraced(traced bool) {
	g.traced = traced
}

// SetTestValuePolicy configures the eager constant domain checks. The default
// is TestValueOff.
func (g *Graph) SetTestValuePolicy(policy TestValuePolicy) {
	g.testValues = policy
}

// TestValuePolicy returns the current policy for eager constant domain checks.
func (g *Graph) TestValuePolicy() TestValuePolicy { return g.testValues }

// NumNodes returns the number of nodes registered in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeById returns the node with the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// Nodes iterates over all nodes, in creation (hence topological) order.
func (g *Graph) Nodes(fn func(node *Node)) {
	for _, node := range g.nodes {
		fn(node)
	}
}

// registerNode in the graph, returning a new unique id within the Graph.
func (g *Graph) registerNode(node *Node) NodeId {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	return id
}

// NumParameters returns the number of parameters created for this graph.
func (g *Graph) NumParameters() int { return len(g.parameters) }

// ParameterByIndex returns the ii-th parameter, in order of creation.
func (g *Graph) ParameterByIndex(ii int) *Node { return g.parameters[ii] }

// ParameterByName returns the parameter registered with the given name, or
// nil if there is none.
func (g *Graph) ParameterByName(name string) *Node {
	handle, ok := g.parameterNameToHandle[name]
	if !ok {
		return nil
	}
	return g.parameters[handle]
}

// ConsumersMap returns, for each node reachable from roots, the list of nodes
// that read its value. Only nodes in the transitive closure of roots are
// visited. The map is computed on demand; the graph itself doesn't keep
// consumer edges.
func (g *Graph) ConsumersMap(roots []*Node) map[*Node][]*Node {
	consumers := make(map[*Node][]*Node)
	visited := make(map[*Node]bool)
	var visit func(node *Node)
	visit = func(node *Node) {
		if visited[node] {
			return
		}
		visited[node] = true
		if _, present := consumers[node]; !present {
			consumers[node] = nil
		}
		for _, input := range node.inputs {
			consumers[input] = append(consumers[input], node)
			visit(input)
		}
	}
	for _, root := range roots {
		visit(root)
	}
	return consumers
}

// String converts the Graph to a multi-line listing of its nodes.
func (g *Graph) String() string {
	parts := []string{fmt.Sprintf("Graph %q: %d nodes, %d parameters", g.name, len(g.nodes), g.NumParameters())}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}
