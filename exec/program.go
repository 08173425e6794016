// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/tensors"
)

// program is the executable lowering of a (rewritten) graph: the nodes
// reachable from the roots, in an execution order that respects both data
// dependencies and the ordering imposed by in-place buffer reuse.
//
// A program is immutable after newProgram and may be executed concurrently,
// each run with its own execEnv. Scan nodes carry a nested program for their
// step graph, sharing the same buffer pool.
type program struct {
	graph *graph.Graph
	roots []*graph.Node

	// order is the execution order, all live nodes.
	order []*graph.Node

	// numUses counts, by NodeId, how many times a node's value is read:
	// input edges from live nodes plus root occurrences.
	numUses []int

	// dependents and numDeps describe the scheduling DAG (data edges plus
	// in-place ordering edges), used by the parallel executor.
	dependents [][]graph.NodeId
	numDeps    []int

	scans map[graph.NodeId]*scanPlan
	pool  *bufferPool

	hook        NodeHook
	parallelism int
}

// scanPlan is the per-Scan-node compilation: the step graph's program and how
// each output's per-step values are retained.
type scanPlan struct {
	spec      *graph.ScanSpec
	step      *program
	retention []Retention
}

// newProgram lowers the nodes reachable from roots. The pool is shared with
// any nested scan programs.
func newProgram(g *graph.Graph, roots []*graph.Node, pool *bufferPool) (*program, error) {
	p := &program{
		graph: g,
		roots: roots,
		scans: make(map[graph.NodeId]*scanPlan),
		pool:  pool,
	}
	numNodes := g.NumNodes()
	live := make([]bool, numNodes)
	stack := make([]*graph.Node, 0, len(roots))
	for _, root := range roots {
		if root == nil {
			return nil, errors.Errorf("program has a nil root")
		}
		if root.Graph() != g {
			return nil, errors.Errorf("root %s belongs to graph %q, not to %q", root, root.Graph().Name(), g.Name())
		}
		stack = append(stack, root)
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[node.Id()] {
			continue
		}
		live[node.Id()] = true
		stack = append(stack, node.Inputs()...)
	}

	p.numUses = make([]int, numNodes)
	consumers := make([][]graph.NodeId, numNodes)
	g.Nodes(func(node *graph.Node) {
		if !live[node.Id()] {
			return
		}
		for _, input := range node.Inputs() {
			p.numUses[input.Id()]++
			consumers[input.Id()] = append(consumers[input.Id()], node.Id())
		}
	})
	for _, root := range roots {
		p.numUses[root.Id()]++
	}

	// Ordering edges: every other reader of an in-place node's reused input
	// must run before the writer.
	p.dependents = make([][]graph.NodeId, numNodes)
	p.numDeps = make([]int, numNodes)
	g.Nodes(func(node *graph.Node) {
		if !live[node.Id()] {
			return
		}
		for _, input := range node.Inputs() {
			p.dependents[input.Id()] = append(p.dependents[input.Id()], node.Id())
			p.numDeps[node.Id()]++
		}
		if ii := node.InplaceInput(); ii != graph.NoInplace {
			reused := node.Inputs()[ii]
			for _, reader := range consumers[reused.Id()] {
				if reader == node.Id() {
					continue
				}
				p.dependents[reader] = append(p.dependents[reader], node.Id())
				p.numDeps[node.Id()]++
			}
		}
	})

	// Kahn's algorithm, smallest id first so the order is deterministic.
	remaining := make([]int, numNodes)
	copy(remaining, p.numDeps)
	ready := &nodeIdHeap{}
	g.Nodes(func(node *graph.Node) {
		if live[node.Id()] && remaining[node.Id()] == 0 {
			heap.Push(ready, node.Id())
		}
	})
	for ready.Len() > 0 {
		id := heap.Pop(ready).(graph.NodeId)
		node := g.NodeById(id)
		p.order = append(p.order, node)
		for _, dep := range p.dependents[id] {
			remaining[dep]--
			if remaining[dep] == 0 {
				heap.Push(ready, dep)
			}
		}
	}
	numLive := 0
	for _, isLive := range live {
		if isLive {
			numLive++
		}
	}
	if len(p.order) != numLive {
		return nil, errors.Errorf("in-place marks create an ordering cycle in graph %q", g.Name())
	}

	// Lower the scan loops.
	for _, node := range p.order {
		switch node.Type() {
		case ops.OpTypeScan:
			plan, err := newScanPlan(node, pool)
			if err != nil {
				return nil, err
			}
			p.scans[node.Id()] = plan
		case ops.OpTypeScanOutput:
			if node.ScanOutputKind() == graph.ScanOutputHistory {
				scan := node.Inputs()[0]
				p.scans[scan.Id()].retention[node.ScanOutputIndex()] = RetainAll
			}
		default:
			if kernels[node.Type()] == nil && !isSpecialOp(node.Type()) {
				return nil, errors.Errorf("no kernel registered for %s", node.Type())
			}
		}
	}
	return p, nil
}

// newScanPlan lowers a Scan node: the step graph's roots are the output
// results, the shared-variable updates and the until predicate. ScanOutput
// selectors may later upgrade the retention of individual outputs.
func newScanPlan(node *graph.Node, pool *bufferPool) (*scanPlan, error) {
	spec := node.ScanSpec()
	var stepRoots []*graph.Node
	for _, out := range spec.Outputs {
		stepRoots = append(stepRoots, out.Result)
	}
	for _, shared := range spec.Shared {
		stepRoots = append(stepRoots, shared.Update)
	}
	if spec.Until != nil {
		stepRoots = append(stepRoots, spec.Until)
	}
	step, err := newProgram(spec.Step, stepRoots, pool)
	if err != nil {
		return nil, errors.WithMessagef(err, "lowering the step of scan %q", spec.Name)
	}
	return &scanPlan{
		spec:      spec,
		step:      step,
		retention: make([]Retention, len(spec.Outputs)),
	}, nil
}

// isSpecialOp lists the ops executed by the environment itself instead of a
// kernel.
func isSpecialOp(opType ops.OpType) bool {
	switch opType {
	case ops.OpTypeParameter, ops.OpTypeConstant, ops.OpTypeSharedRead,
		ops.OpTypeScan, ops.OpTypeScanOutput:
		return true
	}
	return false
}

// nodeIdHeap is a min-heap of node ids for the deterministic topological sort.
type nodeIdHeap []graph.NodeId

func (h nodeIdHeap) Len() int           { return len(h) }
func (h nodeIdHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nodeIdHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeIdHeap) Push(x any)        { *h = append(*h, x.(graph.NodeId)) }
func (h *nodeIdHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// pendingUpdate is a shared-variable write held back until the call completes.
type pendingUpdate struct {
	variable *graph.SharedVar
	value    *tensors.Tensor
}

// execEnv holds the mutable state of one execution of a program: the buffers
// computed per node, their ownership, and the shared-variable updates
// accumulated along the way.
type execEnv struct {
	prog *program

	// results and owned are indexed by NodeId. A node owns its buffer when it
	// was taken from the pool (or stolen in-place) for this run; borrowed
	// buffers (constants, parameters, views into scan state) are never
	// recycled.
	results []*tensors.Tensor
	owned   []bool

	// remaining counts, per node, the reads still to come; when it hits zero
	// an owned buffer returns to the pool.
	remaining []int

	scanStates map[graph.NodeId]*scanState
	pending    []pendingUpdate

	// retainAll disables buffer recycling and in-place stealing, keeping
	// every node's value alive for the whole run. Used by the verify engine.
	retainAll bool

	mu sync.Mutex
}

func newExecEnv(prog *program, retainAll bool) *execEnv {
	env := &execEnv{
		prog:       prog,
		results:    make([]*tensors.Tensor, prog.graph.NumNodes()),
		owned:      make([]bool, prog.graph.NumNodes()),
		remaining:  make([]int, prog.graph.NumNodes()),
		scanStates: make(map[graph.NodeId]*scanState),
		retainAll:  retainAll,
	}
	copy(env.remaining, prog.numUses)
	return env
}

// reset prepares the environment for another run of the same program.
func (env *execEnv) reset() {
	for ii := range env.results {
		env.results[ii] = nil
		env.owned[ii] = false
	}
	copy(env.remaining, env.prog.numUses)
	clear(env.scanStates)
	env.pending = env.pending[:0]
}

// bind sets a parameter node's value. The tensor is borrowed, never recycled.
func (env *execEnv) bind(node *graph.Node, t *tensors.Tensor) {
	env.results[node.Id()] = t
	env.owned[node.Id()] = false
}

func (env *execEnv) value(node *graph.Node) *tensors.Tensor {
	return env.results[node.Id()]
}

// detach takes the node's buffer out of the environment's ownership, cloning
// it if the environment doesn't own it. The returned tensor survives the run.
func (env *execEnv) detach(node *graph.Node) *tensors.Tensor {
	id := node.Id()
	t := env.results[id]
	if env.owned[id] {
		env.owned[id] = false
		return t
	}
	return t.Clone()
}

// release accounts for one read of the node's value, recycling the buffer on
// the last one. Safe for concurrent use.
func (env *execEnv) release(node *graph.Node) {
	env.mu.Lock()
	defer env.mu.Unlock()
	id := node.Id()
	env.remaining[id]--
	if env.remaining[id] > 0 || env.retainAll {
		return
	}
	if env.owned[id] && env.results[id] != nil {
		env.prog.pool.put(env.results[id])
		env.owned[id] = false
		env.results[id] = nil
	}
}

// recycle returns every buffer still owned to the pool. Called on step
// environments between scan iterations.
func (env *execEnv) recycle() {
	if env.retainAll {
		return
	}
	for id, t := range env.results {
		if env.owned[id] && t != nil {
			env.prog.pool.put(t)
			env.owned[id] = false
			env.results[id] = nil
		}
	}
}

// executeNode computes one node's value into env.results, resolving the
// kernel on every call. The interpreted engine's dispatch.
func (env *execEnv) executeNode(node *graph.Node) error {
	return env.executeNodeWith(node, kernels[node.Type()])
}

// executeNodeWith is executeNode with a pre-resolved kernel (nil for the ops
// the environment executes itself). Inputs must have been computed already; it
// consumes one use of each of them.
func (env *execEnv) executeNodeWith(node *graph.Node, kernel kernelFn) error {
	var start time.Time
	if env.prog.hook != nil {
		start = time.Now()
	}

	var err error
	switch node.Type() {
	case ops.OpTypeParameter:
		if env.results[node.Id()] == nil {
			return errors.Errorf("parameter %q was not bound before execution", node.ParameterName())
		}
	case ops.OpTypeConstant:
		env.bind(node, node.ConstValue())
	case ops.OpTypeSharedRead:
		// Updates are applied only when the call completes, so this is the
		// variable's value at call entry.
		env.bind(node, node.SharedVar().Value())
	case ops.OpTypeScan:
		err = env.executeScan(node)
	case ops.OpTypeScanOutput:
		err = env.executeScanOutput(node)
	default:
		err = env.executeKernel(node, kernel)
	}
	if err != nil {
		return err
	}

	if node.IsLogged() {
		klog.Infof("%s: %s = %s", node.LogMessage(), node, env.results[node.Id()])
	}
	if env.prog.hook != nil {
		stats := NodeStats{Node: node, Duration: time.Since(start)}
		if t := env.results[node.Id()]; t != nil {
			stats.OutputBytes = t.Shape().Memory()
		}
		env.prog.hook(stats)
	}
	for _, input := range node.Inputs() {
		env.release(input)
	}
	return nil
}

// executeKernel runs the kernel for a regular op, reusing the marked input's
// buffer when the in-place pass allowed it.
func (env *execEnv) executeKernel(node *graph.Node, kernel kernelFn) error {
	inputs := make([]*tensors.Tensor, node.NumInputs())
	for ii, input := range node.Inputs() {
		inputs[ii] = env.results[input.Id()]
	}

	var output *tensors.Tensor
	if ii := node.InplaceInput(); ii != graph.NoInplace && !env.retainAll {
		reused := node.Inputs()[ii]
		env.mu.Lock()
		if env.owned[reused.Id()] && env.remaining[reused.Id()] == 1 {
			output = env.results[reused.Id()]
			env.owned[reused.Id()] = false
		}
		env.mu.Unlock()
	}
	if output == nil {
		output = env.prog.pool.get(node.Shape())
	}

	if kernel == nil {
		return errors.Errorf("no kernel registered for %s", node.Type())
	}
	if err := kernel(node, inputs, output); err != nil {
		return errors.WithMessagef(err, "executing %s", node)
	}
	env.results[node.Id()] = output
	env.owned[node.Id()] = true
	return nil
}

// runSequential executes every node once, in program order.
func (env *execEnv) runSequential() error {
	for _, node := range env.prog.order {
		if err := env.executeNode(node); err != nil {
			return err
		}
	}
	return nil
}
