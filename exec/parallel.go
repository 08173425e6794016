// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"sync"
	"sync/atomic"

	"github.com/gomlx/symgraph/graph"
)

// runParallel executes the program with up to maxWorkers nodes in flight.
// Nodes become ready when all their scheduling dependencies (data edges plus
// in-place ordering edges) completed.
//
// After an error the remaining nodes are drained without executing, so every
// worker exits cleanly; the first error is returned.
func (env *execEnv) runParallel(maxWorkers int) error {
	total := len(env.prog.order)
	if maxWorkers <= 1 || total <= 1 {
		return env.runSequential()
	}

	remaining := make([]int64, len(env.prog.numDeps))
	for ii, deps := range env.prog.numDeps {
		remaining[ii] = int64(deps)
	}
	// Buffered for all nodes: sends never block, and the worker that counts
	// the last node closes the channel.
	ready := make(chan *graph.Node, total)
	for _, node := range env.prog.order {
		if remaining[node.Id()] == 0 {
			ready <- node
		}
	}

	var (
		done     atomic.Int64
		failed   atomic.Bool
		errOnce  sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	workers := min(maxWorkers, total)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range ready {
				if !failed.Load() {
					if err := env.executeNode(node); err != nil {
						errOnce.Do(func() { firstErr = err })
						failed.Store(true)
					}
				}
				for _, dep := range env.prog.dependents[node.Id()] {
					if atomic.AddInt64(&remaining[dep], -1) == 0 {
						ready <- env.prog.graph.NodeById(dep)
					}
				}
				if done.Add(1) == int64(total) {
					close(ready)
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}
