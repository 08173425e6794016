// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/pkg/errors"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// scanState is what a finished Scan node leaves behind for its ScanOutput
// selectors: per output, the stacked history (when retained) and the value at
// the last step taken.
type scanState struct {
	histories []*tensors.Tensor
	lasts     []*tensors.Tensor

	// steps actually taken; less than ScanSpec.NumSteps when an until
	// predicate stopped the loop early.
	steps int
}

// executeScan runs the loop of a Scan node: one execution of the step program
// per step, feeding sequence elements, tapped previous outputs and carried
// shared-variable state into the step graph's parameters.
func (env *execEnv) executeScan(node *graph.Node) error {
	plan := env.prog.scans[node.Id()]
	spec := plan.spec
	scanInputs := node.Inputs()

	seqTensors := make([]*tensors.Tensor, len(spec.Sequences))
	for ii, seq := range spec.Sequences {
		seqTensors[ii] = env.value(scanInputs[seq.Input])
	}
	initials := make([]*tensors.Tensor, len(spec.Outputs))
	for ii, out := range spec.Outputs {
		if out.InitialInput >= 0 {
			initials[ii] = env.value(scanInputs[out.InitialInput])
		}
	}

	// Per-output storage: a full history buffer when retained, otherwise a
	// ring of the last Window values (or just the latest one).
	histories := make([]*tensors.Tensor, len(spec.Outputs))
	rings := make([][]*tensors.Tensor, len(spec.Outputs))
	ringOwned := make([][]bool, len(spec.Outputs))
	lastVals := make([]*tensors.Tensor, len(spec.Outputs))
	lastOwned := make([]bool, len(spec.Outputs))
	for ii, out := range spec.Outputs {
		elem := out.Result.Shape()
		if plan.retention[ii] == RetainAll {
			dims := append([]int{spec.NumSteps}, elem.Dimensions...)
			histories[ii] = env.prog.pool.get(shapes.Make(elem.DType, dims...))
		} else if out.Window > 0 {
			rings[ii] = make([]*tensors.Tensor, out.Window)
			ringOwned[ii] = make([]bool, out.Window)
		}
	}

	// prev reads the committed value of output i at step t+tap (tap < 0),
	// falling back to the initial value for steps before the loop.
	prev := func(i, t, tap int) *tensors.Tensor {
		tt := t + tap
		if tt >= 0 {
			if plan.retention[i] == RetainAll {
				return histories[i].Row(tt)
			}
			return rings[i][tt%spec.Outputs[i].Window]
		}
		initial := initials[i]
		if spec.Outputs[i].Window == 1 {
			return initial
		}
		return initial.Row(initial.Shape().Dim(0) + tt)
	}

	carried := make([]*tensors.Tensor, len(spec.Shared))
	carriedOwned := make([]bool, len(spec.Shared))
	updated := make([]bool, len(spec.Shared))
	for ii, shared := range spec.Shared {
		carried[ii] = env.value(scanInputs[shared.Input])
	}

	stepEnv := newExecEnv(plan.step, env.retainAll)
	steps := 0
	for t := 0; t < spec.NumSteps; t++ {
		if t > 0 {
			stepEnv.reset()
		}
		for ii, seq := range spec.Sequences {
			for jj, tap := range seq.Taps {
				stepEnv.bind(seq.TapParams[jj], seqTensors[ii].Row(spec.T0+t+tap))
			}
		}
		for ii, out := range spec.Outputs {
			for jj, tap := range out.Taps {
				stepEnv.bind(out.TapParams[jj], prev(ii, t, tap))
			}
		}
		for _, nonSeq := range spec.NonSeqs {
			stepEnv.bind(nonSeq.Param, env.value(scanInputs[nonSeq.Input]))
		}
		for ii, shared := range spec.Shared {
			stepEnv.bind(shared.Param, carried[ii])
		}
		if err := stepEnv.runSequential(); err != nil {
			return errors.WithMessagef(err, "scan %q, step %d", spec.Name, t)
		}

		// A true until predicate discards this step's outputs and updates.
		stop := false
		if spec.Until != nil {
			stop = tensors.FlatOf[bool](stepEnv.value(spec.Until))[0]
		}
		if !stop {
			for ii, out := range spec.Outputs {
				value := stepEnv.value(out.Result)
				switch {
				case plan.retention[ii] == RetainAll:
					histories[ii].Row(t).CopyFrom(value)
				case out.Window > 0:
					slot := t % out.Window
					if rings[ii][slot] != nil && ringOwned[ii][slot] {
						env.prog.pool.put(rings[ii][slot])
					}
					rings[ii][slot] = stepEnv.detach(out.Result)
					ringOwned[ii][slot] = true
				default:
					if lastVals[ii] != nil && lastOwned[ii] {
						env.prog.pool.put(lastVals[ii])
					}
					lastVals[ii] = stepEnv.detach(out.Result)
					lastOwned[ii] = true
				}
			}
			for ii, shared := range spec.Shared {
				if shared.Update == shared.Param {
					continue
				}
				value := stepEnv.detach(shared.Update)
				if carriedOwned[ii] {
					env.prog.pool.put(carried[ii])
				}
				carried[ii] = value
				carriedOwned[ii] = true
				updated[ii] = true
			}
			if len(stepEnv.pending) > 0 {
				env.mu.Lock()
				env.pending = append(env.pending, stepEnv.pending...)
				env.mu.Unlock()
				stepEnv.pending = stepEnv.pending[:0]
			}
			steps++
		}
		stepEnv.recycle()
		if stop {
			break
		}
	}

	state := &scanState{
		histories: make([]*tensors.Tensor, len(spec.Outputs)),
		lasts:     make([]*tensors.Tensor, len(spec.Outputs)),
		steps:     steps,
	}
	for ii, out := range spec.Outputs {
		switch {
		case plan.retention[ii] == RetainAll:
			state.histories[ii] = histories[ii].SubLeading(steps)
			if steps > 0 {
				state.lasts[ii] = histories[ii].Row(steps - 1)
			}
		case steps > 0:
			if out.Window > 0 {
				state.lasts[ii] = rings[ii][(steps-1)%out.Window]
			} else {
				state.lasts[ii] = lastVals[ii]
			}
		}
		if steps == 0 && out.Window > 0 {
			// Zero steps: the last value falls back to the initial. The scan's
			// inputs are released when the node finishes, so copy.
			if out.Window == 1 {
				state.lasts[ii] = initials[ii].Clone()
			} else {
				state.lasts[ii] = initials[ii].Row(initials[ii].Shape().Dim(0) - 1).Clone()
			}
		}
	}
	env.mu.Lock()
	for ii, shared := range spec.Shared {
		if updated[ii] {
			env.pending = append(env.pending, pendingUpdate{variable: shared.Var, value: carried[ii]})
		}
	}
	env.scanStates[node.Id()] = state
	env.mu.Unlock()
	return nil
}

// executeScanOutput reads one value out of a finished scan's state.
func (env *execEnv) executeScanOutput(node *graph.Node) error {
	scan := node.Inputs()[0]
	env.mu.Lock()
	state := env.scanStates[scan.Id()]
	env.mu.Unlock()
	idx := node.ScanOutputIndex()
	switch node.ScanOutputKind() {
	case graph.ScanOutputHistory:
		env.bind(node, state.histories[idx])
	case graph.ScanOutputLast:
		if state.lasts[idx] == nil {
			return errors.Errorf("scan %q took no steps and output #%d has no initial value to fall back on",
				scan.ScanSpec().Name, idx)
		}
		env.bind(node, state.lasts[idx])
	}
	return nil
}
