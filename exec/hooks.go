// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"
)

// LoggingNodeHook logs every node execution with its duration and output
// size, at klog verbosity 2. Handy as a first profiling pass:
//
//	fn, err := exec.NewConfig(g).WithOutputs(out).WithNodeHook(exec.LoggingNodeHook).Compile()
func LoggingNodeHook(stats NodeStats) {
	klog.V(2).Infof("executed #%d %s in %s (%s)",
		stats.Node.Id(), stats.Node.Type(), stats.Duration, humanize.IBytes(uint64(stats.OutputBytes)))
}
