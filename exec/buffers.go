// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"reflect"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// bufferPool recycles the flat storage of intermediate tensors, keyed by
// dtype and number of elements. Executors return a node's buffer here as soon
// as its last reader ran.
type bufferPool struct {
	pools sync.Map // bufferPoolKey -> *sync.Pool
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

func newBufferPool() *bufferPool {
	return &bufferPool{}
}

func (p *bufferPool) poolFor(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := p.pools.Load(key)
	if !ok {
		poolInterface, _ = p.pools.LoadOrStore(key, &sync.Pool{
			New: func() any {
				return reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface()
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// get returns a tensor of the given shape backed by recycled (not zeroed)
// storage.
func (p *bufferPool) get(shape shapes.Shape) *tensors.Tensor {
	flat := p.poolFor(shape.DType, shape.Size()).Get()
	return tensors.FromFlatAndShape(flat, shape)
}

// put recycles the tensor's storage. The tensor must not be used afterward.
func (p *bufferPool) put(t *tensors.Tensor) {
	if t == nil || !t.Shape().Ok() {
		return
	}
	p.poolFor(t.DType(), t.Size()).Put(t.Flat())
}
