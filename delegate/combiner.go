// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
)

// FetchAddCombiner merges the fetch-and-adds issued by the tasks of one
// partition against a single reference. While one remote FetchAndAdd() is in
// flight, further requests accumulate into a batch that the in-flight task
// sends as one FetchAndAdd() once its own completes. Every request still gets
// its own distinct old value.
//
// A FetchAddCombiner belongs to the partition it was created on.
type FetchAddCombiner[T Number] struct {
	ref      gaddr.Ref[T]
	core     gaddr.Core
	flushing bool
	pending  *combinerBatchStruct[T]
}

type combinerBatchStruct[T Number] struct {
	deltas []T
	base   T
	done   *cluster.CompletionEvent
}

// NewFetchAddCombiner returns a FetchAddCombiner for ref owned by t's partition
func NewFetchAddCombiner[T Number](t *cluster.Task, ref gaddr.Ref[T]) *FetchAddCombiner[T] {
	return &FetchAddCombiner[T]{ref: ref, core: t.Core()}
}

// FetchAndAdd behaves as FetchAndAdd(t, ref, delta)
func (combiner *FetchAddCombiner[T]) FetchAndAdd(t *cluster.Task, delta T) (old T) {
	if t.Core() != combiner.core {
		fatal(blunder.NewError(blunder.InvalidArgError, "FetchAddCombiner of core %d used on core %d", combiner.core, t.Core()))
	}

	if nil == combiner.pending {
		combiner.pending = &combinerBatchStruct[T]{done: cluster.NewCompletionEvent(1)}
	}
	batch := combiner.pending
	position := len(batch.deltas)
	batch.deltas = append(batch.deltas, delta)

	if combiner.flushing {
		batch.done.Wait(t)
	} else {
		combiner.flush(t)
	}

	old = batch.base
	for _, earlier := range batch.deltas[:position] {
		old += earlier
	}

	return
}

// flush sends batches until none are pending
func (combiner *FetchAddCombiner[T]) flush(t *cluster.Task) {
	combiner.flushing = true

	for nil != combiner.pending {
		batch := combiner.pending
		combiner.pending = nil

		var sum T
		for _, delta := range batch.deltas {
			sum += delta
		}

		batch.base = FetchAndAdd(t, combiner.ref, sum)
		batch.done.Complete(1)
	}

	combiner.flushing = false
}
