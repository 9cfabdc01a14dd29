// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package delegate implements the coherent operations on global references.
//
// Each operation is run by the calling task and dispatched to the protocol the
// cluster was configured with (Vanilla, Tardis or WI). When the caller's
// partition owns the referent the protocol takes its local path; otherwise it
// consults the caller's cache table and, on a miss, runs a closure on the owner.
//
// None of the operations return errors. A mismatch between the type an
// operation is instantiated with and the type of the allocation, or a violated
// protocol invariant, halts the process.
package delegate

import (
	"reflect"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/heap"
)

// SyncMode selects whether a write waits for completion
type SyncMode int

const (
	Blocking SyncMode = iota
	Async             // completes in a spawned task; see Flush()
)

// CacheMode selects whether the caller keeps a cached copy
type CacheMode int

const (
	WriteBack    CacheMode = iota
	WriteThrough           // go to the owner and leave the local cache untouched
)

// Option is accepted by the operations that honor a SyncMode or CacheMode
type Option interface {
	apply(options *optionsStruct)
}

type optionsStruct struct {
	syncMode  SyncMode
	cacheMode CacheMode
}

func (syncMode SyncMode) apply(options *optionsStruct) {
	options.syncMode = syncMode
}

func (cacheMode CacheMode) apply(options *optionsStruct) {
	options.cacheMode = cacheMode
}

// Number is the set of element types FetchAndAdd() and Increment() accept
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Read returns the value at ref
func Read[T any](t *cluster.Task, ref gaddr.Ref[T], opts ...Option) (value T) {
	options := makeOptions(opts)
	address := ref.Address()

	measure(t, opRead, func(protocol protocolInterface) {
		value = castOrHalt[T](address, protocol.read(t, address, options.cacheMode))
	})

	return
}

// Write stores value at ref
func Write[T any](t *cluster.Task, ref gaddr.Ref[T], value T, opts ...Option) {
	options := makeOptions(opts)
	address := ref.Address()

	rmw := func(old interface{}) (interface{}, bool) {
		return value, true
	}

	runMaybeAsync(t, options, func(ti *cluster.Task) {
		measure(ti, opWrite, func(protocol protocolInterface) {
			_ = protocol.update(ti, address, rmw, options.cacheMode)
		})
	})
}

// FetchAndAdd atomically adds delta to the value at ref and returns the prior value
func FetchAndAdd[T Number](t *cluster.Task, ref gaddr.Ref[T], delta T, opts ...Option) (old T) {
	options := makeOptions(opts)
	address := ref.Address()

	rmw := func(current interface{}) (interface{}, bool) {
		return castOrHalt[T](address, current) + delta, true
	}

	measure(t, opFetchAdd, func(protocol protocolInterface) {
		old = castOrHalt[T](address, protocol.update(t, address, rmw, options.cacheMode))
	})

	return
}

// Increment adds delta to the value at ref without waiting for the result
func Increment[T Number](t *cluster.Task, ref gaddr.Ref[T], delta T, opts ...Option) {
	options := makeOptions(append([]Option{Async}, opts...))
	address := ref.Address()

	rmw := func(current interface{}) (interface{}, bool) {
		return castOrHalt[T](address, current) + delta, true
	}

	runMaybeAsync(t, options, func(ti *cluster.Task) {
		measure(ti, opFetchAdd, func(protocol protocolInterface) {
			_ = protocol.update(ti, address, rmw, options.cacheMode)
		})
	})
}

// CompareAndSwap stores newValue at ref if it holds expected, reporting whether it did.
// A failed comparison behaves as a read.
func CompareAndSwap[T comparable](t *cluster.Task, ref gaddr.Ref[T], expected T, newValue T, opts ...Option) (swapped bool) {
	options := makeOptions(opts)
	address := ref.Address()

	rmw := func(current interface{}) (interface{}, bool) {
		if castOrHalt[T](address, current) == expected {
			return newValue, true
		}
		return current, false
	}

	measure(t, opCompareAndSwap, func(protocol protocolInterface) {
		swapped = castOrHalt[T](address, protocol.update(t, address, rmw, options.cacheMode)) == expected
	})

	return
}

// Call runs fn on partition core (inline if core is the caller's) and returns its result
func Call[R any](t *cluster.Task, core gaddr.Core, fn func(p *cluster.Partition) R) (result R) {
	measure(t, opCall, func(protocolInterface) {
		if core != t.Core() {
			countRemote(t, opCall)
		}
		if value := t.Call(core, func(p *cluster.Partition) interface{} { return fn(p) }); nil != value {
			result = value.(R)
		}
	})
	return
}

type allocReplyStruct[T any] struct {
	ref gaddr.Ref[T]
	err error
}

// Alloc reserves count zeroed T elements on partition core
func Alloc[T any](t *cluster.Task, core gaddr.Core, count uint64) (ref gaddr.Ref[T], err error) {
	reply := t.Call(core, func(p *cluster.Partition) interface{} {
		ref, err := heap.Alloc[T](p.Heap, count)
		return allocReplyStruct[T]{ref: ref, err: err}
	}).(allocReplyStruct[T])

	ref, err = reply.ref, reply.err

	return
}

// Flush waits for every asynchronous operation issued from the caller's partition
func Flush(t *cluster.Task) {
	t.Partition().Outstanding().Wait(t)
}

// ResetCache invalidates every cache entry on every partition
func ResetCache(t *cluster.Task) {
	partitions := t.Cluster().Partitions()
	done := cluster.NewCompletionEvent(partitions)

	for core := 0; core < partitions; core++ {
		t.Send(gaddr.Core(core), func(p *cluster.Partition) { p.Cache.Reset() }, done)
	}

	done.Wait(t)
}

// AdvanceClock moves the caller's logical clock forward by delta, returning the new time.
// Under Tardis this is how a partition lets its cached leases expire.
func AdvanceClock(t *cluster.Task, delta uint64) gaddr.Timestamp {
	return t.Partition().Clock.Tick(delta)
}

// RenewExpired refreshes every expired Tardis cache entry of the caller's
// partition not currently in use, returning the number renewed
func RenewExpired(t *cluster.Task) (renewed int) {
	if cluster.Tardis != t.Cluster().Config().Coherence.Protocol {
		return
	}
	renewed = tardisRenewExpired(t)
	return
}

func makeOptions(opts []Option) (options optionsStruct) {
	for _, opt := range opts {
		opt.apply(&options)
	}
	return
}

func runMaybeAsync(t *cluster.Task, options optionsStruct, fn func(ti *cluster.Task)) {
	if Blocking == options.syncMode {
		fn(t)
		return
	}

	outstanding := t.Partition().Outstanding()
	outstanding.Enroll(1)

	t.Spawn(func(ti *cluster.Task) {
		defer outstanding.Complete(1)
		fn(ti)
	})
}

// castOrHalt converts a stored value to T, halting on mismatch
func castOrHalt[T any](address gaddr.Address, value interface{}) (typed T) {
	if nil == value {
		return
	}
	typed, ok := value.(T)
	if !ok {
		fatal(blunder.NewError(blunder.TypeMismatchError, "object at %v holds %v, accessed as %v",
			address, reflect.TypeOf(value), reflect.TypeOf((*T)(nil)).Elem()))
	}
	return
}

// fatal halts the process. Should a test have diverted the halt, the operation is abandoned by panic.
func fatal(err error) {
	halter.Halt(err)
	panic(err)
}
