// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package cluster provides the partitions of the global address space and the
// cooperative scheduler and message substrate that run on them.
//
// Every Partition has a baton. Exactly one task or message handler holds it at
// a time, so partition-local state (heap, owner metadata, cache table, clock)
// is only ever mutated by the holder. A task gives the baton up only at its
// yield points: Yield(), a Call() to another partition, and Wait() on a
// CompletionEvent. Message handlers run with the destination's baton held and
// never block.
//
// Tasks are goroutines. Messages are closures pushed to the destination's
// mailbox and run by that partition's dispatcher goroutine.
package cluster

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/cachetable"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/heap"
	"github.com/NVIDIA/pgas/logger"
	"github.com/NVIDIA/pgas/ownermeta"
)

// Cluster is a set of partitions sharing one coherence configuration
type Cluster struct {
	config      Config
	partitions  []*Partition
	running     atomic.Bool
	nextTaskID  atomic.Uint64
	dispatchers sync.WaitGroup
}

// Partition is the per-partition context reachable from every Task
type Partition struct {
	Core  gaddr.Core
	Heap  *heap.Heap
	Meta  *ownermeta.Table
	Cache *cachetable.Table
	Clock gaddr.Clock

	cluster     *Cluster
	baton       chan struct{}
	mailbox     *mailbox
	outstanding *CompletionEvent
}

// Task is the handle a running task uses to reach its partition and to yield
type Task struct {
	id        uint64
	partition *Partition
	run       *runStruct
}

// New starts a Cluster of config.Partitions partitions
func New(config Config) (cluster *Cluster, err error) {
	if 0 == config.Partitions {
		err = blunder.NewError(blunder.InvalidArgError, "cluster.New() requires at least one partition")
		return
	}
	if !config.Coherence.Protocol.valid() {
		err = blunder.NewError(blunder.UnknownProtocolError, "cluster.New() given unknown protocol %d", config.Coherence.Protocol)
		return
	}

	cluster = &Cluster{
		config:     config,
		partitions: make([]*Partition, config.Partitions),
	}

	for core := range cluster.partitions {
		cluster.partitions[core] = &Partition{
			Core:        gaddr.Core(core),
			Heap:        heap.New(gaddr.Core(core)),
			Meta:        ownermeta.New(config.Coherence.Lease),
			Cache:       cachetable.New(gaddr.Core(core), config.Coherence.MaxCacheEntries),
			cluster:     cluster,
			baton:       make(chan struct{}, 1),
			mailbox:     newMailbox(),
			outstanding: NewCompletionEvent(0),
		}
	}

	cluster.running.Store(true)

	for _, partition := range cluster.partitions {
		cluster.dispatchers.Add(1)
		go partition.dispatch()
	}

	logger.Infof("cluster started with %d partitions, protocol %v", config.Partitions, config.Coherence.Protocol)

	return
}

// Stop drains every mailbox and stops the dispatchers. Tasks must have finished.
func (cluster *Cluster) Stop() (err error) {
	if !cluster.running.CAS(true, false) {
		err = blunder.NewError(blunder.NotRunningError, "cluster.Stop() called on stopped cluster")
		return
	}

	for _, partition := range cluster.partitions {
		partition.mailbox.close()
	}

	cluster.dispatchers.Wait()

	logger.Infof("cluster stopped")

	return
}

// Running reports whether Stop() has yet to be called
func (cluster *Cluster) Running() bool {
	return cluster.running.Load()
}

// Config returns the configuration the cluster was started with
func (cluster *Cluster) Config() Config {
	return cluster.config
}

// Partitions returns the number of partitions
func (cluster *Cluster) Partitions() int {
	return len(cluster.partitions)
}

// Partition returns the partition for core (nil if out of range)
func (cluster *Cluster) Partition(core gaddr.Core) *Partition {
	if int(core) >= len(cluster.partitions) {
		return nil
	}
	return cluster.partitions[core]
}

// Run executes fn as a task on core and returns once it and every task it
// (transitively) spawned have finished. A panic in any of those tasks, or in
// a handler they called, is re-raised here.
func (cluster *Cluster) Run(core gaddr.Core, fn func(t *Task)) (err error) {
	partition, err := cluster.lookup(core)
	if nil != err {
		return
	}

	run := newRun()
	partition.startTask(run, fn)
	run.wait()

	return
}

// RunAll executes fn as a task on every partition concurrently and returns once all have finished
func (cluster *Cluster) RunAll(fn func(t *Task)) (err error) {
	if !cluster.running.Load() {
		err = blunder.NewError(blunder.NotRunningError, "cluster.RunAll() called on stopped cluster")
		return
	}

	run := newRun()
	for _, partition := range cluster.partitions {
		partition.startTask(run, fn)
	}
	run.wait()

	return
}

// Outstanding returns the completion event tracking the partition's asynchronous operations
func (partition *Partition) Outstanding() *CompletionEvent {
	return partition.outstanding
}

// Cluster returns the cluster partition belongs to
func (partition *Partition) Cluster() *Cluster {
	return partition.cluster
}

func (partition *Partition) String() string {
	return fmt.Sprintf("partition %d", partition.Core)
}

// ID returns a cluster-unique task identifier
func (t *Task) ID() uint64 {
	return t.id
}

// Partition returns the partition t is running on
func (t *Task) Partition() *Partition {
	return t.partition
}

// Core returns the core t is running on
func (t *Task) Core() gaddr.Core {
	return t.partition.Core
}

// Cluster returns the cluster t is running in
func (t *Task) Cluster() *Cluster {
	return t.partition.cluster
}

// Yield lets other tasks and message handlers of the partition run
func (t *Task) Yield() {
	t.partition.yield()
}

// Spawn starts fn as a new task on t's partition. Run() waits for it.
func (t *Task) Spawn(fn func(t *Task)) {
	t.partition.startTask(t.run, fn)
}

// Call runs fn on partition dst and returns its result. When dst is t's own
// partition fn runs inline; otherwise t yields until the reply arrives.
func (t *Task) Call(dst gaddr.Core, fn func(p *Partition) interface{}) (result interface{}) {
	if dst == t.partition.Core {
		result = fn(t.partition)
		return
	}

	target := t.partition.cluster.mustLookup(dst)

	replyChan := make(chan replyStruct, 1)
	target.post(&messageStruct{fn: fn, replyChan: replyChan, run: t.run})

	t.partition.release()
	reply := <-replyChan
	t.partition.acquire()

	if nil != reply.panicValue {
		panic(reply.panicValue)
	}

	result = reply.value

	return
}

// Send runs fn on partition dst without waiting for it. If done is non-nil, it
// is completed once fn has run (the caller enrolls it beforehand).
func (t *Task) Send(dst gaddr.Core, fn func(p *Partition), done *CompletionEvent) {
	if dst == t.partition.Core {
		fn(t.partition)
		if nil != done {
			done.Complete(1)
		}
		return
	}

	target := t.partition.cluster.mustLookup(dst)

	target.post(&messageStruct{
		fn: func(p *Partition) interface{} {
			fn(p)
			return nil
		},
		done: done,
		run:  t.run,
	})
}
