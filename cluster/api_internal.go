// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"runtime"
	"sync"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/logger"
)

// runStruct tracks the tasks started on behalf of one Run()/RunAll()
type runStruct struct {
	sync.Mutex
	tasks      sync.WaitGroup
	panicValue interface{}
}

type messageStruct struct {
	fn        func(p *Partition) interface{}
	replyChan chan replyStruct // nil for Send()
	done      *CompletionEvent
	run       *runStruct
}

type replyStruct struct {
	value      interface{}
	panicValue interface{}
}

func newRun() (run *runStruct) {
	run = &runStruct{}
	return
}

// recordPanic keeps the first panic raised under run
func (run *runStruct) recordPanic(panicValue interface{}) {
	run.Lock()
	if nil == run.panicValue {
		run.panicValue = panicValue
	}
	run.Unlock()
}

func (run *runStruct) wait() {
	run.tasks.Wait()

	run.Lock()
	panicValue := run.panicValue
	run.Unlock()

	if nil != panicValue {
		panic(panicValue)
	}
}

func (cluster *Cluster) lookup(core gaddr.Core) (partition *Partition, err error) {
	if !cluster.running.Load() {
		err = blunder.NewError(blunder.NotRunningError, "cluster not running")
		return
	}
	partition = cluster.Partition(core)
	if nil == partition {
		err = blunder.NewError(blunder.BadCoreError, "core %d out of range [0,%d)", core, len(cluster.partitions))
	}
	return
}

// mustLookup is lookup() for paths that cannot return an error
func (cluster *Cluster) mustLookup(core gaddr.Core) (partition *Partition) {
	partition, err := cluster.lookup(core)
	if nil != err {
		halter.Halt(err)
		panic(err)
	}
	return
}

// post queues msg for partition's dispatcher
func (partition *Partition) post(msg *messageStruct) {
	if !partition.mailbox.push(msg) {
		err := blunder.NewError(blunder.NotRunningError, "message posted to stopped %v", partition)
		halter.Halt(err)
		panic(err)
	}
}

func (partition *Partition) acquire() {
	partition.baton <- struct{}{}
}

func (partition *Partition) release() {
	<-partition.baton
}

// yield hands the baton to the longest waiting task or handler, if any
func (partition *Partition) yield() {
	partition.release()
	runtime.Gosched()
	partition.acquire()
}

func (partition *Partition) startTask(run *runStruct, fn func(t *Task)) {
	t := &Task{
		id:        partition.cluster.nextTaskID.Inc(),
		partition: partition,
		run:       run,
	}

	run.tasks.Add(1)

	go func() {
		defer run.tasks.Done()

		partition.acquire()
		defer partition.release()

		defer func() {
			if panicValue := recover(); nil != panicValue {
				logger.Errorf("task %d on %v panicked: %v", t.id, partition, panicValue)
				run.recordPanic(panicValue)
			}
		}()

		fn(t)
	}()
}

func (partition *Partition) dispatch() {
	defer partition.cluster.dispatchers.Done()

	for {
		msg, ok := partition.mailbox.pop()
		if !ok {
			return
		}

		partition.acquire()
		partition.handle(msg)
		partition.release()
	}
}

func (partition *Partition) handle(msg *messageStruct) {
	var (
		reply replyStruct
	)

	defer func() {
		if panicValue := recover(); nil != panicValue {
			reply.panicValue = panicValue
			if nil == msg.replyChan {
				logger.Errorf("handler on %v panicked: %v", partition, panicValue)
				msg.run.recordPanic(panicValue)
			}
		}
		if nil != msg.replyChan {
			msg.replyChan <- reply
		}
		if nil != msg.done {
			msg.done.Complete(1)
		}
	}()

	reply.value = msg.fn(partition)
}
