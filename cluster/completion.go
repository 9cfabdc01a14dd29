// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"container/list"
	"sync"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/halter"
)

// CompletionEvent counts outstanding units of work. Tasks may Wait() for the
// count to reach zero, giving up their partition's baton meanwhile.
type CompletionEvent struct {
	sync.Mutex
	pending int
	waiters *list.List // of chan struct{}
}

// NewCompletionEvent returns a CompletionEvent with pending units already enrolled
func NewCompletionEvent(pending int) (event *CompletionEvent) {
	event = &CompletionEvent{
		pending: pending,
		waiters: list.New(),
	}
	return
}

// Enroll adds n outstanding units
func (event *CompletionEvent) Enroll(n int) {
	event.Lock()
	event.pending += n
	event.Unlock()
}

// Complete retires n units, waking every waiter once none remain
func (event *CompletionEvent) Complete(n int) {
	event.Lock()
	event.pending -= n
	if 0 > event.pending {
		event.Unlock()
		err := blunder.NewError(blunder.InvariantError, "CompletionEvent completed more units than enrolled")
		halter.Halt(err)
		panic(err)
	}
	if 0 == event.pending {
		for front := event.waiters.Front(); nil != front; front = event.waiters.Front() {
			close(event.waiters.Remove(front).(chan struct{}))
		}
	}
	event.Unlock()
}

// Pending returns the number of outstanding units
func (event *CompletionEvent) Pending() (pending int) {
	event.Lock()
	pending = event.pending
	event.Unlock()
	return
}

// Wait returns once no units are outstanding
func (event *CompletionEvent) Wait(t *Task) {
	event.Lock()
	if 0 == event.pending {
		event.Unlock()
		return
	}
	waitChan := make(chan struct{})
	_ = event.waiters.PushBack(waitChan)
	event.Unlock()

	t.partition.release()
	<-waitChan
	t.partition.acquire()
}
