// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"container/list"
	"sync"
)

// mailbox is an unbounded FIFO of messages for one partition's dispatcher
type mailbox struct {
	sync.Mutex
	messages *list.List
	closed   bool
	wakeChan chan struct{} // at most one pending wake-up
}

func newMailbox() (mb *mailbox) {
	mb = &mailbox{
		messages: list.New(),
		wakeChan: make(chan struct{}, 1),
	}
	return
}

// push appends msg, returning false if the mailbox has been closed
func (mb *mailbox) push(msg *messageStruct) bool {
	mb.Lock()
	if mb.closed {
		mb.Unlock()
		return false
	}
	_ = mb.messages.PushBack(msg)
	mb.Unlock()

	mb.wake()

	return true
}

// pop blocks for the next message. It returns ok == false once the mailbox is closed and empty.
func (mb *mailbox) pop() (msg *messageStruct, ok bool) {
	for {
		mb.Lock()
		front := mb.messages.Front()
		if nil != front {
			_ = mb.messages.Remove(front)
			mb.Unlock()
			msg = front.Value.(*messageStruct)
			ok = true
			return
		}
		if mb.closed {
			mb.Unlock()
			return
		}
		mb.Unlock()

		<-mb.wakeChan
	}
}

func (mb *mailbox) close() {
	mb.Lock()
	mb.closed = true
	mb.Unlock()

	mb.wake()
}

func (mb *mailbox) len() (n int) {
	mb.Lock()
	n = mb.messages.Len()
	mb.Unlock()
	return
}

func (mb *mailbox) wake() {
	select {
	case mb.wakeChan <- struct{}{}:
	default:
	}
}
