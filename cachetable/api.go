// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package cachetable is a partition's bounded table of cached copies of remote objects.
//
// Entries live in an arena and are linked into LRU order by arena index. Every
// accessor follows the same discipline:
//
//   entry, _ := table.Find(key)   // usedcnt++ : entry cannot be evicted
//   for entry.Busy() { yield }    // wait out any other active accessor
//   table.Activate(entry)         // refcnt++  : exclusive use of the metadata
//   ... read/refresh entry ...
//   table.Deactivate(entry)
//   table.Release(entry)
//
// An entry is only ever evicted with refcnt == 0 and usedcnt == 0. Should no such
// entry exist when a new key is inserted at capacity, the table grows past its
// bound and shrinks back as entries are released.
package cachetable

import (
	"go.uber.org/atomic"

	"github.com/NVIDIA/pgas/gaddr"
)

// Entry is one cached copy
type Entry struct {
	Key   gaddr.Address
	Value interface{}
	Valid bool
	Rts   gaddr.Timestamp // Tardis
	Wts   gaddr.Timestamp // Tardis
	Epoch uint64          // bumped by each invalidation

	refcnt  atomic.Int32
	usedcnt atomic.Int32

	slot int32
	prev int32
	next int32
}

// Refcnt returns the number of active accessors
func (entry *Entry) Refcnt() int32 {
	return entry.refcnt.Load()
}

// Usedcnt returns the number of holders of entry
func (entry *Entry) Usedcnt() int32 {
	return entry.usedcnt.Load()
}

// Busy reports whether another accessor has entry activated
func (entry *Entry) Busy() bool {
	return 0 < entry.refcnt.Load()
}

// Invalidate marks the cached copy stale. An accessor that fetched before the
// invalidation notices via the Epoch change and must not mark the entry valid.
func (entry *Entry) Invalidate() {
	entry.Valid = false
	entry.Epoch++
}

// Table is one partition's cache table
type Table struct {
	core     gaddr.Core
	capacity int
	arena    []*Entry
	free     []int32
	index    map[gaddr.Address]int32
	head     int32 // most recently used
	tail     int32 // least recently used
}

const nilSlot int32 = -1

// New returns an empty Table for core holding up to capacity entries (0 means unbounded)
func New(core gaddr.Core, capacity int) (table *Table) {
	table = &Table{
		core:     core,
		capacity: capacity,
		arena:    make([]*Entry, 0),
		free:     make([]int32, 0),
		index:    make(map[gaddr.Address]int32),
		head:     nilSlot,
		tail:     nilSlot,
	}
	return
}

// Find returns the entry for key, creating an invalid one if needed (found == false).
// The caller holds the entry until Release().
func (table *Table) Find(key gaddr.Address) (entry *Entry, found bool) {
	slot, found := table.index[key]
	if found {
		entry = table.arena[slot]
		table.unlink(slot)
		table.pushFront(slot)
	} else {
		if (0 < table.capacity) && (len(table.index) >= table.capacity) {
			if !table.evictOne() {
				overflowsTotal.Inc()
			}
		}
		entry = table.insert(key)
	}

	entry.usedcnt.Inc()

	return
}

// Lookup returns the entry for key (or nil) without holding it or touching LRU order
func (table *Table) Lookup(key gaddr.Address) (entry *Entry) {
	slot, found := table.index[key]
	if found {
		entry = table.arena[slot]
	}
	return
}

// Release drops a hold obtained by Find()
func (table *Table) Release(entry *Entry) {
	entry.usedcnt.Dec()

	for (0 < table.capacity) && (len(table.index) > table.capacity) {
		if !table.evictOne() {
			break
		}
	}
}

// Activate marks entry as in use by an accessor
func (table *Table) Activate(entry *Entry) {
	entry.refcnt.Inc()
}

// Deactivate reverses Activate()
func (table *Table) Deactivate(entry *Entry) {
	entry.refcnt.Dec()
}

// Reset invalidates every entry
func (table *Table) Reset() {
	for _, slot := range table.index {
		table.arena[slot].Invalidate()
	}
}

// Len returns the number of entries
func (table *Table) Len() int {
	return len(table.index)
}

// Capacity returns the configured bound (0 means unbounded)
func (table *Table) Capacity() int {
	return table.capacity
}

// Entries returns every entry from most to least recently used
func (table *Table) Entries() (entries []*Entry) {
	entries = make([]*Entry, 0, len(table.index))
	for slot := table.head; nilSlot != slot; slot = table.arena[slot].next {
		entries = append(entries, table.arena[slot])
	}
	return
}
