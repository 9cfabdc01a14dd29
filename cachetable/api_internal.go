// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cachetable

import (
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/logger"
)

func (table *Table) insert(key gaddr.Address) (entry *Entry) {
	var slot int32

	if 0 < len(table.free) {
		slot = table.free[len(table.free)-1]
		table.free = table.free[:len(table.free)-1]
	} else {
		slot = int32(len(table.arena))
		table.arena = append(table.arena, nil)
	}

	entry = &Entry{Key: key, slot: slot, prev: nilSlot, next: nilSlot}
	table.arena[slot] = entry
	table.index[key] = slot
	table.pushFront(slot)

	return
}

// evictOne removes the least recently used idle entry, returning false if every entry is held
func (table *Table) evictOne() bool {
	for slot := table.tail; nilSlot != slot; slot = table.arena[slot].prev {
		victim := table.arena[slot]
		if (0 != victim.refcnt.Load()) || (0 != victim.usedcnt.Load()) {
			continue
		}

		halter.Trigger(halter.CacheTableEvict)

		table.unlink(slot)
		delete(table.index, victim.Key)
		table.arena[slot] = nil
		table.free = append(table.free, slot)

		evictionsTotal.Inc()
		logger.Tracef("core %d evicted %v", table.core, victim.Key)

		return true
	}

	return false
}

func (table *Table) unlink(slot int32) {
	entry := table.arena[slot]

	if nilSlot == entry.prev {
		table.head = entry.next
	} else {
		table.arena[entry.prev].next = entry.next
	}
	if nilSlot == entry.next {
		table.tail = entry.prev
	} else {
		table.arena[entry.next].prev = entry.prev
	}

	entry.prev = nilSlot
	entry.next = nilSlot
}

func (table *Table) pushFront(slot int32) {
	entry := table.arena[slot]

	entry.prev = nilSlot
	entry.next = table.head
	if nilSlot == table.head {
		table.tail = slot
	} else {
		table.arena[table.head].prev = slot
	}
	table.head = slot
}
