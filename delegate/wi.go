// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/cachetable"
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/logger"
)

// wiProtocol keeps, on the owner, the set of partitions holding a copy. A
// writer locks the object, invalidates every copy, applies its update and
// unlocks. Readers that find the object locked retry.
//
// An entry's Epoch changes with every invalidation. A task only marks its
// entry valid if the Epoch it saw before going to the owner is unchanged, so
// an invalidation overtaking a fetch reply is never lost.
type wiProtocol struct{}

type wiReadReplyStruct struct {
	value  interface{}
	locked bool
}

type wiLockReplyStruct struct {
	copyset []gaddr.Core
	locked  bool // held by another writer; retry
}

type wiUpdateReplyStruct struct {
	old     interface{}
	current interface{}
}

func (*wiProtocol) read(t *cluster.Task, address gaddr.Address, cacheMode CacheMode) (value interface{}) {
	var (
		entry  *cachetable.Entry
		epoch  uint64
		unhold func()
	)

	if isOwner(t, address) {
		meta := t.Partition().Meta.WI(address.Offset)
		for meta.Locked {
			t.Yield()
		}
		value = load(t.Partition(), address)
		return
	}

	register := WriteBack == cacheMode
	reader := t.Core()

	if register {
		entry, unhold = holdEntry(t, address)
		defer unhold()

		if entry.Valid {
			countLookup(t, lookupHit)
			value = entry.Value
			return
		}
		countLookup(t, lookupMiss)
	}

	for {
		if register {
			epoch = entry.Epoch
		}

		countRemote(t, opRead)
		reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
			meta := owner.Meta.WI(address.Offset)
			if meta.Locked {
				return wiReadReplyStruct{locked: true}
			}
			if register {
				meta.Copyset.Add(reader)
			}
			return wiReadReplyStruct{value: load(owner, address)}
		}).(wiReadReplyStruct)

		if reply.locked {
			t.Yield()
			continue
		}

		if register && (epoch == entry.Epoch) {
			entry.Value = reply.value
			entry.Valid = true
		}

		value = reply.value

		return
	}
}

func (*wiProtocol) update(t *cluster.Task, address gaddr.Address, rmw rmwFunc, cacheMode CacheMode) (old interface{}) {
	var (
		entry  *cachetable.Entry
		epoch  uint64
		unhold func()
	)

	if isOwner(t, address) {
		old = wiOwnerUpdate(t, address, rmw)
		return
	}

	writeBack := WriteBack == cacheMode
	writer := t.Core()

	if writeBack {
		entry, unhold = holdEntry(t, address)
		defer unhold()
	}

	var lockReply wiLockReplyStruct

	for {
		countRemote(t, opUpdate)
		lockReply = t.Call(address.Core, func(owner *cluster.Partition) interface{} {
			meta := owner.Meta.WI(address.Offset)
			if meta.Locked {
				return wiLockReplyStruct{locked: true}
			}
			meta.Locked = true
			return wiLockReplyStruct{copyset: meta.Copyset.Members()}
		}).(wiLockReplyStruct)

		if !lockReply.locked {
			break
		}

		t.Yield()
	}

	wiInvalidate(t, address, lockReply.copyset)

	if writeBack {
		epoch = entry.Epoch
	}

	reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
		meta := owner.Meta.WI(address.Offset)
		if !meta.Locked {
			fatal(blunder.NewError(blunder.InvariantError, "WI unlock of %v by core %d found it unlocked", address, writer))
		}

		old, updated, changed := applyRMW(owner, address, rmw)
		if !changed {
			updated = old
		}

		meta.Copyset.Clear()
		if writeBack {
			meta.Copyset.Add(writer)
		}

		halter.Trigger(halter.DelegateWIUnlock)
		meta.Locked = false

		return wiUpdateReplyStruct{old: old, current: updated}
	}).(wiUpdateReplyStruct)

	if writeBack && (epoch == entry.Epoch) {
		entry.Value = reply.current
		entry.Valid = true
	}

	old = reply.old

	return
}

// wiOwnerUpdate is update() by a task on the owning partition
func wiOwnerUpdate(t *cluster.Task, address gaddr.Address, rmw rmwFunc) (old interface{}) {
	p := t.Partition()
	meta := p.Meta.WI(address.Offset)

	for meta.Locked {
		t.Yield()
	}
	meta.Locked = true

	old = load(p, address)
	updated, changed := rmw(old)

	if changed {
		copyset := meta.Copyset.Members()
		meta.Copyset.Clear()
		wiInvalidate(t, address, copyset)
		store(p, address, updated)
	}

	halter.Trigger(halter.DelegateWIUnlock)
	meta.Locked = false

	return
}

// wiInvalidate invalidates the copies of address held by copyset, waiting until all are gone
func wiInvalidate(t *cluster.Task, address gaddr.Address, copyset []gaddr.Core) {
	if 0 == len(copyset) {
		return
	}

	halter.Trigger(halter.DelegateWIInvalidateBroadcast)

	done := cluster.NewCompletionEvent(len(copyset))

	for _, member := range copyset {
		t.Send(member, func(p *cluster.Partition) {
			wiInvalidateLocal(p, address)
		}, done)
	}

	done.Wait(t)

	logger.Tracef("core %d invalidated %v on %v", t.Core(), address, copyset)
}

// wiInvalidateLocal runs on a copyset member. It never blocks.
func wiInvalidateLocal(p *cluster.Partition, address gaddr.Address) {
	entry := p.Cache.Lookup(address)
	if nil == entry {
		wiInvalidationsTotal.WithLabelValues(invalidationUseless).Inc()
		return
	}

	if entry.Valid {
		wiInvalidationsTotal.WithLabelValues(invalidationUseful).Inc()
	} else {
		wiInvalidationsTotal.WithLabelValues(invalidationUseless).Inc()
	}

	entry.Invalidate()
}
