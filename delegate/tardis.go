// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/NVIDIA/pgas/cachetable"
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/logger"
)

// tardisProtocol orders accesses by logical time. A cached copy carries the
// interval [wts, rts] during which it is known to be current; a partition may
// use it while its clock (pts) has not passed rts. A write moves the object
// past every lease granted so far, so no invalidation is ever sent.
type tardisProtocol struct{}

type tardisReplyStruct struct {
	value   interface{}
	wts     gaddr.Timestamp
	rts     gaddr.Timestamp
	renewed bool // lease extended on the cached copy; value not shipped
}

type tardisUpdateReplyStruct struct {
	old     interface{}
	current interface{}
	wts     gaddr.Timestamp
	rts     gaddr.Timestamp
}

func (*tardisProtocol) read(t *cluster.Task, address gaddr.Address, cacheMode CacheMode) (value interface{}) {
	p := t.Partition()

	if isOwner(t, address) {
		var wts gaddr.Timestamp
		value, wts = tardisOwnerRead(p, address, p.Clock.Now())
		p.Clock.AdvanceTo(wts)
		return
	}

	if WriteThrough == cacheMode {
		pts := p.Clock.Now()
		countRemote(t, opRead)
		reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
			value, wts := tardisOwnerRead(owner, address, pts)
			return tardisReplyStruct{value: value, wts: wts}
		}).(tardisReplyStruct)
		p.Clock.AdvanceTo(reply.wts)
		value = reply.value
		return
	}

	entry, unhold := holdEntry(t, address)
	defer unhold()

	pts := p.Clock.Now()

	switch {
	case !entry.Valid:
		countLookup(t, lookupMiss)
	case pts > entry.Rts:
		countLookup(t, lookupExpired)
	default:
		countLookup(t, lookupHit)
		value = entry.Value
		return
	}

	twoStage := t.Cluster().Config().Coherence.TwoStageRenewal && entry.Valid
	cachedWts := entry.Wts

	countRemote(t, opRead)
	reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
		return tardisRenew(owner, address, pts, cachedWts, twoStage)
	}).(tardisReplyStruct)

	tardisRefresh(p, entry, reply)
	value = entry.Value

	return
}

func (*tardisProtocol) update(t *cluster.Task, address gaddr.Address, rmw rmwFunc, cacheMode CacheMode) (old interface{}) {
	var (
		entry  *cachetable.Entry
		unhold func()
	)

	p := t.Partition()

	if isOwner(t, address) {
		reply := tardisOwnerUpdate(p, address, p.Clock.Now(), rmw)
		p.Clock.AdvanceTo(reply.wts)
		old = reply.old
		return
	}

	if WriteBack == cacheMode {
		entry, unhold = holdEntry(t, address)
		defer unhold()
	}

	pts := p.Clock.Now()

	countRemote(t, opUpdate)
	reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
		return tardisOwnerUpdate(owner, address, pts, rmw)
	}).(tardisUpdateReplyStruct)

	p.Clock.AdvanceTo(reply.wts)

	if nil != entry {
		entry.Value = reply.current
		entry.Wts = reply.wts
		entry.Rts = reply.rts
		entry.Valid = true
	}

	old = reply.old

	return
}

// tardisOwnerRead runs on the owner for a reader at logical time pts.
// The object's rts is pushed to cover the reader.
func tardisOwnerRead(owner *cluster.Partition, address gaddr.Address, pts gaddr.Timestamp) (value interface{}, wts gaddr.Timestamp) {
	meta := owner.Meta.Tardis(address.Offset)

	meta.Rts = gaddr.MaxTimestamp(meta.Rts, pts, meta.Wts)

	value = load(owner, address)
	wts = meta.Wts

	return
}

// tardisRenew runs on the owner to grant a lease to a remote cacher at logical
// time pts. With twoStage set and the cacher's copy still current (its wts
// matches) only the new rts is returned.
func tardisRenew(owner *cluster.Partition, address gaddr.Address, pts gaddr.Timestamp, cachedWts gaddr.Timestamp, twoStage bool) (reply tardisReplyStruct) {
	maxLease := owner.Cluster().Config().Coherence.Lease
	meta := owner.Meta.Tardis(address.Offset)

	meta.Lease++
	if meta.Lease > maxLease {
		meta.Lease = maxLease
	}

	lease := gaddr.Timestamp(meta.Lease)
	meta.Rts = gaddr.MaxTimestamp(meta.Rts, meta.Wts+lease, pts+lease)

	reply.wts = meta.Wts
	reply.rts = meta.Rts

	if twoStage {
		if meta.Wts == cachedWts {
			reply.renewed = true
			return
		}
		halter.Trigger(halter.DelegateTardisRenewStale)
	}

	reply.value = load(owner, address)

	return
}

// tardisOwnerUpdate runs on the owner for a writer at logical time pts.
// The new version's timestamp follows every lease handed out for the old one.
func tardisOwnerUpdate(owner *cluster.Partition, address gaddr.Address, pts gaddr.Timestamp, rmw rmwFunc) (reply tardisUpdateReplyStruct) {
	meta := owner.Meta.Tardis(address.Offset)

	old, updated, changed := applyRMW(owner, address, rmw)
	if !changed {
		reply.old = old
		reply.current, reply.wts = tardisOwnerRead(owner, address, pts)
		reply.rts = meta.Rts
		return
	}

	ts := gaddr.MaxTimestamp(pts, meta.Rts+1)
	meta.Wts = ts
	meta.Rts = ts
	meta.Lease = 1

	reply.old = old
	reply.current = updated
	reply.wts = ts
	reply.rts = ts

	return
}

// tardisRefresh installs a renewal reply into the caller's entry
func tardisRefresh(p *cluster.Partition, entry *cachetable.Entry, reply tardisReplyStruct) {
	if reply.renewed {
		tardisRenewalsTotal.WithLabelValues(renewalFast).Inc()
	} else {
		tardisRenewalsTotal.WithLabelValues(renewalFull).Inc()
		entry.Value = reply.value
	}

	entry.Wts = reply.wts
	entry.Rts = reply.rts
	entry.Valid = true

	p.Clock.AdvanceTo(reply.wts)
}

func tardisRenewExpired(t *cluster.Task) (renewed int) {
	p := t.Partition()

	for _, candidate := range p.Cache.Entries() {
		if (candidate != p.Cache.Lookup(candidate.Key)) || !candidate.Valid || candidate.Busy() || (0 < candidate.Usedcnt()) {
			continue
		}

		pts := p.Clock.Now()
		if candidate.Rts >= pts {
			continue
		}

		entry, _ := p.Cache.Find(candidate.Key)
		p.Cache.Activate(entry)

		cachedWts := entry.Wts
		address := entry.Key

		countRemote(t, opRead)
		reply := t.Call(address.Core, func(owner *cluster.Partition) interface{} {
			return tardisRenew(owner, address, pts, cachedWts, true)
		}).(tardisReplyStruct)

		tardisRefresh(p, entry, reply)

		p.Cache.Deactivate(entry)
		p.Cache.Release(entry)

		renewed++
	}

	logger.Tracef("core %d renewed %d expired entries", p.Core, renewed)

	return
}
