// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/NVIDIA/pgas/cachetable"
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
	"github.com/NVIDIA/pgas/utils"
)

// rmwFunc computes the value to store from the current one. Returning
// changed == false leaves the object untouched (a failed compare-and-swap).
type rmwFunc func(old interface{}) (updated interface{}, changed bool)

// protocolInterface is implemented once per coherence discipline.
//
// update() applies rmw atomically at the owner and returns the value it saw.
type protocolInterface interface {
	read(t *cluster.Task, address gaddr.Address, cacheMode CacheMode) (value interface{})
	update(t *cluster.Task, address gaddr.Address, rmw rmwFunc, cacheMode CacheMode) (old interface{})
}

var protocols = [...]protocolInterface{
	cluster.Vanilla: &vanillaProtocol{},
	cluster.Tardis:  &tardisProtocol{},
	cluster.WI:      &wiProtocol{},
}

const (
	opRead           = "read"
	opWrite          = "write"
	opFetchAdd       = "fetch_add"
	opCompareAndSwap = "compare_and_swap"
	opCall           = "call"
	opUpdate         = "update" // remote side of write, fetch_add and compare_and_swap
)

// measure runs fn against the cluster's protocol, accounting for the operation
func measure(t *cluster.Task, op string, fn func(protocol protocolInterface)) {
	protocol := t.Cluster().Config().Coherence.Protocol

	stopwatch := utils.NewStopwatch()
	fn(protocols[protocol])
	elapsed := stopwatch.Stop()

	opsTotal.WithLabelValues(protocol.String(), op).Inc()
	opSeconds.WithLabelValues(protocol.String(), op).Observe(elapsed.Seconds())
}

func countRemote(t *cluster.Task, op string) {
	remoteOpsTotal.WithLabelValues(t.Cluster().Config().Coherence.Protocol.String(), op).Inc()
}

func countLookup(t *cluster.Task, result string) {
	cacheLookupsTotal.WithLabelValues(t.Cluster().Config().Coherence.Protocol.String(), result).Inc()
}

func isOwner(t *cluster.Task, address gaddr.Address) bool {
	return address.Core == t.Core()
}

// load and store run on the owner with its baton held

func load(p *cluster.Partition, address gaddr.Address) (value interface{}) {
	value, err := p.Heap.Load(address.Offset)
	if nil != err {
		fatal(err)
	}
	return
}

func store(p *cluster.Partition, address gaddr.Address, value interface{}) {
	err := p.Heap.Store(address.Offset, value)
	if nil != err {
		fatal(err)
	}
}

// applyRMW runs rmw against the stored value, storing the result if changed
func applyRMW(p *cluster.Partition, address gaddr.Address, rmw rmwFunc) (old interface{}, updated interface{}, changed bool) {
	old = load(p, address)
	updated, changed = rmw(old)
	if changed {
		store(p, address, updated)
	}
	return
}

// holdEntry finds (creating if need be) and activates the caller's cache entry
// for address, waiting out any other accessor. The returned func undoes both.
func holdEntry(t *cluster.Task, address gaddr.Address) (entry *cachetable.Entry, unhold func()) {
	cache := t.Partition().Cache

	entry, _ = cache.Find(address)
	for entry.Busy() {
		t.Yield()
	}
	cache.Activate(entry)

	unhold = func() {
		cache.Deactivate(entry)
		cache.Release(entry)
	}

	return
}
