// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/gaddr"
)

// vanillaProtocol caches nothing: every access is a closure on the owner
type vanillaProtocol struct{}

func (*vanillaProtocol) read(t *cluster.Task, address gaddr.Address, cacheMode CacheMode) (value interface{}) {
	if !isOwner(t, address) {
		countRemote(t, opRead)
	}

	value = t.Call(address.Core, func(p *cluster.Partition) interface{} {
		return load(p, address)
	})

	return
}

func (*vanillaProtocol) update(t *cluster.Task, address gaddr.Address, rmw rmwFunc, cacheMode CacheMode) (old interface{}) {
	if !isOwner(t, address) {
		countRemote(t, opUpdate)
	}

	old = t.Call(address.Core, func(p *cluster.Partition) interface{} {
		old, _, _ := applyRMW(p, address, rmw)
		return old
	})

	return
}
