// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package ownermeta keeps the coherence metadata an owning partition holds for
// each of its objects that has ever been accessed remotely.
//
// Entries are created lazily on first access and live as long as the table.
// The table is ordered by object offset (google/btree) so it can be walked in
// address order when dumped. A Table belongs to one partition and is only
// touched by that partition's running task or message handler.
package ownermeta

import (
	"github.com/google/btree"

	"github.com/NVIDIA/pgas/gaddr"
)

// TardisMeta is the owner's view of an object under Tardis.
//
// Invariant: Rts >= Wts, both non-decreasing.
type TardisMeta struct {
	Rts   gaddr.Timestamp
	Wts   gaddr.Timestamp
	Lease uint64 // current lease granted per renewal
}

// WIMeta is the owner's view of an object under write-invalidation
type WIMeta struct {
	Copyset Copyset
	Locked  bool
}

type metaItem struct {
	offset uint64
	tardis TardisMeta
	wi     WIMeta
}

func (item *metaItem) Less(than btree.Item) bool {
	return item.offset < than.(*metaItem).offset
}

// Table is one partition's owner-side metadata
type Table struct {
	tree         *btree.BTree
	initialLease uint64
}

const btreeDegree = 2

// New returns an empty Table whose Tardis entries start with initialLease
func New(initialLease uint64) (table *Table) {
	table = &Table{
		tree:         btree.New(btreeDegree),
		initialLease: initialLease,
	}
	return
}

func (table *Table) item(offset uint64) (item *metaItem) {
	found := table.tree.Get(&metaItem{offset: offset})
	if nil != found {
		item = found.(*metaItem)
		return
	}

	item = &metaItem{
		offset: offset,
		tardis: TardisMeta{Lease: table.initialLease},
	}
	_ = table.tree.ReplaceOrInsert(item)

	return
}

// Tardis returns (creating if needed) the Tardis metadata for the object at offset
func (table *Table) Tardis(offset uint64) *TardisMeta {
	return &table.item(offset).tardis
}

// WI returns (creating if needed) the write-invalidation metadata for the object at offset
func (table *Table) WI(offset uint64) *WIMeta {
	return &table.item(offset).wi
}

// Has reports whether metadata exists for the object at offset
func (table *Table) Has(offset uint64) bool {
	return table.tree.Has(&metaItem{offset: offset})
}

// Len returns the number of objects with metadata
func (table *Table) Len() int {
	return table.tree.Len()
}

// Ascend calls visit for each object in offset order until visit returns false
func (table *Table) Ascend(visit func(offset uint64, tardis *TardisMeta, wi *WIMeta) bool) {
	table.tree.Ascend(func(i btree.Item) bool {
		item := i.(*metaItem)
		return visit(item.offset, &item.tardis, &item.wi)
	})
}
