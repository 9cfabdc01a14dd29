// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math/rand"

	"github.com/creachadair/cityhash"
	"go.uber.org/atomic"

	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/delegate"
	"github.com/NVIDIA/pgas/gaddr"
)

const recordLength = 64

type kvRecordStruct struct {
	Key   [recordLength]byte
	Value [recordLength]byte
	Valid bool
}

// kvTableStruct is an open-addressed hash table of fixed size records spread
// over every partition. Slot s lives on partition s%P at index s/P. A key
// probes at most probeLimit consecutive slots starting at its hash.
//
// Slots change only by CompareAndSwap() of the record last read, so
// concurrent inserts of different keys never overwrite one another.
type kvTableStruct struct {
	slots      uint64
	probeLimit uint64
	options    []delegate.Option
	bases      []gaddr.Ref[kvRecordStruct]
}

func makeKVKey(n uint64) (key [recordLength]byte) {
	copy(key[:], fmt.Sprintf("user%019d", n))
	return
}

func makeKVValue(n uint64, version uint64) (value [recordLength]byte) {
	copy(value[:], fmt.Sprintf("value%019d.%019d", n, version))
	return
}

func (table *kvTableStruct) slotRef(slot uint64) gaddr.Ref[kvRecordStruct] {
	partitions := uint64(len(table.bases))
	slot %= table.slots
	return table.bases[slot%partitions].Add(int64(slot / partitions))
}

func (table *kvTableStruct) startSlot(key *[recordLength]byte) uint64 {
	return cityhash.Hash64(key[:]) % table.slots
}

func (table *kvTableStruct) get(t *cluster.Task, key [recordLength]byte) (value [recordLength]byte, found bool) {
	start := table.startSlot(&key)
	for slot := start; slot < start+table.probeLimit; slot++ {
		record := delegate.Read(t, table.slotRef(slot), table.options...)
		if record.Valid && (record.Key == key) {
			value = record.Value
			found = true
			return
		}
	}
	return
}

// modify applies fn to the record holding key, retrying if the slot changed underneath
func (table *kvTableStruct) modify(t *cluster.Task, key [recordLength]byte, fn func(record *kvRecordStruct)) (found bool) {
	start := table.startSlot(&key)
	for slot := start; slot < start+table.probeLimit; slot++ {
		ref := table.slotRef(slot)
		for {
			record := delegate.Read(t, ref, table.options...)
			if !record.Valid || (record.Key != key) {
				break
			}
			updated := record
			fn(&updated)
			if delegate.CompareAndSwap(t, ref, record, updated, table.options...) {
				found = true
				return
			}
		}
	}
	return
}

func (table *kvTableStruct) update(t *cluster.Task, key [recordLength]byte, value [recordLength]byte) bool {
	return table.modify(t, key, func(record *kvRecordStruct) { record.Value = value })
}

func (table *kvTableStruct) remove(t *cluster.Task, key [recordLength]byte) bool {
	return table.modify(t, key, func(record *kvRecordStruct) { record.Valid = false })
}

// insert places key in the first free slot of its probe sequence. Duplicates are not detected.
func (table *kvTableStruct) insert(t *cluster.Task, key [recordLength]byte, value [recordLength]byte) (inserted bool) {
	start := table.startSlot(&key)
	for slot := start; slot < start+table.probeLimit; slot++ {
		ref := table.slotRef(slot)
		for {
			record := delegate.Read(t, ref, table.options...)
			if record.Valid {
				break
			}
			if delegate.CompareAndSwap(t, ref, record, kvRecordStruct{Key: key, Value: value, Valid: true}, table.options...) {
				inserted = true
				return
			}
		}
	}
	return
}

// kvWorkloadStruct loads Records keys into a kvTableStruct and then has every
// task issue Operations gets or updates of random loaded keys.
type kvWorkloadStruct struct {
	config   *benchConfigStruct
	table    *kvTableStruct
	inserted atomic.Uint64
	rejected atomic.Uint64
	found    atomic.Uint64
	missing  atomic.Uint64
	updates  atomic.Uint64
}

func newKVWorkload(config *benchConfigStruct) *kvWorkloadStruct {
	return &kvWorkloadStruct{config: config}
}

func (workload *kvWorkloadStruct) setup(c *cluster.Cluster) (err error) {
	var allocErr atomic.Error

	partitions := uint64(c.Partitions())

	workload.table = &kvTableStruct{
		slots:      workload.config.kvSlots,
		probeLimit: workload.config.kvProbeLimit,
		options:    workload.config.cacheOptions(),
		bases:      make([]gaddr.Ref[kvRecordStruct], partitions),
	}

	err = c.RunAll(func(t *cluster.Task) {
		core := t.Core()
		count := (workload.config.kvSlots - uint64(core) + partitions - 1) / partitions
		base, err := delegate.Alloc[kvRecordStruct](t, core, count)
		if nil != err {
			allocErr.Store(err)
			return
		}
		workload.table.bases[core] = base
	})
	if nil == err {
		err = allocErr.Load()
	}
	if nil != err {
		return
	}

	err = c.RunAll(func(t *cluster.Task) {
		for n := uint64(t.Core()); n < workload.config.kvRecords; n += partitions {
			if workload.table.insert(t, makeKVKey(n), makeKVValue(n, 0)) {
				workload.inserted.Inc()
			} else {
				workload.rejected.Inc()
			}
		}
	})

	return
}

func (workload *kvWorkloadStruct) iterate(c *cluster.Cluster) (err error) {
	if 0 == workload.config.kvRecords {
		return
	}

	err = c.RunAll(func(t *cluster.Task) {
		for k := uint64(0); k < workload.config.tasksPerPartition; k++ {
			seed := int64(workload.config.kvSeed) + int64(uint64(t.Core())*workload.config.tasksPerPartition+k)
			t.Spawn(func(ti *cluster.Task) {
				random := rand.New(rand.NewSource(seed))
				for op := uint64(0); op < workload.config.kvOperations; op++ {
					n := uint64(random.Int63n(int64(workload.config.kvRecords)))
					if uint64(random.Intn(100)) < workload.config.kvReadPercent {
						if _, found := workload.table.get(ti, makeKVKey(n)); found {
							workload.found.Inc()
						} else {
							workload.missing.Inc()
						}
					} else if workload.table.update(ti, makeKVKey(n), makeKVValue(n, op+1)) {
						workload.updates.Inc()
					} else {
						workload.missing.Inc()
					}
				}
			})
		}
	})

	return
}

func (workload *kvWorkloadStruct) report() string {
	return fmt.Sprintf("Slots: %d Inserted: %d Rejected: %d Found: %d Updated: %d Missing: %d",
		workload.config.kvSlots, workload.inserted.Load(), workload.rejected.Load(),
		workload.found.Load(), workload.updates.Load(), workload.missing.Load())
}
