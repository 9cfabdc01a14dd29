// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"go.uber.org/atomic"

	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/delegate"
	"github.com/NVIDIA/pgas/gaddr"
)

// readWorkloadStruct sweeps a global int64 array whose element i lives on
// partition i%P at index i/P. Each task reads a contiguous run of global
// indices, so most of its reads land on other partitions.
type readWorkloadStruct struct {
	config   *benchConfigStruct
	bases    []gaddr.Ref[int64]
	checksum atomic.Int64
}

func newReadWorkload(config *benchConfigStruct) *readWorkloadStruct {
	return &readWorkloadStruct{config: config}
}

func (workload *readWorkloadStruct) ref(i uint64) gaddr.Ref[int64] {
	partitions := uint64(len(workload.bases))
	return workload.bases[i%partitions].Add(int64(i / partitions))
}

// elementsOn returns how many of the array's elements partition core holds
func (workload *readWorkloadStruct) elementsOn(core gaddr.Core, partitions int) uint64 {
	return (workload.config.arraySize - uint64(core) + uint64(partitions) - 1) / uint64(partitions)
}

func (workload *readWorkloadStruct) setup(c *cluster.Cluster) (err error) {
	var allocErr atomic.Error

	partitions := c.Partitions()
	workload.bases = make([]gaddr.Ref[int64], partitions)

	err = c.RunAll(func(t *cluster.Task) {
		core := t.Core()
		base, err := delegate.Alloc[int64](t, core, workload.elementsOn(core, partitions))
		if nil != err {
			allocErr.Store(err)
			return
		}
		for index := uint64(0); index < workload.elementsOn(core, partitions); index++ {
			delegate.Write(t, base.Add(int64(index)), int64(index*uint64(partitions)+uint64(core)))
		}
		workload.bases[core] = base
	})
	if nil == err {
		err = allocErr.Load()
	}

	return
}

func (workload *readWorkloadStruct) iterate(c *cluster.Cluster) (err error) {
	options := workload.config.cacheOptions()
	tasks := uint64(c.Partitions()) * workload.config.tasksPerPartition
	chunk := (workload.config.arraySize + tasks - 1) / tasks

	err = c.RunAll(func(t *cluster.Task) {
		for k := uint64(0); k < workload.config.tasksPerPartition; k++ {
			start := (uint64(t.Core())*workload.config.tasksPerPartition + k) * chunk
			t.Spawn(func(ti *cluster.Task) {
				var sum int64
				for i := start; (i < start+chunk) && (i < workload.config.arraySize); i++ {
					sum += delegate.Read(ti, workload.ref(i), options...)
				}
				workload.checksum.Add(sum)
			})
		}
	})

	return
}

// expectedChecksum is what checksum should hold after iterations sweeps
func (workload *readWorkloadStruct) expectedChecksum(iterations uint64) int64 {
	n := int64(workload.config.arraySize)
	return int64(iterations) * n * (n - 1) / 2
}

func (workload *readWorkloadStruct) report() string {
	return fmt.Sprintf("Array size: %d Checksum: %d", workload.config.arraySize, workload.checksum.Load())
}
