// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/delegate"
	"github.com/NVIDIA/pgas/logger"
	"github.com/NVIDIA/pgas/utils"
)

type workloadInterface interface {
	setup(c *cluster.Cluster) (err error)
	iterate(c *cluster.Cluster) (err error)
	report() string
}

type benchResultStruct struct {
	protocol   cluster.Protocol
	cacheSize  int
	partitions int
	iterations uint64
	elapsed    time.Duration
	renewed    atomic.Uint64
	workload   workloadInterface
}

func (result *benchResultStruct) String() string {
	return fmt.Sprintf("Protocol: %v Cache size: %d Partitions: %d Iterations: %d Renewed: %d %s Runtime: %v",
		result.protocol, result.cacheSize, result.partitions, result.iterations, result.renewed.Load(),
		result.workload.report(), result.elapsed)
}

func (config *benchConfigStruct) cacheOptions() (options []delegate.Option) {
	if config.writeThrough {
		options = append(options, delegate.WriteThrough)
	}
	return
}

func newWorkload(config *benchConfigStruct) workloadInterface {
	if workloadKV == config.workload {
		return newKVWorkload(config)
	}
	return newReadWorkload(config)
}

// runBench sets up config's workload on c and times config.iterations passes over it.
// Caches start cold. Setup and the between-iteration clock work are not timed.
func runBench(c *cluster.Cluster, config *benchConfigStruct) (result *benchResultStruct, err error) {
	result = &benchResultStruct{
		protocol:   c.Config().Coherence.Protocol,
		cacheSize:  c.Config().Coherence.MaxCacheEntries,
		partitions: c.Partitions(),
		iterations: config.iterations,
		workload:   newWorkload(config),
	}

	err = result.workload.setup(c)
	if nil != err {
		return
	}

	err = c.Run(0, func(t *cluster.Task) {
		delegate.ResetCache(t)
	})
	if nil != err {
		return
	}

	stopwatch := utils.NewStopwatch()
	stopwatch.Stop()

	for iteration := uint64(0); iteration < config.iterations; iteration++ {
		stopwatch.Restart()
		err = result.workload.iterate(c)
		stopwatch.Stop()
		if nil != err {
			return
		}

		result.elapsed += stopwatch.Elapsed()

		logger.Infof("iteration %d of %s took %v", iteration, config.workload, stopwatch.Elapsed())

		if (0 == config.clockAdvance) && !config.renewExpired {
			continue
		}

		err = c.RunAll(func(t *cluster.Task) {
			if 0 < config.clockAdvance {
				delegate.AdvanceClock(t, config.clockAdvance)
			}
			if config.renewExpired {
				result.renewed.Add(uint64(delegate.RenewExpired(t)))
			}
		})
		if nil != err {
			return
		}
	}

	return
}
