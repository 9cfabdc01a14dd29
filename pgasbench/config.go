// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/pgas/conf"
)

const (
	benchConfSectionName = "Bench"
	kvConfSectionName    = "KV"

	workloadRead = "read"
	workloadKV   = "kv"

	defaultArraySize         = uint64(1 << 20)
	defaultIterations        = uint64(10)
	defaultTasksPerPartition = uint64(8)

	defaultKVSlots       = uint64(102400)
	defaultKVProbeLimit  = uint64(5)
	defaultKVRecords     = uint64(10000)
	defaultKVOperations  = uint64(10000)
	defaultKVReadPercent = uint64(95)
	defaultKVSeed        = uint64(1)
)

type benchConfigStruct struct {
	workload          string
	iterations        uint64
	tasksPerPartition uint64
	clockAdvance      uint64 // logical time added to every partition's clock between iterations
	renewExpired      bool   // RenewExpired() on every partition between iterations
	writeThrough      bool

	arraySize uint64

	kvSlots       uint64
	kvProbeLimit  uint64
	kvRecords     uint64
	kvOperations  uint64 // per task
	kvReadPercent uint64
	kvSeed        uint64
}

func fetchUint64WithDefault(confMap conf.ConfMap, sectionName string, optionName string, defaultValue uint64) uint64 {
	value, err := confMap.FetchOptionValueUint64(sectionName, optionName)
	if nil != err {
		value = defaultValue
	}
	return value
}

func fetchBoolWithDefault(confMap conf.ConfMap, sectionName string, optionName string, defaultValue bool) bool {
	value, err := confMap.FetchOptionValueBool(sectionName, optionName)
	if nil != err {
		value = defaultValue
	}
	return value
}

func parseBenchConfig(confMap conf.ConfMap, partitions int) (config *benchConfigStruct, err error) {
	config = &benchConfigStruct{}

	config.workload, err = confMap.FetchOptionValueString(benchConfSectionName, "Workload")
	if nil != err {
		config.workload = workloadRead
		err = nil
	}
	config.workload = strings.ToLower(config.workload)

	config.iterations = fetchUint64WithDefault(confMap, benchConfSectionName, "Iterations", defaultIterations)
	config.tasksPerPartition = fetchUint64WithDefault(confMap, benchConfSectionName, "TasksPerPartition", defaultTasksPerPartition)
	config.clockAdvance = fetchUint64WithDefault(confMap, benchConfSectionName, "ClockAdvance", 0)
	config.renewExpired = fetchBoolWithDefault(confMap, benchConfSectionName, "RenewExpired", false)
	config.writeThrough = fetchBoolWithDefault(confMap, benchConfSectionName, "WriteThrough", false)
	config.arraySize = fetchUint64WithDefault(confMap, benchConfSectionName, "ArraySize", defaultArraySize)

	config.kvSlots = fetchUint64WithDefault(confMap, kvConfSectionName, "Slots", defaultKVSlots)
	config.kvProbeLimit = fetchUint64WithDefault(confMap, kvConfSectionName, "ProbeLimit", defaultKVProbeLimit)
	config.kvRecords = fetchUint64WithDefault(confMap, kvConfSectionName, "Records", defaultKVRecords)
	config.kvOperations = fetchUint64WithDefault(confMap, kvConfSectionName, "Operations", defaultKVOperations)
	config.kvReadPercent = fetchUint64WithDefault(confMap, kvConfSectionName, "ReadPercent", defaultKVReadPercent)
	config.kvSeed = fetchUint64WithDefault(confMap, kvConfSectionName, "Seed", defaultKVSeed)

	switch config.workload {
	case workloadRead:
		if config.arraySize < uint64(partitions) {
			err = fmt.Errorf("%s.ArraySize (%d) must be at least Cluster.Partitions (%d)", benchConfSectionName, config.arraySize, partitions)
			return
		}
	case workloadKV:
		if config.kvSlots < uint64(partitions) {
			err = fmt.Errorf("%s.Slots (%d) must be at least Cluster.Partitions (%d)", kvConfSectionName, config.kvSlots, partitions)
			return
		}
		if 0 == config.kvProbeLimit {
			err = fmt.Errorf("%s.ProbeLimit must be non-zero", kvConfSectionName)
			return
		}
		if config.kvReadPercent > 100 {
			err = fmt.Errorf("%s.ReadPercent (%d) must not exceed 100", kvConfSectionName, config.kvReadPercent)
			return
		}
	default:
		err = fmt.Errorf("%s.Workload (\"%s\") must be one of \"%s\" or \"%s\"", benchConfSectionName, config.workload, workloadRead, workloadKV)
		return
	}

	if 0 == config.iterations {
		err = fmt.Errorf("%s.Iterations must be non-zero", benchConfSectionName)
		return
	}
	if 0 == config.tasksPerPartition {
		err = fmt.Errorf("%s.TasksPerPartition must be non-zero", benchConfSectionName)
		return
	}

	return
}
