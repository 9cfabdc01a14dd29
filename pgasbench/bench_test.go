// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/delegate"
	"github.com/NVIDIA/pgas/transitions"
)

var testProtocols = []string{"vanilla", "tardis", "wi"}

func testSetup(t *testing.T, protocol string, confStrings ...string) (c *cluster.Cluster, confMap conf.ConfMap) {
	confStrings = append([]string{
		"Logging.LogFilePath=/dev/null",
		"Logging.LogToConsole=false",
		"Cluster.Partitions=3",
		"Coherence.Protocol=" + protocol,
		"Coherence.MaxCacheEntries=16",
	}, confStrings...)

	confMap, err := conf.MakeConfMapFromStrings(confStrings)
	require.NoError(t, err)
	require.NoError(t, transitions.Up(confMap))

	t.Cleanup(func() {
		assert.NoError(t, transitions.Down(confMap))
	})

	c = cluster.Default()
	require.NotNil(t, c)

	return
}

func TestParseBenchConfig(t *testing.T) {
	confMap, err := conf.MakeConfMapFromStrings([]string{})
	require.NoError(t, err)

	config, err := parseBenchConfig(confMap, 4)
	require.NoError(t, err)
	assert.Equal(t, workloadRead, config.workload)
	assert.Equal(t, defaultArraySize, config.arraySize)
	assert.Equal(t, defaultIterations, config.iterations)
	assert.Equal(t, defaultKVSlots, config.kvSlots)
	assert.Equal(t, defaultKVProbeLimit, config.kvProbeLimit)
	assert.False(t, config.writeThrough)
	assert.Nil(t, config.cacheOptions())

	badConfStrings := [][]string{
		{"Bench.Workload=scan"},
		{"Bench.ArraySize=3"},
		{"Bench.Iterations=0"},
		{"Bench.TasksPerPartition=0"},
		{"Bench.Workload=kv", "KV.Slots=2"},
		{"Bench.Workload=kv", "KV.ProbeLimit=0"},
		{"Bench.Workload=kv", "KV.ReadPercent=101"},
	}
	for _, confStrings := range badConfStrings {
		confMap, err = conf.MakeConfMapFromStrings(confStrings)
		require.NoError(t, err)
		_, err = parseBenchConfig(confMap, 4)
		assert.Error(t, err, "%v", confStrings)
	}

	confMap, err = conf.MakeConfMapFromStrings([]string{"Bench.Workload=KV", "Bench.WriteThrough=true"})
	require.NoError(t, err)
	config, err = parseBenchConfig(confMap, 4)
	require.NoError(t, err)
	assert.Equal(t, workloadKV, config.workload)
	assert.Equal(t, []delegate.Option{delegate.WriteThrough}, config.cacheOptions())
}

func TestReadWorkload(t *testing.T) {
	for _, protocol := range testProtocols {
		for _, writeThrough := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/writeThrough=%v", protocol, writeThrough), func(t *testing.T) {
				c, confMap := testSetup(t, protocol,
					"Bench.ArraySize=100",
					"Bench.Iterations=3",
					"Bench.TasksPerPartition=4",
					fmt.Sprintf("Bench.WriteThrough=%v", writeThrough))

				config, err := parseBenchConfig(confMap, c.Partitions())
				require.NoError(t, err)

				result, err := runBench(c, config)
				require.NoError(t, err)

				workload := result.workload.(*readWorkloadStruct)
				assert.Equal(t, workload.expectedChecksum(3), workload.checksum.Load())
				assert.Contains(t, result.String(), "Protocol: "+protocol)
			})
		}
	}
}

func TestReadWorkloadTardisClockAdvance(t *testing.T) {
	c, confMap := testSetup(t, "tardis",
		"Bench.ArraySize=30",
		"Bench.Iterations=4",
		"Bench.TasksPerPartition=2",
		"Bench.ClockAdvance=100",
		"Bench.RenewExpired=true")

	config, err := parseBenchConfig(confMap, c.Partitions())
	require.NoError(t, err)

	result, err := runBench(c, config)
	require.NoError(t, err)

	workload := result.workload.(*readWorkloadStruct)
	assert.Equal(t, workload.expectedChecksum(4), workload.checksum.Load())
	assert.Less(t, uint64(0), result.renewed.Load())
}

func TestKVTable(t *testing.T) {
	for _, protocol := range testProtocols {
		t.Run(protocol, func(t *testing.T) {
			c, confMap := testSetup(t, protocol,
				"Bench.Workload=kv",
				"KV.Slots=64",
				"KV.Records=20",
				"Bench.Iterations=1")

			config, err := parseBenchConfig(confMap, c.Partitions())
			require.NoError(t, err)

			workload := newKVWorkload(config)
			require.NoError(t, workload.setup(c))
			assert.Equal(t, uint64(20), workload.inserted.Load()+workload.rejected.Load())

			require.NoError(t, c.Run(1, func(task *cluster.Task) {
				delegate.ResetCache(task)

				inserted := uint64(0)
				for n := uint64(0); n < 20; n++ {
					value, found := workload.table.get(task, makeKVKey(n))
					if found {
						inserted++
						assert.Equal(t, makeKVValue(n, 0), value)
					}
				}
				assert.Equal(t, workload.inserted.Load(), inserted)

				for n := uint64(0); n < 20; n++ {
					if _, found := workload.table.get(task, makeKVKey(n)); !found {
						continue
					}
					assert.True(t, workload.table.update(task, makeKVKey(n), makeKVValue(n, 7)))
					value, found := workload.table.get(task, makeKVKey(n))
					assert.True(t, found)
					assert.Equal(t, makeKVValue(n, 7), value)

					assert.True(t, workload.table.remove(task, makeKVKey(n)))
					_, found = workload.table.get(task, makeKVKey(n))
					assert.False(t, found)
					assert.False(t, workload.table.update(task, makeKVKey(n), makeKVValue(n, 8)))
				}

				_, found := workload.table.get(task, makeKVKey(1000))
				assert.False(t, found)
			}))
		})
	}
}

func TestKVWorkload(t *testing.T) {
	for _, protocol := range testProtocols {
		t.Run(protocol, func(t *testing.T) {
			c, confMap := testSetup(t, protocol,
				"Bench.Workload=kv",
				"Bench.Iterations=2",
				"Bench.TasksPerPartition=2",
				"KV.Slots=256",
				"KV.Records=50",
				"KV.Operations=40",
				"KV.ReadPercent=50")

			config, err := parseBenchConfig(confMap, c.Partitions())
			require.NoError(t, err)

			result, err := runBench(c, config)
			require.NoError(t, err)

			workload := result.workload.(*kvWorkloadStruct)
			operations := uint64(2 * 3 * 2 * 40)
			assert.Equal(t, operations, workload.found.Load()+workload.updates.Load()+workload.missing.Load())
			assert.Contains(t, result.String(), "Inserted:")
		})
	}
}
