// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Program pgasbench drives a coherence protocol micro-benchmark against an in-process cluster.
package main

import (
	"fmt"
	"os"

	"github.com/NVIDIA/pgas/cluster"
	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/transitions"
)

func usage(file *os.File) {
	fmt.Fprintf(file, "Usage:\n")
	fmt.Fprintf(file, "    %v conf-file [section.option=value]*\n", os.Args[0])
	fmt.Fprintf(file, "  where:\n")
	fmt.Fprintf(file, "    conf-file               input to conf.MakeConfMapFromFile()\n")
	fmt.Fprintf(file, "    [section.option=value]* optional input to conf.UpdateFromStrings()\n")
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "Cluster.Partitions and Coherence.Protocol are required. Bench.Workload selects\n")
	fmt.Fprintf(file, "\"read\" (array sweep, the default) or \"kv\" (hash table gets and updates).\n")
}

func main() {
	var (
		benchConfig *benchConfigStruct
		c           *cluster.Cluster
		confMap     conf.ConfMap
		err         error
		result      *benchResultStruct
	)

	if 2 > len(os.Args) {
		usage(os.Stderr)
		os.Exit(1)
	}

	confMap, err = conf.MakeConfMapFromFile(os.Args[1])
	if nil != err {
		fmt.Fprintf(os.Stderr, "conf.MakeConfMapFromFile(\"%v\") failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	if 2 < len(os.Args) {
		err = confMap.UpdateFromStrings(os.Args[2:])
		if nil != err {
			fmt.Fprintf(os.Stderr, "confMap.UpdateFromStrings(%#v) failed: %v\n", os.Args[2:], err)
			os.Exit(1)
		}
	}

	err = transitions.Up(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "transitions.Up() failed: %v\n", err)
		os.Exit(1)
	}

	c = cluster.Default()

	benchConfig, err = parseBenchConfig(confMap, c.Partitions())
	if nil == err {
		result, err = runBench(c, benchConfig)
	}
	if nil != err {
		fmt.Fprintf(os.Stderr, "pgasbench failed: %v\n", err)
		_ = transitions.Down(confMap)
		os.Exit(1)
	}

	fmt.Println(result)

	err = transitions.Down(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "transitions.Down() failed: %v\n", err)
		os.Exit(1)
	}
}
