// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"strings"
	"sync"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/conf"
	"github.com/NVIDIA/pgas/halter"
	"github.com/NVIDIA/pgas/logger"
	"github.com/NVIDIA/pgas/transitions"
)

// Protocol selects the coherence discipline. It is fixed for the life of a Cluster.
type Protocol int

const (
	Vanilla Protocol = iota
	Tardis
	WI
	protocolCount
)

var protocolNames = [protocolCount]string{"vanilla", "tardis", "wi"}

func (protocol Protocol) String() string {
	if protocol.valid() {
		return protocolNames[protocol]
	}
	return "unknown"
}

func (protocol Protocol) valid() bool {
	return (0 <= protocol) && (protocolCount > protocol)
}

// ParseProtocol maps a [Coherence]Protocol value to a Protocol
func ParseProtocol(protocolString string) (protocol Protocol, err error) {
	for i, name := range protocolNames {
		if strings.EqualFold(protocolString, name) {
			protocol = Protocol(i)
			return
		}
	}
	err = blunder.NewError(blunder.UnknownProtocolError, "unknown protocol %q (expected one of vanilla/tardis/wi)", protocolString)
	return
}

const (
	DefaultLease           uint64 = 10
	DefaultMaxCacheEntries int    = 38486
)

// CoherenceConfig is the [Coherence] section
type CoherenceConfig struct {
	Protocol        Protocol
	Lease           uint64 // upper bound on a Tardis lease
	MaxCacheEntries int    // per partition, 0 means unbounded
	TwoStageRenewal bool   // Tardis: renew without shipping the value when unchanged
}

// Config is everything a Cluster is started with
type Config struct {
	Partitions uint16
	Coherence  CoherenceConfig
}

// ParseConfig extracts a Config from the [Cluster] and [Coherence] sections of confMap
func ParseConfig(confMap conf.ConfMap) (config Config, err error) {
	config.Partitions, err = confMap.FetchOptionValueUint16("Cluster", "Partitions")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}
	if 0 == config.Partitions {
		err = blunder.NewError(blunder.InvalidArgError, "[Cluster]Partitions must be non-zero")
		return
	}

	protocolString, err := confMap.FetchOptionValueString("Coherence", "Protocol")
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
		return
	}
	config.Coherence.Protocol, err = ParseProtocol(protocolString)
	if nil != err {
		return
	}

	config.Coherence.Lease, err = confMap.FetchOptionValueUint64("Coherence", "Lease")
	if nil != err {
		config.Coherence.Lease = DefaultLease
	}
	if 0 == config.Coherence.Lease {
		err = blunder.NewError(blunder.InvalidArgError, "[Coherence]Lease must be non-zero")
		return
	}

	maxCacheEntries, err := confMap.FetchOptionValueUint32("Coherence", "MaxCacheEntries")
	if nil == err {
		config.Coherence.MaxCacheEntries = int(maxCacheEntries)
	} else if Vanilla == config.Coherence.Protocol {
		config.Coherence.MaxCacheEntries = 0
	} else {
		config.Coherence.MaxCacheEntries = DefaultMaxCacheEntries
	}

	config.Coherence.TwoStageRenewal, err = confMap.FetchOptionValueBool("Coherence", "TwoStageRenewal")
	if nil != err {
		config.Coherence.TwoStageRenewal = false
	}

	err = nil

	return
}

type globalsStruct struct {
	sync.Mutex
	defaultCluster *Cluster
}

var globals globalsStruct

type transitionsCallbackInterfaceStruct struct{}

var transitionsCallbackInterface transitionsCallbackInterfaceStruct

func init() {
	transitions.Register("cluster", &transitionsCallbackInterface)
}

// Default returns the cluster started by transitions.Up() (nil outside Up/Down)
func Default() (cluster *Cluster) {
	globals.Lock()
	cluster = globals.defaultCluster
	globals.Unlock()
	return
}

// Up starts the default cluster. An unknown protocol is fatal.
func (dummy *transitionsCallbackInterfaceStruct) Up(confMap conf.ConfMap) (err error) {
	config, err := ParseConfig(confMap)
	if nil != err {
		if blunder.Is(err, blunder.UnknownProtocolError) {
			halter.Halt(err)
		}
		return
	}

	cluster, err := New(config)
	if nil != err {
		return
	}

	globals.Lock()
	globals.defaultCluster = cluster
	globals.Unlock()

	logger.Infof("cluster.Up(): %+v", config)

	return
}

func (dummy *transitionsCallbackInterfaceStruct) SignaledStart(confMap conf.ConfMap) (err error) {
	return nil
}

// SignaledFinish warns that a running cluster keeps its configuration
func (dummy *transitionsCallbackInterfaceStruct) SignaledFinish(confMap conf.ConfMap) (err error) {
	cluster := Default()
	if nil == cluster {
		return
	}

	config, err := ParseConfig(confMap)
	if nil != err {
		return
	}

	if config != cluster.Config() {
		logger.Warnf("cluster configuration changes are ignored until restart (running %+v)", cluster.Config())
	}

	return
}

func (dummy *transitionsCallbackInterfaceStruct) Down(confMap conf.ConfMap) (err error) {
	globals.Lock()
	cluster := globals.defaultCluster
	globals.defaultCluster = nil
	globals.Unlock()

	if nil != cluster {
		err = cluster.Stop()
	}

	return
}
