// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package cachetable

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "cachetable",
			Name:      "evictions_total",
			Help:      "Total number of cache entries evicted to make room.",
		})

	overflowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "cachetable",
			Name:      "overflows_total",
			Help:      "Total number of insertions at capacity that found no idle victim.",
		})
)

func init() {
	prometheus.MustRegister(evictionsTotal)
	prometheus.MustRegister(overflowsTotal)
}
