// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupExpired = "expired"

	renewalFast = "fast"
	renewalFull = "full"

	invalidationUseful  = "useful"
	invalidationUseless = "useless"
)

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "ops_total",
			Help:      "Total number of delegate operations issued.",
		}, []string{"protocol", "op"})

	remoteOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "remote_ops_total",
			Help:      "Total number of closures run on a remote owner.",
		}, []string{"protocol", "op"})

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache table lookups by result.",
		}, []string{"protocol", "result"})

	tardisRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "tardis_renewals_total",
			Help:      "Total number of Tardis lease renewals, fast (no value shipped) or full.",
		}, []string{"kind"})

	wiInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "wi_invalidations_total",
			Help:      "Total number of WI invalidations, useless when no valid copy was found.",
		}, []string{"result"})

	opSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pgas",
			Subsystem: "delegate",
			Name:      "op_duration_seconds",
			Help:      "Bucketed histogram of delegate operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}, []string{"protocol", "op"})
)

func init() {
	prometheus.MustRegister(opsTotal)
	prometheus.MustRegister(remoteOpsTotal)
	prometheus.MustRegister(cacheLookupsTotal)
	prometheus.MustRegister(tardisRenewalsTotal)
	prometheus.MustRegister(wiInvalidationsTotal)
	prometheus.MustRegister(opSeconds)
}
