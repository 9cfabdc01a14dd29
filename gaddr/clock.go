// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package gaddr

import (
	"go.uber.org/atomic"
)

// Timestamp is a point in logical time
type Timestamp uint64

// MaxTimestamp returns the larger of its arguments
func MaxTimestamp(ts Timestamp, others ...Timestamp) Timestamp {
	for _, other := range others {
		if other > ts {
			ts = other
		}
	}
	return ts
}

// Clock is a partition's logical clock (pts). It never moves backwards.
//
// Only the partition's running task or message handler advances it; the
// value is kept atomically so that it may also be sampled from elsewhere.
type Clock struct {
	pts atomic.Uint64
}

// Now returns the current logical time
func (clock *Clock) Now() Timestamp {
	return Timestamp(clock.pts.Load())
}

// AdvanceTo moves the clock to ts if ts is later, returning the resulting time
func (clock *Clock) AdvanceTo(ts Timestamp) Timestamp {
	for {
		current := clock.pts.Load()
		if uint64(ts) <= current {
			return Timestamp(current)
		}
		if clock.pts.CAS(current, uint64(ts)) {
			return ts
		}
	}
}

// Tick advances the clock by delta, returning the resulting time
func (clock *Clock) Tick(delta uint64) Timestamp {
	return Timestamp(clock.pts.Add(delta))
}
