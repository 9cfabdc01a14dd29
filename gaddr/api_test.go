// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package gaddr

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testRecord struct {
	key   [64]byte
	value [64]byte
	valid bool
}

func TestRef(t *testing.T) {
	ref := MakeRef[int64](3, 0x40)

	assert.Equal(t, Core(3), ref.Core())
	assert.Equal(t, uint64(0x40), ref.Offset())
	assert.Equal(t, Address{Core: 3, Offset: 0x40}, ref.Address())
	assert.False(t, ref.IsNil())

	next := ref.Add(2)
	assert.Equal(t, Core(3), next.Core(), "Add() stays on the owning partition")
	assert.Equal(t, uint64(0x50), next.Offset())
	assert.Equal(t, ref, next.Add(-2))
	assert.Equal(t, uint64(0x40), ref.Offset(), "Add() does not modify its receiver")

	assert.Equal(t, "int64@3:0x40", ref.String())

	records := MakeRef[testRecord](0, 0x100)
	assert.Equal(t, uint64(129), ElementSize[testRecord]())
	assert.Equal(t, uint64(0x100+2*129), records.Add(2).Offset())
	assert.Equal(t, uint64(1), ElementSize[struct{}](), "zero-sized elements still advance")

	var nilRef Ref[int32]
	assert.True(t, nilRef.IsNil())
}

func TestClock(t *testing.T) {
	var clock Clock

	assert.Equal(t, Timestamp(0), clock.Now())
	assert.Equal(t, Timestamp(5), clock.AdvanceTo(5))
	assert.Equal(t, Timestamp(5), clock.AdvanceTo(3), "clock never moves backwards")
	assert.Equal(t, Timestamp(7), clock.Tick(2))
	assert.Equal(t, Timestamp(7), clock.Now())

	assert.Equal(t, Timestamp(9), MaxTimestamp(1, 9, 4))
	assert.Equal(t, Timestamp(1), MaxTimestamp(1))
}

func TestClockConcurrentAdvance(t *testing.T) {
	var (
		clock Clock
		wg    sync.WaitGroup
	)

	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(ts Timestamp) {
			defer wg.Done()
			clock.AdvanceTo(ts)
		}(Timestamp(i))
	}
	wg.Wait()

	assert.Equal(t, Timestamp(64), clock.Now())
}
