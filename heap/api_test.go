// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package heap

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/gaddr"
)

type testRecord struct {
	Key   string
	Value string
	Valid bool
}

func TestAllocLoadStore(t *testing.T) {
	heap := New(2)
	assert.Equal(t, gaddr.Core(2), heap.Core())

	counters, err := Alloc[int64](heap, 4)
	require.NoError(t, err)
	assert.Equal(t, gaddr.Core(2), counters.Core())
	assert.Equal(t, FirstOffset, counters.Offset())

	records, err := Alloc[testRecord](heap, 3)
	require.NoError(t, err)
	assert.True(t, records.Offset() >= counters.Add(4).Offset())
	assert.Zero(t, records.Offset()%regionAlignment)

	assert.Equal(t, 2, heap.Regions())

	for i := int64(0); i < 4; i++ {
		value, err := Load(heap, counters.Add(i))
		require.NoError(t, err)
		assert.Equal(t, int64(0), value, "allocations are zeroed")
	}

	require.NoError(t, Store(heap, counters.Add(3), int64(42)))
	value, err := Load(heap, counters.Add(3))
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)

	record := testRecord{Key: "k", Value: "v", Valid: true}
	require.NoError(t, Store(heap, records.Add(2), record))
	loaded, err := Load(heap, records.Add(2))
	require.NoError(t, err)
	assert.Equal(t, record, loaded)

	elemType, err := heap.TypeAt(records.Add(1).Offset())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(testRecord{}), elemType)

	assert.True(t, heap.Used() > 0)
}

func TestTypeMismatch(t *testing.T) {
	heap := New(0)

	counters, err := Alloc[int64](heap, 2)
	require.NoError(t, err)

	err = heap.Store(counters.Offset(), int32(1))
	assert.True(t, blunder.Is(err, blunder.TypeMismatchError), "storing an int32 into an int64 allocation")

	_, err = Load(heap, gaddr.MakeRef[string](0, counters.Offset()))
	assert.True(t, blunder.Is(err, blunder.TypeMismatchError), "loading a string from an int64 allocation")
}

func TestBadAddress(t *testing.T) {
	heap := New(0)

	_, err := heap.Load(FirstOffset)
	assert.True(t, blunder.Is(err, blunder.BadAddressError), "empty heap")

	counters, err := Alloc[int64](heap, 2)
	require.NoError(t, err)

	_, err = heap.Load(8)
	assert.True(t, blunder.Is(err, blunder.BadAddressError), "below first allocation")

	_, err = heap.Load(counters.Add(2).Offset())
	assert.True(t, blunder.Is(err, blunder.BadAddressError), "past the end of the allocation")

	_, err = heap.Load(counters.Offset() + 3)
	assert.True(t, blunder.Is(err, blunder.BadAddressError), "inside an element")

	_, err = Alloc[int64](heap, 0)
	assert.True(t, blunder.Is(err, blunder.InvalidArgError))
}

func TestInterfaceRegion(t *testing.T) {
	heap := New(0)

	stringers, err := Alloc[fmt.Stringer](heap, 1)
	require.NoError(t, err)

	require.NoError(t, heap.Store(stringers.Offset(), gaddr.Address{Core: 1, Offset: 64}))
	require.NoError(t, heap.Store(stringers.Offset(), nil))
	assert.Error(t, heap.Store(stringers.Offset(), 7))
}

func TestManyRegions(t *testing.T) {
	heap := New(0)
	refs := make([]gaddr.Ref[uint32], 0, 100)

	for i := 0; i < 100; i++ {
		ref, err := Alloc[uint32](heap, uint64(i%7+1))
		require.NoError(t, err)
		require.NoError(t, Store(heap, ref, uint32(i)))
		refs = append(refs, ref)
	}

	for i, ref := range refs {
		value, err := Load(heap, ref)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), value)
	}

	assert.Equal(t, 100, heap.Regions())
}
