// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package heap is the per-partition object store backing the global address space.
//
// Storage is carved into typed regions by a bump allocator. Each region holds
// count elements of a single Go type; the regions are indexed by base offset in
// a sortedmap.LLRBTree so that any offset inside a region resolves to its
// (region, element) in O(log regions). A Heap belongs to exactly one partition
// and is only touched by that partition's running task or message handler.
package heap

import (
	"reflect"

	"github.com/NVIDIA/pgas/gaddr"
)

// FirstOffset is the lowest offset ever allocated so that offset 0 may serve as nil
const FirstOffset uint64 = 64

// Heap is one partition's storage
type Heap struct {
	core       gaddr.Core
	nextOffset uint64
	regions    regionIndex
}

// New returns an empty Heap for core
func New(core gaddr.Core) (heap *Heap) {
	heap = &Heap{
		core:       core,
		nextOffset: FirstOffset,
	}
	heap.regions.init()
	return
}

// Core returns the partition owning heap
func (heap *Heap) Core() gaddr.Core {
	return heap.core
}

// AllocType reserves count zeroed elements of elemType, each elemSize bytes apart,
// returning the offset of the first
func (heap *Heap) AllocType(elemType reflect.Type, elemSize uint64, count uint64) (offset uint64, err error) {
	offset, err = heap.allocType(elemType, elemSize, count)
	return
}

// Alloc reserves count zeroed T elements on heap
func Alloc[T any](heap *Heap, count uint64) (ref gaddr.Ref[T], err error) {
	offset, err := heap.allocType(reflect.TypeOf((*T)(nil)).Elem(), gaddr.ElementSize[T](), count)
	if nil != err {
		return
	}
	ref = gaddr.MakeRef[T](heap.core, offset)
	return
}

// Load returns the element stored at offset
func (heap *Heap) Load(offset uint64) (value interface{}, err error) {
	region, index, err := heap.locate(offset)
	if nil != err {
		return
	}
	value = region.slots[index]
	return
}

// Store replaces the element at offset with value, whose type must be that of the allocation
func (heap *Heap) Store(offset uint64, value interface{}) (err error) {
	region, index, err := heap.locate(offset)
	if nil != err {
		return
	}
	err = region.checkType(offset, reflect.TypeOf(value))
	if nil != err {
		return
	}
	region.slots[index] = value
	return
}

// TypeAt returns the element type of the allocation containing offset
func (heap *Heap) TypeAt(offset uint64) (elemType reflect.Type, err error) {
	region, _, err := heap.locate(offset)
	if nil != err {
		return
	}
	elemType = region.elemType
	return
}

// Load[T] is the typed form of (*Heap).Load
func Load[T any](heap *Heap, ref gaddr.Ref[T]) (value T, err error) {
	untyped, err := heap.Load(ref.Offset())
	if nil != err {
		return
	}
	value, ok := untyped.(T)
	if !ok {
		err = typeMismatch(ref.Offset(), reflect.TypeOf(untyped), reflect.TypeOf((*T)(nil)).Elem())
	}
	return
}

// Store[T] is the typed form of (*Heap).Store
func Store[T any](heap *Heap, ref gaddr.Ref[T], value T) (err error) {
	err = heap.Store(ref.Offset(), value)
	return
}

// Regions returns the number of allocations made from heap
func (heap *Heap) Regions() int {
	return heap.regions.len()
}

// Used returns the number of bytes of offset space handed out
func (heap *Heap) Used() uint64 {
	return heap.nextOffset - FirstOffset
}
