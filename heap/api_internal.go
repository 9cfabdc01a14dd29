// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package heap

import (
	"fmt"
	"reflect"

	"github.com/NVIDIA/sortedmap"

	"github.com/NVIDIA/pgas/blunder"
	"github.com/NVIDIA/pgas/logger"
)

const regionAlignment uint64 = 8

type regionStruct struct {
	base     uint64
	elemSize uint64
	elemType reflect.Type
	slots    []interface{}
}

func (region *regionStruct) limit() uint64 {
	return region.base + region.elemSize*uint64(len(region.slots))
}

func (region *regionStruct) checkType(offset uint64, valueType reflect.Type) (err error) {
	if region.elemType.Kind() == reflect.Interface {
		if (nil == valueType) || valueType.Implements(region.elemType) {
			return
		}
	} else if valueType == region.elemType {
		return
	}
	err = typeMismatch(offset, region.elemType, valueType)
	return
}

func typeMismatch(offset uint64, allocatedType reflect.Type, requestedType reflect.Type) error {
	return blunder.NewError(blunder.TypeMismatchError, "offset 0x%X holds %v, not %v", offset, allocatedType, requestedType)
}

// regionIndex maps region base offset to *regionStruct
type regionIndex struct {
	tree sortedmap.LLRBTree
}

func (index *regionIndex) init() {
	index.tree = sortedmap.NewLLRBTree(sortedmap.CompareUint64, index)
}

func (index *regionIndex) len() (numRegions int) {
	numRegions, err := index.tree.Len()
	if nil != err {
		logger.FatalfWithError(err, "region index Len() failed")
	}
	return
}

func (index *regionIndex) DumpKey(key sortedmap.Key) (keyAsString string, err error) {
	keyAsUint64, ok := key.(uint64)
	if !ok {
		err = fmt.Errorf("region index key %v not a uint64", key)
		return
	}
	keyAsString = fmt.Sprintf("0x%016X", keyAsUint64)
	return
}

func (index *regionIndex) DumpValue(value sortedmap.Value) (valueAsString string, err error) {
	region, ok := value.(*regionStruct)
	if !ok {
		err = fmt.Errorf("region index value %v not a *regionStruct", value)
		return
	}
	valueAsString = fmt.Sprintf("%v[%d] @ 0x%X", region.elemType, len(region.slots), region.base)
	return
}

func (heap *Heap) allocType(elemType reflect.Type, elemSize uint64, count uint64) (offset uint64, err error) {
	if 0 == count {
		err = blunder.NewError(blunder.InvalidArgError, "heap.Alloc() of zero %v elements", elemType)
		return
	}
	if 0 == elemSize {
		elemSize = 1
	}

	region := &regionStruct{
		base:     heap.nextOffset,
		elemSize: elemSize,
		elemType: elemType,
		slots:    make([]interface{}, count),
	}

	zero := reflect.Zero(elemType).Interface()
	for i := range region.slots {
		region.slots[i] = zero
	}

	ok, err := heap.regions.tree.Put(region.base, region)
	if nil != err {
		return
	}
	if !ok {
		err = blunder.NewError(blunder.InvariantError, "heap region at 0x%X already present", region.base)
		return
	}

	heap.nextOffset = (region.limit() + regionAlignment - 1) &^ (regionAlignment - 1)

	offset = region.base

	logger.Tracef("core %d allocated %v[%d] at 0x%X", heap.core, elemType, count, offset)

	return
}

// locate resolves offset to the region containing it and the element index within that region
func (heap *Heap) locate(offset uint64) (region *regionStruct, index uint64, err error) {
	regionPos, _, err := heap.regions.tree.BisectLeft(offset)
	if nil != err {
		return
	}

	// BisectLeft returns the region at or just before offset (-1 if none)
	if 0 > regionPos {
		err = blunder.NewError(blunder.BadAddressError, "offset 0x%X on core %d below every allocation", offset, heap.core)
		return
	}

	_, value, ok, err := heap.regions.tree.GetByIndex(regionPos)
	if nil != err {
		return
	}
	if !ok {
		err = blunder.NewError(blunder.InvariantError, "region index %d vanished", regionPos)
		return
	}

	region = value.(*regionStruct)

	if offset >= region.limit() {
		err = blunder.NewError(blunder.BadAddressError, "offset 0x%X on core %d not allocated", offset, heap.core)
		return
	}
	if 0 != (offset-region.base)%region.elemSize {
		err = blunder.NewError(blunder.BadAddressError, "offset 0x%X on core %d not aligned to a %v element", offset, heap.core, region.elemType)
		return
	}

	index = (offset - region.base) / region.elemSize

	return
}
