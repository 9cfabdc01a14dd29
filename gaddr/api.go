// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package gaddr names objects in the partitioned global address space.
//
// An Address is (owning partition, byte offset within that partition's heap).
// A Ref[T] is an Address that additionally carries the element type T so that
// Add() advances by whole elements and typed accessors can check the type of
// the allocation they land in.
package gaddr

import (
	"fmt"
	"unsafe"
)

// Core identifies a partition
type Core uint16

// Address is an untyped global address
type Address struct {
	Core   Core
	Offset uint64
}

func (address Address) String() string {
	return fmt.Sprintf("%d:0x%X", address.Core, address.Offset)
}

// IsNil reports whether address is the zero Address (no heap allocation lives at offset 0)
func (address Address) IsNil() bool {
	return 0 == address.Offset
}

// Ref is a typed global reference. It does not own its referent.
type Ref[T any] struct {
	address Address
}

// MakeRef returns a Ref[T] naming offset on core
func MakeRef[T any](core Core, offset uint64) Ref[T] {
	return Ref[T]{address: Address{Core: core, Offset: offset}}
}

// ElementSize returns the stride used by Ref[T].Add()
func ElementSize[T any]() uint64 {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	if 0 == size {
		size = 1
	}
	return size
}

func (ref Ref[T]) Core() Core {
	return ref.address.Core
}

func (ref Ref[T]) Offset() uint64 {
	return ref.address.Offset
}

func (ref Ref[T]) Address() Address {
	return ref.address
}

func (ref Ref[T]) IsNil() bool {
	return ref.address.IsNil()
}

// Add returns a Ref[T] n elements past ref on the same partition
func (ref Ref[T]) Add(n int64) Ref[T] {
	ref.address.Offset = uint64(int64(ref.address.Offset) + n*int64(ElementSize[T]()))
	return ref
}

func (ref Ref[T]) String() string {
	var zero T
	return fmt.Sprintf("%T@%v", zero, ref.address)
}
