// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package ownermeta

import (
	"math/bits"

	"github.com/NVIDIA/pgas/gaddr"
)

// Copyset is the set of partitions believed to hold a valid cached copy.
// The zero value is an empty set.
type Copyset struct {
	words []uint64
}

// MakeCopyset returns a Copyset holding cores
func MakeCopyset(cores ...gaddr.Core) (copyset Copyset) {
	for _, core := range cores {
		copyset.Add(core)
	}
	return
}

func (copyset *Copyset) Add(core gaddr.Core) {
	word := int(core) / 64
	for len(copyset.words) <= word {
		copyset.words = append(copyset.words, 0)
	}
	copyset.words[word] |= 1 << (uint(core) % 64)
}

func (copyset *Copyset) Remove(core gaddr.Core) {
	word := int(core) / 64
	if word < len(copyset.words) {
		copyset.words[word] &^= 1 << (uint(core) % 64)
	}
}

func (copyset *Copyset) Contains(core gaddr.Core) bool {
	word := int(core) / 64
	if word >= len(copyset.words) {
		return false
	}
	return 0 != copyset.words[word]&(1<<(uint(core)%64))
}

func (copyset *Copyset) Len() (count int) {
	for _, word := range copyset.words {
		count += bits.OnesCount64(word)
	}
	return
}

func (copyset *Copyset) Clear() {
	copyset.words = copyset.words[:0]
}

// Members returns the cores in copyset in ascending order
func (copyset *Copyset) Members() (cores []gaddr.Core) {
	cores = make([]gaddr.Core, 0, copyset.Len())
	for i, word := range copyset.words {
		for 0 != word {
			bit := bits.TrailingZeros64(word)
			cores = append(cores, gaddr.Core(i*64+bit))
			word &^= 1 << uint(bit)
		}
	}
	return
}

// Clone returns an independent copy of copyset
func (copyset *Copyset) Clone() (clone Copyset) {
	clone.words = append([]uint64(nil), copyset.words...)
	return
}
