// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dict

import (
	"math"
	"slices"
)

// link ties a key to the index of its pair in the Dict's pair storage. The
// key is copied so that chains can be searched without touching the pair
// storage, which relocates whenever it grows.
type link[K comparable] struct {
	key   K
	index int
}

// bucket is the collision chain for one hash slot.
type bucket[K comparable] struct {
	links []link[K]
}

// emplace appends a link for key. Room must have been reserved beforehand if
// the caller cannot tolerate an allocation.
func (b *bucket[K]) emplace(key K, index int) {
	b.links = append(b.links, link[K]{key: key, index: index})
}

// find returns the position of key within the chain.
func (b *bucket[K]) find(key K) (pos int, ok bool) {
	for i := range b.links {
		if b.links[i].key == key {
			return i, true
		}
	}
	return -1, false
}

// remove deletes the link at position pos. Chain order is not meaningful so
// the last link is moved into the hole.
func (b *bucket[K]) remove(pos int) {
	last := len(b.links) - 1
	b.links[pos] = b.links[last]
	b.links[last] = link[K]{}
	b.links = b.links[:last]
}

// reserve guarantees room for one more link, returning true if doing so
// moved the chain to a new allocation. A chain carved out of a bucketList
// slab never grows in place, so a spill means it left the slab.
func (b *bucket[K]) reserve() (spilled bool) {
	if len(b.links) < cap(b.links) {
		return false
	}
	b.links = slices.Grow(b.links, 1)
	return true
}

func (b *bucket[K]) size() int {
	return len(b.links)
}

// bucketList owns every chain of a Dict. When perBucket > 0 the chains are
// fixed-capacity windows into a single slab of count*perBucket links;
// otherwise each chain is allocated independently as it grows. A bucketList
// is only ever rebuilt wholesale, never resized.
type bucketList[K comparable] struct {
	buckets   []bucket[K]
	slab      []link[K]
	perBucket int
}

// maxSlabWindow bounds the per-chain capacity carved from a slab, whatever
// the configured maximum bucket size.
const maxSlabWindow = 10

// slabWindow returns the number of links reserved per chain in the slab of a
// Dict limiting chains to maxBucketSize links. Chains are expected to hold
// about maxLoad links, so the window covers that plus one; longer chains
// spill to their own allocation.
func slabWindow(maxBucketSize int, maxLoad float64) int {
	window := maxSlabWindow
	if maxLoad < maxSlabWindow {
		window = min(int(math.Ceil(maxLoad))+1, maxSlabWindow)
	}
	return min(maxBucketSize, window)
}

func makeBucketList[K comparable](count, perBucket int) bucketList[K] {
	l := bucketList[K]{
		buckets:   make([]bucket[K], count),
		perBucket: perBucket,
	}
	if perBucket > 0 {
		l.slab = make([]link[K], count*perBucket)
		for i := range l.buckets {
			off := i * perBucket
			l.buckets[i].links = l.slab[off : off : off+perBucket]
		}
	}
	return l
}

// count returns the number of buckets.
func (l *bucketList[K]) count() int {
	return len(l.buckets)
}

// slot maps a hash value to a bucket index.
func (l *bucketList[K]) slot(h uint64) int {
	if len(l.buckets) == 0 {
		panic("dict: use of a closed Dict")
	}
	return int(h % uint64(len(l.buckets)))
}

// links returns the total number of links across all chains.
func (l *bucketList[K]) links() int {
	var n int
	for i := range l.buckets {
		n += l.buckets[i].size()
	}
	return n
}

// shiftAfter decrements every link index greater than index. Used after the
// pair at index has been erased and the pairs behind it compacted.
func (l *bucketList[K]) shiftAfter(index int) {
	for i := range l.buckets {
		links := l.buckets[i].links
		for j := range links {
			if links[j].index > index {
				links[j].index--
			}
		}
	}
}
