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

// Package dict is a separately chained hash dictionary built on a manually
// managed growable buffer.
//
// # Layout
//
// A Dict keeps two structures. The pair storage is a Buffer of key/value
// pairs in insertion order; it is the definitive home of every value. The
// bucket list is an array of collision chains, one per hash slot, where each
// chain entry (a link) holds a copy of a key and the index of its pair in
// the pair storage. Links refer to pairs by index rather than by pointer
// because the pair storage relocates whenever it grows.
//
//	buckets (count=7)            pairs
//	+---+                        +-----------+
//	| 0 | -> {"b",1}             | 0 "a" 10  |
//	+---+                        +-----------+
//	| 1 |                        | 1 "b" 20  |
//	+---+                        +-----------+
//	| 2 | -> {"a",0} -> {"c",2}  | 2 "c" 30  |
//	+---+                        +-----------+
//	 ...
//
// Lookup hashes the key, reduces the hash modulo the bucket count, scans the
// chain for an equal key and dereferences the pair storage at the stored
// index.
//
// # Rehashing
//
// The bucket count is always prime. Before an insertion that would push the
// load factor (len/bucket count) above the configured maximum, or, when
// chain lengths are capped, insert into a chain that is already full, the
// bucket list is rebuilt with nextPrime(2*count) buckets and every pair is
// re-linked in storage order. A full chain whose keys share the full hash of
// the new key cannot be split by any bucket count and grows past the cap
// instead. Rehashing never touches the pair storage, so link indexes stay
// valid. The cost is O(len+count), amortized O(1) per insertion.
//
// # Erasure
//
// By default Erase moves the last pair into the erased slot and re-points
// that pair's link (swap-remove), which is O(1) but perturbs iteration
// order. WithOrderedErase compacts the pair storage instead and decrements
// every link index past the hole, preserving insertion order.
//
// # Hashing
//
// DefaultHash is a 64-bit SuperFastHash over the canonical byte form of the
// key with a fixed seed, so the layout of a Dict is identical from run to
// run.
package dict

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	debug = false

	// DefaultBuckets is the bucket count of a Dict constructed with
	// initialBuckets <= 0.
	DefaultBuckets = 7
	// DefaultMaxLoad is the load factor limit used unless WithMaxLoad is
	// given.
	DefaultMaxLoad = 1.0
)

// Pair holds a key and value. The key of a stored pair never changes.
type Pair[K comparable, V any] struct {
	key   K
	value V
}

// Key returns the key of the pair.
func (p *Pair[K, V]) Key() K {
	return p.key
}

// Value returns the value of the pair.
func (p *Pair[K, V]) Value() V {
	return p.value
}

// Dict is a map from keys to values that iterates in insertion order (see
// WithOrderedErase for the effect of Erase on that order).
//
// Pointers to values returned by GetOrInsert, Insert and Emplace point into
// the pair storage and are valid only until the next insertion of a new key
// or the next Erase, whichever comes first.
//
// A Dict is NOT goroutine-safe: concurrent use requires external locking.
type Dict[K comparable, V any] struct {
	hash HashFunc[K]
	seed uint64
	// The insertion ordered key/value pairs.
	pairs Buffer[Pair[K, V]]
	// The collision chains linking keys to indexes in pairs.
	buckets bucketList[K]
	// The load factor that must hold after every insertion.
	maxLoad float64
	// When limitBucketSize is set, inserting into a chain holding
	// maxBucketSize links triggers a rehash.
	limitBucketSize bool
	maxBucketSize   int
	orderedErase    bool
	logger          *slog.Logger
	metrics         MetricsObserver
	// The per-chain capacity carved from the bucket list slab.
	slabWindow int
	// The number of rehashes performed since construction.
	rehashes int
}

// New constructs a Dict with room for initialBuckets collision chains,
// rounded up to a prime. If initialBuckets <= 0, DefaultBuckets is used.
func New[K comparable, V any](initialBuckets int, options ...option[K, V]) *Dict[K, V] {
	m := &Dict[K, V]{
		hash:    DefaultHash[K],
		maxLoad: DefaultMaxLoad,
	}

	for _, op := range options {
		op.apply(m)
	}

	if !(m.maxLoad > 0) {
		panic(fmt.Sprintf("dict: max load must be positive, got %v", m.maxLoad))
	}
	if m.maxBucketSize < 0 {
		panic(fmt.Sprintf("dict: max bucket size must not be negative, got %d", m.maxBucketSize))
	}
	if m.hash == nil {
		m.hash = DefaultHash[K]
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.metrics == nil {
		m.metrics = NoopMetricsObserver{}
	}

	count := DefaultBuckets
	if initialBuckets > 0 {
		count = nextPrime(initialBuckets)
	}
	if m.limitBucketSize {
		m.slabWindow = slabWindow(m.maxBucketSize, m.maxLoad)
	}
	m.buckets = makeBucketList[K](count, m.slabWindow)

	m.checkInvariants()
	return m
}

// Close releases the pair storage back to its configured allocator. It is
// unnecessary to close a Dict using the default allocator. Close is
// idempotent; any later lookup or insertion panics.
func (m *Dict[K, V]) Close() {
	m.pairs.Close()
	m.buckets = bucketList[K]{}
}

// GetOrInsert returns a pointer to the value for key, inserting a zero value
// first if the key is absent.
func (m *Dict[K, V]) GetOrInsert(key K) *V {
	s, pos, ok := m.find(&key)
	if ok {
		return &m.pairAt(s, pos).value
	}
	var zero V
	return m.uncheckedInsert(key, zero, s)
}

// Insert sets the value for key, overwriting an existing value if an entry
// with the same key already exists, and returns a pointer to the stored
// value.
func (m *Dict[K, V]) Insert(key K, value V) *V {
	s, pos, ok := m.find(&key)
	if ok {
		p := m.pairAt(s, pos)
		p.value = value
		return &p.value
	}
	return m.uncheckedInsert(key, value, s)
}

// Emplace inserts a zero value for key and calls init to construct it in
// place, returning the stored value and true. If the key is already present
// init is not called and the existing value is returned with false. init
// must not mutate the Dict.
func (m *Dict[K, V]) Emplace(key K, init func(v *V)) (*V, bool) {
	s, pos, ok := m.find(&key)
	if ok {
		return &m.pairAt(s, pos).value, false
	}
	var zero V
	v := m.uncheckedInsert(key, zero, s)
	if init != nil {
		init(v)
	}
	return v, true
}

// Get retrieves the value from the dict for the specified key, return
// ok=false if the key is not present.
func (m *Dict[K, V]) Get(key K) (value V, ok bool) {
	s, pos, ok := m.find(&key)
	if !ok {
		return value, false
	}
	return m.pairAt(s, pos).value, true
}

// At retrieves the value for key, returning an error wrapping
// ErrKeyNotFound if the key is not present.
func (m *Dict[K, V]) At(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, keyNotFound(key)
	}
	return v, nil
}

// Contains reports whether key is present.
func (m *Dict[K, V]) Contains(key K) bool {
	_, _, ok := m.find(&key)
	return ok
}

// Erase removes the entry for key, returning an error wrapping
// ErrKeyNotFound if the key is not present.
func (m *Dict[K, V]) Erase(key K) error {
	s, pos, ok := m.find(&key)
	if !ok {
		if debug {
			fmt.Printf("erase(%v): not found\n", key)
		}
		return keyNotFound(key)
	}

	b := &m.buckets.buckets[s]
	index := b.links[pos].index
	b.remove(pos)

	if m.orderedErase {
		// Every pair behind index moves one slot earlier, so every link
		// pointing past index has to follow.
		if err := m.pairs.Erase(index); err != nil {
			panic(fmt.Sprintf("dict: erase of linked pair failed: %v\n%s", err, m.debugString()))
		}
		m.buckets.shiftAfter(index)
	} else {
		pairs := m.pairs.live()
		last := len(pairs) - 1
		if index != last {
			// Move the last pair into the hole and re-point its link.
			moved := &pairs[last]
			ms, mpos, ok := m.find(&moved.key)
			if !ok {
				panic(fmt.Sprintf("dict: no link for pair %d (%v)\n%s", last, moved.key, m.debugString()))
			}
			m.buckets.buckets[ms].links[mpos].index = index
			pairs[index] = *moved
		}
		if _, err := m.pairs.PopBack(); err != nil {
			panic(fmt.Sprintf("dict: pop of linked pair failed: %v\n%s", err, m.debugString()))
		}
	}

	if debug {
		fmt.Printf("erase(%v): slot=%d index=%d len=%d\n", key, s, index, m.pairs.Len())
	}
	m.checkInvariants()
	return nil
}

// All calls yield sequentially for each key and value present in the dict,
// in pair storage order. If yield returns false, iteration stops. The dict
// must not be mutated during iteration.
func (m *Dict[K, V]) All(yield func(key K, value V) bool) {
	m.pairs.All(func(_ int, p Pair[K, V]) bool {
		return yield(p.key, p.value)
	})
}

// Clear removes every entry. The bucket count is retained.
func (m *Dict[K, V]) Clear() {
	m.pairs.Clear()
	m.buckets = makeBucketList[K](m.buckets.count(), m.slabWindow)
	m.checkInvariants()
}

// Len returns the number of entries in the dict.
func (m *Dict[K, V]) Len() int {
	return m.pairs.Len()
}

// BucketCount returns the number of collision chains.
func (m *Dict[K, V]) BucketCount() int {
	return m.buckets.count()
}

// MaxLoad returns the configured load factor limit.
func (m *Dict[K, V]) MaxLoad() float64 {
	return m.maxLoad
}

// LoadFactor returns Len()/BucketCount().
func (m *Dict[K, V]) LoadFactor() float64 {
	return float64(m.pairs.Len()) / float64(m.buckets.count())
}

// Rehashes returns the number of times the bucket list has been rebuilt.
func (m *Dict[K, V]) Rehashes() int {
	return m.rehashes
}

// BucketSizes returns the length of every collision chain, indexed by slot.
// It is intended for measuring hash distribution quality.
func (m *Dict[K, V]) BucketSizes() []int {
	sizes := make([]int, m.buckets.count())
	for i := range m.buckets.buckets {
		sizes[i] = m.buckets.buckets[i].size()
	}
	return sizes
}

// find locates key, returning the slot of its chain and, if ok, its position
// within the chain. The slot is valid even when the key is absent.
func (m *Dict[K, V]) find(key *K) (slot, pos int, ok bool) {
	slot = m.buckets.slot(m.hash(key, m.seed))
	pos, ok = m.buckets.buckets[slot].find(*key)
	return slot, pos, ok
}

// pairAt returns the pair referenced by the link at pos in chain slot.
func (m *Dict[K, V]) pairAt(slot, pos int) *Pair[K, V] {
	return &m.pairs.data[m.buckets.buckets[slot].links[pos].index]
}

// uncheckedInsert inserts a pair for a key known not to be present and
// returns a pointer to its value. slot is the chain the key hashes to under
// the current bucket count.
func (m *Dict[K, V]) uncheckedInsert(key K, value V, slot int) *V {
	// The triggers are checked against the state the insertion would
	// produce, so the load factor never exceeds maxLoad afterwards.
	if m.overloaded(m.pairs.Len() + 1) {
		for m.overloaded(m.pairs.Len() + 1) {
			m.rehash("load")
		}
		slot = m.buckets.slot(m.hash(&key, m.seed))
	}
	for m.chainFull(slot, &key) {
		m.rehash("bucket-size")
		slot = m.buckets.slot(m.hash(&key, m.seed))
	}

	// Reserve room in both the pair storage and the chain before writing
	// either, so that a failed allocation cannot leave a pair without its
	// link or a link without its pair.
	m.pairs.ensure(1)
	b := &m.buckets.buckets[slot]
	if b.reserve() && debug {
		fmt.Printf("insert(%v): slot=%d spilled at %d links\n", key, slot, b.size())
	}
	if m.limitBucketSize && b.size() >= m.maxBucketSize {
		// Only reachable when maxBucketSize keys in the chain share the full
		// hash of key.
		m.logger.Warn("bucket overflow",
			"slot", slot,
			"size", b.size()+1,
			"max", m.maxBucketSize,
			"buckets", m.buckets.count(),
		)
		m.metrics.OnBucketOverflow(b.size() + 1)
	}

	index := m.pairs.Len()
	p := m.pairs.EmplaceBack(Pair[K, V]{key: key, value: value})
	b.emplace(key, index)

	if debug {
		fmt.Printf("insert(%v): slot=%d index=%d len=%d\n", key, slot, index, m.pairs.Len())
	}
	m.checkInvariants()
	return &p.value
}

// overloaded reports whether holding n entries would exceed maxLoad.
func (m *Dict[K, V]) overloaded(n int) bool {
	return float64(n) > m.maxLoad*float64(m.buckets.count())
}

// chainFull reports whether inserting key into slot should trigger a
// bucket-size rehash: the chain holds maxBucketSize links and a larger bucket
// count could separate key from enough of them. A chain whose links share the
// full hash of key cannot be split by any bucket count; it overflows instead.
func (m *Dict[K, V]) chainFull(slot int, key *K) bool {
	if !m.limitBucketSize {
		return false
	}
	links := m.buckets.buckets[slot].links
	if len(links) < m.maxBucketSize {
		return false
	}
	h := m.hash(key, m.seed)
	var same int
	for i := range links {
		if m.hash(&links[i].key, m.seed) == h {
			if same++; same >= m.maxBucketSize {
				return false
			}
		}
	}
	return true
}

// rehash rebuilds the bucket list with nextPrime(2*count) buckets and
// re-links every pair in storage order. The pair storage is untouched.
func (m *Dict[K, V]) rehash(reason string) {
	start := time.Now()
	oldCount := m.buckets.count()
	newCount := nextPrime(2 * oldCount)
	m.buckets = makeBucketList[K](newCount, m.slabWindow)

	pairs := m.pairs.live()
	for i := range pairs {
		key := &pairs[i].key
		slot := m.buckets.slot(m.hash(key, m.seed))
		m.buckets.buckets[slot].emplace(*key, i)
	}
	m.rehashes++
	m.metrics.OnRehash(reason, time.Since(start), oldCount, newCount, len(pairs))

	if debug {
		fmt.Printf("rehash(%s): buckets=%d->%d len=%d\n", reason, oldCount, newCount, len(pairs))
	}
	m.logger.Debug("rehash",
		"reason", reason,
		"len", len(pairs),
		"buckets.old", oldCount,
		"buckets.new", newCount,
	)
}

func (m *Dict[K, V]) checkInvariants() {
	if invariants {
		if err := m.verify(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, m.debugString()))
		}
	}
}

// verify checks the structural invariants of the dict: the bucket count is
// prime, no two pairs share a key, every pair is reachable through exactly
// one link in the chain its key hashes to, and the load factor is within
// bounds.
func (m *Dict[K, V]) verify() error {
	count := m.buckets.count()
	if !isPrime(count) {
		return fmt.Errorf("bucket count %d is not prime", count)
	}

	pairs := m.pairs.live()
	if links := m.buckets.links(); links != len(pairs) {
		return fmt.Errorf("found %d links, but %d pairs", links, len(pairs))
	}

	keys := make(map[K]int, len(pairs))
	for i := range pairs {
		if j, ok := keys[pairs[i].key]; ok {
			return fmt.Errorf("pairs %d and %d share key %v", j, i, pairs[i].key)
		}
		keys[pairs[i].key] = i
	}

	seen := make([]bool, len(pairs))
	for slot := range m.buckets.buckets {
		for _, l := range m.buckets.buckets[slot].links {
			if l.index < 0 || l.index >= len(pairs) {
				return fmt.Errorf("slot(%d): %v links to index %d, len %d", slot, l.key, l.index, len(pairs))
			}
			if seen[l.index] {
				return fmt.Errorf("slot(%d): index %d linked twice", slot, l.index)
			}
			seen[l.index] = true
			if k := pairs[l.index].key; k != l.key {
				return fmt.Errorf("slot(%d): link key %v != pair(%d) key %v", slot, l.key, l.index, k)
			}
			if s := m.buckets.slot(m.hash(&l.key, m.seed)); s != slot {
				return fmt.Errorf("slot(%d): %v hashes to slot %d", slot, l.key, s)
			}
		}
	}

	if m.overloaded(len(pairs)) {
		return fmt.Errorf("load factor %d/%d exceeds %v", len(pairs), count, m.maxLoad)
	}
	return nil
}

func (m *Dict[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  len=%d  max-load=%v  rehashes=%d\n",
		m.buckets.count(), m.pairs.Len(), m.maxLoad, m.rehashes)
	for slot := range m.buckets.buckets {
		links := m.buckets.buckets[slot].links
		if len(links) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", slot)
		for _, l := range links {
			fmt.Fprintf(&buf, " {%v,%d}", l.key, l.index)
		}
		buf.WriteString("\n")
	}
	for i, p := range m.pairs.live() {
		fmt.Fprintf(&buf, "  pair %4d: %v\n", i, p.key)
	}
	return buf.String()
}
