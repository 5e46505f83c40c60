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

import "log/slog"

// option provide an interface to do work on Dict while it is being created.
type option[K comparable, V any] interface {
	apply(m *Dict[K, V])
}

type hashOption[K comparable, V any] struct {
	hash HashFunc[K]
}

func (op hashOption[K, V]) apply(m *Dict[K, V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Dict[K,V].
// The function must be deterministic: equal keys must produce equal hashes.
func WithHash[K comparable, V any](hash HashFunc[K]) option[K, V] {
	return hashOption[K, V]{hash}
}

type seedOption[K comparable, V any] struct {
	seed uint64
}

func (op seedOption[K, V]) apply(m *Dict[K, V]) {
	m.seed = op.seed
}

// WithSeed overrides the fixed default hash seed of 0. The seed is never
// randomized so that bucket layouts are reproducible across runs.
func WithSeed[K comparable, V any](seed uint64) option[K, V] {
	return seedOption[K, V]{seed}
}

type maxLoadOption[K comparable, V any] struct {
	maxLoad float64
}

func (op maxLoadOption[K, V]) apply(m *Dict[K, V]) {
	m.maxLoad = op.maxLoad
}

// WithMaxLoad sets the load factor (len/bucket count) that a Dict will never
// exceed after an insertion. It must be positive.
func WithMaxLoad[K comparable, V any](maxLoad float64) option[K, V] {
	return maxLoadOption[K, V]{maxLoad}
}

type maxBucketSizeOption[K comparable, V any] struct {
	size int
}

func (op maxBucketSizeOption[K, V]) apply(m *Dict[K, V]) {
	m.limitBucketSize = op.size > 0
	m.maxBucketSize = op.size
}

// WithMaxBucketSize caps the length of a collision chain. Inserting into a
// chain that already holds size links rehashes the Dict first. The chains
// are then carved out of a single fixed-capacity slab. A size of 0 disables
// the cap.
func WithMaxBucketSize[K comparable, V any](size int) option[K, V] {
	return maxBucketSizeOption[K, V]{size}
}

type orderedEraseOption[K comparable, V any] struct{}

func (orderedEraseOption[K, V]) apply(m *Dict[K, V]) {
	m.orderedErase = true
}

// WithOrderedErase makes Erase compact the pair storage instead of moving
// the last pair into the erased slot. Iteration then stays in insertion
// order across erasures, at the price of an O(len+buckets) Erase.
func WithOrderedErase[K comparable, V any]() option[K, V] {
	return orderedEraseOption[K, V]{}
}

type loggerOption[K comparable, V any] struct {
	logger *slog.Logger
}

func (op loggerOption[K, V]) apply(m *Dict[K, V]) {
	m.logger = op.logger
}

// WithLogger is an option to receive structured events about rehashes and
// overflowing chains. By default events are discarded.
func WithLogger[K comparable, V any](logger *slog.Logger) option[K, V] {
	return loggerOption[K, V]{logger}
}

type metricsOption[K comparable, V any] struct {
	observer MetricsObserver
}

func (op metricsOption[K, V]) apply(m *Dict[K, V]) {
	m.metrics = op.observer
}

// WithMetricsObserver is an option to report rehashes and overflowing chains
// to observer. A nil observer disables reporting.
func WithMetricsObserver[K comparable, V any](observer MetricsObserver) option[K, V] {
	return metricsOption[K, V]{observer}
}

// Allocator specifies an interface for allocating and releasing the backing
// memory of a Buffer. The default allocator utilizes Go's builtin make() and
// allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slices be
// freed then Buffer.Close (or Dict.Close) must be called in order to ensure
// Free is called.
type Allocator[T any] interface {
	// Alloc should return a slice equivalent to make([]T, n). Every element
	// must be the zero value.
	Alloc(n int) []T

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc. The slice is
	// never used again by the caller.
	Free(v []T)
}

type defaultAllocator[T any] struct{}

func (defaultAllocator[T]) Alloc(n int) []T {
	return make([]T, n)
}

func (defaultAllocator[T]) Free(v []T) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[Pair[K, V]]
}

func (op allocatorOption[K, V]) apply(m *Dict[K, V]) {
	m.pairs.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for the pair
// storage of a Dict[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[Pair[K, V]]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
