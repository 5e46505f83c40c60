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

import "fmt"

// defaultBufferCapacity is the capacity of the first allocation made by a
// Buffer that was created empty.
const defaultBufferCapacity = 4

// Buffer is a growable contiguous array of T whose backing memory is
// obtained from an Allocator. It tracks its logical length (Len) separately
// from the allocated capacity (Cap). Slots past Len always hold the zero
// value and are never handed out.
//
// Growth doubles the capacity by allocating a new backing slice, moving
// every live element and releasing the old slice to the allocator. A growth
// event invalidates every pointer previously returned by EmplaceBack or At:
// such pointers still reference the released storage and writes through
// them are lost (or, with an off-heap allocator, fault). Callers must not
// hold element pointers across an operation that may grow the Buffer.
//
// The zero value is an empty Buffer using the default allocator. A Buffer
// is NOT goroutine-safe.
type Buffer[T any] struct {
	allocator Allocator[T]
	// data is the backing storage. len(data) is the capacity.
	data []T
	// The number of live elements, data[:size].
	size int
	// The number of growth events over the lifetime of the Buffer.
	growths int
}

// NewBuffer constructs a Buffer with room for at least capacity elements. A
// nil allocator selects the default allocator.
func NewBuffer[T any](capacity int, allocator Allocator[T]) *Buffer[T] {
	b := &Buffer[T]{allocator: allocator}
	b.Reserve(capacity)
	return b
}

// Close releases the backing storage to the allocator. The Buffer is empty
// afterwards. Close is idempotent.
func (b *Buffer[T]) Close() {
	if b.data != nil {
		clear(b.data[:b.size])
		b.alloc().Free(b.data)
	}
	b.data = nil
	b.size = 0
}

// EmplaceBack appends v, growing the Buffer first if it is full, and returns
// a pointer to the stored element. The pointer is valid only until the next
// growth event.
func (b *Buffer[T]) EmplaceBack(v T) *T {
	b.ensure(1)
	p := &b.data[b.size]
	*p = v
	b.size++
	return p
}

// PopBack removes and returns the last element.
func (b *Buffer[T]) PopBack() (T, error) {
	var zero T
	if b.size == 0 {
		return zero, outOfRange(-1, 0)
	}
	b.size--
	v := b.data[b.size]
	b.data[b.size] = zero
	return v, nil
}

// Reserve guarantees Cap() >= n without changing Len(). It is a no-op if the
// capacity already suffices, otherwise it is a growth event.
func (b *Buffer[T]) Reserve(n int) {
	if n <= len(b.data) {
		return
	}
	b.realloc(n)
}

// Resize sets Len() to n. Growing always reallocates storage of exactly n
// elements and moves the live elements into it (a growth event, even when
// the capacity would have sufficed); the added elements are zero values.
// Shrinking zeroes the removed tail and leaves the capacity unchanged.
func (b *Buffer[T]) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("dict: negative Buffer size %d", n))
	}
	switch {
	case n > b.size:
		b.realloc(n)
	case n < b.size:
		clear(b.data[n:b.size])
	}
	b.size = n
}

// Clear zeroes every live element and sets Len() to 0. The capacity is
// unchanged.
func (b *Buffer[T]) Clear() {
	clear(b.data[:b.size])
	b.size = 0
}

// At returns a pointer to the element at index i. The pointer is valid only
// until the next growth event.
func (b *Buffer[T]) At(i int) (*T, error) {
	if i < 0 || i >= b.size {
		return nil, outOfRange(i, b.size)
	}
	return &b.data[i], nil
}

// Get returns a copy of the element at index i.
func (b *Buffer[T]) Get(i int) (T, error) {
	if i < 0 || i >= b.size {
		var zero T
		return zero, outOfRange(i, b.size)
	}
	return b.data[i], nil
}

// Set overwrites the element at index i.
func (b *Buffer[T]) Set(i int, v T) error {
	if i < 0 || i >= b.size {
		return outOfRange(i, b.size)
	}
	b.data[i] = v
	return nil
}

// Erase removes the element at index i, moving every subsequent element one
// slot earlier.
func (b *Buffer[T]) Erase(i int) error {
	if i < 0 || i >= b.size {
		return outOfRange(i, b.size)
	}
	return b.EraseRange(i, i+1)
}

// EraseRange removes the elements in [start, end), moving every subsequent
// element end-start slots earlier.
func (b *Buffer[T]) EraseRange(start, end int) error {
	if start < 0 || start > end || end > b.size {
		return fmt.Errorf("%w: range [%d,%d) with length %d", ErrOutOfRange, start, end, b.size)
	}
	n := copy(b.data[start:], b.data[end:b.size])
	clear(b.data[start+n : b.size])
	b.size -= end - start
	return nil
}

// Len returns the number of live elements.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the number of allocated slots.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Growths returns the number of growth events the Buffer has gone through.
func (b *Buffer[T]) Growths() int {
	return b.growths
}

// All calls yield sequentially for each index and element in the Buffer. If
// yield returns false, iteration stops. The Buffer must not be mutated
// during iteration.
func (b *Buffer[T]) All(yield func(i int, v T) bool) {
	for i, v := range b.data[:b.size] {
		if !yield(i, v) {
			return
		}
	}
}

// live returns the live elements without copying. The slice aliases the
// backing storage and is invalidated by the next growth event.
func (b *Buffer[T]) live() []T {
	return b.data[:b.size]
}

func (b *Buffer[T]) alloc() Allocator[T] {
	if b.allocator == nil {
		b.allocator = defaultAllocator[T]{}
	}
	return b.allocator
}

// ensure guarantees room for n more elements, growing geometrically.
func (b *Buffer[T]) ensure(n int) {
	need := b.size + n
	if need <= len(b.data) {
		return
	}
	newCapacity := 2 * len(b.data)
	if newCapacity < defaultBufferCapacity {
		newCapacity = defaultBufferCapacity
	}
	if newCapacity < need {
		newCapacity = need
	}
	b.realloc(newCapacity)
}

// realloc moves the live elements into a fresh allocation of newCapacity
// slots and releases the old one. Elements that do not fit are dropped.
func (b *Buffer[T]) realloc(newCapacity int) {
	a := b.alloc()
	data := a.Alloc(newCapacity)
	if len(data) < newCapacity {
		panic(fmt.Errorf("%w: allocator returned %d slots, want %d",
			ErrAllocationFailed, len(data), newCapacity))
	}

	n := copy(data, b.data[:b.size])
	if debug {
		fmt.Printf("buffer(realloc): capacity=%d->%d size=%d\n", len(b.data), len(data), n)
	}
	if b.data != nil {
		// The moved-from elements are dead; drop their references before
		// handing the storage back.
		clear(b.data[:b.size])
		a.Free(b.data)
	}
	b.data = data
	b.size = n
	b.growths++
}
