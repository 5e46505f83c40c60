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

//go:build linux || darwin || freebsd || netbsd || openbsd

package dict

import (
	"fmt"
	"reflect"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator is an Allocator that places Buffer storage in anonymous
// memory mappings outside of the Go heap. The GC neither scans nor reclaims
// that memory, so the element type must not contain Go pointers and every
// Buffer (or Dict) using the allocator must be closed to unmap its storage.
//
// Alloc panics with an error wrapping ErrAllocationFailed if the mapping
// cannot be created.
type MmapAllocator[T any] struct {
	// The number of mappings currently outstanding.
	live int
}

// NewMmapAllocator constructs an MmapAllocator for T, returning an error
// wrapping ErrPointerElem if T contains Go pointers.
func NewMmapAllocator[T any]() (*MmapAllocator[T], error) {
	if t := reflect.TypeFor[T](); hasPointers(t) {
		return nil, fmt.Errorf("%w: %s", ErrPointerElem, t)
	}
	return &MmapAllocator[T]{}, nil
}

// Alloc maps zeroed memory for n elements.
func (a *MmapAllocator[T]) Alloc(n int) []T {
	size := n * int(unsafe.Sizeof(*new(T)))
	if size == 0 {
		return make([]T, n)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("%w: mmap %d bytes: %w", ErrAllocationFailed, size, err))
	}
	a.live++
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), n)
}

// Free unmaps memory returned by Alloc.
func (a *MmapAllocator[T]) Free(v []T) {
	size := cap(v) * int(unsafe.Sizeof(*new(T)))
	if size == 0 {
		return
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), size)
	if err := unix.Munmap(data); err != nil {
		panic(fmt.Sprintf("dict: munmap %d bytes: %v", size, err))
	}
	a.live--
}

// Live returns the number of mappings that have been allocated and not yet
// freed.
func (a *MmapAllocator[T]) Live() int {
	return a.live
}

// hasPointers reports whether values of type t contain Go pointers.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
