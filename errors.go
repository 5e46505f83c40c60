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
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned by Buffer accessors when an index falls
	// outside of [0, Len()).
	ErrOutOfRange = errors.New("index out of range")

	// ErrKeyNotFound is returned by the non-inserting Dict accessors when the
	// key is absent.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAllocationFailed is the panic value (wrapped) raised when an
	// Allocator cannot acquire memory.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrPointerElem is returned when an off-heap allocator is asked to store
	// an element type that contains Go pointers.
	ErrPointerElem = errors.New("element type contains pointers")
)

func outOfRange(i, n int) error {
	return fmt.Errorf("%w: index %d with length %d", ErrOutOfRange, i, n)
}

func keyNotFound[K comparable](key K) error {
	return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
}
