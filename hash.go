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
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashFunc hashes a key. Equal keys must produce equal hashes, and the result
// must not depend on anything but the key and the seed so that bucket
// layouts are reproducible across process runs.
type HashFunc[K comparable] func(key *K, seed uint64) uint64

// DefaultHash is the default HashFunc: SuperFastHash over the canonical byte
// form of the key.
//
// The canonical form of strings, integers, floats, complex numbers and bools
// (including named types of those kinds) is their textual representation,
// with -0 folded to +0. Pointers, channels and unsafe pointers hash by
// address. Arrays, structs and interface values are encoded element by
// element in the layout %v would print, so equal composite keys produce
// equal bytes.
func DefaultHash[K comparable](key *K, seed uint64) uint64 {
	var buf [32]byte
	return SuperFastHash(appendKey(buf[:0], *key), seed)
}

// XXHash is a HashFunc computing xxHash64 over the same canonical byte form
// as DefaultHash.
func XXHash[K comparable](key *K, seed uint64) uint64 {
	var buf [32]byte
	b := appendKey(buf[:0], *key)
	if seed == 0 {
		return xxhash.Sum64(b)
	}
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(b)
	return d.Sum64()
}

// appendKey appends the canonical byte form of key to buf.
func appendKey[K comparable](buf []byte, key K) []byte {
	switch k := any(key).(type) {
	case string:
		return append(buf, k...)
	case int:
		return strconv.AppendInt(buf, int64(k), 10)
	case int32:
		return strconv.AppendInt(buf, int64(k), 10)
	case int64:
		return strconv.AppendInt(buf, k, 10)
	case uint32:
		return strconv.AppendUint(buf, uint64(k), 10)
	case uint64:
		return strconv.AppendUint(buf, k, 10)
	case float64:
		return appendFloat(buf, k, 64)
	case bool:
		return strconv.AppendBool(buf, k)
	case nil:
		return buf
	}
	return appendValue(buf, reflect.ValueOf(key))
}

// appendValue is the reflective slow path of appendKey. It handles every
// comparable kind, including named types and composites.
func appendValue(buf []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Invalid:
		return buf
	case reflect.String:
		return append(buf, v.String()...)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(buf, v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(buf, v.Uint(), 10)
	case reflect.Float32:
		return appendFloat(buf, v.Float(), 32)
	case reflect.Float64:
		return appendFloat(buf, v.Float(), 64)
	case reflect.Complex64:
		return appendComplex(buf, v.Complex(), 32)
	case reflect.Complex128:
		return appendComplex(buf, v.Complex(), 64)
	case reflect.Bool:
		return strconv.AppendBool(buf, v.Bool())
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		buf = append(buf, "0x"...)
		return strconv.AppendUint(buf, uint64(v.Pointer()), 16)
	case reflect.Interface:
		if v.IsNil() {
			return append(buf, "<nil>"...)
		}
		return appendValue(buf, v.Elem())
	case reflect.Array:
		buf = append(buf, '[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendValue(buf, v.Index(i))
		}
		return append(buf, ']')
	case reflect.Struct:
		buf = append(buf, '{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendValue(buf, v.Field(i))
		}
		return append(buf, '}')
	}
	return fmt.Appendf(buf, "%v", v)
}

func appendFloat(buf []byte, f float64, bitSize int) []byte {
	// -0 == +0, so both must hash alike.
	if f == 0 {
		f = 0
	}
	return strconv.AppendFloat(buf, f, 'g', -1, bitSize)
}

func appendComplex(buf []byte, c complex128, bitSize int) []byte {
	buf = append(buf, '(')
	buf = appendFloat(buf, real(c), bitSize)
	buf = append(buf, ',')
	buf = appendFloat(buf, imag(c), bitSize)
	return append(buf, ')')
}

// SuperFastHash is Paul Hsieh's SuperFastHash widened to 64 bits: a rolling
// hash seeded with the input length, consuming 16-bit little-endian words,
// followed by an avalanche of the final bits. The empty input hashes to the
// seed.
func SuperFastHash(data []byte, seed uint64) uint64 {
	if len(data) == 0 {
		return seed
	}

	hash := uint64(len(data)) ^ seed
	rem := len(data) & 3

	for ; len(data) >= 4; data = data[4:] {
		hash += uint64(binary.LittleEndian.Uint16(data))
		tmp := (uint64(binary.LittleEndian.Uint16(data[2:])) << 11) ^ hash
		hash = (hash << 16) ^ tmp
		hash += hash >> 11
	}

	// The trailing bytes are sign-extended.
	switch rem {
	case 3:
		hash += uint64(binary.LittleEndian.Uint16(data))
		hash ^= hash << 16
		hash ^= uint64(int64(int8(data[2])) << 18)
		hash += hash >> 11
	case 2:
		hash += uint64(binary.LittleEndian.Uint16(data))
		hash ^= hash << 11
		hash += hash >> 17
	case 1:
		hash += uint64(int64(int8(data[0])))
		hash ^= hash << 10
		hash += hash >> 1
	}

	hash ^= hash << 3
	hash += hash >> 5
	hash ^= hash << 4
	hash += hash >> 17
	hash ^= hash << 25
	hash += hash >> 6
	return hash
}

// isPrime reports whether n is prime by trial division with the 6k±1
// wheel.
func isPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := 5; i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	for p := n; ; p++ {
		if isPrime(p) {
			return p
		}
	}
}
