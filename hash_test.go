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
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPrime(t *testing.T) {
	var primes []int
	for i := -3; i < 60; i++ {
		if isPrime(i) {
			primes = append(primes, i)
		}
	}
	require.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59}, primes)
	require.True(t, isPrime(7919))
	require.False(t, isPrime(7917))
	require.False(t, isPrime(25))
	require.False(t, isPrime(49))
}

func TestNextPrime(t *testing.T) {
	testCases := []struct {
		n, expected int
	}{
		{-5, 2}, {0, 2}, {1, 2}, {2, 2}, {3, 3}, {4, 5}, {7, 7}, {8, 11},
		{14, 17}, {34, 37}, {74, 79}, {158, 163}, {1000, 1009},
	}
	for _, c := range testCases {
		require.EqualValues(t, c.expected, nextPrime(c.n), "nextPrime(%d)", c.n)
	}

	// The rehash growth sequence starting at the default bucket count.
	seq := []int{DefaultBuckets}
	for len(seq) < 8 {
		seq = append(seq, nextPrime(2*seq[len(seq)-1]))
	}
	require.Equal(t, []int{7, 17, 37, 79, 163, 331, 673, 1361}, seq)
}

func TestSuperFastHash(t *testing.T) {
	testCases := []struct {
		data   string
		seed0  uint64
		seed42 uint64
	}{
		{"a", 0x23d4f055ea782, 0x315a3633ad1b0},
		{"ab", 0x3c32819496c0d44, 0x3ba2af8407d7d08},
		{"abc", 0x760816d818fb58ba, 0x779a2936eafcb68f},
		{"abcd", 0x79cadd8be296db8b, 0x79d3edc4ff0ef505},
		{"hello", 0x4e31f44a688aa2bb, 0x95634e06453fb94b},
		{"500", 0x3bfd7c967b0e445e, 0x3ccfd588e232bb44},
		{"\xff\xfe\xfd", 0x907794b2e7d1ffdd, 0x9095f5cef7a148c8},
	}
	for _, c := range testCases {
		t.Run(strconv.Quote(c.data), func(t *testing.T) {
			require.EqualValues(t, c.seed0, SuperFastHash([]byte(c.data), 0))
			require.EqualValues(t, c.seed42, SuperFastHash([]byte(c.data), 42))
		})
	}

	require.EqualValues(t, 0, SuperFastHash(nil, 0))
	require.EqualValues(t, 7, SuperFastHash([]byte{}, 7))
}

func TestAppendKey(t *testing.T) {
	type pair struct {
		a int
		b string
	}
	x := 1
	testCases := []struct {
		key      any
		expected string
	}{
		{"abc", "abc"},
		{int(-12), "-12"},
		{int8(-8), "-8"},
		{int16(16), "16"},
		{int32(32), "32"},
		{int64(-64), "-64"},
		{uint(1), "1"},
		{uint8(8), "8"},
		{uint16(16), "16"},
		{uint32(32), "32"},
		{uint64(math.MaxUint64), "18446744073709551615"},
		{uintptr(7), "7"},
		{float32(1.5), "1.5"},
		{0.1, "0.1"},
		{math.Copysign(0, -1), "0"},
		{true, "true"},
		{celsius(-1.25), "-1.25"},
		{label("x"), "x"},
		{complex(1, -2), "(1,-2)"},
		{complex64(complex(math.Copysign(0, -1), 0.5)), "(0,0.5)"},
		{reading{t: celsius(math.Copysign(0, -1)), l: "a", v: nil}, "{0 a <nil>}"},
		{[2]float32{1, float32(math.Copysign(0, -1))}, "[1 0]"},
		{pair{1, "x"}, "{1 x}"},
		{[2]int{3, 4}, "[3 4]"},
		{&x, fmt.Sprintf("%p", &x)},
	}
	for _, c := range testCases {
		t.Run(fmt.Sprintf("%T", c.key), func(t *testing.T) {
			require.Equal(t, c.expected, string(appendKey(nil, c.key)))
		})
	}
}

func TestDefaultHashEqualKeys(t *testing.T) {
	pos, neg := 0.0, math.Copysign(0, -1)
	require.True(t, pos == neg)
	require.Equal(t, DefaultHash(&pos, 0), DefaultHash(&neg, 0))
	require.Equal(t, XXHash(&pos, 0), XXHash(&neg, 0))

	// Pointer keys hash by identity, not by the pointee.
	type node struct{ v int }
	n := &node{1}
	h := DefaultHash(&n, 0)
	n.v = 2
	require.Equal(t, h, DefaultHash(&n, 0))

	m := New[float64, string](0)
	m.Insert(neg, "zero")
	v, ok := m.Get(pos)
	require.True(t, ok)
	require.Equal(t, "zero", v)

	// Keys of interface type hash by their dynamic value.
	var a, b any = 10, 10
	require.Equal(t, DefaultHash(&a, 0), DefaultHash(&b, 0))
	var nilKey any
	require.EqualValues(t, 0, DefaultHash(&nilKey, 0))
}

type celsius float64

type label string

type reading struct {
	t celsius
	l label
	v any
}

// checkZeroKeys inserts +0 and -0 forms of the same key and expects a single
// entry holding the second value.
func checkZeroKeys[K comparable](t *testing.T, pos, neg K) {
	t.Helper()
	require.True(t, pos == neg)
	require.Equal(t, DefaultHash(&pos, 0), DefaultHash(&neg, 0))
	require.Equal(t, XXHash(&pos, 0), XXHash(&neg, 0))

	m := New[K, string](0)
	m.Insert(pos, "pos")
	m.Insert(neg, "neg")
	require.EqualValues(t, 1, m.Len())
	v, ok := m.Get(pos)
	require.True(t, ok)
	require.Equal(t, "neg", v)
	require.NoError(t, m.verify())
}

func TestZeroKeys(t *testing.T) {
	negZero := math.Copysign(0, -1)
	t.Run("float64", func(t *testing.T) {
		checkZeroKeys(t, 0.0, negZero)
	})
	t.Run("float32", func(t *testing.T) {
		checkZeroKeys(t, float32(0), float32(negZero))
	})
	t.Run("named", func(t *testing.T) {
		checkZeroKeys(t, celsius(0), celsius(negZero))
	})
	t.Run("complex128", func(t *testing.T) {
		checkZeroKeys(t, complex(0, 0), complex(negZero, negZero))
	})
	t.Run("complex64", func(t *testing.T) {
		checkZeroKeys(t, complex64(complex(1, 0)), complex64(complex(1, negZero)))
	})
	t.Run("struct", func(t *testing.T) {
		checkZeroKeys(t, reading{t: 0, l: "a"}, reading{t: celsius(negZero), l: "a"})
	})
	t.Run("array", func(t *testing.T) {
		checkZeroKeys(t, [2]float64{1, 0}, [2]float64{1, negZero})
	})
	t.Run("interface", func(t *testing.T) {
		checkZeroKeys[any](t, celsius(0), celsius(negZero))
	})
}

func TestXXHash(t *testing.T) {
	k := "hello"
	require.Equal(t, XXHash(&k, 0), XXHash(&k, 0))
	require.NotEqual(t, XXHash(&k, 0), XXHash(&k, 1))
	require.Equal(t, XXHash(&k, 1), XXHash(&k, 1))

	i := 500
	s := "500"
	// Integers hash through their decimal form.
	require.Equal(t, XXHash(&s, 0), XXHash(&i, 0))
	require.Equal(t, DefaultHash(&s, 0), DefaultHash(&i, 0))
}

func TestCollisionStats(t *testing.T) {
	for _, c := range []struct {
		name string
		hash HashFunc[string]
	}{
		{"superfast", DefaultHash[string]},
		{"xxhash", XXHash[string]},
	} {
		t.Run(c.name, func(t *testing.T) {
			m := New[string, int](0, WithHash[string, int](c.hash))
			for i := 0; i < 10000; i++ {
				m.Insert("key-"+strconv.Itoa(i), i)
			}

			s := m.CollisionStats()
			if testing.Verbose() {
				fmt.Printf("%s:\n%s", c.name, s)
			}
			require.EqualValues(t, m.BucketCount(), s.Buckets)
			require.InDelta(t, m.LoadFactor(), s.Mean, 1e-9)
			require.GreaterOrEqual(t, s.NonEmptyMean, s.Mean)
			// 10000 keys over 10949 buckets. Poisson chain lengths put the
			// longest chain well below 16.
			require.Less(t, s.Max, 16)
			require.Less(t, s.StdDev, 2.0)
			require.Less(t, s.Empty, s.Buckets)
		})
	}

	// A degenerate hash puts everything into one chain.
	m := New[int, int](0, WithHash[int, int](constHash(3)))
	for i := 0; i < 100; i++ {
		m.Insert(i, i)
	}
	s := m.CollisionStats()
	require.EqualValues(t, 100, s.Max)
	require.EqualValues(t, s.Buckets-1, s.Empty)
	require.InDelta(t, 100.0, s.NonEmptyMean, 1e-9)
	require.Contains(t, s.String(), "max      100")

	require.Equal(t, CollisionStats{}, (&Dict[int, int]{}).CollisionStats())
}
