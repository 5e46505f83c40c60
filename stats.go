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
	"strings"

	"github.com/aclements/go-moremath/stats"
)

// CollisionStats summarizes the distribution of chain lengths in a Dict.
type CollisionStats struct {
	// Buckets is the number of chains.
	Buckets int
	// Empty is the number of chains holding no links.
	Empty int
	// Max is the length of the longest chain.
	Max int
	// Mean is the average chain length, i.e. the load factor.
	Mean float64
	// NonEmptyMean is the average length of the non-empty chains: the
	// expected number of key comparisons for a successful lookup.
	NonEmptyMean float64
	// StdDev is the sample standard deviation of the chain lengths.
	StdDev float64
}

// CollisionStats computes chain length statistics for the current bucket
// list. It runs in O(BucketCount()).
func (m *Dict[K, V]) CollisionStats() CollisionStats {
	sizes := m.BucketSizes()
	s := CollisionStats{Buckets: len(sizes)}
	if len(sizes) == 0 {
		return s
	}

	xs := make([]float64, len(sizes))
	nonEmpty := make([]float64, 0, len(sizes))
	for i, n := range sizes {
		xs[i] = float64(n)
		if n == 0 {
			s.Empty++
			continue
		}
		nonEmpty = append(nonEmpty, float64(n))
		s.Max = max(s.Max, n)
	}

	s.Mean = stats.Mean(xs)
	if len(xs) > 1 {
		s.StdDev = stats.StdDev(xs)
	}
	if len(nonEmpty) > 0 {
		s.NonEmptyMean = stats.Mean(nonEmpty)
	}
	return s
}

func (s CollisionStats) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets  %d\n", s.Buckets)
	fmt.Fprintf(&buf, "average  %.3f\n", s.Mean)
	fmt.Fprintf(&buf, "-zero    %.3f\n", s.NonEmptyMean)
	fmt.Fprintf(&buf, "stddev   %.3f\n", s.StdDev)
	fmt.Fprintf(&buf, "max      %d\n", s.Max)
	fmt.Fprintf(&buf, "empties  %d\n", s.Empty)
	return buf.String()
}
