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

import "time"

// MetricsObserver receives structural events from a Dict. Implementations
// must be cheap: they are called inline on the insertion path.
type MetricsObserver interface {
	// OnRehash is called after the bucket list has been rebuilt. reason is
	// "load" or "bucket-size".
	OnRehash(reason string, duration time.Duration, oldBuckets, newBuckets, entries int)

	// OnBucketOverflow is called when a chain grows past the maximum bucket
	// size because its keys share one full hash value. size is the chain
	// length after the insertion.
	OnBucketOverflow(size int)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnRehash(reason string, duration time.Duration, oldBuckets, newBuckets, entries int) {
}
func (NoopMetricsObserver) OnBucketOverflow(size int) {}
