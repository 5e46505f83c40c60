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

// Package promdict exports dict.Dict structural events as Prometheus
// metrics.
package promdict

import (
	"time"

	"github.com/cockroachdb/dict"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer implements dict.MetricsObserver. One Observer may be shared by
// many dictionaries; the underlying collectors are goroutine-safe.
type Observer struct {
	rehashes        *prometheus.CounterVec
	rehashLatency   prometheus.Histogram
	buckets         prometheus.Gauge
	entries         prometheus.Gauge
	bucketOverflows prometheus.Counter
	overflowSize    prometheus.Histogram
}

var _ dict.MetricsObserver = (*Observer)(nil)

// NewObserver creates an Observer whose metrics are prefixed with namespace
// and registers them with reg. It panics if registration fails.
func NewObserver(reg prometheus.Registerer, namespace string) *Observer {
	o := &Observer{
		rehashes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dict_rehashes_total",
			Help:      "Total bucket list rebuilds by trigger",
		}, []string{"reason"}),
		rehashLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dict_rehash_duration_seconds",
			Help:      "Time spent rebuilding bucket lists",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		buckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dict_buckets",
			Help:      "Bucket count after the most recent rehash",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dict_rehash_entries",
			Help:      "Entries re-linked by the most recent rehash",
		}),
		bucketOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dict_bucket_overflows_total",
			Help:      "Chains that outgrew their fixed capacity",
		}),
		overflowSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dict_bucket_overflow_size",
			Help:      "Chain length reached by an overflowing chain",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 10),
		}),
	}

	reg.MustRegister(
		o.rehashes,
		o.rehashLatency,
		o.buckets,
		o.entries,
		o.bucketOverflows,
		o.overflowSize,
	)
	return o
}

func (o *Observer) OnRehash(reason string, d time.Duration, oldBuckets, newBuckets, entries int) {
	o.rehashes.WithLabelValues(reason).Inc()
	o.rehashLatency.Observe(d.Seconds())
	o.buckets.Set(float64(newBuckets))
	o.entries.Set(float64(entries))
}

func (o *Observer) OnBucketOverflow(size int) {
	o.bucketOverflows.Inc()
	o.overflowSize.Observe(float64(size))
}
