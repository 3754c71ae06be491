// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnvelopesProcessed tracks envelopes a CoverNode has unwrapped.
	EnvelopesProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "processed_total",
			Help:      "Total number of envelopes processed",
		},
		[]string{"direction", "kind"}, // u2c/j2c, real/cover
	)

	// EnvelopeDecryptFailures tracks envelopes that failed to decrypt under
	// any held key.
	EnvelopeDecryptFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "decrypt_failures_total",
			Help:      "Total number of envelopes that failed to decrypt",
		},
		[]string{"direction"},
	)

	// EnvelopeProcessingDuration tracks envelope processing time.
	EnvelopeProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "processing_duration_seconds",
			Help:      "Envelope processing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to 205ms
		},
	)

	// EnvelopeSize tracks the wire size of processed envelopes. Real and
	// cover envelopes should land in the same bucket, since that
	// indistinguishability is the point.
	EnvelopeSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "size_bytes",
			Help:      "Envelope size in bytes",
			Buckets:   prometheus.LinearBuckets(700, 20, 6), // clusters around the fixed envelope sizes
		},
	)
)
