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
	// HierarchyRebuilds tracks hierarchy rebuilds from a published key bundle.
	HierarchyRebuilds = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hierarchy",
			Name:      "rebuilds_total",
			Help:      "Total number of hierarchy rebuilds",
		},
		[]string{"status"}, // success, partial
	)

	// HierarchyRowsRejected tracks rows silently dropped during a rebuild
	// because they failed signature or expiry verification.
	HierarchyRowsRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hierarchy",
			Name:      "rows_rejected_total",
			Help:      "Total number of key-bundle rows rejected during a hierarchy rebuild",
		},
		[]string{"role", "reason"}, // journalist_id/journalist_provisioning/..., signature (also used for expired rows and rows with no verified parent)
	)

	// HierarchyRebuildDuration tracks rebuild wall-clock time.
	HierarchyRebuildDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hierarchy",
			Name:      "rebuild_duration_seconds",
			Help:      "Hierarchy rebuild duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
	)

	// HierarchyMaxEpoch tracks the highest epoch observed in the current
	// hierarchy.
	HierarchyMaxEpoch = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hierarchy",
			Name:      "max_epoch",
			Help:      "Highest provisioning epoch observed in the current hierarchy",
		},
	)
)
