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
	// KeyRotations tracks key-pair rotations by role.
	KeyRotations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "rotations_total",
			Help:      "Total number of key rotations",
		},
		[]string{"role", "status"}, // cover_node_id/cover_node_messaging/..., success/rejected_too_recent
	)

	// KeyRotationsTooRecent tracks rotations logged but not rejected
	// because a key was inserted before its predecessor's minimum age.
	KeyRotationsTooRecent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "too_recent_total",
			Help:      "Total number of key rotations inserted before their predecessor's rotate-after window elapsed",
		},
		[]string{"role"},
	)

	// ActiveKeysByRole tracks the current number of non-expired keys held
	// per role.
	ActiveKeysByRole = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "active_keys",
			Help:      "Number of currently active (non-expired) keys by role",
		},
		[]string{"role"},
	)

	// BackupsCreated tracks sentinel backups created.
	BackupsCreated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentinel",
			Name:      "backups_created_total",
			Help:      "Total number of sentinel backups created",
		},
	)

	// RestoresCompleted tracks completed sentinel restores.
	RestoresCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentinel",
			Name:      "restores_total",
			Help:      "Total number of sentinel restores by outcome",
		},
		[]string{"status"}, // completed, no_shares_unwrapped
	)
)
