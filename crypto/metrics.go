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

package crypto

import (
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/internal/metrics"
)

// instrument records a primitive-level operation against the shared
// Prometheus vectors: one counter per (operation, algorithm), a duration
// histogram, and an error counter keyed by operation alone.
func instrument(operation, algorithm string, start time.Time, err error) {
	metrics.CryptoOperations.WithLabelValues(operation, algorithm).Inc()
	metrics.CryptoOperationDuration.WithLabelValues(operation, algorithm).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues(operation).Inc()
	}
}
