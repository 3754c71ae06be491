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

package mixer

import "time"

// UserToJournalistConfig is the default mixing configuration for the
// user-to-journalist direction: a higher threshold and longer timeout,
// since user-submitted real traffic is rarer and bursts matter less than
// keeping CoverNode egress predictable.
func UserToJournalistConfig(payloadSize int) Config {
	return Config{
		ThresholdMin: 4,
		ThresholdMax: 20,
		Timeout:      2 * time.Minute,
		OutputSize:   2,
		PayloadSize:  payloadSize,
		MetricsName:  "mixer_user_to_journalist",
	}
}

// JournalistToUserConfig is the default mixing configuration for the
// journalist-to-user direction.
func JournalistToUserConfig(payloadSize int) Config {
	return Config{
		ThresholdMin: 4,
		ThresholdMax: 20,
		Timeout:      2 * time.Minute,
		OutputSize:   2,
		PayloadSize:  payloadSize,
		MetricsName:  "mixer_journalist_to_user",
	}
}
