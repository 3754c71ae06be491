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

package sentinel

import "errors"

var (
	ErrBackupSignatureInvalid = errors.New("coverdrop: backup signature invalid")
	ErrBackupKeyExpired       = errors.New("coverdrop: backup signing key expired")
	ErrUnsupportedK           = errors.New("coverdrop: backup protocol only supports k=1")
	ErrTooFewRecoveryContacts = errors.New("coverdrop: fewer recovery contacts than required shares")
	ErrNoWrappedShares        = errors.New("coverdrop: no wrapped shares provided")
	ErrNoSharesUnwrapped      = errors.New("coverdrop: no encrypted shares could be unwrapped")
)
