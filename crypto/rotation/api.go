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

package rotation

import (
	"context"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// IdentityAPIClient, MessagingAPIClient and SetupBundleAPIClient are this
// package's entire surface of network collaborators: HTTP framing and
// transport live behind whatever implements them, not in this package.
//
// IdentityAPIClient submits an identity-key rotation candidate for manual
// approval and polls for the outcome. The journalist-vault variant of this
// rotator polls for up to a bounded window after submission; other
// services may submit and rely on the next publish cycle to discover the
// approval.
type IdentityAPIClient[R keys.Role] interface {
	SubmitForApproval(ctx context.Context, candidate keys.UnsignedSigningKeyPair[R]) error
	PollApproval(ctx context.Context, candidatePub []byte) (signed keys.SignedPublicSigningKey[R], epoch int64, ready bool, err error)
}

// MessagingAPIClient submits an already-signed messaging key directly,
// receiving back the epoch the API assigned it.
type MessagingAPIClient[R keys.Role] interface {
	SubmitMessagingKey(ctx context.Context, key keys.SignedPublicEncryptionKey[R]) (epoch int64, err error)
}

// SetupBundleAPIClient posts the offline-signed bootstrap form and
// receives the epoch assigned to it.
type SetupBundleAPIClient[R keys.Role] interface {
	PostSetupBundle(ctx context.Context, bundle SetupBundle[R]) (epoch int64, err error)
}
