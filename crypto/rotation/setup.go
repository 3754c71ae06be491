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
	"fmt"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// SetupBundle is the bootstrap-only bundle an offline ceremony produces:
// an identity key pair for role R already signed by its provisioning
// parent, stored in the service's encrypted database ahead of its first
// start. It substitutes for one cycle of the create-keys/publish-keys
// tasks, which would otherwise have nothing to sign a brand-new service's
// very first identity key with.
type SetupBundle[R keys.Role] struct {
	KeyPair keys.SignedSigningKeyPair[R]
}

// ProcessSetupBundle posts bundle to the API, and on success promotes its
// key pair directly to published in store, bypassing the candidate state
// entirely. Callers run this once, at first start, before any periodic
// rotation task; the row is not re-posted on subsequent starts.
func ProcessSetupBundle[R keys.Role](ctx context.Context, api SetupBundleAPIClient[R], store IdentityStore[R], bundle SetupBundle[R], now time.Time) error {
	epoch, err := api.PostSetupBundle(ctx, bundle)
	if err != nil {
		return fmt.Errorf("coverdrop: posting setup bundle: %w", err)
	}
	if err := store.Promote(PublishedIdentity[R]{
		KeyPair:   bundle.KeyPair,
		Epoch:     epoch,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("coverdrop: promoting setup bundle identity key: %w", err)
	}
	return nil
}
