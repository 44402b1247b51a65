//go:build (darwin && cgo) || (windows && cgo)

// Copyright 2026 Block, Inc.
// SPDX-License-Identifier: Apache-2.0
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

package sslconfig

import (
	"fmt"

	"github.com/github/certstore"
)

// SupportsNativeStore returns true or false, depending on whether the binary
// was built with support for the OS personal certificate store (requires
// CGO on macOS and Windows, not available elsewhere).
func SupportsNativeStore() bool {
	return true
}

var loadPersonalIdentities = nativePersonalIdentities

// nativePersonalIdentities reads all identities from the OS personal store.
// Identities that are returned stay open, since their signers are used for
// the lifetime of the TLS context; all others are closed.
func nativePersonalIdentities() ([]identityEntry, error) {
	store, err := certstore.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNativeStoreUnavailable, err)
	}
	defer store.Close()

	identities, err := store.Identities()
	if err != nil {
		return nil, err
	}

	var out []identityEntry
	for _, identity := range identities {
		chain, err := identity.CertificateChain()
		if err != nil || len(chain) == 0 {
			identity.Close()
			continue
		}

		signer, err := identity.Signer()
		if err != nil {
			identity.Close()
			continue
		}

		out = append(out, nativeIdentity(chain, signer))
	}
	return out, nil
}
