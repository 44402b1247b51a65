//go:build cgo

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
	"crypto"
	"crypto/x509"
	"errors"

	"github.com/letsencrypt/pkcs11key/v4"
)

// SupportsPKCS11 returns true or false, depending on whether the binary
// was built with PKCS11 support or not (requires CGO to build).
func SupportsPKCS11() bool {
	return true
}

// loadPKCS11Store builds a key store whose single identity has its
// certificate chain in a PEM file and its private key on a PKCS#11 token.
// The token is only opened when the key is recovered, using the store
// password as PIN.
func loadPKCS11Store(source FileStore, hsm pkcs11Params) (*KeyStore, error) {
	if hsm.Module == "" {
		return nil, errors.New("PKCS11 key store requires a module path")
	}

	chain, err := readCertificateChain(source.Path)
	if err != nil {
		return nil, err
	}

	entry := identityEntry{
		Identity:   Identity{Alias: hsm.TokenLabel, Chain: chain},
		recoverKey: func(pin string) (crypto.PrivateKey, []*x509.Certificate, error) {
			key, err := pkcs11key.New(hsm.Module, hsm.TokenLabel, pin, chain[0].PublicKey)
			if err != nil {
				return nil, nil, err
			}
			return key, chain, nil
		},
	}
	return &KeyStore{Type: StoreTypePKCS11, Source: source, identities: []identityEntry{entry}}, nil
}
