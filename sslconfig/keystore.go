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
	"bufio"
	"bytes"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"

	keyprotector "github.com/ghostunnel/sslconfig/internal/jceks"
	"github.com/square/certigo/jceks"
	"software.sslmate.com/src/go-pkcs12"
)

// KeyStore is a loaded key or trust store. It holds private key entries
// (identities) and trusted certificate entries. Private keys of some store
// types stay protected until recovered with a password, see
// NewKeyManagerFactory.
type KeyStore struct {
	// Type is the canonical type the store was decoded as. In keystore
	// compatibility mode it can differ from the configured type.
	Type string
	// Source is where the store was loaded from.
	Source StoreSource

	identities []identityEntry
	trusted    []*x509.Certificate
	// systemPool is set for the native root store, whose certificates
	// cannot be enumerated.
	systemPool *x509.CertPool
}

// Identity is a private key entry of a KeyStore. Chain is the certificate
// chain as stored, leaf first.
type Identity struct {
	Alias string
	Chain []*x509.Certificate
}

type identityEntry struct {
	Identity
	// recoverKey returns the private key and its certificate chain.
	recoverKey func(password string) (crypto.PrivateKey, []*x509.Certificate, error)
}

// Identities returns the private key entries of the store.
func (ks *KeyStore) Identities() []Identity {
	out := make([]Identity, 0, len(ks.identities))
	for _, entry := range ks.identities {
		out = append(out, entry.Identity)
	}
	return out
}

// TrustedCertificates returns the trusted certificate entries of the store.
// It is empty for the native root store.
func (ks *KeyStore) TrustedCertificates() []*x509.Certificate {
	return append([]*x509.Certificate(nil), ks.trusted...)
}

// IsSystemRoots reports whether the store is the OS trust store.
func (ks *KeyStore) IsSystemRoots() bool {
	return ks.systemPool != nil
}

// String summarizes the store for logging.
func (ks *KeyStore) String() string {
	if ks.systemPool != nil {
		return fmt.Sprintf("%s (system roots)", ks.Source.Describe())
	}
	return fmt.Sprintf("%s (%s, %d identities, %d trusted certificates)",
		ks.Source.Describe(), ks.Type, len(ks.identities), len(ks.trusted))
}

func loadStore(role storeRole, source StoreSource, hsm pkcs11Params) (*KeyStore, error) {
	op := "load " + role.String()

	switch s := source.(type) {
	case NativePersonalStore:
		identities, err := loadPersonalIdentities()
		if err != nil {
			return nil, configError(op, "", err)
		}
		return &KeyStore{Type: StoreTypeWindowsMy, Source: s, identities: identities}, nil

	case NativeRootStore:
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, configError(op, "", fmt.Errorf("%w: %w", ErrNativeStoreUnavailable, err))
		}
		return &KeyStore{Type: StoreTypeWindowsRoot, Source: s, systemPool: pool}, nil

	case FileStore:
		ks, err := loadFileStore(role, s, hsm)
		if err != nil {
			return nil, configError(op, s.Path, err)
		}
		return ks, nil
	}

	return nil, configError(op, "", fmt.Errorf("%w: %T", ErrUnsupportedStoreType, source))
}

func loadFileStore(role storeRole, source FileStore, hsm pkcs11Params) (*KeyStore, error) {
	if source.Path == "" {
		return nil, errors.New("no path configured")
	}

	password, err := ResolveSecret(source.Password)
	if err != nil {
		return nil, err
	}

	if source.Type == StoreTypePKCS11 {
		if role != keyStoreRole {
			return nil, fmt.Errorf("%w: %s can only be used as a key store", ErrUnsupportedStoreType, source.Type)
		}
		return loadPKCS11Store(source, hsm)
	}

	file, err := os.Open(source.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	storeType := source.Type
	if isKeystoreFamily(storeType) {
		storeType, err = sniffStoreType(reader, storeType)
		if err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	ks := &KeyStore{Type: storeType, Source: source}
	switch storeType {
	case StoreTypePKCS12:
		err = ks.decodePKCS12(role, data, password)
	case StoreTypeJKS, StoreTypeJCEKS:
		err = ks.decodeJCEKS(data, password)
	case StoreTypePEM:
		err = ks.decodePEM(role, data)
	case StoreTypeDER:
		err = ks.decodeDER(data)
	default:
		err = fmt.Errorf("%w: %s cannot be read from a file", ErrUnsupportedStoreType, storeType)
	}
	if err != nil {
		return nil, err
	}
	return ks, nil
}

// decodePKCS12 reads a PKCS#12 file. Key stores must contain a private key.
// Trust stores are expected to be Java-style trust stores; a PKCS#12 file with
// a private key can also be used, in which case its certificates are trusted.
func (ks *KeyStore) decodePKCS12(role storeRole, data []byte, password string) error {
	if role == trustStoreRole {
		certs, err := pkcs12.DecodeTrustStore(data, password)
		if err == nil {
			ks.trusted = certs
			return nil
		}
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return err
		}
	}

	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return err
	}

	chain := append([]*x509.Certificate{leaf}, caCerts...)
	if role == trustStoreRole {
		ks.trusted = chain
		return nil
	}

	ks.identities = []identityEntry{{
		Identity:   Identity{Alias: leaf.Subject.CommonName, Chain: chain},
		recoverKey: func(string) (crypto.PrivateKey, []*x509.Certificate, error) {
			return key, chain, nil
		},
	}}
	return nil
}

// decodeJCEKS reads JKS and JCEKS files. The store password protects the
// integrity of the file and is always checked, so a protected store cannot
// be read with an empty password. Private keys stay encrypted until
// recovered; keys protected with the JKS key protector are recovered here,
// all others by the certigo decoder.
func (ks *KeyStore) decodeJCEKS(data []byte, password string) error {
	store, err := jceks.LoadFromReader(bytes.NewReader(data), []byte(password))
	if err != nil {
		return err
	}

	protected, err := keyprotector.ReadPrivateKeyEntries(bytes.NewReader(data))
	if err != nil {
		return err
	}

	for _, alias := range store.ListPrivateKeys() {
		alias := alias
		recoverKey := func(password string) (crypto.PrivateKey, []*x509.Certificate, error) {
			if entry, ok := protected[alias]; ok && entry.IsJKSProtected() {
				if len(entry.Chain) == 0 {
					return nil, nil, fmt.Errorf("private key '%s' has no certificates", alias)
				}
				key, err := entry.Recover(password)
				if err != nil {
					return nil, nil, fmt.Errorf("unable to recover private key '%s': %w", alias, err)
				}
				return key, entry.Chain, nil
			}

			key, certs, err := store.GetPrivateKeyAndCerts(alias, []byte(password))
			if err != nil {
				return nil, nil, fmt.Errorf("unable to recover private key '%s': %w", alias, err)
			}
			return key, certs, nil
		}

		entry := identityEntry{Identity: Identity{Alias: alias}, recoverKey: recoverKey}
		if e, ok := protected[alias]; ok {
			entry.Chain = e.Chain
		}
		ks.identities = append(ks.identities, entry)
	}

	for _, alias := range store.ListCerts() {
		cert, err := store.GetCert(alias)
		if err != nil {
			return fmt.Errorf("unable to read certificate '%s': %w", alias, err)
		}
		if cert != nil {
			ks.trusted = append(ks.trusted, cert)
		}
	}

	return nil
}

// decodePEM reads certificates and at most one unencrypted private key. For
// key stores the certificates form the chain of the key; for trust stores
// every certificate is trusted and keys are ignored.
func (ks *KeyStore) decodePEM(role storeRole, data []byte) error {
	certs, keys, err := parsePEMBundle(data)
	if err != nil {
		return err
	}
	if len(certs) == 0 {
		return ErrNoCertificates
	}

	if role == trustStoreRole {
		ks.trusted = certs
		return nil
	}

	switch len(keys) {
	case 0:
		ks.trusted = certs
		return nil
	case 1:
	default:
		return ErrMultiplePrivateKeys
	}

	key := keys[0]
	chain, err := orderChain(certs, key)
	if err != nil {
		return err
	}
	ks.identities = []identityEntry{{
		Identity:   Identity{Alias: chain[0].Subject.CommonName, Chain: chain},
		recoverKey: func(string) (crypto.PrivateKey, []*x509.Certificate, error) {
			return key, chain, nil
		},
	}}
	return nil
}

// decodeDER reads a single DER-encoded certificate as a trusted entry.
func (ks *KeyStore) decodeDER(data []byte) error {
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return err
	}
	ks.trusted = []*x509.Certificate{cert}
	return nil
}

// nativeIdentity wraps an identity whose key never leaves the OS store.
func nativeIdentity(chain []*x509.Certificate, signer crypto.Signer) identityEntry {
	return identityEntry{
		Identity:   Identity{Alias: chain[0].Subject.CommonName, Chain: chain},
		recoverKey: func(string) (crypto.PrivateKey, []*x509.Certificate, error) {
			return signer, chain, nil
		},
	}
}
