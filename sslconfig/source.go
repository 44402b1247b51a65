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

// StoreSource describes where a key or trust store comes from. It is one of
// FileStore, NativePersonalStore or NativeRootStore.
type StoreSource interface {
	// Describe returns a short human-readable description, without secrets.
	Describe() string

	isStoreSource()
}

// FileStore is a store read from a file of the given (canonical) type.
// Password is a secret descriptor, resolved when the store is loaded.
type FileStore struct {
	Path     string
	Password string
	Type     string
}

// NativePersonalStore is the OS store of personal identities
// (Windows "MY" store, macOS keychain).
type NativePersonalStore struct{}

// NativeRootStore is the OS store of trusted root certificates.
type NativeRootStore struct{}

func (s FileStore) Describe() string {
	return s.Type + " file " + s.Path
}

func (NativePersonalStore) Describe() string {
	return "native personal store"
}

func (NativeRootStore) Describe() string {
	return "native root store"
}

func (FileStore) isStoreSource()           {}
func (NativePersonalStore) isStoreSource() {}
func (NativeRootStore) isStoreSource()     {}

// storeSource classifies a configured path/password/type triple. The native
// personal store is only recognized for key stores and the native root store
// only for trust stores, matching the platform identifiers.
func storeSource(role storeRole, path, password, storeType string) (StoreSource, error) {
	canonical, err := canonicalStoreType(storeType)
	if err != nil {
		return nil, err
	}

	switch {
	case role == keyStoreRole && (canonical == StoreTypeWindowsMy || canonical == StoreTypeKeychain):
		return NativePersonalStore{}, nil
	case role == trustStoreRole && canonical == StoreTypeWindowsRoot:
		return NativeRootStore{}, nil
	}
	return FileStore{Path: path, Password: password, Type: canonical}, nil
}

type storeRole int

const (
	keyStoreRole storeRole = iota
	trustStoreRole
)

func (r storeRole) String() string {
	if r == trustStoreRole {
		return "trust store"
	}
	return "key store"
}
