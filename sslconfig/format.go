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
	"errors"
	"fmt"
	"strings"
)

// Store type names, as accepted in KeyStoreType/TrustStoreType. Lookups are
// case-insensitive.
const (
	StoreTypePKCS12 = "PKCS12"
	StoreTypeJKS    = "JKS"
	StoreTypeJCEKS  = "JCEKS"
	StoreTypePEM    = "PEM"
	StoreTypeDER    = "DER"
	StoreTypePKCS11 = "PKCS11"

	// StoreTypeWindowsMy is the OS personal certificate store. Selecting it
	// loads identities from the OS; path and password are not used.
	StoreTypeWindowsMy = "Windows-MY"
	// StoreTypeWindowsRoot is the OS trust store. Selecting it loads the
	// system roots; path and password are not used.
	StoreTypeWindowsRoot = "Windows-ROOT"
	// StoreTypeKeychain is the macOS name for the personal store.
	StoreTypeKeychain = "KeychainStore"

	// DefaultStoreType is used when no store type is configured.
	DefaultStoreType = StoreTypePKCS12
)

var storeTypeAliases = map[string]string{
	"PKCS12":        StoreTypePKCS12,
	"P12":           StoreTypePKCS12,
	"PFX":           StoreTypePKCS12,
	"JKS":           StoreTypeJKS,
	"JCEKS":         StoreTypeJCEKS,
	"PEM":           StoreTypePEM,
	"DER":           StoreTypeDER,
	"PKCS11":        StoreTypePKCS11,
	"WINDOWS-MY":    StoreTypeWindowsMy,
	"WINDOWS-ROOT":  StoreTypeWindowsRoot,
	"KEYCHAINSTORE": StoreTypeKeychain,
}

// canonicalStoreType maps a configured store type to its canonical name.
// Empty means DefaultStoreType.
func canonicalStoreType(storeType string) (string, error) {
	if storeType == "" {
		return DefaultStoreType, nil
	}
	canonical, ok := storeTypeAliases[strings.ToUpper(strings.TrimSpace(storeType))]
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrUnsupportedStoreType, storeType)
	}
	return canonical, nil
}

// isKeystoreFamily reports whether a type participates in keystore
// compatibility mode, where PKCS12, JKS and JCEKS files are told apart by
// their contents rather than by the configured type.
func isKeystoreFamily(storeType string) bool {
	switch storeType {
	case StoreTypePKCS12, StoreTypeJKS, StoreTypeJCEKS:
		return true
	}
	return false
}

var (
	jceksMagicBytes = []byte{0xCE, 0xCE, 0xCE, 0xCE}
	jksMagicBytes   = []byte{0xFE, 0xED, 0xFE, 0xED}
)

// sniffStoreType guesses the actual type of a keystore-family file from its
// magic bytes, falling back to the configured type if nothing matches.
func sniffStoreType(reader *bufio.Reader, configured string) (string, error) {
	data, err := reader.Peek(4)
	if err != nil {
		return "", errors.New("unable to read file: too short to be a keystore")
	}

	switch {
	case bytes.Equal(data, jceksMagicBytes):
		return StoreTypeJCEKS, nil
	case bytes.Equal(data, jksMagicBytes):
		return StoreTypeJKS, nil
	case data[0] == 0x30:
		// ASN.1 SEQUENCE, which is how every PKCS#12 PFX starts
		return StoreTypePKCS12, nil
	}
	return configured, nil
}
