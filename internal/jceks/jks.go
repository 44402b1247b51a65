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

package jceks

import (
	"bufio"
	"crypto"
	"crypto/sha1"
	"crypto/subtle"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

var (
	ErrInvalidData      = errors.New("invalid key store data")
	ErrNotJKSProtected  = errors.New("private key is not protected with the JKS key protector")
	ErrDecryptionFailed = errors.New("decryption failed with the given password")
)

const (
	secretKeyEntryTag uint32 = 3
	jksSaltLen               = sha1.Size
	maxEntryBytes            = 20 * 1024 * 1024
)

var oidJKSKeyProtector = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 42, 2, 17, 1, 1}

// PrivateKeyEntry is a private key entry as stored, with the key still
// protected.
type PrivateKeyEntry struct {
	Alias        string
	ProtectedKey []byte
	Chain        []*x509.Certificate
}

// IsJKSProtected reports whether the entry's key uses the JKS key protector.
func (e PrivateKeyEntry) IsJKSProtected() bool {
	var info encryptedPrivateKeyInfo
	if _, err := asn1.Unmarshal(e.ProtectedKey, &info); err != nil {
		return false
	}
	return info.Algo.Algorithm.Equal(oidJKSKeyProtector)
}

// Recover decrypts a key protected with the JKS key protector.
func (e PrivateKeyEntry) Recover(password string) (crypto.PrivateKey, error) {
	var info encryptedPrivateKeyInfo
	if _, err := asn1.Unmarshal(e.ProtectedKey, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if !info.Algo.Algorithm.Equal(oidJKSKeyProtector) {
		return nil, ErrNotJKSProtected
	}

	data := info.EncryptedKey
	if len(data) < 2*jksSaltLen {
		return nil, fmt.Errorf("%w: protected key too short", ErrInvalidData)
	}
	salt := data[:jksSaltLen]
	check := data[len(data)-sha1.Size:]
	encrypted := data[jksSaltLen : len(data)-sha1.Size]

	passwd := passwordBytes(password)
	plain := make([]byte, len(encrypted))
	subtle.XORBytes(plain, encrypted, jksKeystream(passwd, salt, len(encrypted)))

	h := sha1.New()
	h.Write(passwd)
	h.Write(plain)
	if subtle.ConstantTimeCompare(h.Sum(nil), check) != 1 {
		return nil, ErrDecryptionFailed
	}

	key, err := x509.ParsePKCS8PrivateKey(plain)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return key, nil
}

// ReadPrivateKeyEntries lists the private key entries of a JKS or JCEKS
// file without checking its integrity. Later entries replace earlier ones
// with the same alias.
func ReadPrivateKeyEntries(r io.Reader) (map[string]PrivateKeyEntry, error) {
	br := bufio.NewReader(r)

	var header struct {
		Magic, Version uint32
		Count          int32
	}
	if err := binary.Read(br, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if header.Magic != magic && header.Magic != jksMagic {
		return nil, fmt.Errorf("%w: unexpected magic %08x", ErrInvalidData, header.Magic)
	}
	if header.Version != version {
		return nil, fmt.Errorf("%w: unexpected version %d", ErrInvalidData, header.Version)
	}

	entries := make(map[string]PrivateKeyEntry)
	for i := int32(0); i < header.Count; i++ {
		var tag uint32
		if err := binary.Read(br, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidData, i, err)
		}
		alias, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidData, i, err)
		}
		var timestamp int64
		if err := binary.Read(br, binary.BigEndian, &timestamp); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidData, i, err)
		}
		delete(entries, alias)

		switch tag {
		case privateKeyEntryTag:
			entry, err := readPrivateKeyEntry(br, alias)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidData, i, err)
			}
			entries[alias] = entry
		case trustedCertEntryTag:
			if _, err := readCertificate(br); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidData, i, err)
			}
		case secretKeyEntryTag:
			return nil, fmt.Errorf("%w: secret key entries are not supported", ErrInvalidData)
		default:
			return nil, fmt.Errorf("%w: unknown entry tag %d", ErrInvalidData, tag)
		}
	}
	return entries, nil
}

func readPrivateKeyEntry(r io.Reader, alias string) (PrivateKeyEntry, error) {
	protected, err := readBytes(r)
	if err != nil {
		return PrivateKeyEntry{}, err
	}
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return PrivateKeyEntry{}, err
	}

	entry := PrivateKeyEntry{Alias: alias, ProtectedKey: protected}
	for j := int32(0); j < count; j++ {
		cert, err := readCertificate(r)
		if err != nil {
			return PrivateKeyEntry{}, err
		}
		entry.Chain = append(entry.Chain, cert)
	}
	return entry, nil
}

// protectJKSKey encrypts a PKCS#8 key the way Sun's KeyProtector does: the
// key is XORed with a SHA-1 keystream of the password and a random salt,
// and a SHA-1 over password and plaintext is appended for verification.
func protectJKSKey(pkcs8 []byte, password string, rnd io.Reader) ([]byte, error) {
	salt := make([]byte, jksSaltLen)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	passwd := passwordBytes(password)
	encrypted := make([]byte, len(pkcs8))
	subtle.XORBytes(encrypted, pkcs8, jksKeystream(passwd, salt, len(pkcs8)))

	h := sha1.New()
	h.Write(passwd)
	h.Write(pkcs8)

	data := append(append(salt, encrypted...), h.Sum(nil)...)
	return asn1.Marshal(encryptedPrivateKeyInfo{
		Algo:         pkix.AlgorithmIdentifier{Algorithm: oidJKSKeyProtector, Parameters: asn1.NullRawValue},
		EncryptedKey: data,
	})
}

func jksKeystream(passwd, salt []byte, n int) []byte {
	stream := make([]byte, 0, n+sha1.Size)
	digest := salt
	for len(stream) < n {
		h := sha1.New()
		h.Write(passwd)
		h.Write(digest)
		digest = h.Sum(nil)
		stream = append(stream, digest...)
	}
	return stream[:n]
}

// passwordBytes encodes the password as big-endian UTF-16 code units.
func passwordBytes(password string) []byte {
	var out []byte
	for _, unit := range utf16.Encode([]rune(password)) {
		out = binary.BigEndian.AppendUint16(out, unit)
	}
	return out
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 || n > maxEntryBytes {
		return nil, fmt.Errorf("invalid length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readCertificate(r io.Reader) (*x509.Certificate, error) {
	certType, err := readString(r)
	if err != nil {
		return nil, err
	}
	if certType != x509CertTag {
		return nil, fmt.Errorf("unsupported certificate type %q", certType)
	}
	der, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
