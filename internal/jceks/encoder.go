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

// Package jceks writes JCEKS (Java Cryptography Extension Key Store) and JKS
// files, and recovers JKS private keys. Only trusted certificate entries and
// RSA private key entries are supported. JCEKS keys are protected with
// PBEWithMD5AndTripleDES, which is what the certigo decoder reads; JKS keys
// use Sun's proprietary key protector, which it does not.
package jceks

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"
	"unicode/utf16"
)

var (
	ErrInvalidPassword = errors.New("password is unsupported by JCEKS format")
	ErrInvalidAlias    = errors.New("alias cannot be expressed in JCEKS format")
	ErrNoCertificates  = errors.New("private key entry needs at least one certificate")
)

const (
	magic               uint32 = 0xcececece
	jksMagic            uint32 = 0xfeedfeed
	version             uint32 = 0x02
	privateKeyEntryTag  uint32 = 1
	trustedCertEntryTag uint32 = 2
	x509CertTag                = "X.509"
	integrityMagic             = "Mighty Aphrodite"
	maxAliasLen                = 0xFFFF
	saltLen                    = 8
	desKeyLen                  = 24

	// DefaultIterations matches the iteration count keytool uses.
	DefaultIterations = 200000
)

var (
	oidPublicKeyRSA         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidPBEWithMD5AndDES3CBC = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 42, 2, 19, 1}
)

type privateKeyInfo struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
}

type encryptedPrivateKeyInfo struct {
	Algo         pkix.AlgorithmIdentifier
	EncryptedKey []byte
}

type pbeParameters struct {
	Salt       []byte
	Iterations int
}

// Encoder collects entries and writes them as a JCEKS file. The zero value
// is ready to use.
type Encoder struct {
	// JKS writes a JKS file instead, with keys protected by the JKS key
	// protector.
	JKS bool
	// Iterations of the key derivation, DefaultIterations if zero.
	Iterations int
	// Rand is the source of salts, crypto/rand if nil.
	Rand io.Reader

	entries [][]byte
}

// AddTrustedCertificate adds a trusted certificate entry.
func (e *Encoder) AddTrustedCertificate(alias string, timestamp time.Time, cert *x509.Certificate) error {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, trustedCertEntryTag)
	if err := writeString(&buf, alias); err != nil {
		return err
	}
	_ = binary.Write(&buf, binary.BigEndian, timestamp.UnixMilli())
	writeCertificate(&buf, cert)

	e.entries = append(e.entries, buf.Bytes())
	return nil
}

// AddPrivateKey adds an RSA private key with its certificate chain, leaf
// first. The key is encrypted with keyPassword.
func (e *Encoder) AddPrivateKey(alias string, timestamp time.Time, key *rsa.PrivateKey, chain []*x509.Certificate, keyPassword string) error {
	if len(chain) == 0 {
		return ErrNoCertificates
	}

	protectedKey, err := e.protectKey(key, keyPassword)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, privateKeyEntryTag)
	if err := writeString(&buf, alias); err != nil {
		return err
	}
	_ = binary.Write(&buf, binary.BigEndian, timestamp.UnixMilli())
	writeBytes(&buf, protectedKey)
	_ = binary.Write(&buf, binary.BigEndian, int32(len(chain)))
	for _, cert := range chain {
		writeCertificate(&buf, cert)
	}

	e.entries = append(e.entries, buf.Bytes())
	return nil
}

// Encode writes the keystore, protected with the given integrity password.
func (e *Encoder) Encode(w io.Writer, storePassword string) error {
	digest, err := integrityHash(storePassword)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if e.JKS {
		_ = binary.Write(&buf, binary.BigEndian, jksMagic)
	} else {
		_ = binary.Write(&buf, binary.BigEndian, magic)
	}
	_ = binary.Write(&buf, binary.BigEndian, version)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(e.entries)))
	for _, entry := range e.entries {
		buf.Write(entry)
	}

	digest.Write(buf.Bytes())
	buf.Write(digest.Sum(nil))

	_, err = w.Write(buf.Bytes())
	return err
}

// Bytes is a convenience wrapper around Encode.
func (e *Encoder) Bytes(storePassword string) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, storePassword); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) protectKey(key *rsa.PrivateKey, password string) ([]byte, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	rnd := e.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if e.JKS {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, err
		}
		return protectJKSKey(der, password, rnd)
	}

	iterations := e.Iterations
	if iterations < 1 {
		iterations = DefaultIterations
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rnd, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	desKey, iv := deriveKey([]byte(password), salt, iterations)

	plain, err := asn1.Marshal(privateKeyInfo{
		Algo:       pkix.AlgorithmIdentifier{Algorithm: oidPublicKeyRSA, Parameters: asn1.NullRawValue},
		PrivateKey: x509.MarshalPKCS1PrivateKey(key),
	})
	if err != nil {
		return nil, err
	}

	block, err := des.NewTripleDESCipher(desKey)
	if err != nil {
		return nil, err
	}
	padded := pkcs5Pad(plain)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(padded, padded)

	params, err := asn1.Marshal(pbeParameters{Salt: salt, Iterations: iterations})
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(encryptedPrivateKeyInfo{
		Algo: pkix.AlgorithmIdentifier{
			Algorithm:  oidPBEWithMD5AndDES3CBC,
			Parameters: asn1.RawValue{FullBytes: params},
		},
		EncryptedKey: padded,
	})
}

// deriveKey implements the key derivation of Sun's PBEWithMD5AndTripleDES:
// each salt half is hashed with the password for the given number of MD5
// rounds; the two digests form the 3DES key followed by the CBC IV.
func deriveKey(password, salt []byte, iterations int) (key, iv []byte) {
	state := append([]byte(nil), salt...)
	half := saltLen / 2
	if bytes.Equal(state[:half], state[half:]) {
		for i, j := 0, half-1; i < j; i, j = i+1, j-1 {
			state[i], state[j] = state[j], state[i]
		}
	}

	var derived []byte
	for i := 0; i < 2; i++ {
		digest := state[i*half : (i+1)*half]
		for j := 0; j < iterations; j++ {
			h := md5.New()
			h.Write(digest)
			h.Write(password)
			digest = h.Sum(nil)
		}
		derived = append(derived, digest...)
	}
	return derived[:desKeyLen], derived[desKeyLen:]
}

func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty passwords are not interoperable", ErrInvalidPassword)
	}
	for _, r := range password {
		if r < 0x20 || r > 0x7E {
			return fmt.Errorf("%w: only printable ASCII is supported", ErrInvalidPassword)
		}
	}
	return nil
}

// integrityHash starts the SHA-1 keyed with the UTF-16 password, as Java's
// JceKeyStore does.
func integrityHash(password string) (hash.Hash, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty passwords are not interoperable", ErrInvalidPassword)
	}

	h := sha1.New()
	for _, unit := range utf16.Encode([]rune(password)) {
		_ = binary.Write(h, binary.BigEndian, unit)
	}
	h.Write([]byte(integrityMagic))
	return h, nil
}

func pkcs5Pad(data []byte) []byte {
	pad := des.BlockSize - len(data)%des.BlockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > maxAliasLen {
		return fmt.Errorf("%w: too long", ErrInvalidAlias)
	}
	for _, r := range s {
		if r == 0 || r > 0xFFFF {
			return fmt.Errorf("%w: unsupported character %q", ErrInvalidAlias, r)
		}
	}
	_ = binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.BigEndian, int32(len(b)))
	buf.Write(b)
}

func writeCertificate(buf *bytes.Buffer, cert *x509.Certificate) {
	_ = writeString(buf, x509CertTag)
	writeBytes(buf, cert.Raw)
}
