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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

// identity is a certificate and private key for testing.
type identity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
	Issuer      *identity
	nextSN      int64
}

type identityOption func(*identityConfig)

type identityConfig struct {
	commonName string
	dnsNames   []string
	issuer     *identity
	rsa        bool
	isCA       bool
}

var withIsCA identityOption = func(c *identityConfig) {
	c.isCA = true
}

// withRSAKey generates an RSA key instead of the default P-256 key.
var withRSAKey identityOption = func(c *identityConfig) {
	c.rsa = true
}

func withCommonName(name string) identityOption {
	return func(c *identityConfig) {
		c.commonName = name
	}
}

func withDNSNames(names ...string) identityOption {
	return func(c *identityConfig) {
		c.dnsNames = names
	}
}

func withIssuer(issuer *identity) identityOption {
	return func(c *identityConfig) {
		c.issuer = issuer
	}
}

// newIdentity creates a new identity (root CA or issued certificate).
func newIdentity(t testing.TB, opts ...identityOption) *identity {
	t.Helper()

	cfg := &identityConfig{commonName: "test"}
	for _, opt := range opts {
		opt(cfg)
	}

	var priv crypto.Signer
	var err error
	if cfg.rsa {
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
	} else {
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	require.NoError(t, err)

	sn, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          sn,
		Subject:               pkix.Name{CommonName: cfg.commonName},
		DNSNames:              cfg.dnsNames,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  cfg.isCA,
		BasicConstraintsValid: true,
	}
	if cfg.isCA {
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	} else {
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	}

	parent, signingKey := tmpl, priv
	if cfg.issuer != nil {
		parent = cfg.issuer.Certificate
		signingKey = cfg.issuer.PrivateKey
		tmpl.SerialNumber = big.NewInt(cfg.issuer.incrementSN())
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, priv.Public(), signingKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &identity{Certificate: cert, PrivateKey: priv, Issuer: cfg.issuer, nextSN: 1}
}

// Issue creates a new identity signed by this one.
func (id *identity) Issue(t testing.TB, opts ...identityOption) *identity {
	t.Helper()
	return newIdentity(t, append(opts, withIssuer(id))...)
}

func (id *identity) incrementSN() int64 {
	id.nextSN++
	return id.nextSN
}

// Chain returns the certificate followed by its issuers.
func (id *identity) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for cur := id; cur != nil; cur = cur.Issuer {
		chain = append(chain, cur.Certificate)
	}
	return chain
}

// PFX returns the identity and its issuers as PKCS#12 data.
func (id *identity) PFX(t testing.TB, password string) []byte {
	t.Helper()
	chain := id.Chain()
	pfxData, err := pkcs12.Modern.Encode(id.PrivateKey, chain[0], chain[1:], password)
	require.NoError(t, err)
	return pfxData
}

// PEM returns the certificate chain followed by the private key.
func (id *identity) PEM(t testing.TB) []byte {
	t.Helper()
	return append(certificatesPEM(id.Chain()...), id.KeyPEM(t)...)
}

// KeyPEM returns the private key in PKCS#8 form.
func (id *identity) KeyPEM(t testing.TB) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// trustStorePFX returns certs as a Java-style PKCS#12 trust store.
func trustStorePFX(t testing.TB, password string, certs ...*x509.Certificate) []byte {
	t.Helper()
	pfxData, err := pkcs12.Modern.EncodeTrustStore(certs, password)
	require.NoError(t, err)
	return pfxData
}

func certificatesPEM(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, cert := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return out
}

// writeFile writes data to a new file in a per-test directory.
func writeFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}
