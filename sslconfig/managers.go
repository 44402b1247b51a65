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
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// KeyManagerFactory holds the certificates, with private keys, that a TLS
// endpoint can present to its peer.
type KeyManagerFactory struct {
	certificates []tls.Certificate
}

// NewKeyManagerFactory recovers every private key of the store with the given
// password. The store must contain at least one private key entry.
func NewKeyManagerFactory(ks *KeyStore, password string) (*KeyManagerFactory, error) {
	const op = "init key managers"

	if len(ks.identities) == 0 {
		return nil, configError(op, sourcePath(ks.Source), ErrNoPrivateKey)
	}

	factory := &KeyManagerFactory{}
	for _, entry := range ks.identities {
		key, chain, err := entry.recoverKey(password)
		if err != nil {
			return nil, configError(op, sourcePath(ks.Source), err)
		}
		if key == nil || len(chain) == 0 {
			return nil, configError(op, sourcePath(ks.Source), fmt.Errorf("%w for alias '%s'", ErrNoPrivateKey, entry.Alias))
		}
		if !keyMatchesCertificate(key, chain[0]) {
			return nil, configError(op, sourcePath(ks.Source),
				fmt.Errorf("private key for alias '%s' does not match its certificate", entry.Alias))
		}

		cert := tls.Certificate{PrivateKey: key, Leaf: chain[0]}
		for _, c := range chain {
			cert.Certificate = append(cert.Certificate, c.Raw)
		}
		factory.certificates = append(factory.certificates, cert)
	}
	return factory, nil
}

// KeyManagers returns the certificates in store order, suitable for
// tls.Config.Certificates.
func (f *KeyManagerFactory) KeyManagers() []tls.Certificate {
	return append([]tls.Certificate(nil), f.certificates...)
}

// GetCertificate picks the first certificate supported by the client. Can be
// used for tls.Config's GetCertificate callback.
func (f *KeyManagerFactory) GetCertificate(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if len(f.certificates) == 0 {
		return nil, ErrNoPrivateKey
	}
	for i := range f.certificates {
		if clientHello == nil || clientHello.SupportsCertificate(&f.certificates[i]) == nil {
			return &f.certificates[i], nil
		}
	}
	return &f.certificates[0], nil
}

// GetClientCertificate picks the first certificate acceptable to the server.
// Can be used for tls.Config's GetClientCertificate callback.
func (f *KeyManagerFactory) GetClientCertificate(certInfo *tls.CertificateRequestInfo) (*tls.Certificate, error) {
	for i := range f.certificates {
		if certInfo == nil || certInfo.SupportsCertificate(&f.certificates[i]) == nil {
			return &f.certificates[i], nil
		}
	}
	// An empty certificate tells the server we have nothing suitable.
	return &tls.Certificate{}, nil
}

// TrustManagerFactory holds the trust anchors used to verify peers.
type TrustManagerFactory struct {
	pool *x509.CertPool
}

// NewTrustManagerFactory builds a certificate pool from the trusted entries
// of the store. A store without trusted entries is an error.
func NewTrustManagerFactory(ks *KeyStore) (*TrustManagerFactory, error) {
	if ks.systemPool != nil {
		return &TrustManagerFactory{pool: ks.systemPool.Clone()}, nil
	}
	if len(ks.trusted) == 0 {
		return nil, configError("init trust managers", sourcePath(ks.Source),
			fmt.Errorf("%w: the trust store has no trusted certificate entries", ErrNoCertificates))
	}

	pool := x509.NewCertPool()
	for _, cert := range ks.trusted {
		pool.AddCert(cert)
	}
	return &TrustManagerFactory{pool: pool}, nil
}

// TrustManagers returns the pool of trust anchors, suitable for
// tls.Config.RootCAs and tls.Config.ClientCAs.
func (f *TrustManagerFactory) TrustManagers() *x509.CertPool {
	return f.pool
}

func sourcePath(source StoreSource) string {
	if file, ok := source.(FileStore); ok {
		return file.Path
	}
	return ""
}
