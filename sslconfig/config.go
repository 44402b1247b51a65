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
	"crypto/rand"
	"crypto/tls"
)

// Logger interface used to log information
type Logger interface {
	Printf(format string, v ...interface{})
}

// Configuration describes a key store, a trust store and a protocol. It is a
// value type: methods never modify it, and every call derives fresh stores
// from the file system, environment and OS, so a Configuration can be shared
// between goroutines. The zero value is usable (types default to
// DefaultStoreType, the algorithm to DefaultAlgorithm) but fails to
// materialize until paths are set.
//
// Passwords are secret descriptors, see ParseSecret.
type Configuration struct {
	KeyStorePath     string `yaml:"keyStorePath"`
	KeyStorePassword string `yaml:"keyStorePassword"`
	KeyStoreType     string `yaml:"keyStoreType"`

	TrustStorePath     string `yaml:"trustStorePath"`
	TrustStorePassword string `yaml:"trustStorePassword"`
	TrustStoreType     string `yaml:"trustStoreType"`

	Algorithm string `yaml:"algorithm"`

	// Only used with KeyStoreType PKCS11. KeyStorePath then points to the
	// PEM certificate chain and KeyStorePassword is the token PIN.
	PKCS11Module     string `yaml:"pkcs11Module"`
	PKCS11TokenLabel string `yaml:"pkcs11TokenLabel"`

	// Logger, if set, receives a line for every loaded store.
	Logger Logger `yaml:"-"`
}

// DefaultConfiguration returns a Configuration with all defaults spelled out.
func DefaultConfiguration() Configuration {
	return Configuration{
		KeyStoreType:   DefaultStoreType,
		TrustStoreType: DefaultStoreType,
		Algorithm:      DefaultAlgorithm,
	}
}

type pkcs11Params struct {
	Module     string
	TokenLabel string
}

// Validate checks store types, the algorithm and the syntax of the password
// descriptors without touching the file system or environment.
func (c Configuration) Validate() error {
	if _, err := c.KeyStoreSource(); err != nil {
		return err
	}
	if _, err := c.TrustStoreSource(); err != nil {
		return err
	}
	if _, err := protocolVersions(c.Algorithm); err != nil {
		return configError("select protocol", "", err)
	}
	for _, descriptor := range []string{c.KeyStorePassword, c.TrustStorePassword} {
		if _, err := ParseSecret(descriptor); err != nil {
			return err
		}
	}
	return nil
}

// KeyStoreSource classifies the key store settings.
func (c Configuration) KeyStoreSource() (StoreSource, error) {
	source, err := storeSource(keyStoreRole, c.KeyStorePath, c.KeyStorePassword, c.KeyStoreType)
	if err != nil {
		return nil, configError("load key store", c.KeyStorePath, err)
	}
	return source, nil
}

// TrustStoreSource classifies the trust store settings.
func (c Configuration) TrustStoreSource() (StoreSource, error) {
	source, err := storeSource(trustStoreRole, c.TrustStorePath, c.TrustStorePassword, c.TrustStoreType)
	if err != nil {
		return nil, configError("load trust store", c.TrustStorePath, err)
	}
	return source, nil
}

// KeyStore loads the key store. The native personal store is loaded without
// looking at path or password.
func (c Configuration) KeyStore() (*KeyStore, error) {
	source, err := c.KeyStoreSource()
	if err != nil {
		return nil, err
	}
	ks, err := loadStore(keyStoreRole, source, c.pkcs11())
	if err != nil {
		return nil, err
	}
	c.logf("loaded key store: %s", ks)
	return ks, nil
}

// TrustStore loads the trust store. The native root store is loaded without
// looking at path or password.
func (c Configuration) TrustStore() (*KeyStore, error) {
	source, err := c.TrustStoreSource()
	if err != nil {
		return nil, err
	}
	ks, err := loadStore(trustStoreRole, source, c.pkcs11())
	if err != nil {
		return nil, err
	}
	c.logf("loaded trust store: %s", ks)
	return ks, nil
}

// KeyManagerFactory loads the key store and recovers its private keys with
// the key store password.
func (c Configuration) KeyManagerFactory() (*KeyManagerFactory, error) {
	ks, err := c.KeyStore()
	if err != nil {
		return nil, err
	}

	var password string
	if _, ok := ks.Source.(FileStore); ok {
		password, err = ResolveSecret(c.KeyStorePassword)
		if err != nil {
			return nil, err
		}
	}
	return NewKeyManagerFactory(ks, password)
}

// TrustManagerFactory loads the trust store and builds its pool of trust
// anchors.
func (c Configuration) TrustManagerFactory() (*TrustManagerFactory, error) {
	ks, err := c.TrustStore()
	if err != nil {
		return nil, err
	}
	return NewTrustManagerFactory(ks)
}

// TLSContext builds a new TLS configuration from the key and trust stores.
// The trust anchors are used both to verify servers (RootCAs) and clients
// (ClientCAs); whether client certificates are requested is left to the
// caller. Randomness comes from crypto/rand.
func (c Configuration) TLSContext() (*tls.Config, error) {
	versions, err := protocolVersions(c.Algorithm)
	if err != nil {
		return nil, configError("select protocol", "", err)
	}

	keyManagers, err := c.KeyManagerFactory()
	if err != nil {
		return nil, err
	}

	trustManagers, err := c.TrustManagerFactory()
	if err != nil {
		return nil, err
	}

	roots := trustManagers.TrustManagers()
	return &tls.Config{
		Certificates: keyManagers.KeyManagers(),
		RootCAs:      roots,
		ClientCAs:    roots,
		Rand:         rand.Reader,
		MinVersion:   versions.min,
		MaxVersion:   versions.max,
	}, nil
}

func (c Configuration) pkcs11() pkcs11Params {
	return pkcs11Params{Module: c.PKCS11Module, TokenLabel: c.PKCS11TokenLabel}
}

func (c Configuration) logf(format string, v ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
	}
}
