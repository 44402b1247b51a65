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
	"errors"
	"fmt"
)

var (
	ErrUnknownSecretScheme    = errors.New("unknown password prefix; must be one of pass:, env:, file:")
	ErrSecretNotSet           = errors.New("environment variable is not set")
	ErrUnsupportedStoreType   = errors.New("unsupported store type")
	ErrUnsupportedAlgorithm   = errors.New("unsupported protocol")
	ErrNativeStoreUnavailable = errors.New("native certificate store is not available on this platform")
	ErrNoPrivateKey           = errors.New("no private key found")
	ErrNoCertificates         = errors.New("no certificates found")
	ErrMultiplePrivateKeys    = errors.New("found multiple private keys")
)

// ConfigurationError is returned for every failure to turn a Configuration
// into key material, trust material or a TLS context. Op names the step that
// failed (e.g. "load key store"), Path the file involved, if any.
type ConfigurationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid configuration: %s '%s': %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(op, path string, err error) error {
	var cerr *ConfigurationError
	if errors.As(err, &cerr) {
		return err
	}
	return &ConfigurationError{Op: op, Path: path, Err: err}
}
