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
	"fmt"
	"os"
	"strings"
)

// SecretScheme identifies where the value of a secret descriptor comes from.
type SecretScheme int

const (
	// SchemeLiteral is a descriptor without any colon; the whole
	// descriptor is the secret.
	SchemeLiteral SecretScheme = iota
	// SchemePass is "pass:<secret>".
	SchemePass
	// SchemeEnv is "env:<VARIABLE>".
	SchemeEnv
	// SchemeFile is "file:<path>".
	SchemeFile
)

func (s SecretScheme) String() string {
	switch s {
	case SchemeLiteral:
		return "literal"
	case SchemePass:
		return "pass"
	case SchemeEnv:
		return "env"
	case SchemeFile:
		return "file"
	}
	return fmt.Sprintf("SecretScheme(%d)", int(s))
}

// Secret is a parsed secret descriptor. It is resolved lazily, so that
// environment variables and files are read at the time the secret is needed.
type Secret struct {
	Scheme SecretScheme
	Value  string
}

// ParseSecret parses a secret descriptor of the form "pass:<secret>",
// "env:<VARIABLE>" or "file:<path>". The descriptor is split on the first
// colon only. A descriptor without a colon is a literal secret; a descriptor
// with a colon but an unknown scheme (including "http://...") is rejected.
func ParseSecret(descriptor string) (Secret, error) {
	scheme, value, found := strings.Cut(descriptor, ":")
	if !found {
		return Secret{Scheme: SchemeLiteral, Value: descriptor}, nil
	}

	switch scheme {
	case "pass":
		return Secret{Scheme: SchemePass, Value: value}, nil
	case "env":
		return Secret{Scheme: SchemeEnv, Value: value}, nil
	case "file":
		return Secret{Scheme: SchemeFile, Value: value}, nil
	}

	return Secret{}, &ConfigurationError{
		Op:  fmt.Sprintf("parse secret with prefix '%s:'", scheme),
		Err: ErrUnknownSecretScheme,
	}
}

// Resolve returns the secret value. Environment variables must be set (but may
// be empty). File contents are returned exactly as stored, including any
// trailing newline.
func (s Secret) Resolve() (string, error) {
	switch s.Scheme {
	case SchemeLiteral, SchemePass:
		return s.Value, nil
	case SchemeEnv:
		value, ok := os.LookupEnv(s.Value)
		if !ok {
			return "", &ConfigurationError{Op: "resolve secret from $" + s.Value, Err: ErrSecretNotSet}
		}
		return value, nil
	case SchemeFile:
		raw, err := os.ReadFile(s.Value)
		if err != nil {
			return "", &ConfigurationError{Op: "read secret file", Path: s.Value, Err: err}
		}
		return string(raw), nil
	}
	return "", &ConfigurationError{Op: "resolve secret", Err: ErrUnknownSecretScheme}
}

// ResolveSecret parses and resolves a secret descriptor in one step.
func ResolveSecret(descriptor string) (string, error) {
	secret, err := ParseSecret(descriptor)
	if err != nil {
		return "", err
	}
	return secret.Resolve()
}
