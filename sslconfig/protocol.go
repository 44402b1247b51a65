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
	"fmt"
	"strings"
)

// DefaultAlgorithm is the protocol used when none is configured.
const DefaultAlgorithm = "TLS"

type versionRange struct {
	min, max uint16
}

var protocols = map[string]versionRange{
	"TLS":     {tls.VersionTLS12, tls.VersionTLS13},
	"DEFAULT": {tls.VersionTLS12, tls.VersionTLS13},
	"TLSV1.3": {tls.VersionTLS12, tls.VersionTLS13},
	"TLSV1.2": {tls.VersionTLS12, tls.VersionTLS12},
	"TLSV1.1": {tls.VersionTLS10, tls.VersionTLS11},
	"TLSV1":   {tls.VersionTLS10, tls.VersionTLS10},
}

// protocolVersions maps a protocol name (case-insensitive) to the range of
// TLS versions a context for that protocol negotiates. A versioned name is
// the highest version; TLS 1.0 and 1.1 are only enabled by the names that
// ask for them. SSL protocols are not supported.
func protocolVersions(algorithm string) (versionRange, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	versions, ok := protocols[strings.ToUpper(strings.TrimSpace(algorithm))]
	if !ok {
		return versionRange{}, fmt.Errorf("%w '%s'", ErrUnsupportedAlgorithm, algorithm)
	}
	return versions, nil
}
