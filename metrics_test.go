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


package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	keystore, truststore := testStores(t, dir)
	textfile := filepath.Join(dir, "sslconfig.prom")

	err := run([]string{"check", "--metrics-textfile", textfile,
		"--keystore", keystore, "--storepass", "changeit",
		"--truststore", truststore, "--trustpass", "changeit"}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sslconfig_checks")
	assert.Contains(t, string(data), "sslconfig_certificate_expiry_seconds")
}

func TestMetricsRecordFailures(t *testing.T) {
	m := newCheckMetrics("")
	require.NoError(t, m.export(), "export without textfile is a no-op")

	c := &checker{out: &bytes.Buffer{}, metrics: m}
	err := c.checkAll(t.Context(), []target{{name: "empty"}})
	require.Error(t, err)

	assert.EqualValues(t, 1, m.registry.Get("checks").(interface{ Count() int64 }).Count())
	assert.EqualValues(t, 1, m.registry.Get("check.failures").(interface{ Count() int64 }).Count())
	assert.Nil(t, m.registry.Get("certificate.expiry.seconds"))
}
