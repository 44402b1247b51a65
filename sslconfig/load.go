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
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads a YAML configuration file. Keys are the
// camel-cased field names (keyStorePath, keyStorePassword, keyStoreType,
// trustStorePath, trustStorePassword, trustStoreType, algorithm,
// pkcs11Module, pkcs11TokenLabel); unknown keys are rejected. Fields missing
// from the file keep their defaults.
func LoadConfiguration(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, configError("read configuration", path, err)
	}
	config, err := ParseConfiguration(data)
	var cerr *ConfigurationError
	if errors.As(err, &cerr) {
		cerr.Path = path
	}
	return config, err
}

// ParseConfiguration parses YAML configuration, see LoadConfiguration.
func ParseConfiguration(data []byte) (Configuration, error) {
	config := DefaultConfiguration()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Configuration{}, &ConfigurationError{Op: "parse configuration", Err: err}
	}
	return config, nil
}
