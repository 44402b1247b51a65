//go:build !windows

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
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchLoopRechecksUntilShutdown(t *testing.T) {
	keystore, truststore := testStores(t, t.TempDir())
	opts := &options{
		keystorePath:   keystore,
		keystorePass:   "changeit",
		truststorePath: truststore,
		truststorePass: "changeit",
	}

	var out bytes.Buffer
	c := newChecker(&out, opts)

	loads := 0
	load := func() ([]target, error) {
		loads++
		return loadTargets(opts)
	}

	// Unbuffered, so that events are handled in the order they are sent
	changes := make(chan string)
	signals := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- watchLoop(context.Background(), c, load, changes, signals) }()

	changes <- keystore
	signals <- syscall.SIGHUP
	signals <- syscall.SIGUSR1
	signals <- syscall.SIGTERM

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("watch loop did not shut down")
	}

	assert.Equal(t, 4, loads, "initial check, file change, SIGHUP, SIGUSR1")
	assert.Equal(t, 4, bytes.Count(out.Bytes(), []byte("command line: OK")))
}

func TestWatchLoopSurvivesFailures(t *testing.T) {
	var out bytes.Buffer
	c := newChecker(&out, &options{})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := make(chan struct{}, 10)
	load := func() ([]target, error) {
		attempts <- struct{}{}
		return nil, errors.New("broken configuration")
	}

	changes := make(chan string)
	done := make(chan error, 1)
	go func() { done <- watchLoop(ctx, c, load, changes, make(chan os.Signal)) }()

	<-attempts
	changes <- "keystore.p12"
	<-attempts
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop on cancel")
	}
}
