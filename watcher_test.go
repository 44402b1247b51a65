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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghostunnel/sslconfig/sslconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFiles(t *testing.T) {
	dir := t.TempDir()
	watched := writeTestFile(t, filepath.Join(dir, "keystore.p12"), "test")
	other := writeTestFile(t, filepath.Join(dir, "unrelated"), "test")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	changes := make(chan string, 1)
	go func() { done <- watchFiles(ctx, []string{watched}, changes) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher time to start
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("new"), 0600))
	select {
	case name := <-changes:
		t.Fatalf("unexpected notification for %s", name)
	case <-time.After(300 * time.Millisecond):
	}

	// Must detect new writes
	require.NoError(t, os.WriteFile(watched, []byte("new"), 0600))
	select {
	case name := <-changes:
		assert.Equal(t, watched, name)
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout, no notification on changed file")
	}

	// Must detect file being replaced
	replacement := writeTestFile(t, filepath.Join(dir, "keystore.p12.tmp"), "blubb")
	require.NoError(t, os.Rename(replacement, watched))
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout, no notification on replaced file")
	}
}

func TestFileWatcherUpdate(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	oldStore := writeTestFile(t, filepath.Join(oldDir, "keystore.p12"), "old")
	newStore := writeTestFile(t, filepath.Join(newDir, "keystore.p12"), "new")

	w, err := newFileWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.update([]string{oldStore}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	changes := make(chan string, 1)
	go func() { done <- w.run(ctx, changes) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher time to start
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(newStore, []byte("changed"), 0600))
	select {
	case name := <-changes:
		t.Fatalf("unexpected notification for %s", name)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, w.update([]string{newStore}))
	assert.False(t, w.isWatched(oldStore))

	require.NoError(t, os.WriteFile(oldStore, []byte("changed"), 0600))
	require.NoError(t, os.WriteFile(newStore, []byte("changed again"), 0600))
	select {
	case name := <-changes:
		assert.Equal(t, newStore, name)
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout, no notification on newly watched file")
	}
}

func TestWatchedFiles(t *testing.T) {
	opts := &options{configFiles: []string{"a.yaml"}, envFiles: []string{"prod.env"}}
	targets := []target{{
		name: "a.yaml",
		config: sslconfig.Configuration{
			KeyStorePath:       "keystore.jks",
			KeyStorePassword:   "file:storepass.txt",
			TrustStoreType:     sslconfig.StoreTypeWindowsRoot,
			TrustStorePath:     "ignored",
			TrustStorePassword: "file:ignored-too",
		},
	}}

	files := watchedFiles(opts, targets)
	assert.ElementsMatch(t, []string{"a.yaml", "prod.env", "keystore.jks", "storepass.txt"}, files)
}
