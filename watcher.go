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
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ghostunnel/sslconfig/sslconfig"
)

// fileWatcher reports changes to a set of files that can be replaced while
// it runs. Parent directories are watched, so that files replaced by a
// rename (as done by most deployment tools) are still picked up.
type fileWatcher struct {
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool
	dirs    map[string]bool
}

func newFileWatcher() (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fileWatcher{watcher: watcher, watched: map[string]bool{}, dirs: map[string]bool{}}, nil
}

func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}

// update replaces the set of watched files. Directories that no longer
// contain a watched file are dropped.
func (w *fileWatcher) update(files []string) error {
	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			logger.Printf("unable to watch %s: %s", dir, err)
			delete(dirs, dir)
		}
	}
	for dir := range w.dirs {
		if !dirs[dir] {
			_ = w.watcher.Remove(dir)
		}
	}

	w.watched = watched
	w.dirs = dirs
	return nil
}

func (w *fileWatcher) isWatched(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[filepath.Clean(name)]
}

// run sends the name of every changed file on changes until ctx is done or
// the watcher is closed.
func (w *fileWatcher) run(ctx context.Context, changes chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.isWatched(event.Name) || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			select {
			case changes <- event.Name:
			default:
				// A re-check is already pending
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("error watching files: %s", err)
		}
	}
}

// watchFiles sends the name of every changed file on changes until ctx is
// done.
func watchFiles(ctx context.Context, files []string, changes chan<- string) error {
	w, err := newFileWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.update(files); err != nil {
		return err
	}
	return w.run(ctx, changes)
}

// watchedFiles lists the files a re-check depends on: configuration files,
// file-backed stores and file: passwords.
func watchedFiles(opts *options, targets []target) []string {
	files := append([]string{}, opts.configFiles...)
	files = append(files, opts.envFiles...)

	for _, t := range targets {
		stores := []struct {
			source   func() (sslconfig.StoreSource, error)
			password string
		}{
			{t.config.KeyStoreSource, t.config.KeyStorePassword},
			{t.config.TrustStoreSource, t.config.TrustStorePassword},
		}
		for _, store := range stores {
			source, err := store.source()
			if err != nil {
				continue
			}
			file, ok := source.(sslconfig.FileStore)
			if !ok {
				continue
			}
			if file.Path != "" {
				files = append(files, file.Path)
			}
			if secret, err := sslconfig.ParseSecret(store.password); err == nil && secret.Scheme == sslconfig.SchemeFile {
				files = append(files, secret.Value)
			}
		}
	}
	return files
}
