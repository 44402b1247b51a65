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
	"os/signal"
	"slices"
)

// watch checks all targets, then re-checks on file changes and reload
// signals until a shutdown signal arrives.
func watch(ctx context.Context, c *checker, opts *options) error {
	targets, err := loadTargets(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, append(slices.Clone(reloadSignals), shutdownSignals...)...)
	defer signal.Stop(signals)

	watcher, err := newFileWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.update(watchedFiles(opts, targets)); err != nil {
		return err
	}

	changes := make(chan string, 1)
	go func() {
		if err := watcher.run(ctx, changes); err != nil {
			logger.Printf("error watching files: %s", err)
		}
	}()

	// The watched set follows every successful reload.
	load := func() ([]target, error) {
		targets, err := loadTargets(opts)
		if err != nil {
			return nil, err
		}
		if err := watcher.update(watchedFiles(opts, targets)); err != nil {
			logger.Printf("unable to update watched files: %s", err)
		}
		return targets, nil
	}

	return watchLoop(ctx, c, load, changes, signals)
}

// watchLoop runs a check immediately and after every change or reload
// signal. Failed checks are logged; only a shutdown signal or ctx ends the
// loop.
func watchLoop(ctx context.Context, c *checker, load func() ([]target, error), changes <-chan string, signals <-chan os.Signal) error {
	recheck := func() {
		targets, err := load()
		if err == nil {
			err = c.checkAll(ctx, targets)
		}
		if err != nil {
			logger.Printf("check failed: %s", err)
			return
		}
		logger.Printf("check complete")
	}

	recheck()
	for {
		select {
		case <-ctx.Done():
			return nil

		case sig := <-signals:
			if !slices.Contains(reloadSignals, sig) {
				logger.Printf("received %s, shutting down", sig)
				return nil
			}
			logger.Printf("received %s, re-checking", sig)
			recheck()

		case name := <-changes:
			logger.Printf("found new %s, re-checking", name)
			recheck()
		}
	}
}
