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
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/ghostunnel/sslconfig/sslconfig"
	"github.com/square/certigo/lib"
	"golang.org/x/sync/errgroup"
)

// commandLineTarget names the configuration built from flags.
const commandLineTarget = "command line"

// target is a configuration to check, with the file it came from.
type target struct {
	name   string
	path   string
	config sslconfig.Configuration
}

// loadTargets reads every --config file and adds the configuration given by
// flags, if any store flag is set.
func loadTargets(opts *options) ([]target, error) {
	var targets []target
	for _, path := range opts.configFiles {
		config, err := sslconfig.LoadConfiguration(path)
		if err != nil {
			return nil, err
		}
		config.Logger = logger
		targets = append(targets, target{name: path, path: path, config: config})
	}

	if opts.keystorePath != "" || opts.truststorePath != "" || isNativeType(opts.keystoreType) || isNativeType(opts.truststoreType) {
		targets = append(targets, target{
			name: commandLineTarget,
			config: sslconfig.Configuration{
				KeyStorePath:       opts.keystorePath,
				KeyStorePassword:   opts.keystorePass,
				KeyStoreType:       opts.keystoreType,
				TrustStorePath:     opts.truststorePath,
				TrustStorePassword: opts.truststorePass,
				TrustStoreType:     opts.truststoreType,
				Algorithm:          opts.algorithm,
				PKCS11Module:       opts.pkcs11Module,
				PKCS11TokenLabel:   opts.pkcs11TokenLabel,
				Logger:             logger,
			},
		})
	}

	if len(targets) == 0 {
		return nil, errors.New("nothing to check, use --config or --keystore/--truststore")
	}
	return targets, nil
}

func isNativeType(storeType string) bool {
	switch strings.ToUpper(storeType) {
	case strings.ToUpper(sslconfig.StoreTypeWindowsMy), strings.ToUpper(sslconfig.StoreTypeWindowsRoot), strings.ToUpper(sslconfig.StoreTypeKeychain):
		return true
	}
	return false
}

type checker struct {
	out     io.Writer
	verbose bool
	metrics *checkMetrics
}

func newChecker(out io.Writer, opts *options) *checker {
	return &checker{
		out:     out,
		verbose: opts.verbose,
		metrics: newCheckMetrics(opts.metricsTextfile),
	}
}

type result struct {
	target    target
	tlsConfig *tls.Config
	err       error
}

// checkAll checks targets in parallel and prints a report for each, in
// order. It returns an error if any target failed.
func (c *checker) checkAll(ctx context.Context, targets []target) error {
	results := make([]result, len(targets))

	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	for i, t := range targets {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = result{target: t, err: err}
				return nil
			}
			results[i] = c.check(t)
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	var contexts []*tls.Config
	for _, r := range results {
		if r.err != nil {
			failed++
		} else {
			contexts = append(contexts, r.tlsConfig)
		}
		c.report(r)
	}
	c.metrics.observeExpiry(contexts)

	if err := c.metrics.export(); err != nil {
		logger.Printf("error writing metrics: %s", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d configurations failed", failed, len(results))
	}
	return nil
}

func (c *checker) check(t target) result {
	start := time.Now()
	tlsConfig, err := t.config.TLSContext()
	c.metrics.observe(start, err)
	return result{target: t, tlsConfig: tlsConfig, err: err}
}

func (c *checker) report(r result) {
	if r.err != nil {
		fmt.Fprintf(c.out, "%s: FAILED\n  %s\n", r.target.name, r.err)
		return
	}

	fmt.Fprintf(c.out, "%s: OK\n", r.target.name)
	fmt.Fprintf(c.out, "  protocol: %s - %s\n", tls.VersionName(r.tlsConfig.MinVersion), tls.VersionName(r.tlsConfig.MaxVersion))
	for _, cert := range r.tlsConfig.Certificates {
		leaf := cert.Leaf
		if leaf == nil {
			continue
		}
		fmt.Fprintf(c.out, "  identity: %s (expires %s, chain of %d)\n",
			leaf.Subject, leaf.NotAfter.UTC().Format(time.RFC3339), len(cert.Certificate))
		if c.verbose {
			fmt.Fprintf(c.out, "%s\n", lib.EncodeX509ToJSON(leaf))
		}
	}

	if source, err := r.target.config.TrustStoreSource(); err == nil {
		fmt.Fprintf(c.out, "  trust: %s\n", source.Describe())
	}
}
