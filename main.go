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
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/ghostunnel/sslconfig/sslconfig"
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/joho/godotenv"
)

// Initialized via -ldflags
var version = "master"

// exitFunc can be overridden in tests.
var exitFunc = os.Exit

// Global logger instance
var logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

// options holds the parsed command line.
type options struct {
	configFiles []string
	envFiles    []string

	keystorePath     string
	keystorePass     string
	keystoreType     string
	truststorePath   string
	truststorePass   string
	truststoreType   string
	algorithm        string
	pkcs11Module     string
	pkcs11TokenLabel string

	useSyslog       bool
	metricsTextfile string
	verbose         bool
}

type application struct {
	app   *kingpin.Application
	check *kingpin.CmdClause
	watch *kingpin.CmdClause
	opts  *options
}

func newApplication() *application {
	opts := &options{}
	app := kingpin.New("sslconfig", "Check key store and trust store configurations for TLS.")
	app.Version(version)
	app.Terminate(nil)
	app.Validate(func(*kingpin.Application) error { return validateFlags(opts) })

	app.Flag("config", "YAML configuration file (can be repeated).").PlaceHolder("PATH").ExistingFilesVar(&opts.configFiles)
	app.Flag("env-file", "Load environment variables from a .env file before resolving env: passwords (can be repeated).").PlaceHolder("PATH").ExistingFilesVar(&opts.envFiles)

	app.Flag("keystore", "Path to the key store. Not used for Windows-MY and KeychainStore.").PlaceHolder("PATH").StringVar(&opts.keystorePath)
	app.Flag("storepass", "Key store password, as pass:PASS, env:VAR, file:PATH or a literal.").PlaceHolder("PASS").StringVar(&opts.keystorePass)
	app.Flag("keystore-type", "Key store type (PKCS12, JKS, JCEKS, PEM, PKCS11, Windows-MY, KeychainStore).").Default(sslconfig.DefaultStoreType).StringVar(&opts.keystoreType)
	app.Flag("truststore", "Path to the trust store. Not used for Windows-ROOT.").PlaceHolder("PATH").StringVar(&opts.truststorePath)
	app.Flag("trustpass", "Trust store password, as pass:PASS, env:VAR, file:PATH or a literal.").PlaceHolder("PASS").StringVar(&opts.truststorePass)
	app.Flag("truststore-type", "Trust store type (PKCS12, JKS, JCEKS, PEM, DER, Windows-ROOT).").Default(sslconfig.DefaultStoreType).StringVar(&opts.truststoreType)
	app.Flag("algorithm", "Protocol (TLS, TLSv1.3, TLSv1.2, TLSv1.1, TLSv1).").Default(sslconfig.DefaultAlgorithm).StringVar(&opts.algorithm)
	app.Flag("pkcs11-module", "Path to PKCS11 module (SO) file, for key store type PKCS11.").PlaceHolder("PATH").StringVar(&opts.pkcs11Module)
	app.Flag("pkcs11-token-label", "Token label for slot/key in PKCS11 module, for key store type PKCS11.").PlaceHolder("LABEL").StringVar(&opts.pkcs11TokenLabel)

	app.Flag("syslog", "Send logs to syslog instead of stderr.").BoolVar(&opts.useSyslog)
	app.Flag("metrics-textfile", "Write metrics in Prometheus text format to the given file after every check.").PlaceHolder("PATH").StringVar(&opts.metricsTextfile)
	app.Flag("verbose", "Print every identity certificate as JSON.").Short('v').BoolVar(&opts.verbose)

	return &application{
		app:   app,
		check: app.Command("check", "Build the TLS context for every configuration and report the result.").Default(),
		watch: app.Command("watch", "Check, then re-check whenever a store, password file or configuration file changes."),
		opts:  opts,
	}
}

// Validate flags
func validateFlags(opts *options) error {
	switch {
	case strings.EqualFold(opts.keystoreType, sslconfig.StoreTypePKCS11):
		if !sslconfig.SupportsPKCS11() {
			return errors.New("--keystore-type PKCS11 is not supported by this build (requires cgo)")
		}
	case strings.EqualFold(opts.keystoreType, sslconfig.StoreTypeWindowsMy), strings.EqualFold(opts.keystoreType, sslconfig.StoreTypeKeychain):
		if !sslconfig.SupportsNativeStore() {
			return fmt.Errorf("--keystore-type %s is not supported on this platform", opts.keystoreType)
		}
	default:
		if opts.pkcs11Module != "" || opts.pkcs11TokenLabel != "" {
			return errors.New("--pkcs11-module and --pkcs11-token-label require --keystore-type PKCS11")
		}
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		exitFunc(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cli := newApplication()
	command, err := cli.app.Parse(args)
	if err != nil {
		return fmt.Errorf("%s, try --help", err)
	}
	opts := cli.opts

	if err := initLogger(opts.useSyslog); err != nil {
		return err
	}

	if len(opts.envFiles) > 0 {
		if err := godotenv.Load(opts.envFiles...); err != nil {
			return fmt.Errorf("unable to load env file: %w", err)
		}
	}

	checker := newChecker(stdout, opts)

	switch command {
	case cli.check.FullCommand():
		targets, err := loadTargets(opts)
		if err != nil {
			return err
		}
		return checker.checkAll(context.Background(), targets)

	case cli.watch.FullCommand():
		return watch(context.Background(), checker, opts)
	}

	return errors.New("unknown command")
}

func initLogger(syslog bool) error {
	if syslog {
		syslogWriter, err := gsyslog.NewLogger(gsyslog.LOG_NOTICE, "DAEMON", "sslconfig")
		if err != nil {
			return fmt.Errorf("unable to set up syslog: %w", err)
		}
		logger = log.New(syslogWriter, "", log.LstdFlags|log.Lmicroseconds)
	}

	// Set log prefix to process ID to tell concurrent runs apart
	logger.SetPrefix(fmt.Sprintf("[%5d] ", os.Getpid()))
	return nil
}
