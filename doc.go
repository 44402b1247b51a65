// Command sslconfig checks key store and trust store configurations. It
// builds the TLS context for every configuration given on the command line
// or in YAML files, reports the identities, trust anchors and protocol it
// found, and fails if any of them cannot be built. In watch mode it keeps
// running and re-checks whenever a store, password file or configuration
// file changes, or when it receives SIGHUP or SIGUSR1.
package main
