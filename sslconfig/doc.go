// Package sslconfig builds TLS configurations from declarative key store and
// trust store settings. It reads PKCS#12, JKS, JCEKS, PEM and DER stores,
// keys held on PKCS#11 tokens, and the OS personal and root certificate
// stores. Store passwords are secret descriptors that name a literal value,
// an environment variable or a file.
package sslconfig
