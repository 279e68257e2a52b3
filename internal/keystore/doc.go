// Package keystore holds the API keys the gateway authenticates against.
// Keys live in a flat file with one entry per line; only salted SHA-256
// digests of the secrets are stored. It is structured into small files by
// concern:
//
//   - store.go: Store type, constant-time Authenticate, Issue/Revoke/Remove/Rotate.
//   - record.go: record and Info types, secret generation, format checks.
//   - file.go: line grammar, tolerant parser, atomic writes.
//   - watch.go: fsnotify-driven hot reload of the key file.
//   - errors.go: error types and predicates (IsUnauthorized, IsMalformedKey, ...).
//
// The gateway's auth middleware calls Authenticate on every request; keyctl
// drives the management operations out of band against the same file.
package keystore
