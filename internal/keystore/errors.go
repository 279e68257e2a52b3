package keystore

// malformedKeyError rejects tokens that fail the format check before any
// record is consulted, for 400 mapping.
type malformedKeyError struct{}

func (malformedKeyError) Error() string { return "malformed api key" }

// ErrMalformedKey constructs a malformedKeyError.
func ErrMalformedKey() error { return malformedKeyError{} }

// IsMalformedKey reports whether err indicates a token that is not even
// shaped like an api key (return 400, not 401).
func IsMalformedKey(err error) bool {
	_, ok := err.(malformedKeyError)
	return ok
}

// unknownKeyError signals a well-formed secret with no matching record.
type unknownKeyError struct{}

func (unknownKeyError) Error() string { return "unknown api key" }

func ErrUnknownKey() error { return unknownKeyError{} }

// noKeysError signals an empty store: authentication is enabled but no keys
// are configured, so every request is rejected.
type noKeysError struct{}

func (noKeysError) Error() string { return "no api keys configured" }

func ErrNoKeys() error { return noKeysError{} }

// IsNoKeys reports whether err indicates a fail-closed empty store, so the
// HTTP layer can surface a misconfiguration message instead of a generic 401.
func IsNoKeys(err error) bool {
	_, ok := err.(noKeysError)
	return ok
}

// revokedKeyError and expiredKeyError carry the key id for logs and metrics;
// on the wire both collapse into a generic 401.
type revokedKeyError struct{ id string }

func (e revokedKeyError) Error() string { return "api key revoked: " + e.id }

func ErrKeyRevoked(id string) error { return revokedKeyError{id: id} }

func IsKeyRevoked(err error) bool {
	_, ok := err.(revokedKeyError)
	return ok
}

type expiredKeyError struct{ id string }

func (e expiredKeyError) Error() string { return "api key expired: " + e.id }

func ErrKeyExpired(id string) error { return expiredKeyError{id: id} }

func IsKeyExpired(err error) bool {
	_, ok := err.(expiredKeyError)
	return ok
}

// IsUnauthorized groups every rejection that maps to 401: unknown secret,
// empty store, revoked or expired key.
func IsUnauthorized(err error) bool {
	switch err.(type) {
	case unknownKeyError, noKeysError, revokedKeyError, expiredKeyError:
		return true
	}
	return false
}

// notFoundError signals a management operation on a key id that does not exist.
type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "key not found: " + e.id }

func ErrNotFound(id string) error { return notFoundError{id: id} }

// IsNotFound reports whether the error indicates a missing key id.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// duplicateKeyError signals an Issue with an id that is already present.
type duplicateKeyError struct{ id string }

func (e duplicateKeyError) Error() string { return "key already exists: " + e.id }

func ErrDuplicateKey(id string) error { return duplicateKeyError{id: id} }

func IsDuplicateKey(err error) bool {
	_, ok := err.(duplicateKeyError)
	return ok
}

// invalidKeyIDError rejects identifiers outside [A-Za-z0-9_-]{1,64}.
type invalidKeyIDError struct{ id string }

func (e invalidKeyIDError) Error() string { return "invalid key id: " + e.id }

func ErrInvalidKeyID(id string) error { return invalidKeyIDError{id: id} }

func IsInvalidKeyID(err error) bool {
	_, ok := err.(invalidKeyIDError)
	return ok
}
