// Package sentinel holds the store-level facts that services translate into
// journey outcomes or domain errors. Stores return them, possibly wrapped.
package sentinel

import "errors"

var (
	// ErrNotFound: no session, correlation record, credential or pending
	// response under the key. Also returned for records past their TTL.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a create hit an existing key.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable: the backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
