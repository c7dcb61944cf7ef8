// Package storage provides the key→string persistence port used by the
// history store, mirroring a quota-limited browser storage: synchronous
// get/set/remove with writes that may be rejected when the quota is full.
package storage

import "errors"

// ErrQuotaExceeded is returned by Set when the value does not fit within
// the storage quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KeyValue defines the interface for history persistence.
type KeyValue interface {
	// Get returns the value stored under key and whether the key exists.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
