// Package uuid generates time-ordered identifiers for primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. Version 7 IDs embed a millisecond
// timestamp in the high bits, so rows sort roughly by creation time.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is exhausted.
		return googleuuid.NewString()
	}
	return id.String()
}
