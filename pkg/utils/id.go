package utils

import "github.com/google/uuid"

// NewID returns a UUIDv7. v7 ids sort by creation time and are monotonic within
// the process, so ordering by id breaks created_at ties in insertion order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
