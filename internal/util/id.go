package util

import "github.com/google/uuid"

// NewUpdateID returns the correlation ID attached to one processed update's
// log lines.
func NewUpdateID() string {
	return uuid.NewString()
}
