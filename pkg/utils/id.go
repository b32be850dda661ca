package utils

import (
	"github.com/google/uuid"
)

// NewStreamID returns a fresh identifier for a catalog entry
func NewStreamID() string {
	return uuid.NewString()
}

// GenerateRequestID returns a request correlation ID
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}
