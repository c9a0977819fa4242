// Package reqid generates the correlation ID that internal/transport
// stores on each request's context.
package reqid

import "github.com/google/uuid"

// New returns a fresh request-scoped correlation ID.
func New() string {
	return uuid.New().String()
}
