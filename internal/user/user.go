// Package user defines the user identity used throughout the application,
// particularly for session validation and owner-scoped bookmark storage.
package user

// User represents an authenticated end user.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string

	// Email is the address reported by the identity provider.
	Email string

	// Subject is the identity provider's stable subject identifier.
	Subject string
}
