package domain

import (
	"errors"
	"fmt"
	"time"
)

// Role is the fixed set of roles a user can hold. Assigned at creation,
// mirrored as a realm role in the identity provider, immutable afterwards.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the core aggregate. ID is issued by the identity provider and
// doubles as the local primary key, so every persisted user has a remote
// identity under the same id.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Email     string    `json:"email" bson:"email"`
	FirstName string    `json:"first_name" bson:"first_name"`
	LastName  string    `json:"last_name" bson:"last_name"`
	Role      Role      `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Principal is the authenticated caller, passed explicitly into every service
// operation. Handlers build it from token claims; the core never reads
// ambient state.
type Principal struct {
	ID       string
	Username string
	Role     Role
}

var ErrUserNotFound = errors.New("user not found")
var ErrAlreadyExists = errors.New("resource already exists")
var ErrIdentityProvider = errors.New("identity provider error")

// AlreadyExistsError reports a username or email collision, carrying the
// offending field so the transport layer can name it.
type AlreadyExistsError struct {
	Field string // "username" or "email"
	Value string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Field, e.Value)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// IdentityProviderError wraps a failed call against the identity provider.
// Op names the remote operation ("create user", "assign role", ...).
type IdentityProviderError struct {
	Op  string
	Err error
}

func (e *IdentityProviderError) Error() string {
	if e.Err == nil {
		return "identity provider: " + e.Op + " failed"
	}
	return fmt.Sprintf("identity provider: %s failed: %v", e.Op, e.Err)
}

func (e *IdentityProviderError) Unwrap() error { return e.Err }

func (e *IdentityProviderError) Is(target error) bool {
	return target == ErrIdentityProvider
}
