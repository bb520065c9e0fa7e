package ports

import (
	"context"

	"github.com/clubhub/user-service/internal/core/domain"
)

// NewIdentity carries the data needed to provision a remote identity.
type NewIdentity struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
}

// IdentityUpdate applies partial-update semantics: only non-nil fields are
// pushed to the remote record.
type IdentityUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// IdentityProvider wraps the external identity system (Keycloak). It is the
// system of record for credentials and role claims; the local store never
// holds a password.
type IdentityProvider interface {
	// CreateIdentity provisions a remote identity with a freshly generated
	// temporary secret and assigns the requested role. It returns the
	// provider-issued id and the generated secret. On failure no local state
	// has been modified.
	CreateIdentity(ctx context.Context, in NewIdentity) (id string, secret string, err error)
	// UpdateIdentity applies the non-nil fields of in to the remote record.
	UpdateIdentity(ctx context.Context, id string, in IdentityUpdate) error
	// ResetCredential sets a new permanent (non-temporary) secret.
	ResetCredential(ctx context.Context, id string, newSecret string) error
	// DeleteIdentity removes the remote identity. The returned error exists
	// for logging and metrics only; callers swallow it, because the one place
	// it runs is compensation, where a secondary failure must not mask the
	// primary one.
	DeleteIdentity(ctx context.Context, id string) error
}
