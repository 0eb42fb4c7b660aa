package ports

import (
	"context"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// AuthPayload is the success body of login and registration.
type AuthPayload struct {
	User    domain.Identity
	Access  string
	Refresh string
}

// IdentityAPI is the remote authentication collaborator.
type IdentityAPI interface {
	Login(ctx context.Context, email, password string) (*AuthPayload, error)
	Register(ctx context.Context, in domain.RegisterInput) (*AuthPayload, error)
	// Profile verifies the bearer credential and returns its identity.
	Profile(ctx context.Context) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (*domain.Identity, error)
}
