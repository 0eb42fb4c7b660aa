package ports

import (
	"context"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// AuthService is the credential session manager.
type AuthService interface {
	Hydrate(ctx context.Context) domain.AuthState
	Login(ctx context.Context, email, password string) domain.AuthResult
	Register(ctx context.Context, in domain.RegisterInput) domain.AuthResult
	UpdateProfile(ctx context.Context, in domain.ProfileUpdate) domain.AuthResult
	Logout(ctx context.Context)
	Snapshot() domain.AuthSnapshot
	Subscribe(fn func(domain.AuthSnapshot)) (unsubscribe func())
}
