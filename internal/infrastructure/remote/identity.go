package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
)

var _ ports.IdentityAPI = (*Client)(nil)

// Login posts credentials to /authentication/login/.
func (c *Client) Login(ctx context.Context, email, password string) (*ports.AuthPayload, error) {
	var out authResponse
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/authentication/login/",
		body:   loginRequest{Email: email, Password: password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return authPayload("login", out)
}

// Register posts account fields to /authentication/register/.
func (c *Client) Register(ctx context.Context, in domain.RegisterInput) (*ports.AuthPayload, error) {
	var out authResponse
	err := c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/authentication/register/",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return authPayload("register", out)
}

// Profile verifies the bearer credential.
func (c *Client) Profile(ctx context.Context) (*domain.Identity, error) {
	var out domain.Identity
	err := c.do(ctx, request{
		op:     "profile",
		method: http.MethodGet,
		path:   "/authentication/profile/",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (*domain.Identity, error) {
	var out domain.Identity
	err := c.do(ctx, request{
		op:     "update_profile",
		method: http.MethodPut,
		path:   "/authentication/profile/",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// authPayload insists on a complete token pair so that a partial credential
// can never reach the store.
func authPayload(op string, out authResponse) (*ports.AuthPayload, error) {
	if out.User == nil || out.Access == "" || out.Refresh == "" {
		return nil, malformed(op, http.StatusOK, errors.New("missing user or token"))
	}
	return &ports.AuthPayload{User: *out.User, Access: out.Access, Refresh: out.Refresh}, nil
}
