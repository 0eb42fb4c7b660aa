package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopassist/shopchat/internal/api/backend"
	"github.com/shopassist/shopchat/internal/core/domain"
)

// AccountService is the account registry the auth endpoints delegate to.
type AccountService interface {
	Register(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error)
	Login(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error)
	Profile(ctx context.Context, userID int64) (*domain.Identity, error)
	UpdateProfile(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.Identity, error)
}

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User    *domain.Identity `json:"user"`
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
	Message string           `json:"message,omitempty"`
}

// Register creates a new account and returns it with a fresh token pair.
//
// @Summary      Register a new account
// @Tags         authentication
// @Accept       json
// @Produce      json
// @Param        body  body      domain.RegisterInput  true  "Account fields"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string][]string
// @Failure      500   {object}  map[string]string
// @Router       /authentication/register/ [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req domain.RegisterInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON parse error")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, tokens, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{
		User:    user,
		Access:  tokens.Access,
		Refresh: tokens.Refresh,
		Message: "User registered successfully",
	})
}

// Login authenticates by email and password.
//
// @Summary      Login
// @Tags         authentication
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string][]string
// @Failure      401   {object}  map[string]string
// @Router       /authentication/login/ [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON parse error")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, tokens, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{User: user, Access: tokens.Access, Refresh: tokens.Refresh})
}

// Profile returns the caller's account.
//
// @Summary      Get profile
// @Tags         authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Identity
// @Failure      401  {object}  map[string]string
// @Router       /authentication/profile/ [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile replaces the caller's editable account fields.
//
// @Summary      Update profile
// @Tags         authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      domain.ProfileUpdate  true  "Updated fields"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  map[string][]string
// @Failure      401   {object}  map[string]string
// @Router       /authentication/profile/ [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req domain.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON parse error")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.accounts.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
