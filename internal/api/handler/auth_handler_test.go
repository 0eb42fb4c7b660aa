package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shopassist/shopchat/internal/api/backend"
	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/pkg/validation"
)

type stubAccounts struct {
	registerFn func(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error)
	profileFn  func(ctx context.Context, userID int64) (*domain.Identity, error)
	updateFn   func(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.Identity, error)
}

func (s *stubAccounts) Register(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccounts) Login(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAccounts) Profile(ctx context.Context, userID int64) (*domain.Identity, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubAccounts) UpdateProfile(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.Identity, error) {
	return s.updateFn(ctx, userID, in)
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAccounts{
		registerFn: func(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error) {
			if in.Username != "alice" || in.Email != "a@example.com" || in.PhoneNumber != "+15550100" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Identity{ID: 7, Username: in.Username, Email: in.Email}, backend.Tokens{Access: "acc", Refresh: "ref"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/api/authentication/register/",
		`{"username":"alice","email":"a@example.com","password":"correct-horse","password_confirm":"correct-horse","phone_number":"+15550100"}`)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access"] != "acc" || resp["refresh"] != "ref" {
		t.Fatalf("missing tokens: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["id"] != float64(7) {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	stub := &stubAccounts{
		registerFn: func(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error) {
			t.Fatalf("should not be called")
			return nil, backend.Tokens{}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/api/authentication/register/",
		`{"username":"alice","email":"not-an-email","password":"correct-horse","password_confirm":"different"}`)

	err := handler.Register(c)
	fields := validation.Fields(err)
	if len(fields["email"]) != 1 || len(fields["password_confirm"]) != 1 {
		t.Fatalf("unexpected field errors: %v", fields)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAccounts{
		registerFn: func(ctx context.Context, in domain.RegisterInput) (*domain.Identity, backend.Tokens, error) {
			t.Fatalf("should not be called")
			return nil, backend.Tokens{}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/api/authentication/register/", "not-json")

	if code := httpCode(t, handler.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAccounts{
		loginFn: func(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.Identity{ID: 1, Username: "alice"}, backend.Tokens{Access: "token123", Refresh: "r"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/api/authentication/login/", `{"email":"alice@example.com","password":"secret"}`)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access"] != "token123" {
		t.Fatalf("expected access token, got %v", resp["access"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAccounts{
		loginFn: func(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error) {
			return nil, backend.Tokens{}, backend.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/api/authentication/login/", `{"email":"alice@example.com","password":"bad"}`)

	if err := handler.Login(c); !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAccounts{
		loginFn: func(ctx context.Context, email, password string) (*domain.Identity, backend.Tokens, error) {
			t.Fatalf("should not be called")
			return nil, backend.Tokens{}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodPost, "/api/authentication/login/", `{"email":"alice@example.com"}`)

	fields := validation.Fields(handler.Login(c))
	if len(fields["password"]) != 1 {
		t.Fatalf("expected password field error, got %v", fields)
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	stub := &stubAccounts{
		profileFn: func(ctx context.Context, userID int64) (*domain.Identity, error) {
			return &domain.Identity{ID: userID, Username: "alice"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newJSONContext(http.MethodGet, "/api/authentication/profile/", "")
	if code := httpCode(t, handler.Profile(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", code)
	}

	c, rec := newJSONContext(http.MethodGet, "/api/authentication/profile/", "")
	c.Set("user_id", int64(4))
	if err := handler.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var identity domain.Identity
	if err := json.Unmarshal(rec.Body.Bytes(), &identity); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if identity.ID != 4 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	stub := &stubAccounts{
		updateFn: func(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.Identity, error) {
			if userID != 4 || in.DateOfBirth != "1990-02-03" {
				t.Fatalf("unexpected update: %d %+v", userID, in)
			}
			return &domain.Identity{ID: userID, Username: in.Username, Email: in.Email, DateOfBirth: in.DateOfBirth}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPut, "/api/authentication/profile/",
		`{"username":"alice","email":"a@example.com","date_of_birth":"1990-02-03"}`)
	c.Set("user_id", int64(4))
	if err := handler.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newJSONContext(http.MethodPut, "/api/authentication/profile/",
		`{"username":"alice","email":"a@example.com","date_of_birth":"03/02/1990"}`)
	c.Set("user_id", int64(4))
	fields := validation.Fields(handler.UpdateProfile(c))
	if len(fields["date_of_birth"]) != 1 {
		t.Fatalf("expected date_of_birth error, got %v", fields)
	}
}
