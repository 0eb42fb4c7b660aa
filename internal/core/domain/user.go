package domain

import "time"

// AuthState is the lifecycle state of the credential session.
type AuthState string

const (
	AuthUnauthenticated AuthState = "unauthenticated"
	AuthHydrating       AuthState = "hydrating"
	AuthAuthenticated   AuthState = "authenticated"
	// AuthError means the credential store itself could not be read; the
	// remote identity endpoint was never consulted.
	AuthError AuthState = "error"
)

// Credential keys in the durable key-value store.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// Identity is the server-issued user record.
type Identity struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
}

// Credential is the opaque token pair issued on login or registration.
// Both tokens are always persisted together.
type Credential struct {
	Access  string
	Refresh string
}

// Empty reports whether the credential carries no access token.
func (c Credential) Empty() bool { return c.Access == "" }

// RegisterInput carries the account fields of the registration form.
type RegisterInput struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// FieldErrors maps a form field name to its validation messages.
type FieldErrors map[string][]string

// AuthResult is the outcome of login, register and profile update. It is
// never accompanied by an error: every failure is described here.
type AuthResult struct {
	Success     bool
	Message     string
	FieldErrors FieldErrors
}

// AuthSnapshot is a copy of the credential session's observable state.
type AuthSnapshot struct {
	State     AuthState
	Identity  *Identity
	LastError string
	Seq       uint64 // increases with every state change
}
