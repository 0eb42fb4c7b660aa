package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/metrics"
	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
	"github.com/shopassist/shopchat/internal/pkg/validation"
)

const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgProfileFailed  = "Failed to update profile"
	msgStoreFailed    = "Could not save credentials"
)

// AuthService owns the authenticated identity and the credential store.
// The store is never touched outside of its methods.
type AuthService struct {
	api      ports.IdentityAPI
	store    ports.CredentialStore
	validate *validation.Validator
	log      zerolog.Logger

	mu        sync.RWMutex
	state     domain.AuthState
	identity  *domain.Identity
	lastError string
	seq       uint64

	observers observers[domain.AuthSnapshot]
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(api ports.IdentityAPI, store ports.CredentialStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		api:      api,
		store:    store,
		validate: validation.New(),
		log:      log.With().Str("component", "auth").Logger(),
		state:    domain.AuthUnauthenticated,
	}
}

// Hydrate rebuilds the authenticated state from the stored access token.
// It never retries: one failed verification purges the stored credential.
// An unreadable store is purged as well so the next start begins clean.
func (s *AuthService) Hydrate(ctx context.Context) domain.AuthState {
	access, err := s.store.Get(ctx, domain.AccessTokenKey)
	if err != nil {
		s.log.Error().Err(err).Msg("credential store unreadable")
		s.purge(ctx)
		s.transition(domain.AuthError, nil, "Could not read stored credentials")
		metrics.AuthOperationsTotal.WithLabelValues("hydrate", string(domain.AuthError)).Inc()
		return domain.AuthError
	}
	if access == "" {
		s.transition(domain.AuthUnauthenticated, nil, "")
		metrics.AuthOperationsTotal.WithLabelValues("hydrate", string(domain.AuthUnauthenticated)).Inc()
		return domain.AuthUnauthenticated
	}

	s.transition(domain.AuthHydrating, nil, "")

	identity, err := s.api.Profile(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredential) {
			s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Msg("hydration failed")
		} else {
			s.log.Info().Msg("stored credential rejected")
		}
		s.purge(ctx)
		s.transition(domain.AuthUnauthenticated, nil, "")
		metrics.AuthOperationsTotal.WithLabelValues("hydrate", string(domain.AuthUnauthenticated)).Inc()
		return domain.AuthUnauthenticated
	}

	s.transition(domain.AuthAuthenticated, identity, "")
	s.log.Info().Str("username", identity.Username).Msg("session hydrated")
	metrics.AuthOperationsTotal.WithLabelValues("hydrate", string(domain.AuthAuthenticated)).Inc()
	return domain.AuthAuthenticated
}

// Login exchanges email and password for a credential. Concurrent calls are
// not deduplicated; the last one to complete wins.
func (s *AuthService) Login(ctx context.Context, email, password string) domain.AuthResult {
	payload, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Msg("login failed")
		res := domain.AuthResult{Message: failureMessage(err, msgLoginFailed)}
		s.fail("login", res.Message)
		return res
	}
	return s.establish(ctx, "login", payload, msgLoginFailed)
}

// Register creates an account. Field validation runs locally first; server
// side field errors are returned verbatim.
func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) domain.AuthResult {
	if err := s.validate.Struct(in); err != nil {
		res := domain.AuthResult{Message: msgRegisterFailed, FieldErrors: validation.Fields(err)}
		s.fail("register", res.Message)
		return res
	}

	payload, err := s.api.Register(ctx, in)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Msg("registration failed")
		res := domain.AuthResult{
			Message:     failureMessage(err, msgRegisterFailed),
			FieldErrors: fieldErrors(err),
		}
		s.fail("register", res.Message)
		return res
	}
	return s.establish(ctx, "register", payload, msgRegisterFailed)
}

// UpdateProfile replaces the identity with the server's updated record.
func (s *AuthService) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) domain.AuthResult {
	if snap := s.Snapshot(); snap.State != domain.AuthAuthenticated {
		return domain.AuthResult{Message: "You must be logged in to update your profile"}
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.AuthResult{Message: msgProfileFailed, FieldErrors: validation.Fields(err)}
	}

	identity, err := s.api.UpdateProfile(ctx, in)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", metrics.KindLabel(err)).Msg("profile update failed")
		res := domain.AuthResult{
			Message:     failureMessage(err, msgProfileFailed),
			FieldErrors: fieldErrors(err),
		}
		s.fail("update_profile", res.Message)
		return res
	}

	s.mu.Lock()
	// A logout that completed while the request was in flight wins.
	if s.state != domain.AuthAuthenticated {
		s.mu.Unlock()
		return domain.AuthResult{Message: msgProfileFailed}
	}
	s.identity = identity
	s.lastError = ""
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)

	metrics.AuthOperationsTotal.WithLabelValues("update_profile", "success").Inc()
	return domain.AuthResult{Success: true}
}

// Logout purges the stored credential and clears the identity. Store errors
// are logged, never returned.
func (s *AuthService) Logout(ctx context.Context) {
	s.purge(ctx)
	s.transition(domain.AuthUnauthenticated, nil, "")
	metrics.AuthOperationsTotal.WithLabelValues("logout", "success").Inc()
	s.log.Info().Msg("logged out")
}

// AccessToken returns the stored access token, or "" when unauthenticated.
// The transport uses it as its bearer source.
func (s *AuthService) AccessToken(ctx context.Context) (string, error) {
	return s.store.Get(ctx, domain.AccessTokenKey)
}

// TokenExpiry reads the exp claim of the stored access token without
// verifying its signature. Display only.
func (s *AuthService) TokenExpiry(ctx context.Context) (time.Time, bool) {
	access, err := s.store.Get(ctx, domain.AccessTokenKey)
	if err != nil || access == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Snapshot returns a copy of the observable state.
func (s *AuthService) Snapshot() domain.AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function unregisters it.
func (s *AuthService) Subscribe(fn func(domain.AuthSnapshot)) (unsubscribe func()) {
	return s.observers.add(fn)
}

// establish persists both tokens together and only then adopts the identity.
func (s *AuthService) establish(ctx context.Context, op string, payload *ports.AuthPayload, fallback string) domain.AuthResult {
	err := s.store.SetMany(ctx, map[string]string{
		domain.AccessTokenKey:  payload.Access,
		domain.RefreshTokenKey: payload.Refresh,
	})
	if err != nil {
		s.log.Error().Err(err).Str("operation", op).Msg("failed to persist credential")
		res := domain.AuthResult{Message: msgStoreFailed}
		s.fail(op, res.Message)
		return res
	}

	user := payload.User
	s.transition(domain.AuthAuthenticated, &user, "")
	metrics.AuthOperationsTotal.WithLabelValues(op, "success").Inc()
	s.log.Info().Str("operation", op).Str("username", user.Username).Msg("authenticated")
	return domain.AuthResult{Success: true}
}

func (s *AuthService) purge(ctx context.Context) {
	if err := s.store.Delete(ctx, domain.AccessTokenKey, domain.RefreshTokenKey); err != nil {
		s.log.Warn().Err(err).Msg("failed to purge stored credential")
	}
}

// fail records a failed operation without touching state or identity.
func (s *AuthService) fail(op, message string) {
	metrics.AuthOperationsTotal.WithLabelValues(op, "failure").Inc()
	s.mu.Lock()
	s.lastError = message
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
}

func (s *AuthService) transition(state domain.AuthState, identity *domain.Identity, lastError string) {
	s.mu.Lock()
	s.state = state
	s.identity = identity
	s.lastError = lastError
	snap := s.commitLocked()
	s.mu.Unlock()
	s.observers.notify(snap.Seq, snap)
}

// commitLocked records a state change and returns the snapshot to publish.
func (s *AuthService) commitLocked() domain.AuthSnapshot {
	s.seq++
	return s.snapshotLocked()
}

func (s *AuthService) snapshotLocked() domain.AuthSnapshot {
	snap := domain.AuthSnapshot{State: s.state, LastError: s.lastError, Seq: s.seq}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// failureMessage extracts the server's summary message, falling back when
// the payload carried none.
func failureMessage(err error, fallback string) string {
	if re, ok := domain.AsRemote(err); ok && re.Message != "" && !errors.Is(err, domain.ErrNetworkFailure) {
		return re.Message
	}
	return fallback
}

func fieldErrors(err error) domain.FieldErrors {
	if re, ok := domain.AsRemote(err); ok && len(re.Fields) > 0 {
		return re.Fields
	}
	return nil
}
