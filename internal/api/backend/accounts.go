package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopassist/shopchat/internal/core/domain"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"

	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 24 * time.Hour
)

// Claims is the JWT payload issued for both token types.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type account struct {
	identity     domain.Identity
	passwordHash []byte
}

// Tokens is an issued access/refresh pair.
type Tokens struct {
	Access  string
	Refresh string
}

// Accounts is an in-memory user registry that issues HS256 tokens.
type Accounts struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*account
	byEmail map[string]int64
}

func NewAccounts(jwtSecret string) *Accounts {
	return &Accounts{
		secret:     []byte(jwtSecret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
		nextID:     1,
		byID:       make(map[int64]*account),
		byEmail:    make(map[string]int64),
	}
}

// Register creates an account. Input must already be structurally valid.
func (a *Accounts) Register(_ context.Context, in domain.RegisterInput) (*domain.Identity, Tokens, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Tokens{}, err
	}

	email := normalizeEmail(in.Email)

	a.mu.Lock()
	if _, taken := a.byEmail[email]; taken {
		a.mu.Unlock()
		return nil, Tokens{}, fieldError("email", "user with this email already exists.")
	}
	if a.usernameTakenLocked(in.Username, 0) {
		a.mu.Unlock()
		return nil, Tokens{}, fieldError("username", "A user with that username already exists.")
	}
	id := a.nextID
	a.nextID++
	acc := &account{
		identity: domain.Identity{
			ID:          id,
			Username:    in.Username,
			Email:       in.Email,
			PhoneNumber: in.PhoneNumber,
			DateOfBirth: in.DateOfBirth,
			CreatedAt:   a.now().UTC(),
		},
		passwordHash: hash,
	}
	a.byID[id] = acc
	a.byEmail[email] = id
	identity := acc.identity
	a.mu.Unlock()

	tokens, err := a.issue(id)
	if err != nil {
		return nil, Tokens{}, err
	}
	return &identity, tokens, nil
}

func (a *Accounts) Login(_ context.Context, email, password string) (*domain.Identity, Tokens, error) {
	a.mu.RLock()
	id, ok := a.byEmail[normalizeEmail(email)]
	var acc account
	if ok {
		acc = *a.byID[id]
	}
	a.mu.RUnlock()

	if !ok {
		return nil, Tokens{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return nil, Tokens{}, ErrInvalidCredentials
	}

	tokens, err := a.issue(id)
	if err != nil {
		return nil, Tokens{}, err
	}
	identity := acc.identity
	return &identity, tokens, nil
}

func (a *Accounts) Profile(_ context.Context, userID int64) (*domain.Identity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acc, ok := a.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	identity := acc.identity
	return &identity, nil
}

func (a *Accounts) UpdateProfile(_ context.Context, userID int64, in domain.ProfileUpdate) (*domain.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	email := normalizeEmail(in.Email)
	if owner, taken := a.byEmail[email]; taken && owner != userID {
		return nil, fieldError("email", "user with this email already exists.")
	}
	if a.usernameTakenLocked(in.Username, userID) {
		return nil, fieldError("username", "A user with that username already exists.")
	}

	delete(a.byEmail, normalizeEmail(acc.identity.Email))
	a.byEmail[email] = userID

	acc.identity.Username = in.Username
	acc.identity.Email = in.Email
	acc.identity.PhoneNumber = in.PhoneNumber
	acc.identity.DateOfBirth = in.DateOfBirth

	identity := acc.identity
	return &identity, nil
}

// ParseToken validates signature, expiry and token type.
func (a *Accounts) ParseToken(raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tkn.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (a *Accounts) issue(userID int64) (Tokens, error) {
	access, err := a.sign(userID, TokenAccess, a.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := a.sign(userID, TokenRefresh, a.refreshTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

func (a *Accounts) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.secret)
}

func (a *Accounts) usernameTakenLocked(username string, except int64) bool {
	for id, acc := range a.byID {
		if id != except && strings.EqualFold(acc.identity.Username, username) {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
