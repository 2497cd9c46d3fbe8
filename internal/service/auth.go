package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

var (
	// ErrInvalidCredentials is returned for unknown identities, wrong
	// passwords, and deactivated accounts alike. The three cases are
	// deliberately indistinguishable so login failures never leak which
	// identities exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a bearer token does not resolve to a
	// live session: absent, unparseable, unknown, revoked, expired, or the
	// owning account is inactive.
	ErrUnauthorized = errors.New("unauthorized")
)

// DefaultSessionTTL is how long a session lives after login unless
// configured otherwise.
const DefaultSessionTTL = 24 * time.Hour

// AuthService authenticates users and resolves bearer tokens to sessions.
// Tokens are HS256 JWTs; a hash of each issued token is additionally stored
// as a session row so logout revokes the token server-side before its JWT
// expiry.
type AuthService struct {
	store      *store.Store
	audit      *audit.Recorder
	jwtSecret  []byte
	sessionTTL time.Duration
}

// NewAuthService creates an AuthService. ttl <= 0 selects DefaultSessionTTL.
func NewAuthService(st *store.Store, rec *audit.Recorder, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		store:      st,
		audit:      rec,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: ttl,
	}
}

// SessionTTL returns the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

type sessionClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Login verifies an identity/secret pair. On success it issues a bearer
// token, records the session, updates the account's last-login timestamp,
// and audits the attempt. Every attempt, success or failure, is audited
// with the caller's origin address and user agent.
func (s *AuthService) Login(ctx context.Context, email, password, origin, userAgent string) (string, *model.User, error) {
	fail := func(reason string) (string, *model.User, error) {
		s.audit.Record(ctx, audit.Event{
			Level:     model.LevelWarn,
			Action:    model.ActionLoginFailed,
			Message:   "login failed",
			Details:   map[string]interface{}{"identity": email, "reason": reason},
			Origin:    origin,
			UserAgent: userAgent,
		})
		return "", nil, ErrInvalidCredentials
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("unknown identity")
		}
		return "", nil, fmt.Errorf("look up user: %w", err)
	}
	if !u.IsActive {
		return fail("account inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return fail("secret mismatch")
	}

	token, expiresAt, err := s.issueToken(u)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	sess := &model.Session{
		TokenHash: store.HashToken(token),
		UserID:    u.ID,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	// Best effort; a failed timestamp update must not fail the login.
	_ = s.store.UpdateUserLastLogin(ctx, u.ID)

	s.audit.Record(ctx, audit.Event{
		Level:     model.LevelInfo,
		Action:    model.ActionLoginSuccess,
		Message:   "login succeeded",
		Details:   map[string]interface{}{"identity": u.Email},
		ActorID:   audit.ActorRef(u.ID),
		Origin:    origin,
		UserAgent: userAgent,
	})
	return token, u, nil
}

// Validate resolves a bearer token to its owning user. It checks the JWT
// signature, then the server-side session row (active, unexpired), then the
// account's active flag. Every failure mode collapses to ErrUnauthorized.
func (s *AuthService) Validate(ctx context.Context, token string) (*model.User, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}

	sess, err := s.store.GetSessionByTokenHash(ctx, store.HashToken(token))
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !sess.Valid(time.Now().UTC()) {
		return nil, ErrUnauthorized
	}

	u, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil || !u.IsActive {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// Logout revokes the session bound to the token. Logging out twice is not
// an error; after either call the token is rejected by Validate.
func (s *AuthService) Logout(ctx context.Context, token string, origin, userAgent string) error {
	hash := store.HashToken(token)

	var actor *int64
	if sess, err := s.store.GetSessionByTokenHash(ctx, hash); err == nil {
		actor = audit.ActorRef(sess.UserID)
	}

	if err := s.store.RevokeSession(ctx, hash); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Level:     model.LevelInfo,
		Action:    model.ActionLogout,
		Message:   "session revoked",
		ActorID:   actor,
		Origin:    origin,
		UserAgent: userAgent,
	})
	return nil
}

// HashPassword returns the bcrypt hash of a plaintext secret.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) issueToken(u *model.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.sessionTTL)

	claims := sessionClaims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "shellboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
