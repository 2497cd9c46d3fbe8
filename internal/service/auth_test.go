package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

const testSecret = "test-jwt-secret"

func newTestAuth(t *testing.T, ttl time.Duration) (*AuthService, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := audit.NewRecorder(st, logger)
	return NewAuthService(st, rec, testSecret, ttl), st
}

func seedActiveUser(t *testing.T, st *store.Store, email, password string) *model.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &model.User{Email: email, PasswordHash: hash, Role: model.RoleUser, IsActive: true}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, st := newTestAuth(t, time.Hour)
	ctx := context.Background()
	seedActiveUser(t, st, "alice@example.com", "correct horse")

	token, u, err := svc.Login(ctx, "alice@example.com", "correct horse", "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || u == nil {
		t.Fatal("Login returned empty token or nil user")
	}

	got, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("validated user = %q", got.Email)
	}

	// A session row exists keyed by the token hash, bounded by the TTL.
	sess, err := st.GetSessionByTokenHash(ctx, store.HashToken(token))
	if err != nil {
		t.Fatalf("GetSessionByTokenHash: %v", err)
	}
	wantExpiry := time.Now().UTC().Add(time.Hour)
	if d := sess.ExpiresAt.Sub(wantExpiry); d < -time.Minute || d > time.Minute {
		t.Errorf("session expiry %v not within a minute of %v", sess.ExpiresAt, wantExpiry)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	svc, st := newTestAuth(t, time.Hour)
	ctx := context.Background()
	u := seedActiveUser(t, st, "bob@example.com", "pw123456")

	if u.LastLoginAt != nil {
		t.Fatal("fresh user already has LastLoginAt")
	}
	if _, _, err := svc.Login(ctx, "bob@example.com", "pw123456", "", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	got, err := st.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Error("LastLoginAt not set after login")
	}
}

func TestLoginFailureModesAreUniform(t *testing.T) {
	svc, st := newTestAuth(t, time.Hour)
	ctx := context.Background()
	seedActiveUser(t, st, "carol@example.com", "right-password")

	inactive := seedActiveUser(t, st, "gone@example.com", "whatever1")
	inactive.IsActive = false
	if err := st.UpdateUser(ctx, inactive); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "carol@example.com", "wrong-password"},
		{"unknown identity", "nobody@example.com", "right-password"},
		{"inactive account", "gone@example.com", "whatever1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, u, err := svc.Login(ctx, tc.email, tc.password, "", "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
			if token != "" || u != nil {
				t.Error("failed login leaked token or user")
			}
		})
	}

	// Every failure shows up in the audit log.
	_, total, err := st.QueryAudit(ctx, model.AuditFilter{Action: model.ActionLoginFailed}, 1, 10)
	if err != nil {
		t.Fatalf("QueryAudit: %v", err)
	}
	if total != 3 {
		t.Errorf("audited %d login failures, want 3", total)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t, time.Hour)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Validate(%q) err = %v, want ErrUnauthorized", token, err)
		}
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	svc, st := newTestAuth(t, time.Hour)
	ctx := context.Background()
	u := seedActiveUser(t, st, "dave@example.com", "pw123456")

	// A well-formed token signed with a different secret.
	claims := jwt.RegisteredClaims{
		Subject:   u.Email,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(ctx, forged); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Validate(forged) err = %v, want ErrUnauthorized", err)
	}
}

func TestValidateRejectsTokenWithoutSession(t *testing.T) {
	svc, _ := newTestAuth(t, time.Hour)
	ctx := context.Background()

	// Correctly signed but no server-side session row backs it.
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	orphan, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(ctx, orphan); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Validate(orphan) err = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutRevokesServerSide(t *testing.T) {
	svc, _ := newTestAuth(t, time.Hour)
	ctx := context.Background()

	st := svc.store
	seedActiveUser(t, st, "erin@example.com", "pw123456")

	token, _, err := svc.Login(ctx, "erin@example.com", "pw123456", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Validate(ctx, token); err != nil {
		t.Fatalf("Validate before logout: %v", err)
	}

	if err := svc.Logout(ctx, token, "", ""); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Validate after logout err = %v, want ErrUnauthorized", err)
	}

	// Logout is idempotent.
	if err := svc.Logout(ctx, token, "", ""); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestValidateRejectsDeactivatedAccount(t *testing.T) {
	svc, st := newTestAuth(t, time.Hour)
	ctx := context.Background()
	u := seedActiveUser(t, st, "frank@example.com", "pw123456")

	token, _, err := svc.Login(ctx, "frank@example.com", "pw123456", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	u.IsActive = false
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Validate for deactivated account err = %v, want ErrUnauthorized", err)
	}
}

func TestValidateRejectsExpiredSession(t *testing.T) {
	svc, st := newTestAuth(t, 50*time.Millisecond)
	ctx := context.Background()
	seedActiveUser(t, st, "gail@example.com", "pw123456")

	token, _, err := svc.Login(ctx, "gail@example.com", "pw123456", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Validate for expired session err = %v, want ErrUnauthorized", err)
	}
}

func TestSessionTTLDefault(t *testing.T) {
	svc, _ := newTestAuth(t, 0)
	if svc.SessionTTL() != DefaultSessionTTL {
		t.Errorf("SessionTTL = %v, want default %v", svc.SessionTTL(), DefaultSessionTTL)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}

	again, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == again {
		t.Error("bcrypt hashes should be salted and differ")
	}
}
