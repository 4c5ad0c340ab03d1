package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)}
	s, err := New(Config{
		Secret:   "test-secret",
		Email:    "Admin@Motoriz.id",
		Password: "password123",
		Name:     "Admin Motoriz",
		TokenTTL: time.Hour,
	}, WithClock(clock), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return s, clock
}

var _ core.Clock = (*fakeClock)(nil)

func TestLoginAndVerify(t *testing.T) {
	s, clock := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "admin@motoriz.id", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "someone@motoriz.id", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := s.Login(ctx, " ADMIN@motoriz.id ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "admin@motoriz.id", sess.User.Email)
	assert.Equal(t, "Admin Motoriz", sess.User.FullName)
	assert.Equal(t, clock.now.Add(time.Hour), sess.ExpiresAt)

	claims, err := s.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@motoriz.id", claims.Email)

	clock.now = clock.now.Add(2 * time.Hour)
	_, err = s.Verify(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	s, clock := newTestService(t)
	claims := jwt.RegisteredClaims{Issuer: issuer, Subject: "admin@motoriz.id", ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour))}

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = s.Verify(other)
	assert.ErrorIs(t, err, ErrUnauthorized)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = s.Verify(hs512)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestChangePasswordRules(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cases := map[string]struct {
		req   PasswordChange
		field string
	}{
		"short":     {PasswordChange{OldPassword: "password123", NewPassword: "short", ConfirmPassword: "short"}, "newPassword"},
		"mismatch":  {PasswordChange{OldPassword: "password123", NewPassword: "rahasia-baru", ConfirmPassword: "rahasia-lain"}, "confirmPassword"},
		"same":      {PasswordChange{OldPassword: "password123", NewPassword: "password123", ConfirmPassword: "password123"}, "newPassword"},
		"wrong old": {PasswordChange{OldPassword: "password124", NewPassword: "rahasia-baru", ConfirmPassword: "rahasia-baru"}, "oldPassword"},
		"no old":    {PasswordChange{NewPassword: "rahasia-baru", ConfirmPassword: "rahasia-baru"}, "oldPassword"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.ChangePassword(ctx, tc.req)
			ve, ok := domain.FirstValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	require.NoError(t, s.ChangePassword(ctx, PasswordChange{OldPassword: "password123", NewPassword: "rahasia-baru", ConfirmPassword: "rahasia-baru"}))
	_, err := s.Login(ctx, "admin@motoriz.id", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "admin@motoriz.id", "rahasia-baru")
	assert.NoError(t, err)
}

func TestProfileUpdate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	sess, err := s.Login(ctx, "admin@motoriz.id", "password123")
	require.NoError(t, err)

	_, err = s.UpdateProfile(ctx, domain.Profile{FullName: " ", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Admin Motoriz", s.Profile().FullName)

	p, err := s.UpdateProfile(ctx, domain.Profile{FullName: "Budi Santoso", Email: "Budi@Motoriz.id", Phone: "0812"})
	require.NoError(t, err)
	assert.Equal(t, "budi@motoriz.id", p.Email)
	assert.Equal(t, p, s.Profile())

	_, err = s.Verify(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthorized, "tokens follow the administrator email")
}

func TestForgotPassword(t *testing.T) {
	s, _ := newTestService(t)
	assert.NoError(t, s.ForgotPassword(context.Background(), "stranger@example.com"))
	assert.ErrorIs(t, s.ForgotPassword(context.Background(), "not an email"), domain.ErrValidation)
}

func TestRequireAuth(t *testing.T) {
	s, _ := newTestService(t)
	sess, err := s.Login(context.Background(), "admin@motoriz.id", "password123")
	require.NoError(t, err)

	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(c.Email))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@motoriz.id", rec.Body.String())
}

func TestLimiterReturnsRetryAfter(t *testing.T) {
	l := NewLimiter(1, 2)
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	rec := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code, "buckets are per client")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))
}
