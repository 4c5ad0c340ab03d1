// Package auth guards the admin API: it checks the administrator password,
// issues and verifies bearer tokens, and owns the profile and password shown on
// the settings page.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

// MinPasswordLength is the shortest accepted new password.
const MinPasswordLength = 8

// DefaultTokenTTL is used when Config.TokenTTL is zero.
const DefaultTokenTTL = 24 * time.Hour

const issuer = "motoriz"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a token is missing, malformed or expired.
	ErrUnauthorized = errors.New("unauthorized")
)

// Config seeds the single administrator account.
type Config struct {
	Secret   string
	Email    string
	Password string
	Name     string
	TokenTTL time.Duration
}

// Session is returned by a successful login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      domain.Profile `json:"user"`
}

// Claims are the verified contents of a token.
type Claims struct {
	Email     string
	ExpiresAt time.Time
}

// PasswordChange is the settings page password form.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Service holds the administrator account.
type Service struct {
	secret []byte
	ttl    time.Duration
	cost   int
	clock  core.Clock
	logger core.Logger

	mu      sync.RWMutex
	profile domain.Profile
	hash    []byte
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the token clock.
func WithClock(c core.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// New hashes the configured password and returns the service.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("admin email and password are required")
	}
	s := &Service{
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TokenTTL,
		cost:    bcrypt.DefaultCost,
		clock:   core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  core.NopLogger{},
		profile: domain.Profile{FullName: cfg.Name, Email: normalizeEmail(cfg.Email), Position: "Administrator"},
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	s.hash = hash
	return s, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(_ context.Context, email, password string) (Session, error) {
	s.mu.RLock()
	profile, hash := s.profile, s.hash
	s.mu.RUnlock()
	if normalizeEmail(email) != profile.Email {
		s.logger.Warn("login rejected", "email", email, "reason", "unknown email")
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		s.logger.Warn("login rejected", "email", email, "reason", "wrong password")
		return Session{}, ErrInvalidCredentials
	}
	now := s.clock.Now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   profile.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info("login", "email", profile.Email)
	return Session{Token: signed, ExpiresAt: expires, User: profile}, nil
}

// Verify validates a token issued by Login.
func (s *Service) Verify(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	s.mu.RLock()
	email := s.profile.Email
	s.mu.RUnlock()
	if rc.Subject != email {
		return Claims{}, fmt.Errorf("%w: token subject is not the administrator", ErrUnauthorized)
	}
	return Claims{Email: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}

// ChangePassword replaces the password after checking the old one. Every
// failed rule is reported as a *domain.ValidationError.
func (s *Service) ChangePassword(_ context.Context, req PasswordChange) error {
	var errs []error
	if req.OldPassword == "" {
		errs = append(errs, domain.NewValidationError("oldPassword", "is required"))
	}
	if len(req.NewPassword) < MinPasswordLength {
		errs = append(errs, domain.NewValidationError("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength)))
	}
	if req.NewPassword != req.ConfirmPassword {
		errs = append(errs, domain.NewValidationError("confirmPassword", "does not match the new password"))
	}
	if req.OldPassword != "" && req.NewPassword == req.OldPassword {
		errs = append(errs, domain.NewValidationError("newPassword", "must differ from the old password"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(req.OldPassword)); err != nil {
		return domain.NewValidationError("oldPassword", "is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.hash = hash
	s.logger.Info("password changed", "email", s.profile.Email)
	return nil
}

// Profile returns the administrator profile.
func (s *Service) Profile() domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// UpdateProfile replaces the profile. Changing the email invalidates tokens
// issued for the previous address.
func (s *Service) UpdateProfile(_ context.Context, p domain.Profile) (domain.Profile, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = normalizeEmail(p.Email)
	var errs []error
	if p.FullName == "" {
		errs = append(errs, domain.NewValidationError("fullName", "is required"))
	}
	if p.Email == "" {
		errs = append(errs, domain.NewValidationError("email", "is required"))
	} else if _, err := mail.ParseAddress(p.Email); err != nil {
		errs = append(errs, domain.NewValidationError("email", "must be a valid email address"))
	}
	if len(errs) > 0 {
		return domain.Profile{}, errors.Join(errs...)
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	s.logger.Info("profile updated", "email", p.Email)
	return p, nil
}

// ForgotPassword records a reset request. No mail is sent; the response never
// reveals whether the address belongs to the administrator.
func (s *Service) ForgotPassword(_ context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	s.mu.RLock()
	known := email == s.profile.Email
	s.mu.RUnlock()
	s.logger.Info("password reset requested", "email", email, "known", known)
	return nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
