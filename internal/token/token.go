// Package token issues and verifies the signed session and reset tokens.
//
// Both token kinds are HS256 JWTs sharing one secret and issuer; the audience
// claim keeps a reset token from being accepted where a session token is
// expected and vice versa. Every verification failure collapses into
// ErrInvalidOrExpired so callers cannot tell a bad signature from expiry.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pmws/pmws/internal/roles"
)

// Audiences distinguishing the two token kinds.
const (
	AudienceSession = "pmws:session"
	AudienceReset   = "pmws:reset"
)

// ErrInvalidOrExpired is returned for any token that fails verification.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

// Config holds signing parameters.
type Config struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
}

// Identity is the account data embedded into a session token.
type Identity struct {
	AccountID      int64
	Username       string
	Role           roles.Role
	EmployeeRoleID *int64
	Platform       string
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	AccountID      int64      `json:"id"`
	Username       string     `json:"username"`
	Role           roles.Role `json:"role"`
	EmployeeRoleID *int64     `json:"employeeRole,omitempty"`
	Platform       string     `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims is the verified content of a reset token.
type ResetClaims struct {
	AccountID int64  `json:"id"`
	Username  string `json:"username"`
	Code      string `json:"code"`
	jwt.RegisteredClaims
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service signs and verifies tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: secret must be provided")
	}
	if cfg.SessionTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "pmws"
	}
	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration { return s.cfg.SessionTTL }

// ResetTTL returns the configured reset token lifetime.
func (s *Service) ResetTTL() time.Duration { return s.cfg.ResetTTL }

// IssueSession signs a session token for id.
func (s *Service) IssueSession(id Identity) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	claims := SessionClaims{
		AccountID:        id.AccountID,
		Username:         id.Username,
		Role:             id.Role,
		EmployeeRoleID:   id.EmployeeRoleID,
		Platform:         id.Platform,
		RegisteredClaims: s.registered(id.AccountID, AudienceSession, now, expiresAt),
	}
	signed, err := s.sign(claims)
	return signed, expiresAt, err
}

// VerifySession parses and validates a session token.
func (s *Service) VerifySession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(raw, claims, AudienceSession); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueReset signs a reset token embedding code.
func (s *Service) IssueReset(accountID int64, username, code string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.ResetTTL)
	claims := ResetClaims{
		AccountID:        accountID,
		Username:         username,
		Code:             code,
		RegisteredClaims: s.registered(accountID, AudienceReset, now, expiresAt),
	}
	signed, err := s.sign(claims)
	return signed, expiresAt, err
}

// VerifyReset parses and validates a reset token.
func (s *Service) VerifyReset(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := s.parse(raw, claims, AudienceReset); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) registered(accountID int64, audience string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(accountID, 10),
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (s *Service) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func (s *Service) parse(raw string, claims jwt.Claims, audience string) error {
	if raw == "" {
		return ErrInvalidOrExpired
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidOrExpired
		}
		return s.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidOrExpired
	}
	return nil
}
