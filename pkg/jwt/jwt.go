// Package jwt provides HMAC-signed JWT issuing and verification on top of
// github.com/golang-jwt/jwt. It backs token-based authentication: the
// Service satisfies the framework's TokenVerifier interface by resolving a
// valid token to its subject.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret         = errors.New("jwt: signing secret is not configured")
	ErrInvalidToken     = errors.New("jwt: invalid token")
	ErrExpiredToken     = errors.New("jwt: token expired")
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	ErrMissingSubject   = errors.New("jwt: token has no subject")
)

// Service signs and verifies tokens with a shared HMAC-SHA256 secret.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithIssuer sets the iss claim on generated tokens and requires it on
// parsed ones.
func WithIssuer(iss string) Option {
	return func(s *Service) { s.issuer = iss }
}

// WithAudience sets the aud claim on generated tokens and requires it on
// parsed ones.
func WithAudience(aud string) Option {
	return func(s *Service) { s.audience = aud }
}

// WithTTL sets the lifetime of generated tokens. Default: 1 hour.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// New creates a Service with the given signing secret.
func New(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	s := &Service{
		secret: []byte(secret),
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate issues a signed token for the subject with optional extra
// claims. Registered claims (sub, iat, exp, and configured iss/aud) are
// set by the service and cannot be overridden.
func (s *Service) Generate(subject string, extra map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.ttl).Unix()
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates the token signature and registered claims, and returns
// the claims map.
func (s *Service) Parse(token string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, errors.Join(ErrExpiredToken, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.Join(ErrInvalidSignature, err)
		default:
			return nil, errors.Join(ErrInvalidToken, err)
		}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyToken validates the token and returns its subject. It implements
// the framework's TokenVerifier interface for token auth strategies.
func (s *Service) VerifyToken(_ context.Context, token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}
