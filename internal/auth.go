package internal

import "context"

// AuthResult reports the outcome of an authentication attempt.
type AuthResult struct {
	// PrincipalID identifies the authenticated caller. Empty when
	// Authenticated is false.
	PrincipalID string

	// Authenticated is true only when the credential was present and valid.
	Authenticated bool
}

// Strategy authenticates a request. Implementations must fail closed: any
// missing, malformed, or invalid credential yields an unauthenticated result.
type Strategy interface {
	// Authenticate inspects the request and reports whether it carries a
	// valid credential. It never writes to the response.
	Authenticate(c Context) AuthResult
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(c Context) AuthResult

func (f StrategyFunc) Authenticate(c Context) AuthResult {
	return f(c)
}

// TokenVerifier validates an opaque credential and resolves it to a
// principal ID. Implementations include pkg/jwt.Service.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// TokenVerifierFunc adapts a function to the TokenVerifier interface.
type TokenVerifierFunc func(ctx context.Context, token string) (string, error)

func (f TokenVerifierFunc) VerifyToken(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// tokenStrategy authenticates via an extracted credential and a verifier.
type tokenStrategy struct {
	extract Extractor
	verify  TokenVerifier
}

// NewTokenStrategy returns a Strategy that extracts a credential with
// extract and validates it with verify. By default the credential is read
// from the Authorization bearer header.
func NewTokenStrategy(verify TokenVerifier, extract Extractor) Strategy {
	if extract == nil {
		extract = FromBearerToken()
	}
	return &tokenStrategy{extract: extract, verify: verify}
}

func (s *tokenStrategy) Authenticate(c Context) AuthResult {
	token := s.extract(c)
	if token == "" || s.verify == nil {
		return AuthResult{}
	}

	principal, err := s.verify.VerifyToken(c.Context(), token)
	if err != nil || principal == "" {
		return AuthResult{}
	}
	return AuthResult{PrincipalID: principal, Authenticated: true}
}

// sessionStrategy authenticates via the session cookie.
type sessionStrategy struct{}

// NewSessionStrategy returns a Strategy backed by the app's session manager.
// A request is authenticated when its session carries a user ID.
func NewSessionStrategy() Strategy {
	return sessionStrategy{}
}

func (sessionStrategy) Authenticate(c Context) AuthResult {
	uid := c.UserID()
	if uid == "" {
		return AuthResult{}
	}
	return AuthResult{PrincipalID: uid, Authenticated: true}
}
