package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/keelframework/keel/pkg/session"
)

// csrfSessionKey is the session value under which the CSRF token is stored.
const csrfSessionKey = "_csrf_token"

// Pipeline runs the per-request security stages in a fixed order: CORS,
// security headers, CSRF validation, access rules. Only after every stage
// passes does the dispatcher invoke the route handler.
type Pipeline struct {
	rules   *RuleTable
	cors    CORSPolicy
	headers HeadersPolicy
	csrf    CSRFPolicy
}

// NewPipeline assembles a pipeline from the given policies. A nil rules
// table behaves like an empty one.
func NewPipeline(cors CORSPolicy, headers HeadersPolicy, csrf CSRFPolicy, rules *RuleTable) *Pipeline {
	if rules == nil {
		rules = NewRuleTable(nil)
	}
	return &Pipeline{cors: cors, headers: headers, csrf: csrf, rules: rules}
}

// Before runs the stages that apply regardless of whether a route matches:
// CORS preflight handling and the CORS/security response headers. It
// returns true when the request was fully answered (a preflight) and must
// not proceed.
func (p *Pipeline) Before(c Context, method string) bool {
	if p.handlePreflight(c, method) {
		return true
	}
	p.applyCORS(c)
	p.applyHeaders(c)
	return false
}

// Enforce runs the stages guarding the matched route: CSRF validation and
// access-rule authorization. It returns false when the request must not
// reach the handler; a non-nil error is a denial for the dispatcher's
// error handler to render.
func (p *Pipeline) Enforce(c Context, method, path string) (bool, error) {
	if err := p.validateCSRF(c, method, path); err != nil {
		return false, err
	}
	return p.authorize(c, method, path)
}

// handlePreflight answers CORS preflight requests with 204 and the
// negotiated headers. Returns true when the request was handled.
func (p *Pipeline) handlePreflight(c Context, method string) bool {
	if !p.cors.Enabled || method != http.MethodOptions {
		return false
	}
	origin := c.Header("Origin")
	if origin == "" {
		return false
	}

	h := c.Response().Header()
	h.Add("Vary", "Origin")
	if !p.cors.originAllowed(origin) {
		// Preflight for a disallowed origin gets no CORS headers; the
		// browser enforces the rest.
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
		return true
	}

	p.setAllowOrigin(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.cors.AllowedMethods, ", "))
	if len(p.cors.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.cors.AllowedHeaders, ", "))
	}
	if p.cors.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.cors.MaxAge))
	}
	c.ResponseWriter().WriteHeader(http.StatusNoContent)
	return true
}

// applyCORS attaches CORS headers to non-preflight responses.
func (p *Pipeline) applyCORS(c Context) {
	if !p.cors.Enabled {
		return
	}
	origin := c.Header("Origin")
	if origin == "" {
		return
	}
	h := c.Response().Header()
	h.Add("Vary", "Origin")
	if !p.cors.originAllowed(origin) {
		return
	}
	p.setAllowOrigin(h, origin)
	if len(p.cors.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(p.cors.ExposedHeaders, ", "))
	}
}

func (p *Pipeline) setAllowOrigin(h http.Header, origin string) {
	if slices.Contains(p.cors.AllowedOrigins, "*") {
		// A wildcard list never carries credentials: echoing arbitrary
		// origins alongside Allow-Credentials would let any site read
		// credentialed responses.
		h.Set("Access-Control-Allow-Origin", "*")
		return
	}
	if p.cors.AllowCredentials {
		// Credentialed responses must echo the concrete origin.
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
}

// applyHeaders writes the configured security response headers.
func (p *Pipeline) applyHeaders(c Context) {
	if !p.headers.Enabled {
		return
	}
	h := c.Response().Header()
	if p.headers.ContentTypeOptions != "" {
		h.Set("X-Content-Type-Options", p.headers.ContentTypeOptions)
	}
	if p.headers.FrameOptions != "" {
		h.Set("X-Frame-Options", p.headers.FrameOptions)
	}
	if p.headers.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.headers.ReferrerPolicy)
	}
	if p.headers.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", p.headers.ContentSecurityPolicy)
	}
	if p.headers.StrictTransportSecurity != "" {
		h.Set("Strict-Transport-Security", p.headers.StrictTransportSecurity)
	}
}

// validateCSRF enforces token validation on state-changing methods.
// Safe methods and ignore-listed paths are exempt.
func (p *Pipeline) validateCSRF(c Context, method, path string) error {
	if !p.csrf.Enabled {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil
	}
	if p.csrf.ignored(path) {
		return nil
	}

	submitted := c.Header(p.csrf.HeaderName)
	if submitted == "" {
		submitted = c.Form(p.csrf.FieldName)
	}
	if submitted == "" {
		return ErrForbidden("missing CSRF token")
	}

	stored := p.storedCSRFToken(c)
	if stored == "" {
		return ErrForbidden("no CSRF token issued")
	}
	if !hmac.Equal([]byte(stored), []byte(submitted)) {
		return ErrForbidden("invalid CSRF token")
	}
	return nil
}

// storedCSRFToken fetches the expected token: session first, signed cookie
// as the double-submit fallback.
func (p *Pipeline) storedCSRFToken(c Context) string {
	if val, err := c.SessionValue(csrfSessionKey); err == nil {
		if tok, ok := val.(string); ok && tok != "" {
			return tok
		}
	}
	if tok, err := c.CookieSigned(p.csrf.CookieName); err == nil {
		return tok
	}
	return ""
}

// CSRFToken returns the token a client must submit with state-changing
// requests, issuing one if none exists. The token is stored in the session
// when sessions are configured, otherwise in a signed cookie.
func (p *Pipeline) CSRFToken(c Context) (string, error) {
	if tok := p.storedCSRFToken(c); tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	tok := hex.EncodeToString(buf)

	err := c.SetSessionValue(csrfSessionKey, tok)
	switch {
	case err == nil:
		return tok, nil
	case errors.Is(err, session.ErrNotConfigured) || errors.Is(err, session.ErrNotFound):
		if err := c.SetCookieSigned(p.csrf.CookieName, tok, 0); err != nil {
			return "", err
		}
		return tok, nil
	default:
		return "", err
	}
}

// authorize evaluates the access rules. It returns true when the request
// may proceed to the handler.
func (p *Pipeline) authorize(c Context, method, path string) (bool, error) {
	if p.rules.Empty() {
		return true, nil
	}

	rule := p.rules.Find(method, path)
	if rule == nil {
		// Rules are declared, none matched: fail closed.
		return false, ErrForbidden("access denied")
	}

	switch rule.effect {
	case effectPermit:
		return true, nil
	case effectDeny:
		return p.deny(c, rule, ErrForbidden("access denied"))
	case effectRequireAuth:
		if rule.strategy == nil {
			return p.deny(c, rule, ErrUnauthorized("authentication required"))
		}
		result := rule.strategy.Authenticate(c)
		if !result.Authenticated {
			return p.deny(c, rule, ErrUnauthorized("authentication required"))
		}
		c.Set(PrincipalKey{}, result.PrincipalID)
		return true, nil
	}
	return false, ErrForbidden("access denied")
}

// deny applies the rule's failure behavior: custom handler, redirect, or
// the default error.
func (p *Pipeline) deny(c Context, rule *AccessRule, defaultErr error) (bool, error) {
	if rule.onFailure != nil {
		return false, rule.onFailure(c)
	}
	if rule.redirectTo != "" {
		return false, c.Redirect(http.StatusFound, rule.redirectTo)
	}
	return false, defaultErr
}
