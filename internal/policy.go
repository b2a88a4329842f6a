package internal

import (
	"slices"
	"strings"
)

// CORSPolicy configures cross-origin resource sharing headers and preflight
// handling. The zero value disables CORS entirely.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int
	AllowCredentials bool
	Enabled          bool
}

// CORSOption customizes the CORS policy.
type CORSOption func(*CORSPolicy)

// WithAllowedOrigins sets the origins allowed to make cross-origin requests.
// "*" allows any origin.
func WithAllowedOrigins(origins ...string) CORSOption {
	return func(p *CORSPolicy) { p.AllowedOrigins = origins }
}

// WithAllowedMethods sets the methods advertised in preflight responses.
func WithAllowedMethods(methods ...string) CORSOption {
	return func(p *CORSPolicy) {
		p.AllowedMethods = nil
		for _, m := range methods {
			p.AllowedMethods = append(p.AllowedMethods, strings.ToUpper(m))
		}
	}
}

// WithAllowedHeaders sets the request headers advertised in preflight
// responses.
func WithAllowedHeaders(headers ...string) CORSOption {
	return func(p *CORSPolicy) { p.AllowedHeaders = headers }
}

// WithExposedHeaders sets the response headers browsers may read.
func WithExposedHeaders(headers ...string) CORSOption {
	return func(p *CORSPolicy) { p.ExposedHeaders = headers }
}

// WithAllowCredentials permits credentialed cross-origin requests.
func WithAllowCredentials() CORSOption {
	return func(p *CORSPolicy) { p.AllowCredentials = true }
}

// WithMaxAge sets how long (in seconds) browsers may cache preflight
// responses.
func WithMaxAge(seconds int) CORSOption {
	return func(p *CORSPolicy) { p.MaxAge = seconds }
}

// NewCORSPolicy builds an enabled CORS policy with sensible defaults:
// all origins, the standard methods, and Content-Type/Authorization headers.
func NewCORSPolicy(opts ...CORSOption) CORSPolicy {
	p := CORSPolicy{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// originAllowed reports whether origin is covered by the policy.
func (p *CORSPolicy) originAllowed(origin string) bool {
	if slices.Contains(p.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(p.AllowedOrigins, origin)
}

// HeadersPolicy configures the security response headers applied to every
// dispatched request. The zero value writes nothing.
type HeadersPolicy struct {
	ContentTypeOptions      string
	FrameOptions            string
	ReferrerPolicy          string
	ContentSecurityPolicy   string
	StrictTransportSecurity string
	Enabled                 bool
}

// HeadersOption customizes the security headers policy.
type HeadersOption func(*HeadersPolicy)

// WithFrameOptions sets the X-Frame-Options header value.
func WithFrameOptions(v string) HeadersOption {
	return func(p *HeadersPolicy) { p.FrameOptions = v }
}

// WithReferrerPolicy sets the Referrer-Policy header value.
func WithReferrerPolicy(v string) HeadersOption {
	return func(p *HeadersPolicy) { p.ReferrerPolicy = v }
}

// WithContentSecurityPolicy sets the Content-Security-Policy header value.
func WithContentSecurityPolicy(v string) HeadersOption {
	return func(p *HeadersPolicy) { p.ContentSecurityPolicy = v }
}

// WithStrictTransportSecurity sets the Strict-Transport-Security header
// value. Only emit this on HTTPS deployments.
func WithStrictTransportSecurity(v string) HeadersOption {
	return func(p *HeadersPolicy) { p.StrictTransportSecurity = v }
}

// NewHeadersPolicy builds an enabled security headers policy with
// conservative defaults.
func NewHeadersPolicy(opts ...HeadersOption) HeadersPolicy {
	p := HeadersPolicy{
		Enabled:            true,
		ContentTypeOptions: "nosniff",
		FrameOptions:       "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// CSRFPolicy configures cross-site request forgery protection. The zero
// value disables the check.
type CSRFPolicy struct {
	HeaderName  string
	FieldName   string
	CookieName  string
	IgnorePaths []string
	Enabled     bool
}

// CSRFOption customizes the CSRF policy.
type CSRFOption func(*CSRFPolicy)

// WithCSRFHeaderName sets the request header carrying the token.
func WithCSRFHeaderName(name string) CSRFOption {
	return func(p *CSRFPolicy) { p.HeaderName = name }
}

// WithCSRFFieldName sets the form field carrying the token.
func WithCSRFFieldName(name string) CSRFOption {
	return func(p *CSRFPolicy) { p.FieldName = name }
}

// WithCSRFCookieName sets the signed cookie used for double-submit
// validation when no session is available.
func WithCSRFCookieName(name string) CSRFOption {
	return func(p *CSRFPolicy) { p.CookieName = name }
}

// WithCSRFIgnorePaths exempts the given paths from CSRF validation. Each
// entry is an exact normalized path or a "/prefix/**" glob.
func WithCSRFIgnorePaths(paths ...string) CSRFOption {
	return func(p *CSRFPolicy) {
		for _, path := range paths {
			if strings.HasSuffix(path, "/**") {
				base := NormalizePath(strings.TrimSuffix(path, "/**"))
				p.IgnorePaths = append(p.IgnorePaths, base+"/**")
				continue
			}
			p.IgnorePaths = append(p.IgnorePaths, NormalizePath(path))
		}
	}
}

// NewCSRFPolicy builds an enabled CSRF policy with the conventional header,
// field, and cookie names.
func NewCSRFPolicy(opts ...CSRFOption) CSRFPolicy {
	p := CSRFPolicy{
		Enabled:    true,
		HeaderName: "X-CSRF-Token",
		FieldName:  "csrf_token",
		CookieName: "csrf_token",
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ignored reports whether the normalized path is exempt from validation.
func (p *CSRFPolicy) ignored(path string) bool {
	for _, ig := range p.IgnorePaths {
		if strings.HasSuffix(ig, "/**") {
			base := strings.TrimSuffix(ig, "/**")
			if path == base || strings.HasPrefix(path, base+"/") {
				return true
			}
			continue
		}
		if path == ig {
			return true
		}
	}
	return false
}
