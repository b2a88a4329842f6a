// Package config loads declarative security configuration from YAML.
// A file describes the CORS, security headers, and CSRF policies plus the
// ordered access rules; keel.FromSecurityConfig translates the result into
// application options.
//
// Example file:
//
//	cors:
//	  enabled: true
//	  allowed_origins: ["https://app.example.com"]
//	  allow_credentials: true
//	headers:
//	  enabled: true
//	  frame_options: DENY
//	csrf:
//	  enabled: true
//	  ignore_paths: ["/api/webhooks/**"]
//	rules:
//	  - route: /login
//	    effect: permit
//	  - route: /static/**
//	    effect: permit
//	  - route: /admin/**
//	    effect: require_auth
//	    redirect_to: /login
//	  - any_route: true
//	    effect: require_auth
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule effects accepted in the rules list.
const (
	EffectPermit      = "permit"
	EffectDeny        = "deny"
	EffectRequireAuth = "require_auth"
)

var (
	ErrReadFile      = errors.New("config: failed to read file")
	ErrParse         = errors.New("config: failed to parse YAML")
	ErrInvalidRule   = errors.New("config: invalid rule")
	ErrUnknownEffect = errors.New("config: unknown rule effect")
)

// Security is the root of a security configuration file.
type Security struct {
	CORS    CORS    `yaml:"cors"`
	Headers Headers `yaml:"headers"`
	CSRF    CSRF    `yaml:"csrf"`
	Rules   []Rule  `yaml:"rules"`
}

// CORS declares the cross-origin policy.
type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           int      `yaml:"max_age"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	Enabled          bool     `yaml:"enabled"`
}

// Headers declares the security response headers.
type Headers struct {
	FrameOptions            string `yaml:"frame_options"`
	ReferrerPolicy          string `yaml:"referrer_policy"`
	ContentSecurityPolicy   string `yaml:"content_security_policy"`
	StrictTransportSecurity string `yaml:"strict_transport_security"`
	Enabled                 bool   `yaml:"enabled"`
}

// CSRF declares the request forgery protection policy.
type CSRF struct {
	HeaderName  string   `yaml:"header_name"`
	FieldName   string   `yaml:"field_name"`
	CookieName  string   `yaml:"cookie_name"`
	IgnorePaths []string `yaml:"ignore_paths"`
	Enabled     bool     `yaml:"enabled"`
}

// Rule declares one access rule. Exactly one of Route or AnyRoute must be
// set; rules apply in file order and the first match wins.
type Rule struct {
	Route      string   `yaml:"route"`
	Effect     string   `yaml:"effect"`
	RedirectTo string   `yaml:"redirect_to"`
	Methods    []string `yaml:"methods"`
	AnyRoute   bool     `yaml:"any_route"`
}

// Load reads and validates a security configuration file.
func Load(path string) (*Security, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrReadFile, err)
	}
	return Parse(data)
}

// Parse decodes and validates security configuration from YAML bytes.
func Parse(data []byte) (*Security, error) {
	var cfg Security
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Security) validate() error {
	for i, r := range s.Rules {
		if r.AnyRoute == (r.Route != "") {
			return fmt.Errorf("%w: rule %d must set exactly one of route or any_route", ErrInvalidRule, i)
		}
		switch r.Effect {
		case EffectPermit, EffectDeny, EffectRequireAuth:
		default:
			return fmt.Errorf("%w: rule %d has effect %q", ErrUnknownEffect, i, r.Effect)
		}
	}
	return nil
}
