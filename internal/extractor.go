package internal

import "strings"

// Extractor pulls a credential string out of the request. An empty return
// value means the credential is absent.
type Extractor func(c Context) string

// FromHeader extracts a credential from a request header.
func FromHeader(name string) Extractor {
	return func(c Context) string {
		return c.Header(name)
	}
}

// FromBearerToken extracts a bearer token from the Authorization header.
func FromBearerToken() Extractor {
	return func(c Context) string {
		auth := c.Header("Authorization")
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return auth[len(prefix):]
		}
		return ""
	}
}

// FromQuery extracts a credential from a query parameter.
func FromQuery(name string) Extractor {
	return func(c Context) string {
		return c.Query(name)
	}
}

// FromForm extracts a credential from a form field.
func FromForm(name string) Extractor {
	return func(c Context) string {
		return c.Form(name)
	}
}

// FromParam extracts a credential from a path parameter.
func FromParam(name string) Extractor {
	return func(c Context) string {
		return c.Param(name)
	}
}

// FromCookie extracts a credential from a plain cookie.
func FromCookie(name string) Extractor {
	return func(c Context) string {
		v, err := c.Cookie(name)
		if err != nil {
			return ""
		}
		return v
	}
}

// FromCookieSigned extracts a credential from a signed cookie. Cookies with
// missing or invalid signatures yield an empty value.
func FromCookieSigned(name string) Extractor {
	return func(c Context) string {
		v, err := c.CookieSigned(name)
		if err != nil {
			return ""
		}
		return v
	}
}

// ChainExtractors tries each extractor in order and returns the first
// non-empty value.
func ChainExtractors(extractors ...Extractor) Extractor {
	return func(c Context) string {
		for _, ex := range extractors {
			if v := ex(c); v != "" {
				return v
			}
		}
		return ""
	}
}
