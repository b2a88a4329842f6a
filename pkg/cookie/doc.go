// Package cookie provides a cookie manager with shared security defaults
// and HMAC-signed cookies for tamper-proof values.
//
// Plain cookies work without configuration; signed cookies require a secret
// of at least 32 bytes:
//
//	m := cookie.New(
//	    cookie.WithSecret(os.Getenv("COOKIE_SECRET")),
//	    cookie.WithSecure(true),
//	)
//	_ = m.SetSigned(w, "uid", "42", 3600)
package cookie
