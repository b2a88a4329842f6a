package db

import "errors"

// Sentinel errors returned by this package. Causes are attached with
// errors.Join, so errors.Is matches both the sentinel and the underlying
// driver error.
var (
	ErrInvalidConfig  = errors.New("db: invalid connection config")
	ErrConnect        = errors.New("db: connection failed")
	ErrHealthcheck    = errors.New("db: healthcheck failed")
	ErrMigrateDialect = errors.New("db: unsupported migration dialect")
	ErrMigrate        = errors.New("db: migrations failed")
)
