// Package session provides server-side session management with pluggable
// storage backends.
//
// A Session carries identity (an optional user ID), arbitrary values, and
// lifecycle timestamps. The cookie holds only the session token; the ID
// never leaves the server. Stores persist sessions in memory (tests and
// development), a generic cache, or PostgreSQL. The Cleaner reaps expired
// rows on a cron schedule.
//
// Dirty tracking drives autosave: mutating a session marks it dirty, and
// the framework flushes dirty sessions right before the response is
// committed. Typed access is available through Value and ValueOr:
//
//	cart, err := session.Value[[]string](sess, "cart")
package session
