package session

import (
	"context"
	"errors"
	"time"

	"github.com/keelframework/keel/pkg/cache"
)

// CacheStore persists sessions in a cache.Cache, keyed by token with a
// secondary id→token index so Delete and Touch can work from the ID.
// Pair it with cache.NewRedis for shared sessions across processes, or
// cache.NewMemory for single-process deployments.
type CacheStore struct {
	sessions cache.Cache[*Session]
	tokens   cache.Cache[string] // id -> token
	users    cache.Cache[[]string]
}

// NewCacheStore creates a session store on top of cache backends.
// All three caches should share a lifetime; sessions carry their own
// expiry, so the caches' TTLs act as an upper bound only.
func NewCacheStore(sessions cache.Cache[*Session], tokens cache.Cache[string], users cache.Cache[[]string]) *CacheStore {
	return &CacheStore{sessions: sessions, tokens: tokens, users: users}
}

func (c *CacheStore) ttl(s *Session) time.Duration {
	return time.Until(s.ExpiresAt)
}

func (c *CacheStore) Create(ctx context.Context, s *Session) error {
	if err := c.sessions.Set(ctx, s.Token, s, c.ttl(s)); err != nil {
		return err
	}
	if err := c.tokens.Set(ctx, s.ID, s.Token, c.ttl(s)); err != nil {
		return err
	}
	if s.UserID != nil {
		if err := c.indexUser(ctx, *s.UserID, s.ID, c.ttl(s)); err != nil {
			return err
		}
	}
	s.ClearNew()
	return nil
}

func (c *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	s, err := c.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s, nil
}

func (c *CacheStore) Update(ctx context.Context, s *Session) error {
	prevToken, err := c.tokens.Get(ctx, s.ID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	// Token rotation: evict the entry stored under the stale token.
	if prevToken != s.Token {
		if err := c.sessions.Delete(ctx, prevToken); err != nil {
			return err
		}
	}
	if err := c.sessions.Set(ctx, s.Token, s, c.ttl(s)); err != nil {
		return err
	}
	if err := c.tokens.Set(ctx, s.ID, s.Token, c.ttl(s)); err != nil {
		return err
	}
	if s.UserID != nil {
		return c.indexUser(ctx, *s.UserID, s.ID, c.ttl(s))
	}
	return nil
}

func (c *CacheStore) Delete(ctx context.Context, id string) error {
	token, err := c.tokens.Get(ctx, id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := c.sessions.Delete(ctx, token); err != nil {
		return err
	}
	return c.tokens.Delete(ctx, id)
}

func (c *CacheStore) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := c.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, id := range ids {
		if err := c.Delete(ctx, id); err != nil {
			return err
		}
	}
	return c.users.Delete(ctx, userID)
}

// DeleteExpired is a no-op: cache backends expire entries via TTL.
func (c *CacheStore) DeleteExpired(context.Context) error {
	return nil
}

func (c *CacheStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	token, err := c.tokens.Get(ctx, id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s, err := c.Get(ctx, token)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt
	return c.sessions.Set(ctx, token, s, c.ttl(s))
}

func (c *CacheStore) indexUser(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	ids, err := c.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	for _, id := range ids {
		if id == sessionID {
			return nil
		}
	}
	return c.users.Set(ctx, userID, append(ids, sessionID), ttl)
}
