package cache

import (
	"context"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/source"
)

const userKey = "me"

// Users remembers the token owner's profile for ttl. Failed lookups are
// not cached.
type Users struct {
	next  source.UserReader
	cache *LRU[core.User]
}

func NewUsers(next source.UserReader, ttl time.Duration) *Users {
	return &Users{next: next, cache: NewLRU[core.User](1, ttl)}
}

func (u *Users) CurrentUser(ctx context.Context) (core.User, error) {
	if user, ok := u.cache.Get(userKey); ok {
		return user, nil
	}
	user, err := u.next.CurrentUser(ctx)
	if err != nil {
		return core.User{}, err
	}
	u.cache.Set(userKey, user)
	return user, nil
}

// Forget drops the cached profile.
func (u *Users) Forget() {
	u.cache.Delete(userKey)
}
