package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cooldown rate limits an action per key, for example per guild.
type Cooldown struct {
	store  *Store
	name   string
	period time.Duration

	mu sync.Mutex
}

func NewCooldown(store *Store, name string, period time.Duration) *Cooldown {
	return &Cooldown{store: store, name: name, period: period}
}

// Hit returns how long the key still has to wait. A zero result means the
// action may run now, and a new period starts.
func (c *Cooldown) Hit(ctx context.Context, key string) time.Duration {
	if c.period <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := fmt.Sprintf("cooldown#%s#%s", c.name, key)
	now := time.Now()

	var until int64
	if c.store.Get(ctx, cacheKey, &until) {
		if remaining := time.Unix(0, until).Sub(now); remaining > 0 {
			return remaining
		}
	}

	_ = c.store.Set(ctx, cacheKey, now.Add(c.period).UnixNano(), c.period, "cooldown")
	return 0
}
