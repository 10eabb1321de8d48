package discord

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const limiterCacheSize = 4096

// userLimiter rate limits commands per user. Limiters of inactive users are
// evicted by the LRU.
type userLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
	limit    rate.Limit
	burst    int
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	cache, _ := lru.New(limiterCacheSize)
	return &userLimiter{
		limiters: cache,
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether the user may run a command now.
func (l *userLimiter) Allow(userID snowflake.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(userID); ok {
		return v.(*rate.Limiter).Allow()
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(userID, limiter)
	return limiter.Allow()
}
