package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL = 3 * time.Minute
	sweepInterval  = time.Minute
)

// KeyedLimiter keeps one in-process token bucket per key. Idle keys are
// swept lazily on access.
type KeyedLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(r float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(r),
		burst:    burst,
		now:      time.Now,
	}
}

func (k *KeyedLimiter) Allow(key string) Decision {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) > sweepInterval {
		k.sweep(now)
	}

	v, ok := k.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	return decide(allowed, v.limiter.TokensAt(now), float64(k.rate))
}

func (k *KeyedLimiter) sweep(now time.Time) {
	for key, v := range k.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(k.visitors, key)
		}
	}
	k.lastSweep = now
}

func (k *KeyedLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.visitors)
}
