package utils

import (
	"context"
	"sync"
	"time"
)

// LoginThrottle locks out a client key after too many failed logins within an hour.
type LoginThrottle struct {
	MaxFailures int
	LockFor     time.Duration

	mu     sync.Mutex
	counts map[string]*failWindow
}

type failWindow struct {
	count       int
	windowEnd   time.Time
	lockedUntil time.Time
}

// NewLoginThrottle returns a throttle; maxFailures <= 0 disables it.
func NewLoginThrottle(maxFailures int, lockFor time.Duration) *LoginThrottle {
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	return &LoginThrottle{MaxFailures: maxFailures, LockFor: lockFor, counts: map[string]*failWindow{}}
}

func throttleKey(parts ...string) string {
	key := "login"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Locked reports whether key is currently locked out.
func (t *LoginThrottle) Locked(key string) bool {
	if t == nil || t.MaxFailures <= 0 {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if n, err := rc.Exists(ctx, throttleKey("lock", key)).Result(); err == nil {
			return n > 0
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.counts[key]
	return ok && time.Now().Before(w.lockedUntil)
}

// Fail records a failed attempt and locks the key once the limit is reached.
func (t *LoginThrottle) Fail(key string) {
	if t == nil || t.MaxFailures <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		failKey := throttleKey("fail", key)
		if n, err := rc.Incr(ctx, failKey).Result(); err == nil {
			if n == 1 {
				_ = rc.Expire(ctx, failKey, time.Hour).Err()
			}
			if int(n) >= t.MaxFailures {
				_ = rc.Set(ctx, throttleKey("lock", key), "1", t.LockFor).Err()
				_ = rc.Del(ctx, failKey).Err()
			}
			return
		}
	}
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.counts[key]
	if !ok || now.After(w.windowEnd) {
		w = &failWindow{windowEnd: now.Add(time.Hour)}
		t.counts[key] = w
	}
	w.count++
	if w.count >= t.MaxFailures {
		w.lockedUntil = now.Add(t.LockFor)
		w.count = 0
	}
}

// Reset clears the failure history after a successful login.
func (t *LoginThrottle) Reset(key string) {
	if t == nil {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		_ = rc.Del(ctx, throttleKey("fail", key)).Err()
	}
	t.mu.Lock()
	if w, ok := t.counts[key]; ok && time.Now().After(w.lockedUntil) {
		delete(t.counts, key)
	}
	t.mu.Unlock()
}
