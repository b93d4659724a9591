package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Buckets idle past this long are dropped by the reaper so a churn of
// one-off client IPs cannot grow the map without bound.
const idleTTL = 10 * time.Minute

const reapInterval = time.Minute

// tokenBucket tracks the remaining allowance for one client key.
// Refill happens lazily on each Allow call from the elapsed time, so
// there is no per-bucket timer.
type tokenBucket struct {
	remaining float64
	seenAt    time.Time
}

// MemoryLimiter is a process-local token bucket Limiter. The server
// keys it by client IP with a read/write prefix, giving every client
// an independent allowance per route class. State lives in one map
// under a mutex; a background reaper drops idle buckets.
//
// Being in-memory, limits reset on restart and are not shared across
// replicas.
type MemoryLimiter struct {
	refillPerSec float64
	capacity     float64

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter returns a limiter allowing a sustained rate of
// ratePerSec requests per key with bursts up to burst. Close stops the
// reaper goroutine.
func NewMemoryLimiter(ratePerSec float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		refillPerSec: ratePerSec,
		capacity:     float64(burst),
		buckets:      make(map[string]*tokenBucket),
		done:         make(chan struct{}),
	}
	go m.reap()
	return m
}

// Allow takes one token from key's bucket, reporting whether one was
// available. A key's first request starts from a full bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &tokenBucket{remaining: m.capacity - 1, seenAt: now}
		return true, nil
	}

	b.remaining += now.Sub(b.seenAt).Seconds() * m.refillPerSec
	if b.remaining > m.capacity {
		b.remaining = m.capacity
	}
	b.seenAt = now

	if b.remaining < 1 {
		return false, nil
	}
	b.remaining--
	return true, nil
}

// Close stops the reaper. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) reap() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.dropIdle()
		}
	}
}

func (m *MemoryLimiter) dropIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-idleTTL)
	for key, b := range m.buckets {
		if b.seenAt.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
