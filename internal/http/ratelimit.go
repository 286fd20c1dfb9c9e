package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 60

	sweepEvery = 5 * time.Minute
	idleAfter  = 10 * time.Minute
)

// rateLimiter counts mutating requests per client IP in fixed windows.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*ipWindow

	done     chan struct{}
	stopOnce sync.Once
}

type ipWindow struct {
	opened time.Time
	seen   time.Time
	count  int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		limit:   rateLimitRequests,
		window:  rateLimitWindow,
		now:     time.Now,
		windows: make(map[string]*ipWindow),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients that sent nothing for idleAfter.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idleAfter)
	for ip, w := range rl.windows {
		if w.seen.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow counts one request from ip and reports whether it fits the window.
func (rl *rateLimiter) allow(ip string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.opened) > rl.window {
		w = &ipWindow{opened: now}
		rl.windows[ip] = w
	}
	w.seen = now
	w.count++
	if w.count <= rl.limit {
		return true
	}
	if metrics != nil {
		atomic.AddInt64(&metrics.rateLimitHits, 1)
	}
	return false
}
