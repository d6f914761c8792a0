package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc returns the key requests are counted under (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// rateLimitEntry tracks request count and window expiration
type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed window limiter
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
	done   chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
		done:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// NewFormRateLimiter limits lead form traffic per IP
func NewFormRateLimiter(requestsPerMinute int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: requestsPerMinute,
		Window:   time.Minute,
		Message:  "Too many form submissions. Please wait before trying again.",
	})
}

// NewTokenRateLimiter limits form renders and token issuing per IP. Every
// cookieless request starts a session, so this caps how fast a client can
// grow session storage.
func NewTokenRateLimiter(requestsPerMinute int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: requestsPerMinute,
		Window:   time.Minute,
		Message:  "Too many form requests. Please wait before trying again.",
	})
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.allow(rl.config.KeyFunc(c), time.Now()) {
				log.Warn().Str("ip", c.RealIP()).Str("path", c.Path()).Msg("rate limit exceeded")
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.store[key]
	if !exists || now.After(entry.expiresAt) {
		rl.store[key] = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(rl.config.Window),
		}
		return true
	}

	if entry.count >= rl.config.Requests {
		return false
	}
	entry.count++
	return true
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// cleanup removes expired entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.purge(time.Now())
		}
	}
}

func (rl *RateLimiter) purge(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.store {
		if now.After(entry.expiresAt) {
			delete(rl.store, key)
		}
	}
}
