package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"wedplan/internal/cache"
)

// Limiter allows a fixed number of requests per client per minute.
type Limiter struct {
	clients *cache.LRUCache[window]
	sweeper *cache.Manager

	requestsPerMinute int
	onLimited         func()
	now               func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration

	// MaxClients bounds how many clients are tracked; the least recently seen
	// are forgotten first.
	MaxClients int

	// OnLimited is called for every rejected request.
	OnLimited func()
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		MaxClients:        10000,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}

	// idle clients expire after 10 minutes
	clients := cache.NewLRUCache[window](config.MaxClients, 10*time.Minute)
	sweeper := cache.NewManager()
	sweeper.Register(clients)
	sweeper.StartCleanup(config.CleanupInterval)

	return &Limiter{
		clients:           clients,
		sweeper:           sweeper,
		requestsPerMinute: config.RequestsPerMinute,
		onLimited:         config.OnLimited,
		now:               time.Now,
	}
}

// Allow records a request from clientIP and reports whether it is within the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	now := rl.now()
	w := rl.clients.Update(clientIP, func(w window, found bool) window {
		if !found || now.Sub(w.start) >= time.Minute {
			return window{start: now, requests: 1}
		}
		w.requests++
		return w
	})
	return w.requests <= rl.requestsPerMinute
}

// retryAfter returns whole seconds until clientIP's window resets.
func (rl *Limiter) retryAfter(clientIP string) int {
	w, ok := rl.clients.Get(clientIP)
	if !ok {
		return 0
	}
	left := time.Minute - rl.now().Sub(w.start)
	if left < time.Second {
		return 1
	}
	return int(left.Seconds())
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.sweeper.Stop()
}

// Middleware limits mutating requests per client. Reads are never limited.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			if !rl.Allow(clientIP) {
				if rl.onLimited != nil {
					rl.onLimited()
				}
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(clientIP)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
