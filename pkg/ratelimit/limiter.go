// Package ratelimit provides IP-based request rate limiting for the
// HTTP layer. Limiters are explicitly constructed and passed to the
// handlers that need them; there is no package-level instance, so
// tests and multiple servers never share counter state.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config defines the limiting policy.
type Config struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	RequestsPerHour   int           `json:"requests_per_hour"`
	MaxConcurrent     int           `json:"max_concurrent"`
	BanDuration       time.Duration `json:"ban_duration"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// DefaultConfig returns a policy suited to a public content API:
// bursty reads allowed, sustained abuse cut off.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		RequestsPerHour:   2000,
		MaxConcurrent:     8,
		BanDuration:       15 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// client tracks sliding-window counters and ban state for one IP.
type client struct {
	requestsThisMinute int
	requestsThisHour   int
	lastRequest        time.Time
	minuteStart        time.Time
	hourStart          time.Time
	bannedUntil        time.Time
	concurrent         int
}

// Limiter enforces per-IP request limits with sliding-window counters,
// a concurrency cap and temporary bans for repeat offenders. Safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
	cleanup *time.Ticker
	done    chan struct{}
}

// New creates a limiter and starts its background cleanup loop. Call
// Shutdown when done.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	l := &Limiter{
		clients: make(map[string]*client),
		cfg:     cfg,
		cleanup: time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// CheckLimit decides whether the request may proceed. On success it
// claims a concurrency slot; the caller must release it with
// ReleaseRequest when the request finishes.
func (l *Limiter) CheckLimit(r *http.Request) error {
	ip := clientIP(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		now := time.Now()
		c = &client{minuteStart: now, hourStart: now}
		l.clients[ip] = c
	}

	now := time.Now()

	if now.Before(c.bannedUntil) {
		return fmt.Errorf("IP %s is temporarily banned", sanitizeIP(ip))
	}

	if now.Sub(c.minuteStart) >= time.Minute {
		c.requestsThisMinute = 0
		c.minuteStart = now
	}
	if now.Sub(c.hourStart) >= time.Hour {
		c.requestsThisHour = 0
		c.hourStart = now
	}

	if c.concurrent >= l.cfg.MaxConcurrent {
		return fmt.Errorf("too many concurrent requests from IP %s", sanitizeIP(ip))
	}

	if c.requestsThisMinute >= l.cfg.RequestsPerMinute {
		// Well past the limit: stop counting and ban.
		if c.requestsThisMinute > l.cfg.RequestsPerMinute*2 {
			c.bannedUntil = now.Add(l.cfg.BanDuration)
		}
		c.requestsThisMinute++
		return fmt.Errorf("rate limit exceeded for IP %s (requests per minute)", sanitizeIP(ip))
	}
	if c.requestsThisHour >= l.cfg.RequestsPerHour {
		return fmt.Errorf("rate limit exceeded for IP %s (requests per hour)", sanitizeIP(ip))
	}

	c.requestsThisMinute++
	c.requestsThisHour++
	c.lastRequest = now
	c.concurrent++
	return nil
}

// ReleaseRequest returns the concurrency slot claimed by CheckLimit.
// Designed for use in a defer; safe when the IP is unknown.
func (l *Limiter) ReleaseRequest(r *http.Request) {
	ip := clientIP(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[ip]; ok && c.concurrent > 0 {
		c.concurrent--
	}
}

// Middleware wraps a handler with limit enforcement, answering 429 for
// rejected requests.
func (l *Limiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := l.CheckLimit(r); err != nil {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		defer l.ReleaseRequest(r)
		next(w, r)
	}
}

// Stats reports limiter state for the stats endpoint.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	banned := 0
	concurrent := 0
	now := time.Now()
	for _, c := range l.clients {
		concurrent += c.concurrent
		if now.Before(c.bannedUntil) {
			banned++
		}
	}

	return map[string]interface{}{
		"active_clients":    len(l.clients),
		"banned_clients":    banned,
		"total_concurrent":  concurrent,
		"requests_per_min":  l.cfg.RequestsPerMinute,
		"requests_per_hour": l.cfg.RequestsPerHour,
	}
}

// Shutdown stops the cleanup loop. Idempotent.
func (l *Limiter) Shutdown() {
	l.cleanup.Stop()
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanup.C:
			l.dropStaleClients()
		case <-l.done:
			return
		}
	}
}

// dropStaleClients evicts entries idle for over two hours with no
// active requests, keeping the registry bounded.
func (l *Limiter) dropStaleClients() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-2 * time.Hour)
	for ip, c := range l.clients {
		if c.lastRequest.Before(cutoff) && c.concurrent == 0 {
			delete(l.clients, ip)
		}
	}
}

// clientIP extracts the originating IP, trusting proxy headers before
// falling back to the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			part = strings.TrimSpace(part)
			if net.ParseIP(part) != nil {
				return part
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeIP keeps header-sourced garbage out of error messages.
func sanitizeIP(ip string) string {
	if net.ParseIP(ip) == nil {
		return "unknown"
	}
	return ip
}
