package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// TriggerLimiter throttles gate triggers per client address, so a stuck
// button or a looping kiosk script cannot flood the verification backend.
type TriggerLimiter struct {
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
	stopCh  chan struct{}
	once    sync.Once
}

// NewTriggerLimiter allows perSecond requests per client with the given
// burst. Idle client entries are dropped after ttl.
func NewTriggerLimiter(perSecond float64, burst int, ttl time.Duration) *TriggerLimiter {
	if burst < 1 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	tl := &TriggerLimiter{
		rate:    rate.Limit(perSecond),
		burst:   burst,
		ttl:     ttl,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go tl.cleanupLoop()
	return tl
}

// Stop ends the background cleanup.
func (tl *TriggerLimiter) Stop() {
	tl.once.Do(func() { close(tl.stopCh) })
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (tl *TriggerLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			if !tl.limiter(client).Allow() {
				slog.Warn("trigger rate limit exceeded", "client", client, "path", r.URL.Path)
				tl.writeLimited(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientCount returns the number of tracked clients.
func (tl *TriggerLimiter) ClientCount() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.clients)
}

func (tl *TriggerLimiter) limiter(client string) *rate.Limiter {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	cl, ok := tl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(tl.rate, tl.burst)}
		tl.clients[client] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (tl *TriggerLimiter) cleanupLoop() {
	ticker := time.NewTicker(tl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tl.cleanup(time.Now())
		case <-tl.stopCh:
			return
		}
	}
}

func (tl *TriggerLimiter) cleanup(now time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for client, cl := range tl.clients {
		if now.Sub(cl.lastAccess) > tl.ttl {
			delete(tl.clients, client)
		}
	}
}

func (tl *TriggerLimiter) writeLimited(w http.ResponseWriter) {
	retryAfter := 1
	if tl.rate > 0 {
		retryAfter = max(1, int(math.Ceil(1.0/float64(tl.rate))))
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
}

// clientKey is the request's remote host (RealIP has already applied
// proxy headers).
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
