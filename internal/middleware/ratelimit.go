package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      r,
		burst:     burst,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (ipl *ipLimiter) get(ip string) *rate.Limiter {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	now := ipl.now()
	if now.Sub(ipl.lastPrune) > limiterIdle {
		for k, cl := range ipl.limiters {
			if now.Sub(cl.lastSeen) > limiterIdle {
				delete(ipl.limiters, k)
			}
		}
		ipl.lastPrune = now
	}

	cl, ok := ipl.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(ipl.rate, ipl.burst)}
		ipl.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit allows each client IP a token bucket of burst requests refilled
// at r. Rejected requests get 429 with a Retry-After header.
func RateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	il := newIPLimiter(r, burst)
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := il.get(clientIP(r)).Reserve()
			if delay := res.Delay(); !res.OK() || delay > 0 {
				if res.OK() {
					res.Cancel()
					w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests",
					"code":  "rate_limited",
				})
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

// PerMinute is RateLimit with n requests per minute and a burst of n.
func PerMinute(n int) func(http.Handler) http.Handler {
	return RateLimit(rate.Every(time.Minute/time.Duration(n)), n)
}

// clientIP strips the port from RemoteAddr. Behind a proxy, chi's RealIP
// middleware has already replaced RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
