package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/inkwell/internal/auth"
)

// maxPeekBytes bounds how much of a request body a key function may read.
const maxPeekBytes = 64 << 10

// RealIP extracts the client's real IP address, preferring Cloudflare's
// CF-Connecting-IP header, then X-Forwarded-For, and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Rule is a named budget of Limit requests per Window for each key. A Key
// function returning "" exempts the request.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    func(*http.Request) string
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests in fixed windows. Buckets of different rules
// never share a key.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow counts a request against key. When the budget is spent it reports
// false and how long until the window resets.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		rl.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return true, 0
	}
	b.count++
	if b.count <= limit {
		return true, 0
	}
	return false, b.resetAt.Sub(now)
}

// Cleanup drops buckets whose window has passed and returns how many.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if !now.Before(b.resetAt) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Limit returns middleware enforcing rule. Rejected requests get 429 with
// Retry-After set to the whole seconds left in the window.
func Limit(rl *RateLimiter, rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rule.Key(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := rl.Allow(rule.Name+"|"+key, rule.Limit, rule.Window)
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSONError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByIP keys requests on the client address.
func ByIP(r *http.Request) string {
	return RealIP(r)
}

// ByLoginEmail keys login attempts on the submitted email and the client
// address, so guessing against one account does not lock out everyone
// behind the same NAT. The body is left intact for the handler.
func ByLoginEmail(r *http.Request) string {
	var body struct {
		Email string `json:"email"`
	}
	if data := peekBody(r); len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	return email + "|" + RealIP(r)
}

// ByVoter keys vote requests on the authenticated user and the note, so
// flipping a vote in a loop is throttled per note. Anonymous requests are
// exempt; RequireAuth turns them away.
func ByVoter(r *http.Request) string {
	userID := auth.UserID(r.Context())
	if userID == 0 {
		return ""
	}
	return fmt.Sprintf("user:%d|note:%s", userID, r.PathValue("id"))
}

// peekBody reads up to maxPeekBytes of the body and puts them back in front
// of whatever remains unread.
func peekBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = readCloser{io.MultiReader(bytes.NewReader(data), r.Body), r.Body}
	if err != nil {
		return nil
	}
	return data
}

type readCloser struct {
	io.Reader
	io.Closer
}
