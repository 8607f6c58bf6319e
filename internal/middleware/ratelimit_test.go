package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/inkwell/internal/auth"
)

// fakeClock returns a limiter whose clock the test advances by hand.
func fakeClock() (*RateLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterAllowPerKey(t *testing.T) {
	rl, _ := fakeClock()

	for i := 0; i < 10; i++ {
		if ok, _ := rl.Allow("10.0.0.1", 10, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, wait := rl.Allow("10.0.0.1", 10, time.Minute)
	if ok {
		t.Error("11th request should be denied")
	}
	if wait != time.Minute {
		t.Errorf("wait = %v, want %v", wait, time.Minute)
	}
	if ok, _ := rl.Allow("10.0.0.2", 10, time.Minute); !ok {
		t.Error("a different key has its own budget")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, now := fakeClock()

	for i := 0; i < 3; i++ {
		rl.Allow("key", 3, 10*time.Second)
	}
	*now = now.Add(4 * time.Second)
	ok, wait := rl.Allow("key", 3, 10*time.Second)
	if ok {
		t.Error("should be blocked within window")
	}
	if wait != 6*time.Second {
		t.Errorf("wait = %v, want 6s", wait)
	}

	*now = now.Add(6 * time.Second)
	if ok, _ := rl.Allow("key", 3, 10*time.Second); !ok {
		t.Error("should be allowed once the window has passed")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := fakeClock()

	rl.Allow("expired", 5, time.Second)
	rl.Allow("active", 5, time.Minute)
	*now = now.Add(2 * time.Second)

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets["expired"]; ok {
		t.Error("expired bucket should have been removed")
	}
	if _, ok := rl.buckets["active"]; !ok {
		t.Error("active bucket should still exist")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLimitByIP(t *testing.T) {
	rl, now := fakeClock()
	handler := Limit(rl, Rule{Name: "register", Limit: 2, Window: time.Minute, Key: ByIP})(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/register", nil)
		req.Header.Set("X-Forwarded-For", ip+", 172.16.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("203.0.113.9"); rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	*now = now.Add(45 * time.Second)
	rec := send("203.0.113.9")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "15" {
		t.Errorf("Retry-After = %q, want %q", got, "15")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	if rec := send("198.51.100.4"); rec.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLimitRulesDoNotShareBuckets(t *testing.T) {
	rl, _ := fakeClock()
	login := Limit(rl, Rule{Name: "login", Limit: 1, Window: time.Minute, Key: ByIP})(okHandler())
	register := Limit(rl, Rule{Name: "register", Limit: 1, Window: time.Minute, Key: ByIP})(okHandler())

	for _, h := range []http.Handler{login, register} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	}
}

func TestLimitEmptyKeyIsExempt(t *testing.T) {
	rl, _ := fakeClock()
	handler := Limit(rl, Rule{Name: "vote", Limit: 1, Window: time.Minute, Key: ByVoter})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/notes/1/vote", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("anonymous request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestByLoginEmail(t *testing.T) {
	var seenBody string
	rl, _ := fakeClock()
	handler := Limit(rl, Rule{Name: "login", Limit: 1, Window: time.Minute, Key: ByLoginEmail})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			seenBody = string(data)
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(email string) int {
		body, _ := json.Marshal(map[string]string{"email": email, "password": "hunter22"})
		req := httptest.NewRequest("POST", "/api/login", strings.NewReader(string(body)))
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("alice@acme.test"); code != http.StatusOK {
		t.Errorf("first attempt: status = %d, want %d", code, http.StatusOK)
	}
	if !strings.Contains(seenBody, `"email":"alice@acme.test"`) {
		t.Errorf("handler body = %q, want the original request body", seenBody)
	}
	if code := send(" Alice@ACME.test "); code != http.StatusTooManyRequests {
		t.Errorf("same email: status = %d, want %d", code, http.StatusTooManyRequests)
	}
	if code := send("bob@acme.test"); code != http.StatusOK {
		t.Errorf("other email from the same address: status = %d, want %d", code, http.StatusOK)
	}
}

func TestByVoter(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/notes/7/vote", nil)
	req.SetPathValue("id", "7")
	if got := ByVoter(req); got != "" {
		t.Errorf("anonymous key = %q, want empty", got)
	}

	req = req.WithContext(auth.WithAuth(context.Background(), auth.AuthContext{UserID: 3}))
	if got := ByVoter(req); got != "user:3|note:7" {
		t.Errorf("key = %q, want %q", got, "user:3|note:7")
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", "1.1.1.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 2.2.2.2 , 4.4.4.4"}, "3.3.3.3:1234", "2.2.2.2"},
		{"remote addr", nil, "3.3.3.3:1234", "3.3.3.3"},
		{"remote without port", nil, "3.3.3.3", "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := RealIP(req); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
