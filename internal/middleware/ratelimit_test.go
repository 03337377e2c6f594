package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i, w.Code)
		}
	}
}

func TestRateLimiter_BlocksOverBudget(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:4242"
		w := httptest.NewRecorder()
		handler(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("fourth request: got status %d, want 429", last)
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, addr := range []string{"10.0.0.3:1111", "10.0.0.4:2222"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("client %s: got status %d, want 200", addr, w.Code)
		}
	}
}

func TestClientKey_StripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:53211"
	if got := clientKey(req); got != "192.168.1.9" {
		t.Errorf("clientKey = %q, want 192.168.1.9", got)
	}
}
