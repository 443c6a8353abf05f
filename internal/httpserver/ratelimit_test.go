package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mihaigidu/FitGenius/internal/config"
)

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	cfg := &config.Config{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}

	handler := RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request should succeed
	req1 := httptest.NewRequest(http.MethodGet, "/v1/plans/generate", nil)
	req1.RemoteAddr = "1.2.3.4:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)

	if rr1.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr1.Code)
	}

	// Second immediate request should be rate-limited
	req2 := httptest.NewRequest(http.MethodGet, "/v1/plans/generate", nil)
	req2.RemoteAddr = "1.2.3.4:12345"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr2.Code)
	}

	// Verify response body
	var body map[string]interface{}
	if err := json.NewDecoder(rr2.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if errObj["code"] != "rate_limited" {
		t.Errorf("expected code=rate_limited, got %v", errObj["code"])
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	cfg := &config.Config{
		RateLimitRPS:   0,
		RateLimitBurst: 0,
	}

	callCount := 0
	handler := RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusOK)
	}))

	// Multiple rapid requests should all succeed
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "1.2.3.4:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	if callCount != 10 {
		t.Errorf("expected 10 calls, got %d", callCount)
	}
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	cfg := &config.Config{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}

	handler := RateLimitMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First IP uses its token
	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "1.2.3.4:1"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("IP1 first request: expected 200, got %d", rr1.Code)
	}

	// Second IP should still succeed (independent bucket)
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "5.6.7.8:1"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("IP2 first request: expected 200, got %d", rr2.Code)
	}
}

func TestRateLimit_ForwardedForUsesFirstHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")

	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("expected remote addr host, got %q", got)
	}
}

func TestRateLimit_IdleClientsAreSwept(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	store.allow("1.2.3.4")
	if len(store.clients) != 1 {
		t.Fatalf("expected one tracked client, got %d", len(store.clients))
	}

	store.now = func() time.Time { return start.Add(2 * limiterIdleTTL) }
	store.allow("5.6.7.8")

	if _, ok := store.clients["1.2.3.4"]; ok {
		t.Error("idle client should have been swept")
	}
	if _, ok := store.clients["5.6.7.8"]; !ok {
		t.Error("active client should be tracked")
	}
}
