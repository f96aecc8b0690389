package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRateLimitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(tenantIDKey, "tenant-1")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		Rules: map[string]RateLimitRule{
			"EXECUTE": {Rate: 1, Burst: 2},
		},
		GroupFor: func(c *gin.Context) string { return "EXECUTE" },
		Limiter:  limiter,
	}))
	r.POST("/execute", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	return r
}

func TestRateLimitAllowsBurstThenRejects(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(func() time.Time { return now })
	router := newRateLimitedRouter(limiter)

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/execute", nil))
		if resp.Code != http.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/execute", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(func() time.Time { return now })
	router := newRateLimitedRouter(limiter)

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/execute", nil))
	}

	now = now.Add(2 * time.Second)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/execute", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 after refill, got %d", resp.Code)
	}
}
