// internal/api/middleware_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a", 3, time.Minute) {
			t.Fatalf("第%d次请求应该被允许", i+1)
		}
	}

	if rl.Allow("client-a", 3, time.Minute) {
		t.Error("超出限额的请求应该被拒绝")
	}
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("client-a", 1, time.Minute) {
		t.Fatal("client-a的第一次请求应该被允许")
	}
	if rl.Allow("client-a", 1, time.Minute) {
		t.Error("client-a超出限额应该被拒绝")
	}

	// 另一个客户端不受影响
	if !rl.Allow("client-b", 1, time.Minute) {
		t.Error("client-b应该有独立的限额")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("client-a", 1, 10*time.Millisecond) {
		t.Fatal("第一次请求应该被允许")
	}
	if rl.Allow("client-a", 1, 10*time.Millisecond) {
		t.Fatal("窗口内超限应该被拒绝")
	}

	time.Sleep(20 * time.Millisecond)

	if !rl.Allow("client-a", 1, 10*time.Millisecond) {
		t.Error("窗口过期后应该重新允许")
	}
}

func TestRateLimitMiddleware_TooManyRequests(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(2, time.Minute, func(c *gin.Context) string {
		return "fixed-key-middleware-test"
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("第%d次请求状态码 = %d, want 200", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("超限请求状态码 = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("应该返回X-RateLimit-Remaining头")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		id, _ := c.Get("request_id")
		c.String(http.StatusOK, "%v", id)
	})

	// 未提供时自动生成
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("应该生成并返回X-Request-ID头")
	}

	// 提供时原样透传
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "my-trace-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "my-trace-id" {
		t.Errorf("已有的请求ID应该透传: %q", w.Header().Get("X-Request-ID"))
	}
	if w.Body.String() != "my-trace-id" {
		t.Errorf("request_id应该写入上下文: %q", w.Body.String())
	}
}
