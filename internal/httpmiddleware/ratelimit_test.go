package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTokenBucket_ExhaustsCapacity(t *testing.T) {
	l := NewTokenBucket(3, 60)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Error("expected request over capacity to be denied")
	}
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	l := NewTokenBucket(1, 60)
	ctx := context.Background()

	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("first key should be allowed")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Error("first key should be exhausted")
	}
	if !l.Allow(ctx, "5.6.7.8") {
		t.Error("second key should have its own bucket")
	}
}

func TestGinMiddleware_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(NewTokenBucket(1, 60)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "1.2.3.4:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := get(); code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", code)
	}
}
