package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    3,
		UploadRate:      rate.Limit(1000),
		UploadBurst:     2,
		CleanupInterval: time.Hour,
	}
}

func doAuthedRequest(t *testing.T, handler http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGeneralMiddleware_WithinBurst_Allows(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		w := doAuthedRequest(t, handler, "user-1")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_ExceedsBurst_Returns429(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001) // 補充をほぼ止める
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		doAuthedRequest(t, handler, "user-1")
	}

	w := doAuthedRequest(t, handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestGeneralMiddleware_SeparateUsers_IndependentLimits(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-1 のバーストを使い切る
	for i := 0; i < 4; i++ {
		doAuthedRequest(t, handler, "user-1")
	}

	// user-2 は影響を受けない
	w := doAuthedRequest(t, handler, "user-2")
	if w.Code != http.StatusOK {
		t.Errorf("user-2 status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUploadMiddleware_IndependentFromGeneral(t *testing.T) {
	config := testRateLimiterConfig()
	config.UploadRate = rate.Limit(0.001)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	uploadHandler := rl.UploadMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// アップロードのバースト(2)を使い切る
	for i := 0; i < 2; i++ {
		doAuthedRequest(t, uploadHandler, "user-1")
	}
	w := doAuthedRequest(t, uploadHandler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("upload status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// API全般のリミッターは独立している
	w = doAuthedRequest(t, generalHandler, "user-1")
	if w.Code != http.StatusOK {
		t.Errorf("general status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_NoUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_LimiterCounts(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doAuthedRequest(t, generalHandler, "user-1")
	doAuthedRequest(t, generalHandler, "user-2")

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
	if got := rl.UploadLimiterCount(); got != 0 {
		t.Errorf("UploadLimiterCount() = %d, want 0", got)
	}
}
