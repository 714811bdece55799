package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					UserID:    "user-123",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	mw := NewSessionMiddleware(repo)

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

func TestSessionMiddleware_NoSessionCookie_Returns401JSON(t *testing.T) {
	repo := &mockSessionRepository{}
	mw := NewSessionMiddleware(repo)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}

func TestSessionMiddleware_ExpiredSession_Returns401(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			// 期限切れセッションはリポジトリがnilを返す
			return nil, nil
		},
	}
	mw := NewSessionMiddleware(repo)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestPageAuthMiddleware_Unauthenticated_RedirectsToSignIn(t *testing.T) {
	repo := &mockSessionRepository{}
	mw := NewPageAuthMiddleware(repo, "http://localhost:3000/sign-in", []string{"/dashboard", "/editor"})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/editor/project-1", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "http://localhost:3000/sign-in") {
		t.Errorf("redirect location = %q", location)
	}
	// 元のアクセス先が引き継がれること
	if !strings.Contains(location, "redirect_url=") {
		t.Errorf("redirect location should carry redirect_url, got %q", location)
	}
}

func TestPageAuthMiddleware_Authenticated_PassesThrough(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	mw := NewPageAuthMiddleware(repo, "http://localhost:3000/sign-in", []string{"/dashboard", "/editor"})

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Fatal("handler should be called for authenticated request")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestPageAuthMiddleware_UnprotectedPath_SkipsAuth(t *testing.T) {
	repo := &mockSessionRepository{}
	mw := NewPageAuthMiddleware(repo, "http://localhost:3000/sign-in", []string{"/dashboard", "/editor"})

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	// 保護対象外のパスは未認証でも通過する
	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Fatal("handler should be called for unprotected path")
	}
}

func TestUserIDFromContext_Missing_ReturnsError(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	if err == nil {
		t.Fatal("expected error for context without user ID")
	}
}

func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-42")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext() error = %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want %q", userID, "user-42")
	}
}
