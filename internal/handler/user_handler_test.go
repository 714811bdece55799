package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/user"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getUsageFn      func(ctx context.Context, userID string) (*user.Usage, error)
	hasToolAccessFn func(ctx context.Context, userID, toolID string) (bool, error)
	withdrawFn      func(ctx context.Context, userID string) error
}

func (m *mockUserService) GetUsage(ctx context.Context, userID string) (*user.Usage, error) {
	if m.getUsageFn != nil {
		return m.getUsageFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) HasToolAccess(ctx context.Context, userID, toolID string) (bool, error) {
	if m.hasToolAccessFn != nil {
		return m.hasToolAccessFn(ctx, userID, toolID)
	}
	return false, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

func TestUserHandler_GetUsage_FreeUser(t *testing.T) {
	svc := &mockUserService{
		getUsageFn: func(ctx context.Context, userID string) (*user.Usage, error) {
			return &user.Usage{
				Plan:             model.PlanFree,
				ProjectsUsed:     3,
				ProjectLimit:     5,
				ExportsThisMonth: 20,
				ExportLimit:      20,
				CanCreateProject: true,
				CanExport:        false,
				RestrictedTools:  []string{"background", "ai_extender", "ai_edit"},
			}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/usage", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.GetUsage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result usageResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Plan != "free" {
		t.Errorf("plan = %q, want %q", result.Plan, "free")
	}
	if result.ProjectLimit != 5 {
		t.Errorf("project_limit = %d, want 5", result.ProjectLimit)
	}
	if result.CanExport {
		t.Error("can_exportはfalseのはず")
	}
	if len(result.RestrictedTools) != 3 {
		t.Errorf("restricted_tools = %v, want 3件", result.RestrictedTools)
	}
}

func TestUserHandler_GetUsage_Unauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/usage", nil)
	w := httptest.NewRecorder()

	h.GetUsage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestUserHandler_CheckToolAccess(t *testing.T) {
	svc := &mockUserService{
		hasToolAccessFn: func(ctx context.Context, userID, toolID string) (bool, error) {
			return toolID == "crop", nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/tools/crop/access", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "tool_id", "crop")
	w := httptest.NewRecorder()

	h.CheckToolAccess(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["allowed"] != true {
		t.Errorf("allowed = %v, want true", result["allowed"])
	}
	if result["tool_id"] != "crop" {
		t.Errorf("tool_id = %v, want %q", result["tool_id"], "crop")
	}
}

func TestUserHandler_Withdraw_Success(t *testing.T) {
	withdrawn := false
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawn = true
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !withdrawn {
		t.Error("Withdrawが呼ばれていない")
	}

	// セッションクッキーがクリアされること
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session_idクッキーがクリアされていない")
	}
}

func TestUserHandler_Withdraw_UserNotFound(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "ghost")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
