package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pixelforge/internal/middleware"
	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetUsage はプラン使用量とUI判定用のフラグを返す。
	GetUsage(ctx context.Context, userID string) (*user.Usage, error)
	// HasToolAccess は指定ツールがプランで利用可能かを返す。
	HasToolAccess(ctx context.Context, userID, toolID string) (bool, error)
	// Withdraw はユーザーの退会処理を実行する。
	// sessions、identities、folders、projectsを一括削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// usageResponse はプラン使用量のAPIレスポンス。
type usageResponse struct {
	Plan             string   `json:"plan"`
	ProjectsUsed     int      `json:"projects_used"`
	ProjectLimit     int      `json:"project_limit"` // 0は無制限
	ExportsThisMonth int      `json:"exports_this_month"`
	ExportLimit      int      `json:"export_limit"` // 0は無制限
	CanCreateProject bool     `json:"can_create_project"`
	CanExport        bool     `json:"can_export"`
	RestrictedTools  []string `json:"restricted_tools"`
}

// GetUsage は現在のプラン使用量を返す。
// GET /api/users/me/usage
func (h *UserHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	usage, err := h.service.GetUsage(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	restricted := usage.RestrictedTools
	if restricted == nil {
		restricted = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(usageResponse{
		Plan:             string(usage.Plan),
		ProjectsUsed:     usage.ProjectsUsed,
		ProjectLimit:     usage.ProjectLimit,
		ExportsThisMonth: usage.ExportsThisMonth,
		ExportLimit:      usage.ExportLimit,
		CanCreateProject: usage.CanCreateProject,
		CanExport:        usage.CanExport,
		RestrictedTools:  restricted,
	})
}

// CheckToolAccess は指定ツールの利用可否を返す。
// GET /api/users/me/tools/:tool_id/access
func (h *UserHandler) CheckToolAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	toolID := chi.URLParam(r, "tool_id")

	allowed, err := h.service.HasToolAccess(r.Context(), userID, toolID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tool_id": toolID,
		"allowed": allowed,
	})
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	// セッションは退会処理でDBから削除済み。Cookieもクリアする。
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
