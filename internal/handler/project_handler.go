package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pixelforge/internal/metrics"
	"github.com/hitoshi/pixelforge/internal/middleware"
	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	// List はユーザーのプロジェクトを更新日時の新しい順で返す。
	List(ctx context.Context, userID string) ([]*model.Project, error)
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error)
	// Get はプロジェクトを取得する。
	Get(ctx context.Context, userID, projectID string) (*model.Project, error)
	// Update はプロジェクトを部分更新する。
	Update(ctx context.Context, userID, projectID string, patch *model.ProjectPatch) (*model.Project, error)
	// Delete はプロジェクトを削除する。
	Delete(ctx context.Context, userID, projectID string) error
	// Export はエクスポート用の派生URLを発行する。
	Export(ctx context.Context, userID, projectID string, input project.ExportInput) (*project.ExportResult, error)
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
	metrics metrics.MetricsCollector
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface, collector metrics.MetricsCollector) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		metrics: collector,
	}
}

// createProjectRequest はプロジェクト作成リクエストのボディ。
type createProjectRequest struct {
	Title            string  `json:"title"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	CanvasState      string  `json:"canvas_state"`
	OriginalImageURL string  `json:"original_image_url"`
	CurrentImageURL  string  `json:"current_image_url"`
	ThumbnailURL     string  `json:"thumbnail_url"`
	FolderID         *string `json:"folder_id"`
}

// updateProjectRequest はプロジェクト部分更新リクエストのボディ。
// 省略されたフィールドは変更しない。folder_idに空文字を指定するとフォルダから外す。
type updateProjectRequest struct {
	CanvasState           *string `json:"canvas_state"`
	Width                 *int    `json:"width"`
	Height                *int    `json:"height"`
	CurrentImageURL       *string `json:"current_image_url"`
	ThumbnailURL          *string `json:"thumbnail_url"`
	ActiveTransformations *string `json:"active_transformations"`
	BackgroundRemoved     *bool   `json:"background_removed"`
	FolderID              *string `json:"folder_id"`
}

// exportProjectRequest はエクスポートリクエストのボディ。
type exportProjectRequest struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Quality int    `json:"quality"`
	Format  string `json:"format"`
}

// projectResponse はプロジェクト情報のAPIレスポンス。
type projectResponse struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Width                 int       `json:"width"`
	Height                int       `json:"height"`
	CanvasState           string    `json:"canvas_state"`
	OriginalImageURL      string    `json:"original_image_url"`
	CurrentImageURL       string    `json:"current_image_url"`
	ThumbnailURL          string    `json:"thumbnail_url"`
	ActiveTransformations string    `json:"active_transformations"`
	BackgroundRemoved     bool      `json:"background_removed"`
	FolderID              *string   `json:"folder_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// exportResponse はエクスポート結果のAPIレスポンス。
type exportResponse struct {
	URL              string `json:"url"`
	ExportsThisMonth int    `json:"exports_this_month"`
	ExportLimit      int    `json:"export_limit"` // 0は無制限
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListProjects はユーザーのプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projects, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"projects": results,
	})
}

// CreateProject はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), userID, project.CreateInput{
		Title:            req.Title,
		Width:            req.Width,
		Height:           req.Height,
		CanvasState:      req.CanvasState,
		OriginalImageURL: req.OriginalImageURL,
		CurrentImageURL:  req.CurrentImageURL,
		ThumbnailURL:     req.ThumbnailURL,
		FolderID:         req.FolderID,
	})
	if err != nil {
		h.recordQuotaRejection(err)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordProjectCreated()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProjectResponse(created))
}

// GetProject はプロジェクト詳細を取得する。
// GET /api/projects/:id
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projectID := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), userID, projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// UpdateProject はプロジェクトを部分更新する。
// PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projectID := chi.URLParam(r, "id")

	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, projectID, &model.ProjectPatch{
		CanvasState:           req.CanvasState,
		Width:                 req.Width,
		Height:                req.Height,
		CurrentImageURL:       req.CurrentImageURL,
		ThumbnailURL:          req.ThumbnailURL,
		ActiveTransformations: req.ActiveTransformations,
		BackgroundRemoved:     req.BackgroundRemoved,
		FolderID:              req.FolderID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(updated))
}

// DeleteProject はプロジェクトを削除する。
// DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projectID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, projectID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordProjectDeleted()

	w.WriteHeader(http.StatusNoContent)
}

// ExportProject はエクスポート用の派生URLを発行する。
// POST /api/projects/:id/export
func (h *ProjectHandler) ExportProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projectID := chi.URLParam(r, "id")

	var req exportProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	result, err := h.service.Export(r.Context(), userID, projectID, project.ExportInput{
		Width:   req.Width,
		Height:  req.Height,
		Quality: req.Quality,
		Format:  req.Format,
	})
	if err != nil {
		h.recordQuotaRejection(err)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordExport()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exportResponse{
		URL:              result.URL,
		ExportsThisMonth: result.ExportsThisMonth,
		ExportLimit:      result.ExportLimit,
	})
}

// recordQuotaRejection はクォータ超過エラーをメトリクスに記録する。
func (h *ProjectHandler) recordQuotaRejection(err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	switch apiErr.Code {
	case model.ErrCodeProjectLimit:
		h.metrics.RecordQuotaRejection("project")
	case model.ErrCodeExportLimit:
		h.metrics.RecordQuotaRejection("export")
	}
}

// --- ヘルパー関数 ---

// toProjectResponse はmodel.ProjectからAPIレスポンスに変換する。
func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:                    p.ID,
		Title:                 p.Title,
		Width:                 p.Width,
		Height:                p.Height,
		CanvasState:           p.CanvasState,
		OriginalImageURL:      p.OriginalImageURL,
		CurrentImageURL:       p.CurrentImageURL,
		ThumbnailURL:          p.ThumbnailURL,
		ActiveTransformations: p.ActiveTransformations,
		BackgroundRemoved:     p.BackgroundRemoved,
		FolderID:              p.FolderID,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// invalidRequestError はJSONボディの解析失敗エラーを生成する。
func invalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeProjectNotFound, model.ErrCodeFolderNotFound:
		return http.StatusNotFound
	case model.ErrCodeAccessDenied, model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeProjectLimit, model.ErrCodeExportLimit:
		return http.StatusConflict
	case model.ErrCodeInvalidTitle, model.ErrCodeInvalidCanvas, model.ErrCodeEmptyPatch, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
