package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pixelforge/internal/middleware"
	"github.com/hitoshi/pixelforge/internal/model"
)

// FolderServiceInterface はフォルダハンドラーが必要とするサービスインターフェース。
type FolderServiceInterface interface {
	// List はユーザーのフォルダ一覧を返す。
	List(ctx context.Context, userID string) ([]*model.Folder, error)
	// Create はフォルダを作成する。
	Create(ctx context.Context, userID, name string) (*model.Folder, error)
	// ListProjects はフォルダ内のプロジェクト一覧を返す。
	ListProjects(ctx context.Context, userID, folderID string) ([]*model.Project, error)
	// Delete はフォルダを削除する。中のプロジェクトは未分類に戻る。
	Delete(ctx context.Context, userID, folderID string) error
}

// FolderHandler はフォルダ管理のHTTPハンドラー。
type FolderHandler struct {
	service FolderServiceInterface
}

// NewFolderHandler はFolderHandlerを生成する。
func NewFolderHandler(service FolderServiceInterface) *FolderHandler {
	return &FolderHandler{service: service}
}

// createFolderRequest はフォルダ作成リクエストのボディ。
type createFolderRequest struct {
	Name string `json:"name"`
}

// folderResponse はフォルダ情報のAPIレスポンス。
type folderResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFolders はユーザーのフォルダ一覧を返す。
// GET /api/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	folders, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]folderResponse, len(folders))
	for i, f := range folders {
		results[i] = toFolderResponse(f)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"folders": results,
	})
}

// CreateFolder はフォルダを作成する。
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}

	folder, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFolderResponse(folder))
}

// ListFolderProjects はフォルダ内のプロジェクト一覧を返す。
// GET /api/folders/:id/projects
func (h *FolderHandler) ListFolderProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	folderID := chi.URLParam(r, "id")

	projects, err := h.service.ListProjects(r.Context(), userID, folderID)
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

// DeleteFolder はフォルダを削除する。
// DELETE /api/folders/:id
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	folderID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, folderID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toFolderResponse はmodel.FolderからAPIレスポンスに変換する。
func toFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{
		ID:        f.ID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
	}
}
