package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/pixelforge/internal/media"
	"github.com/hitoshi/pixelforge/internal/metrics"
	"github.com/hitoshi/pixelforge/internal/middleware"
	"github.com/hitoshi/pixelforge/internal/model"
)

// maxUploadSize はアップロードを許可する最大バイト数（20MB）。
const maxUploadSize = 20 << 20

// allowedUploadContentTypes はアップロードを許可する画像のContent-Type。
// 実値はマジックバイトのスニッフィングで判定する（クライアント申告は信用しない）。
var allowedUploadContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImportFetcher はURL指定でのリモート画像取得インターフェース。
type ImportFetcher interface {
	// Fetch は指定URLから画像バイナリとファイル名を取得する。
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// ThumbnailBuilder は保存済み画像からダッシュボード表示用サムネイルの
// 派生URLを生成するインターフェース。
type ThumbnailBuilder interface {
	ThumbnailURL(src string) string
}

// UploadHandler は画像アップロードのHTTPハンドラー。
// アップロード本体はメディアサービスに委譲し、ここでは検証と
// 保存パスの組み立てのみを行う。
type UploadHandler struct {
	uploader media.Uploader
	fetcher  ImportFetcher
	thumbs   ThumbnailBuilder
	metrics  metrics.MetricsCollector
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(uploader media.Uploader, fetcher ImportFetcher, thumbs ThumbnailBuilder, collector metrics.MetricsCollector) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		fetcher:  fetcher,
		thumbs:   thumbs,
		metrics:  collector,
	}
}

// importImageRequest はURL取り込みリクエストのボディ。
type importImageRequest struct {
	URL string `json:"url"`
}

// uploadResponse はアップロード結果のAPIレスポンス。
// フィールド名はメディアサービスの規約（キャメルケース）に合わせる。
type uploadResponse struct {
	Success      bool   `json:"success"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FileID       string `json:"fileId"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
	Name         string `json:"name"`
}

// Upload はmultipart形式の画像アップロードを処理する。
// POST /api/media/upload
//
// フォームフィールド:
//   - file:     画像バイナリ（必須）
//   - fileName: 保存名のヒント（省略時はアップロードファイル名）
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.metrics.RecordUploadFailure("parse")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "multipartフォームの解析に失敗しました。",
			Category: "media",
			Action:   "ファイルサイズは20MB以下にしてください。",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.metrics.RecordUploadFailure("missing_file")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "fileフィールドがありません。",
			Category: "media",
			Action:   "画像ファイルを指定してください。",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.metrics.RecordUploadFailure("read")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "ファイルの読み取りに失敗しました。",
			Category: "media",
			Action:   "再度お試しください。",
		})
		return
	}

	if contentType := http.DetectContentType(data); !allowedUploadContentTypes[contentType] {
		h.metrics.RecordUploadFailure("content_type")
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "サポートされない画像形式です。",
			Category: "media",
			Action:   "JPEG・PNG・GIF・WebP形式の画像を指定してください。",
		})
		return
	}

	fileName := r.FormValue("fileName")
	if fileName == "" {
		fileName = header.Filename
	}

	h.doUpload(w, r, userID, data, fileName, start)
}

// ImportFromURL はリモートURLから画像を取り込み、メディアサービスへ転送する。
// POST /api/media/import
//
// 取得先はSSRFガードで検証される。プライベートIPやローカルホストは拒否。
func (h *UploadHandler) ImportFromURL(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req importImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestError())
		return
	}
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	start := time.Now()

	data, fileName, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		h.metrics.RecordUploadFailure("fetch")
		// SSRFガードによる拒否はAPIErrorとして返る
		handleServiceError(w, err)
		return
	}

	h.doUpload(w, r, userID, data, fileName, start)
}

// doUpload はメディアサービスへの転送とレスポンスの書き込みを行う。
func (h *UploadHandler) doUpload(w http.ResponseWriter, r *http.Request, userID string, data []byte, fileName string, start time.Time) {
	folder := "/projects/" + userID
	result, err := h.uploader.Upload(r.Context(), data, uniqueFileName(fileName), folder)
	if err != nil {
		// 上流の詳細はログのみ。レスポンスには汎用メッセージだけを返す
		slog.Error("メディアサービスへのアップロードに失敗しました", "error", err, "user_id", userID)
		h.metrics.RecordUploadFailure("upstream")
		handleServiceError(w, model.NewUploadFailedError())
		return
	}

	h.metrics.RecordUploadSuccess()
	h.metrics.RecordUploadLatency(time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		Success: true,
		URL:     result.URL,
		// サムネイルは保存済みURLからの派生で生成する。
		// アップロードAPIが返すthumbnailUrlはサービス既定のサイズのため使わない
		ThumbnailURL: h.thumbs.ThumbnailURL(result.URL),
		FileID:       result.FileID,
		Width:        result.Width,
		Height:       result.Height,
		Size:         result.Size,
		Name:         result.Name,
	})
}

// uniqueFileName はパストラバーサルを除去し、タイムスタンプで一意化した名前を返す。
func uniqueFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	// メディアサービスのパス規約外の文字を置換
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return fmt.Sprintf("%d_%s", time.Now().UnixMilli(), base)
}
