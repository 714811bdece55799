// Package media は外部メディアサービス（ImageKit互換API）との連携を提供する。
// バイナリのアップロードと、変換パラメータ付き派生URLの生成を含む。
// 本体は画像処理を一切行わず、URLの受け渡しのみを扱う。
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// UploadResult はアップロードAPIのレスポンスを表す。
type UploadResult struct {
	FileID       string `json:"fileId"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
}

// Uploader はメディアサービスへのアップロードインターフェース。
// ハンドラーのテストでモックに差し替えるために定義する。
type Uploader interface {
	// Upload はバイナリをメディアサービスへアップロードし、保存先情報を返す。
	Upload(ctx context.Context, data []byte, fileName, folder string) (*UploadResult, error)
}

// Client はImageKit互換メディアAPIのクライアント。
// 認可はプライベートキーのBasic認証（キーがユーザー名、パスワードは空）。
type Client struct {
	httpClient     *http.Client
	logger         *slog.Logger
	privateKey     string
	uploadEndpoint string // テスト用にエンドポイントを差し替え可能
	urlEndpoint    string
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	PrivateKey     string
	UploadEndpoint string
	URLEndpoint    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	return &Client{
		httpClient:     httpClient,
		logger:         logger,
		privateKey:     config.PrivateKey,
		uploadEndpoint: config.UploadEndpoint,
		urlEndpoint:    strings.TrimRight(config.URLEndpoint, "/"),
	}
}

// Upload はバイナリをメディアサービスへアップロードする。
// fileNameには呼び出し側でサニタイズ・一意化済みの名前を渡すこと。
// 失敗時はエラーを返す（呼び出し元が汎用エラーへの変換を判断する）。
func (c *Client) Upload(ctx context.Context, data []byte, fileName, folder string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("アップロードデータが空です")
	}

	// multipartフォームの構築
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("multipartフォームの構築に失敗しました: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("ファイルデータの書き込みに失敗しました: %w", err)
	}

	if err := mw.WriteField("fileName", fileName); err != nil {
		return nil, fmt.Errorf("fileNameフィールドの書き込みに失敗しました: %w", err)
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return nil, fmt.Errorf("folderフィールドの書き込みに失敗しました: %w", err)
	}
	// パス衝突はアップロード前のタイムスタンプ付与で回避済み
	if err := mw.WriteField("useUniqueFileName", "false"); err != nil {
		return nil, fmt.Errorf("useUniqueFileNameフィールドの書き込みに失敗しました: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipartフォームのクローズに失敗しました: %w", err)
	}

	// HTTPリクエスト作成
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadEndpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(c.privateKey, "")

	// HTTPリクエスト実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("メディアサービスへのアップロードに失敗しました",
			slog.String("error", err.Error()),
			slog.String("file_name", fileName),
		)
		return nil, err
	}
	defer resp.Body.Close()

	// HTTPステータスチェック
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("メディアサービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("file_name", fileName),
			slog.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("メディアサービスがステータス %d を返しました", resp.StatusCode)
	}

	// JSONデコード
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("メディアサービスのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &result, nil
}

// TransformOptions は派生URL生成の変換パラメータ。
// ゼロ値のフィールドはパラメータに含めない。
type TransformOptions struct {
	Width    int
	Height   int
	CropMode string // 例: "maintain_ratio"
	Quality  int    // 1〜100
	Format   string // 例: "png", "jpg", "webp"
}

// TransformURL はソースURLに変換パラメータを付与した派生URLを返す。
// 変換はメディアサービス側で実行される（本体は画像処理を行わない）。
// パラメータが1つも指定されていない場合はソースURLをそのまま返す。
func (c *Client) TransformURL(src string, opts TransformOptions) string {
	params := []string{}
	if opts.Width > 0 {
		params = append(params, "w-"+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		params = append(params, "h-"+strconv.Itoa(opts.Height))
	}
	if opts.CropMode != "" {
		params = append(params, "c-"+opts.CropMode)
	}
	if opts.Quality > 0 {
		params = append(params, "q-"+strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" {
		params = append(params, "f-"+opts.Format)
	}
	if len(params) == 0 {
		return src
	}

	tr := "tr=" + strings.Join(params, ",")
	if strings.Contains(src, "?") {
		return src + "&" + tr
	}
	return src + "?" + tr
}

// ThumbnailURL はダッシュボード表示用サムネイルの派生URLを返す。
// 400x300、アスペクト比維持、品質80で生成する。
func (c *Client) ThumbnailURL(src string) string {
	return c.TransformURL(src, TransformOptions{
		Width:    400,
		Height:   300,
		CropMode: "maintain_ratio",
		Quality:  80,
	})
}

// compile-time interface check
var _ Uploader = (*Client)(nil)
