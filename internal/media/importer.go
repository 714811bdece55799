package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hitoshi/pixelforge/internal/security"
)

// Importer はURL指定でのリモート画像取り込みを提供する。
// 取得先はユーザー入力のURLであるため、SSRFガードによる事前検証と
// safeurlクライアントによるDial時検証の二段構えで保護する。
type Importer struct {
	guard   security.SSRFGuardService
	logger  *slog.Logger
	timeout time.Duration
	maxSize int64
}

// NewImporter はImporterの新しいインスタンスを生成する。
// maxSizeは取得を許可する最大バイト数。
func NewImporter(guard security.SSRFGuardService, logger *slog.Logger, timeout time.Duration, maxSize int64) *Importer {
	return &Importer{
		guard:   guard,
		logger:  logger,
		timeout: timeout,
		maxSize: maxSize,
	}
}

// importableContentTypes は取り込みを許可するContent-Type。
var importableContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Fetch は指定URLから画像バイナリを取得する。
// 戻り値のファイル名はURLパスの末尾要素（空の場合は"import"）。
func (i *Importer) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := i.guard.ValidateURL(rawURL); err != nil {
		return nil, "", fmt.Errorf("URLの検証に失敗しました: %w", err)
	}

	client := i.guard.NewSafeClient(i.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Pixelforge/1.0 Image Importer")

	resp, err := client.Do(req)
	if err != nil {
		i.logger.Warn("リモート画像の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, "", fmt.Errorf("リモート画像の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("リモートサーバーがステータス %d を返しました", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !importableContentTypes[contentType] {
		return nil, "", fmt.Errorf("サポートされないContent-Typeです: %s", contentType)
	}

	// maxSize+1まで読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(data)) > i.maxSize {
		return nil, "", fmt.Errorf("画像サイズが上限（%dバイト）を超えています", i.maxSize)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("レスポンスボディが空です")
	}

	return data, fileNameFromURL(rawURL), nil
}

// fileNameFromURL はURLパスの末尾要素をファイル名として返す。
func fileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "import"
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "import"
	}
	return name
}
