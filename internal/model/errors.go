// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, folder, media, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeProjectNotFound = "PROJECT_NOT_FOUND"
	ErrCodeFolderNotFound  = "FOLDER_NOT_FOUND"
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeProjectLimit    = "PROJECT_LIMIT"
	ErrCodeExportLimit     = "EXPORT_LIMIT"
	ErrCodeInvalidTitle    = "INVALID_TITLE"
	ErrCodeInvalidCanvas   = "INVALID_CANVAS"
	ErrCodeEmptyPatch      = "EMPTY_PATCH"
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeSSRFBlocked     = "SSRF_BLOCKED"
	ErrCodeUploadFailed    = "UPLOAD_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewFolderNotFoundError はフォルダ未検出エラーを生成する。
func NewFolderNotFoundError(folderID string) *APIError {
	return &APIError{
		Code:     ErrCodeFolderNotFound,
		Message:  fmt.Sprintf("指定されたフォルダが見つかりません: %s", folderID),
		Category: "folder",
		Action:   "フォルダIDを確認してください。",
	}
}

// NewAccessDeniedError は所有者以外からのアクセスに対するエラーを生成する。
func NewAccessDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  "このリソースへのアクセス権限がありません。",
		Category: "auth",
		Action:   "自分が作成したプロジェクトのみ操作できます。",
	}
}

// NewProjectLimitError は無料プランのプロジェクト数上限エラーを生成する。
func NewProjectLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeProjectLimit,
		Message:  "無料プランで作成できるプロジェクトは5件までです。",
		Category: "project",
		Action:   "Proプランにアップグレードすると無制限に作成できます。",
	}
}

// NewExportLimitError は無料プランの月間エクスポート上限エラーを生成する。
func NewExportLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeExportLimit,
		Message:  "無料プランの月間エクスポートは20回までです。",
		Category: "project",
		Action:   "Proプランにアップグレードすると無制限にエクスポートできます。",
	}
}

// NewInvalidTitleError は無効なタイトルエラーを生成する。
func NewInvalidTitleError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTitle,
		Message:  fmt.Sprintf("無効なタイトルです: %s", reason),
		Category: "validation",
		Action:   "1文字以上のタイトルを入力してください。",
	}
}

// NewInvalidCanvasError は無効なキャンバス寸法エラーを生成する。
func NewInvalidCanvasError(width, height int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCanvas,
		Message:  fmt.Sprintf("無効なキャンバス寸法です: %dx%d", width, height),
		Category: "validation",
		Action:   "幅・高さには正の整数を指定してください。",
	}
}

// NewEmptyPatchError は更新フィールドが1つも指定されていない場合のエラーを生成する。
func NewEmptyPatchError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyPatch,
		Message:  "更新するフィールドが指定されていません。",
		Category: "validation",
		Action:   "変更するフィールドを1つ以上指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewUploadFailedError はメディアサービスへのアップロード失敗エラーを生成する。
// 上流サービスの内部情報を漏らさないよう、詳細はログのみに記録する。
func NewUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "画像のアップロードに失敗しました。",
		Category: "media",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
