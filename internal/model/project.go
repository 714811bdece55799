// Package model はドメインモデルを定義する。
package model

import "time"

// Project は画像編集セッションを表す。
// CanvasState は編集サーフェス（フロントエンド）が所有するシリアライズ済み
// キャンバスJSONで、サーバー側では解釈せず不透明なまま保存する。
// UserID は作成時に確定し、以後変更されない。
type Project struct {
	ID     string
	Title  string
	UserID string
	Width  int
	Height int

	CanvasState string

	// 画像パイプライン。アップロード完了までは空のことがある。
	OriginalImageURL string
	CurrentImageURL  string
	ThumbnailURL     string

	// メディアサービスの変換パラメータ文字列（不透明）。
	ActiveTransformations string

	BackgroundRemoved bool

	// フォルダ整理用。未分類の場合はnil。
	FolderID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectPatch は部分更新で変更するフィールドを表す。
// nilのフィールドは変更せず既存値を維持する。
type ProjectPatch struct {
	CanvasState           *string
	Width                 *int
	Height                *int
	CurrentImageURL       *string
	ThumbnailURL          *string
	ActiveTransformations *string
	BackgroundRemoved     *bool
	FolderID              *string
}

// IsEmpty はパッチが1フィールドも指定していない場合にtrueを返す。
func (p *ProjectPatch) IsEmpty() bool {
	return p.CanvasState == nil &&
		p.Width == nil &&
		p.Height == nil &&
		p.CurrentImageURL == nil &&
		p.ThumbnailURL == nil &&
		p.ActiveTransformations == nil &&
		p.BackgroundRemoved == nil &&
		p.FolderID == nil
}

// Folder はプロジェクト整理用のフォルダを表す。
// 所有権ルールはProjectと同一（作成時に確定、以後不変）。
type Folder struct {
	ID        string
	Name      string
	UserID    string
	CreatedAt time.Time
}
