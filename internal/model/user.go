// Package model はドメインモデルを定義する。
package model

import "time"

// Plan はユーザーのサブスクリプションプランを表す。
type Plan string

const (
	// PlanFree は無料プラン。プロジェクト数とエクスポート回数に上限がある。
	PlanFree Plan = "free"
	// PlanPro はProプラン。プロジェクト数・エクスポート回数は無制限。
	PlanPro Plan = "pro"
)

// User はサービス利用ユーザーを表す。
// ProjectsUsed は所有する生存プロジェクト数と一致するカウンターで、
// プロジェクトの作成・削除と同一トランザクション内で更新される。
// ExportsThisMonth は当月のエクスポート回数。月替わりでワーカーがリセットする。
type User struct {
	ID               string
	Email            string
	Name             string
	ImageURL         string
	Plan             Plan
	ProjectsUsed     int
	ExportsThisMonth int
	ExportsResetAt   time.Time
	CreatedAt        time.Time
	LastActiveAt     time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
