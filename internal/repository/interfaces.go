// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// ErrProjectLimitReached はプロジェクト作成トランザクション内のクォータ
// 再チェックで上限超過を検出した場合に返されるセンチネルエラー。
// サービス層がmodel.APIErrorに変換する。
var ErrProjectLimitReached = errors.New("project limit reached")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// 初回サインイン時のユーザープロビジョニング（ensureUserRecord）で使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// IncrementProjectCount はprojects_usedを原子的に+1し、last_active_atを更新する。
	IncrementProjectCount(ctx context.Context, userID string) error

	// DecrementProjectCount はprojects_usedを原子的に-1し（下限0）、last_active_atを更新する。
	DecrementProjectCount(ctx context.Context, userID string) error

	// IncrementExportCountWithinLimit はexports_this_monthが上限未満の場合のみ
	// 原子的に+1する。limitが0の場合は無制限として扱う。
	// 加算できた場合はtrueを、上限到達により加算しなかった場合はfalseを返す。
	IncrementExportCountWithinLimit(ctx context.Context, userID string, limit int) (bool, error)

	// TouchLastActive はlast_active_atを現在時刻に更新する。
	TouchLastActive(ctx context.Context, userID string) error

	// ResetMonthlyExports はexports_reset_atの月がnowの月と異なるユーザーの
	// exports_this_monthを0に戻し、リセットした行数を返す。
	ResetMonthlyExports(ctx context.Context, now time.Time) (int64, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// identities, sessions, folders, projectsはFK制約のCASCADEで同時に削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除した行数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// ListByUserID はユーザーの全プロジェクトをupdated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Project, error)

	// CountByUserID はユーザーの生存プロジェクト数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// ListByFolderID はフォルダ内のプロジェクトをupdated_at降順で返す。
	ListByFolderID(ctx context.Context, folderID string) ([]*model.Project, error)

	// CreateWithinLimit はクォータ再チェック・insert・projects_usedの+1を
	// 同一トランザクションで実行する。maxProjectsが0の場合は無制限として扱う。
	// トランザクション内のカウントがmaxProjects以上の場合はErrProjectLimitReachedを返し、
	// 何も書き込まない。
	CreateWithinLimit(ctx context.Context, project *model.Project, maxProjects int) error

	// ApplyPatch は指定フィールドのみを更新する部分更新を行う。
	// nilフィールドは変更されない。updated_atは常にupdatedAtに更新される。
	ApplyPatch(ctx context.Context, projectID string, patch *model.ProjectPatch, updatedAt time.Time) error

	// Delete はプロジェクト削除とprojects_usedの-1（下限0）を
	// 同一トランザクションで実行する。
	Delete(ctx context.Context, projectID, ownerID string) error
}

// FolderRepository はフォルダデータの永続化インターフェース。
type FolderRepository interface {
	// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Folder, error)

	// ListByUserID はユーザーのフォルダ一覧を作成日時昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Folder, error)

	// Create はフォルダを作成する。
	Create(ctx context.Context, folder *model.Folder) error

	// Delete は指定IDのフォルダを削除する。
	// フォルダ内のプロジェクトはFK制約によりfolder_idがNULLに戻る。
	Delete(ctx context.Context, id string) error
}
