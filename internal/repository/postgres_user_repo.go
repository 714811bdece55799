package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, image_url, plan, projects_used, exports_this_month,
		        exports_reset_at, created_at, last_active_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.ImageURL, &user.Plan,
		&user.ProjectsUsed, &user.ExportsThisMonth, &user.ExportsResetAt,
		&user.CreatedAt, &user.LastActiveAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, image_url, plan, projects_used,
		                    exports_this_month, exports_reset_at, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.Name, user.ImageURL, user.Plan,
		user.ProjectsUsed, user.ExportsThisMonth, user.ExportsResetAt,
		user.CreatedAt, user.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// identityを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// execer はsql.DBとsql.Txの両方で使えるクエリ実行インターフェース。
// プロジェクトリポジトリのトランザクション内からカウンター更新を共有するために定義する。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// incrementProjectsUsed はprojects_usedを+1し、last_active_atを更新する。
// 単文のUPDATEのためストアの原子的フィールドパッチ粒度で直列化される。
func incrementProjectsUsed(ctx context.Context, ex execer, userID string) error {
	result, err := ex.ExecContext(ctx,
		`UPDATE users
		 SET projects_used = projects_used + 1, last_active_at = now()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment projects_used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// decrementProjectsUsed はprojects_usedを-1（下限0）し、last_active_atを更新する。
func decrementProjectsUsed(ctx context.Context, ex execer, userID string) error {
	result, err := ex.ExecContext(ctx,
		`UPDATE users
		 SET projects_used = GREATEST(projects_used - 1, 0), last_active_at = now()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement projects_used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// IncrementProjectCount はprojects_usedを原子的に+1し、last_active_atを更新する。
func (r *PostgresUserRepo) IncrementProjectCount(ctx context.Context, userID string) error {
	return incrementProjectsUsed(ctx, r.db, userID)
}

// DecrementProjectCount はprojects_usedを原子的に-1し（下限0）、last_active_atを更新する。
func (r *PostgresUserRepo) DecrementProjectCount(ctx context.Context, userID string) error {
	return decrementProjectsUsed(ctx, r.db, userID)
}

// IncrementExportCountWithinLimit はexports_this_monthが上限未満の場合のみ原子的に+1する。
// WHERE句に上限条件を含めることで、読み取り後書き込みの競合を単文で解消する。
// limitが0の場合は無制限として扱う。
func (r *PostgresUserRepo) IncrementExportCountWithinLimit(ctx context.Context, userID string, limit int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET exports_this_month = exports_this_month + 1, last_active_at = now()
		 WHERE id = $1 AND ($2 = 0 OR exports_this_month < $2)`,
		userID, limit,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment exports_this_month: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// TouchLastActive はlast_active_atを現在時刻に更新する。
func (r *PostgresUserRepo) TouchLastActive(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch last_active_at: %w", err)
	}
	return nil
}

// ResetMonthlyExports はexports_reset_atの月が現在と異なるユーザーの
// exports_this_monthを0に戻す。月次メンテナンスワーカーから呼ばれる。
func (r *PostgresUserRepo) ResetMonthlyExports(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET exports_this_month = 0, exports_reset_at = $1
		 WHERE date_trunc('month', exports_reset_at) < date_trunc('month', $1::timestamptz)`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset monthly exports: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// identities, sessions, folders, projectsはON DELETE CASCADEで同時に削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
