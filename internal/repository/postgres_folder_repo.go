package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pixelforge/internal/model"
)

// PostgresFolderRepo はPostgreSQLを使用したフォルダリポジトリ。
type PostgresFolderRepo struct {
	db *sql.DB
}

// NewPostgresFolderRepo はPostgresFolderRepoを生成する。
func NewPostgresFolderRepo(db *sql.DB) *PostgresFolderRepo {
	return &PostgresFolderRepo{db: db}
}

// FindByID は指定IDのフォルダを取得する。見つからない場合はnilを返す。
func (r *PostgresFolderRepo) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	folder := &model.Folder{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at FROM folders WHERE id = $1`,
		id,
	).Scan(&folder.ID, &folder.Name, &folder.UserID, &folder.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find folder by ID: %w", err)
	}

	return folder, nil
}

// ListByUserID はユーザーのフォルダ一覧を作成日時昇順で返す。
func (r *PostgresFolderRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, user_id, created_at FROM folders
		 WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := []*model.Folder{}
	for rows.Next() {
		folder := &model.Folder{}
		if err := rows.Scan(&folder.ID, &folder.Name, &folder.UserID, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}
	return folders, nil
}

// Create はフォルダを作成する。
func (r *PostgresFolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		folder.ID, folder.Name, folder.UserID, folder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

// Delete は指定IDのフォルダを削除する。
// フォルダ内のプロジェクトはFK制約（ON DELETE SET NULL）により未分類に戻る。
func (r *PostgresFolderRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("folder not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ FolderRepository = (*PostgresFolderRepo)(nil)
