package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, title, user_id, width, height, canvas_state,
	original_image_url, current_image_url, thumbnail_url,
	active_transformations, background_removed, folder_id,
	created_at, updated_at`

// scanProject は1行分のプロジェクトをスキャンする。
func scanProject(row interface{ Scan(dest ...any) error }) (*model.Project, error) {
	p := &model.Project{}
	var folderID sql.NullString
	err := row.Scan(&p.ID, &p.Title, &p.UserID, &p.Width, &p.Height, &p.CanvasState,
		&p.OriginalImageURL, &p.CurrentImageURL, &p.ThumbnailURL,
		&p.ActiveTransformations, &p.BackgroundRemoved, &folderID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		p.FolderID = &folderID.String
	}
	return p, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return p, nil
}

// ListByUserID はユーザーの全プロジェクトをupdated_at降順（最近更新順）で返す。
// by_user_updatedインデックスを使用する。
func (r *PostgresProjectRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// ListByFolderID はフォルダ内のプロジェクトをupdated_at降順で返す。
func (r *PostgresProjectRepo) ListByFolderID(ctx context.Context, folderID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE folder_id = $1 ORDER BY updated_at DESC`,
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by folder: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

func collectProjects(rows *sql.Rows) ([]*model.Project, error) {
	projects := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// CountByUserID はユーザーの生存プロジェクト数を返す。
func (r *PostgresProjectRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// CreateWithinLimit はクォータ再チェック・insert・projects_usedの+1を
// 同一トランザクションで実行する。maxProjectsが0の場合は無制限として扱う。
// トランザクション内のカウントとinsertは同一スナップショットを観測するため、
// 1回の呼び出しは全体が成功するか何も書き込まないかのいずれかになる。
// 同一ユーザーの並行作成同士の競合はストアの分離レベルに委ねる（§容認済みレース）。
func (r *PostgresProjectRepo) CreateWithinLimit(ctx context.Context, project *model.Project, maxProjects int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// クォータ再チェック（サーバー側が権威）
	if maxProjects > 0 {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM projects WHERE user_id = $1`,
			project.UserID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count projects in transaction: %w", err)
		}
		if count >= maxProjects {
			return ErrProjectLimitReached
		}
	}

	var folderID any
	if project.FolderID != nil {
		folderID = *project.FolderID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, user_id, width, height, canvas_state,
		                       original_image_url, current_image_url, thumbnail_url,
		                       active_transformations, background_removed, folder_id,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		project.ID, project.Title, project.UserID, project.Width, project.Height,
		project.CanvasState, project.OriginalImageURL, project.CurrentImageURL,
		project.ThumbnailURL, project.ActiveTransformations, project.BackgroundRemoved,
		folderID, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	if err := incrementProjectsUsed(ctx, tx, project.UserID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ApplyPatch は指定されたフィールドのみを更新する部分更新を行う。
// nilのフィールドは変更されない。updated_atは常に更新される。
func (r *PostgresProjectRepo) ApplyPatch(ctx context.Context, projectID string, patch *model.ProjectPatch, updatedAt time.Time) error {
	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.CanvasState != nil {
		add("canvas_state", *patch.CanvasState)
	}
	if patch.Width != nil {
		add("width", *patch.Width)
	}
	if patch.Height != nil {
		add("height", *patch.Height)
	}
	if patch.CurrentImageURL != nil {
		add("current_image_url", *patch.CurrentImageURL)
	}
	if patch.ThumbnailURL != nil {
		add("thumbnail_url", *patch.ThumbnailURL)
	}
	if patch.ActiveTransformations != nil {
		add("active_transformations", *patch.ActiveTransformations)
	}
	if patch.BackgroundRemoved != nil {
		add("background_removed", *patch.BackgroundRemoved)
	}
	if patch.FolderID != nil {
		// 空文字列はフォルダからの取り外しを意味する
		if *patch.FolderID == "" {
			sets = append(sets, "folder_id = NULL")
		} else {
			add("folder_id", *patch.FolderID)
		}
	}

	args = append(args, projectID)
	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// Delete はプロジェクト削除と所有者のprojects_usedの-1（下限0）を
// 同一トランザクションで実行する。
func (r *PostgresProjectRepo) Delete(ctx context.Context, projectID, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}

	if err := decrementProjectsUsed(ctx, tx, ownerID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
