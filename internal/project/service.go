// Package project はプロジェクトの作成・取得・更新・削除・エクスポートの
// ドメインロジックを提供する。所有権チェックとプランクォータの強制は
// すべてこの層で行い、ハンドラ層はHTTP変換のみを担う。
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/pixelforge/internal/media"
	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/plan"
	"github.com/hitoshi/pixelforge/internal/repository"
	"github.com/hitoshi/pixelforge/internal/security"
)

// URLTransformer はエクスポート用の派生URL生成インターフェース。
type URLTransformer interface {
	TransformURL(src string, opts media.TransformOptions) string
}

// CreateInput はプロジェクト作成の入力。
// 画像URL類はアップロード完了前の作成を許容するため任意。
type CreateInput struct {
	Title            string
	Width            int
	Height           int
	CanvasState      string
	OriginalImageURL string
	CurrentImageURL  string
	ThumbnailURL     string
	FolderID         *string
}

// ExportInput はエクスポートの入力。
type ExportInput struct {
	Width   int
	Height  int
	Quality int
	Format  string // "png", "jpg", "webp" 等
}

// ExportResult はエクスポート結果。URLはメディアサービスの変換付き派生URL。
type ExportResult struct {
	URL              string
	ExportsThisMonth int
	ExportLimit      int // 0は無制限
}

// Service はプロジェクト管理のサービス層。
type Service struct {
	projectRepo repository.ProjectRepository
	folderRepo  repository.FolderRepository
	userRepo    repository.UserRepository
	sanitizer   security.TextSanitizerService
	transformer URLTransformer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	projectRepo repository.ProjectRepository,
	folderRepo repository.FolderRepository,
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizerService,
	transformer URLTransformer,
) *Service {
	return &Service{
		projectRepo: projectRepo,
		folderRepo:  folderRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		transformer: transformer,
	}
}

// List はユーザーのプロジェクトを更新日時の新しい順で返す。
// プロジェクトが1件もない場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	return projects, nil
}

// Create はプロジェクトを作成する。
// タイトルはサニタイズされ、空になった場合はエラー。寸法は正の整数のみ許可。
// 無料プランのクォータチェックはリポジトリのトランザクション内で
// 作成と同時に行われ、上限到達時は何も書き込まずエラーを返す。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Project, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		return nil, model.NewInvalidTitleError("タイトルが空です")
	}
	if input.Width <= 0 || input.Height <= 0 {
		return nil, model.NewInvalidCanvasError(input.Width, input.Height)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	// フォルダ指定がある場合は存在と所有権を確認
	if input.FolderID != nil && *input.FolderID != "" {
		folder, err := s.folderRepo.FindByID(ctx, *input.FolderID)
		if err != nil {
			return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
		}
		if folder == nil {
			return nil, model.NewFolderNotFoundError(*input.FolderID)
		}
		if folder.UserID != userID {
			return nil, model.NewAccessDeniedError()
		}
	}

	now := time.Now()
	project := &model.Project{
		ID:               uuid.New().String(),
		Title:            title,
		UserID:           userID,
		Width:            input.Width,
		Height:           input.Height,
		CanvasState:      input.CanvasState,
		OriginalImageURL: input.OriginalImageURL,
		CurrentImageURL:  input.CurrentImageURL,
		ThumbnailURL:     input.ThumbnailURL,
		FolderID:         input.FolderID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.projectRepo.CreateWithinLimit(ctx, project, plan.ProjectLimit(user.Plan)); err != nil {
		if errors.Is(err, repository.ErrProjectLimitReached) {
			return nil, model.NewProjectLimitError()
		}
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	slog.Info("project created",
		slog.String("project_id", project.ID),
		slog.String("user_id", userID),
	)

	return project, nil
}

// Get は指定IDのプロジェクトを返す。所有者以外からのアクセスは拒否する。
func (s *Service) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	return s.findOwned(ctx, userID, projectID)
}

// Update はプロジェクトを部分更新する。指定されたフィールドのみ変更され、
// updated_atとlast_active_atは常に更新される。
// FolderIDに空文字列を指定した場合はフォルダから外す。
func (s *Service) Update(ctx context.Context, userID, projectID string, patch *model.ProjectPatch) (*model.Project, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, model.NewEmptyPatchError()
	}

	if _, err := s.findOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	if patch.Width != nil || patch.Height != nil {
		w, h := 1, 1
		if patch.Width != nil {
			w = *patch.Width
		}
		if patch.Height != nil {
			h = *patch.Height
		}
		if w <= 0 || h <= 0 {
			return nil, model.NewInvalidCanvasError(w, h)
		}
	}

	// フォルダ移動の場合は移動先の存在と所有権を確認（空文字列はフォルダ解除）
	if patch.FolderID != nil && *patch.FolderID != "" {
		folder, err := s.folderRepo.FindByID(ctx, *patch.FolderID)
		if err != nil {
			return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
		}
		if folder == nil {
			return nil, model.NewFolderNotFoundError(*patch.FolderID)
		}
		if folder.UserID != userID {
			return nil, model.NewAccessDeniedError()
		}
	}

	if err := s.projectRepo.ApplyPatch(ctx, projectID, patch, time.Now()); err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}

	if err := s.userRepo.TouchLastActive(ctx, userID); err != nil {
		return nil, fmt.Errorf("最終アクティブ時刻の更新に失敗しました: %w", err)
	}

	updated, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("更新後プロジェクトの再取得に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}

	return updated, nil
}

// Delete はプロジェクトを削除する。所有者のプロジェクトカウンターの減算は
// リポジトリのトランザクション内で削除と同時に行われる（下限0）。
func (s *Service) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.findOwned(ctx, userID, projectID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID, userID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	slog.Info("project deleted",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
	)

	return nil
}

// Export はプロジェクトの現在画像のエクスポートURLを発行する。
// 無料プランの月間上限チェックとカウンター加算は単一のUPDATE文で
// 原子的に行われ、上限到達時はカウンターを変更せずエラーを返す。
func (s *Service) Export(ctx context.Context, userID, projectID string, input ExportInput) (*ExportResult, error) {
	project, err := s.findOwned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.CurrentImageURL == "" {
		return nil, model.NewProjectNotFoundError(projectID)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	limit := plan.ExportLimit(user.Plan)
	ok, err := s.userRepo.IncrementExportCountWithinLimit(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("エクスポート回数の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewExportLimitError()
	}

	url := s.transformer.TransformURL(project.CurrentImageURL, media.TransformOptions{
		Width:   input.Width,
		Height:  input.Height,
		Quality: input.Quality,
		Format:  input.Format,
	})

	slog.Info("project exported",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
		slog.String("format", input.Format),
	)

	return &ExportResult{
		URL:              url,
		ExportsThisMonth: user.ExportsThisMonth + 1,
		ExportLimit:      limit,
	}, nil
}

// findOwned はプロジェクトを取得し所有権を検証する。
// 存在しない場合は未検出エラー、所有者以外の場合はアクセス拒否エラーを返す。
func (s *Service) findOwned(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	if project.UserID != userID {
		return nil, model.NewAccessDeniedError()
	}
	return project, nil
}
