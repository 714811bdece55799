// Package folder はプロジェクト整理用フォルダのドメインロジックを提供する。
package folder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/repository"
	"github.com/hitoshi/pixelforge/internal/security"
)

// Service はフォルダ管理のサービス層。
type Service struct {
	folderRepo  repository.FolderRepository
	projectRepo repository.ProjectRepository
	sanitizer   security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	folderRepo repository.FolderRepository,
	projectRepo repository.ProjectRepository,
	sanitizer security.TextSanitizerService,
) *Service {
	return &Service{
		folderRepo:  folderRepo,
		projectRepo: projectRepo,
		sanitizer:   sanitizer,
	}
}

// List はユーザーのフォルダ一覧を作成日時の古い順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Folder, error) {
	folders, err := s.folderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォルダ一覧の取得に失敗しました: %w", err)
	}
	if folders == nil {
		folders = []*model.Folder{}
	}
	return folders, nil
}

// Create はフォルダを作成する。名前はサニタイズされ、空になった場合はエラー。
func (s *Service) Create(ctx context.Context, userID, name string) (*model.Folder, error) {
	sanitized := s.sanitizer.Sanitize(name)
	if sanitized == "" {
		return nil, model.NewInvalidTitleError("フォルダ名が空です")
	}

	folder := &model.Folder{
		ID:        uuid.New().String(),
		Name:      sanitized,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("フォルダの作成に失敗しました: %w", err)
	}

	slog.Info("folder created",
		slog.String("folder_id", folder.ID),
		slog.String("user_id", userID),
	)

	return folder, nil
}

// ListProjects はフォルダ内のプロジェクトを更新日時の新しい順で返す。
func (s *Service) ListProjects(ctx context.Context, userID, folderID string) ([]*model.Project, error) {
	if _, err := s.findOwned(ctx, userID, folderID); err != nil {
		return nil, err
	}

	projects, err := s.projectRepo.ListByFolderID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("フォルダ内プロジェクトの取得に失敗しました: %w", err)
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	return projects, nil
}

// Delete はフォルダを削除する。フォルダ内のプロジェクトは削除されず、
// 未分類（フォルダなし）に戻る。
func (s *Service) Delete(ctx context.Context, userID, folderID string) error {
	if _, err := s.findOwned(ctx, userID, folderID); err != nil {
		return err
	}

	if err := s.folderRepo.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("フォルダの削除に失敗しました: %w", err)
	}

	slog.Info("folder deleted",
		slog.String("folder_id", folderID),
		slog.String("user_id", userID),
	)

	return nil
}

// findOwned はフォルダを取得し所有権を検証する。
func (s *Service) findOwned(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("フォルダの取得に失敗しました: %w", err)
	}
	if folder == nil {
		return nil, model.NewFolderNotFoundError(folderID)
	}
	if folder.UserID != userID {
		return nil, model.NewAccessDeniedError()
	}
	return folder, nil
}
