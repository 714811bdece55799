// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/plan"
	"github.com/hitoshi/pixelforge/internal/repository"
)

// Usage はユーザーのプラン情報と使用量、および利用可能な機能をまとめた
// ドメインオブジェクト。ダッシュボードとエディタのUI判定に使用される。
type Usage struct {
	Plan             model.Plan
	ProjectsUsed     int
	ProjectLimit     int // 0は無制限
	ExportsThisMonth int
	ExportLimit      int // 0は無制限
	CanCreateProject bool
	CanExport        bool
	RestrictedTools  []string
}

// Service はユーザー管理のサービス層。
// プロファイル取得、プラン使用量の算出、退会処理を提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// GetProfile は指定IDのユーザーを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// GetUsage はユーザーのプランと使用量からUI判定用の使用状況を算出する。
// ここでの判定はUIの事前表示用で、権威はミューテーション時の再チェックにある。
func (s *Service) GetUsage(ctx context.Context, userID string) (*Usage, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Usage{
		Plan:             user.Plan,
		ProjectsUsed:     user.ProjectsUsed,
		ProjectLimit:     plan.ProjectLimit(user.Plan),
		ExportsThisMonth: user.ExportsThisMonth,
		ExportLimit:      plan.ExportLimit(user.Plan),
		CanCreateProject: plan.CanCreateProject(user.Plan, user.ProjectsUsed),
		CanExport:        plan.CanExport(user.Plan, user.ExportsThisMonth),
		RestrictedTools:  plan.RestrictedTools(user.Plan),
	}, nil
}

// HasToolAccess は指定ユーザーのプランでツールが利用可能かを返す。
func (s *Service) HasToolAccess(ctx context.Context, userID, toolID string) (bool, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return plan.HasToolAccess(user.Plan, toolID), nil
}

// Withdraw はユーザーの退会処理を実行する。
// セッションを明示的に削除した後、ユーザーを削除する。
// identities, folders, projectsはFK制約のCASCADEで同時に削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除（退会操作の直後に他端末のログインを無効化する）
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. ユーザーを削除（CASCADE: identities, folders, projects）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
