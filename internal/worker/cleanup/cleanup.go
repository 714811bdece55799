// Package cleanup は定期メンテナンスジョブを提供する。
// 期限切れセッションの削除と、月替わりしたユーザーの
// 月間エクスポートカウンターのリセットを定期バッチで実行する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/pixelforge/internal/repository"
)

// Job は定期メンテナンスジョブ。
// ティッカー駆動のバッチとして設計されており、冪等な処理を保証する。
type Job struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	logger      *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(sessionRepo repository.SessionRepository, userRepo repository.UserRepository, logger *slog.Logger) *Job {
	return &Job{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("メンテナンスジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("メンテナンスジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("メンテナンスジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("メンテナンスジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はメンテナンス処理を1回実行する。
// 冪等: 処理対象がない場合でもエラーにならない。
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()
	now := time.Now()

	// 1. 期限切れセッションの削除
	deletedSessions, err := j.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	// 2. 月替わりユーザーのエクスポートカウンターのリセット
	resetUsers, err := j.userRepo.ResetMonthlyExports(ctx, now)
	if err != nil {
		return fmt.Errorf("月間エクスポートのリセットに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("メンテナンスジョブが完了しました",
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int64("reset_users", resetUsers),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
