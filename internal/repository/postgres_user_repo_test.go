package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// PostgresUserRepoがUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Userモデルのフィールドが正しく構築されることを検証
func TestPostgresUserRepo_UserModel_Fields(t *testing.T) {
	now := time.Now()
	user := &model.User{
		ID:           "user-1",
		Email:        "taro@example.com",
		Name:         "太郎",
		Plan:         model.PlanFree,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if user.Plan != model.PlanFree {
		t.Errorf("user.Plan = %q, want %q", user.Plan, model.PlanFree)
	}
	if user.ProjectsUsed != 0 {
		t.Errorf("user.ProjectsUsed = %d, want 0", user.ProjectsUsed)
	}
	if user.ExportsThisMonth != 0 {
		t.Errorf("user.ExportsThisMonth = %d, want 0", user.ExportsThisMonth)
	}
}
