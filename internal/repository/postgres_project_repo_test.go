package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
)

// PostgresProjectRepoがProjectRepositoryインターフェースを満たすことを検証
func TestPostgresProjectRepo_ImplementsInterface(t *testing.T) {
	var _ ProjectRepository = (*PostgresProjectRepo)(nil)
}

// NewPostgresProjectRepoが正しく初期化されることを検証
func TestNewPostgresProjectRepo_Initializes(t *testing.T) {
	repo := NewPostgresProjectRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Projectモデルのフィールドが正しく構築されることを検証
func TestPostgresProjectRepo_ProjectModel_Fields(t *testing.T) {
	now := time.Now()
	p := &model.Project{
		ID:        "project-1",
		Title:     "夏の旅行写真",
		UserID:    "user-1",
		Width:     1920,
		Height:    1080,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if p.ID != "project-1" {
		t.Errorf("p.ID = %q, want %q", p.ID, "project-1")
	}
	if p.UserID != "user-1" {
		t.Errorf("p.UserID = %q, want %q", p.UserID, "user-1")
	}
	if p.FolderID != nil {
		t.Error("FolderID should be nil by default")
	}
	if p.BackgroundRemoved {
		t.Error("BackgroundRemoved should be false by default")
	}
}

// ProjectPatchのIsEmptyが空パッチを正しく判定することを検証
func TestProjectPatch_IsEmpty(t *testing.T) {
	empty := &model.ProjectPatch{}
	if !empty.IsEmpty() {
		t.Error("empty patch should report IsEmpty")
	}

	width := 500
	patch := &model.ProjectPatch{Width: &width}
	if patch.IsEmpty() {
		t.Error("patch with width should not report IsEmpty")
	}
}
