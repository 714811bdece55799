package folder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/pixelforge/internal/model"
	"github.com/hitoshi/pixelforge/internal/repository"
	"github.com/hitoshi/pixelforge/internal/security"
)

// --- モック定義 ---

type mockFolderRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.Folder, error)
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.Folder, error)
	createFn       func(ctx context.Context, folder *model.Folder) error
	deleteFn       func(ctx context.Context, id string) error
}

func (m *mockFolderRepo) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockFolderRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Folder, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	if m.createFn != nil {
		return m.createFn(ctx, folder)
	}
	return nil
}

func (m *mockFolderRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockProjectRepo struct {
	listByFolderIDFn func(ctx context.Context, folderID string) ([]*model.Project, error)
}

func (m *mockProjectRepo) FindByID(_ context.Context, _ string) (*model.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) ListByUserID(_ context.Context, _ string) ([]*model.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) CountByUserID(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func (m *mockProjectRepo) ListByFolderID(ctx context.Context, folderID string) ([]*model.Project, error) {
	if m.listByFolderIDFn != nil {
		return m.listByFolderIDFn(ctx, folderID)
	}
	return nil, nil
}

func (m *mockProjectRepo) CreateWithinLimit(_ context.Context, _ *model.Project, _ int) error {
	return nil
}

func (m *mockProjectRepo) ApplyPatch(_ context.Context, _ string, _ *model.ProjectPatch, _ time.Time) error {
	return nil
}

func (m *mockProjectRepo) Delete(_ context.Context, _, _ string) error {
	return nil
}

// --- compile-time interface checks ---
var _ repository.FolderRepository = (*mockFolderRepo)(nil)
var _ repository.ProjectRepository = (*mockProjectRepo)(nil)

func newTestService(fr *mockFolderRepo, pr *mockProjectRepo) *Service {
	return NewService(fr, pr, security.NewTextSanitizer())
}

// --- テスト ---

func TestCreate_SanitizesName(t *testing.T) {
	ctx := context.Background()

	var created *model.Folder

	folderRepo := &mockFolderRepo{
		createFn: func(ctx context.Context, folder *model.Folder) error {
			created = folder
			return nil
		},
	}

	svc := newTestService(folderRepo, &mockProjectRepo{})

	folder, err := svc.Create(ctx, "user-1", "  <i>風景</i>写真  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if folder.ID == "" {
		t.Error("expected non-empty folder ID")
	}
	if folder.UserID != "user-1" {
		t.Errorf("folder userID = %q, want %q", folder.UserID, "user-1")
	}
	if created == nil {
		t.Fatal("expected folder to be persisted")
	}
	if created.Name != "風景写真" {
		t.Errorf("sanitized name = %q, want %q", created.Name, "風景写真")
	}
}

func TestCreate_EmptyNameAfterSanitize_ReturnsError(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockFolderRepo{}, &mockProjectRepo{})

	_, err := svc.Create(ctx, "user-1", "<script></script>")
	if err == nil {
		t.Fatal("expected error for empty folder name")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidTitle {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidTitle)
	}
}

func TestList_NoFolders_ReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockFolderRepo{}, &mockProjectRepo{})

	folders, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if folders == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestListProjects_Owner_ReturnsProjects(t *testing.T) {
	ctx := context.Background()

	folderRepo := &mockFolderRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: "user-1", Name: "旅行"}, nil
		},
	}
	projectRepo := &mockProjectRepo{
		listByFolderIDFn: func(ctx context.Context, folderID string) ([]*model.Project, error) {
			return []*model.Project{{ID: "p-1", UserID: "user-1"}}, nil
		},
	}

	svc := newTestService(folderRepo, projectRepo)

	projects, err := svc.ListProjects(ctx, "user-1", "folder-1")
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("expected 1 project, got %d", len(projects))
	}
}

func TestListProjects_NonOwner_ReturnsAccessDenied(t *testing.T) {
	ctx := context.Background()

	folderRepo := &mockFolderRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: "owner-user"}, nil
		},
	}

	svc := newTestService(folderRepo, &mockProjectRepo{})

	_, err := svc.ListProjects(ctx, "intruder", "folder-1")
	if err == nil {
		t.Fatal("expected error for non-owner access")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeAccessDenied {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeAccessDenied)
	}
}

func TestDelete_Owner_DeletesFolder(t *testing.T) {
	ctx := context.Background()

	var deletedID string

	folderRepo := &mockFolderRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: "user-1"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	svc := newTestService(folderRepo, &mockProjectRepo{})

	if err := svc.Delete(ctx, "user-1", "folder-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deletedID != "folder-1" {
		t.Errorf("deleted folder ID = %q, want %q", deletedID, "folder-1")
	}
}

func TestDelete_NotFound_ReturnsNotFoundError(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(&mockFolderRepo{}, &mockProjectRepo{})

	err := svc.Delete(ctx, "user-1", "missing-folder")
	if err == nil {
		t.Fatal("expected error for missing folder")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeFolderNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeFolderNotFound)
	}
}
