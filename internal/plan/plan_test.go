package plan

import (
	"testing"

	"github.com/hitoshi/pixelforge/internal/model"
)

// ツールアクセステーブルがプランごとに正しく判定されることを検証
func TestHasToolAccess_Table(t *testing.T) {
	tests := []struct {
		name   string
		plan   model.Plan
		toolID string
		want   bool
	}{
		{"free_resize", model.PlanFree, ToolResize, true},
		{"free_crop", model.PlanFree, ToolCrop, true},
		{"free_adjust", model.PlanFree, ToolAdjust, true},
		{"free_text", model.PlanFree, ToolText, true},
		{"free_background", model.PlanFree, ToolBackground, false},
		{"free_ai_extender", model.PlanFree, ToolAIExtender, false},
		{"free_ai_edit", model.PlanFree, ToolAIEdit, false},
		{"pro_resize", model.PlanPro, ToolResize, true},
		{"pro_background", model.PlanPro, ToolBackground, true},
		{"pro_ai_extender", model.PlanPro, ToolAIExtender, true},
		{"pro_ai_edit", model.PlanPro, ToolAIEdit, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasToolAccess(tt.plan, tt.toolID); got != tt.want {
				t.Errorf("HasToolAccess(%q, %q) = %v, want %v", tt.plan, tt.toolID, got, tt.want)
			}
		})
	}
}

// 未知のツールIDは常に拒否されることを検証
func TestHasToolAccess_UnknownTool(t *testing.T) {
	if HasToolAccess(model.PlanPro, "hologram") {
		t.Error("unknown tool should be denied even for pro plan")
	}
	if HasToolAccess(model.PlanFree, "") {
		t.Error("empty tool ID should be denied")
	}
}

// 無料プランの制限ツール一覧がPro限定ツールと一致することを検証
func TestRestrictedTools_Free(t *testing.T) {
	got := RestrictedTools(model.PlanFree)
	want := []string{ToolBackground, ToolAIExtender, ToolAIEdit}

	if len(got) != len(want) {
		t.Fatalf("RestrictedTools(free) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RestrictedTools(free)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// Proプランには制限ツールが存在しないことを検証
func TestRestrictedTools_Pro(t *testing.T) {
	got := RestrictedTools(model.PlanPro)
	if len(got) != 0 {
		t.Errorf("RestrictedTools(pro) = %v, want empty", got)
	}
}

// プロジェクト作成可否が上限に従うことを検証
func TestCanCreateProject(t *testing.T) {
	tests := []struct {
		name  string
		plan  model.Plan
		count int
		want  bool
	}{
		{"free_zero", model.PlanFree, 0, true},
		{"free_below_limit", model.PlanFree, 4, true},
		{"free_at_limit", model.PlanFree, 5, false},
		{"free_over_limit", model.PlanFree, 6, false},
		{"pro_at_limit", model.PlanPro, 5, true},
		{"pro_large", model.PlanPro, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanCreateProject(tt.plan, tt.count); got != tt.want {
				t.Errorf("CanCreateProject(%q, %d) = %v, want %v", tt.plan, tt.count, got, tt.want)
			}
		})
	}
}

// エクスポート可否が月間上限に従うことを検証
func TestCanExport(t *testing.T) {
	tests := []struct {
		name    string
		plan    model.Plan
		exports int
		want    bool
	}{
		{"free_zero", model.PlanFree, 0, true},
		{"free_below_limit", model.PlanFree, 19, true},
		{"free_at_limit", model.PlanFree, 20, false},
		{"pro_at_limit", model.PlanPro, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanExport(tt.plan, tt.exports); got != tt.want {
				t.Errorf("CanExport(%q, %d) = %v, want %v", tt.plan, tt.exports, got, tt.want)
			}
		})
	}
}

// ProjectLimitが無料プランの上限とProの無制限(0)を返すことを検証
func TestProjectLimit(t *testing.T) {
	if got := ProjectLimit(model.PlanFree); got != FreeProjectLimit {
		t.Errorf("ProjectLimit(free) = %d, want %d", got, FreeProjectLimit)
	}
	if got := ProjectLimit(model.PlanPro); got != 0 {
		t.Errorf("ProjectLimit(pro) = %d, want 0 (unlimited)", got)
	}
}

// ExportLimitが無料プランの上限とProの無制限(0)を返すことを検証
func TestExportLimit(t *testing.T) {
	if got := ExportLimit(model.PlanFree); got != FreeExportLimit {
		t.Errorf("ExportLimit(free) = %d, want %d", got, FreeExportLimit)
	}
	if got := ExportLimit(model.PlanPro); got != 0 {
		t.Errorf("ExportLimit(pro) = %d, want 0 (unlimited)", got)
	}
}
