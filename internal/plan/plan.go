// Package plan はプランごとの機能・クォータ判定を提供する。
// すべて純粋関数で、I/Oを持たず (プラン, 現在の使用量) から決定的に判定する。
// 呼び出し側（UI）の事前チェックとサーバー側の再チェックの両方で共有されるが、
// 権威は常にサーバー側の再チェックにある。
package plan

import "github.com/hitoshi/pixelforge/internal/model"

// ツールID
const (
	ToolResize     = "resize"
	ToolCrop       = "crop"
	ToolAdjust     = "adjust"
	ToolText       = "text"
	ToolBackground = "background"
	ToolAIExtender = "ai_extender"
	ToolAIEdit     = "ai_edit"
)

const (
	// FreeProjectLimit は無料プランで作成できるプロジェクト数の上限。
	FreeProjectLimit = 5
	// FreeExportLimit は無料プランの月間エクスポート回数の上限。
	FreeExportLimit = 20
)

// proOnlyTools はProプラン限定のツール集合。
// それ以外のツールは全プランで利用可能。
var proOnlyTools = map[string]bool{
	ToolBackground: true,
	ToolAIExtender: true,
	ToolAIEdit:     true,
}

// allTools は判定対象の全ツールID。RestrictedToolsの出力順を安定させるため
// スライスで保持する。
var allTools = []string{
	ToolResize, ToolCrop, ToolAdjust, ToolText,
	ToolBackground, ToolAIExtender, ToolAIEdit,
}

// HasToolAccess は指定プランでツールが利用可能かを返す。
// 未知のツールIDは常にfalse。
func HasToolAccess(p model.Plan, toolID string) bool {
	known := false
	for _, t := range allTools {
		if t == toolID {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	if proOnlyTools[toolID] {
		return p == model.PlanPro
	}
	return true
}

// RestrictedTools は指定プランで利用できないツールIDの一覧を返す。
// Proプランでは常に空スライスを返す。
func RestrictedTools(p model.Plan) []string {
	restricted := []string{}
	for _, t := range allTools {
		if !HasToolAccess(p, t) {
			restricted = append(restricted, t)
		}
	}
	return restricted
}

// CanCreateProject は現在のプロジェクト数で新規作成が可能かを返す。
// Proプランは常にtrue。無料プランは上限未満の場合のみtrue。
func CanCreateProject(p model.Plan, currentProjectCount int) bool {
	if p == model.PlanPro {
		return true
	}
	return currentProjectCount < FreeProjectLimit
}

// CanExport は当月のエクスポート回数でエクスポートが可能かを返す。
// Proプランは常にtrue。無料プランは上限未満の場合のみtrue。
func CanExport(p model.Plan, currentExportsThisMonth int) bool {
	if p == model.PlanPro {
		return true
	}
	return currentExportsThisMonth < FreeExportLimit
}

// ProjectLimit はプランのプロジェクト数上限を返す。0は無制限を表す。
// リポジトリ層がトランザクション内のクォータ再チェックに使用する。
func ProjectLimit(p model.Plan) int {
	if p == model.PlanPro {
		return 0
	}
	return FreeProjectLimit
}

// ExportLimit はプランの月間エクスポート回数上限を返す。0は無制限を表す。
func ExportLimit(p model.Plan) int {
	if p == model.PlanPro {
		return 0
	}
	return FreeExportLimit
}
