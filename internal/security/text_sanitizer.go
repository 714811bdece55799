// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力のプレーンテキスト（プロジェクトタイトル、
// フォルダ名）からマークアップを除去し、ダッシュボードでの表示時に
// XSSの持ち込みを防ぐ。bluemondayのStrictPolicy（全タグ除去）を使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェースを定義する。
// プロジェクト・フォルダの作成および更新時に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しないため、<script>等はもちろん
// <b>のような無害なタグもテキストのみ残して除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去し、前後の空白を取り除いて返す。
func (s *textSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
