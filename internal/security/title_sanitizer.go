// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TitleSanitizerService はブックマークのタイトルや取得したページタイトルから
// HTMLマークアップを除去し、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリのStrictPolicyにより、タグを一切含まない
// プレーンテキストのみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizerService はタイトル文字列のサニタイズ機能のインターフェースを定義する。
// ブックマーク保存前およびタイトルプレビュー応答時に使用される。
type TitleSanitizerService interface {
	// Sanitize はタイトル文字列から全てのHTMLタグを除去しプレーンテキストを返す。
	// scriptタグやon*イベント属性を含むあらゆるマークアップが除去される。
	// HTMLエンティティはデコードされる（&amp; → & など）。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// titleSanitizer はTitleSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全てのマークアップが除去される。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタイトル文字列から全てのHTMLタグを除去しプレーンテキストを返す。
func (s *titleSanitizer) Sanitize(rawHTML string) string {
	stripped := s.policy.Sanitize(rawHTML)
	// StrictPolicyはテキストをエスケープして返すため、表示用にデコードする
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TitleSanitizerService = (*titleSanitizer)(nil)
