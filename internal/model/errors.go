// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, bookmark, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBookmarkNotFound = "BOOKMARK_NOT_FOUND"
	ErrCodeEmptyTitle       = "EMPTY_TITLE"
	ErrCodeEmptyURL         = "EMPTY_URL"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeTitleNotFound    = "TITLE_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
// 他ユーザーのブックマークへのアクセスも存在しないものとして扱う。
func NewBookmarkNotFoundError(bookmarkID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  fmt.Sprintf("指定されたブックマークが見つかりません: %s", bookmarkID),
		Category: "bookmark",
		Action:   "一覧を再読み込みして、ブックマークが存在するか確認してください。",
	}
}

// NewEmptyTitleError はタイトル未入力エラーを生成する。
func NewEmptyTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTitle,
		Message:  "タイトルが入力されていません。",
		Category: "validation",
		Action:   "タイトルを入力してください。",
	}
}

// NewEmptyURLError はURL未入力エラーを生成する。
func NewEmptyURLError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyURL,
		Message:  "URLが入力されていません。",
		Category: "validation",
		Action:   "URLを入力してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はページ取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "bookmark",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewTitleNotFoundError はページタイトル未検出エラーを生成する。
func NewTitleNotFoundError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeTitleNotFound,
		Message:  fmt.Sprintf("指定されたページからタイトルを検出できませんでした: %s", url),
		Category: "bookmark",
		Action:   "タイトルを手動で入力してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
