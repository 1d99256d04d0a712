// Package model はドメインモデルを定義する。
package model

import "time"

// Bookmark はユーザーが保存したブックマークを表す。
// user_idは作成したセッションのユーザーIDと常に一致する。
type Bookmark struct {
	ID          string
	UserID      string
	Title       string
	URL         string
	FaviconData []byte
	FaviconMime string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChangeType は変更フィードのイベント種別を表す。
type ChangeType string

const (
	// ChangeInsert はブックマーク作成イベント。
	ChangeInsert ChangeType = "insert"
	// ChangeUpdate はブックマーク更新イベント。
	ChangeUpdate ChangeType = "update"
	// ChangeDelete はブックマーク削除イベント。
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent はbookmarksテーブルの行レベル変更通知を表す。
// pg_notifyのペイロードとしてJSONシリアライズされ、
// 変更フィード購読者に配信される。
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	BookmarkID string     `json:"bookmark_id"`
	UserID     string     `json:"user_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}
