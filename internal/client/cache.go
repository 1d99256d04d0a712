package client

import (
	gosync "sync"
	"time"
)

// BookmarkItem はAPIから取得したブックマーク1件。
type BookmarkItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	FaviconURL *string   `json:"favicon_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListCache はブックマーク一覧の順序付き投影を保持する。
// サーバーが常に正であり、このキャッシュは表示用の複製にすぎない。
// 更新は常に全件置き換えで行う。
type ListCache struct {
	mu    gosync.RWMutex
	items []BookmarkItem
}

// NewListCache はListCacheを生成する。
func NewListCache() *ListCache {
	return &ListCache{}
}

// Replace は一覧を全件置き換える。差分適用は行わない。
func (c *ListCache) Replace(items []BookmarkItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]BookmarkItem(nil), items...)
}

// Items は現在の一覧のコピーを返す。
func (c *ListCache) Items() []BookmarkItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]BookmarkItem(nil), c.items...)
}

// Len は現在の件数を返す。
func (c *ListCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear は一覧を空にする。サインアウト時と取得失敗時に呼ばれる。
func (c *ListCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
