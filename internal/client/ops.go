package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/bukuma/internal/model"
)

// Operations はブックマークCRUD操作のクライアント側実装。
// すべての操作は結果を明示的に返す。
type Operations struct {
	client  *Client
	cache   *ListCache
	session *SessionStore
}

// NewOperations はOperationsを生成する。
func NewOperations(client *Client, cache *ListCache, session *SessionStore) *Operations {
	return &Operations{
		client:  client,
		cache:   cache,
		session: session,
	}
}

// bookmarkPayload はブックマーク作成・更新リクエストのボディ。
type bookmarkPayload struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FetchAll はブックマーク一覧を取得し、キャッシュを全件置き換える。
// サーバーは所有者のレコードのみ返すが、防御的にクライアント側でも
// ログインユーザーのレコードにフィルタする。
// 取得に失敗した場合、キャッシュは空になる。
func (o *Operations) FetchAll(ctx context.Context) error {
	var items []BookmarkItem
	if err := o.client.getJSON(ctx, "/api/bookmarks", &items); err != nil {
		o.cache.Clear()
		return err
	}

	if user := o.session.User(); user != nil {
		filtered := items[:0]
		for _, item := range items {
			if item.UserID == user.ID {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	o.cache.Replace(items)
	return nil
}

// Create はブックマークを作成し、作成されたレコードを返す。
// タイトルまたはURLが空の場合はサーバーに問い合わせず即座にエラーを返す。
func (o *Operations) Create(ctx context.Context, title, rawURL string) (*BookmarkItem, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)
	if err := checkPresence(title, rawURL); err != nil {
		return nil, err
	}

	var created BookmarkItem
	if err := o.client.doJSON(ctx, http.MethodPost, "/api/bookmarks",
		bookmarkPayload{Title: title, URL: rawURL}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update はブックマークのタイトルとURLを更新し、更新後のレコードを返す。
// タイトルまたはURLが空の場合はサーバーに問い合わせず即座にエラーを返す。
func (o *Operations) Update(ctx context.Context, bookmarkID, title, rawURL string) (*BookmarkItem, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)
	if err := checkPresence(title, rawURL); err != nil {
		return nil, err
	}

	var updated BookmarkItem
	if err := o.client.doJSON(ctx, http.MethodPut, "/api/bookmarks/"+url.PathEscape(bookmarkID),
		bookmarkPayload{Title: title, URL: rawURL}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete はブックマークを削除する。
func (o *Operations) Delete(ctx context.Context, bookmarkID string) error {
	return o.client.doJSON(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(bookmarkID), nil, nil)
}

// PreviewTitle は指定URLのページタイトルをサーバー経由で取得する。
// フォームのタイトル自動補完に使用する。
func (o *Operations) PreviewTitle(ctx context.Context, rawURL string) (string, error) {
	var resp struct {
		Title string `json:"title"`
	}
	if err := o.client.doJSON(ctx, http.MethodPost, "/api/bookmarks/preview",
		map[string]string{"url": rawURL}, &resp); err != nil {
		return "", err
	}
	return resp.Title, nil
}

// checkPresence はタイトルとURLが入力されていることを確認する。
func checkPresence(title, rawURL string) error {
	if title == "" {
		return model.NewEmptyTitleError()
	}
	if rawURL == "" {
		return model.NewEmptyURLError()
	}
	return nil
}
