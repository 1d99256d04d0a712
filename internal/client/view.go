package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"

	"github.com/hitoshi/bukuma/internal/model"
)

// View はブックマークページの表示とユーザー操作の結線を担う。
// 未ログイン時はログインゲートを、ログイン済みなら入力フォームと
// ブックマーク一覧を描画する。
type View struct {
	session    *SessionStore
	cache      *ListCache
	draft      *Draft
	ops        *Operations
	subscriber *SyncSubscriber

	mu        gosync.Mutex
	unlisten  func()
	lastErr   error
	renderCtx context.Context
}

// NewView はViewを生成し、構成要素を結線する。
func NewView(c *Client) *View {
	session := NewSessionStore(c)
	cache := NewListCache()
	draft := NewDraft()
	ops := NewOperations(c, cache, session)

	v := &View{
		session: session,
		cache:   cache,
		draft:   draft,
		ops:     ops,
	}

	// どの種類の変更イベントでも一覧を再取得する
	v.subscriber = NewSyncSubscriber(c, func(event model.ChangeEvent) {
		v.refresh()
	})

	return v
}

// Session は認証状態ストアを返す。
func (v *View) Session() *SessionStore { return v.session }

// Cache はブックマーク一覧キャッシュを返す。
func (v *View) Cache() *ListCache { return v.cache }

// Draft は入力フォームの下書き状態を返す。
func (v *View) Draft() *Draft { return v.draft }

// Ops はCRUD操作を返す。
func (v *View) Ops() *Operations { return v.ops }

// Mount はページを初期化する。
// 認証状態を確定し、ログイン済みなら一覧取得と変更フィード購読を開始する。
// 認証状態の変化に応じて購読の開閉と一覧のクリアを行う。
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	v.renderCtx = ctx
	v.mu.Unlock()

	unlisten := v.session.OnAuthChange(func(state AuthState, user *UserInfo) {
		switch state {
		case AuthSignedIn:
			if err := v.subscriber.Open(ctx); err != nil {
				slog.Warn("failed to open change feed subscription",
					slog.String("error", err.Error()),
				)
			}
			v.refresh()

		case AuthSignedOut:
			v.subscriber.Close()
			v.cache.Clear()
		}
	})

	v.mu.Lock()
	v.unlisten = unlisten
	v.mu.Unlock()

	v.session.Initialize(ctx)
}

// Unmount はページを破棄する。
// 認証リスナーを解除し、変更フィード購読を閉じる。
func (v *View) Unmount() {
	v.mu.Lock()
	unlisten := v.unlisten
	v.unlisten = nil
	v.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	v.subscriber.Close()
}

// SignOut はログアウトし、一覧と購読を破棄する。
func (v *View) SignOut(ctx context.Context) {
	v.session.SignOut(ctx)
}

// Submit は現在の下書きを送信する。
// 編集対象が設定されていれば更新、なければ新規作成になる。
// 成功時は下書きをリセットし、一覧を再取得する。
func (v *View) Submit(ctx context.Context) error {
	if err := v.draft.BeginSubmit(); err != nil {
		return err
	}

	title, url := v.draft.Values()
	target := v.draft.EditingTarget()

	var err error
	if target == "" {
		_, err = v.ops.Create(ctx, title, url)
	} else {
		_, err = v.ops.Update(ctx, target, title, url)
	}

	v.draft.CompleteSubmit(err == nil)
	if err != nil {
		v.setLastErr(err)
		return err
	}

	v.setLastErr(nil)
	// 変更イベントでも再取得されるが、即時反映のためここでも取得する
	return v.ops.FetchAll(ctx)
}

// Delete は指定ブックマークを削除し、一覧を再取得する。
func (v *View) Delete(ctx context.Context, bookmarkID string) error {
	if err := v.ops.Delete(ctx, bookmarkID); err != nil {
		v.setLastErr(err)
		return err
	}
	v.setLastErr(nil)
	return v.ops.FetchAll(ctx)
}

// Render は現在の状態をwに描画する。
func (v *View) Render(w io.Writer) {
	state := v.session.State()

	// 認証状態が未確定の間は未ログインとして描画する
	if state != AuthSignedIn {
		fmt.Fprintln(w, "== bukuma ==")
		fmt.Fprintln(w, "サインインしてください:")
		fmt.Fprintf(w, "  %s\n", v.session.SignInURL())
		return
	}

	user := v.session.User()
	fmt.Fprintln(w, "== bukuma ==")
	if user != nil {
		fmt.Fprintf(w, "ログイン中: %s\n", user.Email)
	}

	if err := v.lastError(); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(w, "エラー: %s %s\n", apiErr.Message, apiErr.Action)
		} else {
			fmt.Fprintf(w, "エラー: %s\n", err.Error())
		}
	}

	title, url := v.draft.Values()
	editing := v.draft.EditingTarget()
	if editing != "" {
		fmt.Fprintf(w, "[編集中: %s]\n", editing)
	}
	fmt.Fprintf(w, "タイトル: %s\n", title)
	fmt.Fprintf(w, "URL: %s\n", url)

	items := v.cache.Items()
	fmt.Fprintf(w, "-- ブックマーク（%d件） --\n", len(items))
	for _, item := range items {
		fmt.Fprintf(w, "* %s <%s> [編集] [削除]\n", item.Title, item.URL)
	}
}

// refresh は現在のマウントコンテキストで一覧を再取得する。
func (v *View) refresh() {
	v.mu.Lock()
	ctx := v.renderCtx
	v.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := v.ops.FetchAll(ctx); err != nil {
		slog.Warn("failed to refresh bookmark list", slog.String("error", err.Error()))
	}
}

func (v *View) setLastErr(err error) {
	v.mu.Lock()
	v.lastErr = err
	v.mu.Unlock()
}

func (v *View) lastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}
