package client

import (
	"context"
	"log/slog"
	"net/http"
	gosync "sync"
)

// AuthState は認証状態を表す。
type AuthState string

const (
	// AuthUnknown は初期化が完了していない状態。未ログインとして描画される。
	AuthUnknown AuthState = "unknown"
	// AuthSignedOut は未ログイン状態。
	AuthSignedOut AuthState = "signed_out"
	// AuthSignedIn はログイン済み状態。
	AuthSignedIn AuthState = "signed_in"
)

// UserInfo はログインユーザーの情報。
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthChangeListener は認証状態の変化を受け取るコールバック。
// userはログイン済みのときのみ非nil。
type AuthChangeListener func(state AuthState, user *UserInfo)

// SessionStore はクライアント側の認証状態を保持する。
// Initializeで現在のセッションを1回だけ問い合わせ、
// 以降の状態変化はリスナーに通知される。
type SessionStore struct {
	client *Client

	mu        gosync.RWMutex
	state     AuthState
	user      *UserInfo
	listeners map[int]AuthChangeListener
	nextID    int
}

// NewSessionStore はSessionStoreを生成する。初期状態はAuthUnknown。
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{
		client:    client,
		state:     AuthUnknown,
		listeners: make(map[int]AuthChangeListener),
	}
}

// State は現在の認証状態を返す。
func (s *SessionStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User はログインユーザーの情報を返す。未ログインの場合はnil。
func (s *SessionStore) User() *UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Initialize は現在のセッションをサーバーに問い合わせ、認証状態を確定する。
// セッションが無効な場合は未ログイン状態になる。
// 問い合わせの失敗自体はエラーにせず未ログインとして扱う。
func (s *SessionStore) Initialize(ctx context.Context) {
	var user UserInfo
	if err := s.client.getJSON(ctx, "/auth/me", &user); err != nil {
		s.setState(AuthSignedOut, nil)
		return
	}

	s.setState(AuthSignedIn, &user)
}

// OnAuthChange は認証状態の変化を受け取るリスナーを登録する。
// 返される関数を呼ぶとリスナーが解除される。
func (s *SessionStore) OnAuthChange(listener AuthChangeListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignInURL はGoogleログインフローの開始URLを返す。
// ログイン完了はリダイレクト後のInitializeによる再問い合わせで観測される。
func (s *SessionStore) SignInURL() string {
	return s.client.BaseURL() + "/auth/google/login"
}

// SignOut はサーバー側のセッションを破棄し、未ログイン状態に遷移する。
// サーバーへのリクエストが失敗してもローカル状態は未ログインにする。
func (s *SessionStore) SignOut(ctx context.Context) {
	if err := s.client.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		slog.Warn("logout request failed", slog.String("error", err.Error()))
	}

	s.setState(AuthSignedOut, nil)
}

// setState は状態を更新し、変化があればリスナーに通知する。
func (s *SessionStore) setState(state AuthState, user *UserInfo) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.user = user

	var listeners []AuthChangeListener
	if changed {
		listeners = make([]AuthChangeListener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, user)
	}
}
