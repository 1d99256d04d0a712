package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/bukuma/internal/model"
)

// fakeAPI はクライアントテスト用のインメモリAPIサーバー。
// 認証状態とブックマーク一覧を保持し、呼び出し回数を記録する。
type fakeAPI struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu         gosync.Mutex
	signedIn   bool
	user       UserInfo
	bookmarks  []BookmarkItem
	failList   bool
	watchConns map[*websocket.Conn]struct{}

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int
}

const fakeCSRFToken = "test-csrf-token"

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{
		t:          t,
		user:       UserInfo{ID: "user-1", Email: "me@example.com", Name: "Me"},
		watchConns: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token", api.handleCSRFToken)
	mux.HandleFunc("/auth/me", api.handleMe)
	mux.HandleFunc("/auth/logout", api.handleLogout)
	mux.HandleFunc("/api/bookmarks", api.handleBookmarks)
	mux.HandleFunc("/api/bookmarks/watch", api.handleWatch)
	mux.HandleFunc("/api/bookmarks/", api.handleBookmarkByID)

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) newClient() *Client {
	a.t.Helper()
	c, err := NewClient(a.server.URL)
	if err != nil {
		a.t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func (a *fakeAPI) setSignedIn(signedIn bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signedIn = signedIn
}

func (a *fakeAPI) setBookmarks(items []BookmarkItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bookmarks = append([]BookmarkItem(nil), items...)
}

func (a *fakeAPI) counts() (list, create, update, del int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listCalls, a.createCalls, a.updateCalls, a.deleteCalls
}

func (a *fakeAPI) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": fakeCSRFToken})
}

func (a *fakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	signedIn := a.signedIn
	user := a.user
	a.mu.Unlock()

	if !signedIn {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (a *fakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.signedIn = false
	a.mu.Unlock()
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func (a *fakeAPI) requireCSRF(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-CSRF-Token") != fakeCSRFToken {
		http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		return false
	}
	return true
}

func (a *fakeAPI) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.mu.Lock()
		a.listCalls++
		fail := a.failList
		items := append([]BookmarkItem(nil), a.bookmarks...)
		a.mu.Unlock()

		if fail {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)

	case http.MethodPost:
		if !a.requireCSRF(w, r) {
			return
		}
		var req bookmarkPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		a.mu.Lock()
		a.createCalls++
		created := BookmarkItem{
			ID:        "srv-generated",
			UserID:    a.user.ID,
			Title:     req.Title,
			URL:       req.URL,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		a.bookmarks = append([]BookmarkItem{created}, a.bookmarks...)
		a.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWatch は変更フィードのWebSocket接続を受け付ける。
func (a *fakeAPI) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	a.mu.Lock()
	a.watchConns[conn] = struct{}{}
	a.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.mu.Lock()
	delete(a.watchConns, conn)
	a.mu.Unlock()
	conn.Close()
}

// watchConnCount は現在の変更フィード接続数を返す。
func (a *fakeAPI) watchConnCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.watchConns)
}

// pushEvent は接続中の全変更フィード購読者にイベントを送る。
func (a *fakeAPI) pushEvent(event model.ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for conn := range a.watchConns {
		conn.WriteJSON(event)
	}
}

func (a *fakeAPI) handleBookmarkByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/bookmarks/")
	if !a.requireCSRF(w, r) {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req bookmarkPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		a.mu.Lock()
		a.updateCalls++
		var updated *BookmarkItem
		for i := range a.bookmarks {
			if a.bookmarks[i].ID == id {
				a.bookmarks[i].Title = req.Title
				a.bookmarks[i].URL = req.URL
				a.bookmarks[i].UpdatedAt = time.Now()
				updated = &a.bookmarks[i]
				break
			}
		}
		a.mu.Unlock()

		if updated == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"code":     "BOOKMARK_NOT_FOUND",
				"message":  "指定されたブックマークが見つかりません: " + id,
				"category": "bookmark",
				"action":   "一覧を再読み込みしてください。",
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)

	case http.MethodDelete:
		a.mu.Lock()
		a.deleteCalls++
		kept := a.bookmarks[:0]
		for _, b := range a.bookmarks {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		a.bookmarks = kept
		a.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
