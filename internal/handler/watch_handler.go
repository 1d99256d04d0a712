package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/middleware"
	"github.com/hitoshi/bukuma/internal/sync"
)

const (
	// watchWriteWait はWebSocketへの書き込みタイムアウト。
	watchWriteWait = 10 * time.Second

	// watchPongWait はクライアントからのPong応答を待つ最大時間。
	watchPongWait = 60 * time.Second

	// watchPingPeriod はPing送信間隔。pongWaitより短くする必要がある。
	watchPingPeriod = 54 * time.Second
)

// WatchHandler は変更フィードのWebSocketハンドラー。
// 認証済みユーザーのブックマーク変更イベントをリアルタイムに配信する。
// 他ユーザーの変更イベントは決して届かない。
type WatchHandler struct {
	hub      *sync.Hub
	metrics  metrics.MetricsCollector
	upgrader websocket.Upgrader
}

// NewWatchHandler はWatchHandlerを生成する。
// allowedOriginはWebSocketハンドシェイクのOrigin検証に使用する。
// metricsはnilでもよい（計測なしで動作する）。
func NewWatchHandler(hub *sync.Hub, collector metrics.MetricsCollector, allowedOrigin string) *WatchHandler {
	return &WatchHandler{
		hub:     hub,
		metrics: collector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Originヘッダーなし（同一オリジン、CLIクライアント）は許可
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Watch は変更フィードのWebSocket接続を確立する。
// 接続中はログインユーザー宛の変更イベントをJSONで配信する。
// GET /api/bookmarks/watch
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが失敗した場合はupgraderが既にエラーレスポンスを書き込んでいる
		slog.Warn("websocket upgrade failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	if h.metrics != nil {
		h.metrics.IncWatchConnections()
		defer h.metrics.DecWatchConnections()
	}

	slog.Info("watch connection established",
		slog.String("user_id", userID),
	)

	// 読み取りポンプ: クライアントからの切断とPong応答を検出する
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(watchPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(watchPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			slog.Info("watch connection closed by client",
				slog.String("user_id", userID),
			)
			return

		case <-r.Context().Done():
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				slog.Warn("failed to write change event",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				return
			}
			if h.metrics != nil {
				h.metrics.RecordChangeEventDelivered()
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
